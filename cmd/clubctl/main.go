// Command clubctl runs maintenance tasks against a Clubhouse database:
// schema setup, sample data, student imports, index reconciliation
// and counts.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dalemusser/clubhouse/internal/app/bootstrap"
	"github.com/dalemusser/waffle/config"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		// Exit codes chosen by a command (cli.Exit) win; anything else is 1.
		cli.HandleExitCoder(err)
		fmt.Fprintln(os.Stderr, "clubctl:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "clubctl",
		Usage: "Clubhouse maintenance commands",
		// Errors, exit codes included, are returned to main.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "backend",
				Usage:   "Storage backend: mongo or memory",
				Value:   bootstrap.BackendMongo,
				EnvVars: []string{"CLUBHOUSE_BACKEND"},
			},
			&cli.StringFlag{
				Name:    "mongo-uri",
				Usage:   "MongoDB connection URI",
				Value:   "mongodb://localhost:27017",
				EnvVars: []string{"CLUBHOUSE_MONGO_URI"},
			},
			&cli.StringFlag{
				Name:    "mongo-database",
				Usage:   "MongoDB database name",
				Value:   "clubhouse",
				EnvVars: []string{"CLUBHOUSE_MONGO_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for membership locks (blank = in-process)",
				EnvVars: []string{"CLUBHOUSE_REDIS_URL"},
			},
			&cli.DurationFlag{
				Name:    "lock-ttl",
				Usage:   "Lifetime of a Redis membership lock",
				Value:   10 * time.Second,
				EnvVars: []string{"CLUBHOUSE_LOCK_TTL"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Development logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "schema",
				Usage:  "Create collections, validators and indexes",
				Action: schemaCommand,
			},
			{
				Name:   "seed",
				Usage:  "Load the sample students, clubs and memberships",
				Action: seedCommand,
			},
			{
				Name:      "import-students",
				Usage:     "Create students from a CSV file (name,email,student_number,major)",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Usage: "Validate the file without writing"},
				},
				Action: importStudentsCommand,
			},
			{
				Name:  "reconcile",
				Usage: "Verify membership indexes and member counts",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "repair", Usage: "Rewrite drifted indexes and counts"},
					&cli.BoolFlag{Name: "json", Aliases: []string{"j"}, Usage: "Output as JSON"},
				},
				Action: reconcileCommand,
			},
			{
				Name:   "counts",
				Usage:  "Print club, student and membership totals",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "json", Aliases: []string{"j"}, Usage: "Output as JSON"}},
				Action: countsCommand,
			},
		},
	}
}

// env is an open connection plus the wired stores.
type env struct {
	core   *config.CoreConfig
	cfg    bootstrap.AppConfig
	deps   bootstrap.DBDeps
	svc    *bootstrap.Services
	logger *zap.Logger
}

func newLogger(c *cli.Context) (*zap.Logger, error) {
	if c.Bool("verbose") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func open(c *cli.Context) (*env, error) {
	logger, err := newLogger(c)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	core := &config.CoreConfig{Env: "dev"}
	cfg := bootstrap.AppConfig{
		Backend:          c.String("backend"),
		MongoURI:         c.String("mongo-uri"),
		MongoDatabase:    c.String("mongo-database"),
		MongoMaxPoolSize: 10,
		MongoMinPoolSize: 0,
		SessionKey:       "clubctl",
		RedisURL:         c.String("redis-url"),
		LockTTL:          c.Duration("lock-ttl"),
	}
	if err := bootstrap.ValidateConfig(core, cfg, logger); err != nil {
		return nil, err
	}
	deps, err := bootstrap.ConnectDB(c.Context, core, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := bootstrap.EnsureSchema(c.Context, core, cfg, deps, logger); err != nil {
		_ = bootstrap.Shutdown(context.Background(), core, cfg, deps, logger)
		return nil, err
	}
	return &env{
		core:   core,
		cfg:    cfg,
		deps:   deps,
		svc:    bootstrap.NewServices(cfg, deps, logger),
		logger: logger,
	}, nil
}

func (e *env) close() {
	e.svc.Close()
	_ = bootstrap.Shutdown(context.Background(), e.core, e.cfg, e.deps, e.logger)
	_ = e.logger.Sync()
}

func printJSON(v any) error {
	return writeJSON(os.Stdout, v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
