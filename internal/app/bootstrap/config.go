// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for Clubhouse.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: CLUBHOUSE_MONGO_URI, CLUBHOUSE_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "backend", Default: BackendMongo, Desc: "Storage backend: 'mongo' or 'memory'"},
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "clubhouse", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: devSessionKey, Desc: "Flash session secret (must be strong in production)"},
	{Name: "session_name", Default: "clubhouse-session", Desc: "Flash session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	// Pair locks
	{Name: "redis_url", Default: "", Desc: "Redis URL for cross-instance membership locks (blank = in-process)"},
	{Name: "lock_ttl", Default: "10s", Desc: "Lifetime of a Redis membership lock"},

	// Reconciliation
	{Name: "reconcile_interval", Default: "0s", Desc: "How often to verify the membership indexes (0 disables)"},
	{Name: "reconcile_repair", Default: true, Desc: "Repair drift found by the reconcile worker"},

	{Name: "write_rate_limit", Default: 120, Desc: "API writes allowed per client IP per minute (0 disables)"},
	{Name: "trust_proxy_headers", Default: false, Desc: "Use X-Real-IP/X-Forwarded-For as the client IP (only behind a trusted proxy)"},
	{Name: "enable_sample_data", Default: true, Desc: "Enable POST /api/sample-data (ignored in prod)"},
}

const devSessionKey = "dev-only-change-me-please-0123456789ABCDEF"

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, CLUBHOUSE_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CLUBHOUSE", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		Backend:          appValues.String("backend"),
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),

		RedisURL: appValues.String("redis_url"),
		LockTTL:  appValues.Duration("lock_ttl", 10*time.Second),

		ReconcileInterval: appValues.Duration("reconcile_interval", 0),
		ReconcileRepair:   appValues.Bool("reconcile_repair"),

		WriteRateLimit:    appValues.Int("write_rate_limit"),
		TrustProxyHeaders: appValues.Bool("trust_proxy_headers"),
		EnableSampleData:  appValues.Bool("enable_sample_data"),
	}

	if coreCfg.Env == "prod" && appCfg.EnableSampleData {
		logger.Info("sample data endpoint disabled in prod")
		appCfg.EnableSampleData = false
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI is validated here so configuration errors surface
// before any connection attempt.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.Backend {
	case BackendMongo:
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if appCfg.MongoDatabase == "" {
			return errors.New("mongo_database is required")
		}
	case BackendMemory:
		if coreCfg.Env == "prod" {
			logger.Warn("memory backend in prod: data will not survive a restart")
		}
	default:
		return fmt.Errorf("unknown backend %q (want %q or %q)", appCfg.Backend, BackendMongo, BackendMemory)
	}

	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize {
		return fmt.Errorf("mongo_min_pool_size (%d) exceeds mongo_max_pool_size (%d)",
			appCfg.MongoMinPoolSize, appCfg.MongoMaxPoolSize)
	}
	if appCfg.LockTTL <= 0 {
		return errors.New("lock_ttl must be positive")
	}
	if appCfg.WriteRateLimit < 0 {
		return errors.New("write_rate_limit must not be negative")
	}
	if appCfg.ReconcileInterval < 0 {
		return errors.New("reconcile_interval must not be negative")
	}
	if coreCfg.Env == "prod" && appCfg.SessionKey == devSessionKey {
		return errors.New("session_key must be changed in prod")
	}
	return nil
}
