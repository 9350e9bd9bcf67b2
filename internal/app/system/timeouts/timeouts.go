// Package timeouts holds the deadlines applied to store calls made from
// HTTP handlers, the CLI and background workers.
//
//   - Ping: health checks
//   - Short: single-document reads
//   - Medium: list queries and single-entity writes
//   - Long: membership units of work and cascades
//   - Batch: sample-data seeding and reconciliation
package timeouts

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultBatch  = 2 * time.Minute
)

// Config holds timeout configuration values.
// Zero values are ignored (defaults are kept).
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Batch  time.Duration
}

func defaults() Config {
	return Config{
		Ping:   DefaultPing,
		Short:  DefaultShort,
		Medium: DefaultMedium,
		Long:   DefaultLong,
		Batch:  DefaultBatch,
	}
}

var current atomic.Pointer[Config]

func init() { Reset() }

func get() Config { return *current.Load() }

func Ping() time.Duration   { return get().Ping }
func Short() time.Duration  { return get().Short }
func Medium() time.Duration { return get().Medium }
func Long() time.Duration   { return get().Long }
func Batch() time.Duration  { return get().Batch }

// Current returns the active configuration.
func Current() Config { return get() }

// Configure overlays the non-zero values of cfg onto the current ones.
// Call during startup before handlers are registered.
func Configure(cfg Config) {
	next := merge(get(), cfg)
	current.Store(&next)
}

func merge(base, over Config) Config {
	pick := func(b, o time.Duration) time.Duration {
		if o > 0 {
			return o
		}
		return b
	}
	return Config{
		Ping:   pick(base.Ping, over.Ping),
		Short:  pick(base.Short, over.Short),
		Medium: pick(base.Medium, over.Medium),
		Long:   pick(base.Long, over.Long),
		Batch:  pick(base.Batch, over.Batch),
	}
}

// Reset restores all timeouts to their default values.
func Reset() {
	d := defaults()
	current.Store(&d)
}

// ConfigureFromEnv reads TIMEOUT_PING, TIMEOUT_SHORT, TIMEOUT_MEDIUM,
// TIMEOUT_LONG and TIMEOUT_BATCH (Go duration syntax). Unset or invalid
// values are skipped. Returns how many were applied.
func ConfigureFromEnv() int {
	var cfg Config
	n := 0
	for name, dst := range map[string]*time.Duration{
		"TIMEOUT_PING":   &cfg.Ping,
		"TIMEOUT_SHORT":  &cfg.Short,
		"TIMEOUT_MEDIUM": &cfg.Medium,
		"TIMEOUT_LONG":   &cfg.Long,
		"TIMEOUT_BATCH":  &cfg.Batch,
	} {
		d, err := time.ParseDuration(os.Getenv(name))
		if err != nil || d <= 0 {
			continue
		}
		*dst = d
		n++
	}
	Configure(cfg)
	return n
}

// WithTimeout is context.WithTimeout whose cancel func logs a warning when
// the deadline was what ended the operation.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "join club")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
