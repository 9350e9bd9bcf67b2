// internal/app/bootstrap/services.go
package bootstrap

import (
	"context"
	"time"

	clubstore "github.com/dalemusser/clubhouse/internal/app/store/clubs"
	membershipstore "github.com/dalemusser/clubhouse/internal/app/store/memberships"
	metricsstore "github.com/dalemusser/clubhouse/internal/app/store/metrics"
	"github.com/dalemusser/clubhouse/internal/app/store/seed"
	studentstore "github.com/dalemusser/clubhouse/internal/app/store/students"
	"github.com/dalemusser/clubhouse/internal/app/system/metrics"
	"github.com/dalemusser/clubhouse/internal/app/system/pairlock"
	"github.com/dalemusser/clubhouse/internal/app/system/ratelimit"
	"github.com/dalemusser/clubhouse/internal/app/system/timeouts"
	"github.com/dalemusser/clubhouse/internal/app/system/workers"
	"go.uber.org/zap"
)

// Services are the long-lived objects shared by the HTTP handlers and the
// background worker.
type Services struct {
	Metrics  *metrics.Metrics
	Members  *membershipstore.Store
	Clubs    *clubstore.Store
	Students *studentstore.Store
	Seeder   *seed.Seeder
	Worker   *workers.Reconcile // nil when reconcile_interval is 0
	Limiter  *ratelimit.Limiter // nil when write_rate_limit is 0
}

// running is set by Startup and torn down by Shutdown.
var running *Services

// Close stops the background goroutines owned by s.
func (s *Services) Close() {
	if s.Worker != nil {
		s.Worker.Stop()
	}
	if s.Limiter != nil {
		s.Limiter.Close()
	}
}

// NewServices wires the stores over deps. The CLI uses it directly.
func NewServices(appCfg AppConfig, deps DBDeps, logger *zap.Logger) *Services {
	m := metrics.New(func(ctx context.Context) metricsstore.Counts {
		ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
		defer cancel()
		return metricsstore.FetchCounts(ctx, deps.Store)
	})

	var locks pairlock.Locker = pairlock.NewStriped(pairlock.DefaultStripes)
	if deps.Redis != nil {
		locks = pairlock.NewRedis(deps.Redis, logger, pairlock.RedisOptions{TTL: appCfg.LockTTL})
	}

	members := membershipstore.New(deps.Store, locks, m, logger)
	clubs := clubstore.New(deps.Store, members)
	students := studentstore.New(deps.Store, members)

	s := &Services{
		Metrics:  m,
		Members:  members,
		Clubs:    clubs,
		Students: students,
		Seeder:   seed.New(clubs, students, members, nil, logger),
	}
	if appCfg.WriteRateLimit > 0 {
		s.Limiter = ratelimit.New(appCfg.WriteRateLimit, time.Minute)
	}
	if appCfg.ReconcileInterval > 0 {
		s.Worker = workers.NewReconcile(members, logger, appCfg.ReconcileInterval, appCfg.ReconcileRepair)
	}
	return s
}
