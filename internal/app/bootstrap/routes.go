// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	clubsfeature "github.com/dalemusser/clubhouse/internal/app/features/clubs"
	flashfeature "github.com/dalemusser/clubhouse/internal/app/features/flashmsg"
	healthfeature "github.com/dalemusser/clubhouse/internal/app/features/health"
	membershipsfeature "github.com/dalemusser/clubhouse/internal/app/features/memberships"
	sampledatafeature "github.com/dalemusser/clubhouse/internal/app/features/sampledata"
	studentsfeature "github.com/dalemusser/clubhouse/internal/app/features/students"
	"github.com/dalemusser/clubhouse/internal/app/system/flash"
	"github.com/dalemusser/clubhouse/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for Clubhouse.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. It creates the flash session manager
// and mounts every feature router under /api, plus /health and /metrics.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if running == nil {
		running = NewServices(appCfg, deps, logger)
	}
	svc := running

	// Secure cookies are enabled in production mode.
	fl, err := flash.New(flash.Options{
		SessionKey: appCfg.SessionKey,
		Name:       appCfg.SessionName,
		Domain:     appCfg.SessionDomain,
		Secure:     coreCfg.Env == "prod",
	}, logger)
	if err != nil {
		logger.Error("flash session init failed", zap.Error(err))
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if appCfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.Store, appCfg.Backend, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Prometheus scrape endpoint
	r.Handle("/metrics", svc.Metrics.Handler())

	api := r.With()
	if svc.Limiter != nil {
		api = r.With(ratelimit.Writes(svc.Limiter, logger))
	}

	membersHandler := membershipsfeature.NewHandler(svc.Members, fl, logger)

	// Clubs, with the roster and join/leave under /{clubID}/members
	clubsHandler := clubsfeature.NewHandler(svc.Clubs, fl, logger)
	clubsRouter := clubsfeature.Routes(clubsHandler)
	clubsRouter.Mount("/{clubID}/members", membershipsfeature.ClubRoutes(membersHandler))
	api.Mount("/api/clubs", clubsRouter)

	// Students, with their club list under /{studentID}/clubs
	studentsHandler := studentsfeature.NewHandler(svc.Students, fl, logger)
	studentsRouter := studentsfeature.Routes(studentsHandler)
	studentsRouter.Mount("/{studentID}/clubs", membershipsfeature.StudentRoutes(membersHandler))
	api.Mount("/api/students", studentsRouter)

	// Demo data
	sampleHandler := sampledatafeature.NewHandler(svc.Seeder, appCfg.EnableSampleData, fl, logger)
	api.Mount("/api/sample-data", sampledatafeature.Routes(sampleHandler))

	// Flash messages queued by the handlers above
	flashHandler := flashfeature.NewHandler(fl)
	api.Mount("/api/flash", flashfeature.Routes(flashHandler))

	return r, nil
}
