// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs after DB connections and schema setup are complete, but
// before the HTTP handler is built. It wires the stores and starts the
// reconcile worker when one is configured.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	running = NewServices(appCfg, deps, logger)
	if running.Worker != nil {
		running.Worker.Start()
	}
	logger.Info("clubhouse started",
		zap.String("env", coreCfg.Env),
		zap.String("backend", appCfg.Backend),
		zap.Bool("sample_data", appCfg.EnableSampleData))
	return nil
}
