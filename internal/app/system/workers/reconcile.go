// internal/app/system/workers/reconcile.go
package workers

import (
	"context"
	"sync"
	"time"

	membershipstore "github.com/dalemusser/clubhouse/internal/app/store/memberships"
	"github.com/dalemusser/clubhouse/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Reconciler is the part of the membership store the worker needs.
type Reconciler interface {
	Reconcile(ctx context.Context, repair bool) (membershipstore.ReconcileReport, error)
}

// Reconcile is a background worker that periodically checks (and
// optionally repairs) membership index drift.
type Reconcile struct {
	store    Reconciler
	log      *zap.Logger
	interval time.Duration
	repair   bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewReconcile creates a new reconciliation worker.
//
// Parameters:
//   - store: the membership store
//   - logger: zap logger for logging
//   - interval: how often to run (e.g., 1 hour)
//   - repair: rewrite drifted indexes instead of only reporting
func NewReconcile(store Reconciler, logger *zap.Logger, interval time.Duration, repair bool) *Reconcile {
	return &Reconcile{
		store:    store,
		log:      logger,
		interval: interval,
		repair:   repair,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background loop.
func (w *Reconcile) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("reconcile worker started",
		zap.Duration("interval", w.interval),
		zap.Bool("repair", w.repair))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *Reconcile) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("reconcile worker stopped")
}

func (w *Reconcile) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.once()
		}
	}
}

func (w *Reconcile) once() {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Batch())
	defer cancel()

	// Stop should not wait out a full reconciliation.
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	rep, err := w.store.Reconcile(ctx, w.repair)
	if err != nil {
		w.log.Error("reconcile failed", zap.Error(err))
		return
	}
	if !rep.Clean() {
		w.log.Warn("reconcile found drift",
			zap.Int("problems", len(rep.Problems)),
			zap.Int("repaired", rep.Repaired))
	}
}
