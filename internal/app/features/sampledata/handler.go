// internal/app/features/sampledata/handler.go
package sampledata

import (
	"fmt"
	"net/http"

	"github.com/dalemusser/clubhouse/internal/app/features/apierr"
	"github.com/dalemusser/clubhouse/internal/app/store/seed"
	"github.com/dalemusser/clubhouse/internal/app/system/flash"
	"github.com/dalemusser/clubhouse/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves POST /api/sample-data.
type Handler struct {
	Seeder  *seed.Seeder
	Enabled bool
	Flash   *flash.Manager
	Log     *zap.Logger
}

// NewHandler builds the handler. When enabled is false every request is
// answered with 404.
func NewHandler(s *seed.Seeder, enabled bool, fl *flash.Manager, logger *zap.Logger) *Handler {
	return &Handler{Seeder: s, Enabled: enabled, Flash: fl, Log: logger}
}

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleCreate)
	return r
}

// HandleCreate loads the demonstration data set.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if !h.Enabled {
		apierr.Fail(w, http.StatusNotFound, "sample data is disabled")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "sample data")
	defer cancel()

	res, err := h.Seeder.Run(ctx)
	if err != nil {
		apierr.FromError(w, h.Log, "sample data", err)
		return
	}
	msg := fmt.Sprintf("Sample data created: %d students, %d clubs", res.StudentsCreated, res.ClubsCreated)
	h.Flash.Add(w, r, flash.Success, msg)
	apierr.OK(w, http.StatusOK, map[string]any{
		"message":             msg,
		"students_created":    res.StudentsCreated,
		"clubs_created":       res.ClubsCreated,
		"memberships_created": res.MembershipsCreated,
	})
}
