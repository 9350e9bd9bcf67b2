// internal/app/features/clubs/clubs.go
package clubs

import (
	"fmt"
	"net/http"

	"github.com/dalemusser/clubhouse/internal/app/features/apierr"
	clubstore "github.com/dalemusser/clubhouse/internal/app/store/clubs"
	"github.com/dalemusser/clubhouse/internal/app/system/flash"
	"github.com/dalemusser/clubhouse/internal/app/system/normalize"
	"github.com/dalemusser/clubhouse/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ServeList handles GET /api/clubs?search=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list clubs")
	defer cancel()

	q := normalize.QueryParam(r.URL.Query().Get("search"))
	clubs, err := h.Clubs.Search(ctx, q)
	if err != nil {
		apierr.FromError(w, h.Log, "list clubs", err)
		return
	}
	apierr.OK(w, http.StatusOK, map[string]any{"clubs": clubs, "count": len(clubs)})
}

// ServeGet handles GET /api/clubs/{clubID}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get club")
	defer cancel()

	club, err := h.Clubs.Get(ctx, chi.URLParam(r, "clubID"))
	if err != nil {
		apierr.FromError(w, h.Log, "get club", err)
		return
	}
	apierr.OK(w, http.StatusOK, map[string]any{"club": club})
}

// HandleCreate handles POST /api/clubs.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in clubstore.Input
	if err := apierr.Decode(r, &in); err != nil {
		apierr.FromError(w, h.Log, "create club", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create club")
	defer cancel()

	club, err := h.Clubs.Create(ctx, in)
	if err != nil {
		apierr.FromError(w, h.Log, "create club", err)
		return
	}
	h.Log.Info("club created", zap.String("club_id", club.ID), zap.String("name", club.Name))
	h.Flash.Add(w, r, flash.Success, fmt.Sprintf("Club %q created.", club.Name))
	apierr.OK(w, http.StatusCreated, map[string]any{"club": club, "message": "Club created"})
}

// HandleUpdate handles PUT /api/clubs/{clubID}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in clubstore.Input
	if err := apierr.Decode(r, &in); err != nil {
		apierr.FromError(w, h.Log, "update club", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update club")
	defer cancel()

	club, err := h.Clubs.Update(ctx, chi.URLParam(r, "clubID"), in)
	if err != nil {
		apierr.FromError(w, h.Log, "update club", err)
		return
	}
	apierr.OK(w, http.StatusOK, map[string]any{"club": club, "message": "Club updated"})
}

// HandleDelete handles DELETE /api/clubs/{clubID}. Every membership of the
// club is removed with it.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	clubID := chi.URLParam(r, "clubID")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete club")
	defer cancel()

	removed, err := h.Clubs.Delete(ctx, clubID)
	if err != nil {
		apierr.FromError(w, h.Log, "delete club", err)
		return
	}
	h.Flash.Add(w, r, flash.Success, "Club deleted.")
	apierr.OK(w, http.StatusOK, map[string]any{
		"message":             "Club deleted",
		"memberships_removed": removed,
	})
}
