// internal/app/features/flashmsg/handler.go
package flashmsg

import (
	"net/http"

	"github.com/dalemusser/clubhouse/internal/app/features/apierr"
	"github.com/dalemusser/clubhouse/internal/app/system/flash"
	"github.com/go-chi/chi/v5"
)

// Handler serves GET /api/flash.
type Handler struct {
	Flash *flash.Manager
}

func NewHandler(fl *flash.Manager) *Handler {
	return &Handler{Flash: fl}
}

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Serve)
	return r
}

// Serve returns and clears the messages queued in the caller's session.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	msgs := h.Flash.Pop(w, r)
	apierr.OK(w, http.StatusOK, map[string]any{"messages": msgs})
}
