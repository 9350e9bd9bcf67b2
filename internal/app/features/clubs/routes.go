// internal/app/features/clubs/routes.go
package clubs

import "github.com/go-chi/chi/v5"

// Routes mounts the club endpoints. Membership routes under
// /{clubID}/members are mounted by the memberships feature.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// List / search
	r.Get("/", h.ServeList)
	// Create
	r.Post("/", h.HandleCreate)

	r.Get("/{clubID}", h.ServeGet)
	r.Put("/{clubID}", h.HandleUpdate)
	r.Delete("/{clubID}", h.HandleDelete)

	return r
}
