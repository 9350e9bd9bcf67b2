// internal/app/features/students/routes.go
package students

import "github.com/go-chi/chi/v5"

// Routes mounts the student endpoints. /{studentID}/clubs is mounted by
// the memberships feature.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Post("/import", h.HandleImport)
	r.Get("/{studentID}", h.ServeGet)
	r.Put("/{studentID}", h.HandleUpdate)
	r.Delete("/{studentID}", h.HandleDelete)
	return r
}
