// internal/app/features/memberships/routes.go
package memberships

import "github.com/go-chi/chi/v5"

// ClubRoutes is mounted at /api/clubs/{clubID}/members.
func ClubRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// Roster with student details
	r.Get("/", h.ServeRoster)
	// Join
	r.Post("/", h.HandleJoin)

	// Change role / leave
	r.Put("/{studentID}", h.HandleUpdateRole)
	r.Delete("/{studentID}", h.HandleLeave)

	return r
}

// StudentRoutes is mounted at /api/students/{studentID}/clubs.
func StudentRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeStudentClubs)
	return r
}
