// internal/app/features/memberships/memberships.go
package memberships

import (
	"net/http"

	"github.com/dalemusser/clubhouse/internal/app/features/apierr"
	"github.com/dalemusser/clubhouse/internal/app/system/flash"
	"github.com/dalemusser/clubhouse/internal/app/system/inputval"
	"github.com/dalemusser/clubhouse/internal/app/system/normalize"
	"github.com/dalemusser/clubhouse/internal/app/system/timeouts"
	"github.com/dalemusser/clubhouse/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

type joinRequest struct {
	StudentID string `json:"student_id"`
	Role      string `json:"role"`
}

type roleRequest struct {
	Role string `json:"role"`
}

// ServeRoster handles GET /api/clubs/{clubID}/members.
func (h *Handler) ServeRoster(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "club roster")
	defer cancel()

	members, err := h.Members.ClubMembers(ctx, chi.URLParam(r, "clubID"))
	if err != nil {
		apierr.FromError(w, h.Log, "club roster", err)
		return
	}
	apierr.OK(w, http.StatusOK, map[string]any{"members": members, "count": len(members)})
}

// ServeStudentClubs handles GET /api/students/{studentID}/clubs.
func (h *Handler) ServeStudentClubs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "student clubs")
	defer cancel()

	clubs, err := h.Members.StudentClubs(ctx, chi.URLParam(r, "studentID"))
	if err != nil {
		apierr.FromError(w, h.Log, "student clubs", err)
		return
	}
	apierr.OK(w, http.StatusOK, map[string]any{"clubs": clubs, "count": len(clubs)})
}

// HandleJoin handles POST /api/clubs/{clubID}/members. The role defaults
// to Member.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := apierr.Decode(r, &req); err != nil {
		apierr.FromError(w, h.Log, "join club", err)
		return
	}
	studentID := normalize.Text(req.StudentID)
	if err := inputval.Required("student_id", studentID); err != nil {
		apierr.FromError(w, h.Log, "join club", err)
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		apierr.FromError(w, h.Log, "join club", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "join club")
	defer cancel()

	id, err := h.Members.Create(ctx, chi.URLParam(r, "clubID"), studentID, role)
	if err != nil {
		apierr.FromError(w, h.Log, "join club", err)
		return
	}
	h.Flash.Add(w, r, flash.Success, "Student joined the club.")
	apierr.OK(w, http.StatusCreated, map[string]any{
		"membership_id": id,
		"role":          role,
		"message":       "Student joined club",
	})
}

// HandleUpdateRole handles PUT /api/clubs/{clubID}/members/{studentID}.
func (h *Handler) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := apierr.Decode(r, &req); err != nil {
		apierr.FromError(w, h.Log, "update role", err)
		return
	}
	if err := inputval.Required("role", req.Role); err != nil {
		apierr.FromError(w, h.Log, "update role", err)
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		apierr.FromError(w, h.Log, "update role", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "update role")
	defer cancel()

	if err := h.Members.UpdateRole(ctx, chi.URLParam(r, "clubID"), chi.URLParam(r, "studentID"), role); err != nil {
		apierr.FromError(w, h.Log, "update role", err)
		return
	}
	apierr.OK(w, http.StatusOK, map[string]any{"role": role, "message": "Role updated"})
}

// HandleLeave handles DELETE /api/clubs/{clubID}/members/{studentID}.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "leave club")
	defer cancel()

	if err := h.Members.Remove(ctx, chi.URLParam(r, "clubID"), chi.URLParam(r, "studentID")); err != nil {
		apierr.FromError(w, h.Log, "leave club", err)
		return
	}
	h.Flash.Add(w, r, flash.Success, "Student left the club.")
	apierr.Message(w, "Student left club")
}
