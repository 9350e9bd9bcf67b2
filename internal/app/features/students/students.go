// internal/app/features/students/students.go
package students

import (
	"fmt"
	"net/http"

	"github.com/dalemusser/clubhouse/internal/app/features/apierr"
	studentstore "github.com/dalemusser/clubhouse/internal/app/store/students"
	"github.com/dalemusser/clubhouse/internal/app/system/flash"
	"github.com/dalemusser/clubhouse/internal/app/system/normalize"
	"github.com/dalemusser/clubhouse/internal/app/system/timeouts"
	"github.com/dalemusser/clubhouse/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ServeList handles GET /api/students. With ?email= it returns the single
// matching student (or 404).
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list students")
	defer cancel()

	if email := normalize.QueryParam(r.URL.Query().Get("email")); email != "" {
		st, err := h.Students.GetByEmail(ctx, email)
		if err != nil {
			apierr.FromError(w, h.Log, "get student by email", err)
			return
		}
		apierr.OK(w, http.StatusOK, map[string]any{"students": []models.Student{st}, "count": 1})
		return
	}

	list, err := h.Students.List(ctx)
	if err != nil {
		apierr.FromError(w, h.Log, "list students", err)
		return
	}
	apierr.OK(w, http.StatusOK, map[string]any{"students": list, "count": len(list)})
}

// ServeGet handles GET /api/students/{studentID}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get student")
	defer cancel()

	st, err := h.Students.Get(ctx, chi.URLParam(r, "studentID"))
	if err != nil {
		apierr.FromError(w, h.Log, "get student", err)
		return
	}
	apierr.OK(w, http.StatusOK, map[string]any{"student": st})
}

// HandleCreate handles POST /api/students.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in studentstore.Input
	if err := apierr.Decode(r, &in); err != nil {
		apierr.FromError(w, h.Log, "create student", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create student")
	defer cancel()

	st, err := h.Students.Create(ctx, in)
	if err != nil {
		apierr.FromError(w, h.Log, "create student", err)
		return
	}
	h.Log.Info("student created", zap.String("student_id", st.ID))
	h.Flash.Add(w, r, flash.Success, fmt.Sprintf("Student %s added.", st.Name))
	apierr.OK(w, http.StatusCreated, map[string]any{"student": st, "message": "Student created"})
}

// HandleUpdate handles PUT /api/students/{studentID}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in studentstore.Input
	if err := apierr.Decode(r, &in); err != nil {
		apierr.FromError(w, h.Log, "update student", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update student")
	defer cancel()

	st, err := h.Students.Update(ctx, chi.URLParam(r, "studentID"), in)
	if err != nil {
		apierr.FromError(w, h.Log, "update student", err)
		return
	}
	apierr.OK(w, http.StatusOK, map[string]any{"student": st, "message": "Student updated"})
}

// HandleDelete handles DELETE /api/students/{studentID} and removes every
// membership the student holds.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete student")
	defer cancel()

	removed, err := h.Students.Delete(ctx, chi.URLParam(r, "studentID"))
	if err != nil {
		apierr.FromError(w, h.Log, "delete student", err)
		return
	}
	h.Flash.Add(w, r, flash.Success, "Student deleted.")
	apierr.OK(w, http.StatusOK, map[string]any{
		"message":             "Student deleted",
		"memberships_removed": removed,
	})
}
