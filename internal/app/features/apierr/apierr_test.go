package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/clubhouse/internal/app/store/docstore"
	membershipstore "github.com/dalemusser/clubhouse/internal/app/store/memberships"
	studentstore "github.com/dalemusser/clubhouse/internal/app/store/students"
	"github.com/dalemusser/clubhouse/internal/app/system/inputval"
	"github.com/dalemusser/clubhouse/internal/domain/models"
	"go.uber.org/zap"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", &docstore.NotFoundError{Kind: "club", ID: "c1"}, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("get: %w", docstore.ErrNotFound), http.StatusNotFound},
		{"duplicate membership", membershipstore.ErrDuplicateMembership, http.StatusConflict},
		{"duplicate email", studentstore.ErrDuplicateEmail, http.StatusConflict},
		{"invalid role", models.ErrInvalidRole, http.StatusBadRequest},
		{"validation", inputval.Invalid("name", "is required"), http.StatusBadRequest},
		{"unavailable", fmt.Errorf("ping: %w", docstore.ErrUnavailable), http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Status(tt.err); got != tt.want {
				t.Errorf("Status(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestFromError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	FromError(rec, zap.NewNop(), "op", errors.New("secret connection string"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Success || env.Error != "internal error" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestFromError_ClientErrorKeepsMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	FromError(rec, zap.NewNop(), "op", membershipstore.ErrDuplicateMembership)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "already a member") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestOK_MergesPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, http.StatusCreated, map[string]any{"id": "abc"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["success"] != true || body["id"] != "abc" {
		t.Errorf("body = %v", body)
	}
}

func TestDecode(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	if err := Decode(r, &v); err != nil || v.Name != "x" {
		t.Fatalf("Decode = %v, %+v", err, v)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	err := Decode(r, &v)
	var ve *inputval.Error
	if !errors.As(err, &ve) {
		t.Fatalf("expected *inputval.Error, got %v", err)
	}
}
