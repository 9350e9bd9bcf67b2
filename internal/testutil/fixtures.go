package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/clubhouse/internal/app/store/docstore"
	"github.com/dalemusser/clubhouse/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	return WithChiURLParams(r, key, value)
}

// WithChiURLParams adds several key/value URL parameters at once.
func WithChiURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data directly in a
// document store, bypassing validation.
type Fixtures struct {
	ds docstore.Store
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given store.
func NewFixtures(t *testing.T, ds docstore.Store) *Fixtures {
	t.Helper()
	return &Fixtures{ds: ds, t: t}
}

// Store returns the underlying store for direct access in tests.
func (f *Fixtures) Store() docstore.Store {
	return f.ds
}

// CreateClub creates a test club with the given name.
func (f *Fixtures) CreateClub(ctx context.Context, name string) models.Club {
	f.t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	desc := "Test club " + name
	club := models.Club{
		ID:            uuid.NewString(),
		Name:          name,
		NameCI:        text.Fold(name),
		Description:   desc,
		DescriptionCI: text.Fold(desc),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := f.ds.InsertClub(ctx, club); err != nil {
		f.t.Fatalf("failed to create test club: %v", err)
	}
	return club
}

// CreateStudent creates a test student. An empty email is derived from name.
func (f *Fixtures) CreateStudent(ctx context.Context, name, email string) models.Student {
	f.t.Helper()

	if email == "" {
		email = strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@test.edu"
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	st := models.Student{
		ID:        uuid.NewString(),
		Name:      name,
		NameCI:    text.Fold(name),
		Email:     email,
		EmailCI:   strings.ToLower(strings.TrimSpace(email)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.ds.InsertStudent(ctx, st); err != nil {
		f.t.Fatalf("failed to create test student: %v", err)
	}
	return st
}
