package memberships_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/dalemusser/clubhouse/internal/app/features/memberships"
	"github.com/dalemusser/clubhouse/internal/domain/models"
	"github.com/dalemusser/clubhouse/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type rosterResponse struct {
	Success bool                `json:"success"`
	Members []models.ClubMember `json:"members"`
	Count   int                 `json:"count"`
}

type studentClubsResponse struct {
	Success bool                 `json:"success"`
	Clubs   []models.StudentClub `json:"clubs"`
	Count   int                  `json:"count"`
}

// newRouter mounts the membership routes the same way the application does.
func newRouter(t *testing.T) (chi.Router, *testutil.Stack) {
	t.Helper()
	st := testutil.NewStack(t)
	h := memberships.NewHandler(st.Members, nil, zap.NewNop())
	r := chi.NewRouter()
	r.Mount("/api/clubs/{clubID}/members", memberships.ClubRoutes(h))
	r.Mount("/api/students/{studentID}/clubs", memberships.StudentRoutes(h))
	return r, st
}

func serve(t *testing.T, r chi.Router, req *http.Request) *testutil.ResponseRecorder {
	t.Helper()
	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJoinRosterAndStudentClubs(t *testing.T) {
	r, st := newRouter(t)
	ctx := context.Background()
	chess := st.Fixtures.CreateClub(ctx, "Chess Club")
	alice := st.Fixtures.CreateStudent(ctx, "Alice Smith", "alice@example.edu")
	bob := st.Fixtures.CreateStudent(ctx, "Bob Jones", "bob@example.edu")

	rec := serve(t, r, testutil.NewJSONRequest(t, http.MethodPost, "/api/clubs/"+chess.ID+"/members",
		map[string]string{"student_id": alice.ID, "role": "president"}))
	rec.AssertStatus(t, http.StatusCreated)
	rec.AssertContains(t, `"role":"President"`)

	rec = serve(t, r, testutil.NewJSONRequest(t, http.MethodPost, "/api/clubs/"+chess.ID+"/members",
		map[string]string{"student_id": bob.ID}))
	rec.AssertStatus(t, http.StatusCreated)
	rec.AssertContains(t, `"role":"Member"`)

	rec = serve(t, r, testutil.NewRequest(http.MethodGet, "/api/clubs/"+chess.ID+"/members"))
	rec.AssertStatus(t, http.StatusOK)
	var roster rosterResponse
	rec.DecodeJSON(t, &roster)
	require.Equal(t, 2, roster.Count)
	byID := map[string]models.ClubMember{}
	for _, m := range roster.Members {
		byID[m.ID] = m
	}
	assert.Equal(t, "Alice Smith", byID[alice.ID].Name)
	assert.Equal(t, models.RolePresident, byID[alice.ID].Role)
	assert.Equal(t, "bob@example.edu", byID[bob.ID].Email)
	assert.Equal(t, models.RoleMember, byID[bob.ID].Role)

	rec = serve(t, r, testutil.NewRequest(http.MethodGet, "/api/students/"+alice.ID+"/clubs"))
	rec.AssertStatus(t, http.StatusOK)
	var clubs studentClubsResponse
	rec.DecodeJSON(t, &clubs)
	require.Equal(t, 1, clubs.Count)
	assert.Equal(t, "Chess Club", clubs.Clubs[0].Name)
	assert.Equal(t, 2, clubs.Clubs[0].MemberCount)
}

func TestJoin_Errors(t *testing.T) {
	r, st := newRouter(t)
	ctx := context.Background()
	chess := st.Fixtures.CreateClub(ctx, "Chess Club")
	alice := st.Fixtures.CreateStudent(ctx, "Alice Smith", "")
	_, err := st.Members.Create(ctx, chess.ID, alice.ID, models.RoleMember)
	require.NoError(t, err)

	tests := []struct {
		name   string
		clubID string
		body   map[string]string
		want   int
	}{
		{"duplicate", chess.ID, map[string]string{"student_id": alice.ID}, http.StatusConflict},
		{"invalid role", chess.ID, map[string]string{"student_id": alice.ID, "role": "Captain"}, http.StatusBadRequest},
		{"missing student id", chess.ID, map[string]string{}, http.StatusBadRequest},
		{"unknown student", chess.ID, map[string]string{"student_id": "ghost"}, http.StatusNotFound},
		{"unknown club", "ghost", map[string]string{"student_id": alice.ID}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, r, testutil.NewJSONRequest(t, http.MethodPost, "/api/clubs/"+tt.clubID+"/members", tt.body))
			rec.AssertStatus(t, tt.want)
			rec.AssertContains(t, `"success":false`)
		})
	}

	c, err := st.Clubs.Get(ctx, chess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.MemberCount)
}

func TestUpdateRole(t *testing.T) {
	r, st := newRouter(t)
	ctx := context.Background()
	chess := st.Fixtures.CreateClub(ctx, "Chess Club")
	alice := st.Fixtures.CreateStudent(ctx, "Alice Smith", "")
	_, err := st.Members.Create(ctx, chess.ID, alice.ID, models.RoleMember)
	require.NoError(t, err)

	target := "/api/clubs/" + chess.ID + "/members/" + alice.ID
	rec := serve(t, r, testutil.NewJSONRequest(t, http.MethodPut, target, map[string]string{"role": "Vice President"}))
	rec.AssertStatus(t, http.StatusOK)

	roster, err := st.Members.ListClubRoster(ctx, chess.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, models.RoleVicePresident, roster[0].Role)

	rec = serve(t, r, testutil.NewJSONRequest(t, http.MethodPut, target, map[string]string{"role": ""}))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = serve(t, r, testutil.NewJSONRequest(t, http.MethodPut, "/api/clubs/"+chess.ID+"/members/ghost",
		map[string]string{"role": "Officer"}))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestLeave(t *testing.T) {
	r, st := newRouter(t)
	ctx := context.Background()
	chess := st.Fixtures.CreateClub(ctx, "Chess Club")
	alice := st.Fixtures.CreateStudent(ctx, "Alice Smith", "")
	_, err := st.Members.Create(ctx, chess.ID, alice.ID, models.RoleMember)
	require.NoError(t, err)

	target := "/api/clubs/" + chess.ID + "/members/" + alice.ID
	rec := serve(t, r, testutil.NewRequest(http.MethodDelete, target))
	rec.AssertStatus(t, http.StatusOK)

	c, err := st.Clubs.Get(ctx, chess.ID)
	require.NoError(t, err)
	assert.Zero(t, c.MemberCount)

	rec = serve(t, r, testutil.NewRequest(http.MethodDelete, target))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestConcurrentJoinSamePair(t *testing.T) {
	r, st := newRouter(t)
	ctx := context.Background()
	chess := st.Fixtures.CreateClub(ctx, "Chess Club")
	alice := st.Fixtures.CreateStudent(ctx, "Alice Smith", "")

	const n = 8
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := testutil.NewRecorder()
			r.ServeHTTP(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/clubs/"+chess.ID+"/members",
				map[string]string{"student_id": alice.ID}))
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	created := 0
	for _, c := range codes {
		switch c {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
		default:
			t.Errorf("unexpected status %d", c)
		}
	}
	assert.Equal(t, 1, created)

	c, err := st.Clubs.Get(ctx, chess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.MemberCount)
}
