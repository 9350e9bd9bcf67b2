package students_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/dalemusser/clubhouse/internal/app/features/students"
	"github.com/dalemusser/clubhouse/internal/domain/models"
	"github.com/dalemusser/clubhouse/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type studentResponse struct {
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Student models.Student `json:"student"`
}

type listResponse struct {
	Success  bool             `json:"success"`
	Students []models.Student `json:"students"`
	Count    int              `json:"count"`
}

func newHandler(t *testing.T) (*students.Handler, *testutil.Stack) {
	t.Helper()
	st := testutil.NewStack(t)
	return students.NewHandler(st.Students, nil, zap.NewNop()), st
}

func TestHandleCreate(t *testing.T) {
	h, _ := newHandler(t)

	rec := testutil.NewRecorder()
	h.HandleCreate(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/students", map[string]string{
		"name":  "Alice Smith",
		"email": "Alice.Smith@Example.edu",
		"major": "Physics",
	}))

	rec.AssertStatus(t, http.StatusCreated)
	var resp studentResponse
	rec.DecodeJSON(t, &resp)
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "Alice Smith", resp.Student.Name)
	assert.Equal(t, "Alice.Smith@Example.edu", resp.Student.Email)
	assert.Equal(t, "Physics", resp.Student.Major)
	assert.NotEmpty(t, resp.Student.ID)
}

func TestHandleCreate_Errors(t *testing.T) {
	h, st := newHandler(t)
	st.Fixtures.CreateStudent(context.Background(), "Alice Smith", "alice@example.edu")

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"bad email", map[string]string{"name": "Bob", "email": "not-an-email"}, http.StatusBadRequest},
		{"missing name", map[string]string{"email": "bob@example.edu"}, http.StatusBadRequest},
		{"duplicate email", map[string]string{"name": "Other Alice", "email": "ALICE@example.edu"}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.HandleCreate(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/students", tt.body))
			rec.AssertStatus(t, tt.want)
			rec.AssertContains(t, `"success":false`)
		})
	}
}

func TestServeList(t *testing.T) {
	h, st := newHandler(t)
	ctx := context.Background()
	st.Fixtures.CreateStudent(ctx, "Bob Jones", "bob@example.edu")
	st.Fixtures.CreateStudent(ctx, "Alice Smith", "alice@example.edu")

	rec := testutil.NewRecorder()
	h.ServeList(rec, testutil.NewRequest(http.MethodGet, "/api/students"))
	rec.AssertStatus(t, http.StatusOK)
	var all listResponse
	rec.DecodeJSON(t, &all)
	require.Len(t, all.Students, 2)
	assert.Equal(t, "Alice Smith", all.Students[0].Name)

	rec = testutil.NewRecorder()
	h.ServeList(rec, testutil.NewRequest(http.MethodGet, "/api/students?email=BOB@example.edu"))
	rec.AssertStatus(t, http.StatusOK)
	var one listResponse
	rec.DecodeJSON(t, &one)
	require.Len(t, one.Students, 1)
	assert.Equal(t, "Bob Jones", one.Students[0].Name)

	rec = testutil.NewRecorder()
	h.ServeList(rec, testutil.NewRequest(http.MethodGet, "/api/students?email=nobody@example.edu"))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestHandleUpdate(t *testing.T) {
	h, st := newHandler(t)
	alice := st.Fixtures.CreateStudent(context.Background(), "Alice Smith", "alice@example.edu")

	req := testutil.NewJSONRequest(t, http.MethodPut, "/", map[string]string{
		"name":  "Alice Smith-Jones",
		"email": "alice@example.edu",
	})
	rec := testutil.NewRecorder()
	h.HandleUpdate(rec, testutil.WithChiURLParam(req, "studentID", alice.ID))

	rec.AssertStatus(t, http.StatusOK)
	var resp studentResponse
	rec.DecodeJSON(t, &resp)
	assert.Equal(t, "Alice Smith-Jones", resp.Student.Name)
	assert.Equal(t, alice.ID, resp.Student.ID)
}

func TestHandleDelete_Cascades(t *testing.T) {
	h, st := newHandler(t)
	ctx := context.Background()
	alice := st.Fixtures.CreateStudent(ctx, "Alice Smith", "")
	chess := st.Fixtures.CreateClub(ctx, "Chess Club")
	drama := st.Fixtures.CreateClub(ctx, "Drama")
	for _, c := range []models.Club{chess, drama} {
		_, err := st.Members.Create(ctx, c.ID, alice.ID, models.RoleMember)
		require.NoError(t, err)
	}

	req := testutil.WithChiURLParam(testutil.NewRequest(http.MethodDelete, "/"), "studentID", alice.ID)
	rec := testutil.NewRecorder()
	h.HandleDelete(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"memberships_removed":2`)

	for _, c := range []models.Club{chess, drama} {
		got, err := st.Clubs.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Zero(t, got.MemberCount, c.Name)
		roster, err := st.Members.ListClubRoster(ctx, c.ID)
		require.NoError(t, err)
		assert.Empty(t, roster, c.Name)
	}
}

func TestRoutes_GetNotFound(t *testing.T) {
	h, _ := newHandler(t)

	rec := testutil.NewRecorder()
	students.Routes(h).ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/nope"))
	rec.AssertStatus(t, http.StatusNotFound)
	rec.AssertContains(t, `"success":false`)
}

func TestHandleImport(t *testing.T) {
	h, st := newHandler(t)
	ctx := context.Background()
	st.Fixtures.CreateStudent(ctx, "Alice Johnson", "alice@example.edu")

	body := "Name,Email,Student Number,Major\nAlice Johnson,ALICE@example.edu,,\nBob Smith,bob@example.edu,S2,History\n"
	rec := testutil.NewRecorder()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/students/import", body)
	req.Header.Set("Content-Type", "text/csv")
	h.HandleImport(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	var resp struct {
		Success bool `json:"success"`
		Created int  `json:"created"`
		Skipped int  `json:"skipped"`
	}
	rec.DecodeJSON(t, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Created)
	assert.Equal(t, 1, resp.Skipped)

	bob, err := st.Students.GetByEmail(ctx, "bob@example.edu")
	require.NoError(t, err)
	assert.Equal(t, "History", bob.Major)
}

func TestHandleImport_InvalidRowsWriteNothing(t *testing.T) {
	h, st := newHandler(t)

	rec := testutil.NewRecorder()
	h.HandleImport(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/students/import",
		"Cara,cara@example.edu\nDan,not-an-email\n"))

	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, `"line":2`)

	all, err := st.Students.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}
