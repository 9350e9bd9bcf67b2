package sampledata_test

import (
	"math/rand/v2"
	"net/http"
	"testing"

	"github.com/dalemusser/clubhouse/internal/app/features/sampledata"
	"github.com/dalemusser/clubhouse/internal/app/store/seed"
	"github.com/dalemusser/clubhouse/internal/testutil"
	"go.uber.org/zap"
)

func newHandler(t *testing.T, enabled bool) *sampledata.Handler {
	t.Helper()
	st := testutil.NewStack(t)
	s := seed.New(st.Clubs, st.Students, st.Members, rand.New(rand.NewPCG(7, 7)), zap.NewNop())
	return sampledata.NewHandler(s, enabled, nil, zap.NewNop())
}

func TestHandleCreate(t *testing.T) {
	h := newHandler(t, true)

	rec := testutil.NewRecorder()
	sampledata.Routes(h).ServeHTTP(rec, testutil.NewRequest(http.MethodPost, "/"))

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"students_created":6`)
	rec.AssertContains(t, `"clubs_created":6`)
	rec.AssertContains(t, "Sample data created: 6 students, 6 clubs")
}

func TestHandleCreate_Disabled(t *testing.T) {
	h := newHandler(t, false)

	rec := testutil.NewRecorder()
	h.HandleCreate(rec, testutil.NewRequest(http.MethodPost, "/api/sample-data"))

	rec.AssertStatus(t, http.StatusNotFound)
	rec.AssertContains(t, `"success":false`)
}
