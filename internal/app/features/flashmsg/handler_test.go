package flashmsg_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/clubhouse/internal/app/features/clubs"
	"github.com/dalemusser/clubhouse/internal/app/features/flashmsg"
	"github.com/dalemusser/clubhouse/internal/app/system/flash"
	"github.com/dalemusser/clubhouse/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type flashResponse struct {
	Success  bool            `json:"success"`
	Messages []flash.Message `json:"messages"`
}

func TestServe_AfterClubCreate(t *testing.T) {
	fl, err := flash.New(flash.Options{SessionKey: "flash-handler-test-secret"}, zap.NewNop())
	require.NoError(t, err)
	st := testutil.NewStack(t)
	ch := clubs.NewHandler(st.Clubs, fl, zap.NewNop())
	h := flashmsg.NewHandler(fl)

	rec := testutil.NewRecorder()
	ch.HandleCreate(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/clubs", map[string]string{"name": "Chess Club"}))
	rec.AssertStatus(t, http.StatusCreated)

	req := testutil.NewRequest(http.MethodGet, "/api/flash")
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	r := chi.NewRouter()
	r.Mount("/api/flash", flashmsg.Routes(h))
	rec2 := testutil.NewRecorder()
	r.ServeHTTP(rec2, req)

	rec2.AssertStatus(t, http.StatusOK)
	var resp flashResponse
	rec2.DecodeJSON(t, &resp)
	require.True(t, resp.Success)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, flash.Success, resp.Messages[0].Kind)
	assert.Contains(t, resp.Messages[0].Text, "Chess Club")
}

func TestServe_NoSession(t *testing.T) {
	h := flashmsg.NewHandler(nil)

	rec := testutil.NewRecorder()
	h.Serve(rec, testutil.NewRequest(http.MethodGet, "/api/flash"))

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"messages":[]`)
}

func TestServe_SecondPopIsEmpty(t *testing.T) {
	fl, err := flash.New(flash.Options{SessionKey: "flash-handler-test-secret"}, zap.NewNop())
	require.NoError(t, err)
	h := flashmsg.NewHandler(fl)

	rec := testutil.NewRecorder()
	fl.Add(rec, testutil.NewRequest(http.MethodPost, "/api/clubs"), flash.Success, "Club deleted.")

	req := testutil.NewRequest(http.MethodGet, "/")
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	rec2 := testutil.NewRecorder()
	flashmsg.Routes(h).ServeHTTP(rec2, req)
	rec2.AssertStatus(t, http.StatusOK)
	rec2.AssertContains(t, "Club deleted.")

	req3 := testutil.NewRequest(http.MethodGet, "/")
	for _, c := range rec2.Result().Cookies() {
		req3.AddCookie(c)
	}
	rec3 := testutil.NewRecorder()
	flashmsg.Routes(h).ServeHTTP(rec3, req3)
	rec3.AssertStatus(t, http.StatusOK)
	rec3.AssertContains(t, `"messages":[]`)
}
