package metrics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	metricsstore "github.com/dalemusser/clubhouse/internal/app/store/metrics"
	"github.com/dalemusser/clubhouse/internal/app/system/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMembershipOp(t *testing.T) {
	m := metrics.New(nil)
	m.MembershipOp("create", "ok")
	m.MembershipOp("create", "ok")
	m.MembershipOp("create", "duplicate")

	n, err := testutil.GatherAndCount(m.Registry(), "clubhouse_membership_operations_total")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if n != 2 {
		t.Errorf("series = %d, want 2", n)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.MembershipOp("create", "ok")
	m.Reconciled("ok", map[string]int{"member_count": 1})
}

func TestHandler_ExportsCounts(t *testing.T) {
	m := metrics.New(func(context.Context) metricsstore.Counts {
		return metricsstore.Counts{Clubs: 3, Students: 5, Memberships: 7}
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{"clubhouse_clubs 3", "clubhouse_students 5", "clubhouse_memberships 7"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
