package metricsstore

import (
	"context"

	"github.com/dalemusser/clubhouse/internal/app/store/docstore"
)

// Counts is the set of totals exported as gauges on /metrics.
type Counts struct {
	Clubs       int64 `json:"clubs"`
	Students    int64 `json:"students"`
	Memberships int64 `json:"memberships"` // sum of clubs.member_count
}

// FetchCounts returns the high-level totals.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchCounts(ctx context.Context, r docstore.Reader) Counts {
	var out Counts

	if clubs, err := r.ListClubs(ctx); err == nil {
		out.Clubs = int64(len(clubs))
		for _, c := range clubs {
			out.Memberships += int64(c.MemberCount)
		}
	}

	if students, err := r.ListStudents(ctx); err == nil {
		out.Students = int64(len(students))
	}

	return out
}
