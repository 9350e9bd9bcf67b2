package membershipstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dalemusser/clubhouse/internal/app/store/docstore"
	"github.com/dalemusser/clubhouse/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Drift kinds reported by Reconcile.
const (
	DriftMissingClubEntry    = "missing_club_entry"
	DriftMissingStudentEntry = "missing_student_entry"
	DriftStaleClubEntry      = "stale_club_entry"
	DriftStaleStudentEntry   = "stale_student_entry"
	DriftEntryMismatch       = "entry_mismatch"
	DriftMemberCount         = "member_count"
	DriftOrphanMembership    = "orphan_membership"
)

// DriftKinds lists every kind, for metrics.
var DriftKinds = []string{
	DriftMissingClubEntry,
	DriftMissingStudentEntry,
	DriftStaleClubEntry,
	DriftStaleStudentEntry,
	DriftEntryMismatch,
	DriftMemberCount,
	DriftOrphanMembership,
}

// reconcileParallelism bounds concurrent per-entity checks.
const reconcileParallelism = 8

// Problem is one inconsistency between the canonical memberships and the
// derived data.
type Problem struct {
	Kind      string `json:"kind"`
	ClubID    string `json:"club_id,omitempty"`
	StudentID string `json:"student_id,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// ReconcileReport summarizes a Reconcile run.
type ReconcileReport struct {
	ClubsChecked    int       `json:"clubs_checked"`
	StudentsChecked int       `json:"students_checked"`
	Problems        []Problem `json:"problems"`
	Repaired        int       `json:"repaired"` // entities rewritten
}

// Clean reports whether no drift was found.
func (r ReconcileReport) Clean() bool { return len(r.Problems) == 0 }

// ByKind counts problems per kind, including zero counts.
func (r ReconcileReport) ByKind() map[string]int {
	out := make(map[string]int, len(DriftKinds))
	for _, k := range DriftKinds {
		out[k] = 0
	}
	for _, p := range r.Problems {
		out[p.Kind]++
	}
	return out
}

// Reconcile compares the canonical memberships against both index
// collections and member_count. With repair set, each drifted club and
// student is rewritten from its memberships in its own unit of work;
// memberships whose club or student no longer exists are deleted.
func (s *Store) Reconcile(ctx context.Context, repair bool) (ReconcileReport, error) {
	var rep ReconcileReport

	clubs, err := s.ds.ListClubs(ctx)
	if err != nil {
		return rep, err
	}
	students, err := s.ds.ListStudents(ctx)
	if err != nil {
		return rep, err
	}
	rep.ClubsChecked = len(clubs)
	rep.StudentsChecked = len(students)

	var mu sync.Mutex
	record := func(ps []Problem, fixed bool) {
		mu.Lock()
		defer mu.Unlock()
		rep.Problems = append(rep.Problems, ps...)
		if fixed {
			rep.Repaired++
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileParallelism)

	for _, c := range clubs {
		clubID := c.ID
		g.Go(func() error {
			ps, err := s.checkClub(gctx, s.ds, clubID)
			if err != nil || len(ps) == 0 {
				return err
			}
			if repair {
				if err := s.ds.RunInTx(gctx, func(ctx context.Context, tx docstore.Tx) error {
					return repairClub(ctx, tx, clubID)
				}); err != nil {
					return fmt.Errorf("repair club %s: %w", clubID, err)
				}
			}
			record(ps, repair)
			return nil
		})
	}
	for _, st := range students {
		studentID := st.ID
		g.Go(func() error {
			ps, err := s.checkStudent(gctx, s.ds, studentID)
			if err != nil || len(ps) == 0 {
				return err
			}
			if repair {
				if err := s.ds.RunInTx(gctx, func(ctx context.Context, tx docstore.Tx) error {
					return repairStudent(ctx, tx, studentID)
				}); err != nil {
					return fmt.Errorf("repair student %s: %w", studentID, err)
				}
			}
			record(ps, repair)
			return nil
		})
	}

	err = g.Wait()

	sort.Slice(rep.Problems, func(i, j int) bool {
		a, b := rep.Problems[i], rep.Problems[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.ClubID != b.ClubID {
			return a.ClubID < b.ClubID
		}
		return a.StudentID < b.StudentID
	})

	res := "ok"
	if err != nil {
		res = "error"
	}
	s.metrics.Reconciled(res, rep.ByKind())
	if err != nil {
		return rep, err
	}

	if rep.Clean() {
		s.log.Info("reconcile: no drift",
			zap.Int("clubs", rep.ClubsChecked),
			zap.Int("students", rep.StudentsChecked))
	} else {
		s.log.Warn("reconcile: drift found",
			zap.Int("problems", len(rep.Problems)),
			zap.Bool("repair", repair),
			zap.Int("repaired", rep.Repaired))
	}
	return rep, nil
}

// checkClub compares the club's memberships with its index document and
// member_count.
func (s *Store) checkClub(ctx context.Context, r docstore.Reader, clubID string) ([]Problem, error) {
	club, err := r.GetClub(ctx, clubID)
	if err != nil {
		return nil, err
	}
	ms, err := r.ListMembershipsByClub(ctx, clubID)
	if err != nil {
		return nil, err
	}
	doc, err := r.ClubMembers(ctx, clubID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(ms))
	for i, m := range ms {
		ids[i] = m.StudentID
	}
	live, err := r.GetStudents(ctx, ids)
	if err != nil {
		return nil, err
	}

	var ps []Problem
	want := map[string]models.IndexEntry{}
	for _, m := range ms {
		if _, ok := live[m.StudentID]; !ok {
			ps = append(ps, Problem{Kind: DriftOrphanMembership, ClubID: clubID, StudentID: m.StudentID, Detail: "student missing"})
			continue
		}
		want[m.StudentID] = m.Entry()
	}
	ps = append(ps, diffEntries(want, doc.Members,
		func(key string) Problem { return Problem{Kind: DriftMissingClubEntry, ClubID: clubID, StudentID: key} },
		func(key string) Problem { return Problem{Kind: DriftStaleClubEntry, ClubID: clubID, StudentID: key} },
		func(key string) Problem { return Problem{Kind: DriftEntryMismatch, ClubID: clubID, StudentID: key} },
	)...)
	if club.MemberCount != len(want) {
		ps = append(ps, Problem{
			Kind:   DriftMemberCount,
			ClubID: clubID,
			Detail: fmt.Sprintf("member_count=%d memberships=%d", club.MemberCount, len(want)),
		})
	}
	return ps, nil
}

func (s *Store) checkStudent(ctx context.Context, r docstore.Reader, studentID string) ([]Problem, error) {
	ms, err := r.ListMembershipsByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	doc, err := r.StudentMemberships(ctx, studentID)
	if err != nil {
		return nil, err
	}

	var ps []Problem
	want := map[string]models.IndexEntry{}
	for _, m := range ms {
		if _, err := r.GetClub(ctx, m.ClubID); errors.Is(err, docstore.ErrNotFound) {
			ps = append(ps, Problem{Kind: DriftOrphanMembership, ClubID: m.ClubID, StudentID: studentID, Detail: "club missing"})
			continue
		} else if err != nil {
			return nil, err
		}
		want[m.ClubID] = m.Entry()
	}
	ps = append(ps, diffEntries(want, doc.Clubs,
		func(key string) Problem { return Problem{Kind: DriftMissingStudentEntry, ClubID: key, StudentID: studentID} },
		func(key string) Problem { return Problem{Kind: DriftStaleStudentEntry, ClubID: key, StudentID: studentID} },
		func(key string) Problem { return Problem{Kind: DriftEntryMismatch, ClubID: key, StudentID: studentID} },
	)...)
	return ps, nil
}

func diffEntries(want, have map[string]models.IndexEntry, missing, stale, mismatch func(string) Problem) []Problem {
	var ps []Problem
	for k, w := range want {
		h, ok := have[k]
		switch {
		case !ok:
			ps = append(ps, missing(k))
		case !sameEntry(w, h):
			ps = append(ps, mismatch(k))
		}
	}
	for k := range have {
		if _, ok := want[k]; !ok {
			ps = append(ps, stale(k))
		}
	}
	return ps
}

func sameEntry(a, b models.IndexEntry) bool {
	return a.MembershipID == b.MembershipID && a.Role == b.Role && a.JoinDate.Equal(b.JoinDate)
}

// repairClub rewrites the club's index document and member_count from its
// memberships. Memberships of deleted students are removed.
func repairClub(ctx context.Context, tx docstore.Tx, clubID string) error {
	ms, err := tx.ListMembershipsByClub(ctx, clubID)
	if err != nil {
		return err
	}
	doc, err := tx.ClubMembers(ctx, clubID)
	if err != nil {
		return err
	}
	ids := make([]string, len(ms))
	for i, m := range ms {
		ids[i] = m.StudentID
	}
	live, err := tx.GetStudents(ctx, ids)
	if err != nil {
		return err
	}

	want := map[string]models.IndexEntry{}
	for _, m := range ms {
		if _, ok := live[m.StudentID]; !ok {
			if err := tx.DeleteMembership(ctx, m.ID); err != nil {
				return err
			}
			continue
		}
		want[m.StudentID] = m.Entry()
	}
	for sid, e := range want {
		if h, ok := doc.Members[sid]; !ok || !sameEntry(e, h) {
			if err := tx.PutClubMember(ctx, clubID, sid, e); err != nil {
				return err
			}
		}
	}
	for sid := range doc.Members {
		if _, ok := want[sid]; !ok {
			if err := tx.DeleteClubMember(ctx, clubID, sid); err != nil {
				return err
			}
		}
	}
	return tx.SetMemberCount(ctx, clubID, len(want))
}

// repairStudent rewrites the student's index document from their
// memberships. Memberships of deleted clubs are removed.
func repairStudent(ctx context.Context, tx docstore.Tx, studentID string) error {
	ms, err := tx.ListMembershipsByStudent(ctx, studentID)
	if err != nil {
		return err
	}
	doc, err := tx.StudentMemberships(ctx, studentID)
	if err != nil {
		return err
	}

	want := map[string]models.IndexEntry{}
	for _, m := range ms {
		if _, err := tx.GetClub(ctx, m.ClubID); errors.Is(err, docstore.ErrNotFound) {
			if err := tx.DeleteMembership(ctx, m.ID); err != nil {
				return err
			}
			continue
		} else if err != nil {
			return err
		}
		want[m.ClubID] = m.Entry()
	}
	for cid, e := range want {
		if h, ok := doc.Clubs[cid]; !ok || !sameEntry(e, h) {
			if err := tx.PutStudentClub(ctx, studentID, cid, e); err != nil {
				return err
			}
		}
	}
	for cid := range doc.Clubs {
		if _, ok := want[cid]; !ok {
			if err := tx.DeleteStudentClub(ctx, studentID, cid); err != nil {
				return err
			}
		}
	}
	return nil
}
