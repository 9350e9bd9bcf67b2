package membershipstore

import (
	"context"
	"errors"

	"github.com/dalemusser/clubhouse/internal/app/store/docstore"
	"go.uber.org/zap"
)

// DeleteClubCascade removes every membership of the club, each as its own
// unit, then deletes the club and its index document. Memberships that
// appear between enumeration and the final delete are removed in the final
// unit. Returns how many memberships were removed.
func (s *Store) DeleteClubCascade(ctx context.Context, clubID string) (int, error) {
	if _, err := s.ds.GetClub(ctx, clubID); err != nil {
		return 0, err
	}

	students, err := s.clubStudentIDs(ctx, clubID)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, sid := range students {
		ok, err := s.purgePair(ctx, clubID, sid)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}

	late := 0
	err = s.ds.RunInTx(ctx, func(ctx context.Context, tx docstore.Tx) error {
		late = 0
		rest, err := tx.ListMembershipsByClub(ctx, clubID)
		if err != nil {
			return err
		}
		for _, m := range rest {
			if err := tx.DeleteMembership(ctx, m.ID); err != nil {
				return err
			}
			if err := tx.DeleteStudentClub(ctx, m.StudentID, clubID); err != nil {
				return err
			}
			late++
		}
		return tx.DeleteClub(ctx, clubID)
	})
	s.metrics.MembershipOp("delete_club", result(err))
	if err != nil {
		return removed, err
	}
	removed += late

	s.log.Info("club deleted",
		zap.String("club_id", clubID),
		zap.Int("memberships_removed", removed))
	return removed, nil
}

// DeleteStudentCascade removes every membership of the student (each
// decrementing its club's member_count), then deletes the student and
// their index document. Returns how many memberships were removed.
func (s *Store) DeleteStudentCascade(ctx context.Context, studentID string) (int, error) {
	if _, err := s.ds.GetStudent(ctx, studentID); err != nil {
		return 0, err
	}

	clubs, err := s.studentClubIDs(ctx, studentID)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, cid := range clubs {
		ok, err := s.purgePair(ctx, cid, studentID)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}

	late := 0
	err = s.ds.RunInTx(ctx, func(ctx context.Context, tx docstore.Tx) error {
		late = 0
		rest, err := tx.ListMembershipsByStudent(ctx, studentID)
		if err != nil {
			return err
		}
		for _, m := range rest {
			if err := tx.DeleteMembership(ctx, m.ID); err != nil {
				return err
			}
			if err := tx.DeleteClubMember(ctx, m.ClubID, studentID); err != nil {
				return err
			}
			if err := tx.AddMemberCount(ctx, m.ClubID, -1); err != nil && !errors.Is(err, docstore.ErrNotFound) {
				return err
			}
			late++
		}
		return tx.DeleteStudent(ctx, studentID)
	})
	s.metrics.MembershipOp("delete_student", result(err))
	if err != nil {
		return removed, err
	}
	removed += late

	s.log.Info("student deleted",
		zap.String("student_id", studentID),
		zap.Int("memberships_removed", removed))
	return removed, nil
}

// clubStudentIDs merges the club's index entries with its canonical
// memberships so a drifted index cannot hide a membership from a cascade.
func (s *Store) clubStudentIDs(ctx context.Context, clubID string) ([]string, error) {
	doc, err := s.ds.ClubMembers(ctx, clubID)
	if err != nil {
		return nil, err
	}
	ms, err := s.ds.ListMembershipsByClub(ctx, clubID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(doc.Members))
	for sid := range doc.Members {
		ids = append(ids, sid)
	}
	for _, m := range ms {
		ids = append(ids, m.StudentID)
	}
	return dedupe(ids), nil
}

func (s *Store) studentClubIDs(ctx context.Context, studentID string) ([]string, error) {
	doc, err := s.ds.StudentMemberships(ctx, studentID)
	if err != nil {
		return nil, err
	}
	ms, err := s.ds.ListMembershipsByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(doc.Clubs))
	for cid := range doc.Clubs {
		ids = append(ids, cid)
	}
	for _, m := range ms {
		ids = append(ids, m.ClubID)
	}
	return dedupe(ids), nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// purgePair removes the pair's membership if it exists and clears both
// index entries either way. Reports whether a membership was removed.
func (s *Store) purgePair(ctx context.Context, clubID, studentID string) (bool, error) {
	found := false
	err := s.withPair(ctx, "remove", clubID, studentID, func(ctx context.Context, tx docstore.Tx) error {
		found = false
		m, err := tx.FindMembership(ctx, clubID, studentID)
		switch {
		case err == nil:
			found = true
			return removeInTx(ctx, tx, m)
		case errors.Is(err, docstore.ErrNotFound):
			if err := tx.DeleteClubMember(ctx, clubID, studentID); err != nil {
				return err
			}
			return tx.DeleteStudentClub(ctx, studentID, clubID)
		default:
			return err
		}
	})
	return found, err
}
