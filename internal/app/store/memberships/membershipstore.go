// internal/app/store/memberships/membershipstore.go
package membershipstore

// A membership lives in three places: the memberships collection (the
// canonical record), club_members.<club>.members.<student> and
// student_memberships.<student>.clubs.<club>. clubs.member_count caches the
// size of the club-side index. This package is the only writer of all four,
// and every write to them happens inside one docstore unit of work.

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dalemusser/clubhouse/internal/app/store/docstore"
	"github.com/dalemusser/clubhouse/internal/app/system/metrics"
	"github.com/dalemusser/clubhouse/internal/app/system/pairlock"
	"github.com/dalemusser/clubhouse/internal/app/system/txn"
	"github.com/dalemusser/clubhouse/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrDuplicateMembership is returned when the student already belongs to
// the club.
var ErrDuplicateMembership = errors.New("student is already a member of this club")

type Store struct {
	ds      docstore.Store
	locks   pairlock.Locker
	metrics *metrics.Metrics
	log     *zap.Logger

	now   func() time.Time
	newID func() string
}

// New builds the maintainer. A nil locker gets an in-process striped lock;
// a nil logger is replaced with a no-op one; m may be nil.
func New(ds docstore.Store, locks pairlock.Locker, m *metrics.Metrics, log *zap.Logger) *Store {
	if locks == nil {
		locks = pairlock.NewStriped(pairlock.DefaultStripes)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		ds:      ds,
		locks:   locks,
		metrics: m,
		log:     log,
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		newID:   uuid.NewString,
	}
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrDuplicateMembership):
		return "duplicate"
	case errors.Is(err, docstore.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrInvalidRole):
		return "invalid"
	case errors.Is(err, docstore.ErrUnavailable):
		return "unavailable"
	}
	return "error"
}

// withPair runs fn as one unit of work while holding the pair lock.
func (s *Store) withPair(ctx context.Context, op, clubID, studentID string, fn func(ctx context.Context, tx docstore.Tx) error) error {
	release, err := s.locks.Lock(ctx, docstore.PairID(clubID, studentID))
	if err != nil {
		s.metrics.MembershipOp(op, "lock_timeout")
		return err
	}
	defer release()

	var wt *writeTracker
	err = s.ds.RunInTx(ctx, func(ctx context.Context, tx docstore.Tx) error {
		wt = &writeTracker{Tx: tx}
		return fn(ctx, wt)
	})
	if errors.Is(err, txn.ErrNotAtomic) && wt != nil && wt.wrote {
		s.log.Error("membership write failed part-way; indexes unverified, run reconcile --repair",
			zap.String("op", op),
			zap.String("club_id", clubID),
			zap.String("student_id", studentID),
			zap.Error(err))
	}
	s.metrics.MembershipOp(op, result(err))
	return err
}

// Create adds studentID to clubID with role (Member when empty) and returns
// the new membership id. The membership, both index entries and the
// member_count increment commit together.
func (s *Store) Create(ctx context.Context, clubID, studentID string, role models.Role) (string, error) {
	if role == "" {
		role = models.RoleMember
	}
	if !role.Valid() {
		s.metrics.MembershipOp("create", "invalid")
		return "", fmt.Errorf("%w: %q", models.ErrInvalidRole, role)
	}

	m := models.Membership{
		ID:        s.newID(),
		ClubID:    clubID,
		StudentID: studentID,
		Role:      role,
		JoinDate:  s.now(),
	}

	err := s.withPair(ctx, "create", clubID, studentID, func(ctx context.Context, tx docstore.Tx) error {
		if _, err := tx.GetClub(ctx, clubID); err != nil {
			return err
		}
		if _, err := tx.GetStudent(ctx, studentID); err != nil {
			return err
		}
		if _, err := tx.FindMembership(ctx, clubID, studentID); err == nil {
			return ErrDuplicateMembership
		} else if !errors.Is(err, docstore.ErrNotFound) {
			return err
		}

		if err := tx.InsertMembership(ctx, m); err != nil {
			if errors.Is(err, docstore.ErrDuplicate) {
				return ErrDuplicateMembership
			}
			return err
		}
		e := m.Entry()
		if err := tx.PutClubMember(ctx, clubID, studentID, e); err != nil {
			return err
		}
		if err := tx.PutStudentClub(ctx, studentID, clubID, e); err != nil {
			return err
		}
		return tx.AddMemberCount(ctx, clubID, 1)
	})
	if err != nil {
		return "", err
	}

	s.log.Info("membership created",
		zap.String("membership_id", m.ID),
		zap.String("club_id", clubID),
		zap.String("student_id", studentID),
		zap.String("role", role.String()))
	return m.ID, nil
}

// Remove deletes the membership and both index entries and decrements
// member_count (never below zero) as one unit.
func (s *Store) Remove(ctx context.Context, clubID, studentID string) error {
	err := s.withPair(ctx, "remove", clubID, studentID, func(ctx context.Context, tx docstore.Tx) error {
		m, err := tx.FindMembership(ctx, clubID, studentID)
		if err != nil {
			return err
		}
		return removeInTx(ctx, tx, m)
	})
	if err != nil {
		return err
	}
	s.log.Info("membership removed",
		zap.String("club_id", clubID),
		zap.String("student_id", studentID))
	return nil
}

func removeInTx(ctx context.Context, tx docstore.Tx, m models.Membership) error {
	if err := tx.DeleteMembership(ctx, m.ID); err != nil {
		return err
	}
	if err := tx.DeleteClubMember(ctx, m.ClubID, m.StudentID); err != nil {
		return err
	}
	if err := tx.DeleteStudentClub(ctx, m.StudentID, m.ClubID); err != nil {
		return err
	}
	// An orphaned membership (club already gone) has no count to maintain.
	if err := tx.AddMemberCount(ctx, m.ClubID, -1); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return err
	}
	return nil
}

// UpdateRole changes the role on the membership and both index entries.
func (s *Store) UpdateRole(ctx context.Context, clubID, studentID string, role models.Role) error {
	if !role.Valid() {
		s.metrics.MembershipOp("update_role", "invalid")
		return fmt.Errorf("%w: %q", models.ErrInvalidRole, role)
	}
	err := s.withPair(ctx, "update_role", clubID, studentID, func(ctx context.Context, tx docstore.Tx) error {
		m, err := tx.FindMembership(ctx, clubID, studentID)
		if err != nil {
			return err
		}
		if err := tx.SetMembershipRole(ctx, m.ID, role); err != nil {
			return err
		}
		m.Role = role
		e := m.Entry()
		if err := tx.PutClubMember(ctx, clubID, studentID, e); err != nil {
			return err
		}
		return tx.PutStudentClub(ctx, studentID, clubID, e)
	})
	if err != nil {
		return err
	}
	s.log.Info("membership role updated",
		zap.String("club_id", clubID),
		zap.String("student_id", studentID),
		zap.String("role", role.String()))
	return nil
}

/* --------------------------------- reads --------------------------------- */

// ListClubRoster reads the club's index document, ordered by join date.
func (s *Store) ListClubRoster(ctx context.Context, clubID string) ([]models.RosterEntry, error) {
	if _, err := s.ds.GetClub(ctx, clubID); err != nil {
		return nil, err
	}
	doc, err := s.ds.ClubMembers(ctx, clubID)
	if err != nil {
		return nil, err
	}
	out := make([]models.RosterEntry, 0, len(doc.Members))
	for sid, e := range doc.Members {
		out = append(out, models.RosterEntry{
			StudentID:    sid,
			MembershipID: e.MembershipID,
			Role:         e.Role,
			JoinDate:     e.JoinDate,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return joinedBefore(out[i].JoinDate, out[i].MembershipID, out[j].JoinDate, out[j].MembershipID)
	})
	return out, nil
}

// ListStudentMemberships reads the student's index document, ordered by
// join date.
func (s *Store) ListStudentMemberships(ctx context.Context, studentID string) ([]models.StudentClubEntry, error) {
	if _, err := s.ds.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	doc, err := s.ds.StudentMemberships(ctx, studentID)
	if err != nil {
		return nil, err
	}
	out := make([]models.StudentClubEntry, 0, len(doc.Clubs))
	for cid, e := range doc.Clubs {
		out = append(out, models.StudentClubEntry{
			ClubID:       cid,
			MembershipID: e.MembershipID,
			Role:         e.Role,
			JoinDate:     e.JoinDate,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return joinedBefore(out[i].JoinDate, out[i].MembershipID, out[j].JoinDate, out[j].MembershipID)
	})
	return out, nil
}

func joinedBefore(a time.Time, aID string, b time.Time, bID string) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return aID < bID
}

// ClubMembers is the roster joined with each student's record. Entries
// whose student no longer exists are skipped and logged.
func (s *Store) ClubMembers(ctx context.Context, clubID string) ([]models.ClubMember, error) {
	roster, err := s.ListClubRoster(ctx, clubID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(roster))
	for i, r := range roster {
		ids[i] = r.StudentID
	}
	students, err := s.ds.GetStudents(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.ClubMember, 0, len(roster))
	for _, r := range roster {
		st, ok := students[r.StudentID]
		if !ok {
			s.log.Warn("roster entry references missing student",
				zap.String("club_id", clubID),
				zap.String("student_id", r.StudentID))
			continue
		}
		out = append(out, models.ClubMember{
			Student:      st,
			MembershipID: r.MembershipID,
			Role:         r.Role,
			JoinDate:     r.JoinDate,
		})
	}
	return out, nil
}

// StudentClubs is the student's club list joined with each club's record.
// Entries whose club no longer exists are skipped and logged.
func (s *Store) StudentClubs(ctx context.Context, studentID string) ([]models.StudentClub, error) {
	entries, err := s.ListStudentMemberships(ctx, studentID)
	if err != nil {
		return nil, err
	}
	out := make([]models.StudentClub, 0, len(entries))
	for _, e := range entries {
		c, err := s.ds.GetClub(ctx, e.ClubID)
		if errors.Is(err, docstore.ErrNotFound) {
			s.log.Warn("student index references missing club",
				zap.String("student_id", studentID),
				zap.String("club_id", e.ClubID))
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, models.StudentClub{
			Club:         c,
			MembershipID: e.MembershipID,
			Role:         e.Role,
			JoinDate:     e.JoinDate,
		})
	}
	return out, nil
}

// writeTracker records whether a unit of work got as far as a successful
// write. Rejections found by the reads up front leave nothing behind.
type writeTracker struct {
	docstore.Tx
	wrote bool
}

func (w *writeTracker) mark(err error) error {
	if err == nil {
		w.wrote = true
	}
	return err
}

func (w *writeTracker) InsertMembership(ctx context.Context, m models.Membership) error {
	return w.mark(w.Tx.InsertMembership(ctx, m))
}

func (w *writeTracker) SetMembershipRole(ctx context.Context, id string, role models.Role) error {
	return w.mark(w.Tx.SetMembershipRole(ctx, id, role))
}

func (w *writeTracker) DeleteMembership(ctx context.Context, id string) error {
	return w.mark(w.Tx.DeleteMembership(ctx, id))
}

func (w *writeTracker) PutClubMember(ctx context.Context, clubID, studentID string, e models.IndexEntry) error {
	return w.mark(w.Tx.PutClubMember(ctx, clubID, studentID, e))
}

func (w *writeTracker) DeleteClubMember(ctx context.Context, clubID, studentID string) error {
	return w.mark(w.Tx.DeleteClubMember(ctx, clubID, studentID))
}

func (w *writeTracker) PutStudentClub(ctx context.Context, studentID, clubID string, e models.IndexEntry) error {
	return w.mark(w.Tx.PutStudentClub(ctx, studentID, clubID, e))
}

func (w *writeTracker) DeleteStudentClub(ctx context.Context, studentID, clubID string) error {
	return w.mark(w.Tx.DeleteStudentClub(ctx, studentID, clubID))
}

func (w *writeTracker) AddMemberCount(ctx context.Context, clubID string, delta int) error {
	return w.mark(w.Tx.AddMemberCount(ctx, clubID, delta))
}

func (w *writeTracker) SetMemberCount(ctx context.Context, clubID string, n int) error {
	return w.mark(w.Tx.SetMemberCount(ctx, clubID, n))
}

func (w *writeTracker) DeleteClub(ctx context.Context, id string) error {
	return w.mark(w.Tx.DeleteClub(ctx, id))
}

func (w *writeTracker) DeleteStudent(ctx context.Context, id string) error {
	return w.mark(w.Tx.DeleteStudent(ctx, id))
}
