// Package memdoc is an in-memory docstore.Store. Transactions run against
// a private copy of the state that replaces the live state only when the
// unit of work succeeds, so a failed unit leaves nothing behind.
package memdoc

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dalemusser/clubhouse/internal/app/store/docstore"
	"github.com/dalemusser/clubhouse/internal/domain/models"
)

var _ docstore.Store = (*Store)(nil)

type state struct {
	clubs        map[string]models.Club
	students     map[string]models.Student
	memberships  map[string]models.Membership
	clubMembers  map[string]map[string]models.IndexEntry
	studentClubs map[string]map[string]models.IndexEntry
}

func newState() state {
	return state{
		clubs:        map[string]models.Club{},
		students:     map[string]models.Student{},
		memberships:  map[string]models.Membership{},
		clubMembers:  map[string]map[string]models.IndexEntry{},
		studentClubs: map[string]map[string]models.IndexEntry{},
	}
}

func (s state) clone() state {
	out := newState()
	for k, v := range s.clubs {
		out.clubs[k] = v
	}
	for k, v := range s.students {
		out.students[k] = v
	}
	for k, v := range s.memberships {
		out.memberships[k] = v
	}
	for k, v := range s.clubMembers {
		out.clubMembers[k] = copyEntries(v)
	}
	for k, v := range s.studentClubs {
		out.studentClubs[k] = copyEntries(v)
	}
	return out
}

func copyEntries(in map[string]models.IndexEntry) map[string]models.IndexEntry {
	out := make(map[string]models.IndexEntry, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Store is safe for concurrent use. Units of work are serialized.
type Store struct {
	mu    sync.RWMutex
	st    state
	fault func(op string) error
}

// New returns an empty store.
func New() *Store {
	return &Store{st: newState()}
}

// SetFault installs a hook consulted before every transactional write. A
// non-nil return fails that write with the returned error. Used by tests to
// break a unit of work part-way.
func (s *Store) SetFault(fn func(op string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = fn
}

func (s *Store) read(fn func(v view) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(view{st: &s.st})
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// RunInTx implements docstore.Store.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	t := &tx{view: view{st: &work}, fault: s.fault}
	if err := fn(ctx, t); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) InsertClub(ctx context.Context, c models.Club) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.clubs[c.ID]; ok {
		return fmt.Errorf("club %s: %w", c.ID, docstore.ErrDuplicate)
	}
	s.st.clubs[c.ID] = c
	return nil
}

func (s *Store) UpdateClubInfo(ctx context.Context, c models.Club) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.st.clubs[c.ID]
	if !ok {
		return docstore.NotFound("club", c.ID)
	}
	c.MemberCount = cur.MemberCount
	c.CreatedAt = cur.CreatedAt
	s.st.clubs[c.ID] = c
	return nil
}

func (s *Store) InsertStudent(ctx context.Context, st models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.students[st.ID]; ok {
		return fmt.Errorf("student %s: %w", st.ID, docstore.ErrDuplicate)
	}
	if emailTaken(s.st, st.EmailCI, st.ID) {
		return fmt.Errorf("email %s: %w", st.EmailCI, docstore.ErrDuplicate)
	}
	s.st.students[st.ID] = st
	return nil
}

func (s *Store) UpdateStudentInfo(ctx context.Context, st models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.st.students[st.ID]
	if !ok {
		return docstore.NotFound("student", st.ID)
	}
	if emailTaken(s.st, st.EmailCI, st.ID) {
		return fmt.Errorf("email %s: %w", st.EmailCI, docstore.ErrDuplicate)
	}
	st.CreatedAt = cur.CreatedAt
	s.st.students[st.ID] = st
	return nil
}

func emailTaken(st state, emailCI, exceptID string) bool {
	for id, s := range st.students {
		if id != exceptID && s.EmailCI == emailCI {
			return true
		}
	}
	return false
}

/* ------------------------------ reads ------------------------------ */

func (s *Store) GetClub(ctx context.Context, id string) (c models.Club, err error) {
	err = s.read(func(v view) error { c, err = v.GetClub(ctx, id); return err })
	return c, err
}

func (s *Store) ListClubs(ctx context.Context) (out []models.Club, err error) {
	err = s.read(func(v view) error { out, err = v.ListClubs(ctx); return err })
	return out, err
}

func (s *Store) SearchClubs(ctx context.Context, folded string) (out []models.Club, err error) {
	err = s.read(func(v view) error { out, err = v.SearchClubs(ctx, folded); return err })
	return out, err
}

func (s *Store) GetStudent(ctx context.Context, id string) (st models.Student, err error) {
	err = s.read(func(v view) error { st, err = v.GetStudent(ctx, id); return err })
	return st, err
}

func (s *Store) GetStudentByEmail(ctx context.Context, emailCI string) (st models.Student, err error) {
	err = s.read(func(v view) error { st, err = v.GetStudentByEmail(ctx, emailCI); return err })
	return st, err
}

func (s *Store) ListStudents(ctx context.Context) (out []models.Student, err error) {
	err = s.read(func(v view) error { out, err = v.ListStudents(ctx); return err })
	return out, err
}

func (s *Store) GetStudents(ctx context.Context, ids []string) (out map[string]models.Student, err error) {
	err = s.read(func(v view) error { out, err = v.GetStudents(ctx, ids); return err })
	return out, err
}

func (s *Store) FindMembership(ctx context.Context, clubID, studentID string) (m models.Membership, err error) {
	err = s.read(func(v view) error { m, err = v.FindMembership(ctx, clubID, studentID); return err })
	return m, err
}

func (s *Store) ListMembershipsByClub(ctx context.Context, clubID string) (out []models.Membership, err error) {
	err = s.read(func(v view) error { out, err = v.ListMembershipsByClub(ctx, clubID); return err })
	return out, err
}

func (s *Store) ListMembershipsByStudent(ctx context.Context, studentID string) (out []models.Membership, err error) {
	err = s.read(func(v view) error { out, err = v.ListMembershipsByStudent(ctx, studentID); return err })
	return out, err
}

func (s *Store) ClubMembers(ctx context.Context, clubID string) (d models.ClubMembers, err error) {
	err = s.read(func(v view) error { d, err = v.ClubMembers(ctx, clubID); return err })
	return d, err
}

func (s *Store) StudentMemberships(ctx context.Context, studentID string) (d models.StudentMemberships, err error) {
	err = s.read(func(v view) error { d, err = v.StudentMemberships(ctx, studentID); return err })
	return d, err
}

/* ------------------------------ view ------------------------------- */

// view implements docstore.Reader over one state. Callers hold the lock.
type view struct {
	st *state
}

func (v view) GetClub(_ context.Context, id string) (models.Club, error) {
	c, ok := v.st.clubs[id]
	if !ok {
		return models.Club{}, docstore.NotFound("club", id)
	}
	return c, nil
}

func (v view) ListClubs(_ context.Context) ([]models.Club, error) {
	out := make([]models.Club, 0, len(v.st.clubs))
	for _, c := range v.st.clubs {
		out = append(out, c)
	}
	sortClubs(out)
	return out, nil
}

func (v view) SearchClubs(_ context.Context, folded string) ([]models.Club, error) {
	out := []models.Club{}
	for _, c := range v.st.clubs {
		if strings.Contains(c.NameCI, folded) || strings.Contains(c.DescriptionCI, folded) {
			out = append(out, c)
		}
	}
	sortClubs(out)
	return out, nil
}

func (v view) GetStudent(_ context.Context, id string) (models.Student, error) {
	s, ok := v.st.students[id]
	if !ok {
		return models.Student{}, docstore.NotFound("student", id)
	}
	return s, nil
}

func (v view) GetStudentByEmail(_ context.Context, emailCI string) (models.Student, error) {
	for _, s := range v.st.students {
		if s.EmailCI == emailCI {
			return s, nil
		}
	}
	return models.Student{}, docstore.NotFound("student", emailCI)
}

func (v view) ListStudents(_ context.Context) ([]models.Student, error) {
	out := make([]models.Student, 0, len(v.st.students))
	for _, s := range v.st.students {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NameCI != out[j].NameCI {
			return out[i].NameCI < out[j].NameCI
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v view) GetStudents(_ context.Context, ids []string) (map[string]models.Student, error) {
	out := make(map[string]models.Student, len(ids))
	for _, id := range ids {
		if s, ok := v.st.students[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (v view) FindMembership(_ context.Context, clubID, studentID string) (models.Membership, error) {
	for _, m := range v.st.memberships {
		if m.ClubID == clubID && m.StudentID == studentID {
			return m, nil
		}
	}
	return models.Membership{}, docstore.NotFound("membership", docstore.PairID(clubID, studentID))
}

func (v view) ListMembershipsByClub(_ context.Context, clubID string) ([]models.Membership, error) {
	return v.filterMemberships(func(m models.Membership) bool { return m.ClubID == clubID }), nil
}

func (v view) ListMembershipsByStudent(_ context.Context, studentID string) ([]models.Membership, error) {
	return v.filterMemberships(func(m models.Membership) bool { return m.StudentID == studentID }), nil
}

func (v view) filterMemberships(keep func(models.Membership) bool) []models.Membership {
	out := []models.Membership{}
	for _, m := range v.st.memberships {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinDate.Equal(out[j].JoinDate) {
			return out[i].JoinDate.Before(out[j].JoinDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v view) ClubMembers(_ context.Context, clubID string) (models.ClubMembers, error) {
	return models.ClubMembers{ClubID: clubID, Members: copyEntries(v.st.clubMembers[clubID])}, nil
}

func (v view) StudentMemberships(_ context.Context, studentID string) (models.StudentMemberships, error) {
	return models.StudentMemberships{StudentID: studentID, Clubs: copyEntries(v.st.studentClubs[studentID])}, nil
}

func sortClubs(cs []models.Club) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].NameCI != cs[j].NameCI {
			return cs[i].NameCI < cs[j].NameCI
		}
		return cs[i].ID < cs[j].ID
	})
}

/* ------------------------------- tx -------------------------------- */

type tx struct {
	view
	fault func(op string) error
}

func (t *tx) check(op string) error {
	if t.fault == nil {
		return nil
	}
	return t.fault(op)
}

func (t *tx) InsertMembership(_ context.Context, m models.Membership) error {
	if err := t.check("InsertMembership"); err != nil {
		return err
	}
	if _, ok := t.st.memberships[m.ID]; ok {
		return fmt.Errorf("membership %s: %w", m.ID, docstore.ErrDuplicate)
	}
	for _, cur := range t.st.memberships {
		if cur.ClubID == m.ClubID && cur.StudentID == m.StudentID {
			return fmt.Errorf("membership %s: %w", docstore.PairID(m.ClubID, m.StudentID), docstore.ErrDuplicate)
		}
	}
	t.st.memberships[m.ID] = m
	return nil
}

func (t *tx) SetMembershipRole(_ context.Context, id string, role models.Role) error {
	if err := t.check("SetMembershipRole"); err != nil {
		return err
	}
	m, ok := t.st.memberships[id]
	if !ok {
		return docstore.NotFound("membership", id)
	}
	m.Role = role
	t.st.memberships[id] = m
	return nil
}

func (t *tx) DeleteMembership(_ context.Context, id string) error {
	if err := t.check("DeleteMembership"); err != nil {
		return err
	}
	if _, ok := t.st.memberships[id]; !ok {
		return docstore.NotFound("membership", id)
	}
	delete(t.st.memberships, id)
	return nil
}

func (t *tx) PutClubMember(_ context.Context, clubID, studentID string, e models.IndexEntry) error {
	if err := t.check("PutClubMember"); err != nil {
		return err
	}
	putEntry(t.st.clubMembers, clubID, studentID, e)
	return nil
}

func (t *tx) DeleteClubMember(_ context.Context, clubID, studentID string) error {
	if err := t.check("DeleteClubMember"); err != nil {
		return err
	}
	delete(t.st.clubMembers[clubID], studentID)
	return nil
}

func (t *tx) PutStudentClub(_ context.Context, studentID, clubID string, e models.IndexEntry) error {
	if err := t.check("PutStudentClub"); err != nil {
		return err
	}
	putEntry(t.st.studentClubs, studentID, clubID, e)
	return nil
}

func (t *tx) DeleteStudentClub(_ context.Context, studentID, clubID string) error {
	if err := t.check("DeleteStudentClub"); err != nil {
		return err
	}
	delete(t.st.studentClubs[studentID], clubID)
	return nil
}

func putEntry(idx map[string]map[string]models.IndexEntry, doc, key string, e models.IndexEntry) {
	m, ok := idx[doc]
	if !ok {
		m = map[string]models.IndexEntry{}
		idx[doc] = m
	}
	m[key] = e
}

func (t *tx) AddMemberCount(_ context.Context, clubID string, delta int) error {
	if err := t.check("AddMemberCount"); err != nil {
		return err
	}
	c, ok := t.st.clubs[clubID]
	if !ok {
		return docstore.NotFound("club", clubID)
	}
	c.MemberCount += delta
	if c.MemberCount < 0 {
		c.MemberCount = 0
	}
	t.st.clubs[clubID] = c
	return nil
}

func (t *tx) SetMemberCount(_ context.Context, clubID string, n int) error {
	if err := t.check("SetMemberCount"); err != nil {
		return err
	}
	c, ok := t.st.clubs[clubID]
	if !ok {
		return docstore.NotFound("club", clubID)
	}
	if n < 0 {
		n = 0
	}
	c.MemberCount = n
	t.st.clubs[clubID] = c
	return nil
}

func (t *tx) DeleteClub(_ context.Context, id string) error {
	if err := t.check("DeleteClub"); err != nil {
		return err
	}
	if _, ok := t.st.clubs[id]; !ok {
		return docstore.NotFound("club", id)
	}
	delete(t.st.clubs, id)
	delete(t.st.clubMembers, id)
	return nil
}

func (t *tx) DeleteStudent(_ context.Context, id string) error {
	if err := t.check("DeleteStudent"); err != nil {
		return err
	}
	if _, ok := t.st.students[id]; !ok {
		return docstore.NotFound("student", id)
	}
	delete(t.st.students, id)
	delete(t.st.studentClubs, id)
	return nil
}
