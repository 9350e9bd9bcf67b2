// Package docstore defines the typed document-store surface the clubhouse
// stores are built on.
//
// The five collections mirror the hosted layout the app was designed for:
//
//	clubs                 one document per club
//	students              one document per student
//	memberships           one document per (club_id, student_id) pair
//	club_members          one document per club, members.<student_id> = entry
//	student_memberships   one document per student, clubs.<club_id> = entry
//
// Membership, club_members, student_memberships and clubs.member_count are
// only writable through Tx, and Tx is only reachable through RunInTx. The
// membership store is the sole caller of RunInTx, which keeps the three
// copies of a membership from being written independently.
package docstore

import (
	"context"

	"github.com/dalemusser/clubhouse/internal/domain/models"
)

// Collection names.
const (
	Clubs              = "clubs"
	Students           = "students"
	Memberships        = "memberships"
	ClubMembers        = "club_members"
	StudentMemberships = "student_memberships"
)

// Reader is the read-only half shared by Store and Tx.
type Reader interface {
	GetClub(ctx context.Context, id string) (models.Club, error)
	// ListClubs returns every club ordered by folded name.
	ListClubs(ctx context.Context) ([]models.Club, error)
	// SearchClubs returns clubs whose name_ci or description_ci contains
	// the already-folded query, ordered by folded name.
	SearchClubs(ctx context.Context, folded string) ([]models.Club, error)

	GetStudent(ctx context.Context, id string) (models.Student, error)
	GetStudentByEmail(ctx context.Context, emailCI string) (models.Student, error)
	ListStudents(ctx context.Context) ([]models.Student, error)
	// GetStudents loads the given ids; missing ids are absent from the map.
	GetStudents(ctx context.Context, ids []string) (map[string]models.Student, error)

	FindMembership(ctx context.Context, clubID, studentID string) (models.Membership, error)
	ListMembershipsByClub(ctx context.Context, clubID string) ([]models.Membership, error)
	ListMembershipsByStudent(ctx context.Context, studentID string) ([]models.Membership, error)

	// ClubMembers and StudentMemberships return an empty document (not an
	// error) when none has been written yet.
	ClubMembers(ctx context.Context, clubID string) (models.ClubMembers, error)
	StudentMemberships(ctx context.Context, studentID string) (models.StudentMemberships, error)
}

// Tx is a unit of work. Everything written through a Tx commits together
// or not at all.
type Tx interface {
	Reader

	// InsertMembership fails with ErrDuplicate when the pair already has a
	// membership.
	InsertMembership(ctx context.Context, m models.Membership) error
	SetMembershipRole(ctx context.Context, id string, role models.Role) error
	DeleteMembership(ctx context.Context, id string) error

	PutClubMember(ctx context.Context, clubID, studentID string, e models.IndexEntry) error
	DeleteClubMember(ctx context.Context, clubID, studentID string) error
	PutStudentClub(ctx context.Context, studentID, clubID string, e models.IndexEntry) error
	DeleteStudentClub(ctx context.Context, studentID, clubID string) error

	// AddMemberCount adjusts clubs.member_count by delta, never going
	// below zero.
	AddMemberCount(ctx context.Context, clubID string, delta int) error
	SetMemberCount(ctx context.Context, clubID string, n int) error

	// DeleteClub and DeleteStudent also drop the entity's index document.
	DeleteClub(ctx context.Context, id string) error
	DeleteStudent(ctx context.Context, id string) error
}

// Store is a handle on one document database.
type Store interface {
	Reader

	InsertClub(ctx context.Context, c models.Club) error
	// UpdateClubInfo writes the descriptive fields of c (everything except
	// member_count and created_at).
	UpdateClubInfo(ctx context.Context, c models.Club) error

	// InsertStudent fails with ErrDuplicate when email_ci is taken.
	InsertStudent(ctx context.Context, s models.Student) error
	UpdateStudentInfo(ctx context.Context, s models.Student) error

	// RunInTx runs fn as one unit of work. fn may be retried by the
	// backend on transient transaction conflicts, so it must not have side
	// effects outside tx.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Ping(ctx context.Context) error
}
