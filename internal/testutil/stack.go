package testutil

import (
	"testing"

	clubstore "github.com/dalemusser/clubhouse/internal/app/store/clubs"
	"github.com/dalemusser/clubhouse/internal/app/store/docstore/memdoc"
	membershipstore "github.com/dalemusser/clubhouse/internal/app/store/memberships"
	studentstore "github.com/dalemusser/clubhouse/internal/app/store/students"
	"github.com/dalemusser/clubhouse/internal/app/system/pairlock"
	"go.uber.org/zap"
)

// Stack is a fully wired set of stores over an in-memory document store.
type Stack struct {
	DS       *memdoc.Store
	Members  *membershipstore.Store
	Clubs    *clubstore.Store
	Students *studentstore.Store
	Fixtures *Fixtures
}

// NewStack builds a Stack for handler tests.
func NewStack(t *testing.T) *Stack {
	t.Helper()
	ds := memdoc.New()
	members := membershipstore.New(ds, pairlock.NewStriped(0), nil, zap.NewNop())
	return &Stack{
		DS:       ds,
		Members:  members,
		Clubs:    clubstore.New(ds, members),
		Students: studentstore.New(ds, members),
		Fixtures: NewFixtures(t, ds),
	}
}
