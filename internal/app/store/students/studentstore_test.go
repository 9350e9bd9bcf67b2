package studentstore_test

import (
	"testing"

	"github.com/dalemusser/clubhouse/internal/app/store/docstore"
	"github.com/dalemusser/clubhouse/internal/app/store/docstore/memdoc"
	membershipstore "github.com/dalemusser/clubhouse/internal/app/store/memberships"
	studentstore "github.com/dalemusser/clubhouse/internal/app/store/students"
	"github.com/dalemusser/clubhouse/internal/app/system/inputval"
	"github.com/dalemusser/clubhouse/internal/domain/models"
	"github.com/dalemusser/clubhouse/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore() (*studentstore.Store, *membershipstore.Store, docstore.Store) {
	ds := memdoc.New()
	ms := membershipstore.New(ds, nil, nil, nil)
	return studentstore.New(ds, ms), ms, ds
}

func TestStore_Create(t *testing.T) {
	store, _, _ := newStore()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	st, err := store.Create(ctx, studentstore.Input{Name: " Alice  Smith ", Email: " Alice@School.EDU ", Major: "Math"})
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", st.Name)
	assert.Equal(t, "Alice@School.EDU", st.Email)
	assert.Equal(t, "alice@school.edu", st.EmailCI)

	got, err := store.GetByEmail(ctx, "ALICE@school.edu")
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.ID)
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	store, _, _ := newStore()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Create(ctx, studentstore.Input{Name: "Alice", Email: "alice@school.edu"})
	require.NoError(t, err)
	_, err = store.Create(ctx, studentstore.Input{Name: "Other Alice", Email: "ALICE@school.edu"})
	assert.ErrorIs(t, err, studentstore.ErrDuplicateEmail)
}

func TestStore_Create_Validation(t *testing.T) {
	store, _, _ := newStore()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tests := []struct {
		name  string
		in    studentstore.Input
		field string
	}{
		{"blank name", studentstore.Input{Name: " ", Email: "a@b.co"}, "name"},
		{"missing email", studentstore.Input{Name: "Bob"}, "email"},
		{"bad email", studentstore.Input{Name: "Bob", Email: "bob@"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Create(ctx, tt.in)
			var ve *inputval.Error
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestStore_Update(t *testing.T) {
	store, _, _ := newStore()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, err := store.Create(ctx, studentstore.Input{Name: "Alice", Email: "alice@school.edu"})
	require.NoError(t, err)
	_, err = store.Create(ctx, studentstore.Input{Name: "Bob", Email: "bob@school.edu"})
	require.NoError(t, err)

	up, err := store.Update(ctx, a.ID, studentstore.Input{Name: "Alice B", Email: "alice.b@school.edu"})
	require.NoError(t, err)
	assert.Equal(t, "alice.b@school.edu", up.EmailCI)
	assert.Equal(t, a.CreatedAt, up.CreatedAt)

	// Keeping one's own email is fine; taking another's is not.
	_, err = store.Update(ctx, a.ID, studentstore.Input{Name: "Alice B", Email: "alice.b@school.edu"})
	assert.NoError(t, err)
	_, err = store.Update(ctx, a.ID, studentstore.Input{Name: "Alice B", Email: "BOB@school.edu"})
	assert.ErrorIs(t, err, studentstore.ErrDuplicateEmail)

	_, err = store.Update(ctx, "missing", studentstore.Input{Name: "X", Email: "x@y.zz"})
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestStore_Delete_Cascades(t *testing.T) {
	store, ms, ds := newStore()
	fx := testutil.NewFixtures(t, ds)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	chess := fx.CreateClub(ctx, "Chess Club")
	a, err := store.Create(ctx, studentstore.Input{Name: "Alice", Email: "alice@school.edu"})
	require.NoError(t, err)
	_, err = ms.Create(ctx, chess.ID, a.ID, models.RoleMember)
	require.NoError(t, err)

	n, err := store.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	roster, err := ms.ListClubRoster(ctx, chess.ID)
	require.NoError(t, err)
	assert.Empty(t, roster)
	c, err := ds.GetClub(ctx, chess.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, c.MemberCount)
}

func TestStore_Import(t *testing.T) {
	store, _, _ := newStore()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Create(ctx, studentstore.Input{Name: "Alice", Email: "alice@school.edu"})
	require.NoError(t, err)

	res, err := store.Import(ctx, []studentstore.Input{
		{Name: "Alice Again", Email: "ALICE@school.edu"},
		{Name: "Bob", Email: "bob@school.edu", Major: "History"},
		{Name: "", Email: "nobody@school.edu"},
		{Name: "Cara", Email: "cara@school.edu"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Failed, 1)
	assert.Contains(t, res.Failed[0], "nobody@school.edu")

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
