package mirror

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drmikehenry/git-ibundle/internal/meta"
	"github.com/drmikehenry/git-ibundle/internal/wire"
)

func seededStore(t *testing.T, count int) *meta.Store {
	t.Helper()

	store := meta.Open(t.TempDir())
	require.NoError(t, store.WriteIDOnce(uuid.New()))
	for i := 1; i <= count; i++ {
		snap := meta.NewSnapshot()
		snap.Head = wire.SymbolicHead("refs/heads/main")
		snap.Refs["refs/heads/main"] = wire.OID(strings.Repeat("ab", 20))
		snap.CapturedAt = time.Unix(int64(1700000000+i), 0).UTC()
		require.NoError(t, store.Put(uint64(i), snap))
	}
	return store
}

func TestCleanKeepsMostRecent(t *testing.T) {
	store := seededStore(t, 5)

	removed, err := Clean(store, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	nums, err := store.SeqNums()
	require.NoError(t, err)
	assert.Equal(t, []uint64{4, 5}, nums)
}

func TestCleanNothingToDo(t *testing.T) {
	store := seededStore(t, 2)

	removed, err := Clean(store, 5)
	require.NoError(t, err)
	assert.Zero(t, removed)

	nums, err := store.SeqNums()
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, nums)
}

func TestCleanAlwaysKeepsMax(t *testing.T) {
	store := seededStore(t, 7)

	removed, err := Clean(store, 1)
	require.NoError(t, err)
	assert.Equal(t, 6, removed)

	max, err := store.MaxSeqNum()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), max)
}

func TestCleanRejectsZeroKeep(t *testing.T) {
	store := seededStore(t, 3)
	_, err := Clean(store, 0)
	assert.Error(t, err)
}

func TestCleanRequiresID(t *testing.T) {
	store := meta.Open(t.TempDir())
	_, err := Clean(store, 1)
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	store := seededStore(t, 3)

	st, err := GetStatus(store, false)
	require.NoError(t, err)
	assert.NotEqual(t, "NONE", st.RepoID)
	assert.Equal(t, uint64(3), st.MaxSeqNum)
	assert.Equal(t, uint64(4), st.NextSeqNum)
	assert.Equal(t, 3, st.Kept)
	assert.Empty(t, st.Entries)
}

func TestStatusLong(t *testing.T) {
	store := seededStore(t, 3)

	st, err := GetStatus(store, true)
	require.NoError(t, err)
	require.Len(t, st.Entries, 3)

	// Newest first.
	assert.Equal(t, uint64(3), st.Entries[0].SeqNum)
	assert.Equal(t, uint64(1), st.Entries[2].SeqNum)
	for _, e := range st.Entries {
		assert.NoError(t, e.Err)
		assert.Equal(t, 1, e.Refs)
		assert.Equal(t, "refs/heads/main", e.Head.Ref)
	}
}

func TestStatusEmptyStore(t *testing.T) {
	store := meta.Open(t.TempDir())

	st, err := GetStatus(store, true)
	require.NoError(t, err)
	assert.Equal(t, "NONE", st.RepoID)
	assert.Zero(t, st.MaxSeqNum)
	assert.Equal(t, uint64(1), st.NextSeqNum)
}
