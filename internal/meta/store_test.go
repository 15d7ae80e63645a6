package meta

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drmikehenry/git-ibundle/internal/wire"
)

func testOID(pair string) wire.OID {
	return wire.OID(strings.Repeat(pair, 20))
}

func testSnapshot() *Snapshot {
	s := NewSnapshot()
	s.Head = wire.SymbolicHead("refs/heads/main")
	s.Refs["refs/heads/main"] = testOID("aa")
	s.Refs["refs/tags/v1"] = testOID("bb")
	s.Prereqs = []wire.OID{testOID("cc")}
	s.CapturedAt = time.Unix(1700000000, 0).UTC()
	return s
}

func TestIDAbsentInitially(t *testing.T) {
	store := Open(t.TempDir())
	_, ok, err := store.ID()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteIDOnce(t *testing.T) {
	store := Open(t.TempDir())
	id := uuid.New()
	require.NoError(t, store.WriteIDOnce(id))

	got, ok, err := store.ID()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, got)

	// Re-writing the same id is fine; a different id is not.
	require.NoError(t, store.WriteIDOnce(id))
	assert.Error(t, store.WriteIDOnce(uuid.New()))
}

func TestIDFileFormat(t *testing.T) {
	gitDir := t.TempDir()
	store := Open(gitDir)
	id, err := store.EnsureID()
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(gitDir, DirName, "id"))
	require.NoError(t, err)
	assert.Equal(t, id.String()+"\n", string(data))
}

func TestEnsureIDStable(t *testing.T) {
	store := Open(t.TempDir())
	id1, err := store.EnsureID()
	require.NoError(t, err)
	id2, err := store.EnsureID()
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestPutGetRoundTrip(t *testing.T) {
	store := Open(t.TempDir())
	snap := testSnapshot()
	require.NoError(t, store.Put(1, snap))

	got, err := store.Get(1)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestGetMissing(t *testing.T) {
	store := Open(t.TempDir())
	_, err := store.Get(42)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestDetachedHeadSnapshot(t *testing.T) {
	store := Open(t.TempDir())
	snap := NewSnapshot()
	snap.Head = wire.DetachedHead(testOID("ee"))
	require.NoError(t, store.Put(3, snap))

	got, err := store.Get(3)
	require.NoError(t, err)
	assert.Equal(t, snap.Head, got.Head)
	assert.Empty(t, got.Refs)
}

func TestSeqNumsSorted(t *testing.T) {
	store := Open(t.TempDir())
	for _, n := range []uint64{3, 1, 10, 2} {
		require.NoError(t, store.Put(n, testSnapshot()))
	}

	nums, err := store.SeqNums()
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3, 10}, nums)

	max, err := store.MaxSeqNum()
	require.NoError(t, err)
	assert.Equal(t, uint64(10), max)
}

func TestMaxSeqNumEmpty(t *testing.T) {
	store := Open(t.TempDir())
	max, err := store.MaxSeqNum()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), max)
}

func TestRemove(t *testing.T) {
	store := Open(t.TempDir())
	require.NoError(t, store.Put(1, testSnapshot()))
	require.NoError(t, store.Put(2, testSnapshot()))

	require.NoError(t, store.Remove(1))
	assert.False(t, store.Has(1))
	assert.True(t, store.Has(2))
}

func TestStaleTempCleanup(t *testing.T) {
	gitDir := t.TempDir()
	store := Open(gitDir)
	require.NoError(t, store.Put(1, testSnapshot()))

	stale := filepath.Join(gitDir, DirName, "seq", ".tmp-leftover")
	require.NoError(t, os.WriteFile(stale, []byte("junk"), 0o666))

	Open(gitDir)
	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))

	// Real entries survive the cleanup.
	assert.True(t, store.Has(1))
}

func TestSnapshotEncodingDeterministic(t *testing.T) {
	a, err := encodeSnapshot(testSnapshot())
	require.NoError(t, err)
	b, err := encodeSnapshot(testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSnapshotRejectsGarbage(t *testing.T) {
	_, err := decodeSnapshot([]byte{0x07, 0x14})
	assert.Error(t, err)
	_, err = decodeSnapshot(nil)
	assert.Error(t, err)
}

func TestSortedRefs(t *testing.T) {
	snap := testSnapshot()
	refs := snap.SortedRefs()
	require.Len(t, refs, 2)
	assert.Equal(t, "refs/heads/main", refs[0].Name)
	assert.Equal(t, "refs/tags/v1", refs[1].Name)
}
