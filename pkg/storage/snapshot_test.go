package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattbab/LiteDB/pkg/domain"
	"github.com/mattbab/LiteDB/pkg/expr"
)

func newTestEngine(t *testing.T, options ...Option) *Engine {
	t.Helper()
	options = append([]Option{WithDataDir(t.TempDir())}, options...)
	e, err := NewEngine(options...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestOpenSnapshotUnknownCollection(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.OpenSnapshot(SnapshotWrite, "nope", false)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))

	snap, err := e.OpenSnapshot(SnapshotWrite, "created", true)
	require.NoError(t, err)
	snap.Rollback()

	_, err = e.Collection("created")
	assert.NoError(t, err)
}

func TestOpenSnapshotEmptyName(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.OpenSnapshot(SnapshotWrite, "", true)
	require.Error(t, err)
	assert.True(t, domain.IsInvalidArgument(err))
}

func TestSnapshotRollbackRestoresEverything(t *testing.T) {
	e := newTestEngine(t)
	col, err := e.CreateCollection("users")
	require.NoError(t, err)
	age, err := col.Indexes().Add("age", expr.MustPath("$.age"))
	require.NoError(t, err)

	// seed one committed document
	snap, err := e.OpenSnapshot(SnapshotWrite, "users", false)
	require.NoError(t, err)
	block, err := snap.InsertBlock([]byte("v1"))
	require.NoError(t, err)
	_, err = snap.AddNode(col.Indexes().PrimaryKey(), domain.Int64(1), block.Position)
	require.NoError(t, err)
	ageNode, err := snap.AddNode(age, domain.Int32(30), block.Position)
	require.NoError(t, err)
	require.NoError(t, snap.Commit())

	// mutate heavily, then roll back
	snap, err = e.OpenSnapshot(SnapshotWrite, "users", false)
	require.NoError(t, err)
	_, err = snap.UpdateBlock(block.Position, []byte("v2"))
	require.NoError(t, err)
	require.NoError(t, snap.DeleteNode(age, ageNode))
	_, err = snap.AddNode(age, domain.Int32(31), block.Position)
	require.NoError(t, err)
	extra, err := snap.InsertBlock([]byte("orphan"))
	require.NoError(t, err)
	snap.Rollback()

	data, err := col.data.Read(block.Position)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), data)
	assert.NotNil(t, col.Indexes().Find(age, domain.Int32(30)))
	assert.Nil(t, col.Indexes().Find(age, domain.Int32(31)))
	_, err = col.data.Read(extra.Position)
	assert.Error(t, err)
}

func TestSnapshotReadOnlyRejectsWrites(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.CreateCollection("users")
	require.NoError(t, err)

	snap, err := e.OpenSnapshot(SnapshotRead, "users", false)
	require.NoError(t, err)
	defer snap.Rollback()

	_, err = snap.InsertBlock([]byte("x"))
	require.Error(t, err)
	assert.True(t, domain.IsInvalidArgument(err))
	require.NoError(t, snap.Commit())
}

func TestSafepointFlushesAtThreshold(t *testing.T) {
	e := newTestEngine(t, WithSafepointThreshold(2))
	_, err := e.CreateCollection("users")
	require.NoError(t, err)

	snap, err := e.OpenSnapshot(SnapshotWrite, "users", true)
	require.NoError(t, err)

	_, err = snap.InsertBlock([]byte("a"))
	require.NoError(t, err)
	require.NoError(t, snap.Safepoint())
	assert.Equal(t, 0, snap.Stats().Safepoints) // below threshold, no-op

	_, err = snap.InsertBlock([]byte("b"))
	require.NoError(t, err)
	require.NoError(t, snap.Safepoint())
	assert.Equal(t, 1, snap.Stats().Safepoints)
	assert.Empty(t, snap.dirty)
	require.NoError(t, snap.Commit())

	entries, err := e.wal.ReadEntries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, WALSafepoint, entries[0].Type)
	assert.Len(t, entries[0].Blocks, 2)
	assert.Equal(t, WALCommit, entries[1].Type)
}

func TestCommitMarksCollectionDirty(t *testing.T) {
	e := newTestEngine(t)
	col, err := e.CreateCollection("users")
	require.NoError(t, err)
	col.dirty = false // creation marks it dirty; isolate the commit's effect

	snap, err := e.OpenSnapshot(SnapshotWrite, "users", false)
	require.NoError(t, err)
	_, err = snap.InsertBlock([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, snap.Commit())
	assert.True(t, col.dirty)

	// a no-op transaction does not dirty the collection
	snap, err = e.OpenSnapshot(SnapshotWrite, "users", false)
	require.NoError(t, err)
	col.dirty = false
	require.NoError(t, snap.Commit())
	assert.False(t, col.dirty)
}

func TestRollbackDropsIndexDefinition(t *testing.T) {
	e := newTestEngine(t)
	col, err := e.CreateCollection("users")
	require.NoError(t, err)

	snap, err := e.OpenSnapshot(SnapshotWrite, "users", false)
	require.NoError(t, err)
	idx, err := snap.AddIndex("age", expr.MustPath("$.age"))
	require.NoError(t, err)
	_, err = snap.AddNode(idx, domain.Int32(30), 1)
	require.NoError(t, err)
	snap.Rollback()

	// the definition and its nodes are gone, so a later retry starts clean
	assert.Nil(t, col.Indexes().ByName("age"))
	assert.Equal(t, []string{"_id"}, col.Indexes().Names())

	snap, err = e.OpenSnapshot(SnapshotWrite, "users", false)
	require.NoError(t, err)
	col.dirty = false
	_, err = snap.AddIndex("age", expr.MustPath("$.age"))
	require.NoError(t, err)
	require.NoError(t, snap.Commit())
	assert.NotNil(t, col.Indexes().ByName("age"))
	// a definition-only transaction still schedules a checkpoint
	assert.True(t, col.dirty)
}

func TestAddIndexDuplicateName(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.CreateCollection("users")
	require.NoError(t, err)

	snap, err := e.OpenSnapshot(SnapshotWrite, "users", false)
	require.NoError(t, err)
	defer snap.Rollback()
	_, err = snap.AddIndex("age", expr.MustPath("$.age"))
	require.NoError(t, err)
	_, err = snap.AddIndex("age", expr.MustPath("$.age"))
	require.Error(t, err)
	assert.Equal(t, domain.CodeIndexExists, domain.ErrCode(err))
}
