package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattbab/LiteDB/pkg/storage"
)

func TestEmptyCollectionAndIndexSurviveReopen(t *testing.T) {
	dir := t.TempDir()

	st, err := storage.NewEngine(storage.WithDataDir(dir))
	require.NoError(t, err)
	e := New(st)
	require.NoError(t, e.CreateCollection("events"))
	require.NoError(t, e.EnsureIndex("events", "idx_kind", "$.kind"))
	require.NoError(t, e.Close())

	st2, err := storage.NewEngine(storage.WithDataDir(dir))
	require.NoError(t, err)
	defer st2.Close()

	col, err := st2.Collection("events")
	require.NoError(t, err)
	assert.Equal(t, 0, col.DocumentCount())
	assert.NotNil(t, col.Indexes().ByName("idx_kind"))
}
