package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattbab/LiteDB/pkg/domain"
	"github.com/mattbab/LiteDB/pkg/expr"
	"github.com/mattbab/LiteDB/pkg/storage"
)

func newTestEngine(t *testing.T, options ...storage.Option) *Engine {
	t.Helper()
	options = append([]storage.Option{storage.WithDataDir(t.TempDir())}, options...)
	st, err := storage.NewEngine(options...)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st)
}

func doc(id int64, fields ...any) *domain.Document {
	d := domain.NewDocument().Set(domain.IDField, domain.Int64(id))
	for i := 0; i+1 < len(fields); i += 2 {
		d.Set(fields[i].(string), fields[i+1].(domain.Value))
	}
	return d
}

func seedPeople(t *testing.T, e *Engine) {
	t.Helper()
	require.NoError(t, e.CreateCollection("people"))
	require.NoError(t, e.EnsureIndex("people", "idx_name", "$.name"))
	_, err := e.Insert("people",
		doc(1, "name", domain.String("ana"), "age", domain.Int32(30)),
		doc(2, "name", domain.String("bea"), "age", domain.Int32(40)),
		doc(3, "name", domain.String("cui"), "age", domain.Int32(50)),
	)
	require.NoError(t, err)
}

func TestUpdateRewritesDocumentInPlace(t *testing.T) {
	e := newTestEngine(t)
	seedPeople(t, e)

	updated, err := e.Update("people", doc(2, "name", domain.String("beatriz"), "age", domain.Int32(41)))
	require.NoError(t, err)
	assert.True(t, updated)

	got, err := e.FindByID("people", domain.Int64(2))
	require.NoError(t, err)
	name, _ := got.Get("name")
	assert.True(t, name.Equal(domain.String("beatriz")))

	col, err := e.Storage().Collection("people")
	require.NoError(t, err)
	assert.Equal(t, 3, col.DocumentCount())
}

func TestUpdateAbsentIDIsBenignSkip(t *testing.T) {
	e := newTestEngine(t)
	seedPeople(t, e)

	col, err := e.Storage().Collection("people")
	require.NoError(t, err)
	before := col.Indexes().Stats()

	updated, err := e.Update("people", doc(99, "name", domain.String("ghost")))
	require.NoError(t, err)
	assert.False(t, updated)

	// nothing was touched, not even index nodes
	assert.Equal(t, before, col.Indexes().Stats())
	assert.Equal(t, 3, col.DocumentCount())
}

func TestUpdateKeepsSecondaryIndexInSync(t *testing.T) {
	e := newTestEngine(t)
	seedPeople(t, e)

	_, err := e.Update("people", doc(1, "name", domain.String("anita")))
	require.NoError(t, err)

	byOld, err := e.Find("people", expr.Eq(expr.Field("name"), domain.String("ana")))
	require.NoError(t, err)
	assert.Empty(t, byOld)

	byNew, err := e.Find("people", expr.Eq(expr.Field("name"), domain.String("anita")))
	require.NoError(t, err)
	require.Len(t, byNew, 1)
	id, _ := byNew[0].ID()
	assert.True(t, id.Equal(domain.Int64(1)))
}

func TestUpdateUnchangedKeysCauseNoIndexChurn(t *testing.T) {
	e := newTestEngine(t)
	seedPeople(t, e)

	col, err := e.Storage().Collection("people")
	require.NoError(t, err)
	before := col.Indexes().Stats()

	// same name, different age: the name index plans an empty delta
	_, err = e.Update("people", doc(2, "name", domain.String("bea"), "age", domain.Int32(99)))
	require.NoError(t, err)
	assert.Equal(t, before, col.Indexes().Stats())
}

func TestUpdateArrayFanOutDelta(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.CreateCollection("posts"))
	require.NoError(t, e.EnsureIndex("posts", "idx_tags", "$.tags[*]"))
	_, err := e.Insert("posts",
		doc(1, "tags", domain.Array(domain.String("go"), domain.String("db"))))
	require.NoError(t, err)

	_, err = e.Update("posts",
		doc(1, "tags", domain.Array(domain.String("go"), domain.String("wal"))))
	require.NoError(t, err)

	byDropped, err := e.Find("posts", expr.Eq(expr.Field("tags"), domain.String("db")))
	require.NoError(t, err)
	assert.Empty(t, byDropped)

	byKept, err := e.Find("posts", expr.Eq(expr.Field("tags"), domain.String("go")))
	require.NoError(t, err)
	assert.Len(t, byKept, 1)

	byAdded, err := e.Find("posts", expr.Eq(expr.Field("tags"), domain.String("wal")))
	require.NoError(t, err)
	assert.Len(t, byAdded, 1)
}

func TestUpdateRejectsBadIdentity(t *testing.T) {
	e := newTestEngine(t)
	seedPeople(t, e)

	tests := []struct {
		name string
		doc  *domain.Document
	}{
		{"missing id", domain.NewDocument().Set("name", domain.String("x"))},
		{"null id", domain.NewDocument().Set(domain.IDField, domain.Null())},
		{"min sentinel", domain.NewDocument().Set(domain.IDField, domain.MinValue)},
		{"max sentinel", domain.NewDocument().Set(domain.IDField, domain.MaxValue)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Update("people", tc.doc)
			require.Error(t, err)
			assert.True(t, domain.IsInvalidDataType(err))
		})
	}
}

func TestUpdateAllCountsOnlyRealUpdates(t *testing.T) {
	e := newTestEngine(t)
	seedPeople(t, e)

	count, err := e.UpdateAll("people", NewSliceSource(
		doc(1, "age", domain.Int32(31)),
		doc(99, "age", domain.Int32(0)),
		doc(3, "age", domain.Int32(51)),
	))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUpdateAllRollsBackWholeBatch(t *testing.T) {
	// threshold 1 forces a safepoint flush before the failing document,
	// so the rollback has to undo work already written to the log
	e := newTestEngine(t, storage.WithSafepointThreshold(1))
	seedPeople(t, e)

	_, err := e.UpdateAll("people", NewSliceSource(
		doc(1, "name", domain.String("mutated")),
		domain.NewDocument().Set(domain.IDField, domain.Null()),
	))
	require.Error(t, err)
	assert.True(t, domain.IsInvalidDataType(err))

	got, err := e.FindByID("people", domain.Int64(1))
	require.NoError(t, err)
	name, _ := got.Get("name")
	assert.True(t, name.Equal(domain.String("ana")), "first document must be restored, got %v", name)

	byName, err := e.Find("people", expr.Eq(expr.Field("name"), domain.String("mutated")))
	require.NoError(t, err)
	assert.Empty(t, byName)
}

func TestUpdateAllValidatesArguments(t *testing.T) {
	e := newTestEngine(t)
	seedPeople(t, e)

	_, err := e.UpdateAll("", NewSliceSource())
	assert.True(t, domain.IsInvalidArgument(err))

	_, err = e.UpdateAll("people", nil)
	assert.True(t, domain.IsInvalidArgument(err))

	_, err = e.UpdateAll("nope", NewSliceSource())
	assert.True(t, domain.IsNotFound(err))
}

func TestUpdateGrowingDocumentKeepsStableID(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.CreateCollection("blobs"))
	_, err := e.Insert("blobs", doc(7, "payload", domain.String("tiny")))
	require.NoError(t, err)

	// grow well past one block so the chain has to extend
	big := make([]byte, 20000)
	for i := range big {
		big[i] = byte('a' + i%26)
	}
	_, err = e.Update("blobs", doc(7, "payload", domain.String(string(big))))
	require.NoError(t, err)

	got, err := e.FindByID("blobs", domain.Int64(7))
	require.NoError(t, err)
	payload, _ := got.Get("payload")
	s, err := payload.AsString()
	require.NoError(t, err)
	assert.Equal(t, string(big), s)

	// and shrink back down
	_, err = e.Update("blobs", doc(7, "payload", domain.String("tiny again")))
	require.NoError(t, err)
	got, err = e.FindByID("blobs", domain.Int64(7))
	require.NoError(t, err)
	payload, _ = got.Get("payload")
	s, err = payload.AsString()
	require.NoError(t, err)
	assert.Equal(t, "tiny again", s)
}
