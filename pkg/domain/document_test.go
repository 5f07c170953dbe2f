package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentOrderPreserved(t *testing.T) {
	doc := NewDocument().
		Set("z", Int32(1)).
		Set("a", Int32(2)).
		Set("m", Int32(3))
	assert.Equal(t, []string{"z", "a", "m"}, doc.Fields())

	// overwriting keeps position
	doc.Set("a", Int32(9))
	assert.Equal(t, []string{"z", "a", "m"}, doc.Fields())
	v, _ := doc.Get("a")
	i, err := v.AsInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(9), i)

	doc.Remove("z")
	assert.Equal(t, []string{"a", "m"}, doc.Fields())
}

func TestDocumentMerge(t *testing.T) {
	orig := NewDocument().
		Set("a", Int32(1)).
		Set("b", Int32(2)).
		Set(IDField, Int32(5))
	patch := NewDocument().
		Set("b", Int32(3)).
		Set("c", Int32(4))

	merged := orig.Merge(patch)
	assert.Equal(t, "{a: 1, b: 3, _id: 5, c: 4}", merged.String())

	// inputs untouched
	b, _ := orig.Get("b")
	assert.True(t, b.Equal(Int32(2)))
	assert.False(t, patch.Has("a"))
}

func TestDocumentMarshalRoundTrip(t *testing.T) {
	nested := NewDocument().Set("inner", String("deep"))
	doc := NewDocument().
		Set(IDField, Int64(42)).
		Set("name", String("Alice")).
		Set("score", Double(9.75)).
		Set("tags", Array(String("a"), String("b"), String("a"))).
		Set("bin", Binary([]byte{0xde, 0xad})).
		Set("active", Bool(true)).
		Set("joined", Date(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))).
		Set("profile", DocumentValue(nested)).
		Set("nothing", Null())

	raw, err := doc.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalDocument(raw)
	require.NoError(t, err)
	assert.Equal(t, doc.Fields(), got.Fields())
	for _, name := range doc.Fields() {
		want, _ := doc.Get(name)
		have, ok := got.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, want.Kind(), have.Kind(), name)
		assert.True(t, want.Equal(have), "field %s: %s != %s", name, want, have)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	_, err := UnmarshalDocument([]byte{0xff, 0x00, 0x13})
	assert.Error(t, err)
}

func TestCloneIsDeep(t *testing.T) {
	doc := NewDocument().Set("arr", Array(Int32(1)))
	clone := doc.Clone()
	v, _ := clone.Get("arr")
	arr, err := v.AsArray()
	require.NoError(t, err)
	arr[0] = Int32(99)

	orig, _ := doc.Get("arr")
	origArr, _ := orig.AsArray()
	assert.True(t, origArr[0].Equal(Int32(1)))
}
