package rqtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTree_MinReflectsMinimumKey(t *testing.T) {
	tr := New[int64]()
	tr.Insert(5, 100)
	tr.Insert(2, 200)
	tr.Insert(9, 300)

	k, id, ok := tr.Min()
	require.True(t, ok)
	assert.Equal(t, int64(2), k)
	assert.Equal(t, int64(200), id)
}

func TestTree_BucketFIFOAndCollapse(t *testing.T) {
	tr := New[int64]()
	tr.Insert(5, 1)
	tr.Insert(5, 2)
	tr.Insert(5, 3)
	assert.Equal(t, 3, tr.Len())

	k, id, ok := tr.PopMin()
	require.True(t, ok)
	assert.Equal(t, int64(5), k)
	assert.Equal(t, int64(1), id, "bucket head is insertion order")

	assert.True(t, tr.Remove(5, 3))
	k, id, ok = tr.PopMin()
	require.True(t, ok)
	assert.Equal(t, int64(2), id)
	assert.Equal(t, 0, tr.Len())

	_, _, ok = tr.Min()
	assert.False(t, ok)
}

func TestTree_RemoveMissing(t *testing.T) {
	tr := New[int64]()
	tr.Insert(1, 10)
	assert.False(t, tr.Remove(1, 99))
	assert.False(t, tr.Remove(2, 10))
	assert.Equal(t, 1, tr.Len())
}
