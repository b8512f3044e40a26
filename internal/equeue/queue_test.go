package equeue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFOWithinCoTime(t *testing.T) {
	q := New()
	_, err := q.Insert(10, "a")
	require.NoError(t, err)
	_, err = q.Insert(10, "b")
	require.NoError(t, err)
	_, err = q.Insert(5, "c")
	require.NoError(t, err)

	_, v, ok := q.PopNext()
	require.True(t, ok)
	assert.Equal(t, "c", v)

	_, v, ok = q.PopNext()
	require.True(t, ok)
	assert.Equal(t, "a", v)

	_, v, ok = q.PopNext()
	require.True(t, ok)
	assert.Equal(t, "b", v)

	_, _, ok = q.PopNext()
	assert.False(t, ok)
}

func TestQueue_DeleteByHandle(t *testing.T) {
	q := New()
	_, _ = q.Insert(1, "keep-1")
	h2, _ := q.Insert(2, "drop")
	_, _ = q.Insert(3, "keep-3")

	assert.True(t, q.Delete(h2))
	assert.False(t, q.Delete(h2), "double delete must be a no-op")

	var got []string
	for {
		_, v, ok := q.PopNext()
		if !ok {
			break
		}
		got = append(got, v.(string))
	}
	assert.Equal(t, []string{"keep-1", "keep-3"}, got)
}

func TestQueue_DeleteAfterReorder(t *testing.T) {
	q := New()
	handles := make([]Handle, 0, 8)
	for i := int64(8); i >= 1; i-- {
		h, err := q.Insert(i, i)
		require.NoError(t, err)
		handles = append(handles, h)
	}
	// delete a handle whose backing slot has certainly moved during sift-up
	assert.True(t, q.Delete(handles[0]))
	var seen []int64
	for {
		at, _, ok := q.PopNext()
		if !ok {
			break
		}
		seen = append(seen, at)
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7}, seen)
}

func TestQueue_RejectsPastInsert(t *testing.T) {
	q := New()
	_, _ = q.Insert(5, "x")
	_, _, _ = q.PopNext()
	_, err := q.Insert(4, "y")
	assert.Error(t, err)
}

func TestQueue_Monotonicity(t *testing.T) {
	q := New()
	for _, at := range []int64{3, 1, 4, 1, 5, 9, 2, 6} {
		_, err := q.Insert(at, nil)
		// nothing has been popped yet, so no insert here can fall behind the
		// clock; an error would only skip that value
		if err != nil {
			continue
		}
	}
	var last int64 = -1
	for {
		at, _, ok := q.PopNext()
		if !ok {
			break
		}
		require.GreaterOrEqual(t, at, last)
		last = at
	}
}
