// Package rqtree implements the balanced ordered-map runqueue described in
// spec.md §4.3: an integer-keyed ordered map with duplicate-key bucketing,
// used by the SJF/SRTF policy (keyed by remaining runtime) and the Fair
// policy (keyed by vruntime).
//
// No tree/ordered-map implementation appears anywhere in the retrieved
// example pack, so this reaches for github.com/google/btree, the standard
// idiomatic choice for an ordered integer-keyed collection in Go (used by
// etcd, CockroachDB, and others) in place of hand-rolling a red-black tree;
// see DESIGN.md.
package rqtree

import "github.com/google/btree"

const degree = 32

type node[V comparable] struct {
	key    int64
	bucket []V // insertion order; bucket[0] is the head
}

// Tree is an ordered map from int64 key to a FIFO bucket of values
// (spec.md's "sum type of Single(task_id) / Bucket(list<task_id>)",
// collapsed here to a slice that degenerates to length 1 for the common
// case).
type Tree[V comparable] struct {
	bt   *btree.BTreeG[*node[V]]
	size int
}

// New returns an empty Tree.
func New[V comparable]() *Tree[V] {
	return &Tree[V]{
		bt: btree.NewG[*node[V]](degree, func(a, b *node[V]) bool { return a.key < b.key }),
	}
}

// Len reports the number of values held across all buckets.
func (t *Tree[V]) Len() int { return t.size }

// Insert adds value under key, appending to the bucket if one already
// exists at that key.
func (t *Tree[V]) Insert(key int64, value V) {
	probe := &node[V]{key: key}
	if existing, ok := t.bt.Get(probe); ok {
		existing.bucket = append(existing.bucket, value)
	} else {
		t.bt.ReplaceOrInsert(&node[V]{key: key, bucket: []V{value}})
	}
	t.size++
}

// Remove deletes value from the bucket at key, collapsing or removing the
// node as needed. It reports whether value was found.
func (t *Tree[V]) Remove(key int64, value V) bool {
	probe := &node[V]{key: key}
	n, ok := t.bt.Get(probe)
	if !ok {
		return false
	}
	idx := -1
	for i, v := range n.bucket {
		if v == value {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	n.bucket = append(n.bucket[:idx], n.bucket[idx+1:]...)
	if len(n.bucket) == 0 {
		t.bt.Delete(probe)
	}
	t.size--
	return true
}

// Min returns the value at the head of the lowest-keyed bucket, without
// removing it.
func (t *Tree[V]) Min() (key int64, value V, ok bool) {
	n, ok := t.bt.Min()
	if !ok {
		var zero V
		return 0, zero, false
	}
	return n.key, n.bucket[0], true
}

// PopMin removes and returns the value at the head of the lowest-keyed
// bucket, collapsing/removing the node if it becomes empty.
func (t *Tree[V]) PopMin() (key int64, value V, ok bool) {
	n, ok := t.bt.Min()
	if !ok {
		var zero V
		return 0, zero, false
	}
	value = n.bucket[0]
	key = n.key
	if len(n.bucket) == 1 {
		t.bt.DeleteMin()
	} else {
		n.bucket = n.bucket[1:]
	}
	t.size--
	return key, value, true
}
