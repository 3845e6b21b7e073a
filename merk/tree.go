package merk

import (
	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/feature"
	"github.com/dashpay/grovedb-go/hash"
)

// Tree is one AVL+ node (spec.md §3): {kv, left, right,
// old_size_with_parent_to_child_hook, old_value?}. Children are held as
// *Link rather than bare *Tree so a child can be a Reference (not yet
// loaded), Loaded, Modified, or Uncommitted.
type Tree struct {
	KV    KV
	Left  *Link
	Right *Link

	// Aggregate is this node's own feature value combined with both
	// children's rolled-up aggregates (spec.md §3 "Feature type… decides
	// what aggregate a parent propagates"). Recomputed by RecomputeHash
	// alongside the node hash, since both are pure functions of the same
	// inputs (own KV plus child links).
	Aggregate feature.Aggregate

	// nodeHash caches NodeHash(kv_hash, left_hash, right_hash); cleared
	// (zeroed) whenever the node or a child link is mutated, and
	// recomputed by RecomputeHash.
	nodeHash    hash.Hash
	hashIsValid bool

	// OldSizeWithParentToChildHook and OldValue capture pre-mutation
	// state so the cost engine can compute replaced/removed bytes on
	// commit (spec.md §3 Tree invariants).
	OldSizeWithParentToChildHook uint32
	OldValue                     []byte
	hadOldValue                  bool
}

// NewLeaf creates a leaf Tree node (no children) from a key/value pair
// and feature type, grounded on the teacher's Tree.new(key, value)
// pattern (merkle.Builder.buildTree builds nodes the same "hash then
// construct" way, minus balancing).
func NewLeaf(key, value []byte, ft feature.Type) (*Tree, *cost.Cost) {
	kv, c := newKV(key, value, ft)
	t := &Tree{KV: kv}
	t.RecomputeHash()
	return t, c
}

// NewLeafWithValueHash creates a leaf node whose value_hash is supplied
// directly (combined/layered references, spec.md §4.B).
func NewLeafWithValueHash(key, value []byte, vh hash.Hash, ft feature.Type) (*Tree, *cost.Cost) {
	kv, c := newKVWithValueHash(key, value, vh, ft)
	t := &Tree{KV: kv}
	t.RecomputeHash()
	return t, c
}

func childHash(l *Link) hash.Hash {
	if l == nil {
		return hash.NullHash
	}
	return l.Hash
}

// childAggregate returns l's cached rolled-up aggregate, or the zero
// Aggregate for an absent child — which contributes nothing under
// Combine regardless of the tree's feature tag, since Combine only ever
// reads the fields its own Tag cares about.
func childAggregate(l *Link) feature.Aggregate {
	if l == nil {
		return feature.Aggregate{}
	}
	return l.Aggregate
}

// RecomputeHash recomputes and caches this node's node_hash from its
// current kv_hash and child link hashes, and rolls this node's feature
// value up with both children's cached aggregates into Aggregate
// (spec.md §3). Callers must call this after any mutation to this node
// or to either child link.
func (t *Tree) RecomputeHash() *cost.Cost {
	h, c := hash.NodeHash(t.KV.KVHash, childHash(t.Left), childHash(t.Right))
	t.nodeHash = h
	t.hashIsValid = true

	agg := feature.FromType(t.KV.Feature)
	agg = feature.Combine(agg, childAggregate(t.Left))
	agg = feature.Combine(agg, childAggregate(t.Right))
	t.Aggregate = agg

	return c
}

// Hash returns the cached node_hash, calling RecomputeHash first when
// the cached value is not valid.
func (t *Tree) Hash() hash.Hash {
	if !t.hashIsValid {
		t.RecomputeHash()
	}
	return t.nodeHash
}

// Height returns 1 + max(left height, right height), 0 for a nil tree.
func (t *Tree) Height() uint8 {
	if t == nil {
		return 0
	}
	lh := t.Left.Height()
	rh := t.Right.Height()
	if lh > rh {
		return lh + 1
	}
	return rh + 1
}

// childHeightsOfSelf returns this node's own two child heights, the pair
// stored alongside a Link pointing at this node.
func (t *Tree) childHeightsOfSelf() ChildHeights {
	return ChildHeights{t.Left.Height(), t.Right.Height()}
}

// BalanceFactor is height(right) - height(left); AVL requires |bf| <= 1
// (spec.md §3 Tree invariants, §8 property 2).
func (t *Tree) BalanceFactor() int {
	return int(t.Right.Height()) - int(t.Left.Height())
}

// child returns the child link for the given side (true = left).
func (t *Tree) child(left bool) *Link {
	if left {
		return t.Left
	}
	return t.Right
}

// setChild assigns the child link for the given side and invalidates the
// cached node hash (the caller must RecomputeHash before the hash is
// read again).
func (t *Tree) setChild(left bool, l *Link) {
	if left {
		t.Left = l
	} else {
		t.Right = l
	}
	t.hashIsValid = false
}
