package merk

import (
	"github.com/dashpay/grovedb-go/feature"
	"github.com/dashpay/grovedb-go/hash"
)

// LinkState is which of the four states a Link is in (spec.md §3).
type LinkState uint8

const (
	// LinkReference: on-disk only, not loaded into memory.
	LinkReference LinkState = iota
	// LinkLoaded: fetched from storage, unchanged since.
	LinkLoaded
	// LinkModified: in-memory, must be committed.
	LinkModified
	// LinkUncommitted: hashed but not yet persisted.
	LinkUncommitted
)

// ChildHeights is the (left, right) height pair cached alongside a link
// so AVL balance factors can be computed without loading the child.
type ChildHeights [2]uint8

// Link is the relation from a Merk node to a child subtree (spec.md §3):
// exactly one of Reference{hash, child_heights, key}, Loaded{tree, hash,
// child_heights}, Modified{tree, child_heights, pending_writes}, or
// Uncommitted{tree, hash, child_heights}.
type Link struct {
	State        LinkState
	Hash         hash.Hash    // meaningful in Reference, Loaded, Uncommitted
	ChildHeights ChildHeights // cached heights of the child's own children
	Key          []byte       // meaningful in Reference only (child's key, to fetch it)
	Tree         *Tree        // meaningful in Loaded, Modified, Uncommitted
	// Aggregate is the child subtree's rolled-up feature aggregate,
	// cached here (like Hash and ChildHeights) so a parent can read a
	// child's propagated sum/count without loading it (spec.md §3 "a
	// parent propagates its children's aggregates").
	Aggregate feature.Aggregate
	// PendingWrites counts in-memory mutations not yet committed; purely
	// informational bookkeeping mirroring the Rust Modified variant.
	PendingWrites int
}

// Height returns 1 + max(child heights) for this link's subtree, without
// requiring the subtree to be loaded.
func (l *Link) Height() uint8 {
	if l == nil {
		return 0
	}
	h := l.ChildHeights[0]
	if l.ChildHeights[1] > h {
		h = l.ChildHeights[1]
	}
	return h + 1
}

// IsLoaded reports whether the link's Tree pointer is safe to dereference
// without a storage fetch.
func (l *Link) IsLoaded() bool {
	return l != nil && l.State != LinkReference
}

// referenceLink builds a Link of state Reference (the initial
// deserialized state of a committed child, known only by hash, key, and
// its cached rolled-up aggregate).
func referenceLink(h hash.Hash, heights ChildHeights, key []byte, agg feature.Aggregate) *Link {
	return &Link{State: LinkReference, Hash: h, ChildHeights: heights, Key: append([]byte(nil), key...), Aggregate: agg}
}

// loadedLink wraps an in-memory Tree as a Loaded (unchanged-since-fetch)
// link.
func loadedLink(t *Tree) *Link {
	return &Link{State: LinkLoaded, Tree: t, Hash: t.Hash(), ChildHeights: t.childHeightsOfSelf(), Aggregate: t.Aggregate}
}

// modifiedLink wraps an in-memory Tree that has pending, uncommitted
// mutations.
func modifiedLink(t *Tree, pending int) *Link {
	return &Link{State: LinkModified, Tree: t, ChildHeights: t.childHeightsOfSelf(), Aggregate: t.Aggregate, PendingWrites: pending}
}
