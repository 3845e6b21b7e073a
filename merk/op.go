package merk

import "github.com/dashpay/grovedb-go/feature"

// OpKind tags which mutation a KeyOp applies (spec.md §4.D "Ops applied
// per key").
type OpKind uint8

const (
	OpPut OpKind = iota
	OpPutWithSpecializedCost
	OpPutCombinedReference
	OpPutLayeredReference
	OpReplaceLayeredReference
	OpDelete
	OpRefreshReference
)

// KeyOp pairs a key with the Op to apply to it, the unit Merk.Apply's
// batch is made of.
type KeyOp struct {
	Key     []byte
	Kind    OpKind
	Value   []byte
	Feature feature.Type

	// CostOverride is used by PutWithSpecializedCost to fix the cost
	// used for parent-hook sizing (spec.md §4.D), e.g. for sum/count
	// items whose semantic footprint differs from their physical size.
	CostOverride *uint32

	// ReferencedHash is the target hash for PutCombinedReference: the
	// value is reference-encoded bytes, and value_hash =
	// combine(H(value), referenced_hash).
	ReferencedHash [32]byte

	// SubtreeRootHash is the child Merk's current root hash, used by
	// PutLayeredReference/ReplaceLayeredReference/RefreshReference to
	// compute the layered value_hash (spec.md §4.B).
	SubtreeRootHash [32]byte
	// SubtreeCost is PutLayeredReference's subtree_cost parameter: the
	// declared on-disk cost of the pointed-to subtree, consulted by the
	// cost engine rather than hashing.
	SubtreeCost *uint32
}

// Put builds a Put(value, feature_type) op: insert or replace.
func Put(key, value []byte, ft feature.Type) KeyOp {
	return KeyOp{Key: key, Kind: OpPut, Value: value, Feature: ft}
}

// PutWithSpecializedCost builds a PutWithSpecializedCost op.
func PutWithSpecializedCost(key, value []byte, costOverride uint32, ft feature.Type) KeyOp {
	return KeyOp{Key: key, Kind: OpPutWithSpecializedCost, Value: value, Feature: ft, CostOverride: &costOverride}
}

// PutCombinedReference builds a PutCombinedReference op.
func PutCombinedReference(key, value []byte, referencedHash [32]byte, ft feature.Type) KeyOp {
	return KeyOp{Key: key, Kind: OpPutCombinedReference, Value: value, Feature: ft, ReferencedHash: referencedHash}
}

// PutLayeredReference builds a PutLayeredReference op: a node whose
// value is a pointer to another Merk's root.
func PutLayeredReference(key, value []byte, subtreeCost uint32, subtreeRootHash [32]byte, ft feature.Type) KeyOp {
	return KeyOp{
		Key: key, Kind: OpPutLayeredReference, Value: value, Feature: ft,
		SubtreeRootHash: subtreeRootHash, SubtreeCost: &subtreeCost,
	}
}

// ReplaceLayeredReference builds a ReplaceLayeredReference op: identical
// data shape to PutLayeredReference, but the caller asserts the key
// already exists, letting the executor skip a membership proof.
func ReplaceLayeredReference(key, value []byte, subtreeCost uint32, subtreeRootHash [32]byte, ft feature.Type) KeyOp {
	op := PutLayeredReference(key, value, subtreeCost, subtreeRootHash, ft)
	op.Kind = OpReplaceLayeredReference
	return op
}

// Delete builds a Delete op.
func Delete(key []byte) KeyOp {
	return KeyOp{Key: key, Kind: OpDelete}
}

// RefreshReference builds a RefreshReference op: the element's subtree
// hash changed; re-propagate without touching the element bytes.
func RefreshReference(key []byte, subtreeRootHash [32]byte, ft feature.Type) KeyOp {
	return KeyOp{Key: key, Kind: OpRefreshReference, Feature: ft, SubtreeRootHash: subtreeRootHash}
}
