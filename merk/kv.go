// Package merk implements a single AVL+ authenticated Merkle tree
// (spec.md §4.D): feature-typed aggregates, Reference/Loaded/Modified/
// Uncommitted links, an in-place mutation walker, AVL rebalancing, and
// commit/prune against a storage.Context. The recursive build/store
// shape is grounded on the teacher's merkle.Builder (buildTree/
// hashPair), generalized from a fixed Bitcoin binary tree to a balanced,
// keyed, feature-aggregating tree per spec.md and
// original_source/merk/src/tree/mod.rs.
package merk

import (
	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/feature"
	"github.com/dashpay/grovedb-go/hash"
)

// KV is the key/value payload of a tree node (spec.md §3).
type KV struct {
	Key     []byte
	Value   []byte
	KVHash  hash.Hash
	ValueHash hash.Hash
	// ValueDefinedCost, when non-nil, overrides the physical byte count
	// the cost engine charges for this KV (used for aggregate items
	// whose semantic footprint differs from their on-disk size).
	ValueDefinedCost *uint32
	Feature          feature.Type
}

// newKV builds a KV from a plain (non-reference) value, computing both
// hashes and charging the cost.
func newKV(key, value []byte, ft feature.Type) (KV, *cost.Cost) {
	vh, c1 := hash.ValueHash(value)
	kvh, c2 := hash.KVHash(key, vh)
	c1.Add(c2)
	return KV{Key: key, Value: value, ValueHash: vh, KVHash: kvh, Feature: ft}, c1
}

// newKVWithValueHash builds a KV given a precomputed value hash (used by
// combined/layered references whose value_hash is not a plain H(value)).
func newKVWithValueHash(key, value []byte, vh hash.Hash, ft feature.Type) (KV, *cost.Cost) {
	kvh, c := hash.KVHash(key, vh)
	return KV{Key: key, Value: value, ValueHash: vh, KVHash: kvh, Feature: ft}, c
}

// EffectiveValueLen returns the byte length the cost engine should use
// for this KV's value: the ValueDefinedCost override if present,
// otherwise the physical length.
func (kv KV) EffectiveValueLen() int {
	if kv.ValueDefinedCost != nil {
		return int(*kv.ValueDefinedCost)
	}
	return len(kv.Value)
}
