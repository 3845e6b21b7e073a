// Package hash implements GroveDB's blake3-based hashing scheme: the
// value/kv/node hash composition described in spec.md §4.B, charged
// against the cost ledger the way every other GroveDB primitive is.
package hash

import (
	"github.com/bsv-blockchain/go-sdk/chainhash"
	"lukechampine.com/blake3"

	"github.com/dashpay/grovedb-go/cost"
)

// Hash is a fixed 32-byte digest. Aliased to chainhash.Hash, the same
// pattern the teacher used for its own fixed-digest type.
type Hash = chainhash.Hash

// Length is the byte length of a Hash.
const Length = 32

// HashBlockSize is the block size the cost model charges hashing against:
// §4.B "the cost model charges ⌈len/64⌉ blocks" regardless of content.
const HashBlockSize = 64

// NullHash is the all-zero digest used for absent children and empty Merks.
var NullHash = Hash{}

func blocks(n int) uint64 {
	return uint64((n + HashBlockSize - 1) / HashBlockSize)
}

// ValueHash computes H(value) and charges one hash_node_calls plus the
// block-count cost for the value's length.
func ValueHash(value []byte) (Hash, *cost.Cost) {
	c := &cost.Cost{HashNodeCalls: 1}
	c.HashByteBlocks += blocks(len(value))
	return blake3.Sum256(value), c
}

// Combine computes H(a‖b), used both for layered-reference value hashes
// and for node_hash composition.
func Combine(a, b Hash) (Hash, *cost.Cost) {
	var buf [2 * Length]byte
	copy(buf[:Length], a[:])
	copy(buf[Length:], b[:])
	c := &cost.Cost{HashNodeCalls: 1, HashByteBlocks: blocks(len(buf))}
	return blake3.Sum256(buf[:]), c
}

// KVHash computes kv_hash(k, vh) = H(H(k) ‖ vh).
func KVHash(key []byte, valueHash Hash) (Hash, *cost.Cost) {
	keyHash, c1 := ValueHash(key)
	out, c2 := Combine(keyHash, valueHash)
	c1.Add(c2)
	return out, c1
}

// NodeHash computes node_hash(kvh, lh, rh) = H(kvh ‖ lh ‖ rh). Absent
// children must be passed as NullHash by the caller.
func NodeHash(kvHash, leftHash, rightHash Hash) (Hash, *cost.Cost) {
	var buf [3 * Length]byte
	copy(buf[0:Length], kvHash[:])
	copy(buf[Length:2*Length], leftHash[:])
	copy(buf[2*Length:], rightHash[:])
	c := &cost.Cost{HashNodeCalls: 1, HashByteBlocks: blocks(len(buf))}
	return blake3.Sum256(buf[:]), c
}

// LayeredValueHash computes the value_hash of a node whose value is a
// layered reference (a pointer to another Merk's root): §4.B,
// value_hash = H(H(serialized_value) ‖ subtree_root_hash).
func LayeredValueHash(serializedValue []byte, subtreeRootHash Hash) (Hash, *cost.Cost) {
	inner, c1 := ValueHash(serializedValue)
	out, c2 := Combine(inner, subtreeRootHash)
	c1.Add(c2)
	return out, c1
}

// CombinedValueHash computes the value_hash of a PutCombinedReference
// element: value_hash = combine(H(value), referenced_hash).
func CombinedValueHash(value []byte, referencedHash Hash) (Hash, *cost.Cost) {
	return LayeredValueHash(value, referencedHash)
}
