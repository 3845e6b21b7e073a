package proof

import (
	"bytes"

	"github.com/dashpay/grovedb-go/groveerr"
	"github.com/dashpay/grovedb-go/hash"
)

// stackEntry is one value on the execution stack (spec.md §4.E
// "Execute"). kvHash/ hasKV hold the node's own kv_hash, set once at
// Push time and reused every time a Parent/Child op attaches a new
// child, since node_hash = H(kv_hash‖left‖right) must be recomputed from
// scratch whenever either side changes. left/right track whichever
// child hashes have been attached so far (NullHash until attached).
type stackEntry struct {
	kvHash   hash.Hash
	hasKV    bool
	left     hash.Hash
	right    hash.Hash
	rootHash hash.Hash

	lowKey, highKey []byte
	hasKeys         bool
}

func (e stackEntry) recompute() hash.Hash {
	if !e.hasKV {
		return e.rootHash
	}
	h, _ := hash.NodeHash(e.kvHash, e.left, e.right)
	return h
}

func keysOf(n Node) (lo, hi []byte, ok bool) {
	switch n.Kind {
	case NodeKV, NodeKVValueHash, NodeKVDigest, NodeKVRefValueHash, NodeKVValueHashFeatureType:
		return n.Key, n.Key, true
	default:
		return nil, nil, false
	}
}

// Execute runs an op stream against the stack machine described in
// spec.md §4.E: Push(n) pushes a leaf entry; Parent pops the top entry
// (the node just pushed) and the one below it (the left subtree's
// already-computed result), attaching the latter as the former's left
// child; Child does the same for the right child. The *Inverted variants
// swap which side is attached, used when a subtree was traversed
// right-to-left. Returns the single resulting root hash and the set of
// (key, value) pairs witnessed by value-carrying nodes in the stream;
// KVDigest nodes prove a key's place in the tree without its value and
// are not included.
func Execute(ops []Op) (hash.Hash, map[string][]byte, error) {
	var stack []stackEntry
	witnessed := map[string][]byte{}

	pop := func() (stackEntry, error) {
		if len(stack) == 0 {
			return stackEntry{}, groveerr.Proof("execute", "stack underflow")
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return top, nil
	}

	attach := func(top, below stackEntry, attachLeft bool) stackEntry {
		self := top
		if attachLeft {
			self.left = below.recompute()
		} else {
			self.right = below.recompute()
		}
		self.rootHash = self.recompute()
		self = widenKeys(self, below, attachLeft)
		return self
	}

	for _, op := range ops {
		switch op.Kind {
		case OpPush, OpPushInverted:
			n := *op.Node
			lo, hi, ok := keysOf(n)
			if ok && n.Kind != NodeKVDigest {
				witnessed[string(n.Key)] = n.Value
			}
			var e stackEntry
			if n.Kind == NodeHash {
				e = stackEntry{rootHash: n.Hash}
			} else {
				e = stackEntry{kvHash: n.KVHashOf(), hasKV: true, left: hash.NullHash, right: hash.NullHash}
				e.rootHash = e.recompute()
			}
			e.lowKey, e.highKey, e.hasKeys = lo, hi, ok
			stack = append(stack, e)

		case OpParent, OpParentInverted:
			// Push order was [..., child, self]; self (the node that
			// will receive a child) is on top.
			self, err := pop()
			if err != nil {
				return hash.NullHash, nil, err
			}
			child, err := pop()
			if err != nil {
				return hash.NullHash, nil, err
			}
			attachLeft := op.Kind == OpParent
			stack = append(stack, attach(self, child, attachLeft))

		case OpChild, OpChildInverted:
			// Push order was [..., self, child]; the receiving node
			// (already merged with its left child, if any, by a prior
			// Parent) sits one below the just-pushed child on top.
			child, err := pop()
			if err != nil {
				return hash.NullHash, nil, err
			}
			self, err := pop()
			if err != nil {
				return hash.NullHash, nil, err
			}
			attachLeft := op.Kind == OpChildInverted
			stack = append(stack, attach(self, child, attachLeft))

		default:
			return hash.NullHash, nil, groveerr.Proof("execute", "unknown op kind")
		}
	}

	if len(stack) != 1 {
		return hash.NullHash, nil, groveerr.Proof("execute", "stream did not reduce to a single root")
	}
	return stack[0].rootHash, witnessed, nil
}

// widenKeys extends self's witnessed key range to include below's,
// tracking which side below was attached on so range-bound verification
// can check the proved span against the query's bounds.
func widenKeys(self, below stackEntry, attachedLeft bool) stackEntry {
	if !below.hasKeys {
		return self
	}
	if !self.hasKeys {
		self.lowKey, self.highKey, self.hasKeys = below.lowKey, below.highKey, true
		return self
	}
	if attachedLeft {
		if bytes.Compare(below.lowKey, self.lowKey) < 0 {
			self.lowKey = below.lowKey
		}
	} else {
		if bytes.Compare(below.highKey, self.highKey) > 0 {
			self.highKey = below.highKey
		}
	}
	return self
}
