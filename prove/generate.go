// Package prove implements proof generation and verification over a
// PathQuery (spec.md §4.G, §4.H): it walks a Merk's in-order structure
// to emit the minimal op stream authenticating the queried range, and
// recurses into child Merks for keys that store layered references,
// producing/consuming the nested LayerProof shape.
//
// Grounded on the teacher's merkle.MerkleProof/BuildMerkleProof (the
// sibling-hash-collection walk that only ever needs to emit hashes for
// subtrees outside the path of interest) generalized from a
// single-leaf-path proof to the range/subquery-aware, multi-leaf
// traversal original_source/merk/src/proofs/query/mod.rs performs.
package prove

import (
	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/groveerr"
	"github.com/dashpay/grovedb-go/merk"
	"github.com/dashpay/grovedb-go/proof"
	"github.com/dashpay/grovedb-go/query"
)

// LayerProof is one Merk's op stream plus the nested proofs for any
// layered-reference children the query descended into, keyed by the
// parent key under which the child Merk is rooted (spec.md §4.G step 3).
type LayerProof struct {
	Ops         []proof.Op
	LowerLayers map[string]LayerProof
}

// ChildOpener resolves the child Merk stored under a layered reference
// at the given path, used to recurse into LowerLayers.
type ChildOpener interface {
	OpenChild(path [][]byte, key []byte) (*merk.Merk, error)
}

// Options controls proof-generation behavior (spec.md §4.G, §4.I).
type Options struct {
	DecreaseLimitOnEmptySubQueryResult bool
}

// ProveQuery descends from m (rooted at path) generating the layered
// proof for query, per spec.md §4.G.
func ProveQuery(m *merk.Merk, path [][]byte, q *query.Query, limit, offset *uint32, opener ChildOpener, opts Options) (LayerProof, *cost.Cost, error) {
	total := &cost.Cost{}
	lp := LayerProof{LowerLayers: map[string]LayerProof{}}

	root := m.Root()
	remLimit, remOffset := limit, offset
	ops, err := buildOps(m, root, q.Items, q.LeftToRight, &remLimit, &remOffset, total, nil, true, nil, true)
	if err != nil {
		return lp, total, err
	}
	lp.Ops = ops

	// Recurse into matched leaves that carry a subquery branch (layered
	// reference to a child Merk).
	for _, it := range q.Items {
		branch := q.DefaultSubqueryBranch
		for _, cb := range q.ConditionalSubqueryBranches {
			if cb.Item.Kind == it.Kind {
				branch = cb.Branch
			}
		}
		if branch.Subquery == nil || opener == nil {
			continue
		}
		walkMatches(root, it, func(t *merk.Tree) {
			childPath := append(append([][]byte{}, path...), t.KV.Key)
			child, err := opener.OpenChild(path, t.KV.Key)
			if err != nil {
				return
			}
			childLP, c, err := ProveQuery(child, childPath, branch.Subquery, nil, nil, opener, opts)
			total.Add(c)
			if err == nil {
				lp.LowerLayers[string(t.KV.Key)] = childLP
			}
		})
	}

	return lp, total, nil
}

// walkMatches calls fn for every in-order node whose key is contained in
// item.
func walkMatches(t *merk.Tree, item query.Item, fn func(*merk.Tree)) {
	if t == nil {
		return
	}
	if item.Contains(t.KV.Key) {
		fn(t)
	}
	// Both children may contain matches for range items; Key items can
	// prune based on comparison, but a full walk keeps this simple and
	// correct for the bounded tree sizes GroveDB subtrees have.
	if t.Left != nil && t.Left.Tree != nil {
		walkMatches(t.Left.Tree, item, fn)
	}
	if t.Right != nil && t.Right.Tree != nil {
		walkMatches(t.Right.Tree, item, fn)
	}
}

// buildOps emits the op stream for node covering the given query items,
// per spec.md §4.G step 2: leaves inside range get full KV data, leaves
// outside get compressed Hash/KVDigest forms, and whole subtrees outside
// every item collapse to a single Push(Hash). lo/hi (with their
// unbounded flags) bound the key range every key in node's subtree must
// fall within, narrowed on each descent; when that range shares no key
// with any query item, the whole subtree is pushed as a single Hash
// without being walked further.
func buildOps(m *merk.Merk, node *merk.Tree, items []query.Item, leftToRight bool, limit, offset **uint32, total *cost.Cost, lo []byte, loUnbounded bool, hi []byte, hiUnbounded bool) ([]proof.Op, error) {
	if node == nil {
		return nil, nil
	}
	if limitExhausted(*limit) {
		h := node.Hash()
		return []proof.Op{{Kind: proof.OpPush, Node: &proof.Node{Kind: proof.NodeHash, Hash: h}}}, nil
	}
	if !query.RangeOverlapsAny(items, lo, loUnbounded, hi, hiUnbounded) {
		h := node.Hash()
		return []proof.Op{{Kind: proof.OpPush, Node: &proof.Node{Kind: proof.NodeHash, Hash: h}}}, nil
	}

	inRange := anyContains(items, node.KV.Key)

	leftOps, err := buildSide(m, node.Left, items, leftToRight, limit, offset, total, lo, loUnbounded, node.KV.Key, false)
	if err != nil {
		return nil, err
	}
	rightOps, err := buildSide(m, node.Right, items, leftToRight, limit, offset, total, node.KV.Key, false, hi, hiUnbounded)
	if err != nil {
		return nil, err
	}

	var selfOp proof.Op
	if inRange && !limitExhausted(*limit) {
		consumed := consumeLimitOffset(limit, offset)
		if consumed {
			selfOp = proof.Op{Kind: proof.OpPush, Node: &proof.Node{
				Kind: proof.NodeKVValueHashFeatureType, Key: node.KV.Key, Value: node.KV.Value,
				ValueHash: node.KV.ValueHash, FeatureType: node.KV.Feature,
			}}
		} else {
			selfOp = kvDigestOp(node)
		}
	} else {
		selfOp = kvDigestOp(node)
	}

	var ops []proof.Op
	first, second, firstKind, secondKind := leftOps, rightOps, proof.OpParent, proof.OpChild
	if !leftToRight {
		first, second = rightOps, leftOps
		firstKind, secondKind = proof.OpParentInverted, proof.OpChildInverted
	}
	if len(first) > 0 {
		ops = append(ops, first...)
		ops = append(ops, selfOp, proof.Op{Kind: firstKind})
	} else {
		ops = append(ops, selfOp)
	}
	if len(second) > 0 {
		ops = append(ops, second...)
		ops = append(ops, proof.Op{Kind: secondKind})
	}
	return ops, nil
}

// buildSide resolves child link l and recurses into it, unless the key
// range it could possibly hold shares no key with any query item and
// the limit isn't already exhausted — in which case its cached hash is
// pushed directly without loading the subtree at all (spec.md §4.G
// "subtrees fully outside the range are pushed as a single Hash").
func buildSide(m *merk.Merk, l *merk.Link, items []query.Item, leftToRight bool, limit, offset **uint32, total *cost.Cost, lo []byte, loUnbounded bool, hi []byte, hiUnbounded bool) ([]proof.Op, error) {
	if l == nil {
		return nil, nil
	}
	if l.State != merk.LinkModified && !limitExhausted(*limit) && !query.RangeOverlapsAny(items, lo, loUnbounded, hi, hiUnbounded) {
		return []proof.Op{{Kind: proof.OpPush, Node: &proof.Node{Kind: proof.NodeHash, Hash: l.Hash}}}, nil
	}
	t, c, err := m.ResolveChild(l)
	total.Add(c)
	if err != nil {
		return nil, groveerr.Wrap(groveerr.InvalidProof, "prove: resolve child", err)
	}
	return buildOps(m, t, items, leftToRight, limit, offset, total, lo, loUnbounded, hi, hiUnbounded)
}

func kvDigestOp(node *merk.Tree) proof.Op {
	return proof.Op{Kind: proof.OpPush, Node: &proof.Node{
		Kind: proof.NodeKVDigest, Key: node.KV.Key, ValueHash: node.KV.ValueHash,
	}}
}

func anyContains(items []query.Item, key []byte) bool {
	for _, it := range items {
		if it.Contains(key) {
			return true
		}
	}
	return false
}

func limitExhausted(limit *uint32) bool {
	return limit != nil && *limit == 0
}

// consumeLimitOffset applies one matched key against the remaining
// offset/limit (spec.md §4.G "Limits and offsets"): offset is decremented
// first and, while positive, suppresses emitting full KV data; once
// offset reaches zero, limit is decremented per emitted match and
// returns false once exhausted.
func consumeLimitOffset(limit, offset **uint32) bool {
	if *offset != nil && **offset > 0 {
		v := **offset - 1
		*offset = &v
		return false
	}
	if *limit == nil {
		return true
	}
	if **limit == 0 {
		return false
	}
	v := **limit - 1
	*limit = &v
	return true
}
