// Package chunk implements GroveDB's depth-bounded chunk/trunk proof
// producer (spec.md §4.J): partitioning a Merk into chunks of at most
// chunk_depth levels for trustless replication, and a trunk query
// exposing each top-level leaf's {hash, count} for privacy-preserving
// (k-anonymity) descent.
//
// Grounded on original_source/merk/src/proofs/chunk/chunk.rs's
// create_chunk_internal (push order: left-subtree ops, self as
// KVValueHashFeatureType, Parent, right-subtree ops, Child — reused
// verbatim from that file) and
// original_source/merk/src/merk/chunks2.rs's ChunkProducer/MultiChunk
// shape for multi_chunk_with_limit's greedy packing. This
// implementation supports a two-level trunk+branch partition (the
// shape spec.md §4.J's privacy-count discussion centers on); arbitrarily
// deep nested chunk layers follow the identical recursive rule and are
// not implemented here.
package chunk

import (
	"github.com/dashpay/grovedb-go/groveerr"
	"github.com/dashpay/grovedb-go/hash"
	"github.com/dashpay/grovedb-go/merk"
	"github.com/dashpay/grovedb-go/proof"
)

// ID identifies a chunk by its root-to-chunk traversal instruction: a
// sequence of left(false)/right(true) steps from the Merk's root,
// following original_source chunks2.rs's ChunkIdentifier shape.
type ID []bool

// Producer generates chunk proofs over a single Merk, bounded to
// maxDepth levels per chunk (spec.md §4.J).
type Producer struct {
	m        *merk.Merk
	maxDepth int
}

// NewProducer constructs a chunk Producer for m with the given maximum
// per-chunk depth.
func NewProducer(m *merk.Merk, maxDepth int) *Producer {
	if maxDepth < 1 {
		maxDepth = 1
	}
	return &Producer{m: m, maxDepth: maxDepth}
}

// NumberOfChunks returns the chunk count for a Merk of the given height,
// per spec.md §4.J's formula specialized to a single branch layer below
// the trunk: 1 (trunk) + 2^chunkDepth (one branch per trunk leaf) when
// height exceeds chunkDepth, else 1 (the whole tree fits in one chunk).
func (p *Producer) NumberOfChunks(height int) int {
	chunkDepth := p.maxDepth
	if height <= chunkDepth {
		return 1
	}
	return 1 + pow2(chunkDepth)
}

func pow2(n int) int {
	r := 1
	for i := 0; i < n; i++ {
		r *= 2
	}
	return r
}

// Chunk returns the op stream reconstructing chunk index, per spec.md
// §4.J: index 0 is the trunk (top maxDepth levels); indices 1..2^d are
// the branches hanging off each trunk leaf, addressed by the
// left/right traversal instruction for that leaf.
func (p *Producer) Chunk(index int) ([]proof.Op, error) {
	root := p.m.Root()
	if root == nil {
		return nil, groveerr.Chunking(groveerr.ChunkEmptyTree, "chunk: empty tree")
	}
	if index == 0 {
		return p.buildChunk(root, p.maxDepth)
	}

	instr := instructionFor(index-1, p.maxDepth)
	node, err := p.traverse(root, instr)
	if err != nil {
		return nil, err
	}
	return p.buildChunk(node, p.maxDepth)
}

// traverse walks instr (left=false, right=true) from node, loading
// children as needed.
func (p *Producer) traverse(node *merk.Tree, instr []bool) (*merk.Tree, error) {
	cur := node
	for _, goRight := range instr {
		var link *merk.Link
		if goRight {
			link = cur.Right
		} else {
			link = cur.Left
		}
		if link == nil {
			return nil, groveerr.Chunking(groveerr.ChunkBadTraversalInstruction, "chunk: no node at given traversal instruction")
		}
		t, _, err := p.m.ResolveChild(link)
		if err != nil {
			return nil, groveerr.Wrap(groveerr.ChunkingError, "chunk: traverse", err)
		}
		cur = t
	}
	return cur, nil
}

// instructionFor maps a 0-based branch index to its left/right
// traversal instruction of the given depth, in left-to-right order
// (index 0 = all-left, index 2^depth-1 = all-right).
func instructionFor(index, depth int) []bool {
	out := make([]bool, depth)
	for i := depth - 1; i >= 0; i-- {
		out[i] = index&1 == 1
		index >>= 1
	}
	return out
}

// buildChunk emits the op stream for node's subtree down to
// remainingDepth levels, pushing a bare Hash for anything deeper
// (spec.md §4.J "chunk(i)"), grounded verbatim on chunk.rs's
// create_chunk_internal.
func (p *Producer) buildChunk(node *merk.Tree, remainingDepth int) ([]proof.Op, error) {
	if remainingDepth == 0 {
		return []proof.Op{{Kind: proof.OpPush, Node: &proof.Node{Kind: proof.NodeHash, Hash: node.Hash()}}}, nil
	}

	var ops []proof.Op
	hasLeft := node.Left != nil
	if hasLeft {
		leftTree, _, err := p.m.ResolveChild(node.Left)
		if err != nil {
			return nil, groveerr.Wrap(groveerr.ChunkingError, "chunk: resolve left", err)
		}
		leftOps, err := p.buildChunk(leftTree, remainingDepth-1)
		if err != nil {
			return nil, err
		}
		ops = append(ops, leftOps...)
	}

	ops = append(ops, proof.Op{Kind: proof.OpPush, Node: &proof.Node{
		Kind: proof.NodeKVValueHashFeatureType, Key: node.KV.Key, Value: node.KV.Value,
		ValueHash: node.KV.ValueHash, FeatureType: node.KV.Feature,
	}})
	if hasLeft {
		ops = append(ops, proof.Op{Kind: proof.OpParent})
	}

	if node.Right != nil {
		rightTree, _, err := p.m.ResolveChild(node.Right)
		if err != nil {
			return nil, groveerr.Wrap(groveerr.ChunkingError, "chunk: resolve right", err)
		}
		rightOps, err := p.buildChunk(rightTree, remainingDepth-1)
		if err != nil {
			return nil, err
		}
		ops = append(ops, rightOps...)
		ops = append(ops, proof.Op{Kind: proof.OpChild})
	}

	return ops, nil
}

// TrunkLeaf is a top-level trunk leaf's summary, used by clients to
// decide which branch to descend with privacy (k-anonymity) guarantees
// (spec.md §4.J).
type TrunkLeaf struct {
	Instruction ID
	Hash        hash.Hash
	Count       uint64
}

// Trunk returns the trunk chunk's op stream plus, for every leaf at
// maxDepth, its {hash, count} summary.
func (p *Producer) Trunk() ([]proof.Op, []TrunkLeaf, error) {
	root := p.m.Root()
	if root == nil {
		return nil, nil, groveerr.Chunking(groveerr.ChunkEmptyTree, "chunk: empty tree")
	}
	ops, err := p.buildChunk(root, p.maxDepth)
	if err != nil {
		return nil, nil, err
	}
	var leaves []TrunkLeaf
	if err := p.collectTrunkLeaves(root, p.maxDepth, nil, &leaves); err != nil {
		return nil, nil, err
	}
	return ops, leaves, nil
}

func (p *Producer) collectTrunkLeaves(node *merk.Tree, remaining int, instr ID, out *[]TrunkLeaf) error {
	if remaining == 0 {
		*out = append(*out, TrunkLeaf{Instruction: append(ID(nil), instr...), Hash: node.Hash(), Count: node.Aggregate.Count})
		return nil
	}
	if node.Left != nil {
		t, _, err := p.m.ResolveChild(node.Left)
		if err != nil {
			return err
		}
		if err := p.collectTrunkLeaves(t, remaining-1, append(instr, false), out); err != nil {
			return err
		}
	}
	if node.Right != nil {
		t, _, err := p.m.ResolveChild(node.Right)
		if err != nil {
			return err
		}
		if err := p.collectTrunkLeaves(t, remaining-1, append(instr, true), out); err != nil {
			return err
		}
	}
	return nil
}

// MinPrivacyDescend picks, among leaves, the deepest one whose Count
// meets minPrivacyCount — the k-anonymity rule of spec.md §4.J. When no
// leaf qualifies it returns a zero TrunkLeaf and false.
func MinPrivacyDescend(leaves []TrunkLeaf, minPrivacyCount uint64) (TrunkLeaf, bool) {
	var best TrunkLeaf
	found := false
	for _, l := range leaves {
		if l.Count >= minPrivacyCount {
			if !found || len(l.Instruction) > len(best.Instruction) {
				best, found = l, true
			}
		}
	}
	return best, found
}
