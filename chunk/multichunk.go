package chunk

import (
	"github.com/dashpay/grovedb-go/groveerr"
	"github.com/dashpay/grovedb-go/proof"
)

// MultiChunkWithLimit greedily concatenates chunks starting at
// startIndex, replacing each Push(Hash) placeholder with the
// corresponding child chunk's ops whenever the substitution still fits
// within byteLimit, per spec.md §4.J. It returns the combined ops, the
// next chunk index to resume from (nil if the whole tree was covered),
// and the byte budget remaining after packing. If the chunk at startIndex
// alone does not fit within byteLimit, it returns a ChunkLimitTooSmall
// chunking error.
//
// Grounded on original_source/merk/src/merk/chunks2.rs's
// multi_chunk_with_limit, simplified to this package's two-level
// trunk+branch partition: index 0 packs the trunk, and any Hash
// placeholder at the trunk-leaf boundary is a candidate for inlining
// the corresponding branch chunk (indices 1..2^maxDepth).
func (p *Producer) MultiChunkWithLimit(startIndex int, byteLimit int) ([]proof.Op, *int, int, error) {
	ops, err := p.Chunk(startIndex)
	if err != nil {
		return nil, nil, byteLimit, err
	}

	used := encodedLen(ops)
	if used > byteLimit {
		return nil, nil, byteLimit, groveerr.Chunking(groveerr.ChunkLimitTooSmall, "chunk: byte limit too small for chunk")
	}
	remaining := byteLimit - used

	if startIndex != 0 {
		next := startIndex + 1
		total := 1 + pow2(p.maxDepth)
		if next >= total {
			return ops, nil, remaining, nil
		}
		return ops, &next, remaining, nil
	}

	// Trunk packed: greedily inline branch chunks in order, replacing
	// each trunk-leaf Hash push with its branch's ops when it fits.
	out := make([]proof.Op, 0, len(ops))
	branchIndex := 1
	total := 1 + pow2(p.maxDepth)
	for _, op := range ops {
		if op.Kind == proof.OpPush && op.Node != nil && op.Node.Kind == proof.NodeHash && branchIndex < total {
			branchOps, err := p.Chunk(branchIndex)
			if err != nil {
				return nil, nil, remaining, err
			}
			branchLen := encodedLen(branchOps)
			if branchLen <= remaining {
				out = append(out, branchOps...)
				remaining -= branchLen
				branchIndex++
				continue
			}
			nextIdx := branchIndex
			out = append(out, op)
			return out, &nextIdx, remaining, nil
		}
		out = append(out, op)
	}

	if branchIndex >= total {
		return out, nil, remaining, nil
	}
	next := branchIndex
	return out, &next, remaining, nil
}

func encodedLen(ops []proof.Op) int {
	return len(proof.EncodeStream(ops))
}
