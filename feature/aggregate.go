package feature

import (
	"fmt"

	"github.com/multiformats/go-varint"

	"github.com/dashpay/grovedb-go/groveerr"
)

// TreeType constrains which feature types a Merk's nodes may carry
// (spec.md §3: "A Merk's declared TreeType constrains which feature
// types its nodes may carry").
type TreeType uint8

const (
	TreeBasic TreeType = iota
	TreeSum
	TreeBigSum
	TreeCount
	TreeCountSum
	TreeProvableCount
)

// Allows reports whether the tree type accepts the given feature tag on
// a node it directly owns.
func (t TreeType) Allows(tag Tag) bool {
	switch t {
	case TreeBasic:
		return tag == TagBasic
	case TreeSum:
		return tag == TagSummed
	case TreeBigSum:
		return tag == TagBigSummed
	case TreeCount:
		return tag == TagCounted
	case TreeCountSum:
		return tag == TagCountedSummed
	case TreeProvableCount:
		return tag == TagProvableCounted
	default:
		return false
	}
}

// Aggregate is the rolled-up value a parent node stores for its subtree,
// combining its own feature value with both children's aggregates. Only
// the fields relevant to the node's Tag are meaningful.
type Aggregate struct {
	Tag      Tag
	Sum      int64
	Count    uint64
	BigSumLo uint64
	BigSumHi int64
}

// FromType lifts a single node's feature Type into a one-node Aggregate
// (count 1 where the type is countable, its own sum where summable).
func FromType(t Type) Aggregate {
	switch t.Tag {
	case TagBasic:
		return Aggregate{Tag: TagBasic}
	case TagSummed:
		return Aggregate{Tag: TagSummed, Sum: t.Sum}
	case TagBigSummed:
		return Aggregate{Tag: TagBigSummed, BigSumLo: t.BigSumLo, BigSumHi: t.BigSumHi}
	case TagCounted:
		return Aggregate{Tag: TagCounted, Count: 1}
	case TagCountedSummed:
		return Aggregate{Tag: TagCountedSummed, Count: 1, Sum: t.Sum}
	case TagProvableCounted:
		return Aggregate{Tag: TagProvableCounted, Count: 1}
	default:
		return Aggregate{Tag: t.Tag}
	}
}

// Combine folds a child's already-rolled-up Aggregate into the running
// parent total. Both must agree on Tag; callers are responsible for that
// invariant (a Merk's TreeType fixes it for every node).
func Combine(total, child Aggregate) Aggregate {
	switch total.Tag {
	case TagSummed:
		total.Sum += child.Sum
	case TagBigSummed:
		lo, hi := addI128(total.BigSumLo, total.BigSumHi, child.BigSumLo, child.BigSumHi)
		total.BigSumLo, total.BigSumHi = lo, hi
	case TagCounted, TagProvableCounted:
		total.Count += child.Count
	case TagCountedSummed:
		total.Count += child.Count
		total.Sum += child.Sum
	}
	return total
}

// addI128 adds two little-endian-split 128-bit signed integers.
func addI128(aLo uint64, aHi int64, bLo uint64, bHi int64) (uint64, int64) {
	lo := aLo + bLo
	carry := int64(0)
	if lo < aLo {
		carry = 1
	}
	hi := aHi + bHi + carry
	return lo, hi
}

// Encode writes a Aggregate to the same tag-plus-varint-payload wire
// shape as Type.Encode, so a node's rolled-up subtree aggregate can be
// cached alongside its child links in storage (spec.md §3 "a parent
// propagates its children's aggregates").
func (a Aggregate) Encode() []byte {
	switch a.Tag {
	case TagBasic:
		return []byte{byte(TagBasic)}
	case TagSummed:
		out := []byte{byte(TagSummed)}
		return append(out, varint.ToUvarint(zigzagEncode(a.Sum))...)
	case TagBigSummed:
		out := make([]byte, 1, 17)
		out[0] = byte(TagBigSummed)
		var buf [16]byte
		putUint64LE(buf[0:8], a.BigSumLo)
		putUint64LE(buf[8:16], uint64(a.BigSumHi))
		return append(out, buf[:]...)
	case TagCounted, TagProvableCounted:
		out := []byte{byte(a.Tag)}
		return append(out, varint.ToUvarint(a.Count)...)
	case TagCountedSummed:
		out := []byte{byte(TagCountedSummed)}
		out = append(out, varint.ToUvarint(a.Count)...)
		out = append(out, varint.ToUvarint(zigzagEncode(a.Sum))...)
		return out
	default:
		panic(fmt.Sprintf("feature: unknown aggregate tag %d", a.Tag))
	}
}

// DecodeAggregate parses an Aggregate from the front of buf, returning
// the remaining bytes.
func DecodeAggregate(buf []byte) (Aggregate, []byte, error) {
	if len(buf) == 0 {
		return Aggregate{}, nil, groveerr.New(groveerr.CorruptedData, "aggregate: empty buffer")
	}
	tag := Tag(buf[0])
	rest := buf[1:]
	switch tag {
	case TagBasic:
		return Aggregate{Tag: TagBasic}, rest, nil
	case TagSummed:
		zz, n, err := varint.FromUvarint(rest)
		if err != nil {
			return Aggregate{}, nil, groveerr.Wrap(groveerr.CorruptedData, "aggregate: Summed payload", err)
		}
		return Aggregate{Tag: TagSummed, Sum: zigzagDecode(zz)}, rest[n:], nil
	case TagBigSummed:
		if len(rest) < 16 {
			return Aggregate{}, nil, groveerr.New(groveerr.CorruptedData, "aggregate: BigSummed payload too short")
		}
		lo := getUint64LE(rest[0:8])
		hi := int64(getUint64LE(rest[8:16]))
		return Aggregate{Tag: TagBigSummed, BigSumLo: lo, BigSumHi: hi}, rest[16:], nil
	case TagCounted:
		v, n, err := varint.FromUvarint(rest)
		if err != nil {
			return Aggregate{}, nil, groveerr.Wrap(groveerr.CorruptedData, "aggregate: Counted payload", err)
		}
		return Aggregate{Tag: TagCounted, Count: v}, rest[n:], nil
	case TagCountedSummed:
		count, n1, err := varint.FromUvarint(rest)
		if err != nil {
			return Aggregate{}, nil, groveerr.Wrap(groveerr.CorruptedData, "aggregate: CountedSummed count", err)
		}
		rest = rest[n1:]
		zz, n2, err := varint.FromUvarint(rest)
		if err != nil {
			return Aggregate{}, nil, groveerr.Wrap(groveerr.CorruptedData, "aggregate: CountedSummed sum", err)
		}
		return Aggregate{Tag: TagCountedSummed, Count: count, Sum: zigzagDecode(zz)}, rest[n2:], nil
	case TagProvableCounted:
		v, n, err := varint.FromUvarint(rest)
		if err != nil {
			return Aggregate{}, nil, groveerr.Wrap(groveerr.CorruptedData, "aggregate: ProvableCounted payload", err)
		}
		return Aggregate{Tag: TagProvableCounted, Count: v}, rest[n:], nil
	default:
		return Aggregate{}, nil, groveerr.New(groveerr.CorruptedData, fmt.Sprintf("aggregate: unknown tag %d", tag))
	}
}
