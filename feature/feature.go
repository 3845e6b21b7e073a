// Package feature implements GroveDB's per-node feature types: the tag
// that decides what aggregate a parent node propagates from its children
// (spec.md §3, §6.4). The tagged-byte-plus-payload shape mirrors the
// teacher's own binary layout in indexnode.IndexNode (a one-byte flags
// header selecting which fixed-size payload follows), generalized here
// to an enum of aggregate payloads instead of raw value bytes.
package feature

import (
	"fmt"

	"github.com/multiformats/go-varint"

	"github.com/dashpay/grovedb-go/groveerr"
)

// Tag identifies which payload a FeatureType carries, per spec.md §6.4.
type Tag uint8

const (
	TagBasic          Tag = 0
	TagSummed         Tag = 1
	TagBigSummed      Tag = 2
	TagCounted        Tag = 3
	TagCountedSummed  Tag = 4
	TagProvableCounted Tag = 5
)

// Type is the tagged union described in spec.md §3. Tag selects which
// payload fields are meaningful: Sum for Summed, Count for Counted and
// ProvableCounted, both Count and Sum for CountedSummed, and the two
// BigSum halves for BigSummed.
type Type struct {
	Tag   Tag
	Sum   int64  // Summed, CountedSummed
	Count uint64 // Counted, CountedSummed, ProvableCounted
	// BigSum holds a little-endian two's-complement i128 as two uint64
	// halves (Lo, Hi) since Go has no native 128-bit integer.
	BigSumLo uint64
	BigSumHi int64
}

// Basic constructs a Basic feature type.
func Basic() Type { return Type{Tag: TagBasic} }

// Summed constructs a Summed feature type carrying the given signed sum.
func Summed(sum int64) Type { return Type{Tag: TagSummed, Sum: sum} }

// Counted constructs a Counted feature type.
func Counted(count uint64) Type { return Type{Tag: TagCounted, Count: count} }

// CountedSummed constructs a CountedSummed feature type.
func CountedSummed(count uint64, sum int64) Type {
	return Type{Tag: TagCountedSummed, Count: count, Sum: sum}
}

// ProvableCounted constructs a ProvableCounted feature type.
func ProvableCounted(count uint64) Type { return Type{Tag: TagProvableCounted, Count: count} }

// BigSummed constructs a BigSummed feature type from a 128-bit signed
// value split into low/high 64-bit halves (little-endian order).
func BigSummed(lo uint64, hi int64) Type { return Type{Tag: TagBigSummed, BigSumLo: lo, BigSumHi: hi} }

func zigzagEncode(v int64) uint64 { return uint64((v << 1) ^ (v >> 63)) }
func zigzagDecode(v uint64) int64 { return int64(v>>1) ^ -int64(v&1) }

// Encode writes the tag byte followed by the payload described in
// spec.md §6.4's encoding table.
func (t Type) Encode() []byte {
	switch t.Tag {
	case TagBasic:
		return []byte{byte(TagBasic)}
	case TagSummed:
		out := []byte{byte(TagSummed)}
		return append(out, varint.ToUvarint(zigzagEncode(t.Sum))...)
	case TagBigSummed:
		out := make([]byte, 1, 17)
		out[0] = byte(TagBigSummed)
		var buf [16]byte
		putUint64LE(buf[0:8], t.BigSumLo)
		putUint64LE(buf[8:16], uint64(t.BigSumHi))
		return append(out, buf[:]...)
	case TagCounted:
		out := []byte{byte(TagCounted)}
		return append(out, varint.ToUvarint(t.Count)...)
	case TagCountedSummed:
		out := []byte{byte(TagCountedSummed)}
		out = append(out, varint.ToUvarint(t.Count)...)
		out = append(out, varint.ToUvarint(zigzagEncode(t.Sum))...)
		return out
	case TagProvableCounted:
		out := []byte{byte(TagProvableCounted)}
		return append(out, varint.ToUvarint(t.Count)...)
	default:
		panic(fmt.Sprintf("feature: unknown tag %d", t.Tag))
	}
}

// EncodingLength returns len(t.Encode()) without allocating.
func (t Type) EncodingLength() int {
	switch t.Tag {
	case TagBasic:
		return 1
	case TagSummed:
		return 1 + varint.UvarintSize(zigzagEncode(t.Sum))
	case TagBigSummed:
		return 17
	case TagCounted, TagProvableCounted:
		return 1 + varint.UvarintSize(t.Count)
	case TagCountedSummed:
		return 1 + varint.UvarintSize(t.Count) + varint.UvarintSize(zigzagEncode(t.Sum))
	default:
		return 1
	}
}

// Decode parses a Type from the front of buf, returning the remaining
// bytes.
func Decode(buf []byte) (Type, []byte, error) {
	if len(buf) == 0 {
		return Type{}, nil, groveerr.New(groveerr.CorruptedData, "feature type: empty buffer")
	}
	tag := Tag(buf[0])
	rest := buf[1:]
	switch tag {
	case TagBasic:
		return Basic(), rest, nil
	case TagSummed:
		zz, n, err := varint.FromUvarint(rest)
		if err != nil {
			return Type{}, nil, groveerr.Wrap(groveerr.CorruptedData, "feature type: Summed payload", err)
		}
		return Summed(zigzagDecode(zz)), rest[n:], nil
	case TagBigSummed:
		if len(rest) < 16 {
			return Type{}, nil, groveerr.New(groveerr.CorruptedData, "feature type: BigSummed payload too short")
		}
		lo := getUint64LE(rest[0:8])
		hi := int64(getUint64LE(rest[8:16]))
		return BigSummed(lo, hi), rest[16:], nil
	case TagCounted:
		v, n, err := varint.FromUvarint(rest)
		if err != nil {
			return Type{}, nil, groveerr.Wrap(groveerr.CorruptedData, "feature type: Counted payload", err)
		}
		return Counted(v), rest[n:], nil
	case TagCountedSummed:
		count, n1, err := varint.FromUvarint(rest)
		if err != nil {
			return Type{}, nil, groveerr.Wrap(groveerr.CorruptedData, "feature type: CountedSummed count", err)
		}
		rest = rest[n1:]
		zz, n2, err := varint.FromUvarint(rest)
		if err != nil {
			return Type{}, nil, groveerr.Wrap(groveerr.CorruptedData, "feature type: CountedSummed sum", err)
		}
		return CountedSummed(count, zigzagDecode(zz)), rest[n2:], nil
	case TagProvableCounted:
		v, n, err := varint.FromUvarint(rest)
		if err != nil {
			return Type{}, nil, groveerr.Wrap(groveerr.CorruptedData, "feature type: ProvableCounted payload", err)
		}
		return ProvableCounted(v), rest[n:], nil
	default:
		return Type{}, nil, groveerr.New(groveerr.CorruptedData, fmt.Sprintf("feature type: unknown tag %d", tag))
	}
}

func putUint64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func getUint64LE(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
