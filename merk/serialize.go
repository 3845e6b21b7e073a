package merk

import (
	"encoding/binary"

	"github.com/dashpay/grovedb-go/feature"
	"github.com/dashpay/grovedb-go/groveerr"
	"github.com/dashpay/grovedb-go/hash"
)

// Serialized node layout (spec.md §4.D "Serialization"):
//   left_link? ‖ right_link? ‖ kv
// A link is serialized as: presence byte (1 = present) ‖ hash ‖
// child_heights (2 bytes) ‖ key_len (u16) ‖ key ‖ aggregate. Caching the
// rolled-up aggregate on the link (not just the hash) lets a parent read
// a child's propagated sum/count straight off storage without loading
// the child subtree (spec.md §3).
// kv is serialized as: key_len (u16) ‖ key ‖ value_len (u32) ‖ value ‖
// value_hash ‖ kv_hash ‖ feature_type.

func encodeLink(l *Link, buf *[]byte) {
	if l == nil {
		*buf = append(*buf, 0)
		return
	}
	*buf = append(*buf, 1)
	*buf = append(*buf, l.Hash[:]...)
	*buf = append(*buf, l.ChildHeights[0], l.ChildHeights[1])
	keyLenBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(keyLenBuf, uint16(len(l.Key)))
	*buf = append(*buf, keyLenBuf...)
	*buf = append(*buf, l.Key...)
	*buf = append(*buf, l.Aggregate.Encode()...)
}

func decodeLink(buf []byte) (*Link, []byte, error) {
	if len(buf) < 1 {
		return nil, nil, groveerr.New(groveerr.CorruptedData, "merk: truncated link presence byte")
	}
	present := buf[0]
	buf = buf[1:]
	if present == 0 {
		return nil, buf, nil
	}
	if len(buf) < hash.Length+2+2 {
		return nil, nil, groveerr.New(groveerr.CorruptedData, "merk: truncated link header")
	}
	var h hash.Hash
	copy(h[:], buf[:hash.Length])
	buf = buf[hash.Length:]
	heights := ChildHeights{buf[0], buf[1]}
	buf = buf[2:]
	keyLen := binary.BigEndian.Uint16(buf[:2])
	buf = buf[2:]
	if len(buf) < int(keyLen) {
		return nil, nil, groveerr.New(groveerr.CorruptedData, "merk: truncated link key")
	}
	key := append([]byte(nil), buf[:keyLen]...)
	buf = buf[keyLen:]
	agg, rest, err := feature.DecodeAggregate(buf)
	if err != nil {
		return nil, nil, groveerr.Wrap(groveerr.CorruptedData, "merk: truncated link aggregate", err)
	}
	return referenceLink(h, heights, key, agg), rest, nil
}

// Encode serializes a node's own link-and-kv record (not its subtrees)
// for storage under its key in the data column family.
func (t *Tree) Encode() []byte {
	var buf []byte
	encodeLink(collapse(t.Left), &buf)
	encodeLink(collapse(t.Right), &buf)

	kv := t.KV
	keyLenBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(keyLenBuf, uint16(len(kv.Key)))
	buf = append(buf, keyLenBuf...)
	buf = append(buf, kv.Key...)

	valLenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(valLenBuf, uint32(len(kv.Value)))
	buf = append(buf, valLenBuf...)
	buf = append(buf, kv.Value...)

	buf = append(buf, kv.ValueHash[:]...)
	buf = append(buf, kv.KVHash[:]...)
	buf = append(buf, kv.Feature.Encode()...)
	return buf
}

// collapse returns a Reference-shaped link summarizing l's hash and
// child heights, suitable for serialization, regardless of l's current
// in-memory state.
func collapse(l *Link) *Link {
	if l == nil {
		return nil
	}
	return &Link{State: LinkReference, Hash: l.Hash, ChildHeights: l.ChildHeights, Key: l.Key, Aggregate: l.Aggregate}
}

// DecodeNode deserializes a node's own link-and-kv record. The returned
// Tree has Reference-state (unloaded) child links.
func DecodeNode(buf []byte) (*Tree, error) {
	left, rest, err := decodeLink(buf)
	if err != nil {
		return nil, err
	}
	right, rest, err := decodeLink(rest)
	if err != nil {
		return nil, err
	}

	if len(rest) < 2 {
		return nil, groveerr.New(groveerr.CorruptedData, "merk: truncated kv key length")
	}
	keyLen := binary.BigEndian.Uint16(rest[:2])
	rest = rest[2:]
	if len(rest) < int(keyLen) {
		return nil, groveerr.New(groveerr.CorruptedData, "merk: truncated kv key")
	}
	key := append([]byte(nil), rest[:keyLen]...)
	rest = rest[keyLen:]

	if len(rest) < 4 {
		return nil, groveerr.New(groveerr.CorruptedData, "merk: truncated kv value length")
	}
	valLen := binary.BigEndian.Uint32(rest[:4])
	rest = rest[4:]
	if uint32(len(rest)) < valLen {
		return nil, groveerr.New(groveerr.CorruptedData, "merk: truncated kv value")
	}
	value := append([]byte(nil), rest[:valLen]...)
	rest = rest[valLen:]

	if len(rest) < 2*hash.Length {
		return nil, groveerr.New(groveerr.CorruptedData, "merk: truncated kv hashes")
	}
	var valueHash, kvHash hash.Hash
	copy(valueHash[:], rest[:hash.Length])
	rest = rest[hash.Length:]
	copy(kvHash[:], rest[:hash.Length])
	rest = rest[hash.Length:]

	ft, _, err := feature.Decode(rest)
	if err != nil {
		return nil, err
	}

	t := &Tree{
		KV:    KV{Key: key, Value: value, ValueHash: valueHash, KVHash: kvHash, Feature: ft},
		Left:  left,
		Right: right,
	}
	t.RecomputeHash()
	return t, nil
}
