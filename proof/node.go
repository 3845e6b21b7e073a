// Package proof implements GroveDB's proof operation stream: the
// Push/Parent/Child stack machine and its canonical wire encoding
// (spec.md §4.E). The tag bytes below are reused verbatim from
// original_source/merk/src/proofs/encoding.rs so independently-written
// verifiers stay wire-compatible; the stack-machine shape generalizes
// the teacher's own merkle.VerifyProof fold-from-the-leaf loop (which
// only handled a fixed Bitcoin binary tree) to the general op-stream
// form.
package proof

import (
	"encoding/binary"

	"github.com/dashpay/grovedb-go/feature"
	"github.com/dashpay/grovedb-go/groveerr"
	"github.com/dashpay/grovedb-go/hash"
)

// NodeKind tags which of the seven Node shapes a Push/PushInverted op
// carries (spec.md §3 "Proof (stream)").
type NodeKind uint8

const (
	NodeHash NodeKind = iota
	NodeKVHash
	NodeKV
	NodeKVValueHash
	NodeKVDigest
	NodeKVRefValueHash
	NodeKVValueHashFeatureType
)

// Node is one pushed proof element. Only the fields relevant to Kind are
// meaningful.
type Node struct {
	Kind        NodeKind
	Hash        hash.Hash // NodeHash, NodeKVHash
	Key         []byte    // NodeKV, NodeKVValueHash, NodeKVDigest, NodeKVRefValueHash, NodeKVValueHashFeatureType
	Value       []byte    // NodeKV, NodeKVValueHash, NodeKVRefValueHash, NodeKVValueHashFeatureType
	ValueHash   hash.Hash // NodeKVValueHash, NodeKVDigest, NodeKVRefValueHash, NodeKVValueHashFeatureType
	FeatureType feature.Type // NodeKVValueHashFeatureType
}

// KVHashOf returns the kv_hash this node proves, computing it from
// whatever fields are present.
func (n Node) KVHashOf() hash.Hash {
	switch n.Kind {
	case NodeKVHash:
		return n.Hash
	case NodeKV:
		vh, _ := hash.ValueHash(n.Value)
		h, _ := hash.KVHash(n.Key, vh)
		return h
	case NodeKVValueHash, NodeKVRefValueHash, NodeKVValueHashFeatureType:
		h, _ := hash.KVHash(n.Key, n.ValueHash)
		return h
	case NodeKVDigest:
		h, _ := hash.KVHash(n.Key, n.ValueHash)
		return h
	default:
		return hash.NullHash
	}
}

// Op is one instruction in a proof stream (spec.md §4.E).
type Op struct {
	Kind OpKind
	Node *Node // meaningful for OpPush / OpPushInverted
}

// OpKind tags which instruction Op carries.
type OpKind uint8

const (
	OpPush OpKind = iota
	OpPushInverted
	OpParent
	OpChild
	OpParentInverted
	OpChildInverted
)

// Wire tag bytes, reused verbatim from the Rust encoding so two
// independent implementations of this spec stay byte-compatible
// (spec.md §4.E table).
const (
	tagPushHash                   = 0x01
	tagPushKVHash                 = 0x02
	tagPushKV                     = 0x03
	tagPushKVValueHash            = 0x04
	tagPushKVDigest               = 0x05
	tagPushKVRefValueHash         = 0x06
	tagPushKVValueHashFeatureType = 0x07
	tagPushInvertedHash           = 0x08
	tagPushInvertedKVHash         = 0x09
	tagPushInvertedKV             = 0x0a
	tagPushInvertedKVValueHash    = 0x0b
	tagPushInvertedKVDigest       = 0x0c
	tagPushInvertedKVRefValueHash = 0x0d
	tagPushInvertedKVValueHashFT  = 0x0e
	tagParent                     = 0x10
	tagChild                      = 0x11
	tagParentInverted             = 0x12
	tagChildInverted              = 0x13
)

// Encode appends the wire encoding of op to buf and returns the result.
func Encode(op Op, buf []byte) []byte {
	switch op.Kind {
	case OpParent:
		return append(buf, tagParent)
	case OpChild:
		return append(buf, tagChild)
	case OpParentInverted:
		return append(buf, tagParentInverted)
	case OpChildInverted:
		return append(buf, tagChildInverted)
	}

	n := op.Node
	inverted := op.Kind == OpPushInverted
	switch n.Kind {
	case NodeHash:
		tag := byte(tagPushHash)
		if inverted {
			tag = tagPushInvertedHash
		}
		buf = append(buf, tag)
		return append(buf, n.Hash[:]...)
	case NodeKVHash:
		tag := byte(tagPushKVHash)
		if inverted {
			tag = tagPushInvertedKVHash
		}
		buf = append(buf, tag)
		return append(buf, n.Hash[:]...)
	case NodeKV:
		tag := byte(tagPushKV)
		if inverted {
			tag = tagPushInvertedKV
		}
		buf = append(buf, tag, byte(len(n.Key)))
		buf = append(buf, n.Key...)
		buf = appendU16(buf, len(n.Value))
		return append(buf, n.Value...)
	case NodeKVValueHash:
		tag := byte(tagPushKVValueHash)
		if inverted {
			tag = tagPushInvertedKVValueHash
		}
		buf = append(buf, tag, byte(len(n.Key)))
		buf = append(buf, n.Key...)
		buf = appendU16(buf, len(n.Value))
		buf = append(buf, n.Value...)
		return append(buf, n.ValueHash[:]...)
	case NodeKVDigest:
		tag := byte(tagPushKVDigest)
		if inverted {
			tag = tagPushInvertedKVDigest
		}
		buf = append(buf, tag, byte(len(n.Key)))
		buf = append(buf, n.Key...)
		return append(buf, n.ValueHash[:]...)
	case NodeKVRefValueHash:
		tag := byte(tagPushKVRefValueHash)
		if inverted {
			tag = tagPushInvertedKVRefValueHash
		}
		buf = append(buf, tag, byte(len(n.Key)))
		buf = append(buf, n.Key...)
		buf = appendU16(buf, len(n.Value))
		buf = append(buf, n.Value...)
		return append(buf, n.ValueHash[:]...)
	case NodeKVValueHashFeatureType:
		tag := byte(tagPushKVValueHashFeatureType)
		if inverted {
			tag = tagPushInvertedKVValueHashFT
		}
		buf = append(buf, tag, byte(len(n.Key)))
		buf = append(buf, n.Key...)
		buf = appendU16(buf, len(n.Value))
		buf = append(buf, n.Value...)
		buf = append(buf, n.ValueHash[:]...)
		return append(buf, n.FeatureType.Encode()...)
	default:
		return buf
	}
}

func appendU16(buf []byte, v int) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(v))
	return append(buf, b[:]...)
}

// EncodeStream encodes a full op stream.
func EncodeStream(ops []Op) []byte {
	var buf []byte
	for _, op := range ops {
		buf = Encode(op, buf)
	}
	return buf
}

// Decode parses one Op from the front of buf, returning the remainder.
func Decode(buf []byte) (Op, []byte, error) {
	if len(buf) == 0 {
		return Op{}, nil, groveerr.New(groveerr.CorruptedData, "proof: empty buffer")
	}
	tag := buf[0]
	rest := buf[1:]

	switch tag {
	case tagParent:
		return Op{Kind: OpParent}, rest, nil
	case tagChild:
		return Op{Kind: OpChild}, rest, nil
	case tagParentInverted:
		return Op{Kind: OpParentInverted}, rest, nil
	case tagChildInverted:
		return Op{Kind: OpChildInverted}, rest, nil
	}

	inverted := tag >= tagPushInvertedHash
	opKind := OpPush
	if inverted {
		opKind = OpPushInverted
	}

	switch tag {
	case tagPushHash, tagPushInvertedHash:
		if len(rest) < hash.Length {
			return Op{}, nil, groveerr.New(groveerr.CorruptedData, "proof: truncated Hash")
		}
		var h hash.Hash
		copy(h[:], rest[:hash.Length])
		return Op{Kind: opKind, Node: &Node{Kind: NodeHash, Hash: h}}, rest[hash.Length:], nil

	case tagPushKVHash, tagPushInvertedKVHash:
		if len(rest) < hash.Length {
			return Op{}, nil, groveerr.New(groveerr.CorruptedData, "proof: truncated KVHash")
		}
		var h hash.Hash
		copy(h[:], rest[:hash.Length])
		return Op{Kind: opKind, Node: &Node{Kind: NodeKVHash, Hash: h}}, rest[hash.Length:], nil

	case tagPushKV, tagPushInvertedKV:
		key, value, rem, err := decodeKV(rest)
		if err != nil {
			return Op{}, nil, err
		}
		return Op{Kind: opKind, Node: &Node{Kind: NodeKV, Key: key, Value: value}}, rem, nil

	case tagPushKVValueHash, tagPushInvertedKVValueHash:
		key, value, rem, err := decodeKV(rest)
		if err != nil {
			return Op{}, nil, err
		}
		if len(rem) < hash.Length {
			return Op{}, nil, groveerr.New(groveerr.CorruptedData, "proof: truncated KVValueHash")
		}
		var vh hash.Hash
		copy(vh[:], rem[:hash.Length])
		return Op{Kind: opKind, Node: &Node{Kind: NodeKVValueHash, Key: key, Value: value, ValueHash: vh}}, rem[hash.Length:], nil

	case tagPushKVDigest, tagPushInvertedKVDigest:
		if len(rest) < 1 {
			return Op{}, nil, groveerr.New(groveerr.CorruptedData, "proof: truncated KVDigest")
		}
		keyLen := int(rest[0])
		rest = rest[1:]
		if len(rest) < keyLen+hash.Length {
			return Op{}, nil, groveerr.New(groveerr.CorruptedData, "proof: truncated KVDigest")
		}
		key := append([]byte(nil), rest[:keyLen]...)
		rest = rest[keyLen:]
		var vh hash.Hash
		copy(vh[:], rest[:hash.Length])
		return Op{Kind: opKind, Node: &Node{Kind: NodeKVDigest, Key: key, ValueHash: vh}}, rest[hash.Length:], nil

	case tagPushKVRefValueHash, tagPushInvertedKVRefValueHash:
		key, value, rem, err := decodeKV(rest)
		if err != nil {
			return Op{}, nil, err
		}
		if len(rem) < hash.Length {
			return Op{}, nil, groveerr.New(groveerr.CorruptedData, "proof: truncated KVRefValueHash")
		}
		var vh hash.Hash
		copy(vh[:], rem[:hash.Length])
		return Op{Kind: opKind, Node: &Node{Kind: NodeKVRefValueHash, Key: key, Value: value, ValueHash: vh}}, rem[hash.Length:], nil

	case tagPushKVValueHashFeatureType, tagPushInvertedKVValueHashFT:
		key, value, rem, err := decodeKV(rest)
		if err != nil {
			return Op{}, nil, err
		}
		if len(rem) < hash.Length {
			return Op{}, nil, groveerr.New(groveerr.CorruptedData, "proof: truncated KVValueHashFeatureType")
		}
		var vh hash.Hash
		copy(vh[:], rem[:hash.Length])
		rem = rem[hash.Length:]
		ft, rem2, err := feature.Decode(rem)
		if err != nil {
			return Op{}, nil, err
		}
		return Op{Kind: opKind, Node: &Node{Kind: NodeKVValueHashFeatureType, Key: key, Value: value, ValueHash: vh, FeatureType: ft}}, rem2, nil

	default:
		return Op{}, nil, groveerr.New(groveerr.CorruptedData, "proof: unknown op tag")
	}
}

func decodeKV(buf []byte) (key, value, rest []byte, err error) {
	if len(buf) < 1 {
		return nil, nil, nil, groveerr.New(groveerr.CorruptedData, "proof: truncated kv key length")
	}
	keyLen := int(buf[0])
	buf = buf[1:]
	if len(buf) < keyLen+2 {
		return nil, nil, nil, groveerr.New(groveerr.CorruptedData, "proof: truncated kv key")
	}
	key = append([]byte(nil), buf[:keyLen]...)
	buf = buf[keyLen:]
	valLen := int(binary.BigEndian.Uint16(buf[:2]))
	buf = buf[2:]
	if len(buf) < valLen {
		return nil, nil, nil, groveerr.New(groveerr.CorruptedData, "proof: truncated kv value")
	}
	value = append([]byte(nil), buf[:valLen]...)
	return key, value, buf[valLen:], nil
}

// DecodeStream parses every Op in buf.
func DecodeStream(buf []byte) ([]Op, error) {
	var ops []Op
	for len(buf) > 0 {
		op, rest, err := Decode(buf)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		buf = rest
	}
	return ops, nil
}
