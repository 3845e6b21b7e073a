package proof

import (
	"bytes"
	"testing"

	"github.com/dashpay/grovedb-go/feature"
	"github.com/dashpay/grovedb-go/hash"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	vh, _ := hash.ValueHash([]byte("value"))
	nodes := []Node{
		{Kind: NodeHash, Hash: vh},
		{Kind: NodeKVHash, Hash: vh},
		{Kind: NodeKV, Key: []byte("k1"), Value: []byte("v1")},
		{Kind: NodeKVValueHash, Key: []byte("k2"), Value: []byte("v2"), ValueHash: vh},
		{Kind: NodeKVDigest, Key: []byte("k3"), ValueHash: vh},
		{Kind: NodeKVRefValueHash, Key: []byte("k4"), Value: []byte("v4"), ValueHash: vh},
		{Kind: NodeKVValueHashFeatureType, Key: []byte("k5"), Value: []byte("v5"), ValueHash: vh, FeatureType: feature.Summed(-42)},
	}

	for _, n := range nodes {
		op := Op{Kind: OpPush, Node: &n}
		buf := Encode(op, nil)
		got, rest, err := Decode(buf)
		if err != nil {
			t.Fatalf("decode kind %d: %v", n.Kind, err)
		}
		if len(rest) != 0 {
			t.Fatalf("decode kind %d: leftover bytes %d", n.Kind, len(rest))
		}
		if got.Node.Kind != n.Kind {
			t.Fatalf("kind mismatch: got %d want %d", got.Node.Kind, n.Kind)
		}
		if !bytes.Equal(got.Node.Key, n.Key) || !bytes.Equal(got.Node.Value, n.Value) {
			t.Fatalf("key/value mismatch for kind %d", n.Kind)
		}
	}
}

func TestExecuteSingleLeaf(t *testing.T) {
	n := Node{Kind: NodeKV, Key: []byte("a"), Value: []byte("1")}
	root, witnessed, err := Execute([]Op{{Kind: OpPush, Node: &n}})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	kvHash := n.KVHashOf()
	want, _ := hash.NodeHash(kvHash, hash.NullHash, hash.NullHash)
	if root != want {
		t.Fatalf("root hash mismatch")
	}
	if string(witnessed["a"]) != "1" {
		t.Fatalf("expected witnessed key a=1, got %v", witnessed)
	}
}

func TestExecuteParentChild(t *testing.T) {
	// Tree: parent "b" with left child "a" and right child "c".
	left := Node{Kind: NodeKV, Key: []byte("a"), Value: []byte("1")}
	parent := Node{Kind: NodeKV, Key: []byte("b"), Value: []byte("2")}
	right := Node{Kind: NodeKV, Key: []byte("c"), Value: []byte("3")}

	ops := []Op{
		{Kind: OpPush, Node: &left},
		{Kind: OpPush, Node: &parent},
		{Kind: OpParent},
		{Kind: OpPush, Node: &right},
		{Kind: OpChild},
	}
	root, witnessed, err := Execute(ops)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	leftHash, _ := hash.NodeHash(left.KVHashOf(), hash.NullHash, hash.NullHash)
	rightHash, _ := hash.NodeHash(right.KVHashOf(), hash.NullHash, hash.NullHash)
	want, _ := hash.NodeHash(parent.KVHashOf(), leftHash, rightHash)
	if root != want {
		t.Fatalf("root hash mismatch: got %x want %x", root, want)
	}
	if len(witnessed) != 3 {
		t.Fatalf("expected 3 witnessed keys, got %d", len(witnessed))
	}
}

func TestExecuteStackImbalanceErrors(t *testing.T) {
	n := Node{Kind: NodeKV, Key: []byte("a"), Value: []byte("1")}
	_, _, err := Execute([]Op{{Kind: OpPush, Node: &n}, {Kind: OpParent}})
	if err == nil {
		t.Fatalf("expected error on stack underflow")
	}
}
