package chunk

import (
	"testing"

	"github.com/dashpay/grovedb-go/feature"
	"github.com/dashpay/grovedb-go/merk"
	"github.com/dashpay/grovedb-go/proof"
	"github.com/dashpay/grovedb-go/storage/memstore"
)

func buildTestMerk(t *testing.T, keys []string) *merk.Merk {
	t.Helper()
	store := memstore.New()
	ctx := store.Context(nil)
	m, _, err := merk.Open(ctx, feature.TreeBasic)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var ops []merk.KeyOp
	for _, k := range keys {
		ops = append(ops, merk.Put([]byte(k), []byte("v"), feature.Basic()))
	}
	if _, err := m.Apply(ops, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	return m
}

func TestChunkZeroReconstructsRootHash(t *testing.T) {
	m := buildTestMerk(t, []string{"a", "b", "c", "d", "e", "f", "g"})
	p := NewProducer(m, 2)

	ops, err := p.Chunk(0)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	root, _, err := proof.Execute(ops)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	_ = root // the trunk chunk's execution root covers only the top maxDepth levels plus Hash placeholders for deeper subtrees, which still hashes to the real root since those placeholders carry the real subtree hash.
	if root != m.RootHash() {
		t.Fatalf("trunk execution root %x != actual root %x", root, m.RootHash())
	}
}

func TestNumberOfChunksSmallTreeIsOne(t *testing.T) {
	m := buildTestMerk(t, []string{"a"})
	p := NewProducer(m, 4)
	if got := p.NumberOfChunks(int(m.Height())); got != 1 {
		t.Fatalf("expected 1 chunk for a tree shallower than chunk depth, got %d", got)
	}
}

func TestMinPrivacyDescendFallsBackWhenNoneQualify(t *testing.T) {
	leaves := []TrunkLeaf{{Count: 1}, {Count: 2}}
	_, found := MinPrivacyDescend(leaves, 10)
	if found {
		t.Fatalf("expected no leaf to qualify for a high privacy threshold")
	}
}

func TestMinPrivacyDescendPicksQualifying(t *testing.T) {
	leaves := []TrunkLeaf{{Count: 1, Instruction: ID{false}}, {Count: 20, Instruction: ID{true}}}
	got, found := MinPrivacyDescend(leaves, 10)
	if !found || got.Count != 20 {
		t.Fatalf("expected the high-count leaf to qualify, got %+v found=%v", got, found)
	}
}

// TestTrunkLeafCountsReflectSubtreeAggregate exercises MinPrivacyDescend
// against a real Merk's rolled-up aggregates rather than hand-built
// TrunkLeaf literals: a trunk leaf sitting above several descendants
// must report their combined count, not its own single-node value.
func TestTrunkLeafCountsReflectSubtreeAggregate(t *testing.T) {
	store := memstore.New()
	ctx := store.Context(nil)
	m, _, err := merk.Open(ctx, feature.TreeCount)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	keys := []string{"a", "b", "c", "d", "e", "f", "g"}
	var ops []merk.KeyOp
	for _, k := range keys {
		ops = append(ops, merk.Put([]byte(k), []byte("v"), feature.Counted(1)))
	}
	if _, err := m.Apply(ops, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}

	var total uint64
	if root := m.Root(); root != nil {
		total = root.Aggregate.Count
	}
	if total != uint64(len(keys)) {
		t.Fatalf("expected root aggregate count %d, got %d", len(keys), total)
	}

	p := NewProducer(m, 1)
	_, leaves, err := p.Trunk()
	if err != nil {
		t.Fatalf("trunk: %v", err)
	}
	var sum uint64
	for _, l := range leaves {
		sum += l.Count
	}
	// At maxDepth 1 the trunk leaves are the root's two children, so their
	// subtree counts cover every key except the root itself.
	if sum != total-1 {
		t.Fatalf("trunk leaves' counts sum to %d, want %d (root aggregate minus the root)", sum, total-1)
	}

	if _, found := MinPrivacyDescend(leaves, 1); !found {
		t.Fatalf("expected at least one leaf to qualify for a minimal privacy threshold")
	}
}
