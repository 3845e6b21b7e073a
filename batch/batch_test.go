package batch

import (
	"testing"

	"github.com/dashpay/grovedb-go/feature"
	"github.com/dashpay/grovedb-go/hash"
	"github.com/dashpay/grovedb-go/merk"
	"github.com/dashpay/grovedb-go/storage"
	"github.com/dashpay/grovedb-go/storage/memstore"
)

type memOpener struct{ store *memstore.Store }

func (o memOpener) OpenContext(path storage.Path) (storage.Context, error) {
	return o.store.Context(path), nil
}

func TestExecuteSinglePathInsert(t *testing.T) {
	store := memstore.New()
	opener := memOpener{store: store}

	ops := []QualifiedOp{
		{Path: nil, Key: []byte("a"), Kind: ElementInsert, Value: []byte("1"), Feature: feature.Basic()},
		{Path: nil, Key: []byte("b"), Kind: ElementInsert, Value: []byte("2"), Feature: feature.Basic()},
	}

	_, err := Execute(ops, nil, opener, Hooks{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	ctx := store.Context(nil)
	m, _, err := merk.Open(ctx, feature.TreeBasic)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	v, _, err := m.Get([]byte("a"), false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(v) != "1" {
		t.Fatalf("expected value 1, got %q", v)
	}
}

func TestExecuteLeavesFirstSubtreeLink(t *testing.T) {
	store := memstore.New()
	opener := memOpener{store: store}

	ops := []QualifiedOp{
		{Path: storage.Path{[]byte("root")}, Key: []byte("x"), Kind: ElementInsert, Value: []byte("leaf-value"), Feature: feature.Basic()},
		{Path: nil, Key: []byte("root"), Kind: ElementInsert, Value: []byte("ref"), Feature: feature.Basic(), IsSubtree: true},
	}

	_, err := Execute(ops, nil, opener, Hooks{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	rootCtx := store.Context(nil)
	rootMerk, _, err := merk.Open(rootCtx, feature.TreeBasic)
	if err != nil {
		t.Fatalf("open root: %v", err)
	}
	if rootMerk.RootHash() == hash.NullHash {
		t.Fatalf("unexpected empty root hash")
	}
	v, _, err := rootMerk.Get([]byte("root"), false)
	if err != nil || v == nil {
		t.Fatalf("expected root to carry the layered reference key, err=%v v=%v", err, v)
	}
}

// TestExecuteCreatesEmptySubtree exercises a batch that only inserts a
// subtree marker at the root, with no op targeting the subtree's own
// path in the same batch: this must succeed, resolving the new child's
// root hash directly (NULL_HASH) rather than failing with
// PathParentLayerNotFound.
func TestExecuteCreatesEmptySubtree(t *testing.T) {
	store := memstore.New()
	opener := memOpener{store: store}

	ops := []QualifiedOp{
		{Path: nil, Key: []byte("empty"), Kind: ElementInsert, Value: []byte("ref"), Feature: feature.Basic(), IsSubtree: true},
	}

	_, err := Execute(ops, nil, opener, Hooks{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	rootMerk, _, err := merk.Open(store.Context(nil), feature.TreeBasic)
	if err != nil {
		t.Fatalf("open root: %v", err)
	}
	v, _, err := rootMerk.Get([]byte("empty"), false)
	if err != nil || v == nil {
		t.Fatalf("expected root to carry the empty subtree's marker key, err=%v v=%v", err, v)
	}

	childMerk, _, err := merk.Open(store.Context(storage.Path{[]byte("empty")}), feature.TreeBasic)
	if err != nil {
		t.Fatalf("open child: %v", err)
	}
	if childMerk.RootHash() != hash.NullHash {
		t.Fatalf("expected the newly created subtree to be empty (NULL_HASH), got %x", childMerk.RootHash())
	}
}

func TestValidateRejectsDuplicateNonDelete(t *testing.T) {
	ops := []QualifiedOp{
		{Path: nil, Key: []byte("a"), Kind: ElementInsert, Value: []byte("1")},
		{Path: nil, Key: []byte("a"), Kind: ElementInsert, Value: []byte("2")},
	}
	if err := validate(ops); err == nil {
		t.Fatalf("expected duplicate key rejection")
	}
}
