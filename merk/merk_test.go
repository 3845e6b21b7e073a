package merk

import (
	"testing"

	"github.com/dashpay/grovedb-go/feature"
	"github.com/dashpay/grovedb-go/storage/memstore"
)

func openTestMerk(t *testing.T, tt feature.TreeType) *Merk {
	t.Helper()
	store := memstore.New()
	ctx := store.Context(nil)
	m, _, err := Open(ctx, tt)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return m
}

func TestSummedAggregatePropagatesToRoot(t *testing.T) {
	m := openTestMerk(t, feature.TreeSum)
	ops := []KeyOp{
		Put([]byte("a"), []byte("v"), feature.Summed(3)),
		Put([]byte("b"), []byte("v"), feature.Summed(5)),
		Put([]byte("c"), []byte("v"), feature.Summed(7)),
	}
	if _, err := m.Apply(ops, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := m.Root().Aggregate.Sum; got != 15 {
		t.Fatalf("expected root aggregate sum 15, got %d", got)
	}
}

func TestCountedAggregatePropagatesAfterDelete(t *testing.T) {
	m := openTestMerk(t, feature.TreeCount)
	ops := []KeyOp{
		Put([]byte("a"), []byte("v"), feature.Counted(1)),
		Put([]byte("b"), []byte("v"), feature.Counted(1)),
		Put([]byte("c"), []byte("v"), feature.Counted(1)),
	}
	if _, err := m.Apply(ops, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := m.Root().Aggregate.Count; got != 3 {
		t.Fatalf("expected root aggregate count 3, got %d", got)
	}

	if _, err := m.Apply([]KeyOp{Delete([]byte("b"))}, nil); err != nil {
		t.Fatalf("apply delete: %v", err)
	}
	if got := m.Root().Aggregate.Count; got != 2 {
		t.Fatalf("expected root aggregate count 2 after delete, got %d", got)
	}
}

func TestAggregateSurvivesCommitAndReload(t *testing.T) {
	store := memstore.New()
	ctx := store.Context(nil)
	m, _, err := Open(ctx, feature.TreeSum)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ops := []KeyOp{
		Put([]byte("a"), []byte("v"), feature.Summed(10)),
		Put([]byte("b"), []byte("v"), feature.Summed(20)),
	}
	if _, err := m.Apply(ops, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := m.Commit(AlwaysPrune{}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	reopened, _, err := Open(store.Context(nil), feature.TreeSum)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.Root().Aggregate.Sum; got != 30 {
		t.Fatalf("expected reloaded root aggregate sum 30, got %d", got)
	}
}
