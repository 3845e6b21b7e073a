package query

import (
	"testing"

	"github.com/dashpay/grovedb-go/feature"
	"github.com/dashpay/grovedb-go/merk"
	"github.com/dashpay/grovedb-go/storage/memstore"
)

func buildSumTree(t *testing.T) *merk.Merk {
	t.Helper()
	store := memstore.New()
	m, _, err := merk.Open(store.Context(nil), feature.TreeSum)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ops := []merk.KeyOp{
		merk.Put([]byte("a"), []byte("v"), feature.Summed(7)),
		merk.Put([]byte("b"), []byte("v"), feature.Summed(5)),
		merk.Put([]byte("c"), []byte("v"), feature.Summed(3)),
		merk.Put([]byte("d"), []byte("v"), feature.Summed(11)),
	}
	if _, err := m.Apply(ops, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	return m
}

func keysOf(results []AggregateSumResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = string(r.Key)
	}
	return out
}

func TestAggregateSumQueryLimit10(t *testing.T) {
	m := buildSumTree(t)
	got := AggregateSumQuery(m, 10)
	want := []string{"a", "b"}
	if ks := keysOf(got); !equalStrings(ks, want) {
		t.Fatalf("limit 10: got %v, want %v", ks, want)
	}
}

func TestAggregateSumQueryLimit12(t *testing.T) {
	m := buildSumTree(t)
	got := AggregateSumQuery(m, 12)
	want := []string{"a", "b"}
	if ks := keysOf(got); !equalStrings(ks, want) {
		t.Fatalf("limit 12: got %v, want %v", ks, want)
	}
}

func TestAggregateSumQueryLimit13(t *testing.T) {
	m := buildSumTree(t)
	got := AggregateSumQuery(m, 13)
	want := []string{"a", "b", "c"}
	if ks := keysOf(got); !equalStrings(ks, want) {
		t.Fatalf("limit 13: got %v, want %v", ks, want)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
