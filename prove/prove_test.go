package prove

import (
	"testing"

	"github.com/dashpay/grovedb-go/feature"
	"github.com/dashpay/grovedb-go/merk"
	"github.com/dashpay/grovedb-go/proof"
	"github.com/dashpay/grovedb-go/query"
	"github.com/dashpay/grovedb-go/storage/memstore"
)

func openTestMerk(t *testing.T, keys []string) *merk.Merk {
	t.Helper()
	store := memstore.New()
	ctx := store.Context(nil)
	m, _, err := merk.Open(ctx, feature.TreeBasic)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var ops []merk.KeyOp
	for _, k := range keys {
		ops = append(ops, merk.Put([]byte(k), []byte("v-"+k), feature.Basic()))
	}
	if _, err := m.Apply(ops, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := m.Commit(merk.AlwaysKeep{}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return m
}

func TestProveVerifyRoundTrip(t *testing.T) {
	m := openTestMerk(t, []string{"a", "b", "c", "d", "e"})

	q := query.New()
	q.InsertItem(query.Item{Kind: query.RangeInclusive, Lower: []byte("b"), Upper: []byte("d")})

	pq := &query.PathQuery{Path: [][]byte{[]byte("root")}, Query: query.SizedQuery{Query: q}}

	lp, _, err := ProveQuery(m, pq.Path, q, nil, nil, nil, Options{})
	if err != nil {
		t.Fatalf("prove: %v", err)
	}

	root, results, err := VerifyQuery(lp, pq, VerifyOptions{})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if root != m.RootHash() {
		t.Fatalf("verified root %x != actual root %x", root, m.RootHash())
	}

	got := map[string]string{}
	for _, r := range results {
		got[string(r.Key)] = string(r.Value)
	}
	for _, want := range []string{"b", "c", "d"} {
		if got[want] != "v-"+want {
			t.Errorf("missing or wrong result for key %q: got %q", want, got[want])
		}
	}
}

// TestProveSingleKeyIsMinimal exercises spec.md §4.G's pruning guarantee
// directly: in a 15-leaf tree, a single-key proof must collapse every
// sibling subtree outside the query into one Hash op each rather than
// walking and individually revealing every out-of-range leaf.
func TestProveSingleKeyIsMinimal(t *testing.T) {
	keys := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m", "n", "o"}
	m := openTestMerk(t, keys)

	q := query.New()
	q.InsertItem(query.NewKey([]byte("h")))
	pq := &query.PathQuery{Path: [][]byte{[]byte("root")}, Query: query.SizedQuery{Query: q}}

	lp, _, err := ProveQuery(m, pq.Path, q, nil, nil, nil, Options{})
	if err != nil {
		t.Fatalf("prove: %v", err)
	}

	var hashOps, kvOps int
	for _, op := range lp.Ops {
		if op.Node == nil {
			continue
		}
		switch op.Node.Kind {
		case proof.NodeHash:
			hashOps++
		case proof.NodeKVValueHashFeatureType:
			kvOps++
		}
	}
	if hashOps == 0 {
		t.Fatalf("expected at least one collapsed Hash sibling in a single-key proof over %d leaves, got none (ops=%+v)", len(keys), lp.Ops)
	}
	if kvOps != 1 {
		t.Fatalf("expected exactly one full KV reveal (the queried key), got %d", kvOps)
	}

	root, results, err := VerifyQuery(lp, pq, VerifyOptions{})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if root != m.RootHash() {
		t.Fatalf("verified root %x != actual root %x", root, m.RootHash())
	}
	if len(results) != 1 || string(results[0].Key) != "h" {
		t.Fatalf("expected exactly result [h], got %+v", results)
	}
}
