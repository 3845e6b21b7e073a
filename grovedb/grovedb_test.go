package grovedb

import (
	"testing"

	"github.com/dashpay/grovedb-go/feature"
	"github.com/dashpay/grovedb-go/prove"
	"github.com/dashpay/grovedb-go/query"
	"github.com/dashpay/grovedb-go/storage"
	"github.com/dashpay/grovedb-go/storage/memstore"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{Backend: memstore.New(), TreeType: feature.TreeBasic})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return db
}

func TestInsertGetRoundTrip(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Insert(nil, []byte("k"), []byte("v"), feature.Basic(), false); err != nil {
		t.Fatalf("insert: %v", err)
	}
	v, _, err := db.Get(nil, []byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(v) != "v" {
		t.Fatalf("expected v, got %q", v)
	}
}

func TestDelete(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Insert(nil, []byte("k"), []byte("v"), feature.Basic(), false); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := db.Delete(nil, []byte("k")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	v, _, err := db.Get(nil, []byte("k"))
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if v != nil {
		t.Fatalf("expected nil after delete, got %q", v)
	}
}

func TestSubtreeInsertAndProve(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Insert(storage.Path{[]byte("sub")}, []byte("x"), []byte("leaf"), feature.Basic(), false); err != nil {
		t.Fatalf("insert leaf: %v", err)
	}
	if _, err := db.Insert(nil, []byte("sub"), []byte("ref"), feature.Basic(), true); err != nil {
		t.Fatalf("insert subtree link: %v", err)
	}

	q := query.New()
	q.InsertItem(query.NewKey([]byte("sub")))
	pq := &query.PathQuery{Query: query.SizedQuery{Query: q}}

	lp, _, err := db.Prove(pq)
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	root, results, err := VerifyQuery(lp, pq, prove.VerifyOptions{})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	m, _, err := db.openMerk(nil)
	if err != nil {
		t.Fatalf("open root merk: %v", err)
	}
	if root != m.RootHash() {
		t.Fatalf("verified root mismatch")
	}
	if len(results) != 1 || string(results[0].Key) != "sub" {
		t.Fatalf("expected one result for key 'sub', got %+v", results)
	}
}
