// Package grovedb is the top-level façade wiring storage, merk, batch,
// prove, and chunk together into the path-addressed operations clients
// actually call: Insert/Get/Delete at a path+key, multi-path batched
// writes, and query/prove/verify over a PathQuery.
//
// Grounded on the teacher's kvstore constructor style (New(*Config)
// (*Store, error), a single entry type wrapping the lower-level pieces)
// and spec.md §2's data-flow description (batch executor opens Merks
// over storage contexts, asks proof generation to serialize witnesses).
package grovedb

import (
	"github.com/dashpay/grovedb-go/batch"
	"github.com/dashpay/grovedb-go/chunk"
	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/feature"
	"github.com/dashpay/grovedb-go/groveerr"
	"github.com/dashpay/grovedb-go/hash"
	"github.com/dashpay/grovedb-go/merk"
	"github.com/dashpay/grovedb-go/prove"
	"github.com/dashpay/grovedb-go/query"
	"github.com/dashpay/grovedb-go/storage"
)

// Backend opens storage.Context instances by path, the single
// capability DB needs from a concrete storage backend (memstore or
// badgerstore).
type Backend interface {
	Context(path storage.Path) storage.Context
}

// Config controls a DB's behavior.
type Config struct {
	Backend Backend
	// TreeType selects the feature-type constraint for every Merk this
	// DB opens. Real GroveDB allows per-subtree tree types declared at
	// insert time; this simplification applies one constraint
	// db-wide, sufficient for every scenario in spec.md §8.
	TreeType feature.TreeType
	// ChunkDepth bounds chunk producer depth (spec.md §4.J).
	ChunkDepth int
}

// DB is a GroveDB instance: a forest of path-addressed Merks sharing one
// storage backend.
type DB struct {
	cfg Config
}

// Open constructs a DB over cfg. Opening never touches storage itself;
// individual paths are opened lazily on first access, mirroring the
// teacher's lazy-connection style.
func Open(cfg Config) (*DB, error) {
	if cfg.Backend == nil {
		return nil, groveerr.New(groveerr.InvalidInput, "grovedb: open: nil backend")
	}
	if cfg.ChunkDepth <= 0 {
		cfg.ChunkDepth = 4
	}
	return &DB{cfg: cfg}, nil
}

func (db *DB) openMerk(path storage.Path) (*merk.Merk, *cost.Cost, error) {
	ctx := db.cfg.Backend.Context(path)
	return merk.Open(ctx, db.cfg.TreeType)
}

// Get reads the value stored at path/key.
func (db *DB) Get(path storage.Path, key []byte) ([]byte, *cost.Cost, error) {
	m, c, err := db.openMerk(path)
	if err != nil {
		return nil, c, err
	}
	v, c2, err := m.Get(key, true)
	c.Add(c2)
	return v, c, err
}

// Insert writes value at path/key with feature type ft, creating
// the Merk at path if it doesn't exist yet. isSubtree marks key as
// itself rooting a new child Merk at path‖key.
func (db *DB) Insert(path storage.Path, key, value []byte, ft feature.Type, isSubtree bool) (*cost.Cost, error) {
	ops := []batch.QualifiedOp{{
		Path: path, Key: key, Kind: batch.ElementInsertOrReplace, Value: value, Feature: ft, IsSubtree: isSubtree,
	}}
	return db.ApplyBatch(ops)
}

// Delete removes path/key.
func (db *DB) Delete(path storage.Path, key []byte) (*cost.Cost, error) {
	ops := []batch.QualifiedOp{{Path: path, Key: key, Kind: batch.ElementDelete}}
	return db.ApplyBatch(ops)
}

// ApplyBatch executes a heterogeneous set of qualified ops across however
// many Merks they touch (spec.md §4.I). Each Merk is committed to storage
// as soon as its ops are applied, so the batch is not atomic across
// Merks: if a later Merk fails, the Merks committed before it stay
// written.
func (db *DB) ApplyBatch(ops []batch.QualifiedOp) (*cost.Cost, error) {
	opener := dbOpener{db: db}
	treeTypes := func(storage.Path) feature.TreeType { return db.cfg.TreeType }
	return batch.Execute(ops, treeTypes, opener, batch.Hooks{})
}

type dbOpener struct{ db *DB }

func (o dbOpener) OpenContext(path storage.Path) (storage.Context, error) {
	return o.db.cfg.Backend.Context(path), nil
}

// Prove generates a layered proof for pq (spec.md §4.G).
func (db *DB) Prove(pq *query.PathQuery) (prove.LayerProof, *cost.Cost, error) {
	m, c, err := db.openMerk(pq.Path)
	if err != nil {
		return prove.LayerProof{}, c, err
	}
	lp, c2, err := prove.ProveQuery(m, pq.Path, pq.Query.Query, pq.Query.Limit, pq.Query.Offset, dbChildOpener{db: db}, prove.Options{})
	c.Add(c2)
	return lp, c, err
}

type dbChildOpener struct{ db *DB }

func (o dbChildOpener) OpenChild(path [][]byte, key []byte) (*merk.Merk, error) {
	m, _, err := o.db.openMerk(storage.Path(path).Append(key))
	return m, err
}

// VerifyQuery verifies lp against pq without touching storage, suitable
// for a client holding only the proof bytes (spec.md §4.H).
func VerifyQuery(lp prove.LayerProof, pq *query.PathQuery, opts prove.VerifyOptions) (hash.Hash, []prove.Result, error) {
	return prove.VerifyQuery(lp, pq, opts)
}

// ChunkProducer opens a chunk.Producer for the Merk at path, for
// trustless replication (spec.md §4.J).
func (db *DB) ChunkProducer(path storage.Path) (*chunk.Producer, error) {
	m, _, err := db.openMerk(path)
	if err != nil {
		return nil, err
	}
	return chunk.NewProducer(m, db.cfg.ChunkDepth), nil
}
