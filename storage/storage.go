// Package storage implements the storage-context contract of spec.md
// §4.C/§6.2: cost-annotated get/put/delete over four logical column
// families, batches, transactions, and a raw prefix-bounded iterator.
// GroveDB's Merk and batch executor treat any implementation of Context
// as an external collaborator — the RocksDB-backed production backend is
// explicitly out of scope (spec.md §1); this package ships an in-memory
// implementation (storage/memstore) for tests and a badger-backed one
// (storage/badgerstore) as the persistent reference implementation,
// following the teacher's own memory/badger split in kvstore/.
package storage

import (
	"github.com/dashpay/grovedb-go/cost"
)

// ColumnFamily identifies one of the four logical keyspaces a storage
// context exposes, per spec.md §6.1.
type ColumnFamily uint8

const (
	// CFData holds serialized Merk tree nodes.
	CFData ColumnFamily = iota
	// CFAux holds free-form user metadata.
	CFAux
	// CFRoots holds each Merk's current root-key pointer.
	CFRoots
	// CFMeta holds process-wide state (e.g. format version).
	CFMeta
)

// Path is an ordered sequence of byte strings identifying a Merk
// (spec.md §3: "the empty path is the top-level Merk").
type Path [][]byte

// Clone returns a defensive copy of the path.
func (p Path) Clone() Path {
	out := make(Path, len(p))
	for i, seg := range p {
		cp := make([]byte, len(seg))
		copy(cp, seg)
		out[i] = cp
	}
	return out
}

// Append returns a new Path with key appended, without mutating p.
func (p Path) Append(key []byte) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	cp := make([]byte, len(key))
	copy(cp, key)
	out[len(p)] = cp
	return out
}

// Context is the capability set spec.md §4.C/§6.2 requires of a storage
// backend. It is bound to a path prefix; mutations on one Context are
// isolated from mutations through a Context bound to a different prefix.
type Context interface {
	Get(cf ColumnFamily, key []byte) ([]byte, *cost.Cost, error)
	Put(cf ColumnFamily, key, value []byte) (*cost.Cost, error)
	Delete(cf ColumnFamily, key []byte) (*cost.Cost, error)

	// NewBatch returns a Batch that stages writes for atomic commit.
	NewBatch() Batch

	// RawIterator returns a cursor over cf, ordered lexicographically
	// within this context's path prefix.
	RawIterator(cf ColumnFamily) RawIterator

	// WithPath returns a Context bound to path, backed by the same
	// underlying storage.
	WithPath(path Path) Context

	// Path returns the path this context is bound to.
	Path() Path

	// Close releases any resources held by this context's backend.
	Close() error
}

// Batch stages a set of writes across column families for atomic commit,
// per spec.md §4.C's "new_batch, commit_batch for atomic multi-key
// writes."
type Batch interface {
	Put(cf ColumnFamily, key, value []byte)
	Delete(cf ColumnFamily, key []byte)
	Commit() (*cost.Cost, error)
}

// Transactional is implemented by backends that support an explicit
// transaction handle whose commit/rollback the caller controls (spec.md
// §4.C: "Optional transaction handle").
type Transactional interface {
	Begin() (Txn, error)
}

// Txn is a Context plus explicit Commit/Rollback control.
type Txn interface {
	Context
	Commit() error
	Rollback() error
}

// RawIterator is the forward/backward cursor spec.md §4.C requires:
// seek, seek_for_prev, seek_to_first, seek_to_last, next, prev, valid,
// key, value.
type RawIterator interface {
	SeekToFirst()
	SeekToLast()
	Seek(key []byte)
	SeekForPrev(key []byte)
	Next()
	Prev()
	Valid() bool
	Key() []byte
	Value() []byte
	Close()
}
