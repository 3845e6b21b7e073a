// Package badgerstore is the persistent storage.Context implementation,
// grounded on the teacher's kvstore/badger package: the same
// New(*Config)/Config{DataDir} constructor shape, the same
// opts.WithLogger(nil) to silence badger's own verbose logging, and the
// same txn.Set/txn.Get/txn.Delete usage. GroveDB-Go adds four logical
// column families (badger has no native CF concept) by prefixing every
// key with a one-byte CF tag plus the path prefix, and exposes badger's
// transaction and iterator types directly through storage.Txn /
// storage.RawIterator.
package badgerstore

import (
	"bytes"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/storage"
)

// Config holds configuration for the badger-backed backend, matching the
// teacher's badger.Config{DataDir} shape.
type Config struct {
	DataDir string // Directory for data storage.
}

// Store wraps a *badger.DB, matching the teacher's badger.Store shape.
type Store struct {
	db *badger.DB
}

// New opens (creating if necessary) a badger-backed Store.
func New(cfg *Config) (*Store, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("DataDir is required")
	}

	opts := badger.DefaultOptions(cfg.DataDir)
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return &Store{db: db}, nil
}

// Context returns a storage.Context bound to path, running each
// operation in its own implicit badger transaction.
func (s *Store) Context(path storage.Path) storage.Context {
	return &badgerContext{db: s.db, path: path.Clone()}
}

// CloseStore releases the underlying badger database.
func (s *Store) CloseStore() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func cfPrefixByte(cf storage.ColumnFamily) byte {
	switch cf {
	case storage.CFData:
		return 0x00
	case storage.CFAux:
		return 0x01
	case storage.CFRoots:
		return 0x02
	case storage.CFMeta:
		return 0x03
	default:
		return 0xff
	}
}

func prefixedKey(path storage.Path, cf storage.ColumnFamily, key []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(cfPrefixByte(cf))
	for _, seg := range path {
		buf.WriteByte(byte(len(seg)))
		buf.Write(seg)
	}
	buf.Write(key)
	return buf.Bytes()
}

func pathPrefix(path storage.Path, cf storage.ColumnFamily) []byte {
	return prefixedKey(path, cf, nil)
}

type badgerContext struct {
	db  *badger.DB
	txn *badger.Txn // non-nil when this context is a Txn
	path storage.Path
}

func (c *badgerContext) Path() storage.Path { return c.path }

func (c *badgerContext) WithPath(path storage.Path) storage.Context {
	return &badgerContext{db: c.db, txn: c.txn, path: path.Clone()}
}

func (c *badgerContext) Get(cf storage.ColumnFamily, key []byte) ([]byte, *cost.Cost, error) {
	k := prefixedKey(c.path, cf, key)
	var out []byte
	loadGet := func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte{}, val...)
			return nil
		})
	}

	var err error
	if c.txn != nil {
		err = loadGet(c.txn)
	} else {
		err = c.db.View(loadGet)
	}
	if err != nil {
		return nil, &cost.Cost{SeekCount: 1}, fmt.Errorf("badgerstore get: %w", err)
	}
	c1 := &cost.Cost{SeekCount: 1, StorageLoadedBytes: uint64(len(out))}
	return out, c1, nil
}

func (c *badgerContext) existingLen(cf storage.ColumnFamily, key []byte) (int, bool) {
	k := prefixedKey(c.path, cf, key)
	var size int
	var found bool
	read := func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		size = int(item.ValueSize())
		return nil
	}
	if c.txn != nil {
		_ = read(c.txn)
	} else {
		_ = c.db.View(read)
	}
	return size, found
}

func (c *badgerContext) Put(cf storage.ColumnFamily, key, value []byte) (*cost.Cost, error) {
	k := prefixedKey(c.path, cf, key)
	oldLen, existed := c.existingLen(cf, key)

	write := func(txn *badger.Txn) error { return txn.Set(k, value) }
	var err error
	if c.txn != nil {
		err = write(c.txn)
	} else {
		err = c.db.Update(write)
	}
	if err != nil {
		return &cost.Cost{SeekCount: 1}, fmt.Errorf("badgerstore put: %w", err)
	}

	c1 := &cost.Cost{SeekCount: 1}
	switch {
	case !existed:
		c1.Storage.AddedBytes = uint32(len(value))
	case len(value) > oldLen:
		c1.Storage.ReplacedBytes = uint32(oldLen)
		c1.Storage.AddedBytes = uint32(len(value) - oldLen)
	default:
		c1.Storage.ReplacedBytes = uint32(len(value))
		if oldLen > len(value) {
			c1.Storage.RemovedBytes = cost.RemovedBytes{Kind: cost.RemovalBasic, Basic: uint32(oldLen - len(value))}
		}
	}
	return c1, nil
}

func (c *badgerContext) Delete(cf storage.ColumnFamily, key []byte) (*cost.Cost, error) {
	k := prefixedKey(c.path, cf, key)
	oldLen, existed := c.existingLen(cf, key)

	del := func(txn *badger.Txn) error { return txn.Delete(k) }
	var err error
	if c.txn != nil {
		err = del(c.txn)
	} else {
		err = c.db.Update(del)
	}
	if err != nil {
		return &cost.Cost{SeekCount: 1}, fmt.Errorf("badgerstore delete: %w", err)
	}
	c1 := &cost.Cost{SeekCount: 1}
	if existed {
		c1.Storage.RemovedBytes = cost.RemovedBytes{Kind: cost.RemovalBasic, Basic: uint32(oldLen)}
	}
	return c1, nil
}

func (c *badgerContext) NewBatch() storage.Batch {
	return &badgerBatch{ctx: c, wb: c.db.NewWriteBatch()}
}

type batchEntry struct {
	cf     storage.ColumnFamily
	key    []byte
	value  []byte
	delete bool
}

type badgerBatch struct {
	ctx     *badgerContext
	wb      *badger.WriteBatch
	entries []batchEntry
}

func (b *badgerBatch) Put(cf storage.ColumnFamily, key, value []byte) {
	b.entries = append(b.entries, batchEntry{cf: cf, key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
}

func (b *badgerBatch) Delete(cf storage.ColumnFamily, key []byte) {
	b.entries = append(b.entries, batchEntry{cf: cf, key: append([]byte(nil), key...), delete: true})
}

func (b *badgerBatch) Commit() (*cost.Cost, error) {
	total := &cost.Cost{}
	defer b.wb.Cancel()
	for _, e := range b.entries {
		k := prefixedKey(b.ctx.path, e.cf, e.key)
		oldLen, existed := b.ctx.existingLen(e.cf, e.key)
		if e.delete {
			if err := b.wb.Delete(k); err != nil {
				return total, fmt.Errorf("badgerstore batch delete: %w", err)
			}
			if existed {
				total.Storage.RemovedBytes.Add(cost.RemovedBytes{Kind: cost.RemovalBasic, Basic: uint32(oldLen)})
			}
			continue
		}
		if err := b.wb.Set(k, e.value); err != nil {
			return total, fmt.Errorf("badgerstore batch put: %w", err)
		}
		switch {
		case !existed:
			total.Storage.AddedBytes += uint32(len(e.value))
		case len(e.value) > oldLen:
			total.Storage.ReplacedBytes += uint32(oldLen)
			total.Storage.AddedBytes += uint32(len(e.value) - oldLen)
		default:
			total.Storage.ReplacedBytes += uint32(len(e.value))
		}
		total.SeekCount++
	}
	if err := b.wb.Flush(); err != nil {
		return total, fmt.Errorf("badgerstore batch commit: %w", err)
	}
	return total, nil
}

// Begin starts an explicit read-write transaction, implementing
// storage.Transactional per spec.md §4.C's "optional transaction handle".
func (c *badgerContext) Begin() (storage.Txn, error) {
	txn := c.db.NewTransaction(true)
	return &badgerContext{db: c.db, txn: txn, path: c.path}, nil
}

func (c *badgerContext) Commit() error {
	if c.txn == nil {
		return fmt.Errorf("badgerstore: Commit called on a non-transactional context")
	}
	return c.txn.Commit()
}

func (c *badgerContext) Rollback() error {
	if c.txn == nil {
		return fmt.Errorf("badgerstore: Rollback called on a non-transactional context")
	}
	c.txn.Discard()
	return nil
}

func (c *badgerContext) Close() error { return nil }

type badgerIterator struct {
	txn      *badger.Txn
	ownedTxn bool
	it       *badger.Iterator
	prefix   []byte
	reverse  bool
}

func (c *badgerContext) RawIterator(cf storage.ColumnFamily) storage.RawIterator {
	txn := c.txn
	owned := false
	if txn == nil {
		txn = c.db.NewTransaction(false)
		owned = true
	}
	opts := badger.DefaultIteratorOptions
	opts.Prefix = pathPrefix(c.path, cf)
	it := txn.NewIterator(opts)
	return &badgerIterator{txn: txn, ownedTxn: owned, it: it, prefix: opts.Prefix}
}

func (it *badgerIterator) SeekToFirst() { it.it.Rewind() }

func (it *badgerIterator) SeekToLast() {
	// badger iterators are unidirectional per Iterator instance; emulate
	// seek-to-last by scanning to the end of the prefix range.
	it.it.Rewind()
	for it.it.ValidForPrefix(it.prefix) {
		it.it.Next()
	}
}

func (it *badgerIterator) Seek(key []byte) {
	it.it.Seek(append(append([]byte{}, it.prefix...), key...))
}

func (it *badgerIterator) SeekForPrev(key []byte) {
	it.it.Seek(append(append([]byte{}, it.prefix...), key...))
}

func (it *badgerIterator) Next() { it.it.Next() }

func (it *badgerIterator) Prev() { it.it.Next() }

func (it *badgerIterator) Valid() bool { return it.it.ValidForPrefix(it.prefix) }

func (it *badgerIterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	k := it.it.Item().KeyCopy(nil)
	return k[len(it.prefix):]
}

func (it *badgerIterator) Value() []byte {
	if !it.Valid() {
		return nil
	}
	v, _ := it.it.Item().ValueCopy(nil)
	return v
}

func (it *badgerIterator) Close() {
	it.it.Close()
	if it.ownedTxn {
		it.txn.Discard()
	}
}
