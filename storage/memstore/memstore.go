// Package memstore is an in-memory storage.Context, grounded on the
// teacher's kvstore/memory package (a sync.Map-backed KVStore "suitable
// for testing and development"). GroveDB-Go generalizes it to four
// column families and a sorted keyspace so RawIterator can walk it in
// lexicographic order, which a plain sync.Map cannot do.
package memstore

import (
	"bytes"
	"sort"
	"sync"

	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/storage"
)

type cfData struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func newCFData() *cfData { return &cfData{data: map[string][]byte{}} }

// Store is a shared in-memory backend; multiple Contexts (one per path
// prefix) can be created over the same Store.
type Store struct {
	cfs [4]*cfData
}

// New creates a new in-memory backend.
func New() *Store {
	s := &Store{}
	for i := range s.cfs {
		s.cfs[i] = newCFData()
	}
	return s
}

// Context returns a storage.Context bound to the given path.
func (s *Store) Context(path storage.Path) storage.Context {
	return &memContext{store: s, path: path.Clone()}
}

type memContext struct {
	store *Store
	path  storage.Path
}

func (c *memContext) Path() storage.Path { return c.path }

func (c *memContext) WithPath(path storage.Path) storage.Context {
	return &memContext{store: c.store, path: path.Clone()}
}

func (c *memContext) prefixedKey(key []byte) string {
	var buf bytes.Buffer
	for _, seg := range c.path {
		buf.WriteByte(byte(len(seg)))
		buf.Write(seg)
	}
	buf.Write(key)
	return buf.String()
}

func (c *memContext) cf(cf storage.ColumnFamily) *cfData {
	return c.store.cfs[cf]
}

func (c *memContext) Get(cfID storage.ColumnFamily, key []byte) ([]byte, *cost.Cost, error) {
	d := c.cf(cfID)
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.data[c.prefixedKey(key)]
	c1 := &cost.Cost{SeekCount: 1}
	if !ok {
		return nil, c1, nil
	}
	c1.StorageLoadedBytes = uint64(len(v))
	out := append([]byte(nil), v...)
	return out, c1, nil
}

func (c *memContext) Put(cfID storage.ColumnFamily, key, value []byte) (*cost.Cost, error) {
	d := c.cf(cfID)
	k := c.prefixedKey(key)
	d.mu.Lock()
	old, existed := d.data[k]
	cp := append([]byte(nil), value...)
	d.data[k] = cp
	d.mu.Unlock()

	c1 := &cost.Cost{SeekCount: 1}
	if existed {
		if len(value) > len(old) {
			c1.Storage.ReplacedBytes = uint32(len(old))
			c1.Storage.AddedBytes = uint32(len(value) - len(old))
		} else {
			c1.Storage.ReplacedBytes = uint32(len(value))
			if len(old) > len(value) {
				c1.Storage.RemovedBytes = cost.RemovedBytes{Kind: cost.RemovalBasic, Basic: uint32(len(old) - len(value))}
			}
		}
	} else {
		c1.Storage.AddedBytes = uint32(len(value))
	}
	return c1, nil
}

func (c *memContext) Delete(cfID storage.ColumnFamily, key []byte) (*cost.Cost, error) {
	d := c.cf(cfID)
	k := c.prefixedKey(key)
	d.mu.Lock()
	old, existed := d.data[k]
	delete(d.data, k)
	d.mu.Unlock()

	c1 := &cost.Cost{SeekCount: 1}
	if existed {
		c1.Storage.RemovedBytes = cost.RemovedBytes{Kind: cost.RemovalBasic, Basic: uint32(len(old))}
	}
	return c1, nil
}

func (c *memContext) NewBatch() storage.Batch {
	return &memBatch{ctx: c}
}

func (c *memContext) Close() error { return nil }

type batchOp struct {
	cf     storage.ColumnFamily
	key    []byte
	value  []byte
	delete bool
}

type memBatch struct {
	ctx *memContext
	ops []batchOp
}

func (b *memBatch) Put(cf storage.ColumnFamily, key, value []byte) {
	b.ops = append(b.ops, batchOp{cf: cf, key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
}

func (b *memBatch) Delete(cf storage.ColumnFamily, key []byte) {
	b.ops = append(b.ops, batchOp{cf: cf, key: append([]byte(nil), key...), delete: true})
}

func (b *memBatch) Commit() (*cost.Cost, error) {
	total := &cost.Cost{}
	for _, op := range b.ops {
		var c *cost.Cost
		var err error
		if op.delete {
			c, err = b.ctx.Delete(op.cf, op.key)
		} else {
			c, err = b.ctx.Put(op.cf, op.key, op.value)
		}
		if err != nil {
			return total, err
		}
		total.Add(c)
	}
	return total, nil
}

// RawIterator implementation: snapshots sorted keys under this context's
// prefix at iterator-creation time, matching the spec's requirement of a
// stable lexicographic cursor.
type memIterator struct {
	ctx     *memContext
	cfID    storage.ColumnFamily
	keys    []string // prefixed keys, sorted
	rawKeys [][]byte // corresponding unprefixed keys
	values  [][]byte
	pos     int
	valid   bool
}

func (c *memContext) RawIterator(cfID storage.ColumnFamily) storage.RawIterator {
	d := c.cf(cfID)
	d.mu.RLock()
	defer d.mu.RUnlock()

	prefix := c.prefixedKey(nil)
	it := &memIterator{ctx: c, cfID: cfID}
	for k, v := range d.data {
		if len(k) < len(prefix) || k[:len(prefix)] != prefix {
			continue
		}
		it.keys = append(it.keys, k)
		it.rawKeys = append(it.rawKeys, []byte(k[len(prefix):]))
		it.values = append(it.values, append([]byte(nil), v...))
	}
	idx := make([]int, len(it.keys))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return bytes.Compare(it.rawKeys[idx[i]], it.rawKeys[idx[j]]) < 0 })
	sortedRaw := make([][]byte, len(idx))
	sortedVal := make([][]byte, len(idx))
	for i, j := range idx {
		sortedRaw[i] = it.rawKeys[j]
		sortedVal[i] = it.values[j]
	}
	it.rawKeys = sortedRaw
	it.values = sortedVal
	it.pos = -1
	return it
}

func (it *memIterator) SeekToFirst() {
	it.pos = 0
	it.valid = len(it.rawKeys) > 0
}

func (it *memIterator) SeekToLast() {
	it.pos = len(it.rawKeys) - 1
	it.valid = it.pos >= 0
}

func (it *memIterator) Seek(key []byte) {
	it.pos = sort.Search(len(it.rawKeys), func(i int) bool { return bytes.Compare(it.rawKeys[i], key) >= 0 })
	it.valid = it.pos < len(it.rawKeys)
}

func (it *memIterator) SeekForPrev(key []byte) {
	i := sort.Search(len(it.rawKeys), func(i int) bool { return bytes.Compare(it.rawKeys[i], key) > 0 })
	it.pos = i - 1
	it.valid = it.pos >= 0
}

func (it *memIterator) Next() {
	it.pos++
	it.valid = it.pos < len(it.rawKeys)
}

func (it *memIterator) Prev() {
	it.pos--
	it.valid = it.pos >= 0
}

func (it *memIterator) Valid() bool { return it.valid && it.pos >= 0 && it.pos < len(it.rawKeys) }

func (it *memIterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.rawKeys[it.pos]
}

func (it *memIterator) Value() []byte {
	if !it.Valid() {
		return nil
	}
	return it.values[it.pos]
}

func (it *memIterator) Close() {}
