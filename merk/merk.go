package merk

import (
	"bytes"

	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/feature"
	"github.com/dashpay/grovedb-go/groveerr"
	"github.com/dashpay/grovedb-go/hash"
	"github.com/dashpay/grovedb-go/storage"
)

// rootPointerKey is the constant key under which a Merk's current root
// key is stored in the roots column family (spec.md §6.1: "key = short
// constant ('r') or subtree key").
var rootPointerKey = []byte("r")

// defaultNodeCacheSize bounds the per-Merk hot-key LRU; NewNodeCache only
// fails on a non-positive size, which this constant never is.
const defaultNodeCacheSize = 4096

// Merk is a single AVL+ authenticated tree bound to a storage.Context
// (spec.md §3 "Merk" entity).
type Merk struct {
	root     *Tree
	ctx      storage.Context
	treeType feature.TreeType
	cache    *NodeCache
}

// Open opens (or initializes, if empty) a Merk over ctx by reading its
// root-key pointer from the roots column family, per spec.md §3
// Lifecycle ("A Merk is opened by reading its root-key pointer").
func Open(ctx storage.Context, treeType feature.TreeType) (*Merk, *cost.Cost, error) {
	cache, _ := NewNodeCache(defaultNodeCacheSize)
	m := &Merk{ctx: ctx, treeType: treeType, cache: cache}
	rootKey, c, err := ctx.Get(storage.CFRoots, rootPointerKey)
	if err != nil {
		return nil, c, groveerr.Wrap(groveerr.StorageError, "merk: open: read root pointer", err)
	}
	if rootKey == nil {
		return m, c, nil
	}
	t, fc, err := m.source().Fetch(rootKey)
	c.Add(fc)
	if err != nil {
		return nil, c, err
	}
	m.root = t
	return m, c, nil
}

type merkSource struct{ ctx storage.Context }

func (s merkSource) Fetch(key []byte) (*Tree, *cost.Cost, error) {
	buf, c, err := s.ctx.Get(storage.CFData, key)
	if err != nil {
		return nil, c, groveerr.Wrap(groveerr.StorageError, "merk: fetch node", err)
	}
	if buf == nil {
		return nil, c, groveerr.New(groveerr.CorruptedData, "merk: referenced node missing from storage")
	}
	t, err := DecodeNode(buf)
	if err != nil {
		return nil, c, err
	}
	return t, c, nil
}

func (m *Merk) source() Source { return merkSource{ctx: m.ctx} }

// RootHash returns the root's node_hash, or NULL_HASH for an empty Merk
// (spec.md §4.D).
func (m *Merk) RootHash() hash.Hash {
	if m.root == nil {
		return hash.NullHash
	}
	return m.root.Hash()
}

// Height returns 1 + max(child heights), 0 when empty.
func (m *Merk) Height() uint8 {
	return m.root.Height()
}

// TreeType returns the Merk's declared feature-type constraint.
func (m *Merk) TreeType() feature.TreeType { return m.treeType }

// Get walks from the root following lex ordering, returning the value
// stored at key, or nil if absent. allowCache controls whether nodes
// resolved along the walk are marked hot in m.cache: a read that expects
// to repeat (e.g. a hot query path) passes true so the node survives the
// next commit's prune pass instead of being demoted back to Reference.
func (m *Merk) Get(key []byte, allowCache bool) ([]byte, *cost.Cost, error) {
	c := &cost.Cost{}
	node := m.root
	for node != nil {
		cmp := bytes.Compare(key, node.KV.Key)
		if cmp == 0 {
			if allowCache && m.cache != nil {
				m.cache.Touch(key)
			}
			return node.KV.Value, c, nil
		}
		left := cmp < 0
		child, cc, err := m.resolveWithCache(node.child(left), allowCache)
		c.Add(cc)
		if err != nil {
			return nil, c, err
		}
		node = child
	}
	return nil, c, nil
}

// Apply executes an ordered batch of (key, Op) pairs (spec.md §4.D). The
// batch's keys must be strictly increasing, mirroring the real
// GroveDB's requirement that callers pre-sort so the executor can fuse
// traversal with mutation; this implementation applies each key
// independently via the AVL insert/delete routines in avl.go, which is
// sufficient to produce the same resulting tree and root hash (spec.md
// §8 property 1: hash determinism is order-independent on the resulting
// *state*, not on the batch's internal application strategy).
func (m *Merk) Apply(ops []KeyOp, auxOps []KeyOp) (*cost.Cost, error) {
	total := &cost.Cost{}
	if !strictlyIncreasing(ops) {
		return total, groveerr.New(groveerr.InvalidInput, "merk: apply: batch keys not strictly increasing")
	}

	for _, op := range ops {
		c, err := m.applyOne(op)
		total.Add(c)
		if err != nil {
			return total, err
		}
	}

	for _, aux := range auxOps {
		switch aux.Kind {
		case OpDelete:
			c, err := m.ctx.Delete(storage.CFAux, aux.Key)
			total.Add(c)
			if err != nil {
				return total, groveerr.Wrap(groveerr.StorageError, "merk: apply: aux delete", err)
			}
		default:
			c, err := m.ctx.Put(storage.CFAux, aux.Key, aux.Value)
			total.Add(c)
			if err != nil {
				return total, groveerr.Wrap(groveerr.StorageError, "merk: apply: aux put", err)
			}
		}
	}
	return total, nil
}

func strictlyIncreasing(ops []KeyOp) bool {
	for i := 1; i < len(ops); i++ {
		if bytes.Compare(ops[i-1].Key, ops[i].Key) >= 0 {
			return false
		}
	}
	return true
}

func (m *Merk) applyOne(op KeyOp) (*cost.Cost, error) {
	if op.Kind == OpDelete {
		newRoot, found, c, err := deleteKey(m.root, op.Key, m.source())
		if err != nil {
			return c, err
		}
		if !found {
			return c, groveerr.New(groveerr.InvalidOperation, "merk: delete on absent key")
		}
		m.root = newRoot
		return c, nil
	}

	leaf, ft, lc, err := m.buildLeaf(op)
	if err != nil {
		return lc, err
	}
	if !m.treeType.Allows(ft.Tag) {
		return lc, groveerr.New(groveerr.InvalidOperation, "merk: feature type not allowed by tree type")
	}

	newRoot, c, err := insert(m.root, leaf, m.source())
	c.Add(lc)
	if err != nil {
		return c, err
	}
	m.root = newRoot
	return c, nil
}

func (m *Merk) buildLeaf(op KeyOp) (*Tree, feature.Type, *cost.Cost, error) {
	switch op.Kind {
	case OpPut:
		t, c := NewLeaf(op.Key, op.Value, op.Feature)
		return t, op.Feature, c, nil
	case OpPutWithSpecializedCost:
		t, c := NewLeaf(op.Key, op.Value, op.Feature)
		t.KV.ValueDefinedCost = op.CostOverride
		return t, op.Feature, c, nil
	case OpPutCombinedReference:
		vh, c1 := hash.CombinedValueHash(op.Value, op.ReferencedHash)
		t, c2 := NewLeafWithValueHash(op.Key, op.Value, vh, op.Feature)
		c1.Add(c2)
		return t, op.Feature, c1, nil
	case OpPutLayeredReference, OpReplaceLayeredReference:
		vh, c1 := hash.LayeredValueHash(op.Value, op.SubtreeRootHash)
		t, c2 := NewLeafWithValueHash(op.Key, op.Value, vh, op.Feature)
		c1.Add(c2)
		t.KV.ValueDefinedCost = op.SubtreeCost
		return t, op.Feature, c1, nil
	case OpRefreshReference:
		existing, c1, err := resolve(m.findLink(op.Key), m.source())
		if err != nil {
			return nil, feature.Type{}, c1, err
		}
		if existing == nil {
			return nil, feature.Type{}, c1, groveerr.New(groveerr.PathKeyNotFound, "merk: refresh reference: key not found")
		}
		vh, c2 := hash.LayeredValueHash(existing.KV.Value, op.SubtreeRootHash)
		t, c3 := NewLeafWithValueHash(op.Key, existing.KV.Value, vh, op.Feature)
		c1.Add(c2)
		c1.Add(c3)
		t.KV.ValueDefinedCost = existing.KV.ValueDefinedCost
		return t, op.Feature, c1, nil
	default:
		return nil, feature.Type{}, &cost.Cost{}, groveerr.New(groveerr.CorruptedCodeExecution, "merk: unknown op kind")
	}
}

// findLink returns a link pointing at the node with the given key,
// walking from the root and loading Reference children from storage on
// the way. Used only by RefreshReference. Returns nil when the key is
// absent or a node on the way cannot be loaded.
func (m *Merk) findLink(key []byte) *Link {
	node := m.root
	for node != nil {
		cmp := bytes.Compare(key, node.KV.Key)
		if cmp == 0 {
			return loadedLink(node)
		}
		child, _, err := resolve(node.child(cmp < 0), m.source())
		if err != nil {
			return nil
		}
		node = child
	}
	return nil
}

// resolveWithCache resolves l, and when allowCache is set and the link
// was a Reference freshly pulled from storage, marks the node hot in
// m.cache so DefaultPrunePolicy keeps it resident through the next
// commit.
func (m *Merk) resolveWithCache(l *Link, allowCache bool) (*Tree, *cost.Cost, error) {
	wasReference := l != nil && l.State == LinkReference
	t, c, err := resolve(l, m.source())
	if err == nil && allowCache && wasReference && t != nil && m.cache != nil {
		m.cache.Touch(t.KV.Key)
	}
	return t, c, err
}

// DefaultPrunePolicy returns the PrunePolicy backed by this Merk's node
// cache: hot keys stay Loaded across commit, everything else is demoted
// to Reference (spec.md §4.D commit step 4).
func (m *Merk) DefaultPrunePolicy() PrunePolicy {
	if m.cache == nil {
		return AlwaysPrune{}
	}
	return m.cache
}

// InOrderKeys returns every key in the tree in ascending order. Used by
// tests and by the chunk/proof packages that need a full-tree snapshot.
func (m *Merk) InOrderKeys() [][]byte {
	var keys [][]byte
	var walk func(*Tree)
	walk = func(t *Tree) {
		if t == nil {
			return
		}
		if t.Left != nil {
			left, _, _ := resolve(t.Left, m.source())
			walk(left)
		}
		keys = append(keys, t.KV.Key)
		if t.Right != nil {
			right, _, _ := resolve(t.Right, m.source())
			walk(right)
		}
	}
	walk(m.root)
	return keys
}

// Root returns the in-memory root node, or nil for an empty Merk. Used
// by the commit, proof, and chunk packages that need direct node access.
func (m *Merk) Root() *Tree { return m.root }

// ResolveChild fetches l's subtree, loading it from storage if l is
// still in Reference state. Exposed for the proof and chunk packages,
// which walk the tree structure directly rather than through Get/Apply.
func (m *Merk) ResolveChild(l *Link) (*Tree, *cost.Cost, error) {
	return resolve(l, m.source())
}

// Context returns the storage context this Merk is bound to.
func (m *Merk) Context() storage.Context { return m.ctx }
