// Package batch implements GroveDB's multi-path batch executor
// (spec.md §4.I): group qualified ops by path, order Merks leaves-first,
// apply each Merk's op list, and pass each committed child root hash to
// its parent. A parent's stored layered reference is updated only when
// the batch itself carries an op for that key (an IsSubtree op or an
// ElementRefreshReference op); no RefreshReference op is synthesized for
// a parent the batch does not mention.
//
// Grounded on the teacher's treebuilder.BuildBlockSubtreeIndex
// (group-then-build-parent-from-children shape: collect children,
// derive each parent's summary from its already-built children, walk
// upward) generalized from a fixed two-level block/subtree index to an
// arbitrary-depth path tree.
package batch

import (
	"bytes"
	"sort"

	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/feature"
	"github.com/dashpay/grovedb-go/groveerr"
	"github.com/dashpay/grovedb-go/hash"
	"github.com/dashpay/grovedb-go/merk"
	"github.com/dashpay/grovedb-go/storage"
)

// ElementKind is what a qualified op's payload describes.
type ElementKind uint8

const (
	ElementInsert ElementKind = iota
	ElementInsertOrReplace
	ElementReplace
	ElementDelete
	ElementDeleteTree
	ElementRefreshReference
)

// QualifiedOp is one entry of the batch input (spec.md §4.I).
type QualifiedOp struct {
	Path    storage.Path
	Key     []byte
	Kind    ElementKind
	Value   []byte
	Feature feature.Type
	// IsSubtree marks this key as itself rooting a child Merk (a
	// layered reference), so the plan phase creates a dependency edge
	// from Path‖Key to Path.
	IsSubtree bool
}

// Opener resolves the storage.Context backing the Merk at a given path.
type Opener interface {
	OpenContext(path storage.Path) (storage.Context, error)
}

// Hooks carries the cost-propagation callbacks of spec.md §4.I. Execute
// accepts a Hooks value but does not invoke either callback.
type Hooks struct {
	UpdateElementFlags   cost.UpdateElementFlagsFunc
	SectionRemovalBytes  cost.SectionRemovalFunc
}

type pathNode struct {
	path     storage.Path
	ops      []QualifiedOp
	children []*pathNode
	depth    int
}

// Execute runs the full plan+apply pipeline over ops against the given
// opener, per spec.md §4.I. It returns the total accumulated cost.
func Execute(ops []QualifiedOp, treeTypes func(path storage.Path) feature.TreeType, opener Opener, hooks Hooks) (*cost.Cost, error) {
	if err := validate(ops); err != nil {
		return &cost.Cost{}, err
	}

	byPath := groupByPath(ops)
	order := dependencyOrder(byPath)

	total := &cost.Cost{}
	// rootHashes records each path's post-apply root hash so a parent
	// path's synthesized layered-reference ops can consult its child's
	// freshly committed hash.
	rootHashes := map[string]hash.Hash{}

	for _, key := range order {
		node := byPath[key]
		ctx, err := opener.OpenContext(node.path)
		if err != nil {
			return total, groveerr.Wrap(groveerr.StorageError, "batch: open context", err)
		}

		tt := feature.TreeBasic
		if treeTypes != nil {
			tt = treeTypes(node.path)
		}
		m, c, err := merk.Open(ctx, tt)
		total.Add(c)
		if err != nil {
			return total, err
		}

		keyOps, err := translateOps(node.ops, node.path, rootHashes, opener, treeTypes, total)
		if err != nil {
			return total, err
		}
		sort.Slice(keyOps, func(i, j int) bool { return bytes.Compare(keyOps[i].Key, keyOps[j].Key) < 0 })

		c, err = m.Apply(keyOps, nil)
		total.Add(c)
		if err != nil {
			return total, groveerr.Wrap(groveerr.InvalidOperation, "batch: apply", err)
		}

		c, err = m.Commit(m.DefaultPrunePolicy())
		total.Add(c)
		if err != nil {
			return total, groveerr.Wrap(groveerr.StorageError, "batch: commit", err)
		}

		rootHashes[pathKey(node.path)] = m.RootHash()
	}

	return total, nil
}

func validate(ops []QualifiedOp) error {
	seen := map[string]bool{}
	for _, op := range ops {
		id := pathKey(op.Path) + "\x00" + string(op.Key)
		if seen[id] && op.Kind != ElementDelete && op.Kind != ElementDeleteTree {
			return groveerr.New(groveerr.InvalidInput, "batch: duplicate (path, key) without delete")
		}
		seen[id] = true
	}
	return nil
}

func groupByPath(ops []QualifiedOp) map[string]*pathNode {
	out := map[string]*pathNode{}
	for _, op := range ops {
		k := pathKey(op.Path)
		n, ok := out[k]
		if !ok {
			n = &pathNode{path: op.Path, depth: len(op.Path)}
			out[k] = n
		}
		n.ops = append(n.ops, op)
	}
	return out
}

// dependencyOrder returns path keys sorted so that every path is listed
// after all its strict descendants (leaves-first), per spec.md §4.I
// plan step 3. Depth is a sufficient and correct ordering key since a
// child path is always strictly longer than its parent.
func dependencyOrder(byPath map[string]*pathNode) []string {
	keys := make([]string, 0, len(byPath))
	for k := range byPath {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if byPath[keys[i]].depth != byPath[keys[j]].depth {
			return byPath[keys[i]].depth > byPath[keys[j]].depth
		}
		return keys[i] > keys[j]
	})
	return keys
}

// translateOps converts qualified ops for one path into Merk-level
// KeyOps (spec.md §4.I apply step 2), synthesizing a layered-reference
// op wherever the key also roots a child path. When that child path
// carries no ops of its own in this batch (e.g. a batch that only
// creates a new, still-empty subtree), its root hash is resolved
// directly by opening it rather than treated as an error — an untouched
// or brand-new subtree still has a root hash (NULL_HASH if empty), and
// creating an empty subtree is a basic forest operation spec.md doesn't
// exclude.
func translateOps(ops []QualifiedOp, path storage.Path, rootHashes map[string]hash.Hash, opener Opener, treeTypes func(storage.Path) feature.TreeType, total *cost.Cost) ([]merk.KeyOp, error) {
	var out []merk.KeyOp
	for _, op := range ops {
		childPath := append(append(storage.Path{}, path...), op.Key)
		childKey := pathKey(childPath)
		childHash, hasChild := rootHashes[childKey]

		needsChildHash := op.Kind == ElementRefreshReference || op.IsSubtree
		if needsChildHash && !hasChild {
			h, err := openChildRootHash(childPath, opener, treeTypes, total)
			if err != nil {
				return nil, err
			}
			childHash = h
			hasChild = true
			rootHashes[childKey] = childHash
		}

		switch op.Kind {
		case ElementDelete, ElementDeleteTree:
			out = append(out, merk.Delete(op.Key))
		case ElementRefreshReference:
			out = append(out, merk.RefreshReference(op.Key, childHash, op.Feature))
		default:
			if op.IsSubtree {
				if op.Kind == ElementReplace {
					out = append(out, merk.ReplaceLayeredReference(op.Key, op.Value, 0, childHash, op.Feature))
				} else {
					out = append(out, merk.PutLayeredReference(op.Key, op.Value, 0, childHash, op.Feature))
				}
			} else {
				out = append(out, merk.Put(op.Key, op.Value, op.Feature))
			}
		}
	}
	return out, nil
}

// openChildRootHash opens the Merk at childPath (empty if it has never
// been written) and returns its current root hash.
func openChildRootHash(childPath storage.Path, opener Opener, treeTypes func(storage.Path) feature.TreeType, total *cost.Cost) (hash.Hash, error) {
	ctx, err := opener.OpenContext(childPath)
	if err != nil {
		return hash.Hash{}, groveerr.Wrap(groveerr.StorageError, "batch: open child context", err)
	}
	tt := feature.TreeBasic
	if treeTypes != nil {
		tt = treeTypes(childPath)
	}
	childMerk, c, err := merk.Open(ctx, tt)
	total.Add(c)
	if err != nil {
		return hash.Hash{}, err
	}
	return childMerk.RootHash(), nil
}

func pathKey(p storage.Path) string {
	var buf bytes.Buffer
	for _, seg := range p {
		buf.WriteByte(byte(len(seg)))
		buf.Write(seg)
	}
	return buf.String()
}
