package merk

import (
	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/groveerr"
	"github.com/dashpay/grovedb-go/storage"
)

// PrunePolicy decides, for each node just committed, whether to demote
// its in-memory Tree back to a bare Reference (freeing it from memory),
// per spec.md §4.D commit step 4. NodeCache.ShouldPrune is the default
// policy; tests may supply AlwaysKeep / AlwaysPrune.
type PrunePolicy interface {
	ShouldPrune(key []byte, depth int) bool
}

// AlwaysPrune demotes every committed node to Reference immediately,
// keeping nothing resident.
type AlwaysPrune struct{}

func (AlwaysPrune) ShouldPrune([]byte, int) bool { return true }

// AlwaysKeep never prunes; every committed node stays Loaded in memory.
type AlwaysKeep struct{}

func (AlwaysKeep) ShouldPrune([]byte, int) bool { return false }

// Commit depth-first walks the tree writing every Modified subtree's
// serialized bytes to the data column family, demoting committed links
// to Loaded/Reference per policy, and finally writing the new root key
// to the roots column family (spec.md §4.D "Commit / prune").
func (m *Merk) Commit(policy PrunePolicy) (*cost.Cost, error) {
	total := &cost.Cost{}
	if m.root == nil {
		c, err := m.ctx.Delete(storage.CFRoots, rootPointerKey)
		total.Add(c)
		if err != nil {
			return total, groveerr.Wrap(groveerr.StorageError, "merk: commit: clear root pointer", err)
		}
		return total, nil
	}

	if err := m.commitNode(m.root, policy, 0, total); err != nil {
		return total, err
	}

	c, err := m.ctx.Put(storage.CFRoots, rootPointerKey, append([]byte(nil), m.root.KV.Key...))
	total.Add(c)
	if err != nil {
		return total, groveerr.Wrap(groveerr.StorageError, "merk: commit: write root pointer", err)
	}
	return total, nil
}

func (m *Merk) commitNode(t *Tree, policy PrunePolicy, depth int, total *cost.Cost) error {
	if t.Left != nil && t.Left.Tree != nil {
		if err := m.commitNode(t.Left.Tree, policy, depth+1, total); err != nil {
			return err
		}
		t.Left = m.finalizeLink(t.Left, policy, depth+1)
	}
	if t.Right != nil && t.Right.Tree != nil {
		if err := m.commitNode(t.Right.Tree, policy, depth+1, total); err != nil {
			return err
		}
		t.Right = m.finalizeLink(t.Right, policy, depth+1)
	}

	buf := t.Encode()
	c, err := m.ctx.Put(storage.CFData, t.KV.Key, buf)
	total.Add(c)
	if err != nil {
		return groveerr.Wrap(groveerr.StorageError, "merk: commit: write node", err)
	}
	return nil
}

// finalizeLink rewrites a just-committed child's link: state becomes
// Loaded (hash + heights known and up to date), then immediately demoted
// to Reference if the prune policy says so.
func (m *Merk) finalizeLink(l *Link, policy PrunePolicy, depth int) *Link {
	t := l.Tree
	heights := t.childHeightsOfSelf()
	if policy != nil && policy.ShouldPrune(t.KV.Key, depth) {
		return referenceLink(t.Hash(), heights, t.KV.Key, t.Aggregate)
	}
	return &Link{State: LinkLoaded, Tree: t, Hash: t.Hash(), ChildHeights: heights, Aggregate: t.Aggregate}
}
