package merk

import (
	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/groveerr"
)

// Source loads a child node's full Tree given the key its Reference link
// recorded, mirroring the Rust Fetch trait (tree/mod.rs Tree::load).
// Merk.get/Merk.Apply use it to turn a Reference link into a Loaded one
// on demand.
type Source interface {
	Fetch(key []byte) (*Tree, *cost.Cost, error)
}

// resolve returns the Tree behind a link, fetching and upgrading
// Reference -> Loaded in place if necessary. Returns (nil, cost, nil)
// for a nil link (no child).
func resolve(l *Link, src Source) (*Tree, *cost.Cost, error) {
	if l == nil {
		return nil, &cost.Cost{}, nil
	}
	if l.Tree != nil {
		return l.Tree, &cost.Cost{}, nil
	}
	if l.State != LinkReference {
		return nil, &cost.Cost{}, groveerr.New(groveerr.CorruptedCodeExecution, "merk: non-reference link missing its tree")
	}
	t, c, err := src.Fetch(l.Key)
	if err != nil {
		return nil, c, err
	}
	l.Tree = t
	l.State = LinkLoaded
	return t, c, nil
}
