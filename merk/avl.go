package merk

import (
	"bytes"

	"github.com/dashpay/grovedb-go/cost"
)

// insert inserts or replaces key/value under root (which may be nil for
// an empty tree), returning the new subtree root. AVL maintenance runs
// after every mutation: spec.md §4.D "After each primitive mutation,
// check the parent's balance factor; perform rotate_left, rotate_right,
// rotate_left_right, or rotate_right_left when |bf| > 1."
func insert(root *Tree, leaf *Tree, src Source) (*Tree, *cost.Cost, error) {
	c := &cost.Cost{}
	if root == nil {
		return leaf, c, nil
	}

	cmp := bytes.Compare(leaf.KV.Key, root.KV.Key)
	if cmp == 0 {
		leaf.Left = root.Left
		leaf.Right = root.Right
		rc := leaf.RecomputeHash()
		c.Add(rc)
		return leaf, c, nil
	}

	left := cmp < 0
	child, cc, err := resolve(root.child(left), src)
	c.Add(cc)
	if err != nil {
		return nil, c, err
	}
	newChild, ic, err := insert(child, leaf, src)
	c.Add(ic)
	if err != nil {
		return nil, c, err
	}
	root.setChild(left, loadedLink(newChild))
	rc := root.RecomputeHash()
	c.Add(rc)

	balanced, bc := rebalance(root)
	c.Add(bc)
	return balanced, c, nil
}

// deleteKey removes key from root if present, returning the new subtree
// root (nil if the subtree becomes empty) and whether the key was found.
func deleteKey(root *Tree, key []byte, src Source) (*Tree, bool, *cost.Cost, error) {
	c := &cost.Cost{}
	if root == nil {
		return nil, false, c, nil
	}

	cmp := bytes.Compare(key, root.KV.Key)
	if cmp == 0 {
		newRoot, rc, err := deleteNode(root, src)
		c.Add(rc)
		return newRoot, true, c, err
	}

	left := cmp < 0
	child, cc, err := resolve(root.child(left), src)
	c.Add(cc)
	if err != nil {
		return nil, false, c, err
	}
	newChild, found, dc, err := deleteKey(child, key, src)
	c.Add(dc)
	if err != nil {
		return nil, false, c, err
	}
	if !found {
		return root, false, c, nil
	}
	if newChild == nil {
		root.setChild(left, nil)
	} else {
		root.setChild(left, loadedLink(newChild))
	}
	rc := root.RecomputeHash()
	c.Add(rc)

	balanced, bc := rebalance(root)
	c.Add(bc)
	return balanced, true, c, nil
}

// deleteNode removes the root node itself, splicing in its in-order
// successor (smallest key of the right subtree) when it has two
// children, the standard BST deletion case split.
func deleteNode(root *Tree, src Source) (*Tree, *cost.Cost, error) {
	c := &cost.Cost{}
	left, lc, err := resolve(root.Left, src)
	c.Add(lc)
	if err != nil {
		return nil, c, err
	}
	right, rc, err := resolve(root.Right, src)
	c.Add(rc)
	if err != nil {
		return nil, c, err
	}

	switch {
	case left == nil && right == nil:
		return nil, c, nil
	case left == nil:
		return right, c, nil
	case right == nil:
		return left, c, nil
	}

	successor, newRight, sc, err := removeMin(right, src)
	c.Add(sc)
	if err != nil {
		return nil, c, err
	}
	successor.Left = root.Left
	if newRight == nil {
		successor.Right = nil
	} else {
		successor.Right = loadedLink(newRight)
	}
	hc := successor.RecomputeHash()
	c.Add(hc)

	balanced, bc := rebalance(successor)
	c.Add(bc)
	return balanced, c, nil
}

// removeMin detaches and returns the smallest node in root's subtree and
// the new subtree root with that node removed.
func removeMin(root *Tree, src Source) (*Tree, *Tree, *cost.Cost, error) {
	c := &cost.Cost{}
	left, lc, err := resolve(root.Left, src)
	c.Add(lc)
	if err != nil {
		return nil, nil, c, err
	}
	if left == nil {
		right, rc, err := resolve(root.Right, src)
		c.Add(rc)
		return root, right, c, err
	}
	minNode, newLeft, mc, err := removeMin(left, src)
	c.Add(mc)
	if err != nil {
		return nil, nil, c, err
	}
	if newLeft == nil {
		root.setChild(true, nil)
	} else {
		root.setChild(true, loadedLink(newLeft))
	}
	rc := root.RecomputeHash()
	c.Add(rc)
	balanced, bc := rebalance(root)
	c.Add(bc)
	return minNode, balanced, c, nil
}

// rebalance applies the rotation needed to restore |balance factor| <= 1
// at root, if any.
func rebalance(root *Tree) (*Tree, *cost.Cost) {
	c := &cost.Cost{}
	bf := root.BalanceFactor()
	switch {
	case bf > 1:
		rc, _, err := rightChildOf(root)
		if err == nil && rc != nil && rc.BalanceFactor() < 0 {
			newRight, rrc := rotateRight(rc)
			c.Add(rrc)
			root.setChild(false, loadedLink(newRight))
			hc := root.RecomputeHash()
			c.Add(hc)
		}
		newRoot, lc := rotateLeft(root)
		c.Add(lc)
		return newRoot, c
	case bf < -1:
		lcNode, _, err := leftChildOf(root)
		if err == nil && lcNode != nil && lcNode.BalanceFactor() > 0 {
			newLeft, llc := rotateLeft(lcNode)
			c.Add(llc)
			root.setChild(true, loadedLink(newLeft))
			hc := root.RecomputeHash()
			c.Add(hc)
		}
		newRoot, rc := rotateRight(root)
		c.Add(rc)
		return newRoot, c
	default:
		return root, c
	}
}

// rightChildOf/leftChildOf assume the child is already loaded (true for
// every node this package just mutated in-process); rebalancing never
// needs to fetch from storage because a just-inserted/deleted path is
// always fully resident.
func rightChildOf(t *Tree) (*Tree, *cost.Cost, error) {
	if t.Right == nil {
		return nil, &cost.Cost{}, nil
	}
	return t.Right.Tree, &cost.Cost{}, nil
}

func leftChildOf(t *Tree) (*Tree, *cost.Cost, error) {
	if t.Left == nil {
		return nil, &cost.Cost{}, nil
	}
	return t.Left.Tree, &cost.Cost{}, nil
}

// rotateLeft promotes root's right child to be the new subtree root,
// reattaching the promoted node's former left child as root's new right
// child (spec.md §4.D "Rotations reattach children via detach/attach on
// Walker").
func rotateLeft(root *Tree) (*Tree, *cost.Cost) {
	c := &cost.Cost{}
	newRoot := root.Right.Tree
	root.setChild(false, newRoot.Left)
	newRoot.setChild(true, loadedLink(root))
	hc := root.RecomputeHash()
	c.Add(hc)
	hc2 := newRoot.RecomputeHash()
	c.Add(hc2)
	return newRoot, c
}

// rotateRight is the mirror image of rotateLeft.
func rotateRight(root *Tree) (*Tree, *cost.Cost) {
	c := &cost.Cost{}
	newRoot := root.Left.Tree
	root.setChild(true, newRoot.Right)
	newRoot.setChild(false, loadedLink(root))
	hc := root.RecomputeHash()
	c.Add(hc)
	hc2 := newRoot.RecomputeHash()
	c.Add(hc2)
	return newRoot, c
}
