// Copyright 2025 Certen Protocol
//
// certmap implements the certified ordered map (C2): a red-black tree
// keyed by raw bytes where every node caches the hash-tree contribution
// of its subtree, so that root_hash() is O(1) and witnesses can be
// built by a single descent.

package certmap

import "github.com/certen/cap-history/pkg/hashtree"

type color bool

const (
	red   color = true
	black color = false
)

type node struct {
	key, value    []byte
	color         color
	left, right   *node
	parent        *node
	subtreeHash   hashtree.Hash
}

func nodeHash(n *node) hashtree.Hash {
	if n == nil {
		return hashtree.EmptyHash()
	}
	return n.subtreeHash
}

func middleHash(n *node) hashtree.Hash {
	return hashtree.LabeledHash(n.key, hashtree.LeafHash(n.value))
}

// recomputeHash refreshes n's cached subtree hash from its current
// children. It does not recurse: callers walk the tree bottom-up. A
// missing child contributes nothing, exactly as hashtree.Fork collapses
// an Empty side, so witnesses built with Fork reconstruct to this hash.
func recomputeHash(n *node) {
	if n == nil {
		return
	}
	h := middleHash(n)
	if n.left != nil {
		h = hashtree.ForkHash(n.left.subtreeHash, h)
	}
	if n.right != nil {
		h = hashtree.ForkHash(h, n.right.subtreeHash)
	}
	n.subtreeHash = h
}

// recomputeUpward recomputes the hash of n and every ancestor of n, in
// that order. Any red-black rotation performed as part of the same
// operation only ever touches nodes that remain ancestors of n, so a
// single upward pass after the operation completes is sufficient.
func recomputeUpward(n *node) {
	for cur := n; cur != nil; cur = cur.parent {
		recomputeHash(cur)
	}
}
