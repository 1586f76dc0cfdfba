package certmap

import (
	"bytes"

	"github.com/certen/cap-history/pkg/hashtree"
)

// Map is a certified ordered map: a red-black tree over raw byte keys
// where every node caches the hash-tree contribution of its subtree.
// The zero value is an empty map ready to use.
type Map struct {
	root *node
	size int
}

// Len returns the number of entries in the map.
func (m *Map) Len() int { return m.size }

// RootHash returns the hash of the map's hash-tree representation.
// It is O(1): every insert/delete keeps cached hashes up to date.
func (m *Map) RootHash() hashtree.Hash {
	return nodeHash(m.root)
}

// Get looks up key and reports whether it is present.
func (m *Map) Get(key []byte) ([]byte, bool) {
	n := m.root
	for n != nil {
		switch c := bytes.Compare(key, n.key); {
		case c < 0:
			n = n.left
		case c > 0:
			n = n.right
		default:
			return n.value, true
		}
	}
	return nil, false
}

// Insert sets key to value, replacing any existing value for key.
func (m *Map) Insert(key, value []byte) {
	kcopy := append([]byte(nil), key...)
	vcopy := append([]byte(nil), value...)

	var y *node
	x := m.root
	for x != nil {
		y = x
		switch c := bytes.Compare(kcopy, x.key); {
		case c < 0:
			x = x.left
		case c > 0:
			x = x.right
		default:
			x.value = vcopy
			recomputeUpward(x)
			return
		}
	}

	z := &node{key: kcopy, value: vcopy, color: red, parent: y}
	switch {
	case y == nil:
		m.root = z
	case bytes.Compare(z.key, y.key) < 0:
		y.left = z
	default:
		y.right = z
	}
	m.size++
	m.insertFixup(z)
	recomputeUpward(z)
}

func (m *Map) insertFixup(z *node) {
	for z.parent != nil && z.parent.color == red {
		grandparent := z.parent.parent
		if grandparent == nil {
			break
		}
		if z.parent == grandparent.left {
			uncle := grandparent.right
			if uncle != nil && uncle.color == red {
				z.parent.color = black
				uncle.color = black
				grandparent.color = red
				z = grandparent
				continue
			}
			if z == z.parent.right {
				z = z.parent
				m.rotateLeft(z)
			}
			z.parent.color = black
			z.parent.parent.color = red
			m.rotateRight(z.parent.parent)
		} else {
			uncle := grandparent.left
			if uncle != nil && uncle.color == red {
				z.parent.color = black
				uncle.color = black
				grandparent.color = red
				z = grandparent
				continue
			}
			if z == z.parent.left {
				z = z.parent
				m.rotateRight(z)
			}
			z.parent.color = black
			z.parent.parent.color = red
			m.rotateLeft(z.parent.parent)
		}
	}
	m.root.color = black
}

func (m *Map) rotateLeft(x *node) {
	y := x.right
	x.right = y.left
	if y.left != nil {
		y.left.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == nil:
		m.root = y
	case x == x.parent.left:
		x.parent.left = y
	default:
		x.parent.right = y
	}
	y.left = x
	x.parent = y
	recomputeHash(x)
	recomputeHash(y)
}

func (m *Map) rotateRight(x *node) {
	y := x.left
	x.left = y.right
	if y.right != nil {
		y.right.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == nil:
		m.root = y
	case x == x.parent.right:
		x.parent.right = y
	default:
		x.parent.left = y
	}
	y.right = x
	x.parent = y
	recomputeHash(x)
	recomputeHash(y)
}

// Delete removes key from the map, if present. Deletion is a plain BST
// removal: it keeps the hash-tree contents correct but does not
// restore the red-black balance invariant, so a map that has seen
// deletes may be unbalanced. In this module only buckettable's Pop
// deletes; the other certified maps built on top of Map are
// insert-only.
func (m *Map) Delete(key []byte) {
	n := m.root
	for n != nil && !bytes.Equal(n.key, key) {
		if bytes.Compare(key, n.key) < 0 {
			n = n.left
		} else {
			n = n.right
		}
	}
	if n == nil {
		return
	}
	m.size--

	if n.left != nil && n.right != nil {
		succ := n.right
		for succ.left != nil {
			succ = succ.left
		}
		n.key, n.value = succ.key, succ.value
		n = succ
	}

	child := n.left
	if child == nil {
		child = n.right
	}
	parent := n.parent
	if child != nil {
		child.parent = parent
	}
	switch {
	case parent == nil:
		m.root = child
	case parent.left == n:
		parent.left = child
	default:
		parent.right = child
	}
	recomputeUpward(parent)
}

// AsHashTree returns the full, unpruned hash-tree representation of
// the map. It is mainly useful for tests that check the cached root
// hash against an independently reconstructed tree.
func (m *Map) AsHashTree() *hashtree.Tree {
	return asHashTreeNode(m.root)
}

func asHashTreeNode(n *node) *hashtree.Tree {
	if n == nil {
		return hashtree.Empty()
	}
	left := asHashTreeNode(n.left)
	mid := hashtree.LabeledNode(n.key, hashtree.LeafNode(n.value))
	right := asHashTreeNode(n.right)
	return hashtree.Fork(hashtree.Fork(left, mid), right)
}
