// Copyright 2025 Certen Protocol

package hashtree

import "fmt"

// Kind tags the variant of a Tree node.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindPruned
	KindLeaf
	KindLabeled
	KindFork
)

// Tree is the certified hash-tree variant used for witnesses:
// Empty, Pruned(hash), Leaf(bytes), Labeled(label, child), Fork(l, r).
//
// Only the fields relevant to Kind are populated; the zero value is
// Empty.
type Tree struct {
	Kind     Kind
	Pruned   Hash
	LeafData []byte
	Label    []byte
	Child    *Tree
	Left     *Tree
	Right    *Tree
}

// Empty returns the Empty node.
func Empty() *Tree { return &Tree{Kind: KindEmpty} }

// PrunedNode returns a Pruned node carrying the given subtree hash.
func PrunedNode(h Hash) *Tree { return &Tree{Kind: KindPruned, Pruned: h} }

// LeafNode returns a Leaf node carrying raw bytes.
func LeafNode(b []byte) *Tree {
	cp := make([]byte, len(b))
	copy(cp, b)
	return &Tree{Kind: KindLeaf, LeafData: cp}
}

// LabeledNode returns a Labeled node.
func LabeledNode(label []byte, child *Tree) *Tree {
	cp := make([]byte, len(label))
	copy(cp, label)
	return &Tree{Kind: KindLabeled, Label: cp, Child: child}
}

// ForkNode returns a Fork node. Use Fork (below) for the minimizing
// combinator used throughout this module; ForkNode is the raw
// constructor for when the caller already knows minimization doesn't
// apply.
func ForkNode(l, r *Tree) *Tree { return &Tree{Kind: KindFork, Left: l, Right: r} }

// Fork combines two subtrees with the minimization rule from the spec:
// (Empty, m) and (m, Empty) collapse to m; two Pruned siblings collapse
// to a single Pruned carrying their fork hash. Otherwise it's a plain
// Fork. This is the combinator every witness builder in this module
// must use to keep witnesses minimal.
func Fork(l, r *Tree) *Tree {
	if l.Kind == KindEmpty {
		return r
	}
	if r.Kind == KindEmpty {
		return l
	}
	if l.Kind == KindPruned && r.Kind == KindPruned {
		return PrunedNode(ForkHash(l.Pruned, r.Pruned))
	}
	return ForkNode(l, r)
}

// Reconstruct recomputes the hash that this tree proves, following the
// same domain-separated construction used to build the certified
// structures. Verifiers call this and compare against a signed root.
func (t *Tree) Reconstruct() Hash {
	if t == nil {
		return EmptyHash()
	}
	switch t.Kind {
	case KindEmpty:
		return EmptyHash()
	case KindPruned:
		return t.Pruned
	case KindLeaf:
		return LeafHash(t.LeafData)
	case KindLabeled:
		return LabeledHash(t.Label, t.Child.Reconstruct())
	case KindFork:
		return ForkHash(t.Left.Reconstruct(), t.Right.Reconstruct())
	default:
		panic(fmt.Sprintf("hashtree: unknown kind %d", t.Kind))
	}
}

// CountLeaves walks t and counts its Labeled and Leaf nodes — the
// data-bearing nodes a minimal witness reveals. Pruned and Empty
// nodes contribute nothing; Fork recurses into both children; a
// Labeled node's child is not recursed into separately, since the
// Labeled node already counts as the one revealed entry it represents.
func CountLeaves(t *Tree) int {
	if t == nil {
		return 0
	}
	switch t.Kind {
	case KindLeaf, KindLabeled:
		return 1
	case KindFork:
		return CountLeaves(t.Left) + CountLeaves(t.Right)
	default:
		return 0
	}
}

// Lookup returns the Leaf bytes directly beneath a Labeled node whose
// label equals key, if the witness happens to carry it unpruned. It is
// a convenience used by tests and by callers that want to read back
// data straight out of a witness they just built.
func (t *Tree) Lookup(key []byte) ([]byte, bool) {
	if t == nil {
		return nil, false
	}
	switch t.Kind {
	case KindLabeled:
		if string(t.Label) == string(key) {
			if t.Child.Kind == KindLeaf {
				return t.Child.LeafData, true
			}
			return nil, false
		}
		return nil, false
	case KindFork:
		if v, ok := t.Left.Lookup(key); ok {
			return v, true
		}
		return t.Right.Lookup(key)
	default:
		return nil, false
	}
}
