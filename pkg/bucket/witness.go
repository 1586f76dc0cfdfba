package bucket

import "github.com/certen/cap-history/pkg/hashtree"

// composeVirtualTree assembles the bucket's virtual root:
//
//	BUCKET_ROOT = fork(list, V); V = fork(lookup, next)
func composeVirtualTree(list, lookup, next *hashtree.Tree) *hashtree.Tree {
	v := hashtree.Fork(lookup, next)
	return hashtree.Fork(list, v)
}

func (b *Bucket) prunedList() *hashtree.Tree {
	return hashtree.PrunedNode(b.list.RootHash())
}

func (b *Bucket) prunedLookup() *hashtree.Tree {
	return hashtree.PrunedNode(b.lookup.RootHash())
}

func (b *Bucket) prunedNext() *hashtree.Tree {
	return hashtree.PrunedNode(b.nextTree.RootHash())
}

// RootHash returns the bucket's certified root hash.
func (b *Bucket) RootHash() hashtree.Hash {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return composeVirtualTree(b.prunedList(), b.prunedLookup(), b.prunedNext()).Reconstruct()
}
