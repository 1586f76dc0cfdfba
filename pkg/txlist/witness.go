package txlist

import (
	"github.com/certen/cap-history/pkg/hashtree"
	"github.com/certen/cap-history/pkg/pagedindex"
)

// composeVirtualTree assembles the list's 5-leaf virtual tree:
//
//	ROOT = fork(L, R); L = fork(eh, offset); R = fork(byUser, V); V = fork(byContract, byToken)
//
// Each part is supplied either as the real (possibly partial) witness
// for that leaf, or as a Pruned node carrying its current root hash;
// Fork's minimization collapses runs of Pruned siblings automatically,
// so the caller doesn't need to special-case which leaves are "active".
func (l *List) composeVirtualTree(eh, offset, byUser, byContract, byToken *hashtree.Tree) *hashtree.Tree {
	left := hashtree.Fork(eh, offset)
	v := hashtree.Fork(byContract, byToken)
	right := hashtree.Fork(byUser, v)
	return hashtree.Fork(left, right)
}

func (l *List) prunedEventHashes() *hashtree.Tree {
	return hashtree.PrunedNode(l.eventHashes.RootHash())
}

func (l *List) prunedOffset() *hashtree.Tree {
	return hashtree.PrunedNode(hashtree.LeafHash(l.offsetBytes()))
}

func (l *List) offsetLeaf() *hashtree.Tree {
	return hashtree.LeafNode(l.offsetBytes())
}

func (l *List) prunedByUser() *hashtree.Tree     { return hashtree.PrunedNode(l.byUser.RootHash()) }
func (l *List) prunedByContract() *hashtree.Tree { return hashtree.PrunedNode(l.byContract.RootHash()) }
func (l *List) prunedByToken() *hashtree.Tree    { return hashtree.PrunedNode(l.byToken.RootHash()) }

// RootHash returns the root hash of the list's 5-leaf virtual tree.
func (l *List) RootHash() hashtree.Hash {
	return l.composeVirtualTree(
		l.prunedEventHashes(), l.prunedOffset(),
		l.prunedByUser(), l.prunedByContract(), l.prunedByToken(),
	).Reconstruct()
}

// eventHashesWitnessFor returns the minimal event_hashes witness that
// reveals exactly the hashes of the given local indices.
func (l *List) eventHashesWitnessFor(refs []uint32) *hashtree.Tree {
	if len(refs) == 0 {
		return l.prunedEventHashes()
	}
	keys := make([][]byte, len(refs))
	for i, r := range refs {
		keys[i] = beU32(r)
	}
	return l.eventHashes.WitnessKeys(keys)
}

// WitnessTransaction proves the response of GetTransaction(id): if id
// is in range, it reveals the event_hashes leaf for its local index;
// otherwise event_hashes is pruned to its root hash. The offset leaf
// is always revealed as the anchor for the proof.
func (l *List) WitnessTransaction(id uint64) *hashtree.Tree {
	var eh *hashtree.Tree
	if id >= l.offset && id < l.offset+uint64(len(l.events)) {
		local := uint32(id - l.offset)
		eh = l.eventHashes.Witness(beU32(local))
	} else {
		eh = l.prunedEventHashes()
	}
	return l.composeVirtualTree(eh, l.offsetLeaf(), l.prunedByUser(), l.prunedByContract(), l.prunedByToken())
}

// WitnessTransactionsForUser proves the response of
// GetTransactionsForUser(p, page): it reveals the page's hash-chain
// leaf in by_user and the event_hashes leaf of every event on that
// page, so a verifier can recompute the chain from the revealed event
// hashes and check it against the revealed leaf.
func (l *List) WitnessTransactionsForUser(p []byte, page uint32) *hashtree.Tree {
	key := pagedindex.PrincipalKeyPrefix(p)
	refs, _ := l.byUser.Get(key, page)
	eh := l.eventHashesWitnessFor(refs)
	byUser := l.byUser.Witness(key, page)
	return l.composeVirtualTree(eh, l.prunedOffset(), byUser, l.prunedByContract(), l.prunedByToken())
}

// WitnessTransactionsForContract is the by_contract analogue of
// WitnessTransactionsForUser.
func (l *List) WitnessTransactionsForContract(p []byte, page uint32) *hashtree.Tree {
	key := pagedindex.PrincipalKeyPrefix(p)
	refs, _ := l.byContract.Get(key, page)
	eh := l.eventHashesWitnessFor(refs)
	byContract := l.byContract.Witness(key, page)
	return l.composeVirtualTree(eh, l.prunedOffset(), l.prunedByUser(), byContract, l.prunedByToken())
}

// WitnessTransactionsForToken is the by_token analogue of
// WitnessTransactionsForUser.
func (l *List) WitnessTransactionsForToken(t uint64, page uint32) *hashtree.Tree {
	key := pagedindex.U64KeyPrefix(t)
	refs, _ := l.byToken.Get(key, page)
	eh := l.eventHashesWitnessFor(refs)
	byToken := l.byToken.Witness(key, page)
	return l.composeVirtualTree(eh, l.prunedOffset(), l.prunedByUser(), l.prunedByContract(), byToken)
}
