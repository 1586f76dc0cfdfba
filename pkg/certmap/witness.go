package certmap

import (
	"bytes"
	"sort"

	"github.com/certen/cap-history/pkg/hashtree"
)

// WitnessKeys returns the minimal hash-tree witness covering exactly
// the given keys: a Labeled node for every key present in the map, and
// Pruned/Empty nodes everywhere else. keys need not be sorted or
// deduplicated; WitnessKeys does that internally.
func (m *Map) WitnessKeys(keys [][]byte) *hashtree.Tree {
	sorted := sortDedupKeys(keys)
	return witnessNode(m.root, sorted)
}

// Witness returns the minimal witness for a single key: a Labeled node
// if the key is present, or a bracketing pair of its in-order
// neighbors (whichever exist) if it is absent. Either way the witness
// reconstructs to RootHash().
func (m *Map) Witness(key []byte) *hashtree.Tree {
	if _, ok := m.Get(key); ok {
		return m.WitnessKeys([][]byte{key})
	}
	pred, succ := m.neighbors(key)
	var keys [][]byte
	if pred != nil {
		keys = append(keys, pred)
	}
	if succ != nil {
		keys = append(keys, succ)
	}
	return m.WitnessKeys(keys)
}

// neighbors returns the in-order predecessor and successor of key
// among the map's existing keys (nil if none exists on that side).
// key itself need not be present.
func (m *Map) neighbors(key []byte) (pred, succ []byte) {
	n := m.root
	for n != nil {
		switch c := bytes.Compare(key, n.key); {
		case c < 0:
			succ = n.key
			n = n.left
		case c > 0:
			pred = n.key
			n = n.right
		default:
			return n.key, n.key
		}
	}
	return
}

// witnessNode descends n, consuming the sorted key list as it goes:
// for each node it partitions the remaining keys into those below,
// at, and above the node's key, recurses into the relevant children,
// and recombines with the minimizing Fork combinator.
func witnessNode(n *node, keys [][]byte) *hashtree.Tree {
	if n == nil {
		return hashtree.Empty()
	}
	if len(keys) == 0 {
		return hashtree.PrunedNode(nodeHash(n))
	}

	i := sort.Search(len(keys), func(i int) bool {
		return bytes.Compare(keys[i], n.key) >= 0
	})
	leftKeys, rest := keys[:i], keys[i:]

	var mid *hashtree.Tree
	var rightKeys [][]byte
	if len(rest) > 0 && bytes.Equal(rest[0], n.key) {
		mid = hashtree.LabeledNode(n.key, hashtree.LeafNode(n.value))
		rightKeys = rest[1:]
	} else {
		mid = hashtree.PrunedNode(middleHash(n))
		rightKeys = rest
	}

	left := witnessSide(n.left, leftKeys)
	right := witnessSide(n.right, rightKeys)

	return hashtree.Fork(hashtree.Fork(left, mid), right)
}

func witnessSide(n *node, keys [][]byte) *hashtree.Tree {
	if len(keys) == 0 {
		if n == nil {
			return hashtree.Empty()
		}
		return hashtree.PrunedNode(nodeHash(n))
	}
	return witnessNode(n, keys)
}

func sortDedupKeys(keys [][]byte) [][]byte {
	if len(keys) == 0 {
		return nil
	}
	cp := make([][]byte, len(keys))
	copy(cp, keys)
	sort.Slice(cp, func(i, j int) bool { return bytes.Compare(cp[i], cp[j]) < 0 })
	out := cp[:1]
	for _, k := range cp[1:] {
		if !bytes.Equal(k, out[len(out)-1]) {
			out = append(out, k)
		}
	}
	return out
}
