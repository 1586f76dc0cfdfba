// Copyright 2025 Certen Protocol
//
// buckettable implements the bucket-lookup table (C5): an ordered map
// from a bucket's starting transaction id to its principal, used to
// route a query for a given transaction id to the bucket that owns
// it.
package buckettable

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"github.com/certen/cap-history/pkg/certmap"
	"github.com/certen/cap-history/pkg/event"
	"github.com/certen/cap-history/pkg/hashtree"
)

// ErrInvalidOrdering is returned by Insert when starting_tx_id does
// not strictly increase on the previous entry.
var ErrInvalidOrdering = errors.New("buckettable: starting_tx_id must be strictly greater than the previous entry")

// ErrOutOfRange is returned by GetBucketFor when id is below the
// smallest starting id in the table (or the table is empty).
var ErrOutOfRange = errors.New("buckettable: id is out of range")

// Table is the certified starting-tx-id -> principal map.
type Table struct {
	tree    certmap.Map
	entries []entry
}

type entry struct {
	startingTxID uint64
	canister     event.Principal
}

// New returns an empty table.
func New() *Table { return &Table{} }

func beU64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

// Insert adds a new bucket starting at startingTxID. startingTxID must
// be strictly greater than every previously inserted starting id.
func (t *Table) Insert(startingTxID uint64, canister event.Principal) error {
	if len(t.entries) > 0 && startingTxID <= t.entries[len(t.entries)-1].startingTxID {
		return ErrInvalidOrdering
	}
	leaf := sha256.Sum256(canister.Bytes())
	t.tree.Insert(beU64(startingTxID), leaf[:])
	t.entries = append(t.entries, entry{startingTxID: startingTxID, canister: canister})
	return nil
}

// Pop removes the last-inserted bucket entry, if any.
func (t *Table) Pop() {
	if len(t.entries) == 0 {
		return
	}
	last := t.entries[len(t.entries)-1]
	t.entries = t.entries[:len(t.entries)-1]
	t.tree.Delete(beU64(last.startingTxID))
}

// GetBucketFor returns the principal of the bucket that owns id: the
// entry with the largest starting id <= id.
func (t *Table) GetBucketFor(id uint64) (event.Principal, error) {
	if len(t.entries) == 0 || id < t.entries[0].startingTxID {
		return event.Principal{}, ErrOutOfRange
	}
	lo, hi := 0, len(t.entries)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if t.entries[mid].startingTxID <= id {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return t.entries[lo].canister, nil
}

// Witness returns the witness at key id: an exact match if id is the
// start of a bucket, or the bracketing absence proof otherwise (the
// two neighboring entries prove which bucket owns id).
func (t *Table) Witness(id uint64) *hashtree.Tree {
	return t.tree.Witness(beU64(id))
}

// RootHash returns the root hash of the table's certified map.
func (t *Table) RootHash() hashtree.Hash {
	return t.tree.RootHash()
}

// Len returns the number of bucket entries in the table.
func (t *Table) Len() int { return len(t.entries) }

// Entry is one row of the table, exported for persistence snapshots.
type Entry struct {
	StartingTxID uint64
	Canister     event.Principal
}

// Entries returns every row of the table in ascending starting-id
// order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		out[i] = Entry{StartingTxID: e.startingTxID, Canister: e.canister}
	}
	return out
}
