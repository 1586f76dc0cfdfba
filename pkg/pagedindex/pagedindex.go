// Copyright 2025 Certen Protocol
//
// pagedindex implements the paged secondary index (C3): for a single
// key (a user principal, a contract principal, or a token id), it
// keeps an ordered, paginated list of event references. Each page has
// a fixed capacity and is certified as a hash chain over the event
// hashes it contains, so the certified map underneath only ever needs
// to store one 32-byte leaf per page no matter how full that page is.
package pagedindex

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/certen/cap-history/pkg/certmap"
	"github.com/certen/cap-history/pkg/event"
	"github.com/certen/cap-history/pkg/hashtree"
)

// PageCapacity is the maximum number of event references per page.
const PageCapacity = 64

// Index is a paged, certified secondary index.
type Index struct {
	tree     certmap.Map
	pages    map[string][]uint32
	lastPage map[string]uint32
}

// New returns an empty index.
func New() *Index {
	return &Index{
		pages:    make(map[string][]uint32),
		lastPage: make(map[string]uint32),
	}
}

// PrincipalKeyPrefix builds the fixed-width key prefix used to index
// by a principal: a length byte followed by the principal bytes
// zero-padded to event.MaxPrincipalBytes, so principals of different
// lengths still sort correctly and never collide.
func PrincipalKeyPrefix(p []byte) []byte {
	buf := make([]byte, 1+event.MaxPrincipalBytes)
	buf[0] = byte(len(p))
	copy(buf[1:], p)
	return buf
}

// U64KeyPrefix builds the fixed-width key prefix used to index by a
// u64 (token id): its big-endian encoding, which already sorts
// correctly since it's fixed width.
func U64KeyPrefix(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func compositeKey(prefix []byte, page uint32) []byte {
	buf := make([]byte, len(prefix)+4)
	copy(buf, prefix)
	binary.BigEndian.PutUint32(buf[len(prefix):], page)
	return buf
}

// Insert appends localIndex (with its event hash) to the tail page for
// keyPrefix, rolling over to a new page if the tail is full, and
// returns the page number it landed on.
func (ix *Index) Insert(keyPrefix []byte, localIndex uint32, eventHash [32]byte) uint32 {
	prefix := string(keyPrefix)
	page := ix.lastPage[prefix]
	ck := compositeKey(keyPrefix, page)

	if len(ix.pages[string(ck)]) >= PageCapacity {
		page++
		ix.lastPage[prefix] = page
		ck = compositeKey(keyPrefix, page)
	}

	var prevChain [32]byte
	if cur, ok := ix.tree.Get(ck); ok {
		copy(prevChain[:], cur)
	}
	next := sha256.Sum256(append(append([]byte(nil), prevChain[:]...), eventHash[:]...))
	ix.tree.Insert(ck, next[:])

	cks := string(ck)
	ix.pages[cks] = append(ix.pages[cks], localIndex)
	return page
}

// Get returns the ordered local indices stored in keyPrefix's page,
// and whether that page exists.
func (ix *Index) Get(keyPrefix []byte, page uint32) ([]uint32, bool) {
	ck := compositeKey(keyPrefix, page)
	refs, ok := ix.pages[string(ck)]
	if !ok {
		return nil, false
	}
	out := make([]uint32, len(refs))
	copy(out, refs)
	return out, true
}

// LastPage returns the highest page number allocated for keyPrefix, or
// 0 if keyPrefix has never been inserted.
func (ix *Index) LastPage(keyPrefix []byte) uint32 {
	return ix.lastPage[string(keyPrefix)]
}

// Witness returns the witness of the single composite key (keyPrefix,
// page) in the underlying certified map.
func (ix *Index) Witness(keyPrefix []byte, page uint32) *hashtree.Tree {
	return ix.tree.Witness(compositeKey(keyPrefix, page))
}

// RootHash returns the root hash of the underlying certified map.
func (ix *Index) RootHash() hashtree.Hash {
	return ix.tree.RootHash()
}

// AsHashTree returns the full unpruned hash-tree of the underlying
// certified map, mainly for tests.
func (ix *Index) AsHashTree() *hashtree.Tree {
	return ix.tree.AsHashTree()
}
