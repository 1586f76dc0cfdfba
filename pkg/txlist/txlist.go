// Copyright 2025 Certen Protocol
//
// txlist implements the transaction list (C4): the event arena, the
// event-hash certified map, the global offset, and the three paged
// indexes (by user, by contract, by token) for a single bucket.
package txlist

import (
	"encoding/binary"

	"github.com/certen/cap-history/pkg/certmap"
	"github.com/certen/cap-history/pkg/event"
	"github.com/certen/cap-history/pkg/pagedindex"
)

// List is the certified transaction list owned by one bucket.
type List struct {
	contract event.Principal
	offset   uint64
	events   []event.Event

	eventHashes certmap.Map
	byUser      *pagedindex.Index
	byContract  *pagedindex.Index
	byToken     *pagedindex.Index
}

// New returns an empty list for contract, with the given starting
// global offset.
func New(contract event.Principal, offset uint64) *List {
	return &List{
		contract:   contract,
		offset:     offset,
		byUser:     pagedindex.New(),
		byContract: pagedindex.New(),
		byToken:    pagedindex.New(),
	}
}

// Contract returns the owning contract principal.
func (l *List) Contract() event.Principal { return l.contract }

// Offset returns the global id of the first local event.
func (l *List) Offset() uint64 { return l.offset }

// Size returns offset + the number of locally stored events.
func (l *List) Size() uint64 { return l.offset + uint64(len(l.events)) }

// Events returns every locally stored event, in insertion order.
// Exported for persistence snapshots; callers must not mutate it.
func (l *List) Events() []event.Event { return l.events }

func beU32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

func (l *List) offsetBytes() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, l.offset)
	return buf
}

// Insert appends e to the arena, updates event_hashes and all three
// paged indexes, and returns the assigned global transaction id.
func (l *List) Insert(e event.Event) uint64 {
	local := uint32(len(l.events))
	l.events = append(l.events, e)

	h := e.Hash()
	l.eventHashes.Insert(beU32(local), h[:])

	l.byContract.Insert(pagedindex.PrincipalKeyPrefix(l.contract.Bytes()), local, h)

	for _, p := range e.ExtractPrincipalIDs() {
		l.byUser.Insert(pagedindex.PrincipalKeyPrefix(p.Bytes()), local, h)
	}
	for _, t := range e.ExtractTokenIDs() {
		l.byToken.Insert(pagedindex.U64KeyPrefix(t), local, h)
	}

	return l.offset + uint64(local)
}

// GetTransaction returns the event assigned id, if it falls within
// this list's local range.
func (l *List) GetTransaction(id uint64) (event.Event, bool) {
	if id < l.offset || id >= l.offset+uint64(len(l.events)) {
		return event.Event{}, false
	}
	return l.events[id-l.offset], true
}

func eventsFromRefs(events []event.Event, refs []uint32) []event.Event {
	out := make([]event.Event, len(refs))
	for i, r := range refs {
		out[i] = events[r]
	}
	return out
}

// GetTransactionsForUser returns the events on the given page of
// principal p's user index.
func (l *List) GetTransactionsForUser(p []byte, page uint32) []event.Event {
	refs, _ := l.byUser.Get(pagedindex.PrincipalKeyPrefix(p), page)
	return eventsFromRefs(l.events, refs)
}

// GetTransactionsForContract returns the events on the given page of
// principal p's contract index.
func (l *List) GetTransactionsForContract(p []byte, page uint32) []event.Event {
	refs, _ := l.byContract.Get(pagedindex.PrincipalKeyPrefix(p), page)
	return eventsFromRefs(l.events, refs)
}

// GetTransactionsForToken returns the events on the given page of
// token t's index.
func (l *List) GetTransactionsForToken(t uint64, page uint32) []event.Event {
	refs, _ := l.byToken.Get(pagedindex.U64KeyPrefix(t), page)
	return eventsFromRefs(l.events, refs)
}

// LastPageForUser, LastPageForContract, LastPageForToken return the
// highest allocated page number for the given key (0 if absent).
func (l *List) LastPageForUser(p []byte) uint32     { return l.byUser.LastPage(pagedindex.PrincipalKeyPrefix(p)) }
func (l *List) LastPageForContract(p []byte) uint32 {
	return l.byContract.LastPage(pagedindex.PrincipalKeyPrefix(p))
}
func (l *List) LastPageForToken(t uint64) uint32 { return l.byToken.LastPage(pagedindex.U64KeyPrefix(t)) }
