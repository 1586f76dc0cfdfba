// Copyright 2025 Certen Protocol
//
// bucket implements the bucket facade (C6): it wraps a transaction
// list (C4), a bucket-lookup table (C5), and a certified list of
// "next canisters", composing all three into the bucket's virtual
// root and authorizing/rate-limiting/registering writes.
//
// Every public method takes the facade's single mutex for its whole
// duration: the scheduling model is single-threaded cooperative per
// bucket, so there is never partial-write visibility between an
// accepted write and the very next read.
package bucket

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/certen/cap-history/pkg/buckettable"
	"github.com/certen/cap-history/pkg/certmap"
	"github.com/certen/cap-history/pkg/event"
	"github.com/certen/cap-history/pkg/txlist"
)

// Principal is an alias for event.Principal, used throughout this
// package's public API.
type Principal = event.Principal

// Bucket is the facade a process exposes over its HTTP/JSON surface.
type Bucket struct {
	mu sync.RWMutex

	contract Principal
	writers  map[string]struct{}

	list   *txlist.List
	lookup *buckettable.Table

	nextList []Principal
	nextTree certmap.Map

	ignoreRateLimit bool
	everInserted    bool

	reg      registrationState
	notifier Notifier
}

// New returns an empty bucket for contract, starting at global offset
// offset (0 for a root bucket; the prior bucket's size for a
// continuation bucket).
func New(contract Principal, offset uint64, notifier Notifier) *Bucket {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Bucket{
		contract: contract,
		writers:  make(map[string]struct{}),
		list:     txlist.New(contract, offset),
		lookup:   buckettable.New(),
		reg:      newRegistrationState(),
		notifier: notifier,
	}
}

// AddWriter authorizes an additional principal (besides the contract
// itself) to submit writes.
func (b *Bucket) AddWriter(p Principal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writers[string(p.Bytes())] = struct{}{}
}

// SetIgnoreRateLimit toggles the rate-limiting gate. Only the router
// is expected to call this.
func (b *Bucket) SetIgnoreRateLimit(ignore bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ignoreRateLimit = ignore
}

func (b *Bucket) isWriter(caller Principal) bool {
	if caller.Equal(b.contract) {
		return true
	}
	_, ok := b.writers[string(caller.Bytes())]
	return ok
}

// AddNextCanister records p as a next canister for discovery.
func (b *Bucket) AddNextCanister(p Principal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := uint32(len(b.nextList))
	b.nextList = append(b.nextList, p)
	b.nextTree.Insert(beU32(idx), p.Bytes())
}

func beU32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

// Insert authenticates caller, materializes ie into an Event stamped
// with hostTimeNs (nanoseconds, the host's monotonic clock), and
// inserts it. It returns the assigned global transaction id.
func (b *Bucket) Insert(ctx context.Context, caller Principal, ie event.IndefiniteEvent, hostTimeNs uint64) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.insertLocked(ctx, caller, ie, hostTimeNs)
}

// InsertMany is like Insert but for a batch; it returns the id
// assigned to the first event.
func (b *Bucket) InsertMany(ctx context.Context, caller Principal, ies []event.IndefiniteEvent, hostTimeNs uint64) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.isWriter(caller) {
		return 0, ErrUnauthorized
	}
	if len(ies) == 0 {
		return b.list.Size(), nil
	}

	events := make([]event.Event, len(ies))
	timeMS := hostTimeNs / 1_000_000
	for i, ie := range ies {
		events[i] = ie.ToEvent(timeMS)
	}
	if !b.ignoreRateLimit {
		for _, e := range events {
			if len(e.ExtractPrincipalIDs()) > MaxPrincipalsPerEvent {
				return 0, ErrRateLimited
			}
		}
	}

	first := b.list.Insert(events[0])
	b.everInserted = true
	b.reg.observe(events[0].ExtractPrincipalIDs())
	for _, e := range events[1:] {
		b.list.Insert(e)
		b.reg.observe(e.ExtractPrincipalIDs())
	}
	if b.reg.due(timeMS) {
		b.reg.flush(ctx, timeMS, b.notifier)
	}
	return first, nil
}

func (b *Bucket) insertLocked(ctx context.Context, caller Principal, ie event.IndefiniteEvent, hostTimeNs uint64) (uint64, error) {
	if !b.isWriter(caller) {
		return 0, ErrUnauthorized
	}
	timeMS := hostTimeNs / 1_000_000
	e := ie.ToEvent(timeMS)
	principals := e.ExtractPrincipalIDs()
	if !b.ignoreRateLimit && len(principals) > MaxPrincipalsPerEvent {
		return 0, ErrRateLimited
	}

	id := b.list.Insert(e)
	b.everInserted = true
	b.reg.observe(principals)
	if b.reg.due(timeMS) {
		b.reg.flush(ctx, timeMS, b.notifier)
	}
	return id, nil
}

// Migrate replays a previously-serialized event sequence into the
// list. It is only valid before the bucket's first real insert.
func (b *Bucket) Migrate(caller Principal, events []event.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.isWriter(caller) {
		return ErrUnauthorized
	}
	if b.everInserted {
		return ErrMigrationLocked
	}
	for _, e := range events {
		b.list.Insert(e)
	}
	return nil
}
