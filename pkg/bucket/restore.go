package bucket

import (
	"github.com/certen/cap-history/pkg/buckettable"
	"github.com/certen/cap-history/pkg/event"
)

// AddLookupEntry restores one row of the bucket-lookup table during
// reconstruction from persisted state. It bypasses the write path's
// authorization/rate-limit checks: it is only ever called by the
// persistence layer while rebuilding a bucket, not by an external
// caller.
func (b *Bucket) AddLookupEntry(startingTxID uint64, canister Principal) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lookup.Insert(startingTxID, canister)
}

// RestorePendingFlush re-seeds the set of principals still awaiting a
// registration flush with the router, without marking them seen.
func (b *Bucket) RestorePendingFlush(principals []Principal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reg.observe(principals)
}

// Offset returns the global id of this bucket's first local event.
func (b *Bucket) Offset() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.list.Offset()
}

// Events returns every event stored locally by this bucket, in
// insertion order. Exported so the persistence layer can snapshot a
// live bucket; callers must not mutate the returned slice.
func (b *Bucket) Events() []event.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.list.Events()
}

// LookupEntries returns every row of the bucket-lookup table, in
// ascending starting-id order.
func (b *Bucket) LookupEntries() []buckettable.Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lookup.Entries()
}

// NextCanisters returns the full list of registered next canisters, in
// registration order.
func (b *Bucket) NextCanisters() []Principal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Principal, len(b.nextList))
	copy(out, b.nextList)
	return out
}

// PendingFlush returns the principals still awaiting a registration
// flush with the router.
func (b *Bucket) PendingFlush() []Principal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.reg.pending()
}
