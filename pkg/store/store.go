// Copyright 2025 Certen Protocol
//
// store implements persistence for a bucket: serializing
// (global_offset, contract, events[]) plus the lookup table,
// next-canisters list, and pending-flush set to a KV backend, and
// reconstructing a bucket.Bucket on load by replaying inserts.
package store

import (
	"encoding/json"
	"fmt"

	"github.com/certen/cap-history/pkg/bucket"
	"github.com/certen/cap-history/pkg/event"
)

// KV is the minimal key-value contract this package depends on.
// CometKV (kv_cometbft.go) adapts cometbft-db to it.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
}

var keyBucketState = []byte("bucket:state")

// LookupEntry is one row of the bucket-lookup table.
type LookupEntry struct {
	StartingTxID uint64          `json:"startingTxId"`
	Canister     event.Principal `json:"canister"`
}

// Snapshot is the plain data persisted for one bucket. It is the
// serialization boundary between pkg/bucket's in-memory structures and
// the KV store.
type Snapshot struct {
	GlobalOffset  uint64           `json:"globalOffset"`
	Contract      event.Principal  `json:"contract"`
	Events        []event.Event    `json:"events"`
	Lookup        []LookupEntry    `json:"lookup"`
	NextCanisters []event.Principal `json:"nextCanisters"`
	PendingFlush  []event.Principal `json:"pendingFlush"`
}

// Save serializes snap as the current schema version and writes it to
// kv under the bucket state key.
func Save(kv KV, snap Snapshot) error {
	env := envelopeV2{
		GlobalOffset:  snap.GlobalOffset,
		Contract:      snap.Contract,
		Events:        snap.Events,
		Lookup:        snap.Lookup,
		NextCanisters: snap.NextCanisters,
		PendingFlush:  snap.PendingFlush,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("store: marshal snapshot: %w", err)
	}
	wire, err := json.Marshal(versioned{Version: currentVersion, Payload: payload})
	if err != nil {
		return fmt.Errorf("store: marshal envelope: %w", err)
	}
	if err := kv.Set(keyBucketState, wire); err != nil {
		return fmt.Errorf("store: write bucket state: %w", err)
	}
	return nil
}

// Load reads and decodes the bucket state from kv, fast-forwarding
// through any older schema version. ok is false if no state has ever
// been saved (a fresh bucket).
func Load(kv KV) (snap Snapshot, ok bool, err error) {
	raw, err := kv.Get(keyBucketState)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("store: read bucket state: %w", err)
	}
	if len(raw) == 0 {
		return Snapshot{}, false, nil
	}
	snap, err = decode(raw)
	if err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

// Export snapshots a live bucket's full state, ready to pass to Save.
func Export(b *bucket.Bucket) Snapshot {
	entries := b.LookupEntries()
	lookup := make([]LookupEntry, len(entries))
	for i, e := range entries {
		lookup[i] = LookupEntry{StartingTxID: e.StartingTxID, Canister: e.Canister}
	}
	return Snapshot{
		GlobalOffset:  b.Offset(),
		Contract:      b.ContractID(),
		Events:        b.Events(),
		Lookup:        lookup,
		NextCanisters: b.NextCanisters(),
		PendingFlush:  b.PendingFlush(),
	}
}

// Rebuild reconstructs a bucket.Bucket from snap by replaying every
// event through Migrate (which itself replays through List.Insert,
// re-deriving all certified indexes and hashes), then restoring the
// lookup table, next-canisters list, and pending-flush set.
func Rebuild(snap Snapshot, notifier bucket.Notifier) (*bucket.Bucket, error) {
	b := bucket.New(snap.Contract, snap.GlobalOffset, notifier)
	if err := b.Migrate(snap.Contract, snap.Events); err != nil {
		return nil, fmt.Errorf("store: replay events: %w", err)
	}
	for _, entry := range snap.Lookup {
		if err := b.AddLookupEntry(entry.StartingTxID, entry.Canister); err != nil {
			return nil, fmt.Errorf("store: replay lookup entry: %w", err)
		}
	}
	for _, c := range snap.NextCanisters {
		b.AddNextCanister(c)
	}
	b.RestorePendingFlush(snap.PendingFlush)
	return b, nil
}
