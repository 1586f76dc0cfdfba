package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/certen/cap-history/pkg/bucket"
	"github.com/certen/cap-history/pkg/event"
)

// memKV is a trivial in-process KV for tests.
type memKV struct {
	data map[string][]byte
}

func newMemKV() *memKV { return &memKV{data: make(map[string][]byte)} }

func (m *memKV) Get(key []byte) ([]byte, error) { return m.data[string(key)], nil }

func (m *memKV) Set(key, value []byte) error {
	m.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func mustPrincipal(t *testing.T, b byte) event.Principal {
	t.Helper()
	p, err := event.NewPrincipal([]byte{b})
	if err != nil {
		t.Fatalf("NewPrincipal: %v", err)
	}
	return p
}

func TestLoadEmptyKVReportsNotOK(t *testing.T) {
	kv := newMemKV()
	_, ok, err := Load(kv)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for an empty store")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	contract := mustPrincipal(t, 0xC0)
	user := mustPrincipal(t, 0x01)
	b := bucket.New(contract, 0, nil)

	ie := event.IndefiniteEvent{
		Caller:    contract,
		Operation: "mint",
		Details: []event.Detail{
			{Key: "token_id", Value: event.DetailTokenID(1)},
			{Key: "to", Value: event.DetailPrincipal(user)},
		},
	}
	if _, err := b.Insert(context.Background(), contract, ie, 1000); err != nil {
		t.Fatalf("insert: %v", err)
	}
	b.AddNextCanister(mustPrincipal(t, 0xB1))

	snap := Export(b)
	kv := newMemKV()
	if err := Save(kv, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, ok, err := Load(kv)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true after Save")
	}
	if loaded.GlobalOffset != snap.GlobalOffset {
		t.Fatalf("global offset mismatch: got %d want %d", loaded.GlobalOffset, snap.GlobalOffset)
	}
	if !loaded.Contract.Equal(snap.Contract) {
		t.Fatalf("contract mismatch")
	}
	if len(loaded.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(loaded.Events))
	}
	if loaded.Events[0].Hash() != snap.Events[0].Hash() {
		t.Fatalf("event hash mismatch after round trip")
	}
	if len(loaded.NextCanisters) != 1 || !loaded.NextCanisters[0].Equal(mustPrincipal(t, 0xB1)) {
		t.Fatalf("next canisters mismatch: %+v", loaded.NextCanisters)
	}
}

func TestRebuildReproducesRootHash(t *testing.T) {
	contract := mustPrincipal(t, 0xC0)
	b := bucket.New(contract, 0, nil)

	for i := 0; i < 4; i++ {
		ie := event.IndefiniteEvent{
			Caller:    contract,
			Operation: "mint",
			Details: []event.Detail{
				{Key: "token_id", Value: event.DetailTokenID(uint64(i))},
			},
		}
		if _, err := b.Insert(context.Background(), contract, ie, uint64(i)*1000); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	b.AddNextCanister(mustPrincipal(t, 0xB1))

	wantRoot := b.RootHash()

	snap := Export(b)
	rebuilt, err := Rebuild(snap, nil)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if rebuilt.RootHash() != wantRoot {
		t.Fatalf("rebuilt root hash mismatch: got %x want %x", rebuilt.RootHash(), wantRoot)
	}
}

func TestSaveLoadRebuildFullRoundTrip(t *testing.T) {
	contract := mustPrincipal(t, 0xC0)
	b := bucket.New(contract, 0, nil)
	for i := 0; i < 3; i++ {
		ie := event.IndefiniteEvent{
			Caller:    contract,
			Operation: "burn",
			Details: []event.Detail{
				{Key: "token_id", Value: event.DetailTokenID(uint64(i))},
			},
		}
		if _, err := b.Insert(context.Background(), contract, ie, uint64(i)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	kv := newMemKV()
	if err := Save(kv, Export(b)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, ok, err := Load(kv)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	rebuilt, err := Rebuild(loaded, nil)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if rebuilt.RootHash() != b.RootHash() {
		t.Fatalf("root hash changed across save/load/rebuild: got %x want %x", rebuilt.RootHash(), b.RootHash())
	}
}

// TestDecodeMigratesV0Payload constructs a synthetic schema-v0 envelope
// (no lookup table, no next-canisters, no pending-flush) and checks it
// fast-forwards cleanly to the current Snapshot shape.
func TestDecodeMigratesV0Payload(t *testing.T) {
	contract := mustPrincipal(t, 0xC0)
	e0 := envelopeV0{
		GlobalOffset: 7,
		Contract:     contract,
		Events: []event.Event{
			{Time: 1, Caller: contract, Operation: "mint"},
		},
	}
	payload, err := json.Marshal(e0)
	if err != nil {
		t.Fatalf("marshal v0 payload: %v", err)
	}
	wire, err := json.Marshal(versioned{Version: 0, Payload: payload})
	if err != nil {
		t.Fatalf("marshal v0 envelope: %v", err)
	}

	snap, err := decode(wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.GlobalOffset != 7 {
		t.Fatalf("expected global offset 7, got %d", snap.GlobalOffset)
	}
	if len(snap.Lookup) != 0 || len(snap.NextCanisters) != 0 || len(snap.PendingFlush) != 0 {
		t.Fatalf("expected empty lookup/next-canisters/pending-flush from a v0 payload, got %+v", snap)
	}
	if len(snap.Events) != 1 || snap.Events[0].Operation != "mint" {
		t.Fatalf("events did not survive migration: %+v", snap.Events)
	}
}

// TestDecodeMigratesV1Payload constructs a synthetic schema-v1 envelope
// (lookup table and next-canisters present, pending-flush absent) and
// checks it fast-forwards to the current shape with an empty
// pending-flush set.
func TestDecodeMigratesV1Payload(t *testing.T) {
	contract := mustPrincipal(t, 0xC0)
	b1 := mustPrincipal(t, 0xB1)
	e1 := envelopeV1{
		GlobalOffset:  3,
		Contract:      contract,
		Events:        nil,
		Lookup:        []LookupEntry{{StartingTxID: 0, Canister: b1}},
		NextCanisters: []event.Principal{b1},
	}
	payload, err := json.Marshal(e1)
	if err != nil {
		t.Fatalf("marshal v1 payload: %v", err)
	}
	wire, err := json.Marshal(versioned{Version: 1, Payload: payload})
	if err != nil {
		t.Fatalf("marshal v1 envelope: %v", err)
	}

	snap, err := decode(wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Lookup) != 1 || snap.Lookup[0].StartingTxID != 0 {
		t.Fatalf("lookup did not survive migration: %+v", snap.Lookup)
	}
	if len(snap.NextCanisters) != 1 {
		t.Fatalf("next canisters did not survive migration: %+v", snap.NextCanisters)
	}
	if len(snap.PendingFlush) != 0 {
		t.Fatalf("expected empty pending-flush from a v1 payload, got %+v", snap.PendingFlush)
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	wire, err := json.Marshal(versioned{Version: 99, Payload: json.RawMessage("{}")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := decode(wire); err == nil {
		t.Fatalf("expected an error for an unknown schema version")
	}
}
