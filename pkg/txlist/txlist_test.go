package txlist

import (
	"testing"

	"github.com/certen/cap-history/pkg/event"
	"github.com/certen/cap-history/pkg/hashtree"
)

func mustPrincipal(t *testing.T, b byte) event.Principal {
	t.Helper()
	p, err := event.NewPrincipal([]byte{b})
	if err != nil {
		t.Fatalf("NewPrincipal: %v", err)
	}
	return p
}

func mintEvent(t *testing.T, caller event.Principal, tokenID uint64, memo uint64) event.Event {
	t.Helper()
	return event.Event{
		Time:      0,
		Caller:    caller,
		Operation: "mint",
		Details: []event.Detail{
			{Key: "token_id", Value: event.DetailTokenID(tokenID)},
			{Key: "memo", Value: event.DetailU64(memo)},
		},
	}
}

// S1: small, point witness.
func TestGetTransactionPointWitness(t *testing.T) {
	contract := mustPrincipal(t, 0xC0)
	a := mustPrincipal(t, 0xA)
	list := New(contract, 0)

	tokenX := uint64(42)
	for i := uint64(0); i < 4; i++ {
		list.Insert(mintEvent(t, a, tokenX, i))
	}

	got, ok := list.GetTransaction(1)
	if !ok {
		t.Fatalf("expected transaction 1 to exist")
	}
	memo, _ := got.Details[1].Value.AsU64()
	if memo != 1 {
		t.Fatalf("expected memo 1, got %d", memo)
	}

	w := list.WitnessTransaction(1)
	if w.Reconstruct() != list.RootHash() {
		t.Fatalf("witness does not reconstruct root hash")
	}
	// Minimality: exactly one revealed event_hashes leaf for tx 1, plus
	// the offset leaf that every transaction witness always reveals.
	if got := hashtree.CountLeaves(w); got != 2 {
		t.Fatalf("expected witness to reveal exactly 2 leaves (1 event + offset), got %d", got)
	}
}

// S2: out-of-range (above) witness.
func TestGetTransactionAboveRange(t *testing.T) {
	contract := mustPrincipal(t, 0xC0)
	a := mustPrincipal(t, 0xA)
	list := New(contract, 0)
	for i := uint64(0); i < 4; i++ {
		list.Insert(mintEvent(t, a, 42, i))
	}

	if _, ok := list.GetTransaction(4); ok {
		t.Fatalf("transaction 4 should not exist")
	}
	w := list.WitnessTransaction(4)
	if w.Reconstruct() != list.RootHash() {
		t.Fatalf("out-of-range witness does not reconstruct root hash")
	}
}

// S3: below-offset witness.
func TestGetTransactionBelowOffset(t *testing.T) {
	contract := mustPrincipal(t, 0xC0)
	a := mustPrincipal(t, 0xA)
	list := New(contract, 10)
	for i := uint64(0); i < 4; i++ {
		list.Insert(mintEvent(t, a, 42, i))
	}

	if _, ok := list.GetTransaction(5); ok {
		t.Fatalf("transaction 5 should not exist below offset")
	}
	w := list.WitnessTransaction(5)
	if w.Reconstruct() != list.RootHash() {
		t.Fatalf("below-offset witness does not reconstruct root hash")
	}
}

func TestMonotonicIds(t *testing.T) {
	contract := mustPrincipal(t, 0xC0)
	a := mustPrincipal(t, 0xA)
	list := New(contract, 0)

	var ids []uint64
	for i := uint64(0); i < 10; i++ {
		ids = append(ids, list.Insert(mintEvent(t, a, 1, i)))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] != ids[i-1]+1 {
			t.Fatalf("ids should be consecutive, got %v", ids)
		}
	}
}

// S5-style (scaled down): every 13th event mentions token T.
func TestIndexCompletenessForToken(t *testing.T) {
	contract := mustPrincipal(t, 0xC0)
	a := mustPrincipal(t, 0xA)
	list := New(contract, 0)

	const total = 260
	const tokenT = 999
	const stride = 13
	var expected int
	for i := uint64(0); i < total; i++ {
		tok := uint64(1)
		if i%stride == 0 {
			tok = tokenT
			expected++
		}
		list.Insert(mintEvent(t, a, tok, i))
	}

	var got []event.Event
	for page := uint32(0); page <= list.LastPageForToken(tokenT); page++ {
		got = append(got, list.GetTransactionsForToken(tokenT, page)...)
	}
	if len(got) != expected {
		t.Fatalf("expected %d events for token, got %d", expected, len(got))
	}
	for _, e := range got {
		id, ok := e.Details[0].Value.AsTokenID()
		if !ok || id != tokenT {
			t.Errorf("unexpected event in token index: %+v", e)
		}
	}
}

func TestPageWitnessForUserReconstructsRootAndRevealsEvents(t *testing.T) {
	contract := mustPrincipal(t, 0xC0)
	a := mustPrincipal(t, 0xA)
	list := New(contract, 0)

	for i := uint64(0); i < 70; i++ {
		list.Insert(mintEvent(t, a, 1, i))
	}

	w := list.WitnessTransactionsForUser(a.Bytes(), 0)
	if w.Reconstruct() != list.RootHash() {
		t.Fatalf("user page witness does not reconstruct root hash")
	}

	refs := list.GetTransactionsForUser(a.Bytes(), 0)
	if len(refs) != 64 {
		t.Fatalf("page 0 should have exactly 64 entries, got %d", len(refs))
	}
	// Minimality: the witness reveals exactly one event_hashes leaf per
	// returned event, plus the single by_user page leaf that anchors
	// them — nothing more.
	if got, want := hashtree.CountLeaves(w), len(refs)+1; got != want {
		t.Fatalf("expected witness to reveal exactly %d leaves (%d events + page leaf), got %d", want, len(refs), got)
	}
}

func TestEveryEventIndexedByContract(t *testing.T) {
	contract := mustPrincipal(t, 0xC0)
	a := mustPrincipal(t, 0xA)
	list := New(contract, 0)
	for i := uint64(0); i < 5; i++ {
		list.Insert(mintEvent(t, a, 1, i))
	}

	var all []event.Event
	for page := uint32(0); page <= list.LastPageForContract(contract.Bytes()); page++ {
		all = append(all, list.GetTransactionsForContract(contract.Bytes(), page)...)
	}
	if len(all) != 5 {
		t.Fatalf("expected all 5 events indexed by contract, got %d", len(all))
	}
}
