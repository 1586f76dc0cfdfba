// Copyright 2025 Certen Protocol

package event

import "testing"

func mustPrincipal(t *testing.T, b byte) Principal {
	t.Helper()
	p, err := NewPrincipal([]byte{b, b, b})
	if err != nil {
		t.Fatalf("NewPrincipal: %v", err)
	}
	return p
}

func TestHashIsDeterministic(t *testing.T) {
	caller := mustPrincipal(t, 1)
	e := Event{
		Time:      42,
		Caller:    caller,
		Operation: "mint",
		Details: []Detail{
			{Key: "amount", Value: DetailU64(100)},
		},
	}
	clone := e
	clone.Details = append([]Detail{}, e.Details...)

	if e.Hash() != clone.Hash() {
		t.Errorf("hash should be a pure function of event contents")
	}
}

func TestHashDependsOnDetailOrder(t *testing.T) {
	caller := mustPrincipal(t, 1)
	base := Event{Time: 1, Caller: caller, Operation: "transfer"}

	a := base
	a.Details = []Detail{
		{Key: "amount", Value: DetailU64(1)},
		{Key: "memo", Value: DetailU64(2)},
	}

	b := base
	b.Details = []Detail{
		{Key: "memo", Value: DetailU64(2)},
		{Key: "amount", Value: DetailU64(1)},
	}

	if a.Hash() == b.Hash() {
		t.Errorf("events differing only in detail order must hash differently")
	}
}

func TestExtractPrincipalIDsIncludesCallerAndNested(t *testing.T) {
	caller := mustPrincipal(t, 1)
	to := mustPrincipal(t, 2)
	nested := mustPrincipal(t, 3)

	e := Event{
		Time:      0,
		Caller:    caller,
		Operation: "transfer",
		Details: []Detail{
			{Key: "to", Value: DetailPrincipal(to)},
			{Key: "participants", Value: DetailVec([]DetailValue{DetailPrincipal(nested)})},
			{Key: "memo", Value: DetailText("hello")},
		},
	}

	ids := e.ExtractPrincipalIDs()
	if len(ids) != 3 {
		t.Fatalf("expected 3 distinct principals, got %d", len(ids))
	}
	for _, want := range []Principal{caller, to, nested} {
		found := false
		for _, got := range ids {
			if got.Equal(want) {
				found = true
			}
		}
		if !found {
			t.Errorf("missing expected principal %s", want)
		}
	}
}

func TestExtractTokenIDsRecursesThroughVecOnly(t *testing.T) {
	e := Event{
		Operation: "mint",
		Details: []Detail{
			{Key: "token", Value: DetailTokenID(7)},
			{Key: "batch", Value: DetailVec([]DetailValue{DetailTokenID(8), DetailTokenID(7)})},
			{Key: "note", Value: DetailBytes([]byte{8, 0, 0, 0, 0, 0, 0, 0})},
		},
	}

	ids := e.ExtractTokenIDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 distinct token ids (dedup 7), got %d: %v", len(ids), ids)
	}
	if ids[0] != 7 || ids[1] != 8 {
		t.Errorf("expected sorted [7 8], got %v", ids)
	}
}
