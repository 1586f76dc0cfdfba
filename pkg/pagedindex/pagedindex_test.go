package pagedindex

import (
	"crypto/sha256"
	"testing"
)

func eventHash(n int) [32]byte {
	return sha256.Sum256([]byte{byte(n), byte(n >> 8)})
}

func TestInsertRolloverAtPageCapacity(t *testing.T) {
	ix := New()
	key := U64KeyPrefix(1)

	for i := 0; i < PageCapacity; i++ {
		page := ix.Insert(key, uint32(i), eventHash(i))
		if page != 0 {
			t.Fatalf("entry %d should land on page 0, got %d", i, page)
		}
	}
	if ix.LastPage(key) != 0 {
		t.Fatalf("last page should still be 0 after exactly %d entries", PageCapacity)
	}

	page := ix.Insert(key, PageCapacity, eventHash(PageCapacity))
	if page != 1 {
		t.Fatalf("entry %d should roll over to page 1, got %d", PageCapacity, page)
	}
	if ix.LastPage(key) != 1 {
		t.Fatalf("last page should be 1 after rollover")
	}

	refs, ok := ix.Get(key, 0)
	if !ok || len(refs) != PageCapacity {
		t.Fatalf("page 0 should have exactly %d entries, got %d (ok=%v)", PageCapacity, len(refs), ok)
	}
	refs1, ok := ix.Get(key, 1)
	if !ok || len(refs1) != 1 {
		t.Fatalf("page 1 should have exactly 1 entry, got %d (ok=%v)", len(refs1), ok)
	}
}

func TestLastPageZeroWhenAbsent(t *testing.T) {
	ix := New()
	if ix.LastPage(U64KeyPrefix(99)) != 0 {
		t.Fatalf("last page of unknown key should be 0")
	}
	if _, ok := ix.Get(U64KeyPrefix(99), 0); ok {
		t.Fatalf("get of unknown key should be absent")
	}
}

func TestWitnessReconstructsRootHash(t *testing.T) {
	ix := New()
	key := PrincipalKeyPrefix([]byte{1, 2, 3})
	ix.Insert(key, 0, eventHash(0))
	ix.Insert(key, 1, eventHash(1))

	w := ix.Witness(key, 0)
	if w.Reconstruct() != ix.RootHash() {
		t.Fatalf("witness does not reconstruct root hash")
	}
}

func TestChainHashChangesOnEveryAppend(t *testing.T) {
	ix := New()
	key := U64KeyPrefix(7)
	ix.Insert(key, 0, eventHash(0))
	h1 := ix.RootHash()
	ix.Insert(key, 1, eventHash(1))
	h2 := ix.RootHash()
	if h1 == h2 {
		t.Fatalf("root hash should change after a second append to the same page")
	}
}

func TestPrincipalKeyPrefixDistinguishesDifferentLengthPrincipals(t *testing.T) {
	a := PrincipalKeyPrefix([]byte{1})
	b := PrincipalKeyPrefix([]byte{1, 0})
	if string(a) == string(b) {
		t.Fatalf("principals of different length must not collide once padded")
	}
}
