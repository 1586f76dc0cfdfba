package buckettable

import (
	"testing"

	"github.com/certen/cap-history/pkg/event"
)

func mustPrincipal(t *testing.T, b byte) event.Principal {
	t.Helper()
	p, err := event.NewPrincipal([]byte{b, b})
	if err != nil {
		t.Fatalf("NewPrincipal: %v", err)
	}
	return p
}

// S6: lookup table has entries (0, B1), (500, B2), (750, B3).
func TestGetBucketForS6(t *testing.T) {
	tbl := New()
	b1, b2, b3 := mustPrincipal(t, 1), mustPrincipal(t, 2), mustPrincipal(t, 3)

	if err := tbl.Insert(0, b1); err != nil {
		t.Fatalf("insert b1: %v", err)
	}
	if err := tbl.Insert(500, b2); err != nil {
		t.Fatalf("insert b2: %v", err)
	}
	if err := tbl.Insert(750, b3); err != nil {
		t.Fatalf("insert b3: %v", err)
	}

	cases := []struct {
		id   uint64
		want event.Principal
	}{
		{600, b2},
		{750, b3},
		{10_000, b3},
		{0, b1},
	}
	for _, c := range cases {
		got, err := tbl.GetBucketFor(c.id)
		if err != nil {
			t.Fatalf("GetBucketFor(%d): %v", c.id, err)
		}
		if !got.Equal(c.want) {
			t.Errorf("GetBucketFor(%d) = %s, want %s", c.id, got, c.want)
		}
	}
}

func TestGetBucketForEmptyTableIsOutOfRange(t *testing.T) {
	tbl := New()
	if _, err := tbl.GetBucketFor(5); err != ErrOutOfRange {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestGetBucketForBelowSmallestIsOutOfRange(t *testing.T) {
	tbl := New()
	tbl.Insert(100, mustPrincipal(t, 1))
	if _, err := tbl.GetBucketFor(50); err != ErrOutOfRange {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestInsertRejectsNonIncreasingStartingID(t *testing.T) {
	tbl := New()
	if err := tbl.Insert(100, mustPrincipal(t, 1)); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := tbl.Insert(100, mustPrincipal(t, 2)); err != ErrInvalidOrdering {
		t.Fatalf("expected ErrInvalidOrdering for equal id, got %v", err)
	}
	if err := tbl.Insert(50, mustPrincipal(t, 2)); err != ErrInvalidOrdering {
		t.Fatalf("expected ErrInvalidOrdering for decreasing id, got %v", err)
	}
}

func TestWitnessReconstructsRootHash(t *testing.T) {
	tbl := New()
	tbl.Insert(0, mustPrincipal(t, 1))
	tbl.Insert(500, mustPrincipal(t, 2))

	w := tbl.Witness(600)
	if w.Reconstruct() != tbl.RootHash() {
		t.Fatalf("witness does not reconstruct root hash")
	}
}

func TestPopRemovesLastEntry(t *testing.T) {
	tbl := New()
	tbl.Insert(0, mustPrincipal(t, 1))
	tbl.Insert(500, mustPrincipal(t, 2))
	tbl.Pop()

	if tbl.Len() != 1 {
		t.Fatalf("expected 1 entry after pop, got %d", tbl.Len())
	}
	if got, err := tbl.GetBucketFor(600); err != nil || !got.Equal(mustPrincipal(t, 1)) {
		t.Fatalf("popped entry should no longer own id 600, got %s, err=%v", got, err)
	}
}
