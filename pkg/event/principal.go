// Copyright 2025 Certen Protocol

package event

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// MaxPrincipalBytes is the maximum length of a principal's raw bytes,
// matching the host runtime's identity representation.
const MaxPrincipalBytes = 29

// Principal is an opaque identity: a contract, a user, or a caller.
// It is a thin byte blob, ordered and compared byte-wise.
type Principal struct {
	bytes []byte
}

// NewPrincipal builds a Principal from raw bytes, rejecting anything
// longer than the host allows.
func NewPrincipal(b []byte) (Principal, error) {
	if len(b) > MaxPrincipalBytes {
		return Principal{}, fmt.Errorf("event: principal has %d bytes, max is %d", len(b), MaxPrincipalBytes)
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return Principal{bytes: cp}, nil
}

// Bytes returns the raw bytes of the principal.
func (p Principal) Bytes() []byte {
	cp := make([]byte, len(p.bytes))
	copy(cp, p.bytes)
	return cp
}

// Equal reports whether two principals hold the same bytes.
func (p Principal) Equal(other Principal) bool {
	return bytes.Equal(p.bytes, other.bytes)
}

// Compare orders principals byte-wise; used to keep sets/iteration
// deterministic.
func (p Principal) Compare(other Principal) int {
	return bytes.Compare(p.bytes, other.bytes)
}

// String renders the principal as a hex string for logs and debugging.
func (p Principal) String() string {
	return hex.EncodeToString(p.bytes)
}

// MarshalJSON encodes the principal as a hex string.
func (p Principal) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a principal from a hex string.
func (p *Principal) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	decoded, err := principalFromHex(s)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

// SortPrincipals sorts principals in place by byte order and removes
// duplicates, returning the deduplicated slice.
func SortPrincipals(ps []Principal) []Principal {
	if len(ps) < 2 {
		return ps
	}
	insertionSortPrincipals(ps)
	out := ps[:1]
	for _, p := range ps[1:] {
		if !p.Equal(out[len(out)-1]) {
			out = append(out, p)
		}
	}
	return out
}

func insertionSortPrincipals(ps []Principal) {
	for i := 1; i < len(ps); i++ {
		for j := i; j > 0 && ps[j].Compare(ps[j-1]) < 0; j-- {
			ps[j], ps[j-1] = ps[j-1], ps[j]
		}
	}
}
