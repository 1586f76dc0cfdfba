package store

import (
	"encoding/json"
	"fmt"

	"github.com/certen/cap-history/pkg/event"
)

// currentVersion is the schema version Save writes. Load accepts any
// version from 0 up to currentVersion, fast-forwarding older ones
// through the migrate* functions below.
const currentVersion = 2

type versioned struct {
	Version int             `json:"version"`
	Payload json.RawMessage `json:"payload"`
}

// envelopeV0 is the original on-disk shape: just the list data, no
// lookup table or next-canisters (an upgrade that predates
// cross-bucket delegation).
type envelopeV0 struct {
	GlobalOffset uint64        `json:"globalOffset"`
	Contract     event.Principal `json:"contract"`
	Events       []event.Event `json:"events"`
}

// envelopeV1 adds the lookup table and next-canisters list.
type envelopeV1 struct {
	GlobalOffset  uint64           `json:"globalOffset"`
	Contract      event.Principal  `json:"contract"`
	Events        []event.Event    `json:"events"`
	Lookup        []LookupEntry    `json:"lookup"`
	NextCanisters []event.Principal `json:"nextCanisters"`
}

// envelopeV2 is the current shape: adds the pending-flush set, so a
// bucket that crashed mid-flush doesn't lose track of unregistered
// principals across an upgrade.
type envelopeV2 struct {
	GlobalOffset  uint64           `json:"globalOffset"`
	Contract      event.Principal  `json:"contract"`
	Events        []event.Event    `json:"events"`
	Lookup        []LookupEntry    `json:"lookup"`
	NextCanisters []event.Principal `json:"nextCanisters"`
	PendingFlush  []event.Principal `json:"pendingFlush"`
}

func migrateV0ToV1(v0 envelopeV0) envelopeV1 {
	return envelopeV1{
		GlobalOffset: v0.GlobalOffset,
		Contract:     v0.Contract,
		Events:       v0.Events,
	}
}

func migrateV1ToV2(v1 envelopeV1) envelopeV2 {
	return envelopeV2{
		GlobalOffset:  v1.GlobalOffset,
		Contract:      v1.Contract,
		Events:        v1.Events,
		Lookup:        v1.Lookup,
		NextCanisters: v1.NextCanisters,
	}
}

func fromEnvelope(v2 envelopeV2) Snapshot {
	return Snapshot{
		GlobalOffset:  v2.GlobalOffset,
		Contract:      v2.Contract,
		Events:        v2.Events,
		Lookup:        v2.Lookup,
		NextCanisters: v2.NextCanisters,
		PendingFlush:  v2.PendingFlush,
	}
}

// decode reads the envelope's version field, decodes the payload with
// that version's shape, and fast-forwards it to the current shape.
// Unknown versions are an error.
func decode(raw []byte) (Snapshot, error) {
	var v versioned
	if err := json.Unmarshal(raw, &v); err != nil {
		return Snapshot{}, fmt.Errorf("store: decode envelope: %w", err)
	}

	switch v.Version {
	case 2:
		var e2 envelopeV2
		if err := json.Unmarshal(v.Payload, &e2); err != nil {
			return Snapshot{}, fmt.Errorf("store: decode v2 payload: %w", err)
		}
		return fromEnvelope(e2), nil
	case 1:
		var e1 envelopeV1
		if err := json.Unmarshal(v.Payload, &e1); err != nil {
			return Snapshot{}, fmt.Errorf("store: decode v1 payload: %w", err)
		}
		return fromEnvelope(migrateV1ToV2(e1)), nil
	case 0:
		var e0 envelopeV0
		if err := json.Unmarshal(v.Payload, &e0); err != nil {
			return Snapshot{}, fmt.Errorf("store: decode v0 payload: %w", err)
		}
		return fromEnvelope(migrateV1ToV2(migrateV0ToV1(e0))), nil
	default:
		return Snapshot{}, fmt.Errorf("store: unknown schema version %d", v.Version)
	}
}
