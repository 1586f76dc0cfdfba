// Copyright 2025 Certen Protocol
//
// CBOR wire encoding for HashTree, matching the host runtime's
// canonical tagged encoding so that external certificate verifiers can
// reconstruct a root without knowing anything about this module:
//
//	Empty          -> [0]
//	Fork(l, r)     -> [1, l, r]
//	Labeled(l, c)  -> [2, l, c]
//	Leaf(bytes)    -> [3, bytes]
//	Pruned(hash)   -> [4, hash]

package hashtree

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const (
	wireEmpty   = 0
	wireFork    = 1
	wireLabeled = 2
	wireLeaf    = 3
	wirePruned  = 4
)

// MarshalCBOR encodes a Tree using the wire format above.
func (t *Tree) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(t.toWire())
}

func (t *Tree) toWire() []interface{} {
	if t == nil {
		return []interface{}{wireEmpty}
	}
	switch t.Kind {
	case KindEmpty:
		return []interface{}{wireEmpty}
	case KindPruned:
		return []interface{}{wirePruned, t.Pruned[:]}
	case KindLeaf:
		return []interface{}{wireLeaf, t.LeafData}
	case KindLabeled:
		return []interface{}{wireLabeled, t.Label, t.Child.toWire()}
	case KindFork:
		return []interface{}{wireFork, t.Left.toWire(), t.Right.toWire()}
	default:
		panic(fmt.Sprintf("hashtree: unknown kind %d", t.Kind))
	}
}

// UnmarshalCBOR decodes a Tree from the wire format above.
func (t *Tree) UnmarshalCBOR(data []byte) error {
	var raw []cbor.RawMessage
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("hashtree: decode envelope: %w", err)
	}
	decoded, err := decodeWire(raw)
	if err != nil {
		return err
	}
	*t = *decoded
	return nil
}

func decodeWire(raw []cbor.RawMessage) (*Tree, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("hashtree: empty wire node")
	}
	var tag int
	if err := cbor.Unmarshal(raw[0], &tag); err != nil {
		return nil, fmt.Errorf("hashtree: decode tag: %w", err)
	}

	switch tag {
	case wireEmpty:
		return Empty(), nil
	case wirePruned:
		if len(raw) != 2 {
			return nil, fmt.Errorf("hashtree: pruned node wants 2 elements, got %d", len(raw))
		}
		var b []byte
		if err := cbor.Unmarshal(raw[1], &b); err != nil {
			return nil, fmt.Errorf("hashtree: decode pruned hash: %w", err)
		}
		if len(b) != 32 {
			return nil, fmt.Errorf("hashtree: pruned hash must be 32 bytes, got %d", len(b))
		}
		var h Hash
		copy(h[:], b)
		return PrunedNode(h), nil
	case wireLeaf:
		if len(raw) != 2 {
			return nil, fmt.Errorf("hashtree: leaf node wants 2 elements, got %d", len(raw))
		}
		var b []byte
		if err := cbor.Unmarshal(raw[1], &b); err != nil {
			return nil, fmt.Errorf("hashtree: decode leaf bytes: %w", err)
		}
		return LeafNode(b), nil
	case wireLabeled:
		if len(raw) != 3 {
			return nil, fmt.Errorf("hashtree: labeled node wants 3 elements, got %d", len(raw))
		}
		var label []byte
		if err := cbor.Unmarshal(raw[1], &label); err != nil {
			return nil, fmt.Errorf("hashtree: decode label: %w", err)
		}
		var childRaw []cbor.RawMessage
		if err := cbor.Unmarshal(raw[2], &childRaw); err != nil {
			return nil, fmt.Errorf("hashtree: decode labeled child: %w", err)
		}
		child, err := decodeWire(childRaw)
		if err != nil {
			return nil, err
		}
		return LabeledNode(label, child), nil
	case wireFork:
		if len(raw) != 3 {
			return nil, fmt.Errorf("hashtree: fork node wants 3 elements, got %d", len(raw))
		}
		var leftRaw, rightRaw []cbor.RawMessage
		if err := cbor.Unmarshal(raw[1], &leftRaw); err != nil {
			return nil, fmt.Errorf("hashtree: decode fork left: %w", err)
		}
		if err := cbor.Unmarshal(raw[2], &rightRaw); err != nil {
			return nil, fmt.Errorf("hashtree: decode fork right: %w", err)
		}
		left, err := decodeWire(leftRaw)
		if err != nil {
			return nil, err
		}
		right, err := decodeWire(rightRaw)
		if err != nil {
			return nil, err
		}
		return ForkNode(left, right), nil
	default:
		return nil, fmt.Errorf("hashtree: unknown wire tag %d", tag)
	}
}
