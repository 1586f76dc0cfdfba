package server

import (
	"encoding/hex"
	"fmt"

	"github.com/certen/cap-history/pkg/bucket"
	"github.com/certen/cap-history/pkg/event"
	"github.com/certen/cap-history/pkg/hashtree"
)

// transactionWire is the JSON shape of a GetTransaction response.
// Witness is the CBOR-encoded hashtree.Tree; encoding/json renders a
// []byte field as base64 automatically.
type transactionWire struct {
	Found      bool         `json:"found"`
	Event      *event.Event `json:"event,omitempty"`
	IsDelegate bool         `json:"isDelegate"`
	Delegate   *string      `json:"delegate,omitempty"`
	Witness    []byte       `json:"witness,omitempty"`
}

type pageResponseWire struct {
	Events  []event.Event `json:"events"`
	Page    uint32        `json:"page"`
	Witness []byte        `json:"witness,omitempty"`
}

func pageWire(resp bucket.PageResponse) pageResponseWire {
	return pageResponseWire{
		Events:  resp.Events,
		Page:    resp.Page,
		Witness: witnessCBOR(resp.Witness),
	}
}

func eventOrNil(found bool, e event.Event) *event.Event {
	if !found {
		return nil
	}
	return &e
}

func principalOrNil(ok bool, p event.Principal) *string {
	if !ok {
		return nil
	}
	s := p.String()
	return &s
}

func witnessCBOR(t *hashtree.Tree) []byte {
	if t == nil {
		return nil
	}
	b, err := t.MarshalCBOR()
	if err != nil {
		return nil
	}
	return b
}

func parsePrincipalHex(s string) (event.Principal, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return event.Principal{}, fmt.Errorf("server: decode principal %q: %w", s, err)
	}
	return event.NewPrincipal(b)
}
