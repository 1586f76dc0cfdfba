// Copyright 2025 Certen Protocol
//
// JSON wire representation for events, used by the HTTP query/update
// surface in pkg/server. Internal fields of DetailValue are
// unexported, so it needs explicit (Un)MarshalJSON.

package event

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

var kindNames = map[Kind]string{
	KindTrue:       "true",
	KindFalse:      "false",
	KindU64:        "u64",
	KindI64:        "i64",
	KindF64:        "f64",
	KindText:       "text",
	KindPrincipal:  "principal",
	KindBytes:      "bytes",
	KindVec:        "vec",
	KindTokenIdU64: "tokenId",
}

var namesToKind = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, v := range kindNames {
		m[v] = k
	}
	return m
}()

type detailValueWire struct {
	Kind      string            `json:"kind"`
	U64       *uint64           `json:"u64,omitempty"`
	I64       *int64            `json:"i64,omitempty"`
	F64       *float64          `json:"f64,omitempty"`
	Text      *string           `json:"text,omitempty"`
	Principal *string           `json:"principal,omitempty"`
	Bytes     *string           `json:"bytes,omitempty"`
	Vec       []detailValueWire `json:"vec,omitempty"`
}

func (d DetailValue) MarshalJSON() ([]byte, error) {
	w := detailValueWire{Kind: kindNames[d.Kind]}
	switch d.Kind {
	case KindU64, KindTokenIdU64:
		v, _ := d.asRawU64()
		w.U64 = &v
	case KindI64:
		v, _ := d.AsI64()
		w.I64 = &v
	case KindF64:
		v, _ := d.AsF64()
		w.F64 = &v
	case KindText:
		v, _ := d.AsText()
		w.Text = &v
	case KindPrincipal:
		p, _ := d.AsPrincipal()
		s := p.String()
		w.Principal = &s
	case KindBytes:
		b, _ := d.AsBytes()
		s := base64.StdEncoding.EncodeToString(b)
		w.Bytes = &s
	case KindVec:
		elems, _ := d.AsVec()
		w.Vec = make([]detailValueWire, len(elems))
		for i, e := range elems {
			raw, err := e.MarshalJSON()
			if err != nil {
				return nil, err
			}
			if err := json.Unmarshal(raw, &w.Vec[i]); err != nil {
				return nil, err
			}
		}
	}
	return json.Marshal(w)
}

func (d *DetailValue) UnmarshalJSON(data []byte) error {
	var w detailValueWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	kind, ok := namesToKind[w.Kind]
	if !ok {
		return fmt.Errorf("event: unknown detail kind %q", w.Kind)
	}
	switch kind {
	case KindTrue:
		*d = DetailTrue()
	case KindFalse:
		*d = DetailFalse()
	case KindU64:
		if w.U64 == nil {
			return fmt.Errorf("event: u64 detail missing u64 field")
		}
		*d = DetailU64(*w.U64)
	case KindTokenIdU64:
		if w.U64 == nil {
			return fmt.Errorf("event: tokenId detail missing u64 field")
		}
		*d = DetailTokenID(*w.U64)
	case KindI64:
		if w.I64 == nil {
			return fmt.Errorf("event: i64 detail missing i64 field")
		}
		*d = DetailI64(*w.I64)
	case KindF64:
		if w.F64 == nil {
			return fmt.Errorf("event: f64 detail missing f64 field")
		}
		*d = DetailF64(*w.F64)
	case KindText:
		if w.Text == nil {
			return fmt.Errorf("event: text detail missing text field")
		}
		*d = DetailText(*w.Text)
	case KindPrincipal:
		if w.Principal == nil {
			return fmt.Errorf("event: principal detail missing principal field")
		}
		p, err := principalFromHex(*w.Principal)
		if err != nil {
			return err
		}
		*d = DetailPrincipal(p)
	case KindBytes:
		if w.Bytes == nil {
			return fmt.Errorf("event: bytes detail missing bytes field")
		}
		b, err := base64.StdEncoding.DecodeString(*w.Bytes)
		if err != nil {
			return fmt.Errorf("event: decode bytes detail: %w", err)
		}
		*d = DetailBytes(b)
	case KindVec:
		elems := make([]DetailValue, len(w.Vec))
		for i, ew := range w.Vec {
			raw, err := json.Marshal(ew)
			if err != nil {
				return err
			}
			if err := elems[i].UnmarshalJSON(raw); err != nil {
				return err
			}
		}
		*d = DetailVec(elems)
	}
	return nil
}

type eventWire struct {
	Time      uint64  `json:"time"`
	Caller    string  `json:"caller"`
	Operation string  `json:"operation"`
	Details   []Detail `json:"details"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventWire{
		Time:      e.Time,
		Caller:    e.Caller.String(),
		Operation: e.Operation,
		Details:   e.Details,
	})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var w eventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	p, err := principalFromHex(w.Caller)
	if err != nil {
		return err
	}
	e.Time = w.Time
	e.Caller = p
	e.Operation = w.Operation
	e.Details = w.Details
	return nil
}

type indefiniteEventWire struct {
	Caller    string   `json:"caller"`
	Operation string   `json:"operation"`
	Details   []Detail `json:"details"`
}

func (ie IndefiniteEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(indefiniteEventWire{
		Caller:    ie.Caller.String(),
		Operation: ie.Operation,
		Details:   ie.Details,
	})
}

func (ie *IndefiniteEvent) UnmarshalJSON(data []byte) error {
	var w indefiniteEventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	p, err := principalFromHex(w.Caller)
	if err != nil {
		return err
	}
	ie.Caller = p
	ie.Operation = w.Operation
	ie.Details = w.Details
	return nil
}

func principalFromHex(s string) (Principal, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Principal{}, fmt.Errorf("event: decode principal %q: %w", s, err)
	}
	return NewPrincipal(b)
}
