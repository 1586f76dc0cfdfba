// Copyright 2025 Certen Protocol
//
// Event is the immutable record stored in a transaction list. Its hash
// is a pure, deterministic function of its contents (§3 of the spec);
// callers must never mutate an event once it has been inserted.

package event

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// Event is an immutable, hash-addressable record of a token contract
// operation.
type Event struct {
	Time      uint64
	Caller    Principal
	Operation string
	Details   []Detail
}

// IndefiniteEvent is an Event that hasn't been stamped with a time yet;
// the bucket materializes it on insert.
type IndefiniteEvent struct {
	Caller    Principal
	Operation string
	Details   []Detail
}

// ToEvent stamps an IndefiniteEvent with the host time (ms) to produce
// a definite Event.
func (ie IndefiniteEvent) ToEvent(timeMs uint64) Event {
	return Event{
		Time:      timeMs,
		Caller:    ie.Caller,
		Operation: ie.Operation,
		Details:   ie.Details,
	}
}

// Hash computes the domain-separated SHA-256 hash of the event, as
// specified in §3: operation, time, caller, then each detail in order
// with its type tag and length-prefixed payload.
func (e Event) Hash() [32]byte {
	h := sha256.New()

	writeLenPrefixed(h, []byte(e.Operation))

	var timeBuf [8]byte
	binary.BigEndian.PutUint64(timeBuf[:], e.Time)
	h.Write(timeBuf[:])

	callerBytes := e.Caller.Bytes()
	writeUsizeLen(h, len(callerBytes))
	h.Write(callerBytes)

	for _, d := range e.Details {
		writeUsizeLen(h, len(d.Key))
		h.Write([]byte(d.Key))
		hashDetailValue(h, d.Value)
	}

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func writeLenPrefixed(h hashWriter, b []byte) {
	h.Write([]byte{byte(len(b))})
	h.Write(b)
}

func writeUsizeLen(h hashWriter, n int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	h.Write(buf[:])
}

type hashWriter interface {
	Write(p []byte) (int, error)
}

func hashDetailValue(h hashWriter, v DetailValue) {
	h.Write([]byte{byte(v.Kind)})
	switch v.Kind {
	case KindTrue, KindFalse:
		// No payload.
	case KindU64, KindTokenIdU64:
		val, _ := v.asRawU64()
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], val)
		writeUsizeLen(h, len(buf))
		h.Write(buf[:])
	case KindI64:
		val, _ := v.AsI64()
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(val))
		writeUsizeLen(h, len(buf))
		h.Write(buf[:])
	case KindF64:
		val, _ := v.AsF64()
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(val))
		writeUsizeLen(h, len(buf))
		h.Write(buf[:])
	case KindText:
		text, _ := v.AsText()
		writeUsizeLen(h, len(text))
		h.Write([]byte(text))
	case KindPrincipal:
		p, _ := v.AsPrincipal()
		b := p.Bytes()
		writeUsizeLen(h, len(b))
		h.Write(b)
	case KindBytes:
		b, _ := v.AsBytes()
		writeUsizeLen(h, len(b))
		h.Write(b)
	case KindVec:
		elems, _ := v.AsVec()
		writeUsizeLen(h, len(elems))
		for _, e := range elems {
			hashDetailValue(h, e)
		}
	}
}

// asRawU64 reads the u64 payload regardless of whether the kind is a
// plain U64 or a TokenIdU64 (both share the same payload encoding).
func (d DetailValue) asRawU64() (uint64, bool) {
	if d.Kind == KindU64 || d.Kind == KindTokenIdU64 {
		return d.u64, true
	}
	return 0, false
}

