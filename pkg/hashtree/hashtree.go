// Copyright 2025 Certen Protocol
//
// Certified hash-tree primitives shared by the certified map, the paged
// index and the transaction list. These are the domain-separated hash
// constructions published by the host runtime's certified-data API;
// every component that wants its state provable against a signed root
// must build its hashes exactly this way.

package hashtree

import "crypto/sha256"

// Hash is a 32-byte SHA-256 digest.
type Hash [32]byte

var (
	leafDomainSep    = []byte("\x10ic-hashtree-leaf")
	labeledDomainSep = []byte("\x13ic-hashtree-labeled")
	forkDomainSep    = []byte("\x10ic-hashtree-fork")
	emptyDomainSep   = []byte("\x0Dic-hashtree-empty")
)

// EmptyHash is the domain-separated hash of the empty tree.
func EmptyHash() Hash {
	return Hash(sha256.Sum256(emptyDomainSep))
}

// LeafHash hashes the bytes of a leaf value.
func LeafHash(bytes []byte) Hash {
	h := sha256.New()
	h.Write(leafDomainSep)
	h.Write(bytes)
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// LabeledHash hashes a labeled subtree: a key/label and the hash of its
// child.
func LabeledHash(label []byte, child Hash) Hash {
	h := sha256.New()
	h.Write(labeledDomainSep)
	h.Write(label)
	h.Write(child[:])
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// ForkHash combines the hashes of a left and right subtree.
func ForkHash(left, right Hash) Hash {
	h := sha256.New()
	h.Write(forkDomainSep)
	h.Write(left[:])
	h.Write(right[:])
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
