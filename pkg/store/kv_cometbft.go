// Copyright 2025 Certen Protocol

package store

import (
	"fmt"

	dbm "github.com/cometbft/cometbft-db"
)

// CometKV adapts a CometBFT dbm.DB to the KV interface, so a bucket's
// persisted state can live on any backend cometbft-db supports
// (goleveldb, badger, boltdb, memdb) without the rest of this package
// depending on a specific one.
type CometKV struct {
	db dbm.DB
}

// NewCometKV wraps db as a KV.
func NewCometKV(db dbm.DB) *CometKV {
	return &CometKV{db: db}
}

// Get implements KV.
func (a *CometKV) Get(key []byte) ([]byte, error) {
	if a.db == nil {
		return nil, nil
	}
	v, err := a.db.Get(key)
	if err != nil {
		return nil, fmt.Errorf("store: kv get: %w", err)
	}
	return v, nil
}

// Set implements KV. Writes go through SetSync so a save that returns
// nil error is durable before the caller proceeds.
func (a *CometKV) Set(key, value []byte) error {
	if a.db == nil {
		return nil
	}
	if err := a.db.SetSync(key, value); err != nil {
		return fmt.Errorf("store: kv set: %w", err)
	}
	return nil
}
