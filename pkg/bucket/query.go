package bucket

import (
	"github.com/certen/cap-history/pkg/event"
	"github.com/certen/cap-history/pkg/hashtree"
)

// TransactionResponse is the result of GetTransaction: at most one of
// Found or IsDelegate is true. Both are false when id is outside this
// bucket's local range and no lookup-table entry covers it (for
// example, while the lookup table is empty).
type TransactionResponse struct {
	Found      bool
	Event      event.Event
	IsDelegate bool
	Delegate   Principal
	Witness    *hashtree.Tree
}

// PageResponse is the result of a paginated query.
type PageResponse struct {
	Events  []event.Event
	Page    uint32
	Witness *hashtree.Tree
}

// BucketForResponse is the result of GetBucketFor.
type BucketForResponse struct {
	Canister Principal
	Witness  *hashtree.Tree
}

// NextCanistersResponse is the result of GetNextCanisters.
type NextCanistersResponse struct {
	Canisters []Principal
	Witness   *hashtree.Tree
}

// GetTransaction looks up id. If it belongs to this bucket's local
// range, Found is set; otherwise, if the lookup table knows which
// bucket owns it, IsDelegate is set and the caller should re-query
// that bucket.
func (b *Bucket) GetTransaction(id uint64, withWitness bool) TransactionResponse {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if e, ok := b.list.GetTransaction(id); ok {
		resp := TransactionResponse{Found: true, Event: e}
		if withWitness {
			resp.Witness = composeVirtualTree(b.list.WitnessTransaction(id), b.prunedLookup(), b.prunedNext())
		}
		return resp
	}
	if canister, err := b.lookup.GetBucketFor(id); err == nil {
		resp := TransactionResponse{IsDelegate: true, Delegate: canister}
		if withWitness {
			resp.Witness = composeVirtualTree(b.prunedList(), b.lookup.Witness(id), b.prunedNext())
		}
		return resp
	}

	resp := TransactionResponse{}
	if withWitness {
		resp.Witness = composeVirtualTree(b.list.WitnessTransaction(id), b.prunedLookup(), b.prunedNext())
	}
	return resp
}

// GetTransactions returns this bucket's own transactions (the
// by-contract index) for the given page.
func (b *Bucket) GetTransactions(page uint32, withWitness bool) PageResponse {
	b.mu.RLock()
	defer b.mu.RUnlock()

	resp := PageResponse{
		Events: b.list.GetTransactionsForContract(b.contract.Bytes(), page),
		Page:   page,
	}
	if withWitness {
		resp.Witness = composeVirtualTree(b.list.WitnessTransactionsForContract(b.contract.Bytes(), page), b.prunedLookup(), b.prunedNext())
	}
	return resp
}

// GetUserTransactions returns the events mentioning user on the given
// page of the by-user index.
func (b *Bucket) GetUserTransactions(user Principal, page uint32, withWitness bool) PageResponse {
	b.mu.RLock()
	defer b.mu.RUnlock()

	resp := PageResponse{
		Events: b.list.GetTransactionsForUser(user.Bytes(), page),
		Page:   page,
	}
	if withWitness {
		resp.Witness = composeVirtualTree(b.list.WitnessTransactionsForUser(user.Bytes(), page), b.prunedLookup(), b.prunedNext())
	}
	return resp
}

// GetTokenTransactions returns the events mentioning tokenID on the
// given page of the by-token index.
func (b *Bucket) GetTokenTransactions(tokenID uint64, page uint32, withWitness bool) PageResponse {
	b.mu.RLock()
	defer b.mu.RUnlock()

	resp := PageResponse{
		Events: b.list.GetTransactionsForToken(tokenID, page),
		Page:   page,
	}
	if withWitness {
		resp.Witness = composeVirtualTree(b.list.WitnessTransactionsForToken(tokenID, page), b.prunedLookup(), b.prunedNext())
	}
	return resp
}

// GetBucketFor resolves which bucket owns id, consulting the
// bucket-lookup table. It returns buckettable.ErrOutOfRange if no
// bucket covers id.
func (b *Bucket) GetBucketFor(id uint64, withWitness bool) (BucketForResponse, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	canister, err := b.lookup.GetBucketFor(id)
	if err != nil {
		return BucketForResponse{}, err
	}
	resp := BucketForResponse{Canister: canister}
	if withWitness {
		resp.Witness = composeVirtualTree(b.prunedList(), b.lookup.Witness(id), b.prunedNext())
	}
	return resp, nil
}

// GetNextCanisters returns the full list of registered next canisters.
func (b *Bucket) GetNextCanisters(withWitness bool) NextCanistersResponse {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Principal, len(b.nextList))
	copy(out, b.nextList)
	resp := NextCanistersResponse{Canisters: out}
	if withWitness {
		keys := make([][]byte, len(b.nextList))
		for i := range b.nextList {
			keys[i] = beU32(uint32(i))
		}
		resp.Witness = composeVirtualTree(b.prunedList(), b.prunedLookup(), b.nextTree.WitnessKeys(keys))
	}
	return resp
}

// Size returns the bucket's total transaction count (offset + local
// events).
func (b *Bucket) Size() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.list.Size()
}

// ContractID returns the owning contract's principal.
func (b *Bucket) ContractID() Principal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.contract
}
