package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/certen/cap-history/pkg/bucket"
	"github.com/certen/cap-history/pkg/event"
)

func mustPrincipal(t *testing.T, b byte) event.Principal {
	t.Helper()
	p, err := event.NewPrincipal([]byte{b})
	if err != nil {
		t.Fatalf("NewPrincipal: %v", err)
	}
	return p
}

func newTestHandlers(t *testing.T, contract event.Principal) (*BucketHandlers, *bucket.Bucket) {
	t.Helper()
	b := bucket.New(contract, 0, nil)
	return NewBucketHandlers(b, nil, nil), b
}

func TestHandleInsertThenGetTransaction(t *testing.T) {
	contract := mustPrincipal(t, 0xC0)
	h, _ := newTestHandlers(t, contract)

	body, _ := json.Marshal(map[string]interface{}{
		"caller":    contract.String(),
		"operation": "mint",
		"details": []map[string]interface{}{
			{"key": "token_id", "value": map[string]interface{}{"kind": "tokenId", "u64": 1}},
		},
		"hostTimeNanos": 1000,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/insert", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleInsert(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("insert: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/0?witness=1", nil)
	rec2 := httptest.NewRecorder()
	h.HandleGetTransaction(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("get transaction: expected 200, got %d: %s", rec2.Code, rec2.Body.String())
	}

	var resp transactionWire
	if err := json.Unmarshal(rec2.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Found || resp.Event == nil || resp.Event.Operation != "mint" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(resp.Witness) == 0 {
		t.Fatalf("expected a non-empty witness")
	}
}

func TestHandleInsertRejectsUnauthorizedCaller(t *testing.T) {
	contract := mustPrincipal(t, 0xC0)
	h, _ := newTestHandlers(t, contract)
	stranger := mustPrincipal(t, 0xFF)

	body, _ := json.Marshal(map[string]interface{}{
		"caller":        stranger.String(),
		"operation":     "mint",
		"hostTimeNanos": 0,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/insert", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleInsert(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleGetTransactionRejectsNonGet(t *testing.T) {
	contract := mustPrincipal(t, 0xC0)
	h, _ := newTestHandlers(t, contract)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/0", nil)
	rec := httptest.NewRecorder()
	h.HandleGetTransaction(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHandleSizeAndContractID(t *testing.T) {
	contract := mustPrincipal(t, 0xC0)
	h, b := newTestHandlers(t, contract)
	b.Insert(context.Background(), contract, event.IndefiniteEvent{Caller: contract, Operation: "mint"}, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/size", nil)
	rec := httptest.NewRecorder()
	h.HandleSize(rec, req)
	var sizeResp struct {
		Size uint64 `json:"size"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sizeResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sizeResp.Size != 1 {
		t.Fatalf("expected size 1, got %d", sizeResp.Size)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/contract-id", nil)
	rec2 := httptest.NewRecorder()
	h.HandleContractID(rec2, req2)
	var idResp struct {
		ContractID string `json:"contractId"`
	}
	if err := json.Unmarshal(rec2.Body.Bytes(), &idResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if idResp.ContractID != contract.String() {
		t.Fatalf("expected contract id %s, got %s", contract.String(), idResp.ContractID)
	}
}
