// Copyright 2025 Certen Protocol
//
// Transaction History Query & Write API Handlers
// Implements the external operation table from the engine spec as an
// HTTP/JSON surface over a single bucket.

package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/certen/cap-history/pkg/bucket"
	"github.com/certen/cap-history/pkg/event"
	"github.com/certen/cap-history/pkg/hashtree"
	"github.com/certen/cap-history/pkg/metrics"
)

// BucketHandlers provides HTTP handlers for one bucket's read and
// write operations.
type BucketHandlers struct {
	bucket  *bucket.Bucket
	metrics *metrics.Registry
	logger  *log.Logger
}

// NewBucketHandlers creates new bucket query/write handlers.
func NewBucketHandlers(b *bucket.Bucket, reg *metrics.Registry, logger *log.Logger) *BucketHandlers {
	if logger == nil {
		logger = log.New(log.Writer(), "[BucketAPI] ", log.LstdFlags)
	}
	return &BucketHandlers{bucket: b, metrics: reg, logger: logger}
}

// Routes registers every handler on mux under /api/v1/.
func (h *BucketHandlers) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/transactions/", h.HandleGetTransaction)
	mux.HandleFunc("/api/v1/transactions", h.HandleGetTransactions)
	mux.HandleFunc("/api/v1/users/", h.HandleGetUserTransactions)
	mux.HandleFunc("/api/v1/tokens/", h.HandleGetTokenTransactions)
	mux.HandleFunc("/api/v1/bucket-for/", h.HandleGetBucketFor)
	mux.HandleFunc("/api/v1/next-canisters", h.HandleGetNextCanisters)
	mux.HandleFunc("/api/v1/size", h.HandleSize)
	mux.HandleFunc("/api/v1/contract-id", h.HandleContractID)
	mux.HandleFunc("/api/v1/insert", h.HandleInsert)
	mux.HandleFunc("/api/v1/insert-many", h.HandleInsertMany)
	mux.HandleFunc("/api/v1/migrate", h.HandleMigrate)
}

// ============================================================================
// READ ENDPOINTS
// ============================================================================

// HandleGetTransaction handles GET /api/v1/transactions/{id}?witness=1
func (h *BucketHandlers) HandleGetTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	idStr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v1/transactions/"), "/")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_TX_ID", "Transaction id must be a u64")
		return
	}

	resp := h.bucket.GetTransaction(id, wantWitness(r))
	h.observeQuery("get_transaction", nil, resp.Witness)
	h.writeJSON(w, http.StatusOK, transactionWire{
		Found:      resp.Found,
		Event:      eventOrNil(resp.Found, resp.Event),
		IsDelegate: resp.IsDelegate,
		Delegate:   principalOrNil(resp.IsDelegate, resp.Delegate),
		Witness:    witnessCBOR(resp.Witness),
	})
}

// HandleGetTransactions handles GET /api/v1/transactions?page=N&witness=1
func (h *BucketHandlers) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}
	page, err := parsePage(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_PAGE", err.Error())
		return
	}
	resp := h.bucket.GetTransactions(page, wantWitness(r))
	h.observeQuery("get_transactions", nil, resp.Witness)
	h.writeJSON(w, http.StatusOK, pageWire(resp))
}

// HandleGetUserTransactions handles GET /api/v1/users/{hex-principal}?page=N&witness=1
func (h *BucketHandlers) HandleGetUserTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}
	hexStr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v1/users/"), "/")
	user, err := parsePrincipalHex(hexStr)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_PRINCIPAL", err.Error())
		return
	}
	page, err := parsePage(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_PAGE", err.Error())
		return
	}
	resp := h.bucket.GetUserTransactions(user, page, wantWitness(r))
	h.observeQuery("get_user_transactions", nil, resp.Witness)
	h.writeJSON(w, http.StatusOK, pageWire(resp))
}

// HandleGetTokenTransactions handles GET /api/v1/tokens/{id}?page=N&witness=1
func (h *BucketHandlers) HandleGetTokenTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}
	idStr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v1/tokens/"), "/")
	tokenID, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_TOKEN_ID", "Token id must be a u64")
		return
	}
	page, err := parsePage(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_PAGE", err.Error())
		return
	}
	resp := h.bucket.GetTokenTransactions(tokenID, page, wantWitness(r))
	h.observeQuery("get_token_transactions", nil, resp.Witness)
	h.writeJSON(w, http.StatusOK, pageWire(resp))
}

// HandleGetBucketFor handles GET /api/v1/bucket-for/{id}?witness=1
func (h *BucketHandlers) HandleGetBucketFor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}
	idStr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v1/bucket-for/"), "/")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_TX_ID", "Transaction id must be a u64")
		return
	}
	resp, err := h.bucket.GetBucketFor(id, wantWitness(r))
	h.observeQuery("get_bucket_for", err, resp.Witness)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "OUT_OF_RANGE", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"canister": resp.Canister.String(),
		"witness":  witnessCBOR(resp.Witness),
	})
}

// HandleGetNextCanisters handles GET /api/v1/next-canisters?witness=1
func (h *BucketHandlers) HandleGetNextCanisters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}
	resp := h.bucket.GetNextCanisters(wantWitness(r))
	h.observeQuery("get_next_canisters", nil, resp.Witness)
	canisters := make([]string, len(resp.Canisters))
	for i, c := range resp.Canisters {
		canisters[i] = c.String()
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"canisters": canisters,
		"witness":   witnessCBOR(resp.Witness),
	})
}

// HandleSize handles GET /api/v1/size
func (h *BucketHandlers) HandleSize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}
	h.metricsSetGauges()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"size": h.bucket.Size()})
}

// HandleContractID handles GET /api/v1/contract-id
func (h *BucketHandlers) HandleContractID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"contractId": h.bucket.ContractID().String()})
}

// ============================================================================
// WRITE ENDPOINTS
// ============================================================================

// insertEnvelope carries one pending write; HostTimeNanos rides
// alongside the wire IndefiniteEvent fields rather than inside them,
// since it belongs to the call, not the event.
type insertEnvelope struct {
	event.IndefiniteEvent
	HostTimeNanos uint64 `json:"hostTimeNanos"`
}

// HandleInsert handles POST /api/v1/insert
func (h *BucketHandlers) HandleInsert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}
	var req insertEnvelope
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	id, err := h.bucket.Insert(r.Context(), req.Caller, req.IndefiniteEvent, req.HostTimeNanos)
	h.writeInsertResult(w, id, err)
}

// insertManyEnvelope is an insertEnvelope without its own
// IndefiniteEvent: the caller is shared across the whole batch.
type insertManyEnvelope struct {
	Caller        event.Principal         `json:"caller"`
	Events        []event.IndefiniteEvent `json:"events"`
	HostTimeNanos uint64                  `json:"hostTimeNanos"`
}

// HandleInsertMany handles POST /api/v1/insert-many
func (h *BucketHandlers) HandleInsertMany(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}
	var req insertManyEnvelope
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	id, err := h.bucket.InsertMany(r.Context(), req.Caller, req.Events, req.HostTimeNanos)
	h.writeInsertResult(w, id, err)
}

type migrateRequest struct {
	Caller event.Principal `json:"caller"`
	Events []event.Event   `json:"events"`
}

// HandleMigrate handles POST /api/v1/migrate
func (h *BucketHandlers) HandleMigrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}
	var req migrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if err := h.bucket.Migrate(req.Caller, req.Events); err != nil {
		h.logger.Printf("migrate: %v", err)
		h.writeError(w, http.StatusConflict, migrateErrorCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"size": h.bucket.Size()})
}

func (h *BucketHandlers) writeInsertResult(w http.ResponseWriter, id uint64, err error) {
	if err != nil {
		h.logger.Printf("insert rejected: %v", err)
		if h.metrics != nil && err == bucket.ErrRateLimited {
			h.metrics.ObserveRateLimitDrop()
		}
		h.writeError(w, insertErrorStatus(err), insertErrorCode(err), err.Error())
		return
	}
	h.metricsSetGauges()
	if h.metrics != nil {
		h.metrics.ObserveInsert("insert")
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"id": id})
}

func (h *BucketHandlers) metricsSetGauges() {
	if h.metrics == nil {
		return
	}
	h.metrics.SetBucketSize(h.bucket.Size())
	h.metrics.SetPendingFlushLen(len(h.bucket.PendingFlush()))
}

func (h *BucketHandlers) observeQuery(operation string, err error, witness *hashtree.Tree) {
	if h.metrics == nil {
		return
	}
	h.metrics.ObserveQuery(operation, err)
	if b := witnessCBOR(witness); b != nil {
		h.metrics.ObserveWitnessBytes(len(b))
	}
}

// ============================================================================
// HELPERS
// ============================================================================

func (h *BucketHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("Error encoding response: %v", err)
	}
}

func (h *BucketHandlers) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func wantWitness(r *http.Request) bool {
	v := r.URL.Query().Get("witness")
	return v == "1" || v == "true"
}

func parsePage(r *http.Request) (uint32, error) {
	v := r.URL.Query().Get("page")
	if v == "" {
		return 0, nil
	}
	page, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(page), nil
}

func insertErrorStatus(err error) int {
	switch err {
	case bucket.ErrUnauthorized:
		return http.StatusForbidden
	case bucket.ErrRateLimited:
		return http.StatusTooManyRequests
	case bucket.ErrMigrationLocked:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func insertErrorCode(err error) string {
	switch err {
	case bucket.ErrUnauthorized:
		return "UNAUTHORIZED"
	case bucket.ErrRateLimited:
		return "RATE_LIMITED"
	case bucket.ErrMigrationLocked:
		return "MIGRATION_LOCKED"
	default:
		return "INTERNAL_ERROR"
	}
}

func migrateErrorCode(err error) string {
	if err == bucket.ErrUnauthorized {
		return "UNAUTHORIZED"
	}
	if err == bucket.ErrMigrationLocked {
		return "MIGRATION_LOCKED"
	}
	return "INVALID_EVENTS"
}
