/*
handlers.go - HTTP host adapter for the ledger dispatcher

PURPOSE:
  Plays the role of the host ledger runtime: receives invocations over
  HTTP, hands them to the dispatcher one at a time, and reports the
  Outcome as JSON.

ENDPOINTS:
  POST   /api/init                    One-time metadata write
  POST   /api/invoke                  Any catalog function
  GET    /api/records/{key}           Raw stored record
  GET    /api/orders/{id}/refunds     Aggregated refunds of one order
  GET    /api/health                  Liveness

SERIALIZATION:
  The engine holds no locks and checks the refund ceiling with a
  read-then-write sequence. Handler serializes every invocation with a
  mutex so one process never interleaves two calls.

ERROR HANDLING:
  Outcome codes map to HTTP status:
  - 400: argument count, invalid argument, codec, unknown function
  - 404: referenced order not found
  - 409: duplicate natural id
  - 422: invariant violation (refund ceiling, corrupt history)
  - 500: store access, internal

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/trade-ledger/ledger"
)

// TxIDHeader carries a caller-chosen transaction id.
const TxIDHeader = "X-Tx-ID"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	dispatcher *ledger.Dispatcher
	logger     *zap.Logger

	// mu serializes invocations
	mu sync.Mutex
}

// NewHandler creates a handler over dispatcher.
func NewHandler(dispatcher *ledger.Dispatcher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{dispatcher: dispatcher, logger: logger}
}

// =============================================================================
// INVOCATION HANDLERS
// =============================================================================

// Init runs the one-time init function.
// POST /api/init
func (h *Handler) Init(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeInvoke(w, r)
	if !ok {
		return
	}
	if req.Function == "" {
		req.Function = ledger.FnInit
	}

	txID := txIDFrom(r)
	h.mu.Lock()
	out := h.dispatcher.Init(r.Context(), req.Function, req.Args)
	h.mu.Unlock()

	h.respond(w, txID, req.Function, out)
}

// Invoke runs one catalog function.
// POST /api/invoke
func (h *Handler) Invoke(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeInvoke(w, r)
	if !ok {
		return
	}

	txID := txIDFrom(r)
	h.mu.Lock()
	out := h.dispatcher.Handle(r.Context(), req.Function, req.Args)
	h.mu.Unlock()

	h.respond(w, txID, req.Function, out)
}

// =============================================================================
// QUERY HANDLERS
// =============================================================================

// GetRecord returns the value stored under a full ledger key.
// GET /api/records/{key}
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if strings.TrimSpace(key) == "" {
		writeError(w, http.StatusBadRequest, "key is required", nil)
		return
	}

	value, found, err := h.dispatcher.Engine().Lookup(r.Context(), key)
	if err != nil {
		h.logger.Error("record lookup failed", zap.String("key", key), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to read record", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Record not found", nil)
		return
	}

	raw := json.RawMessage(value)
	if !json.Valid(value) {
		raw, _ = json.Marshal(string(value))
	}
	writeJSON(w, http.StatusOK, RecordDTO{Key: key, Value: raw})
}

// GetRefunds returns the refunds already committed for an order.
// GET /api/orders/{id}/refunds
func (h *Handler) GetRefunds(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	h.mu.Lock()
	totals, err := h.dispatcher.Engine().Refunds(r.Context(), orderID)
	h.mu.Unlock()

	if err != nil {
		code := ledger.CodeOf(err)
		writeJSON(w, statusFor(code), ErrorResponse{
			Error:   "Failed to aggregate refunds",
			Code:    string(code),
			Details: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, toRefundTotalsDTO(orderID, totals))
}

// Health reports liveness.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) respond(w http.ResponseWriter, txID, function string, out ledger.Outcome) {
	h.logger.Info("invocation",
		zap.String("tx_id", txID),
		zap.String("function", function),
		zap.String("status", string(out.Status)),
		zap.String("code", string(out.Code)),
	)
	status := http.StatusOK
	if !out.OK() {
		status = statusFor(out.Code)
	}
	writeJSON(w, status, toInvokeResponse(txID, out))
}

func decodeInvoke(w http.ResponseWriter, r *http.Request) (InvokeRequest, bool) {
	var req InvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return InvokeRequest{}, false
	}
	if req.Args == nil {
		req.Args = []string{}
	}
	return req, true
}

func txIDFrom(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(TxIDHeader)); id != "" {
		return id
	}
	return uuid.NewString()
}

// statusFor maps an outcome code to an HTTP status.
func statusFor(code ledger.Code) int {
	switch code {
	case ledger.CodeArgumentCount, ledger.CodeInvalidArgument, ledger.CodeCodec, ledger.CodeUnknownFunction:
		return http.StatusBadRequest
	case ledger.CodeReferenceNotFound:
		return http.StatusNotFound
	case ledger.CodeDuplicateID:
		return http.StatusConflict
	case ledger.CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
