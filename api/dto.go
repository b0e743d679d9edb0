/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON shapes of the HTTP host adapter. Arguments stay positional strings,
  exactly as the host ledger would pass them.

TYPES:
  InvokeRequest   body of POST /api/init and POST /api/invoke
  InvokeResponse  outcome of one call, tagged with its transaction id
  RecordDTO       raw stored record under one key
  RefundTotalsDTO aggregated refunds of one order
  ErrorResponse   transport-level failures (bad JSON, missing key)

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"encoding/json"

	"github.com/warp/trade-ledger/ledger"
)

// InvokeRequest names a catalog function and its positional arguments.
type InvokeRequest struct {
	Function string   `json:"function"`
	Args     []string `json:"args"`
}

// InvokeResponse is the Outcome of one call.
type InvokeResponse struct {
	TxID    string `json:"tx_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Payload string `json:"payload,omitempty"`
	Code    string `json:"code,omitempty"`
}

// RecordDTO is one stored record. Value is the stored JSON when it parses,
// otherwise the raw bytes as a JSON string.
type RecordDTO struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// RefundTotalsDTO is what has already been refunded for one order.
type RefundTotalsDTO struct {
	OrderID string `json:"order_id"`
	Points  string `json:"points"`
	Cash    string `json:"cash"`
	Count   int    `json:"count"`
}

// ErrorResponse is returned for failures outside the dispatcher.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func toInvokeResponse(txID string, out ledger.Outcome) InvokeResponse {
	return InvokeResponse{
		TxID:    txID,
		Status:  string(out.Status),
		Message: out.Message,
		Payload: string(out.Payload),
		Code:    string(out.Code),
	}
}

func toRefundTotalsDTO(orderID string, t ledger.RefundTotals) RefundTotalsDTO {
	return RefundTotalsDTO{
		OrderID: orderID,
		Points:  t.Points.String(),
		Cash:    t.Cash.String(),
		Count:   t.Count,
	}
}
