/*
Package ledger provides the transaction-recording engine.

PURPOSE:
  Records point and cash movements (recharges, transfers, order payments,
  order refunds, withdrawals) as immutable entries in a host key-value
  store. The engine never computes balances; it only validates each
  operation and writes exactly one record for it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Kind: The record family an entry belongs to
  - Record: A typed, immutable ledger entry
  - Function names and their argument counts

INVARIANTS:
  1. Immutability: A committed record is never updated or deleted
  2. Idempotency: A natural ID is committed at most once per family
  3. Refund ceiling: Refunds for an order never exceed the order amount

AMOUNTS:
  All amount fields travel as text, exactly as supplied by the caller.
  They are only parsed when the refund ceiling needs arithmetic.

SEE ALSO:
  - keys.go: Storage key construction
  - codec.go: Record encoding
  - engine.go: Operation handlers
  - dispatcher.go: Function routing
*/
package ledger

// =============================================================================
// RECORD KINDS
// =============================================================================

// Kind identifies a record family.
type Kind string

const (
	KindRecharge    Kind = "recharge"
	KindTransfer    Kind = "transfer"
	KindOrderPay    Kind = "order_pay"
	KindOrderRefund Kind = "order_refund"
	KindWithdraw    Kind = "withdraw"
	KindMetadata    Kind = "metadata"
)

func (k Kind) String() string { return string(k) }

// Record is an immutable ledger entry.
type Record interface {
	// Kind returns the record family.
	Kind() Kind
	// NaturalID returns the caller-supplied identifier used for keying.
	NaturalID() string
}

// =============================================================================
// RECORDS - Canonical schema, one struct per kind
// =============================================================================

// RechargeRecord credits points to a merchant.
type RechargeRecord struct {
	RechargeID string `json:"recharge_id"`
	MerchantID string `json:"merchant_id"`
	Points     string `json:"points"`
	Timestamp  string `json:"timestamp"`
}

func (RechargeRecord) Kind() Kind          { return KindRecharge }
func (r RechargeRecord) NaturalID() string { return r.RechargeID }

// TransferRecord moves points from a merchant to a user.
type TransferRecord struct {
	TransferID string `json:"transfer_id"`
	MerchantID string `json:"merchant_id"`
	UserID     string `json:"user_id"`
	Points     string `json:"points"`
	Timestamp  string `json:"timestamp"`
}

func (TransferRecord) Kind() Kind          { return KindTransfer }
func (r TransferRecord) NaturalID() string { return r.TransferID }

// OrderPayRecord is a user paying a merchant with points and cash.
// It is the authoritative refund ceiling for its order.
type OrderPayRecord struct {
	OrderID    string `json:"order_id"`
	MerchantID string `json:"merchant_id"`
	UserID     string `json:"user_id"`
	Points     string `json:"points"`
	Cash       string `json:"cash"`
	Timestamp  string `json:"timestamp"`
}

func (OrderPayRecord) Kind() Kind          { return KindOrderPay }
func (r OrderPayRecord) NaturalID() string { return r.OrderID }

// OrderRefundRecord returns part of an order. OrderID references an
// OrderPayRecord.
type OrderRefundRecord struct {
	RefundID   string `json:"refund_id"`
	OrderID    string `json:"order_id"`
	MerchantID string `json:"merchant_id"`
	UserID     string `json:"user_id"`
	Points     string `json:"points"`
	Cash       string `json:"cash"`
	Timestamp  string `json:"timestamp"`
}

func (OrderRefundRecord) Kind() Kind          { return KindOrderRefund }
func (r OrderRefundRecord) NaturalID() string { return r.RefundID }

// WithdrawRecord converts user points to cash at the given rate.
type WithdrawRecord struct {
	WithdrawID string `json:"withdraw_id"`
	UserID     string `json:"user_id"`
	Points     string `json:"points"`
	Rate       string `json:"rate"`
	Cash       string `json:"cash"`
	Timestamp  string `json:"timestamp"`
}

func (WithdrawRecord) Kind() Kind          { return KindWithdraw }
func (r WithdrawRecord) NaturalID() string { return r.WithdrawID }

// MetadataRecord is the singleton written by init. Blob is opaque.
type MetadataRecord struct {
	Blob string
}

func (MetadataRecord) Kind() Kind        { return KindMetadata }
func (MetadataRecord) NaturalID() string { return "" }

// =============================================================================
// FUNCTIONS - Operation catalog
// =============================================================================

// Function names accepted by the dispatcher.
const (
	FnInit        = "init"
	FnRecharge    = "recharge"
	FnTransfer    = "transfer"
	FnOrderPay    = "orderPay"
	FnOrderRefund = "orderRefund"
	FnWithdraw    = "withdraw"
	FnTest        = "test"
)

// arity is the number of positional arguments each function requires.
var arity = map[string]int{
	FnInit:        1,
	FnRecharge:    4,
	FnTransfer:    5,
	FnOrderPay:    6,
	FnOrderRefund: 7,
	FnWithdraw:    6,
	FnTest:        0,
}

// Arity returns the required argument count for a function.
func Arity(function string) (int, bool) {
	n, ok := arity[function]
	return n, ok
}

func checkArity(function string, args []string) error {
	want := arity[function]
	if len(args) != want {
		return &ArgumentCountError{Function: function, Want: want, Got: len(args)}
	}
	return nil
}
