/*
engine.go - Operation handlers

PURPOSE:
  One handler per catalog function. Handlers take the raw positional
  argument list, validate it, and write exactly one record.

HANDLER SEQUENCE:
  1. Arity and UTF-8 check (no I/O)
  2. Build own key, duplicate guard (one Get)
  3. orderRefund only: amount parse, order lookup, refund aggregation,
     ceiling check
  4. Encode and Put (the only write, always last)
  5. Return the confirmation message

  Any failure returns before step 4, so an error never leaves a partial
  write behind. Handlers never retry.

CONCURRENCY:
  The engine holds no locks. Two refunds for the same order are only safe
  if the host serializes them; see api.Handler for the HTTP host.

SEE ALSO:
  - dispatcher.go: Routes function names to these handlers
  - refund.go: Aggregation and ceiling rules
*/
package ledger

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Engine validates and records ledger operations against a Store.
type Engine struct {
	store   Store
	codec   Codec
	guard   *Guard
	refunds *RefundAggregator
	policy  CeilingPolicy
	logger  *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCodec replaces the default JSONCodec.
func WithCodec(c Codec) Option {
	return func(e *Engine) {
		e.codec = c
	}
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithCeilingPolicy selects the refund ceiling rule. Default CeilingStrict.
func WithCeilingPolicy(p CeilingPolicy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// NewEngine creates an engine over store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		codec:  JSONCodec{},
		policy: CeilingStrict,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	e.guard = NewGuard(store)
	e.refunds = NewRefundAggregator(store, e.codec, e.logger)
	return e
}

// Policy returns the refund ceiling rule in effect.
func (e *Engine) Policy() CeilingPolicy { return e.policy }

// idFields names the natural ID argument of each function.
var idFields = map[string]string{
	FnRecharge:    "recharge_id",
	FnTransfer:    "transfer_id",
	FnOrderPay:    "order_id",
	FnOrderRefund: "refund_id",
	FnWithdraw:    "withdraw_id",
}

// recordKinds maps each record function to the family it writes.
var recordKinds = map[string]Kind{
	FnRecharge:    KindRecharge,
	FnTransfer:    KindTransfer,
	FnOrderPay:    KindOrderPay,
	FnOrderRefund: KindOrderRefund,
	FnWithdraw:    KindWithdraw,
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Init writes the metadata blob under MetadataKey, replacing any previous
// value. It requires exactly one argument.
func (e *Engine) Init(ctx context.Context, args []string) (string, error) {
	if err := checkArity(FnInit, args); err != nil {
		return "", err
	}
	if err := e.commit(ctx, FnInit, MetadataKey, MetadataRecord{Blob: args[0]}); err != nil {
		return "", err
	}
	return "init success.", nil
}

// =============================================================================
// HANDLERS
// =============================================================================

// Recharge records recharge_id, merchant_id, points, timestamp.
func (e *Engine) Recharge(ctx context.Context, args []string) (string, error) {
	if err := checkArgs(FnRecharge, args); err != nil {
		return "", err
	}
	rec := RechargeRecord{
		RechargeID: args[0],
		MerchantID: args[1],
		Points:     args[2],
		Timestamp:  args[3],
	}
	return e.record(ctx, FnRecharge, rec)
}

// Transfer records transfer_id, merchant_id, user_id, points, timestamp.
func (e *Engine) Transfer(ctx context.Context, args []string) (string, error) {
	if err := checkArgs(FnTransfer, args); err != nil {
		return "", err
	}
	rec := TransferRecord{
		TransferID: args[0],
		MerchantID: args[1],
		UserID:     args[2],
		Points:     args[3],
		Timestamp:  args[4],
	}
	return e.record(ctx, FnTransfer, rec)
}

// OrderPay records order_id, merchant_id, user_id, points, cash, timestamp.
func (e *Engine) OrderPay(ctx context.Context, args []string) (string, error) {
	if err := checkArgs(FnOrderPay, args); err != nil {
		return "", err
	}
	rec := OrderPayRecord{
		OrderID:    args[0],
		MerchantID: args[1],
		UserID:     args[2],
		Points:     args[3],
		Cash:       args[4],
		Timestamp:  args[5],
	}
	return e.record(ctx, FnOrderPay, rec)
}

// Withdraw records withdraw_id, user_id, points, rate, cash, timestamp.
func (e *Engine) Withdraw(ctx context.Context, args []string) (string, error) {
	if err := checkArgs(FnWithdraw, args); err != nil {
		return "", err
	}
	rec := WithdrawRecord{
		WithdrawID: args[0],
		UserID:     args[1],
		Points:     args[2],
		Rate:       args[3],
		Cash:       args[4],
		Timestamp:  args[5],
	}
	return e.record(ctx, FnWithdraw, rec)
}

// OrderRefund records refund_id, order_id, merchant_id, user_id, points,
// cash, timestamp after checking that the order exists and that the new
// refund keeps the order within its ceiling.
func (e *Engine) OrderRefund(ctx context.Context, args []string) (string, error) {
	if err := checkArgs(FnOrderRefund, args); err != nil {
		return "", err
	}
	rec := OrderRefundRecord{
		RefundID:   args[0],
		OrderID:    args[1],
		MerchantID: args[2],
		UserID:     args[3],
		Points:     args[4],
		Cash:       args[5],
		Timestamp:  args[6],
	}

	key, err := e.claim(ctx, FnOrderRefund, rec)
	if err != nil {
		return "", err
	}

	points, err := ParseAmount(rec.Points)
	if err != nil {
		return "", invalidArg(FnOrderRefund, "points", rec.Points, err)
	}
	cash, err := ParseAmount(rec.Cash)
	if err != nil {
		return "", invalidArg(FnOrderRefund, "cash", rec.Cash, err)
	}

	order, err := e.loadOrder(ctx, rec.OrderID)
	if err != nil {
		return "", err
	}
	if err := e.checkRefund(ctx, order, points, cash); err != nil {
		return "", err
	}

	if err := e.commit(ctx, FnOrderRefund, key, rec); err != nil {
		return "", err
	}
	return successMessage(FnOrderRefund), nil
}

// Refunds returns the totals already refunded for orderID.
func (e *Engine) Refunds(ctx context.Context, orderID string) (RefundTotals, error) {
	return e.refunds.Aggregate(ctx, orderID)
}

// Lookup returns the raw value under a full ledger key. An empty stored
// value is reported as absent.
func (e *Engine) Lookup(ctx context.Context, key string) ([]byte, bool, error) {
	value, found, err := e.store.Get(ctx, key)
	if err != nil {
		return nil, false, storeErr("get", key, err)
	}
	if !found || len(value) == 0 {
		return nil, false, nil
	}
	return value, true, nil
}

// =============================================================================
// INTERNALS
// =============================================================================

func (e *Engine) record(ctx context.Context, function string, rec Record) (string, error) {
	key, err := e.claim(ctx, function, rec)
	if err != nil {
		return "", err
	}
	if err := e.commit(ctx, function, key, rec); err != nil {
		return "", err
	}
	return successMessage(function), nil
}

// claim builds the record key and runs the duplicate guard on it.
func (e *Engine) claim(ctx context.Context, function string, rec Record) (string, error) {
	key, err := KeyOf(rec)
	if errors.Is(err, ErrEmptyID) {
		return "", invalidArg(function, idFields[function], "", err)
	}
	if err != nil {
		return "", err
	}
	if err := e.guard.EnsureAbsent(ctx, key); err != nil {
		e.logger.Info("duplicate rejected", zap.String("function", function), zap.String("key", key))
		return "", err
	}
	return key, nil
}

// commit encodes rec and issues the single Put.
func (e *Engine) commit(ctx context.Context, function, key string, rec Record) error {
	data, err := e.codec.Encode(rec)
	if err != nil {
		return err
	}
	if err := e.store.Put(ctx, key, data); err != nil {
		return storeErr("put", key, err)
	}
	e.logger.Info(function+" success", zap.String("key", key))
	e.logger.Debug("record written", zap.String("key", key), zap.ByteString("value", data))
	return nil
}

func (e *Engine) loadOrder(ctx context.Context, orderID string) (OrderPayRecord, error) {
	orderKey, err := BuildKey(FamilyOrderPay, orderID)
	if err != nil {
		return OrderPayRecord{}, invalidArg(FnOrderRefund, "order_id", orderID, err)
	}
	value, found, err := e.store.Get(ctx, orderKey)
	if err != nil {
		return OrderPayRecord{}, storeErr("get", orderKey, err)
	}
	if !found || len(value) == 0 {
		return OrderPayRecord{}, &ReferenceNotFoundError{Key: orderKey, OrderID: orderID}
	}
	rec, err := e.codec.Decode(value, KindOrderPay)
	if err != nil {
		var ce *CodecError
		if errors.As(err, &ce) && ce.Key == "" {
			ce.Key = orderKey
		}
		return OrderPayRecord{}, &InvariantViolationError{OrderID: orderID, Reason: "unreadable order record", Err: err}
	}
	return rec.(OrderPayRecord), nil
}

func (e *Engine) checkRefund(ctx context.Context, order OrderPayRecord, points, cash decimal.Decimal) error {
	totals, err := e.refunds.Aggregate(ctx, order.OrderID)
	if err != nil {
		return err
	}
	e.logger.Info("refund ceiling check",
		zap.String("order_id", order.OrderID),
		zap.String("order_points", order.Points),
		zap.Stringer("total_points", totals.Points.Add(points)),
		zap.String("order_cash", order.Cash),
		zap.Stringer("total_cash", totals.Cash.Add(cash)),
		zap.String("policy", string(e.policy)),
	)
	return CheckCeiling(e.policy, order, totals, points, cash)
}

// checkArgs runs the arity check and rejects any argument that is not valid
// UTF-8, before the store is touched.
func checkArgs(function string, args []string) error {
	if err := checkArity(function, args); err != nil {
		return err
	}
	fields := schemas[recordKinds[function]].fields
	for i, arg := range args {
		if !utf8.ValidString(arg) {
			return invalidArg(function, fields[i], arg, errInvalidUTF8)
		}
	}
	return nil
}

func invalidArg(function, field, value string, err error) error {
	return &InvalidArgumentError{Function: function, Field: field, Value: value, Reason: err.Error()}
}

func successMessage(function string) string {
	return function + " finished successfully"
}
