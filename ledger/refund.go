/*
refund.go - Refund aggregation and the refund ceiling

PURPOSE:
  An order may be refunded in several parts. The sum of all parts must
  never exceed what was paid, in points and in cash. There is no stored
  running total: the refunded amount is recomputed from the refund
  records on every new refund.

ALGORITHM:
  1. Scan every key under ORDERREFUND_ (no secondary index by order)
  2. Decode each record; keep those whose order_id matches
  3. Sum points and cash

  The sum is commutative, so the result does not depend on scan order.
  Cost is linear in the number of refunds ever committed.

FAIL CLOSED:
  A refund record that cannot be decoded, or whose amounts are not
  integers, makes the aggregate unknown. Skipping it would silently raise
  the ceiling, so aggregation fails with InvariantViolationError instead.

CEILING POLICY:
  CeilingStrict rejects a refund when EITHER points or cash would exceed
  the order. CeilingLegacy rejects only when BOTH would, matching the rule
  deployed ledgers were written under. A legacy ledger may hold refunds
  that exceed the order in one dimension; switching such a ledger to
  strict makes every further refund of those orders fail.

SEE ALSO:
  - engine.go: OrderRefund handler
*/
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// AGGREGATION
// =============================================================================

// RefundTotals is what has already been refunded for one order.
type RefundTotals struct {
	Points decimal.Decimal
	Cash   decimal.Decimal
	Count  int
}

// RefundAggregator sums existing refunds per order.
type RefundAggregator struct {
	store  Store
	codec  Codec
	logger *zap.Logger
}

// NewRefundAggregator creates an aggregator over store.
func NewRefundAggregator(store Store, codec Codec, logger *zap.Logger) *RefundAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefundAggregator{store: store, codec: codec, logger: logger}
}

// Aggregate returns the points and cash already refunded for orderID.
func (a *RefundAggregator) Aggregate(ctx context.Context, orderID string) (RefundTotals, error) {
	totals := RefundTotals{Points: decimal.Zero, Cash: decimal.Zero}
	prefix := string(FamilyOrderRefund)

	var violation error
	err := a.store.ScanPrefix(ctx, prefix, func(key string, value []byte) error {
		rec, err := a.codec.Decode(value, KindOrderRefund)
		if err != nil {
			var ce *CodecError
			if errors.As(err, &ce) && ce.Key == "" {
				ce.Key = key
			}
			violation = &InvariantViolationError{OrderID: orderID, Reason: "unreadable refund record", Err: err}
			return violation
		}
		refund := rec.(OrderRefundRecord)
		if refund.OrderID != orderID {
			return nil
		}
		points, err := ParseAmount(refund.Points)
		if err != nil {
			violation = &InvariantViolationError{OrderID: orderID, Reason: fmt.Sprintf("refund %s has invalid points %q", key, refund.Points), Err: err}
			return violation
		}
		cash, err := ParseAmount(refund.Cash)
		if err != nil {
			violation = &InvariantViolationError{OrderID: orderID, Reason: fmt.Sprintf("refund %s has invalid cash %q", key, refund.Cash), Err: err}
			return violation
		}
		totals.Points = totals.Points.Add(points)
		totals.Cash = totals.Cash.Add(cash)
		totals.Count++
		return nil
	})
	if violation != nil {
		return RefundTotals{}, violation
	}
	if err != nil {
		return RefundTotals{}, storeErr("scan", prefix, err)
	}

	a.logger.Debug("refunds aggregated",
		zap.String("order_id", orderID),
		zap.Int("count", totals.Count),
		zap.Stringer("points", totals.Points),
		zap.Stringer("cash", totals.Cash),
	)
	return totals, nil
}

// =============================================================================
// CEILING POLICY
// =============================================================================

// CeilingPolicy decides which overflow rejects a refund.
type CeilingPolicy string

const (
	// CeilingStrict rejects if either points or cash would exceed the order.
	CeilingStrict CeilingPolicy = "strict"
	// CeilingLegacy rejects only if both points and cash would exceed the order.
	CeilingLegacy CeilingPolicy = "legacy"
)

// ParseCeilingPolicy validates a policy name. Empty selects CeilingStrict.
func ParseCeilingPolicy(s string) (CeilingPolicy, error) {
	switch CeilingPolicy(s) {
	case "", CeilingStrict:
		return CeilingStrict, nil
	case CeilingLegacy:
		return CeilingLegacy, nil
	}
	return "", fmt.Errorf("unknown refund ceiling policy %q", s)
}

// Rejects reports whether the given overflows refuse the refund.
func (p CeilingPolicy) Rejects(pointsOver, cashOver bool) bool {
	if p == CeilingLegacy {
		return pointsOver && cashOver
	}
	return pointsOver || cashOver
}

// CheckCeiling verifies that totals plus the new refund stay within order.
func CheckCeiling(policy CeilingPolicy, order OrderPayRecord, totals RefundTotals, points, cash decimal.Decimal) error {
	orderPoints, err := ParseAmount(order.Points)
	if err != nil {
		return &InvariantViolationError{OrderID: order.OrderID, Reason: fmt.Sprintf("order has invalid points %q", order.Points), Err: err}
	}
	orderCash, err := ParseAmount(order.Cash)
	if err != nil {
		return &InvariantViolationError{OrderID: order.OrderID, Reason: fmt.Sprintf("order has invalid cash %q", order.Cash), Err: err}
	}

	totalPoints := totals.Points.Add(points)
	totalCash := totals.Cash.Add(cash)
	pointsOver := totalPoints.GreaterThan(orderPoints)
	cashOver := totalCash.GreaterThan(orderCash)

	if policy.Rejects(pointsOver, cashOver) {
		reason := fmt.Sprintf("Points or cash overflow: points %s of %s, cash %s of %s",
			totalPoints, orderPoints, totalCash, orderCash)
		return &InvariantViolationError{OrderID: order.OrderID, Reason: reason}
	}
	return nil
}
