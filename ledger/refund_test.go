package ledger_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/trade-ledger/ledger"
	"github.com/warp/trade-ledger/ledger/store"
)

// =============================================================================
// AGGREGATION
// =============================================================================

func seedRefunds(t *testing.T, st ledger.Store) {
	t.Helper()
	ctx := context.Background()
	codec := ledger.JSONCodec{}

	for i := 0; i < 20; i++ {
		orderID := "O1"
		if i%3 == 0 {
			orderID = "O2"
		}
		rec := ledger.OrderRefundRecord{
			RefundID: fmt.Sprintf("R%02d", i),
			OrderID:  orderID,
			Points:   fmt.Sprint(i),
			Cash:     fmt.Sprint(2 * i),
		}
		data, err := codec.Encode(rec)
		require.NoError(t, err)
		require.NoError(t, st.Put(ctx, "ORDERREFUND_"+rec.RefundID, data))
	}
	// Keys in other families are never read
	require.NoError(t, st.Put(ctx, "ORDERPAY_O1", []byte("not a refund")))
}

func TestRefundAggregator_OrderIndependent(t *testing.T) {
	base := store.NewMemory()
	seedRefunds(t, base)

	want, err := ledger.NewRefundAggregator(base, ledger.JSONCodec{}, nil).Aggregate(context.Background(), "O1")
	require.NoError(t, err)

	orders := map[string]func([]kv){
		"reversed":  reversed,
		"shuffle 1": shuffled(1),
		"shuffle 2": shuffled(2),
		"shuffle 3": shuffled(3),
	}
	for name, reorder := range orders {
		t.Run(name, func(t *testing.T) {
			mem := store.NewMemory()
			seedRefunds(t, mem)
			st := &orderedStore{Memory: mem, reorder: reorder}

			got, err := ledger.NewRefundAggregator(st, ledger.JSONCodec{}, nil).Aggregate(context.Background(), "O1")
			require.NoError(t, err)
			assert.True(t, want.Points.Equal(got.Points))
			assert.True(t, want.Cash.Equal(got.Cash))
			assert.Equal(t, want.Count, got.Count)
		})
	}

	// O1 holds refunds 1,2,4,5,7,8,10,11,13,14,16,17,19
	assert.Equal(t, 13, want.Count)
	assert.True(t, decimal.NewFromInt(127).Equal(want.Points), "points: %s", want.Points)
	assert.True(t, decimal.NewFromInt(254).Equal(want.Cash), "cash: %s", want.Cash)
}

func TestRefundAggregator_NoRefunds(t *testing.T) {
	totals, err := ledger.NewRefundAggregator(store.NewMemory(), ledger.JSONCodec{}, nil).Aggregate(context.Background(), "O1")
	require.NoError(t, err)
	assert.True(t, totals.Points.IsZero())
	assert.True(t, totals.Cash.IsZero())
	assert.Equal(t, 0, totals.Count)
}

func TestRefundAggregator_BadStoredAmountFailsClosed(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	data, err := ledger.JSONCodec{}.Encode(ledger.OrderRefundRecord{RefundID: "R1", OrderID: "O1", Points: "1.5", Cash: "1"})
	require.NoError(t, err)
	require.NoError(t, st.Put(ctx, "ORDERREFUND_R1", data))

	_, err = ledger.NewRefundAggregator(st, ledger.JSONCodec{}, nil).Aggregate(ctx, "O1")
	var inv *ledger.InvariantViolationError
	require.ErrorAs(t, err, &inv)
	assert.Contains(t, inv.Reason, "invalid points")

	// Other orders are unaffected by the bad record
	_, err = ledger.NewRefundAggregator(st, ledger.JSONCodec{}, nil).Aggregate(ctx, "O2")
	assert.NoError(t, err)
}

// =============================================================================
// CEILING POLICY
// =============================================================================

func TestParseCeilingPolicy(t *testing.T) {
	p, err := ledger.ParseCeilingPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ledger.CeilingStrict, p)

	p, err = ledger.ParseCeilingPolicy("legacy")
	require.NoError(t, err)
	assert.Equal(t, ledger.CeilingLegacy, p)

	_, err = ledger.ParseCeilingPolicy("lenient")
	assert.Error(t, err)
}

func TestCeilingPolicy_Rejects(t *testing.T) {
	assert.False(t, ledger.CeilingStrict.Rejects(false, false))
	assert.True(t, ledger.CeilingStrict.Rejects(true, false))
	assert.True(t, ledger.CeilingStrict.Rejects(false, true))
	assert.True(t, ledger.CeilingStrict.Rejects(true, true))

	assert.False(t, ledger.CeilingLegacy.Rejects(false, false))
	assert.False(t, ledger.CeilingLegacy.Rejects(true, false))
	assert.False(t, ledger.CeilingLegacy.Rejects(false, true))
	assert.True(t, ledger.CeilingLegacy.Rejects(true, true))
}

func TestParseAmount(t *testing.T) {
	for _, s := range []string{"0", "1", "100", "+5", "-0", "007", "999999999999999999999999"} {
		_, err := ledger.ParseAmount(s)
		assert.NoError(t, err, s)
	}
	for _, s := range []string{"", "-1", "0.5", "abc", "1,000", "1e1", "10.0", "+", " 1", "0x10"} {
		_, err := ledger.ParseAmount(s)
		assert.Error(t, err, s)
	}
}
