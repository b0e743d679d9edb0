package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/trade-ledger/ledger"
)

func TestJSONCodec_RoundTrip(t *testing.T) {
	codec := ledger.JSONCodec{}

	records := []ledger.Record{
		ledger.RechargeRecord{RechargeID: "C1", MerchantID: "M1", Points: "500", Timestamp: "t0"},
		ledger.TransferRecord{TransferID: "T1", MerchantID: "M1", UserID: "U1", Points: "20", Timestamp: "t1"},
		ledger.OrderPayRecord{OrderID: "O1", MerchantID: "M1", UserID: "U1", Points: "100", Cash: "50", Timestamp: "t2"},
		ledger.OrderRefundRecord{RefundID: "R1", OrderID: "O1", MerchantID: "M1", UserID: "U1", Points: "40", Cash: "20", Timestamp: "t3"},
		ledger.WithdrawRecord{WithdrawID: "W1", UserID: "U1", Points: "10", Rate: "0.1", Cash: "1", Timestamp: "t4"},
		ledger.RechargeRecord{RechargeID: "C2"},
		ledger.OrderRefundRecord{RefundID: "R2", OrderID: "O1", Timestamp: `quote " and \ slash`},
		ledger.MetadataRecord{Blob: "any bytes {not json"},
		ledger.MetadataRecord{},
	}

	for _, rec := range records {
		data, err := codec.Encode(rec)
		require.NoError(t, err, "%#v", rec)

		got, err := codec.Decode(data, rec.Kind())
		require.NoError(t, err, "%s", data)
		assert.Equal(t, rec, got)
	}
}

func TestJSONCodec_CanonicalFieldNames(t *testing.T) {
	data, err := ledger.JSONCodec{}.Encode(ledger.WithdrawRecord{
		WithdrawID: "W1", UserID: "U1", Points: "10", Rate: "0.1", Cash: "1", Timestamp: "t4",
	})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"withdraw_id":"W1","user_id":"U1","points":"10","rate":"0.1","cash":"1","timestamp":"t4"}`,
		string(data))
}

func TestJSONCodec_DecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: ``},
		{name: "null", data: `null`},
		{name: "not json", data: `recharge`},
		{name: "truncated", data: `{"recharge_id":"C1"`},
		{name: "array", data: `["C1","M1","1","t0"]`},
		{name: "missing field", data: `{"recharge_id":"C1","merchant_id":"M1","points":"1"}`},
		{name: "unknown field", data: `{"recharge_id":"C1","merchant_id":"M1","points":"1","timestamp":"t0","extra":"x"}`},
		{name: "null field", data: `{"recharge_id":"C1","merchant_id":null,"points":"1","timestamp":"t0"}`},
		{name: "number field", data: `{"recharge_id":"C1","merchant_id":"M1","points":1,"timestamp":"t0"}`},
		{name: "trailing data", data: `{"recharge_id":"C1","merchant_id":"M1","points":"1","timestamp":"t0"} {}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.JSONCodec{}.Decode([]byte(tt.data), ledger.KindRecharge)
			var ce *ledger.CodecError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, ledger.KindRecharge, ce.Record)
			assert.ErrorIs(t, err, ledger.ErrCodec)
		})
	}
}

func TestJSONCodec_UnknownKind(t *testing.T) {
	_, err := ledger.JSONCodec{}.Decode([]byte(`{}`), ledger.Kind("bogus"))
	assert.ErrorIs(t, err, ledger.ErrUnknownKind)

	_, err = ledger.JSONCodec{}.Encode(nil)
	assert.ErrorIs(t, err, ledger.ErrCodec)
}

func TestJSONCodec_EncodeNilPointer(t *testing.T) {
	codec := ledger.JSONCodec{}

	for _, rec := range []ledger.Record{(*ledger.MetadataRecord)(nil), (*ledger.OrderPayRecord)(nil)} {
		assert.NotPanics(t, func() {
			_, err := codec.Encode(rec)
			assert.ErrorIs(t, err, ledger.ErrCodec)
		})
	}
}

func TestJSONCodec_EncodeRejectsInvalidUTF8(t *testing.T) {
	// GIVEN: A record whose merchant_id holds a byte that is not UTF-8
	// WHEN: It is encoded
	// THEN: CodecError naming the field, instead of a silently rewritten value

	codec := ledger.JSONCodec{}
	rec := ledger.OrderPayRecord{OrderID: "O1", MerchantID: "M\xff1", UserID: "U1", Points: "100", Cash: "50", Timestamp: "t0"}

	_, err := codec.Encode(rec)
	var ce *ledger.CodecError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ledger.KindOrderPay, ce.Record)
	assert.Contains(t, err.Error(), "merchant_id")

	rec.MerchantID = "M\u00e91"
	data, err := codec.Encode(rec)
	require.NoError(t, err)
	back, err := codec.Decode(data, ledger.KindOrderPay)
	require.NoError(t, err)
	assert.Equal(t, rec, back)

	blob, err := codec.Encode(ledger.MetadataRecord{Blob: "\xff\xfe"})
	require.NoError(t, err)
	assert.Equal(t, []byte("\xff\xfe"), blob, "metadata is stored verbatim")
}
