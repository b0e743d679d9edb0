package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode/utf8"
)

// Codec converts records to and from their stored bytes.
// Decode(Encode(r), r.Kind()) must return a value equal to r.
type Codec interface {
	Encode(rec Record) ([]byte, error)
	Decode(data []byte, kind Kind) (Record, error)
}

// JSONCodec stores each record as a flat JSON object of string fields using
// the canonical field names. Metadata is stored verbatim.
//
// Decoding is strict: unknown fields, missing fields, null or non-string
// values, empty input and trailing data are all rejected.
type JSONCodec struct{}

var _ Codec = JSONCodec{}

var (
	errEmptyRecord  = errors.New("empty record")
	errNilRecord    = errors.New("nil record")
	errMissingField = errors.New("missing field")
	errUnknownField = errors.New("unknown field")
	errNullField    = errors.New("null field")
	errInvalidUTF8  = errors.New("not valid UTF-8")
)

// schema lists the JSON fields of a kind and builds the record from them.
type schema struct {
	fields []string
	build  func(f map[string]string) Record
}

var schemas = map[Kind]schema{
	KindRecharge: {
		fields: []string{"recharge_id", "merchant_id", "points", "timestamp"},
		build: func(f map[string]string) Record {
			return RechargeRecord{
				RechargeID: f["recharge_id"],
				MerchantID: f["merchant_id"],
				Points:     f["points"],
				Timestamp:  f["timestamp"],
			}
		},
	},
	KindTransfer: {
		fields: []string{"transfer_id", "merchant_id", "user_id", "points", "timestamp"},
		build: func(f map[string]string) Record {
			return TransferRecord{
				TransferID: f["transfer_id"],
				MerchantID: f["merchant_id"],
				UserID:     f["user_id"],
				Points:     f["points"],
				Timestamp:  f["timestamp"],
			}
		},
	},
	KindOrderPay: {
		fields: []string{"order_id", "merchant_id", "user_id", "points", "cash", "timestamp"},
		build: func(f map[string]string) Record {
			return OrderPayRecord{
				OrderID:    f["order_id"],
				MerchantID: f["merchant_id"],
				UserID:     f["user_id"],
				Points:     f["points"],
				Cash:       f["cash"],
				Timestamp:  f["timestamp"],
			}
		},
	},
	KindOrderRefund: {
		fields: []string{"refund_id", "order_id", "merchant_id", "user_id", "points", "cash", "timestamp"},
		build: func(f map[string]string) Record {
			return OrderRefundRecord{
				RefundID:   f["refund_id"],
				OrderID:    f["order_id"],
				MerchantID: f["merchant_id"],
				UserID:     f["user_id"],
				Points:     f["points"],
				Cash:       f["cash"],
				Timestamp:  f["timestamp"],
			}
		},
	},
	KindWithdraw: {
		fields: []string{"withdraw_id", "user_id", "points", "rate", "cash", "timestamp"},
		build: func(f map[string]string) Record {
			return WithdrawRecord{
				WithdrawID: f["withdraw_id"],
				UserID:     f["user_id"],
				Points:     f["points"],
				Rate:       f["rate"],
				Cash:       f["cash"],
				Timestamp:  f["timestamp"],
			}
		},
	},
}

// Encode returns the stored form of rec.
func (JSONCodec) Encode(rec Record) ([]byte, error) {
	if rec == nil {
		return nil, &CodecError{Err: errNilRecord}
	}
	if v := reflect.ValueOf(rec); v.Kind() == reflect.Pointer && v.IsNil() {
		return nil, &CodecError{Err: errNilRecord}
	}
	switch m := rec.(type) {
	case MetadataRecord:
		return []byte(m.Blob), nil
	case *MetadataRecord:
		return []byte(m.Blob), nil
	}
	if _, ok := schemas[rec.Kind()]; !ok {
		return nil, &CodecError{Record: rec.Kind(), Err: ErrUnknownKind}
	}
	// encoding/json replaces invalid UTF-8 with U+FFFD, which would store
	// something other than rec.
	if err := checkUTF8(rec); err != nil {
		return nil, &CodecError{Record: rec.Kind(), Err: err}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, &CodecError{Record: rec.Kind(), Err: err}
	}
	return data, nil
}

// Decode parses stored bytes as a record of the given kind.
func (JSONCodec) Decode(data []byte, kind Kind) (Record, error) {
	if kind == KindMetadata {
		return MetadataRecord{Blob: string(data)}, nil
	}
	s, ok := schemas[kind]
	if !ok {
		return nil, &CodecError{Record: kind, Err: ErrUnknownKind}
	}
	if len(data) == 0 {
		return nil, &CodecError{Record: kind, Err: errEmptyRecord}
	}

	var raw map[string]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &CodecError{Record: kind, Err: err}
	}
	if raw == nil {
		return nil, &CodecError{Record: kind, Err: errEmptyRecord}
	}

	fields := make(map[string]string, len(s.fields))
	for _, name := range s.fields {
		v, present := raw[name]
		if !present {
			return nil, &CodecError{Record: kind, Err: fmt.Errorf("%w: %s", errMissingField, name)}
		}
		if v == nil {
			return nil, &CodecError{Record: kind, Err: fmt.Errorf("%w: %s", errNullField, name)}
		}
		fields[name] = *v
	}
	if len(raw) != len(s.fields) {
		return nil, &CodecError{Record: kind, Err: fmt.Errorf("%w: %v", errUnknownField, extraFields(raw, s.fields))}
	}
	return s.build(fields), nil
}

// checkUTF8 reports the first string field of rec that is not valid UTF-8.
func checkUTF8(rec Record) error {
	v := reflect.Indirect(reflect.ValueOf(rec))
	if v.Kind() != reflect.Struct {
		return nil
	}
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() == reflect.String && !utf8.ValidString(f.String()) {
			name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
			return fmt.Errorf("%w: %s", errInvalidUTF8, name)
		}
	}
	return nil
}

func extraFields(raw map[string]*string, known []string) []string {
	k := make(map[string]bool, len(known))
	for _, name := range known {
		k[name] = true
	}
	var extra []string
	for name := range raw {
		if !k[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return extra
}
