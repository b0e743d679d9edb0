package ledger

import "errors"

// Family is the storage namespace prefix of a record kind.
type Family string

const (
	FamilyRecharge    Family = "RECHARGE_"
	FamilyTransfer    Family = "TRANSFER_"
	FamilyOrderPay    Family = "ORDERPAY_"
	FamilyOrderRefund Family = "ORDERREFUND_"
	FamilyWithdraw    Family = "WITHDRAW_"
)

// MetadataKey is the fixed key of the singleton metadata record.
const MetadataKey = "METADATA"

// ErrEmptyID is returned when a natural ID is empty.
var ErrEmptyID = errors.New("natural id must not be empty")

var families = map[Kind]Family{
	KindRecharge:    FamilyRecharge,
	KindTransfer:    FamilyTransfer,
	KindOrderPay:    FamilyOrderPay,
	KindOrderRefund: FamilyOrderRefund,
	KindWithdraw:    FamilyWithdraw,
}

// FamilyOf returns the namespace of a kind. Metadata has none.
func FamilyOf(kind Kind) (Family, bool) {
	f, ok := families[kind]
	return f, ok
}

// BuildKey returns prefix + naturalID.
func BuildKey(family Family, naturalID string) (string, error) {
	if naturalID == "" {
		return "", ErrEmptyID
	}
	return string(family) + naturalID, nil
}

// KeyOf returns the storage key of a record.
func KeyOf(rec Record) (string, error) {
	if rec.Kind() == KindMetadata {
		return MetadataKey, nil
	}
	family, ok := FamilyOf(rec.Kind())
	if !ok {
		return "", &CodecError{Record: rec.Kind(), Err: ErrUnknownKind}
	}
	return BuildKey(family, rec.NaturalID())
}
