package enums

import "fmt"

// TxType classifies why a ledger entry was posted.
type TxType string

const (
	TxTypeFunding       TxType = "FUNDING"
	TxTypeAirtime       TxType = "AIRTIME"
	TxTypeData          TxType = "DATA"
	TxTypeBill          TxType = "BILL"
	TxTypeReferralBonus TxType = "REFERRAL_BONUS"
	TxTypeReversal      TxType = "REVERSAL"
)

var validTxTypes = []TxType{
	TxTypeFunding,
	TxTypeAirtime,
	TxTypeData,
	TxTypeBill,
	TxTypeReferralBonus,
	TxTypeReversal,
}

// String implements fmt.Stringer.
func (t TxType) String() string {
	return string(t)
}

// IsValid reports whether the value matches a known transaction type.
func (t TxType) IsValid() bool {
	for _, candidate := range validTxTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTxType converts raw input into TxType.
func ParseTxType(value string) (TxType, error) {
	for _, candidate := range validTxTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tx type %q", value)
}
