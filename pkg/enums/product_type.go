package enums

import "fmt"

// ProductType identifies what a purchase order buys.
type ProductType string

const (
	ProductTypeAirtime ProductType = "airtime"
	ProductTypeData    ProductType = "data"
	ProductTypeBill    ProductType = "bill"
)

var validProductTypes = []ProductType{
	ProductTypeAirtime,
	ProductTypeData,
	ProductTypeBill,
}

// IsValid reports whether the value matches a known product type.
func (p ProductType) IsValid() bool {
	for _, candidate := range validProductTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// LedgerTxType returns the ledger transaction type used when debiting for this product.
func (p ProductType) LedgerTxType() (TxType, error) {
	switch p {
	case ProductTypeAirtime:
		return TxTypeAirtime, nil
	case ProductTypeData:
		return TxTypeData, nil
	case ProductTypeBill:
		return TxTypeBill, nil
	}
	return "", fmt.Errorf("invalid product type %q", p)
}

// ParseProductType converts raw input into ProductType.
func ParseProductType(value string) (ProductType, error) {
	for _, candidate := range validProductTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product type %q", value)
}
