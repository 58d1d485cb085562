package enums

import "fmt"

// PurchaseStatus tracks a purchase order through fulfillment.
type PurchaseStatus string

const (
	PurchaseStatusPending PurchaseStatus = "pending"
	PurchaseStatusSuccess PurchaseStatus = "success"
	PurchaseStatusFailed  PurchaseStatus = "failed"
)

var validPurchaseStatuses = []PurchaseStatus{
	PurchaseStatusPending,
	PurchaseStatusSuccess,
	PurchaseStatusFailed,
}

// IsValid reports whether the value matches a known purchase status.
func (s PurchaseStatus) IsValid() bool {
	for _, candidate := range validPurchaseStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s PurchaseStatus) IsTerminal() bool {
	switch s {
	case PurchaseStatusSuccess, PurchaseStatusFailed:
		return true
	case PurchaseStatusPending:
		return false
	}
	return false
}

// ParsePurchaseStatus converts raw input into PurchaseStatus.
func ParsePurchaseStatus(value string) (PurchaseStatus, error) {
	for _, candidate := range validPurchaseStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase status %q", value)
}
