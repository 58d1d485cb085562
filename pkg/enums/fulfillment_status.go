package enums

import "fmt"

// FulfillmentStatus is the normalized outcome reported by a fulfillment provider.
type FulfillmentStatus string

const (
	FulfillmentStatusSuccess FulfillmentStatus = "SUCCESS"
	FulfillmentStatusPending FulfillmentStatus = "PENDING"
	FulfillmentStatusFailed  FulfillmentStatus = "FAILED"
)

var validFulfillmentStatuses = []FulfillmentStatus{
	FulfillmentStatusSuccess,
	FulfillmentStatusPending,
	FulfillmentStatusFailed,
}

// IsValid reports whether the value matches a known fulfillment status.
func (s FulfillmentStatus) IsValid() bool {
	for _, candidate := range validFulfillmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseFulfillmentStatus converts raw input into FulfillmentStatus.
func ParseFulfillmentStatus(value string) (FulfillmentStatus, error) {
	for _, candidate := range validFulfillmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfillment status %q", value)
}
