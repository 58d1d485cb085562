package enums

import "fmt"

// EntryStatus is the terminal or in-flight state recorded on a ledger entry.
type EntryStatus string

const (
	EntryStatusPending  EntryStatus = "PENDING"
	EntryStatusSuccess  EntryStatus = "SUCCESS"
	EntryStatusFailed   EntryStatus = "FAILED"
	EntryStatusReversed EntryStatus = "REVERSED"
)

var validEntryStatuses = []EntryStatus{
	EntryStatusPending,
	EntryStatusSuccess,
	EntryStatusFailed,
	EntryStatusReversed,
}

// String implements fmt.Stringer.
func (s EntryStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches a known entry status.
func (s EntryStatus) IsValid() bool {
	for _, candidate := range validEntryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseEntryStatus converts raw input into EntryStatus.
func ParseEntryStatus(value string) (EntryStatus, error) {
	for _, candidate := range validEntryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entry status %q", value)
}
