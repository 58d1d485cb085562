package enums

// FundingEventStatus tracks ingestion of an incoming payment notification.
type FundingEventStatus string

const (
	FundingEventStatusReceived  FundingEventStatus = "RECEIVED"
	FundingEventStatusProcessed FundingEventStatus = "PROCESSED"
	FundingEventStatusFailed    FundingEventStatus = "FAILED"
)

// IsValid reports whether the value matches a known funding event status.
func (s FundingEventStatus) IsValid() bool {
	switch s {
	case FundingEventStatusReceived, FundingEventStatusProcessed, FundingEventStatusFailed:
		return true
	}
	return false
}
