package vtpass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vtuhub/walletledger/pkg/enums"
)

func TestNormalizeStatuses(t *testing.T) {
	cases := []struct {
		name    string
		payload map[string]any
		status  enums.FulfillmentStatus
		ref     string
		message string
	}{
		{
			name:    "success code",
			payload: map[string]any{"code": "000", "requestId": "REQ-1"},
			status:  enums.FulfillmentStatusSuccess,
			ref:     "REQ-1",
			message: "Provider request processed",
		},
		{
			name:    "delivered state",
			payload: map[string]any{"code": "099", "content": map[string]any{"status": "Delivered", "transactionId": "TX-2"}},
			status:  enums.FulfillmentStatusSuccess,
			ref:     "TX-2",
			message: "Provider request processed",
		},
		{
			name:    "processing description",
			payload: map[string]any{"code": "099", "response_description": "TRANSACTION PROCESSING"},
			status:  enums.FulfillmentStatusPending,
			message: "TRANSACTION PROCESSING",
		},
		{
			name:    "unsuccessful is failure",
			payload: map[string]any{"code": "016", "message": "Transaction unsuccessful"},
			status:  enums.FulfillmentStatusFailed,
			message: "Transaction unsuccessful",
		},
		{
			name:    "numeric transaction id",
			payload: map[string]any{"code": "000", "content": map[string]any{"transactions": map[string]any{"transactionId": float64(17000001)}}},
			status:  enums.FulfillmentStatusSuccess,
			ref:     "17000001",
			message: "Provider request processed",
		},
		{
			name:    "empty payload",
			payload: map[string]any{},
			status:  enums.FulfillmentStatusFailed,
			message: "Provider request processed",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Normalize(tc.payload)
			assert.Equal(t, tc.status, res.Status)
			assert.Equal(t, tc.ref, res.ProviderReference)
			assert.Equal(t, tc.message, res.Message)
			assert.Equal(t, tc.status == enums.FulfillmentStatusSuccess, res.Success)
		})
	}
}
