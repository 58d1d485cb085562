package mock

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vtuhub/walletledger/internal/fulfillment"
	"github.com/vtuhub/walletledger/pkg/enums"
)

func TestMockProviderOutcomes(t *testing.T) {
	ctx := context.Background()
	p := New()

	cases := []struct {
		name   string
		req    fulfillment.Request
		status enums.FulfillmentStatus
		ref    string
	}{
		{"airtime ok", fulfillment.Request{ProductType: enums.ProductTypeAirtime, Reference: "VTU-ABCDEF123456", Destination: "08030000000", ServiceCode: "mtn", Amount: decimal.NewFromInt(100)}, enums.FulfillmentStatusSuccess, "MOCK-AIR-EF123456"},
		{"airtime fail", fulfillment.Request{ProductType: enums.ProductTypeAirtime, Reference: "VTU-1", Destination: "fail-0803"}, enums.FulfillmentStatusFailed, ""},
		{"airtime pending", fulfillment.Request{ProductType: enums.ProductTypeAirtime, Reference: "VTU-1", Destination: "PEND0803"}, enums.FulfillmentStatusPending, ""},
		{"data ok", fulfillment.Request{ProductType: enums.ProductTypeData, Reference: "VTU-ABCDEF123456", Destination: "0803", ServiceCode: "mtn-data:M1"}, enums.FulfillmentStatusSuccess, "MOCK-DATA-EF123456"},
		{"data plan fail", fulfillment.Request{ProductType: enums.ProductTypeData, Reference: "VTU-1", Destination: "0803", ServiceCode: "mtn-data:FAIL1"}, enums.FulfillmentStatusFailed, ""},
		{"data plan pending", fulfillment.Request{ProductType: enums.ProductTypeData, Reference: "VTU-1", Destination: "0803", ServiceCode: "mtn-data:PEND1"}, enums.FulfillmentStatusPending, ""},
		{"bill ok", fulfillment.Request{ProductType: enums.ProductTypeBill, Reference: "VTU-ABCDEF123456", Destination: "45001", ServiceCode: "ikeja-electric"}, enums.FulfillmentStatusSuccess, "MOCK-BILL-EF123456"},
		{"bill biller fail", fulfillment.Request{ProductType: enums.ProductTypeBill, Reference: "VTU-1", Destination: "45001", ServiceCode: "FAIL-biller"}, enums.FulfillmentStatusFailed, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := fulfillment.Purchase(ctx, p, tc.req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, res.Status)
			assert.Equal(t, tc.status == enums.FulfillmentStatusSuccess, res.Success)
			assert.Equal(t, tc.ref, res.ProviderReference)
		})
	}
}

func TestMockVerify(t *testing.T) {
	ctx := context.Background()
	p := New()

	res, err := p.Verify(ctx, "VTU-1", "MOCK-AIR-1")
	require.NoError(t, err)
	require.Equal(t, enums.FulfillmentStatusSuccess, res.Status)
	require.Equal(t, "MOCK-AIR-1", res.ProviderReference)

	res, err = p.Verify(ctx, "VTU-ABCDEF123456", "")
	require.NoError(t, err)
	require.Equal(t, "MOCK-VERIFY-EF123456", res.ProviderReference)

	res, err = p.Verify(ctx, "VTU-1", "FAIL-REF")
	require.NoError(t, err)
	require.Equal(t, enums.FulfillmentStatusFailed, res.Status)
}

func TestMockHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().PurchaseAirtime(ctx, fulfillment.Request{})
	require.ErrorIs(t, err, context.Canceled)
}
