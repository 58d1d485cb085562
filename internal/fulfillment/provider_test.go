package fulfillment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vtuhub/walletledger/pkg/enums"
)

type recordingProvider struct {
	called string
}

func (r *recordingProvider) Name() string { return "recording" }

func (r *recordingProvider) PurchaseAirtime(ctx context.Context, req Request) (Result, error) {
	r.called = "airtime"
	return NewResult(enums.FulfillmentStatusSuccess, "P-1", "ok", nil), nil
}

func (r *recordingProvider) PurchaseData(ctx context.Context, req Request) (Result, error) {
	r.called = "data"
	return NewResult(enums.FulfillmentStatusPending, "", "pending", nil), nil
}

func (r *recordingProvider) PurchaseBill(ctx context.Context, req Request) (Result, error) {
	r.called = "bill"
	return NewResult(enums.FulfillmentStatusFailed, "", "failed", nil), nil
}

func (r *recordingProvider) Verify(ctx context.Context, reference, providerReference string) (Result, error) {
	return Result{}, nil
}

func TestPurchaseDispatchesByProductType(t *testing.T) {
	ctx := context.Background()
	cases := map[enums.ProductType]string{
		enums.ProductTypeAirtime: "airtime",
		enums.ProductTypeData:    "data",
		enums.ProductTypeBill:    "bill",
	}
	for productType, want := range cases {
		p := &recordingProvider{}
		_, err := Purchase(ctx, p, Request{ProductType: productType})
		require.NoError(t, err)
		require.Equal(t, want, p.called)
	}

	_, err := Purchase(ctx, &recordingProvider{}, Request{ProductType: "gift"})
	require.Error(t, err)
}

func TestNewResultSuccessFollowsStatus(t *testing.T) {
	require.True(t, NewResult(enums.FulfillmentStatusSuccess, "", "", nil).Success)
	require.False(t, NewResult(enums.FulfillmentStatusPending, "", "", nil).Success)
	require.False(t, NewResult(enums.FulfillmentStatusFailed, "", "", nil).Success)
}

func TestSplitDataCode(t *testing.T) {
	network, plan := SplitDataCode("mtn-data:M1024")
	require.Equal(t, "mtn-data", network)
	require.Equal(t, "M1024", plan)

	network, plan = SplitDataCode("M1024")
	require.Equal(t, "", network)
	require.Equal(t, "M1024", plan)
}
