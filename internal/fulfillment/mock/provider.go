// Package mock is a deterministic fulfillment provider for development and tests.
// Destinations or codes starting with FAIL fail and those starting with PEND stay pending.
package mock

import (
	"context"
	"strings"

	"github.com/vtuhub/walletledger/internal/fulfillment"
	"github.com/vtuhub/walletledger/pkg/enums"
	"github.com/vtuhub/walletledger/pkg/money"
	"github.com/vtuhub/walletledger/pkg/types"
)

const Name = "mock"

type Provider struct{}

func New() *Provider {
	return &Provider{}
}

func (p *Provider) Name() string { return Name }

func (p *Provider) PurchaseAirtime(ctx context.Context, req fulfillment.Request) (fulfillment.Result, error) {
	if err := ctx.Err(); err != nil {
		return fulfillment.Result{}, err
	}
	switch {
	case isFailure(req.Destination):
		return fulfillment.NewResult(enums.FulfillmentStatusFailed, "", "Mock airtime purchase failed", nil), nil
	case isPending(req.Destination):
		return fulfillment.NewResult(enums.FulfillmentStatusPending, "", "Mock airtime pending", nil), nil
	}
	return fulfillment.NewResult(enums.FulfillmentStatusSuccess, "MOCK-AIR-"+suffix(req.Reference),
		"Mock airtime purchase successful", types.JSONMap{
			"network": req.ServiceCode,
			"phone":   req.Destination,
			"amount":  money.Format(req.Amount),
		}), nil
}

func (p *Provider) PurchaseData(ctx context.Context, req fulfillment.Request) (fulfillment.Result, error) {
	if err := ctx.Err(); err != nil {
		return fulfillment.Result{}, err
	}
	network, plan := fulfillment.SplitDataCode(req.ServiceCode)
	switch {
	case isFailure(req.Destination) || isFailure(plan):
		return fulfillment.NewResult(enums.FulfillmentStatusFailed, "", "Mock data purchase failed", nil), nil
	case isPending(req.Destination) || isPending(plan):
		return fulfillment.NewResult(enums.FulfillmentStatusPending, "", "Mock data purchase pending", nil), nil
	}
	return fulfillment.NewResult(enums.FulfillmentStatusSuccess, "MOCK-DATA-"+suffix(req.Reference),
		"Mock data purchase successful", types.JSONMap{
			"network":   network,
			"phone":     req.Destination,
			"plan_code": plan,
		}), nil
}

func (p *Provider) PurchaseBill(ctx context.Context, req fulfillment.Request) (fulfillment.Result, error) {
	if err := ctx.Err(); err != nil {
		return fulfillment.Result{}, err
	}
	switch {
	case isFailure(req.Destination) || isFailure(req.ServiceCode):
		return fulfillment.NewResult(enums.FulfillmentStatusFailed, "", "Mock bill payment failed", nil), nil
	case isPending(req.Destination) || isPending(req.ServiceCode):
		return fulfillment.NewResult(enums.FulfillmentStatusPending, "", "Mock bill payment pending", nil), nil
	}
	return fulfillment.NewResult(enums.FulfillmentStatusSuccess, "MOCK-BILL-"+suffix(req.Reference),
		"Mock bill payment successful", types.JSONMap{
			"biller_code": req.ServiceCode,
			"customer_id": req.Destination,
			"amount":      money.Format(req.Amount),
		}), nil
}

func (p *Provider) Verify(ctx context.Context, reference, providerReference string) (fulfillment.Result, error) {
	if err := ctx.Err(); err != nil {
		return fulfillment.Result{}, err
	}
	if isFailure(reference) || isFailure(providerReference) {
		return fulfillment.NewResult(enums.FulfillmentStatusFailed, providerReference, "Mock verification failed", nil), nil
	}
	ref := providerReference
	if ref == "" {
		ref = "MOCK-VERIFY-" + suffix(reference)
	}
	return fulfillment.NewResult(enums.FulfillmentStatusSuccess, ref, "Mock verification successful", types.JSONMap{
		"reference":    reference,
		"provider_ref": providerReference,
	}), nil
}

func isFailure(value string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(value)), "FAIL")
}

func isPending(value string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(value)), "PEND")
}

func suffix(reference string) string {
	if len(reference) <= 8 {
		return reference
	}
	return reference[len(reference)-8:]
}
