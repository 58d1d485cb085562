// Package fulfillment defines the capability the purchase orchestrator uses to
// deliver airtime, data and bill payments, and the normalized result it consumes.
package fulfillment

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vtuhub/walletledger/pkg/enums"
	"github.com/vtuhub/walletledger/pkg/types"
)

// Request carries everything a provider needs for one purchase.
type Request struct {
	Reference   string
	ProductType enums.ProductType
	Amount      decimal.Decimal
	// Destination is the phone number for airtime/data and the customer or meter number for bills.
	Destination string
	// ServiceCode is the network for airtime, "<network>:<plan>" for data and the biller code for bills.
	ServiceCode string
}

// Result is the normalized provider answer.
type Result struct {
	Success           bool
	Status            enums.FulfillmentStatus
	ProviderReference string
	Message           string
	Raw               types.JSONMap
}

// NewResult builds a Result whose Success flag follows status.
func NewResult(status enums.FulfillmentStatus, providerReference, message string, raw types.JSONMap) Result {
	return Result{
		Success:           status == enums.FulfillmentStatusSuccess,
		Status:            status,
		ProviderReference: providerReference,
		Message:           message,
		Raw:               raw,
	}
}

// Provider is implemented by every fulfillment backend. A returned error means the
// outcome is unknown (transport failure, timeout) and must not be treated as FAILED.
type Provider interface {
	Name() string
	PurchaseAirtime(ctx context.Context, req Request) (Result, error)
	PurchaseData(ctx context.Context, req Request) (Result, error)
	PurchaseBill(ctx context.Context, req Request) (Result, error)
	Verify(ctx context.Context, reference, providerReference string) (Result, error)
}

// Purchase dispatches req to the provider operation matching its product type.
func Purchase(ctx context.Context, provider Provider, req Request) (Result, error) {
	switch req.ProductType {
	case enums.ProductTypeAirtime:
		return provider.PurchaseAirtime(ctx, req)
	case enums.ProductTypeData:
		return provider.PurchaseData(ctx, req)
	case enums.ProductTypeBill:
		return provider.PurchaseBill(ctx, req)
	}
	return Result{}, fmt.Errorf("unsupported product type %q", req.ProductType)
}

// SplitDataCode splits a data service code into network and plan. A code without
// a separator is treated as a plan on an unspecified network.
func SplitDataCode(serviceCode string) (network, plan string) {
	network, plan, found := strings.Cut(strings.TrimSpace(serviceCode), ":")
	if !found {
		return "", network
	}
	return network, plan
}
