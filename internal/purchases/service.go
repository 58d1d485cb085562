// Package purchases orchestrates airtime, data and bill purchases: debit the
// wallet, call the fulfillment provider outside any ledger transaction, then
// keep the debit, wait for verification, or reverse it.
package purchases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vtuhub/walletledger/internal/fulfillment"
	"github.com/vtuhub/walletledger/internal/ledger"
	"github.com/vtuhub/walletledger/internal/verification"
	"github.com/vtuhub/walletledger/pkg/db/models"
	"github.com/vtuhub/walletledger/pkg/enums"
	pkgerrors "github.com/vtuhub/walletledger/pkg/errors"
	"github.com/vtuhub/walletledger/pkg/logger"
	"github.com/vtuhub/walletledger/pkg/metrics"
	"github.com/vtuhub/walletledger/pkg/money"
	"github.com/vtuhub/walletledger/pkg/types"
	"github.com/vtuhub/walletledger/pkg/validators"
	"go.uber.org/multierr"
)

const (
	ReferencePrefix       = "VTU-"
	ledgerReferenceSuffix = "-DEBIT"

	defaultProviderTimeout = 30 * time.Second
	defaultMaxAttempts     = 5

	messageAwaiting          = "Awaiting fulfillment"
	messageInsufficientFunds = "Insufficient funds"
	messageCompensated       = "Payment reversed"
)

// CreateInput requests a new purchase. Reference is optional and generated when empty.
type CreateInput struct {
	AccountID   string            `json:"account_id" validate:"required,max=64,refid"`
	ProductType enums.ProductType `json:"product_type" validate:"required,oneof=airtime data bill"`
	Amount      decimal.Decimal   `json:"amount"`
	Destination string            `json:"destination" validate:"required,max=64"`
	ServiceCode string            `json:"service_code" validate:"required,max=64"`
	Reference   string            `json:"reference" validate:"omitempty,max=64,refid"`
}

// Service drives purchase orders through pending, success and failed.
type Service interface {
	verification.Verifier
	Create(ctx context.Context, input CreateInput) (*models.PurchaseOrder, error)
	Process(ctx context.Context, orderID uuid.UUID) (*models.PurchaseOrder, error)
	Verify(ctx context.Context, orderID uuid.UUID, attempt int) (*models.PurchaseOrder, error)
	Get(ctx context.Context, reference string) (*models.PurchaseOrder, error)
	SchedulePending(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

type ledgerPoster interface {
	Debit(ctx context.Context, input ledger.PostingInput) (*models.LedgerEntry, error)
	Reverse(ctx context.Context, reference, reason string) (*models.LedgerEntry, error)
	Entry(ctx context.Context, reference string) (*models.LedgerEntry, error)
}

// ServiceParams wires the purchase orchestrator. Scheduler and Metrics are optional.
type ServiceParams struct {
	Orders          Repository
	Ledger          ledgerPoster
	Provider        fulfillment.Provider
	Scheduler       verification.Scheduler
	Backoff         verification.Backoff
	MaxAttempts     int
	ProviderTimeout time.Duration
	Logger          *logger.Logger
	Metrics         *metrics.PurchaseMetrics
}

type service struct {
	orders          Repository
	ledger          ledgerPoster
	provider        fulfillment.Provider
	scheduler       verification.Scheduler
	backoff         verification.Backoff
	maxAttempts     int
	providerTimeout time.Duration
	logg            *logger.Logger
	metrics         *metrics.PurchaseMetrics
}

// NewService validates params and builds the orchestrator.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, errors.New("purchase order repository required")
	}
	if params.Ledger == nil {
		return nil, errors.New("ledger service required")
	}
	if params.Provider == nil {
		return nil, errors.New("fulfillment provider required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	timeout := params.ProviderTimeout
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &service{
		orders:          params.Orders,
		ledger:          params.Ledger,
		provider:        params.Provider,
		scheduler:       params.Scheduler,
		backoff:         params.Backoff,
		maxAttempts:     maxAttempts,
		providerTimeout: timeout,
		logg:            params.Logger,
		metrics:         params.Metrics,
	}, nil
}

// NewReference returns a fresh purchase reference such as VTU-3F9A0C12B7DE.
func NewReference() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return ReferencePrefix + strings.ToUpper(raw[:12])
}

// LedgerReference derives the debit reference for a purchase reference.
func LedgerReference(reference string) string {
	return reference + ledgerReferenceSuffix
}

// Create debits the wallet and records the order. Creating the same reference
// again returns the stored order.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.PurchaseOrder, error) {
	input.AccountID = validators.SanitizeString(input.AccountID, 0)
	input.Destination = validators.SanitizeString(input.Destination, 0)
	input.ServiceCode = validators.SanitizeString(input.ServiceCode, 0)
	input.Reference = validators.SanitizeString(input.Reference, 0)
	if err := validators.Struct(input); err != nil {
		return nil, err
	}
	amount, err := money.Positive(input.Amount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	txType, err := input.ProductType.LedgerTxType()
	if err != nil {
		return nil, validation(err.Error())
	}
	if input.ProductType == enums.ProductTypeData {
		if _, plan := fulfillment.SplitDataCode(input.ServiceCode); plan == "" {
			return nil, validation("data purchases need a plan code")
		}
	}

	reference := input.Reference
	if reference == "" {
		reference = NewReference()
	}
	ctx = s.logg.WithAccountID(ctx, input.AccountID)
	ctx = s.logg.WithReference(ctx, reference)

	existing, err := s.orders.FindByReference(ctx, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup purchase order")
	}
	if existing != nil {
		if existing.AccountID != input.AccountID {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, ErrReferenceConflict,
				fmt.Sprintf("purchase reference %q is already used", reference))
		}
		s.logg.Info(ctx, "purchase order replayed")
		return existing, nil
	}

	ledgerRef := LedgerReference(reference)
	entry, err := s.debit(ctx, ledger.PostingInput{
		AccountID: input.AccountID,
		Amount:    amount,
		Reference: ledgerRef,
		TxType:    txType,
		Metadata: types.JSONMap{
			"purchase_reference": reference,
			"product_type":       string(input.ProductType),
			"destination":        input.Destination,
		},
	})
	if err != nil {
		return nil, err
	}

	order := &models.PurchaseOrder{
		AccountID:        input.AccountID,
		Reference:        reference,
		LedgerReference:  ledgerRef,
		ProductType:      input.ProductType,
		Amount:           amount,
		Destination:      input.Destination,
		ServiceCode:      input.ServiceCode,
		Status:           enums.PurchaseStatusPending,
		Message:          messageAwaiting,
		ProviderResponse: types.JSONMap{},
	}
	switch {
	case entry.Status != enums.EntryStatusSuccess:
		order.Status = enums.PurchaseStatusFailed
		order.Message = messageInsufficientFunds
	case s.wasCompensated(ctx, ledgerRef):
		order.Status = enums.PurchaseStatusFailed
		order.Message = messageCompensated
	}

	if err := s.orders.Create(ctx, order); err != nil {
		if errors.Is(err, ErrDuplicateReference) {
			winner, findErr := s.orders.FindByReference(ctx, reference)
			if findErr == nil && winner != nil {
				return winner, nil
			}
		}
		if order.Status == enums.PurchaseStatusPending {
			s.compensate(ctx, ledgerRef, err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist purchase order")
	}

	s.metrics.IncOrder(string(order.ProductType), string(order.Status))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID.String(),
		"status":   order.Status,
		"amount":   money.Format(order.Amount),
	}), "purchase order created")
	return order, nil
}

// debit posts the purchase debit. A FAILED debit left by an earlier attempt
// is reused so the order can still be recorded as failed.
func (s *service) debit(ctx context.Context, input ledger.PostingInput) (*models.LedgerEntry, error) {
	entry, err := s.ledger.Debit(ctx, input)
	if err == nil || !errors.Is(err, ledger.ErrReferenceConflict) {
		return entry, err
	}
	prior, lookupErr := s.ledger.Entry(ctx, input.Reference)
	if lookupErr == nil && prior.Status == enums.EntryStatusFailed && prior.AccountID == input.AccountID {
		return prior, nil
	}
	return nil, err
}

func (s *service) wasCompensated(ctx context.Context, ledgerRef string) bool {
	_, err := s.ledger.Entry(ctx, ledger.ReversalReference(ledgerRef))
	return err == nil
}

func (s *service) compensate(ctx context.Context, ledgerRef string, cause error) {
	s.logg.Error(ctx, "purchase order not persisted; reversing debit", cause)
	if _, err := s.ledger.Reverse(ctx, ledgerRef, "order persistence failed"); err != nil {
		s.logg.Error(ctx, "compensating reversal failed", err)
	}
}

// Process sends a pending order to the provider. Terminal orders and orders
// already handed to the provider are returned unchanged.
func (s *service) Process(ctx context.Context, orderID uuid.UUID) (*models.PurchaseOrder, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() || order.SubmittedAt != nil {
		return order, nil
	}
	ctx = s.orderContext(ctx, order)

	claimed, err := s.orders.ClaimSubmission(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "claim purchase order")
	}
	if !claimed {
		s.logg.Info(ctx, "purchase order already submitted elsewhere")
		return s.load(ctx, order.ID)
	}

	result, err := s.callProvider(ctx, "purchase", func(ctx context.Context) (fulfillment.Result, error) {
		return fulfillment.Purchase(ctx, s.provider, fulfillmentRequest(order))
	})
	if err != nil {
		s.logg.Error(ctx, "fulfillment outcome unknown; order stays pending", err)
		s.schedule(ctx, order, 1)
		return order, nil
	}
	return s.apply(ctx, order, result, 0)
}

// Verify re-queries the provider for a pending order. Terminal orders are
// returned unchanged; a failed order only has its reversal confirmed. An
// attempt of zero is taken from the order's stored attempt count.
func (s *service) Verify(ctx context.Context, orderID uuid.UUID, attempt int) (*models.PurchaseOrder, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		s.metrics.IncVerification("noop")
		if order.Status == enums.PurchaseStatusFailed {
			if err := s.reverse(s.orderContext(ctx, order), order, order.Message); err != nil {
				return nil, err
			}
		}
		return order, nil
	}
	ctx = s.orderContext(ctx, order)

	// An order nobody submitted yet is claimed so a late Process cannot
	// buy after this check settles it.
	if order.SubmittedAt == nil {
		claimed, err := s.orders.ClaimSubmission(ctx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "claim purchase order")
		}
		if !claimed {
			s.logg.Info(ctx, "purchase order is being submitted; verification deferred")
			s.schedule(ctx, order, max(attempt, 1))
			return s.load(ctx, order.ID)
		}
	}

	if err := s.orders.IncrementVerifyAttempts(ctx, order.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record verification attempt")
	}
	order.VerifyAttempts++
	if attempt <= 0 {
		attempt = order.VerifyAttempts
	}
	ctx = s.logg.WithField(ctx, "attempt", attempt)

	result, err := s.callProvider(ctx, "verify", func(ctx context.Context) (fulfillment.Result, error) {
		return s.provider.Verify(ctx, order.Reference, order.ProviderReference)
	})
	if err != nil {
		s.metrics.IncVerification("error")
		s.logg.Error(ctx, "verification outcome unknown; order stays pending", err)
		s.schedule(ctx, order, attempt+1)
		return order, nil
	}
	s.metrics.IncVerification(strings.ToLower(string(result.Status)))
	return s.apply(ctx, order, result, attempt)
}

func (s *service) VerifyTask(ctx context.Context, task verification.Task) error {
	_, err := s.Verify(ctx, task.OrderID, task.Attempt)
	return err
}

func (s *service) Get(ctx context.Context, reference string) (*models.PurchaseOrder, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, validation("reference is required")
	}
	order, err := s.orders.FindByReference(ctx, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup purchase order")
	}
	if order == nil {
		return nil, notFound(reference)
	}
	return order, nil
}

// SchedulePending queues an immediate verification for every pending order
// older than olderThan. An order that already has a queued verification keeps
// a single task, moved up to now.
func (s *service) SchedulePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	if s.scheduler == nil {
		return 0, errors.New("verification scheduler not configured")
	}
	orders, err := s.orders.ListPendingOlderThan(ctx, time.Now().Add(-olderThan), limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list pending purchase orders")
	}
	var errs error
	scheduled := 0
	for _, order := range orders {
		if err := s.scheduler.Schedule(ctx, 0, verification.Task{OrderID: order.ID}); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		scheduled++
	}
	return scheduled, errs
}

// apply moves the order according to the provider result. The status change
// is claimed with a compare-and-set before any reversal, so only the caller
// that moved the order to FAILED refunds it.
func (s *service) apply(ctx context.Context, order *models.PurchaseOrder, result fulfillment.Result, attempt int) (*models.PurchaseOrder, error) {
	change := Transition{
		ProviderReference: order.ProviderReference,
		Message:           result.Message,
		ProviderResponse:  result.Raw,
	}
	if result.ProviderReference != "" {
		change.ProviderReference = result.ProviderReference
	}

	switch result.Status {
	case enums.FulfillmentStatusSuccess:
		change.Status = enums.PurchaseStatusSuccess
	case enums.FulfillmentStatusPending:
		change.Status = enums.PurchaseStatusPending
	case enums.FulfillmentStatusFailed:
		change.Status = enums.PurchaseStatusFailed
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown fulfillment status %q", result.Status))
	}

	won, err := s.orders.Transition(ctx, order.ID, change)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update purchase order")
	}
	if !won {
		s.logg.Info(ctx, "purchase order already settled elsewhere")
		return s.load(ctx, order.ID)
	}

	order.Status = change.Status
	order.ProviderReference = change.ProviderReference
	order.Message = change.Message
	order.ProviderResponse = change.ProviderResponse

	s.metrics.IncOrder(string(order.ProductType), string(order.Status))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"status":             order.Status,
		"provider_reference": order.ProviderReference,
	}), "purchase order updated")

	switch order.Status {
	case enums.PurchaseStatusPending:
		s.schedule(ctx, order, attempt+1)
	case enums.PurchaseStatusFailed:
		if err := s.reverse(ctx, order, "fulfillment failed: "+result.Message); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// reverse refunds the debit of a failed order. It is idempotent by the
// reversal reference; debits that never posted are skipped. When the reversal
// cannot be written, a verification is queued to retry it.
func (s *service) reverse(ctx context.Context, order *models.PurchaseOrder, reason string) error {
	_, err := s.ledger.Reverse(ctx, order.LedgerReference, reason)
	if err == nil || errors.Is(err, ledger.ErrNotReversible) || errors.Is(err, ledger.ErrNotFound) {
		return nil
	}
	s.logg.Error(ctx, "reversal of failed order did not post; retry queued", err)
	if s.scheduler != nil {
		task := verification.Task{OrderID: order.ID}
		if schedErr := s.scheduler.Schedule(ctx, s.backoff.Delay(1), task); schedErr != nil {
			s.logg.Error(ctx, "schedule reversal retry", schedErr)
		}
	}
	return err
}

func (s *service) schedule(ctx context.Context, order *models.PurchaseOrder, attempt int) {
	if s.scheduler == nil {
		return
	}
	if attempt > s.maxAttempts {
		s.metrics.IncVerification("exhausted")
		s.logg.Warn(ctx, "verification attempts exhausted; left for the pending sweep")
		return
	}
	task := verification.Task{OrderID: order.ID, Attempt: attempt}
	if err := s.scheduler.Schedule(ctx, s.backoff.Delay(attempt), task); err != nil {
		s.logg.Error(ctx, "schedule verification", err)
	}
}

func (s *service) callProvider(ctx context.Context, op string, call func(context.Context) (fulfillment.Result, error)) (fulfillment.Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()
	started := time.Now()
	result, err := call(callCtx)
	s.metrics.ObserveProviderCall(s.provider.Name(), op, time.Since(started))
	return result, err
}

func (s *service) load(ctx context.Context, orderID uuid.UUID) (*models.PurchaseOrder, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load purchase order")
	}
	if order == nil {
		return nil, notFound(orderID.String())
	}
	return order, nil
}

func (s *service) orderContext(ctx context.Context, order *models.PurchaseOrder) context.Context {
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	ctx = s.logg.WithReference(ctx, order.Reference)
	return s.logg.WithAccountID(ctx, order.AccountID)
}

func fulfillmentRequest(order *models.PurchaseOrder) fulfillment.Request {
	return fulfillment.Request{
		Reference:   order.Reference,
		ProductType: order.ProductType,
		Amount:      money.Normalize(order.Amount),
		Destination: order.Destination,
		ServiceCode: order.ServiceCode,
	}
}
