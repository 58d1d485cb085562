// Package funding turns normalized payment notifications into idempotent
// FUNDING credits and pays referral bonuses on qualifying deposits.
package funding

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vtuhub/walletledger/internal/ledger"
	"github.com/vtuhub/walletledger/pkg/db/models"
	"github.com/vtuhub/walletledger/pkg/enums"
	pkgerrors "github.com/vtuhub/walletledger/pkg/errors"
	"github.com/vtuhub/walletledger/pkg/logger"
	"github.com/vtuhub/walletledger/pkg/metrics"
	"github.com/vtuhub/walletledger/pkg/money"
	"github.com/vtuhub/walletledger/pkg/types"
	"github.com/vtuhub/walletledger/pkg/validators"
)

const defaultCurrency = "NGN"

// Event is a validated payment notification from a funding provider.
type Event struct {
	Provider             string          `json:"provider" validate:"required,max=32"`
	TransactionReference string          `json:"transaction_reference" validate:"max=128"`
	PaymentReference     string          `json:"payment_reference" validate:"max=128"`
	AccountID            string          `json:"account_id" validate:"required,max=64,refid"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency" validate:"omitempty,len=3"`
	PayerName            string          `json:"payer_name" validate:"max=128"`
	PayerEmail           string          `json:"payer_email" validate:"omitempty,email"`
	BankName             string          `json:"bank_name" validate:"max=128"`
	AccountNumber        string          `json:"account_number" validate:"max=32"`
}

// IdempotencyKey is the transaction reference, falling back to the payment reference.
func (e Event) IdempotencyKey() string {
	if ref := strings.TrimSpace(e.TransactionReference); ref != "" {
		return ref
	}
	return strings.TrimSpace(e.PaymentReference)
}

// Result reports what Process did with an event.
type Result struct {
	Event    *models.FundingEvent
	Entry    *models.LedgerEntry
	Replayed bool
	// ReferralPending is set when the referral hook failed. The credit
	// stands; processing the event again retries the bonus.
	ReferralPending bool
}

type crediter interface {
	Credit(ctx context.Context, input ledger.PostingInput) (*models.LedgerEntry, error)
}

// ReferralHook is told about every processed funding.
type ReferralHook interface {
	OnFunding(ctx context.Context, accountID, sourceReference string, amount decimal.Decimal) (*models.LedgerEntry, error)
}

// ServiceParams wires the funding service. Referrals and Metrics are optional.
type ServiceParams struct {
	Events    Repository
	Ledger    crediter
	Referrals ReferralHook
	Logger    *logger.Logger
	Metrics   *metrics.PurchaseMetrics
}

type Service struct {
	events    Repository
	ledger    crediter
	referrals ReferralHook
	logg      *logger.Logger
	metrics   *metrics.PurchaseMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Events == nil {
		return nil, errors.New("funding event repository required")
	}
	if params.Ledger == nil {
		return nil, errors.New("ledger service required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &Service{
		events:    params.Events,
		ledger:    params.Ledger,
		referrals: params.Referrals,
		logg:      params.Logger,
		metrics:   params.Metrics,
	}, nil
}

// LedgerReference derives the credit reference, e.g. MONNIFY_<transaction reference>.
func LedgerReference(provider, key string) string {
	return strings.ToUpper(strings.TrimSpace(provider)) + "_" + key
}

// Process credits the wallet once per idempotency key. Events already
// processed are returned with Replayed set and nothing new is credited, but
// the referral hook runs again since the bonus is idempotent by reference.
func (s *Service) Process(ctx context.Context, event Event) (*Result, error) {
	if err := validators.Struct(event); err != nil {
		return nil, err
	}
	key := event.IdempotencyKey()
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction_reference or payment_reference is required")
	}
	amount, err := money.Positive(event.Amount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	provider := strings.ToUpper(strings.TrimSpace(event.Provider))
	accountID := strings.TrimSpace(event.AccountID)
	ledgerRef := LedgerReference(provider, key)
	ctx = s.logg.WithAccountID(ctx, accountID)
	ctx = s.logg.WithReference(ctx, ledgerRef)

	record, err := s.record(ctx, event, key, provider, accountID, amount, ledgerRef)
	if err != nil {
		return nil, err
	}
	if record.Status == enums.FundingEventStatusProcessed {
		s.metrics.IncFunding("replayed")
		s.logg.Info(ctx, "funding event already processed")
		return &Result{Event: record, Replayed: true, ReferralPending: !s.applyReferral(ctx, record)}, nil
	}

	entry, err := s.ledger.Credit(ctx, ledger.PostingInput{
		AccountID: accountID,
		Amount:    amount,
		Reference: ledgerRef,
		TxType:    enums.TxTypeFunding,
		Metadata: types.JSONMap{
			"provider":              provider,
			"transaction_reference": event.TransactionReference,
			"payment_reference":     event.PaymentReference,
			"payer_name":            event.PayerName,
			"payer_email":           event.PayerEmail,
			"bank_name":             event.BankName,
			"account_number":        event.AccountNumber,
		},
	})
	if err != nil {
		s.metrics.IncFunding("failed")
		s.logg.Error(ctx, "funding credit failed", err)
		if markErr := s.events.MarkStatus(ctx, record.ID, enums.FundingEventStatusFailed, err.Error()); markErr != nil {
			s.logg.Error(ctx, "mark funding event failed", markErr)
		}
		return nil, err
	}

	if err := s.events.MarkStatus(ctx, record.ID, enums.FundingEventStatusProcessed, ""); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark funding event processed")
	}
	record.Status = enums.FundingEventStatusProcessed
	record.ProcessingError = ""
	s.metrics.IncFunding("processed")
	s.logg.Info(s.logg.WithField(ctx, "amount", money.Format(amount)), "wallet funded")

	return &Result{Event: record, Entry: entry, ReferralPending: !s.applyReferral(ctx, record)}, nil
}

// applyReferral runs the referral hook for a processed event and reports
// whether it succeeded.
func (s *Service) applyReferral(ctx context.Context, record *models.FundingEvent) bool {
	if s.referrals == nil {
		return true
	}
	if _, err := s.referrals.OnFunding(ctx, record.AccountID, record.LedgerReference, money.Normalize(record.Amount)); err != nil {
		s.logg.Error(ctx, "referral bonus failed", err)
		return false
	}
	return true
}

// record returns the stored event for key, creating it as RECEIVED when new.
func (s *Service) record(ctx context.Context, event Event, key, provider, accountID string, amount decimal.Decimal, ledgerRef string) (*models.FundingEvent, error) {
	existing, err := s.events.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup funding event")
	}
	if existing != nil {
		return existing, nil
	}

	currency := strings.ToUpper(strings.TrimSpace(event.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	record := &models.FundingEvent{
		Provider:             provider,
		IdempotencyKey:       key,
		AccountID:            accountID,
		TransactionReference: event.TransactionReference,
		PaymentReference:     event.PaymentReference,
		Amount:               amount,
		Currency:             currency,
		LedgerReference:      ledgerRef,
		Status:               enums.FundingEventStatusReceived,
		Payload: types.JSONMap{
			"payer_name":     event.PayerName,
			"payer_email":    event.PayerEmail,
			"bank_name":      event.BankName,
			"account_number": event.AccountNumber,
		},
	}
	err = s.events.Create(ctx, record)
	if errors.Is(err, errDuplicateEvent) {
		winner, findErr := s.events.FindByIdempotencyKey(ctx, key)
		if findErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, findErr, "reload funding event")
		}
		if winner != nil {
			return winner, nil
		}
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record funding event")
	}
	return record, nil
}
