// Package referrals credits referrers a percentage of their referees' funding.
package referrals

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vtuhub/walletledger/internal/ledger"
	"github.com/vtuhub/walletledger/pkg/db/models"
	"github.com/vtuhub/walletledger/pkg/enums"
	"github.com/vtuhub/walletledger/pkg/logger"
	"github.com/vtuhub/walletledger/pkg/money"
	"github.com/vtuhub/walletledger/pkg/types"
)

// ReferencePrefix is prepended to the funding reference to derive the bonus reference.
const ReferencePrefix = "REF-"

var hundred = decimal.NewFromInt(100)

// ReferrerLookup resolves who referred an account. ok is false when nobody did.
type ReferrerLookup interface {
	ReferrerOf(ctx context.Context, accountID string) (referrerID string, ok bool, err error)
}

// ReferrerLookupFunc adapts a function to ReferrerLookup.
type ReferrerLookupFunc func(ctx context.Context, accountID string) (string, bool, error)

func (f ReferrerLookupFunc) ReferrerOf(ctx context.Context, accountID string) (string, bool, error) {
	return f(ctx, accountID)
}

type crediter interface {
	Credit(ctx context.Context, input ledger.PostingInput) (*models.LedgerEntry, error)
}

// ServiceParams wires the referral service.
type ServiceParams struct {
	Ledger     crediter
	Referrers  ReferrerLookup
	Percent    decimal.Decimal
	MinFunding decimal.Decimal
	Logger     *logger.Logger
}

// Service posts referral bonuses through the ledger.
type Service struct {
	ledger     crediter
	referrers  ReferrerLookup
	percent    decimal.Decimal
	minFunding decimal.Decimal
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Ledger == nil {
		return nil, errors.New("ledger service required")
	}
	if params.Referrers == nil {
		return nil, errors.New("referrer lookup required")
	}
	if params.Percent.IsNegative() {
		return nil, errors.New("referral percent must not be negative")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &Service{
		ledger:     params.Ledger,
		referrers:  params.Referrers,
		percent:    params.Percent,
		minFunding: params.MinFunding,
		logg:       params.Logger,
	}, nil
}

// Bonus returns amount * percent / 100 at wallet scale.
func (s *Service) Bonus(amount decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() {
		return money.Zero
	}
	return money.Normalize(amount.Mul(s.percent).Div(hundred))
}

// ApplyBonus credits the referrer for a funding posted under sourceReference.
// A bonus that rounds to zero posts nothing and returns (nil, nil).
func (s *Service) ApplyBonus(ctx context.Context, referrerID, sourceReference string, amount decimal.Decimal) (*models.LedgerEntry, error) {
	bonus := s.Bonus(amount)
	if !bonus.IsPositive() {
		return nil, nil
	}
	ctx = s.logg.WithAccountID(ctx, referrerID)
	entry, err := s.ledger.Credit(ctx, ledger.PostingInput{
		AccountID: referrerID,
		Amount:    bonus,
		Reference: ReferencePrefix + sourceReference,
		TxType:    enums.TxTypeReferralBonus,
		Metadata: types.JSONMap{
			"source_reference": sourceReference,
			"funded_amount":    money.Format(amount),
			"percent":          s.percent.String(),
		},
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"source_reference": sourceReference,
		"bonus":            money.Format(bonus),
	}), "referral bonus credited")
	return entry, nil
}

// OnFunding pays the funded account's referrer when the funding reaches the
// configured minimum. It returns (nil, nil) when no bonus applies.
func (s *Service) OnFunding(ctx context.Context, accountID, sourceReference string, amount decimal.Decimal) (*models.LedgerEntry, error) {
	if amount.LessThan(s.minFunding) {
		return nil, nil
	}
	referrerID, ok, err := s.referrers.ReferrerOf(ctx, accountID)
	if err != nil {
		return nil, err
	}
	referrerID = strings.TrimSpace(referrerID)
	if !ok || referrerID == "" || referrerID == accountID {
		return nil, nil
	}
	return s.ApplyBonus(ctx, referrerID, sourceReference, amount)
}
