package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vtuhub/walletledger/internal/wallet"
	"github.com/vtuhub/walletledger/pkg/db"
	"github.com/vtuhub/walletledger/pkg/db/models"
	"github.com/vtuhub/walletledger/pkg/enums"
	pkgerrors "github.com/vtuhub/walletledger/pkg/errors"
	"github.com/vtuhub/walletledger/pkg/logger"
	"github.com/vtuhub/walletledger/pkg/metrics"
	"github.com/vtuhub/walletledger/pkg/money"
	"github.com/vtuhub/walletledger/pkg/types"
	"gorm.io/gorm"
)

// ReversalPrefix is prepended to a debit reference to derive its reversal reference.
const ReversalPrefix = "REV-"

const (
	metaReversedReference = "reversed_reference"
	metaReason            = "reason"
	metaFailureReason     = "failure_reason"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the only writer of wallet balances. Every posting is idempotent by reference.
type Service interface {
	Credit(ctx context.Context, input PostingInput) (*models.LedgerEntry, error)
	Debit(ctx context.Context, input PostingInput) (*models.LedgerEntry, error)
	Reverse(ctx context.Context, reference, reason string) (*models.LedgerEntry, error)
	Entry(ctx context.Context, reference string) (*models.LedgerEntry, error)
	GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
	History(ctx context.Context, accountID string, limit int) ([]models.LedgerEntry, error)
}

// PostingInput describes one credit or debit request.
type PostingInput struct {
	AccountID string
	Amount    decimal.Decimal
	Reference string
	TxType    enums.TxType
	Metadata  types.JSONMap
}

// ServiceParams wires the ledger service.
type ServiceParams struct {
	DB      txRunner
	Wallets wallet.Repository
	Entries Repository
	Logger  *logger.Logger
	Metrics *metrics.LedgerMetrics
}

type service struct {
	tx      txRunner
	wallets wallet.Repository
	entries Repository
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
}

type posting struct {
	accountID string
	amount    decimal.Decimal
	reference string
	txType    enums.TxType
	direction enums.Direction
	metadata  types.JSONMap
}

// NewService builds the ledger service. Logger and metrics are optional.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, errors.New("transaction runner required")
	}
	if params.Wallets == nil {
		return nil, errors.New("wallet repository required")
	}
	if params.Entries == nil {
		return nil, errors.New("ledger repository required")
	}
	return &service{
		tx:      params.DB,
		wallets: params.Wallets,
		entries: params.Entries,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// ReversalReference derives the reference used to reverse a debit.
func ReversalReference(reference string) string {
	return ReversalPrefix + reference
}

func (s *service) Credit(ctx context.Context, input PostingInput) (*models.LedgerEntry, error) {
	req, err := preparePosting(input, enums.DirectionCredit)
	if err != nil {
		return nil, err
	}
	return s.post(ctx, req)
}

// Debit records a FAILED entry without touching the wallet when funds are insufficient.
// Callers branch on the returned entry status rather than on an error.
func (s *service) Debit(ctx context.Context, input PostingInput) (*models.LedgerEntry, error) {
	req, err := preparePosting(input, enums.DirectionDebit)
	if err != nil {
		return nil, err
	}
	return s.post(ctx, req)
}

func (s *service) Reverse(ctx context.Context, reference, reason string) (*models.LedgerEntry, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, validation("reference is required")
	}

	original, err := s.entries.FindByReference(ctx, reference)
	if err != nil {
		return nil, internal("lookup ledger entry", err)
	}
	if original == nil {
		return nil, notFound(reference)
	}
	if original.Direction != enums.DirectionDebit || original.Status != enums.EntryStatusSuccess {
		return nil, notReversible(original)
	}

	return s.post(ctx, posting{
		accountID: original.AccountID,
		amount:    money.Normalize(original.Amount),
		reference: ReversalReference(reference),
		txType:    enums.TxTypeReversal,
		direction: enums.DirectionCredit,
		metadata: types.JSONMap{
			metaReversedReference: reference,
			metaReason:            reason,
		},
	})
}

// Entry returns the entry stored under reference.
func (s *service) Entry(ctx context.Context, reference string) (*models.LedgerEntry, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, validation("reference is required")
	}
	entry, err := s.entries.FindByReference(ctx, reference)
	if err != nil {
		return nil, internal("lookup ledger entry", err)
	}
	if entry == nil {
		return nil, notFound(reference)
	}
	return entry, nil
}

// GetBalance returns 0.00 for accounts that have never been posted to.
func (s *service) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	if strings.TrimSpace(accountID) == "" {
		return decimal.Zero, validation("account id is required")
	}
	w, err := s.wallets.Get(ctx, accountID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return money.Zero, nil
	}
	if err != nil {
		return decimal.Zero, internal("load wallet", err)
	}
	return money.Normalize(w.Balance), nil
}

func (s *service) History(ctx context.Context, accountID string, limit int) ([]models.LedgerEntry, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, validation("account id is required")
	}
	entries, err := s.entries.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, internal("list ledger entries", err)
	}
	return entries, nil
}

func preparePosting(input PostingInput, direction enums.Direction) (posting, error) {
	amount, err := money.Positive(input.Amount)
	if err != nil {
		return posting{}, invalidAmount(err)
	}
	accountID := strings.TrimSpace(input.AccountID)
	if accountID == "" {
		return posting{}, validation("account id is required")
	}
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		return posting{}, validation("reference is required")
	}
	if !input.TxType.IsValid() {
		return posting{}, validation("invalid tx type " + string(input.TxType))
	}
	if input.TxType == enums.TxTypeReversal {
		return posting{}, validation("reversal entries are created through Reverse")
	}
	return posting{
		accountID: accountID,
		amount:    amount,
		reference: reference,
		txType:    input.TxType,
		direction: direction,
		metadata:  input.Metadata.Clone(),
	}, nil
}

func (s *service) post(ctx context.Context, req posting) (*models.LedgerEntry, error) {
	ctx = s.logg.WithAccountID(ctx, req.accountID)
	ctx = s.logg.WithReference(ctx, req.reference)

	existing, err := s.entries.FindByReference(ctx, req.reference)
	if err != nil {
		return nil, internal("lookup ledger entry", err)
	}
	if existing != nil {
		return s.replay(ctx, existing, req, "replay")
	}

	var created, replayed *models.LedgerEntry
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		wallets := s.wallets.WithTx(tx)
		entries := s.entries.WithTx(tx)

		if _, err := wallets.GetOrCreate(ctx, req.accountID); err != nil {
			return err
		}
		started := time.Now()
		w, err := wallets.LockForUpdate(ctx, req.accountID)
		if err != nil {
			return err
		}
		s.metrics.ObserveLockWait(time.Since(started))

		// A concurrent posting may have committed while we waited for the lock.
		prior, err := entries.FindByReference(ctx, req.reference)
		if err != nil {
			return err
		}
		if prior != nil {
			replayed = prior
			return nil
		}

		entry, newBalance := buildEntry(w, req)
		if err := entries.Create(ctx, entry); err != nil {
			return err
		}
		if entry.Status == enums.EntryStatusSuccess {
			if err := wallets.PersistBalance(ctx, w, newBalance); err != nil {
				return err
			}
		}
		created = entry
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, ErrDuplicateReference):
		return s.resolveRace(ctx, req)
	case db.IsLockTimeout(err):
		return nil, lockTimeout(req.accountID, err)
	case pkgerrors.As(err) != nil:
		return nil, err
	default:
		return nil, internal("post ledger entry", err)
	}

	if replayed != nil {
		return s.replay(ctx, replayed, req, "locked_replay")
	}

	s.metrics.IncPosting(string(created.TxType), string(created.Direction), string(created.Status))
	ctx = s.logg.WithFields(ctx, map[string]any{
		"direction": created.Direction,
		"amount":    money.Format(created.Amount),
		"status":    created.Status,
	})
	if created.Status == enums.EntryStatusFailed {
		s.logg.Warn(ctx, "debit recorded as failed: insufficient funds")
	} else {
		s.logg.Info(ctx, "ledger entry posted")
	}
	return created, nil
}

// buildEntry computes the entry and resulting balance. An overdrawing debit
// becomes a FAILED entry and leaves the balance as it is.
func buildEntry(w *models.Wallet, req posting) (*models.LedgerEntry, decimal.Decimal) {
	metadata := req.metadata
	if metadata == nil {
		metadata = types.JSONMap{}
	}
	entry := &models.LedgerEntry{
		Reference: req.reference,
		AccountID: req.accountID,
		TxType:    req.txType,
		Direction: req.direction,
		Amount:    req.amount,
		Status:    enums.EntryStatusSuccess,
		Metadata:  metadata,
	}

	balance := money.Normalize(w.Balance)
	switch req.direction {
	case enums.DirectionCredit:
		return entry, balance.Add(req.amount)
	case enums.DirectionDebit:
		next := balance.Sub(req.amount)
		if next.IsNegative() {
			entry.Status = enums.EntryStatusFailed
			metadata[metaFailureReason] = ErrInsufficientFunds.Error()
			return entry, balance
		}
		return entry, next
	}
	return entry, balance
}

// resolveRace runs after the losing transaction rolled back on the unique reference.
func (s *service) resolveRace(ctx context.Context, req posting) (*models.LedgerEntry, error) {
	winner, err := s.entries.FindByReference(ctx, req.reference)
	if err != nil {
		return nil, internal("reload ledger entry after duplicate insert", err)
	}
	if winner == nil {
		return nil, internal("duplicate reference without a stored entry", ErrDuplicateReference)
	}
	return s.replay(ctx, winner, req, "race")
}

// replay returns an existing entry when it is the same successful posting.
func (s *service) replay(ctx context.Context, existing *models.LedgerEntry, req posting, outcome string) (*models.LedgerEntry, error) {
	if existing.Status != enums.EntryStatusSuccess {
		s.metrics.IncReplay(string(req.direction), "conflict")
		return nil, referenceConflict(req.reference, "already recorded with status "+string(existing.Status))
	}
	if existing.AccountID != req.accountID ||
		existing.Direction != req.direction ||
		!money.Normalize(existing.Amount).Equal(req.amount) {
		s.metrics.IncReplay(string(req.direction), "conflict")
		return nil, referenceConflict(req.reference, "belongs to a different posting")
	}
	s.metrics.IncReplay(string(req.direction), outcome)
	s.logg.Info(s.logg.WithField(ctx, "outcome", outcome), "ledger entry replayed")
	return existing, nil
}
