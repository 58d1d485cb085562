package ledger

import (
	"errors"
	"fmt"

	"github.com/vtuhub/walletledger/pkg/db/models"
	pkgerrors "github.com/vtuhub/walletledger/pkg/errors"
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrReferenceConflict  = errors.New("reference conflict")
	ErrNotFound           = errors.New("ledger entry not found")
	ErrNotReversible      = errors.New("ledger entry is not reversible")
	ErrDuplicateReference = errors.New("duplicate ledger reference")
	ErrLockTimeout        = errors.New("wallet lock timeout")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrImmutableEntry     = models.ErrImmutableEntry
)

func invalidAmount(cause error) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, fmt.Errorf("%w: %v", ErrInvalidAmount, cause), cause.Error())
}

func validation(message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message)
}

func referenceConflict(reference string, reason string) error {
	return pkgerrors.Wrap(pkgerrors.CodeConflict, ErrReferenceConflict,
		fmt.Sprintf("reference %q %s", reference, reason)).
		WithDetails(map[string]any{"reference": reference})
}

func notFound(reference string) error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrNotFound,
		fmt.Sprintf("no ledger entry with reference %q", reference))
}

func notReversible(entry *models.LedgerEntry) error {
	return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrNotReversible,
		fmt.Sprintf("entry %q is %s %s; only successful debits can be reversed", entry.Reference, entry.Status, entry.Direction)).
		WithDetails(map[string]any{
			"reference": entry.Reference,
			"status":    entry.Status,
			"direction": entry.Direction,
		})
}

func lockTimeout(accountID string, cause error) error {
	return pkgerrors.Wrap(pkgerrors.CodeLockTimeout, fmt.Errorf("%w: %v", ErrLockTimeout, cause),
		fmt.Sprintf("timed out waiting for wallet %q", accountID))
}

func internal(message string, cause error) error {
	return pkgerrors.Wrap(pkgerrors.CodeInternal, cause, message)
}
