package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/vtuhub/walletledger/pkg/db/models"
)

const (
	pgRaiseException   = "P0001"
	immutableCallback  = "walletledger:immutable_entry"
	immutableEntryText = "ledger entries are immutable"
)

// sqliteEntryTriggers mirror the Postgres trigger from the ledger_entries migration.
var sqliteEntryTriggers = []string{
	`CREATE TRIGGER IF NOT EXISTS trg_ledger_entries_no_update
BEFORE UPDATE ON ledger_entries
BEGIN
  SELECT RAISE(ABORT, '` + immutableEntryText + `');
END`,
	`CREATE TRIGGER IF NOT EXISTS trg_ledger_entries_no_delete
BEFORE DELETE ON ledger_entries
BEGIN
  SELECT RAISE(ABORT, '` + immutableEntryText + `');
END`,
}

// InstallSQLiteGuards creates the ledger immutability triggers on an
// auto-migrated SQLite schema. It is a no-op for other dialects.
func InstallSQLiteGuards(conn *gorm.DB) error {
	if conn.Dialector.Name() != "sqlite" {
		return nil
	}
	for _, stmt := range sqliteEntryTriggers {
		if err := conn.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create ledger entry trigger: %w", err)
		}
	}
	return nil
}

// RegisterEntryGuards translates trigger rejections on ledger_entries into
// models.ErrImmutableEntry for updates, deletes and raw statements.
func RegisterEntryGuards(conn *gorm.DB) error {
	cb := conn.Callback()
	if err := cb.Update().After("gorm:update").Register(immutableCallback, translateImmutable); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register(immutableCallback, translateImmutable); err != nil {
		return err
	}
	return cb.Raw().After("gorm:raw").Register(immutableCallback, translateImmutable)
}

func translateImmutable(tx *gorm.DB) {
	if tx.Error == nil || errors.Is(tx.Error, models.ErrImmutableEntry) {
		return
	}
	if IsImmutableViolation(tx.Error) {
		tx.Error = fmt.Errorf("%w: %s", models.ErrImmutableEntry, tx.Error)
	}
}

// IsImmutableViolation reports whether err came from the ledger entry
// immutability trigger on Postgres or SQLite.
func IsImmutableViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, models.ErrImmutableEntry) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgRaiseException && strings.Contains(pgErr.Message, immutableEntryText)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgRaiseException && strings.Contains(pqErr.Message, immutableEntryText)
	}
	return strings.Contains(err.Error(), immutableEntryText)
}
