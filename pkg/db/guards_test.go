package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/vtuhub/walletledger/pkg/db/models"
)

func TestIsImmutableViolation(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"pgx trigger":  {fmt.Errorf("update: %w", &pgconn.PgError{Code: "P0001", Message: "ledger entries are immutable"}), true},
		"pq trigger":   {&pq.Error{Code: "P0001", Message: "ledger entries are immutable"}, true},
		"other raise":  {&pgconn.PgError{Code: "P0001", Message: "wallet frozen"}, false},
		"sqlite abort": {errors.New("ledger entries are immutable"), true},
		"model hook":   {models.ErrImmutableEntry, true},
		"unique":       {&pgconn.PgError{Code: "23505"}, false},
		"nil":          {nil, false},
	}
	for name, tc := range cases {
		if got := IsImmutableViolation(tc.err); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", name, tc.want, got)
		}
	}
}

func TestTranslateImmutableWrapsTriggerErrors(t *testing.T) {
	tx := &gorm.DB{}
	tx.Error = &pgconn.PgError{Code: "P0001", Message: "ledger entries are immutable"}
	translateImmutable(tx)
	if !errors.Is(tx.Error, models.ErrImmutableEntry) {
		t.Fatalf("expected ErrImmutableEntry, got %v", tx.Error)
	}

	other := errors.New("disk full")
	tx.Error = other
	translateImmutable(tx)
	if tx.Error != other {
		t.Fatalf("unrelated errors must pass through, got %v", tx.Error)
	}
}

func TestInstallSQLiteGuardsRejectsRawWrites(t *testing.T) {
	conn := newTestDB(t)
	if err := conn.AutoMigrate(&models.LedgerEntry{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := InstallSQLiteGuards(conn); err != nil {
		t.Fatalf("install guards: %v", err)
	}
	if err := RegisterEntryGuards(conn); err != nil {
		t.Fatalf("register guards: %v", err)
	}
	if err := conn.Exec(`INSERT INTO ledger_entries (id, reference, account_id, tx_type, direction, amount, status)
VALUES ('e1', 'F1', 'A', 'FUNDING', 'CREDIT', 10, 'SUCCESS')`).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}

	err := conn.Exec("UPDATE ledger_entries SET amount = 1000 WHERE reference = 'F1'").Error
	if !errors.Is(err, models.ErrImmutableEntry) {
		t.Fatalf("expected ErrImmutableEntry on update, got %v", err)
	}
	err = conn.Exec("DELETE FROM ledger_entries WHERE reference = 'F1'").Error
	if !errors.Is(err, models.ErrImmutableEntry) {
		t.Fatalf("expected ErrImmutableEntry on delete, got %v", err)
	}
	var count int64
	if err := conn.Model(&models.LedgerEntry{}).Where("reference = ?", "F1").Count(&count).Error; err != nil || count != 1 {
		t.Fatalf("entry should survive, count=%d err=%v", count, err)
	}
}
