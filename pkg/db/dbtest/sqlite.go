// Package dbtest opens isolated in-memory SQLite databases for package tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/vtuhub/walletledger/pkg/db"
	"github.com/vtuhub/walletledger/pkg/db/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open returns a migrated in-memory database unique to the calling test.
// The pool is pinned to a single connection so concurrent transactions
// serialize the way row locks would on Postgres.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), db.GormConfig())
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("failed to get sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(
		&models.Wallet{},
		&models.LedgerEntry{},
		&models.PurchaseOrder{},
		&models.FundingEvent{},
	); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	if err := db.InstallSQLiteGuards(conn); err != nil {
		t.Fatalf("failed to install sqlite guards: %v", err)
	}
	if err := db.RegisterEntryGuards(conn); err != nil {
		t.Fatalf("failed to register entry guards: %v", err)
	}
	return conn
}

// Client wraps Open in a db.Client.
func Client(t *testing.T) *db.Client {
	t.Helper()
	return db.Wrap(Open(t))
}
