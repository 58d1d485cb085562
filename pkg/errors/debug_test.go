package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestDumpExtractsPgxFields(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "ux_ledger_entries_reference",
		TableName:      "ledger_entries",
		Message:        "duplicate key value violates unique constraint",
	}
	err := Wrap(CodeDependency, fmt.Errorf("insert entry: %w", pgErr), "create ledger entry")

	dump := Dump(err)
	if dump.Code != CodeDependency || !dump.Retryable {
		t.Fatalf("expected retryable dependency code, got %+v", dump)
	}
	if dump.Postgres == nil || dump.Postgres.Code != "23505" || dump.Postgres.Constraint != "ux_ledger_entries_reference" {
		t.Fatalf("unexpected pg fields: %+v", dump.Postgres)
	}
	if len(dump.Chain) != 3 {
		t.Fatalf("expected 3 chain links, got %d", len(dump.Chain))
	}
	if fields := dump.Fields(); fields["pg_table"] != "ledger_entries" {
		t.Fatalf("expected pg_table field, got %v", fields)
	}
}

func TestDumpExtractsPqFields(t *testing.T) {
	err := fmt.Errorf("lock wallet: %w", &pq.Error{Code: "55P03", Table: "wallets", Message: "lock not available"})

	dump := Dump(err)
	if dump.Code != CodeInternal {
		t.Fatalf("untyped errors dump as internal, got %s", dump.Code)
	}
	if dump.Postgres == nil || dump.Postgres.Code != "55P03" || dump.Postgres.Table != "wallets" {
		t.Fatalf("unexpected pg fields: %+v", dump.Postgres)
	}
}

func TestDumpWithoutDriverError(t *testing.T) {
	dump := Dump(New(CodeValidation, "amount must be positive"))
	if dump.Postgres != nil || dump.Retryable {
		t.Fatalf("unexpected dump %+v", dump)
	}
	if _, ok := dump.Fields()["pg_code"]; ok {
		t.Fatal("pg fields should be omitted without a driver error")
	}
	if got := Dump(nil); got.TopMessage != "" || got.Chain != nil {
		t.Fatalf("expected empty dump, got %+v", got)
	}
	if got := Dump(errors.New("plain")); got.Code != CodeInternal || got.Postgres != nil {
		t.Fatalf("unexpected plain dump %+v", got)
	}
}
