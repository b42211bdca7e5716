package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/foodops-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_orders"), []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"status_changed_at timestamptz NOT NULL",
		"UNIQUE (order_date, order_number)",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"CHECK (quantity > 0)",
		"DROP TABLE IF EXISTS orders",
	})
}

func TestStocksMigrationEnforcesAdjustmentArithmetic(t *testing.T) {
	assertContains(t, readMigration(t, "create_stocks"), []string{
		"CHECK (quantity >= 0)",
		"CHECK (new_quantity = previous_quantity + quantity_change)",
		"CHECK (new_quantity >= 0)",
		"BEFORE UPDATE OR DELETE ON stock_adjustments",
		"DROP TABLE IF EXISTS stock_adjustments",
	})
}

func TestDriverLedgerMigrationBindsEarningsToPayouts(t *testing.T) {
	assertContains(t, readMigration(t, "create_driver_ledger"), []string{
		"CONSTRAINT driver_earnings_order_unique UNIQUE (order_id)",
		"FOREIGN KEY (payout_id) REFERENCES driver_payouts(id)",
		"CREATE UNIQUE INDEX IF NOT EXISTS driver_payouts_one_pending_idx",
		"WHERE status = 'pending'",
		"CHECK (amount > 0)",
	})
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Refund Index!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_refund_index.sql") {
		t.Fatalf("unexpected migration path %q", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestValidateDirReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("20261017090000_orders.sql", "-- +goose Up\n-- +goose Down\n")
	write("20261017090000_orders_again.sql", "-- +goose Up\n-- +goose Down\n")
	write("add_index.sql", "-- +goose Up\n")
	write("20261017100000_no_down.sql", "-- +goose Up\n")
	write("README.md", "ignored")

	err := migrate.ValidateDir(dir)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{
		"version 20261017090000 already used",
		"add_index.sql: name must look like",
		`20261017100000_no_down.sql: missing "-- +goose Down" section`,
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err.Error(), want)
		}
	}
}

func TestParseCommand(t *testing.T) {
	for _, raw := range []string{"up", "down", "redo", "status"} {
		if _, ok := migrate.ParseCommand(raw); !ok {
			t.Errorf("expected %q to be accepted", raw)
		}
	}
	for _, raw := range []string{"", "create", "validate", "UP"} {
		if _, ok := migrate.ParseCommand(raw); ok {
			t.Errorf("expected %q to be rejected", raw)
		}
	}
}
