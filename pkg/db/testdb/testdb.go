// Package testdb opens isolated in-memory sqlite databases carrying the same
// tables and constraints as the Postgres migrations, for repository and
// service tests.
package testdb

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/foodops-backend/pkg/db"
)

var schema = []string{
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		order_number INTEGER NOT NULL,
		order_date DATETIME NOT NULL,
		status TEXT NOT NULL,
		order_type TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		driver_id TEXT,
		subtotal TEXT NOT NULL,
		delivery_fee TEXT NOT NULL,
		total TEXT NOT NULL,
		distance_km TEXT,
		payment_proof_url TEXT,
		rejection_reason TEXT,
		return_reason TEXT,
		return_photo_url TEXT,
		refund_status TEXT NOT NULL,
		refund_amount TEXT,
		refund_reference TEXT,
		notes TEXT,
		status_changed_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (order_date, order_number)
	)`,
	`CREATE TABLE order_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL,
		product_name TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		unit_price TEXT NOT NULL,
		line_total TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE stocks (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL UNIQUE,
		product_name TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity >= 0),
		low_stock_threshold INTEGER NOT NULL,
		enabled BOOLEAN NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE stock_adjustments (
		id TEXT PRIMARY KEY,
		stock_id TEXT NOT NULL,
		adjustment_type TEXT NOT NULL,
		quantity_change INTEGER NOT NULL,
		previous_quantity INTEGER NOT NULL,
		new_quantity INTEGER NOT NULL,
		actor_id TEXT,
		actor_role TEXT NOT NULL,
		order_id TEXT,
		notes TEXT,
		created_at DATETIME NOT NULL,
		CHECK (new_quantity = previous_quantity + quantity_change),
		CHECK (new_quantity >= 0)
	)`,
	`CREATE TABLE driver_payment_methods (
		id TEXT PRIMARY KEY,
		driver_id TEXT NOT NULL,
		method_type TEXT NOT NULL,
		account_name TEXT NOT NULL,
		account_number TEXT NOT NULL,
		bank_name TEXT,
		is_default BOOLEAN NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE driver_payouts (
		id TEXT PRIMARY KEY,
		driver_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		payment_method_id TEXT,
		method_type TEXT NOT NULL,
		account_name TEXT NOT NULL,
		account_number TEXT NOT NULL,
		bank_name TEXT,
		status TEXT NOT NULL,
		requested_at DATETIME NOT NULL,
		processed_at DATETIME,
		processed_by TEXT,
		proof_url TEXT,
		rejection_reason TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX driver_payouts_one_pending_idx ON driver_payouts (driver_id) WHERE status = 'pending'`,
	`CREATE TABLE driver_earnings (
		id TEXT PRIMARY KEY,
		driver_id TEXT NOT NULL,
		order_id TEXT NOT NULL UNIQUE,
		delivery_fee TEXT NOT NULL,
		distance_km TEXT,
		status TEXT NOT NULL,
		payout_id TEXT,
		available_at DATETIME,
		paid_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME NOT NULL,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json BLOB NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE notifications (
		id TEXT PRIMARY KEY,
		audience TEXT NOT NULL,
		recipient_id TEXT,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		link TEXT,
		read_at DATETIME,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE audit_logs (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		actor_id TEXT,
		actor_role TEXT,
		payload BLOB NOT NULL,
		occurred_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL
	)`,
}

// Open returns a fresh gorm connection backed by a private in-memory sqlite
// database. The pool is pinned to one connection so the shared-cache database
// lives for the whole test and writers never race each other.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}

// Client wraps Open in the shared db.Client so services get the same WithTx
// semantics they use against Postgres.
func Client(t *testing.T) *db.Client {
	t.Helper()
	return db.Wrap(Open(t))
}
