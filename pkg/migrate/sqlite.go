package migrate

import (
	"context"
	"database/sql"
	"fmt"
)

// sqliteSchema mirrors the goose migrations for the sqlite driver, which has
// no enum types, partial unique constraints by name or gen_random_uuid().
// Identifiers are always assigned by the application.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS ledger_accounts (
		id TEXT PRIMARY KEY,
		owner_type TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		account_type TEXT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'INR',
		balance NUMERIC NOT NULL DEFAULT 0,
		is_frozen BOOLEAN NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME,
		CONSTRAINT ux_ledger_accounts_identity UNIQUE (owner_type, owner_id, account_type, currency)
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_transactions (
		id TEXT PRIMARY KEY,
		idempotency_key TEXT NOT NULL,
		reference_type TEXT NOT NULL,
		reference_id TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'posted',
		created_by TEXT NOT NULL,
		entry_hash TEXT NOT NULL,
		reverses_transaction_id TEXT NULL,
		voided_by_transaction_id TEXT NULL,
		posted_at DATETIME NOT NULL,
		voided_at DATETIME NULL,
		created_at DATETIME,
		CONSTRAINT ux_ledger_transactions_idempotency_key UNIQUE (idempotency_key)
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL REFERENCES ledger_transactions(id),
		account_id TEXT NOT NULL REFERENCES ledger_accounts(id),
		direction TEXT NOT NULL,
		amount NUMERIC NOT NULL CHECK (amount > 0),
		balance_after NUMERIC NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		merchant_id TEXT NOT NULL,
		supplier_id TEXT NOT NULL,
		po_number TEXT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		total_amount NUMERIC NOT NULL,
		currency TEXT NOT NULL DEFAULT 'INR',
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS supplier_scores (
		id TEXT PRIMARY KEY,
		merchant_id TEXT NOT NULL,
		supplier_id TEXT NOT NULL,
		reliability_score NUMERIC NOT NULL,
		updated_at DATETIME,
		CONSTRAINT ux_supplier_scores_pair UNIQUE (merchant_id, supplier_id)
	)`,
	`CREATE TABLE IF NOT EXISTS risk_decision_logs (
		id TEXT PRIMARY KEY,
		merchant_id TEXT NOT NULL,
		supplier_id TEXT NULL,
		order_id TEXT NULL,
		amount NUMERIC NOT NULL,
		score INTEGER NOT NULL,
		decision TEXT NOT NULL,
		reasons TEXT NOT NULL DEFAULT '[]',
		features TEXT NOT NULL DEFAULT '{}',
		evaluated_at DATETIME NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME,
		published_at DATETIME NULL,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT NULL,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME,
		created_at DATETIME
	)`,
}

// ApplySQLite creates the schema on a sqlite database. It is idempotent.
func ApplySQLite(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}
