package postgres

import (
	"context"
	"database/sql"
)

// EnsureSchema creates the ledger tables when missing. Statements are
// idempotent so startup can run this unconditionally.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS gl_accounts (
    id              TEXT PRIMARY KEY,
    code            TEXT NOT NULL UNIQUE,
    name            TEXT NOT NULL DEFAULT '',
    type            TEXT NOT NULL,
    parent_id       TEXT,
    opening_balance BIGINT NOT NULL DEFAULT 0,
    currency        TEXT,
    active          BOOLEAN NOT NULL DEFAULT TRUE
)`,
		`CREATE TABLE IF NOT EXISTS gl_sequence (
    value BIGINT NOT NULL
)`,
		`INSERT INTO gl_sequence (value)
SELECT 0 WHERE NOT EXISTS (SELECT 1 FROM gl_sequence)`,
		`CREATE TABLE IF NOT EXISTS gl_vouchers (
    id           TEXT PRIMARY KEY,
    seq          BIGINT NOT NULL UNIQUE,
    type         TEXT NOT NULL,
    voucher_date DATE NOT NULL,
    status       TEXT NOT NULL,
    narration    TEXT NOT NULL DEFAULT '',
    currency     TEXT NOT NULL DEFAULT '',
    created_by   TEXT NOT NULL DEFAULT '',
    reversal_of  TEXT,
    reversed_by  TEXT,
    posted_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		`CREATE INDEX IF NOT EXISTS idx_gl_vouchers_date ON gl_vouchers (voucher_date, seq)`,
		`CREATE TABLE IF NOT EXISTS gl_entries (
    voucher_id  TEXT NOT NULL REFERENCES gl_vouchers (id),
    line_no     INT NOT NULL,
    account_id  TEXT NOT NULL,
    side        TEXT NOT NULL,
    amount      BIGINT NOT NULL,
    base_amount BIGINT NOT NULL,
    PRIMARY KEY (voucher_id, line_no)
)`,
		`CREATE INDEX IF NOT EXISTS idx_gl_entries_account ON gl_entries (account_id)`,
		`CREATE TABLE IF NOT EXISTS gl_financial_years (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    start_date DATE NOT NULL,
    end_date   DATE NOT NULL,
    status     TEXT NOT NULL DEFAULT 'open'
)`,
		`CREATE TABLE IF NOT EXISTS gl_opening_balances (
    account_id TEXT NOT NULL,
    year_id    TEXT NOT NULL,
    amount     BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (account_id, year_id)
)`,
		`CREATE TABLE IF NOT EXISTS gl_currencies (
    code    TEXT PRIMARY KEY,
    symbol  TEXT NOT NULL DEFAULT '',
    is_base BOOLEAN NOT NULL DEFAULT FALSE
)`,
		`CREATE TABLE IF NOT EXISTS gl_exchange_rates (
    currency  TEXT NOT NULL,
    rate      TEXT NOT NULL,
    rate_date DATE NOT NULL,
    PRIMARY KEY (currency, rate_date)
)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
    id             TEXT PRIMARY KEY,
    actor          TEXT NOT NULL DEFAULT '',
    role           TEXT NOT NULL DEFAULT '',
    action         TEXT NOT NULL,
    resource_type  TEXT NOT NULL DEFAULT '',
    resource_id    TEXT NOT NULL DEFAULT '',
    metadata       JSONB,
    payload_digest TEXT NOT NULL DEFAULT '',
    ip             TEXT NOT NULL DEFAULT '',
    user_agent     TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	}
	for _, statement := range statements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return err
		}
	}
	return nil
}
