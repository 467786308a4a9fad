package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	ledger "backoffice-ledger/internal/ledger/domain"
	periods "backoffice-ledger/internal/periods/domain"
)

// Repository is the Postgres financial year repository.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get loads a year by id.
func (r *Repository) Get(ctx context.Context, id string) (*periods.FinancialYear, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, start_date, end_date, status
FROM gl_financial_years WHERE id = $1`, id)
	return scanYear(row)
}

// List returns every year ordered by start date.
func (r *Repository) List(ctx context.Context) ([]*periods.FinancialYear, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, start_date, end_date, status
FROM gl_financial_years ORDER BY start_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*periods.FinancialYear
	for rows.Next() {
		year, err := scanYear(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, year)
	}
	return out, rows.Err()
}

// Save inserts or updates a year.
func (r *Repository) Save(ctx context.Context, year *periods.FinancialYear) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO gl_financial_years (id, name, start_date, end_date, status)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id)
DO UPDATE SET name = EXCLUDED.name, start_date = EXCLUDED.start_date,
	end_date = EXCLUDED.end_date, status = EXCLUDED.status`,
		year.ID, year.Name, year.Start.UTC(), year.End.UTC(), string(year.Status))
	return err
}

// OpeningBalances returns carry-forward balances written for the year.
func (r *Repository) OpeningBalances(ctx context.Context, yearID string) ([]periods.OpeningBalance, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT account_id, year_id, amount
FROM gl_opening_balances WHERE year_id = $1`, yearID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []periods.OpeningBalance
	for rows.Next() {
		var row periods.OpeningBalance
		if err := rows.Scan(&row.AccountID, &row.YearID, &row.Amount); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// CloseExecutor commits a year close in a single transaction: closing
// voucher, carry-forward rows and the status flip all land together or
// not at all. A cancelled context before commit leaves the year open.
type CloseExecutor struct {
	db *sql.DB
}

// NewCloseExecutor constructs an executor.
func NewCloseExecutor(db *sql.DB) *CloseExecutor {
	return &CloseExecutor{db: db}
}

// ExecuteClose performs the atomic close. A nil closing voucher means
// the year had no income or expense activity.
func (e *CloseExecutor) ExecuteClose(ctx context.Context, year *periods.FinancialYear, closing *ledger.Voucher, nextYearID string, openings []periods.OpeningBalance) (string, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	closingID := ""
	if closing != nil {
		var seq int64
		if err := tx.QueryRowContext(ctx, `
UPDATE gl_sequence SET value = value + 1 RETURNING value`).Scan(&seq); err != nil {
			return "", err
		}
		closingID = ledger.NewID()
		_, err = tx.ExecContext(ctx, `
INSERT INTO gl_vouchers (
	id, seq, type, voucher_date, status, narration, currency,
	created_by, reversal_of, posted_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULL,$9)`,
			closingID, seq, string(closing.Type), closing.Date.UTC(), string(ledger.StatusPosted),
			closing.Narration, closing.Currency, closing.CreatedBy, time.Now().UTC())
		if err != nil {
			return "", err
		}
		for i, entry := range closing.Entries {
			_, err = tx.ExecContext(ctx, `
INSERT INTO gl_entries (voucher_id, line_no, account_id, side, amount, base_amount)
VALUES ($1,$2,$3,$4,$5,$6)`,
				closingID, i, entry.AccountID, string(entry.Side), entry.Amount, entry.BaseAmount)
			if err != nil {
				return "", err
			}
		}
		closing.ID = closingID
		closing.Sequence = seq
	}

	for _, row := range openings {
		_, err = tx.ExecContext(ctx, `
INSERT INTO gl_opening_balances (account_id, year_id, amount)
VALUES ($1,$2,$3)
ON CONFLICT (account_id, year_id)
DO UPDATE SET amount = EXCLUDED.amount`,
			row.AccountID, nextYearID, row.Amount)
		if err != nil {
			return "", err
		}
	}

	_, err = tx.ExecContext(ctx, `
UPDATE gl_financial_years SET status = $1 WHERE id = $2`,
		string(periods.StatusClosed), year.ID)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return closingID, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanYear(row rowScanner) (*periods.FinancialYear, error) {
	var year periods.FinancialYear
	var status string
	err := row.Scan(&year.ID, &year.Name, &year.Start, &year.End, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, periods.ErrPeriodNotFound
	}
	if err != nil {
		return nil, err
	}
	year.Status = periods.YearStatus(status)
	return &year, nil
}
