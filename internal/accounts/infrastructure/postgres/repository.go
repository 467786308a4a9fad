package postgres

import (
	"context"
	"database/sql"
	"errors"

	accounts "backoffice-ledger/internal/accounts/domain"
)

// Repository is the Postgres chart-of-accounts repository.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const accountColumns = `id, code, name, type, COALESCE(parent_id, ''), opening_balance, COALESCE(currency, ''), active`

// Get loads an account by id.
func (r *Repository) Get(ctx context.Context, id string) (*accounts.Account, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+accountColumns+` FROM gl_accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetByCode loads an account by its human code.
func (r *Repository) GetByCode(ctx context.Context, code string) (*accounts.Account, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+accountColumns+` FROM gl_accounts WHERE code = $1`, code)
	return scanAccount(row)
}

// List returns every account ordered by code.
func (r *Repository) List(ctx context.Context) ([]*accounts.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+accountColumns+` FROM gl_accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*accounts.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

// Save inserts a new account.
func (r *Repository) Save(ctx context.Context, account *accounts.Account) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO gl_accounts (id, code, name, type, parent_id, opening_balance, currency, active)
VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,NULLIF($7,''),$8)`,
		account.ID, account.Code, account.Name, string(account.Type),
		account.ParentID, account.OpeningBalance, account.Currency, account.Active)
	return err
}

// Update overwrites an existing account.
func (r *Repository) Update(ctx context.Context, account *accounts.Account) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE gl_accounts
SET code = $2, name = $3, type = $4, parent_id = NULLIF($5,''),
	opening_balance = $6, currency = NULLIF($7,''), active = $8
WHERE id = $1`,
		account.ID, account.Code, account.Name, string(account.Type),
		account.ParentID, account.OpeningBalance, account.Currency, account.Active)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return accounts.ErrAccountNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*accounts.Account, error) {
	var account accounts.Account
	var typ string
	err := row.Scan(&account.ID, &account.Code, &account.Name, &typ,
		&account.ParentID, &account.OpeningBalance, &account.Currency, &account.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, accounts.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	account.Type = accounts.AccountType(typ)
	return &account, nil
}
