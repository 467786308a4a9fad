package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	currency "backoffice-ledger/internal/currency/domain"
)

// Repository is the Postgres currency and exchange-rate repository.
// Rates are stored as text and parsed with shopspring/decimal so no
// precision is lost in transit.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Base returns the base currency.
func (r *Repository) Base(ctx context.Context) (*currency.Currency, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT code, symbol, is_base FROM gl_currencies WHERE is_base LIMIT 1`)
	c, err := scanCurrency(row)
	if errors.Is(err, currency.ErrCurrencyNotFound) {
		return nil, currency.ErrNoBaseCurrency
	}
	return c, err
}

// Get returns the currency with the given code.
func (r *Repository) Get(ctx context.Context, code string) (*currency.Currency, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT code, symbol, is_base FROM gl_currencies WHERE code = $1`, code)
	return scanCurrency(row)
}

// Save upserts a currency, enforcing the single-base rule.
func (r *Repository) Save(ctx context.Context, c *currency.Currency) error {
	if c.IsBase {
		var existing string
		err := r.db.QueryRowContext(ctx, `
SELECT code FROM gl_currencies WHERE is_base AND code <> $1 LIMIT 1`, c.Code).Scan(&existing)
		if err == nil {
			return currency.ErrDuplicateBase
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO gl_currencies (code, symbol, is_base)
VALUES ($1,$2,$3)
ON CONFLICT (code)
DO UPDATE SET symbol = EXCLUDED.symbol, is_base = EXCLUDED.is_base`,
		c.Code, c.Symbol, c.IsBase)
	return err
}

// PutRate stores one feed observation.
func (r *Repository) PutRate(ctx context.Context, rate currency.ExchangeRate) error {
	if rate.Rate.LessThanOrEqual(decimal.Zero) {
		return currency.ErrInvalidRate
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO gl_exchange_rates (currency, rate, rate_date)
VALUES ($1,$2,$3)
ON CONFLICT (currency, rate_date)
DO UPDATE SET rate = EXCLUDED.rate`,
		rate.Currency, rate.Rate.String(), rate.RateDate.UTC())
	return err
}

// RateOn returns the most recent rate effective on or before the date.
func (r *Repository) RateOn(ctx context.Context, code string, date time.Time) (decimal.Decimal, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `
SELECT rate FROM gl_exchange_rates
WHERE currency = $1 AND rate_date <= $2
ORDER BY rate_date DESC
LIMIT 1`, code, date.UTC()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Decimal{}, currency.ErrMissingRate
	}
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(raw)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCurrency(row rowScanner) (*currency.Currency, error) {
	var c currency.Currency
	err := row.Scan(&c.Code, &c.Symbol, &c.IsBase)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, currency.ErrCurrencyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
