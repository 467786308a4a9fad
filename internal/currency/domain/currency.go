package currency

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Currency is a bookkeeping currency. Exactly one currency is the ledger
// base; all non-base postings are translated into it at posting time.
type Currency struct {
	Code   string
	Symbol string
	IsBase bool
}

// ExchangeRate is one rate observation from the external feed: one unit
// of Currency equals Rate units of the base currency from RateDate on.
type ExchangeRate struct {
	Currency string
	Rate     decimal.Decimal
	RateDate time.Time
}

// RateProvider resolves the rate effective on a date: the most recent
// rate with rate_date on or before the given date, never a later one.
type RateProvider interface {
	RateOn(ctx context.Context, code string, date time.Time) (decimal.Decimal, error)
}

// Repository persists currencies and feed-supplied exchange rates. The
// ledger itself only reads rates; PutRate exists for the feed ingester.
type Repository interface {
	RateProvider
	Base(ctx context.Context) (*Currency, error)
	Get(ctx context.Context, code string) (*Currency, error)
	Save(ctx context.Context, c *Currency) error
	PutRate(ctx context.Context, rate ExchangeRate) error
}

// Translate converts a minor-unit amount using the given rate, rounding
// half up to minor units. All downstream arithmetic stays integral.
func Translate(amount int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(rate).Round(0).IntPart()
}
