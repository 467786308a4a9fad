package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	currency "backoffice-ledger/internal/currency/domain"
)

// Repository is an in-memory currency and exchange-rate repository.
type Repository struct {
	mu         sync.RWMutex
	currencies map[string]*currency.Currency
	rates      map[string][]currency.ExchangeRate // per currency, ascending rate date
}

// NewRepository constructs a repository.
func NewRepository() *Repository {
	return &Repository{
		currencies: make(map[string]*currency.Currency),
		rates:      make(map[string][]currency.ExchangeRate),
	}
}

// Base returns the base currency.
func (r *Repository) Base(ctx context.Context) (*currency.Currency, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.currencies {
		if c.IsBase {
			copied := *c
			return &copied, nil
		}
	}
	return nil, currency.ErrNoBaseCurrency
}

// Get returns the currency with the given code.
func (r *Repository) Get(ctx context.Context, code string) (*currency.Currency, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.currencies[code]
	if !ok {
		return nil, currency.ErrCurrencyNotFound
	}
	copied := *c
	return &copied, nil
}

// Save inserts or updates a currency, enforcing the single-base rule.
func (r *Repository) Save(ctx context.Context, c *currency.Currency) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.IsBase {
		for code, existing := range r.currencies {
			if existing.IsBase && code != c.Code {
				return currency.ErrDuplicateBase
			}
		}
	}
	copied := *c
	r.currencies[c.Code] = &copied
	return nil
}

// PutRate stores one feed observation.
func (r *Repository) PutRate(ctx context.Context, rate currency.ExchangeRate) error {
	_ = ctx
	if rate.Rate.LessThanOrEqual(decimal.Zero) {
		return currency.ErrInvalidRate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list := append(r.rates[rate.Currency], rate)
	sort.Slice(list, func(i, j int) bool { return list[i].RateDate.Before(list[j].RateDate) })
	r.rates[rate.Currency] = list
	return nil
}

// RateOn returns the most recent rate effective on or before the date.
func (r *Repository) RateOn(ctx context.Context, code string, date time.Time) (decimal.Decimal, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.rates[code]
	for i := len(list) - 1; i >= 0; i-- {
		if !list[i].RateDate.After(date) {
			return list[i].Rate, nil
		}
	}
	return decimal.Decimal{}, currency.ErrMissingRate
}
