package balance

import (
	"context"
	"sync"

	"backoffice-ledger/internal/eventing"
	periods "backoffice-ledger/internal/periods/domain"
)

type cacheKey struct {
	accountID string
	yearID    string
}

type cacheValue struct {
	sums     DebitCredit
	snapshot int64
}

// Cache memoizes full-year balance folds keyed by (account, year). An
// entry is dropped as soon as a new voucher touches the account inside
// the year, so a hit is always equivalent to re-folding.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]cacheValue

	hits   func()
	misses func()
}

// NewCache constructs a Cache. The hit/miss callbacks may be nil; the
// metrics package supplies them in production wiring.
func NewCache(onHit, onMiss func()) *Cache {
	return &Cache{entries: make(map[cacheKey]cacheValue), hits: onHit, misses: onMiss}
}

// Get returns a memoized fold computed at or before the snapshot.
func (c *Cache) Get(accountID, yearID string, snapshot int64) (DebitCredit, bool) {
	c.mu.RLock()
	value, ok := c.entries[cacheKey{accountID: accountID, yearID: yearID}]
	c.mu.RUnlock()
	if !ok || value.snapshot > snapshot {
		if c.misses != nil {
			c.misses()
		}
		return DebitCredit{}, false
	}
	if c.hits != nil {
		c.hits()
	}
	return value.sums, true
}

// Put stores a fold result.
func (c *Cache) Put(accountID, yearID string, snapshot int64, sums DebitCredit) {
	c.mu.Lock()
	c.entries[cacheKey{accountID: accountID, yearID: yearID}] = cacheValue{sums: sums, snapshot: snapshot}
	c.mu.Unlock()
}

// Invalidate drops memoized folds for the given accounts in one year.
func (c *Cache) Invalidate(accountIDs []string, yearID string) {
	c.mu.Lock()
	for _, accountID := range accountIDs {
		delete(c.entries, cacheKey{accountID: accountID, yearID: yearID})
	}
	c.mu.Unlock()
}

// SubscribeInvalidation wires the cache to posting events: a posted
// voucher drops the memoized folds of every account it touches in the
// year containing its date.
func (c *Cache) SubscribeInvalidation(bus *eventing.Bus, periodRepo periods.Repository) {
	bus.SubscribeVoucherPosted(func(ctx context.Context, event eventing.VoucherPosted) error {
		year, err := periods.YearContaining(ctx, periodRepo, event.Date)
		if err != nil || year == nil {
			return nil
		}
		c.Invalidate(event.AccountIDs, year.ID)
		return nil
	})
	// A close posts the closing voucher outside the posting service, so
	// drop everything rather than track which folds it touched.
	bus.SubscribeYearClosed(func(context.Context, eventing.YearClosed) error {
		c.mu.Lock()
		c.entries = make(map[cacheKey]cacheValue)
		c.mu.Unlock()
		return nil
	})
}
