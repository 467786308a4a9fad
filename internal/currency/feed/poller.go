package feed

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	currency "backoffice-ledger/internal/currency/domain"
)

// Poller periodically pulls the feed's latest quotes and stores them as
// exchange rates. Posting never waits on the feed; the validator only
// reads rates already persisted.
type Poller struct {
	client   *Client
	repo     currency.Repository
	base     string
	interval time.Duration
	logger   *log.Logger
}

// NewPoller constructs a poller. The interval defaults to one hour.
func NewPoller(client *Client, repo currency.Repository, base string, interval time.Duration, logger *log.Logger) *Poller {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Poller{client: client, repo: repo, base: base, interval: interval, logger: logger}
}

// Run polls until the context is cancelled. The first poll fires
// immediately.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		if n, err := p.PollOnce(ctx); err != nil {
			p.logger.Printf("rate feed poll error: %v", err)
		} else if n > 0 {
			p.logger.Printf("rate feed: stored %d rates", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// PollOnce fetches the latest quotes and stores each parseable one,
// returning the number stored. A malformed quote is logged and skipped;
// one bad row must not block the rest of the batch.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	quotes, err := p.client.Latest(ctx, p.base)
	if err != nil {
		return 0, err
	}
	stored := 0
	for _, quote := range quotes {
		rate, err := decimal.NewFromString(quote.Rate)
		if err != nil || rate.Sign() <= 0 {
			p.logger.Printf("rate feed: dropping %s quote %q", quote.Currency, quote.Rate)
			continue
		}
		date, err := time.Parse("2006-01-02", quote.Date)
		if err != nil {
			p.logger.Printf("rate feed: dropping %s quote dated %q", quote.Currency, quote.Date)
			continue
		}
		if err := p.repo.PutRate(ctx, currency.ExchangeRate{Currency: quote.Currency, Rate: rate, RateDate: date}); err != nil {
			p.logger.Printf("rate feed: store %s rate: %v", quote.Currency, err)
			continue
		}
		stored++
	}
	return stored, nil
}
