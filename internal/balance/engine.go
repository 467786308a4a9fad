package balance

import (
	"context"
	"errors"
	"time"

	accounts "backoffice-ledger/internal/accounts/domain"
	ledger "backoffice-ledger/internal/ledger/domain"
	periods "backoffice-ledger/internal/periods/domain"
)

// DebitCredit carries gross debit and credit sums for an account, in
// base-currency minor units. The two sums are accumulated separately
// and only netted at presentation time.
type DebitCredit struct {
	Debit  int64
	Credit int64
}

// Add folds one posted line into the sums.
func (dc DebitCredit) Add(side accounts.Side, amount int64) DebitCredit {
	if side == accounts.SideDebit {
		dc.Debit += amount
	} else {
		dc.Credit += amount
	}
	return dc
}

// Net returns the signed balance on the given normal side: positive
// when the balance sits on that side.
func (dc DebitCredit) Net(normal accounts.Side) int64 {
	if normal == accounts.SideDebit {
		return dc.Debit - dc.Credit
	}
	return dc.Credit - dc.Debit
}

// AccountBalance is the engine's answer for one account as of a date.
type AccountBalance struct {
	AccountID string
	Type      accounts.AccountType
	DebitCredit
}

// Net returns the signed balance on the account's normal side.
func (b AccountBalance) Net() int64 {
	return b.DebitCredit.Net(b.Type.NormalSide())
}

// Engine computes point-in-time account balances from opening balances
// plus posted entries. All arithmetic is integral minor units; entries
// are folded in ascending (date, sequence) order against a snapshot
// sequence fixed when the query starts.
type Engine struct {
	accounts accounts.Repository
	store    ledger.Store
	periods  periods.Repository
	cache    *Cache
}

// NewEngine constructs a balance engine. The cache may be nil.
func NewEngine(accountRepo accounts.Repository, store ledger.Store, periodRepo periods.Repository, cache *Cache) (*Engine, error) {
	if accountRepo == nil || store == nil || periodRepo == nil {
		return nil, errors.New("balance engine: nil dependency")
	}
	return &Engine{accounts: accountRepo, store: store, periods: periodRepo, cache: cache}, nil
}

// BalanceAsOf returns the account's gross debit/credit sums as of the
// date (inclusive).
func (e *Engine) BalanceAsOf(ctx context.Context, accountID string, date time.Time) (AccountBalance, error) {
	snapshot, err := e.store.SnapshotSeq(ctx)
	if err != nil {
		return AccountBalance{}, err
	}
	return e.balanceAt(ctx, accountID, date, snapshot, nil)
}

// TrialBalanceAsOf returns gross sums for every active account as of
// the date, all read against one snapshot sequence.
func (e *Engine) TrialBalanceAsOf(ctx context.Context, date time.Time) (map[string]AccountBalance, error) {
	snapshot, err := e.store.SnapshotSeq(ctx)
	if err != nil {
		return nil, err
	}
	all, err := e.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	openings, err := e.openingsFor(ctx, date)
	if err != nil {
		return nil, err
	}

	out := make(map[string]AccountBalance, len(all))
	for _, account := range all {
		if !account.Active {
			continue
		}
		b, err := e.balanceAt(ctx, account.ID, date, snapshot, openings)
		if err != nil {
			return nil, err
		}
		out[account.ID] = b
	}
	return out, nil
}

// openingsLookup indexes stored carry-forward balances for one year.
type openingsLookup struct {
	year *periods.FinancialYear
	rows map[string]int64
}

func (e *Engine) openingsFor(ctx context.Context, date time.Time) (*openingsLookup, error) {
	year, err := periods.YearContaining(ctx, e.periods, date)
	if err != nil {
		return nil, err
	}
	lookup := &openingsLookup{year: year, rows: map[string]int64{}}
	if year == nil {
		return lookup, nil
	}
	rows, err := e.periods.OpeningBalances(ctx, year.ID)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		lookup.rows[row.AccountID] = row.Amount
	}
	return lookup, nil
}

// balanceAt folds one account. When a stored carry-forward balance
// exists for the year containing the date, the fold starts there and
// covers only that year; otherwise it starts from the account-level
// opening balance and covers the whole ledger history up to the date.
func (e *Engine) balanceAt(ctx context.Context, accountID string, date time.Time, snapshot int64, openings *openingsLookup) (AccountBalance, error) {
	account, err := e.accounts.Get(ctx, accountID)
	if err != nil {
		return AccountBalance{}, err
	}
	if openings == nil {
		openings, err = e.openingsFor(ctx, date)
		if err != nil {
			return AccountBalance{}, err
		}
	}

	normal := account.Type.NormalSide()
	balance := AccountBalance{AccountID: account.ID, Type: account.Type}

	r := ledger.DateRange{To: date}
	opening := account.OpeningBalance
	yearID := ""
	if openings.year != nil {
		yearID = openings.year.ID
		if stored, ok := openings.rows[account.ID]; ok {
			opening = stored
			r.From = openings.year.Start
		}
	}
	balance.DebitCredit = openingSums(opening, normal)

	if e.cache != nil && openings.year != nil && !date.Before(openings.year.End) {
		if cached, ok := e.cache.Get(account.ID, yearID, snapshot); ok {
			balance.DebitCredit = cached
			return balance, nil
		}
	}

	entries, err := e.store.EntriesForAccount(ctx, account.ID, r, snapshot)
	if err != nil {
		return AccountBalance{}, err
	}
	for _, entry := range entries {
		balance.DebitCredit = balance.DebitCredit.Add(entry.Side, entry.BaseAmount)
	}

	// Full-year balances are worth memoizing: closing and year-end
	// reports ask for them repeatedly.
	if e.cache != nil && openings.year != nil && !date.Before(openings.year.End) {
		e.cache.Put(account.ID, yearID, snapshot, balance.DebitCredit)
	}
	return balance, nil
}

// openingSums seeds the gross sums from a signed opening balance:
// positive amounts sit on the account's normal side.
func openingSums(amount int64, normal accounts.Side) DebitCredit {
	var dc DebitCredit
	switch {
	case amount == 0:
	case amount > 0:
		dc = dc.Add(normal, amount)
	default:
		dc = dc.Add(normal.Opposite(), -amount)
	}
	return dc
}
