package memory

import (
	"context"
	"sort"
	"sync"

	ledger "backoffice-ledger/internal/ledger/domain"
	ledgermemory "backoffice-ledger/internal/ledger/infrastructure/memory"
	periods "backoffice-ledger/internal/periods/domain"
)

// Repository is an in-memory financial year repository.
type Repository struct {
	mu       sync.RWMutex
	years    map[string]*periods.FinancialYear
	openings map[string][]periods.OpeningBalance // keyed by year id
}

// NewRepository constructs a repository.
func NewRepository() *Repository {
	return &Repository{
		years:    make(map[string]*periods.FinancialYear),
		openings: make(map[string][]periods.OpeningBalance),
	}
}

// Get loads a year by id.
func (r *Repository) Get(ctx context.Context, id string) (*periods.FinancialYear, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	year, ok := r.years[id]
	if !ok {
		return nil, periods.ErrPeriodNotFound
	}
	copied := *year
	return &copied, nil
}

// List returns every year ordered by start date.
func (r *Repository) List(ctx context.Context) ([]*periods.FinancialYear, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*periods.FinancialYear, 0, len(r.years))
	for _, year := range r.years {
		copied := *year
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// Save inserts or updates a year.
func (r *Repository) Save(ctx context.Context, year *periods.FinancialYear) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *year
	r.years[year.ID] = &copied
	return nil
}

// OpeningBalances returns carry-forward balances written for the year.
func (r *Repository) OpeningBalances(ctx context.Context, yearID string) ([]periods.OpeningBalance, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	rows := r.openings[yearID]
	out := make([]periods.OpeningBalance, len(rows))
	copy(out, rows)
	return out, nil
}

// CloseExecutor commits a year close against the in-memory stores. The
// closing voucher is appended first (atomically in the ledger store);
// the remaining writes are pure in-process map updates that cannot
// fail, so a caller never observes a half-closed year.
type CloseExecutor struct {
	repo  *Repository
	store *ledgermemory.Store
}

// NewCloseExecutor constructs an executor.
func NewCloseExecutor(repo *Repository, store *ledgermemory.Store) *CloseExecutor {
	return &CloseExecutor{repo: repo, store: store}
}

// ExecuteClose appends the closing voucher, writes the successor year's
// opening balances and marks the year closed. A nil closing voucher
// means the year had no income or expense activity.
func (e *CloseExecutor) ExecuteClose(ctx context.Context, year *periods.FinancialYear, closing *ledger.Voucher, nextYearID string, openings []periods.OpeningBalance) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	closingID := ""
	if closing != nil {
		id, err := e.store.Append(ctx, closing)
		if err != nil {
			return "", err
		}
		closingID = id
	}

	e.repo.mu.Lock()
	rows := make([]periods.OpeningBalance, len(openings))
	copy(rows, openings)
	e.repo.openings[nextYearID] = rows
	if stored, ok := e.repo.years[year.ID]; ok {
		stored.Status = periods.StatusClosed
	}
	e.repo.mu.Unlock()
	return closingID, nil
}
