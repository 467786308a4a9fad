package application

import (
	"context"

	ledger "backoffice-ledger/internal/ledger/domain"
	periods "backoffice-ledger/internal/periods/domain"
)

// OpenPeriodUsage answers whether an account still has postings inside
// any open financial year. The registry consults it before letting an
// account be deactivated.
type OpenPeriodUsage struct {
	store ledger.Store
	repo  periods.Repository
}

// NewOpenPeriodUsage constructs the checker.
func NewOpenPeriodUsage(store ledger.Store, repo periods.Repository) *OpenPeriodUsage {
	return &OpenPeriodUsage{store: store, repo: repo}
}

// HasOpenPeriodEntries reports whether any open year contains posted
// lines for the account.
func (u *OpenPeriodUsage) HasOpenPeriodEntries(ctx context.Context, accountID string) (bool, error) {
	years, err := u.repo.List(ctx)
	if err != nil {
		return false, err
	}
	for _, year := range years {
		if year.Status == periods.StatusClosed {
			continue
		}
		found, err := u.store.HasEntries(ctx, accountID, ledger.DateRange{From: year.Start, To: year.End})
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}
