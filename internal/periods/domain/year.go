package periods

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

// YearStatus is the lifecycle state of a financial year. Closing is a
// transient validation state held only in memory during the close
// operation; a year is never persisted as closing.
type YearStatus string

const (
	StatusOpen    YearStatus = "open"
	StatusClosing YearStatus = "closing"
	StatusClosed  YearStatus = "closed"
)

// FinancialYear is a bounded accounting period. Start and End are
// inclusive dates; years for the same ledger never overlap. Once closed
// a year is terminal.
type FinancialYear struct {
	ID     string
	Name   string
	Start  time.Time
	End    time.Time
	Status YearStatus
}

// Contains reports whether the date falls inside the year.
func (y *FinancialYear) Contains(date time.Time) bool {
	return !date.Before(y.Start) && !date.After(y.End)
}

// Overlaps reports whether the two year ranges intersect.
func (y *FinancialYear) Overlaps(other *FinancialYear) bool {
	return !y.End.Before(other.Start) && !other.End.Before(y.Start)
}

// OpeningBalance is the carry-forward balance written for an account
// when the preceding year closes. Amount is signed in minor units:
// positive on the account's normal side.
type OpeningBalance struct {
	AccountID string
	YearID    string
	Amount    int64
}

// Repository persists financial years and carry-forward balances.
type Repository interface {
	Get(ctx context.Context, id string) (*FinancialYear, error)
	List(ctx context.Context) ([]*FinancialYear, error)
	Save(ctx context.Context, year *FinancialYear) error
	OpeningBalances(ctx context.Context, yearID string) ([]OpeningBalance, error)
}

// YearContaining returns the year whose range contains the date, or nil
// when no year covers it. Non-overlap makes the answer unique.
func YearContaining(ctx context.Context, repo Repository, date time.Time) (*FinancialYear, error) {
	years, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, year := range years {
		if year.Contains(date) {
			return year, nil
		}
	}
	return nil, nil
}

// NewID generates a random financial year id.
func NewID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return "fy-" + hex.EncodeToString(buf)
}
