package application

import (
	"context"
	"errors"
	"log"
	"time"

	accounts "backoffice-ledger/internal/accounts/domain"
	"backoffice-ledger/internal/balance"
	"backoffice-ledger/internal/eventing"
	ledger "backoffice-ledger/internal/ledger/domain"
	"backoffice-ledger/internal/observability/metrics"
	periods "backoffice-ledger/internal/periods/domain"
)

// CloseExecutor commits the year close atomically: closing voucher,
// carry-forward opening balances and the status flip land together or
// not at all.
type CloseExecutor interface {
	ExecuteClose(ctx context.Context, year *periods.FinancialYear, closing *ledger.Voucher, nextYearID string, openings []periods.OpeningBalance) (string, error)
}

// Manager owns the financial year lifecycle: Open -> Closing -> Closed.
// Closing is transient and held only in memory; a failed or cancelled
// close leaves the persisted year open.
type Manager struct {
	repo     periods.Repository
	accounts accounts.Repository
	engine   *balance.Engine
	executor CloseExecutor
	bus      *eventing.Bus
	logger   *log.Logger
}

// NewManager constructs a period manager.
func NewManager(repo periods.Repository, accountRepo accounts.Repository, engine *balance.Engine, executor CloseExecutor, bus *eventing.Bus, logger *log.Logger) (*Manager, error) {
	if repo == nil || accountRepo == nil || engine == nil || executor == nil {
		return nil, errors.New("period manager: nil dependency")
	}
	return &Manager{repo: repo, accounts: accountRepo, engine: engine, executor: executor, bus: bus, logger: logger}, nil
}

// CreateYear registers a new open financial year. Years for the same
// ledger must not overlap.
func (m *Manager) CreateYear(ctx context.Context, name string, start, end time.Time) (*periods.FinancialYear, error) {
	if end.Before(start) {
		return nil, periods.ErrInvalidRange
	}
	year := &periods.FinancialYear{
		ID:     periods.NewID(),
		Name:   name,
		Start:  start,
		End:    end,
		Status: periods.StatusOpen,
	}
	existing, err := m.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, other := range existing {
		if year.Overlaps(other) {
			return nil, periods.ErrOverlappingPeriod
		}
	}
	if err := m.repo.Save(ctx, year); err != nil {
		return nil, err
	}
	return year, nil
}

// Years lists all financial years.
func (m *Manager) Years(ctx context.Context) ([]*periods.FinancialYear, error) {
	return m.repo.List(ctx)
}

// CheckDate implements the posting validator's period rule: the date
// must fall inside exactly one financial year, and that year open.
func (m *Manager) CheckDate(ctx context.Context, date time.Time) error {
	year, err := periods.YearContaining(ctx, m.repo, date)
	if err != nil {
		return err
	}
	if year == nil {
		return &ledger.PeriodError{Rule: ledger.ErrNoOpenPeriod, Detail: date.Format("2006-01-02")}
	}
	if year.Status == periods.StatusClosed {
		return &ledger.PeriodError{Rule: ledger.ErrClosedPeriod, Detail: year.Name}
	}
	return nil
}

// CloseYear transitions the year to closed. It posts one balancing
// voucher moving every Income/Expense net into the retained earnings
// account and writes the successor year's opening balances from this
// year's closing balances.
func (m *Manager) CloseYear(ctx context.Context, yearID, retainedEarningsCode, actor string) (string, error) {
	started := time.Now()
	closingID, err := m.closeYear(ctx, yearID, retainedEarningsCode, actor)
	metrics.ObserveYearClose(metrics.ResultLabel(err), time.Since(started))
	return closingID, err
}

func (m *Manager) closeYear(ctx context.Context, yearID, retainedEarningsCode, actor string) (string, error) {
	year, err := m.repo.Get(ctx, yearID)
	if err != nil {
		return "", err
	}
	if year.Status == periods.StatusClosed {
		return "", periods.ErrPeriodAlreadyClosed
	}

	next, err := m.nextYear(ctx, year)
	if err != nil {
		return "", err
	}

	retained, err := m.accounts.GetByCode(ctx, retainedEarningsCode)
	if err != nil || retained.Type != accounts.TypeEquity {
		return "", periods.ErrNoRetainedEarnings
	}

	// Transient validation state. Never persisted; every balance must be
	// computable before the commit is attempted.
	year.Status = periods.StatusClosing

	all, err := m.accounts.List(ctx)
	if err != nil {
		return "", err
	}

	var entries []ledger.Entry
	var netIncome int64 // positive = profit
	nets := make(map[string]int64, len(all))
	for _, account := range all {
		b, err := m.engine.BalanceAsOf(ctx, account.ID, year.End)
		if err != nil {
			return "", err
		}
		nets[account.ID] = b.Net()
		if account.Type != accounts.TypeIncome && account.Type != accounts.TypeExpense {
			continue
		}
		net := b.Net()
		if net == 0 {
			continue
		}
		// Zero the account: post against its normal side.
		side := account.Type.NormalSide().Opposite()
		amount := net
		if amount < 0 {
			side = side.Opposite()
			amount = -amount
		}
		entries = append(entries, ledger.Entry{AccountID: account.ID, Side: side, Amount: amount, BaseAmount: amount})
		if account.Type == accounts.TypeIncome {
			netIncome += net
		} else {
			netIncome -= net
		}
	}

	var closing *ledger.Voucher
	if len(entries) > 0 {
		side := accounts.SideCredit
		amount := netIncome
		if amount < 0 {
			side = accounts.SideDebit
			amount = -amount
		}
		if amount > 0 {
			entries = append(entries, ledger.Entry{AccountID: retained.ID, Side: side, Amount: amount, BaseAmount: amount})
		}

		var debits, credits int64
		for _, entry := range entries {
			if entry.Side == accounts.SideDebit {
				debits += entry.Amount
			} else {
				credits += entry.Amount
			}
		}
		if debits != credits {
			// Should be provably impossible; checked anyway before commit.
			if m.logger != nil {
				m.logger.Printf("LEDGER INTEGRITY VIOLATION: closing voucher for %s: debits %d credits %d", year.Name, debits, credits)
			}
			return "", periods.ErrUnbalancedClosing
		}

		closing = &ledger.Voucher{
			Type:      ledger.TypeJournal,
			Date:      year.End,
			Status:    ledger.StatusDraft,
			Narration: "Year-end closing " + year.Name,
			CreatedBy: actor,
			Entries:   entries,
		}
	}

	openings := m.carryForward(all, nets, retained.ID, netIncome, next.ID)

	closingID, err := m.executor.ExecuteClose(ctx, year, closing, next.ID, openings)
	if err != nil {
		return "", err
	}

	if m.bus != nil {
		_ = m.bus.PublishYearClosed(ctx, eventing.YearClosed{
			YearID:           year.ID,
			ClosingVoucherID: closingID,
			OccurredAt:       time.Now().UTC(),
		})
	}
	return closingID, nil
}

// carryForward builds the successor year's opening rows: Asset,
// Liability and Equity accounts keep their closing balances (retained
// earnings absorbs the net income), Income and Expense restart at zero.
func (m *Manager) carryForward(all []*accounts.Account, nets map[string]int64, retainedID string, netIncome int64, nextYearID string) []periods.OpeningBalance {
	openings := make([]periods.OpeningBalance, 0, len(all))
	for _, account := range all {
		amount := int64(0)
		switch account.Type {
		case accounts.TypeIncome, accounts.TypeExpense:
			// restart at zero
		default:
			amount = nets[account.ID]
			if account.ID == retainedID {
				amount += netIncome
			}
		}
		openings = append(openings, periods.OpeningBalance{
			AccountID: account.ID,
			YearID:    nextYearID,
			Amount:    amount,
		})
	}
	return openings
}

func (m *Manager) nextYear(ctx context.Context, year *periods.FinancialYear) (*periods.FinancialYear, error) {
	years, err := m.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	var next *periods.FinancialYear
	for _, other := range years {
		if !other.Start.After(year.End) {
			continue
		}
		if next == nil || other.Start.Before(next.Start) {
			next = other
		}
	}
	if next == nil {
		return nil, periods.ErrNextYearMissing
	}
	return next, nil
}
