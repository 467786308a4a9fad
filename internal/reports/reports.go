package reports

import (
	"context"
	"errors"
	"sort"
	"time"

	accounts "backoffice-ledger/internal/accounts/domain"
	"backoffice-ledger/internal/balance"
	ledger "backoffice-ledger/internal/ledger/domain"
	"backoffice-ledger/internal/observability/metrics"
)

// Generator derives the standard reports from balance engine output.
// It keeps no state of its own.
type Generator struct {
	engine   *balance.Engine
	accounts accounts.Repository
	store    ledger.Store
}

// NewGenerator constructs a report generator.
func NewGenerator(engine *balance.Engine, accountRepo accounts.Repository, store ledger.Store) (*Generator, error) {
	if engine == nil || accountRepo == nil || store == nil {
		return nil, errors.New("report generator: nil dependency")
	}
	return &Generator{engine: engine, accounts: accountRepo, store: store}, nil
}

// TrialBalanceLine is one account's net position: exactly one of
// Debit/Credit is set, whichever side the balance sits on.
type TrialBalanceLine struct {
	AccountID string
	Code      string
	Name      string
	Type      accounts.AccountType
	Debit     int64
	Credit    int64
}

// TrialBalanceReport lists every active account with a non-zero net
// balance as of a date. TotalDebit always equals TotalCredit.
type TrialBalanceReport struct {
	AsOf        time.Time
	Lines       []TrialBalanceLine
	TotalDebit  int64
	TotalCredit int64
}

// TrialBalance builds the trial balance as of the date.
func (g *Generator) TrialBalance(ctx context.Context, asOf time.Time) (*TrialBalanceReport, error) {
	started := time.Now()
	report, err := g.trialBalance(ctx, asOf)
	metrics.ObserveReport("trial_balance", metrics.ResultLabel(err), time.Since(started))
	return report, err
}

func (g *Generator) trialBalance(ctx context.Context, asOf time.Time) (*TrialBalanceReport, error) {
	balances, err := g.engine.TrialBalanceAsOf(ctx, asOf)
	if err != nil {
		return nil, err
	}
	all, err := g.accounts.List(ctx)
	if err != nil {
		return nil, err
	}

	report := &TrialBalanceReport{AsOf: asOf}
	for _, account := range all {
		b, ok := balances[account.ID]
		if !ok {
			continue
		}
		netDebit := b.Debit - b.Credit
		if netDebit == 0 {
			continue
		}
		line := TrialBalanceLine{
			AccountID: account.ID,
			Code:      account.Code,
			Name:      account.Name,
			Type:      account.Type,
		}
		if netDebit > 0 {
			line.Debit = netDebit
			report.TotalDebit += netDebit
		} else {
			line.Credit = -netDebit
			report.TotalCredit += -netDebit
		}
		report.Lines = append(report.Lines, line)
	}
	sort.Slice(report.Lines, func(i, j int) bool { return report.Lines[i].Code < report.Lines[j].Code })
	return report, nil
}

// AccountAmount is an account with its net amount for a report section.
type AccountAmount struct {
	AccountID string
	Code      string
	Name      string
	Amount    int64
}

// ProfitAndLossReport covers a date range, start-exclusive and
// end-inclusive.
type ProfitAndLossReport struct {
	From         time.Time
	To           time.Time
	Income       []AccountAmount
	Expenses     []AccountAmount
	TotalIncome  int64
	TotalExpense int64
	NetProfit    int64
}

// ProfitAndLoss builds the income statement for (from, to].
func (g *Generator) ProfitAndLoss(ctx context.Context, from, to time.Time) (*ProfitAndLossReport, error) {
	started := time.Now()
	report, err := g.profitAndLoss(ctx, from, to)
	metrics.ObserveReport("profit_and_loss", metrics.ResultLabel(err), time.Since(started))
	return report, err
}

func (g *Generator) profitAndLoss(ctx context.Context, from, to time.Time) (*ProfitAndLossReport, error) {
	all, err := g.accounts.List(ctx)
	if err != nil {
		return nil, err
	}

	report := &ProfitAndLossReport{From: from, To: to}
	for _, account := range all {
		if !account.Active {
			continue
		}
		if account.Type != accounts.TypeIncome && account.Type != accounts.TypeExpense {
			continue
		}
		amount, err := g.rangeNet(ctx, account.ID, from, to)
		if err != nil {
			return nil, err
		}
		if amount == 0 {
			continue
		}
		line := AccountAmount{AccountID: account.ID, Code: account.Code, Name: account.Name, Amount: amount}
		if account.Type == accounts.TypeIncome {
			report.Income = append(report.Income, line)
			report.TotalIncome += amount
		} else {
			report.Expenses = append(report.Expenses, line)
			report.TotalExpense += amount
		}
	}
	sortAmounts(report.Income)
	sortAmounts(report.Expenses)
	report.NetProfit = report.TotalIncome - report.TotalExpense
	return report, nil
}

// rangeNet is the difference of two point-in-time balances: the net as
// of to minus the net as of from.
func (g *Generator) rangeNet(ctx context.Context, accountID string, from, to time.Time) (int64, error) {
	end, err := g.engine.BalanceAsOf(ctx, accountID, to)
	if err != nil {
		return 0, err
	}
	if from.IsZero() {
		return end.Net(), nil
	}
	start, err := g.engine.BalanceAsOf(ctx, accountID, from)
	if err != nil {
		return 0, err
	}
	return end.Net() - start.Net(), nil
}

// BalanceSheetReport is the position as of a single date. After a
// correct closing, TotalAssets equals TotalLiabilities + TotalEquity.
type BalanceSheetReport struct {
	AsOf             time.Time
	Assets           []AccountAmount
	Liabilities      []AccountAmount
	Equity           []AccountAmount
	TotalAssets      int64
	TotalLiabilities int64
	TotalEquity      int64
}

// BalanceSheet builds the balance sheet as of the date.
func (g *Generator) BalanceSheet(ctx context.Context, asOf time.Time) (*BalanceSheetReport, error) {
	started := time.Now()
	report, err := g.balanceSheet(ctx, asOf)
	metrics.ObserveReport("balance_sheet", metrics.ResultLabel(err), time.Since(started))
	return report, err
}

func (g *Generator) balanceSheet(ctx context.Context, asOf time.Time) (*BalanceSheetReport, error) {
	balances, err := g.engine.TrialBalanceAsOf(ctx, asOf)
	if err != nil {
		return nil, err
	}
	all, err := g.accounts.List(ctx)
	if err != nil {
		return nil, err
	}

	report := &BalanceSheetReport{AsOf: asOf}
	for _, account := range all {
		b, ok := balances[account.ID]
		if !ok {
			continue
		}
		net := b.Net()
		if net == 0 {
			continue
		}
		line := AccountAmount{AccountID: account.ID, Code: account.Code, Name: account.Name, Amount: net}
		switch account.Type {
		case accounts.TypeAsset:
			report.Assets = append(report.Assets, line)
			report.TotalAssets += net
		case accounts.TypeLiability:
			report.Liabilities = append(report.Liabilities, line)
			report.TotalLiabilities += net
		case accounts.TypeEquity:
			report.Equity = append(report.Equity, line)
			report.TotalEquity += net
		}
	}
	sortAmounts(report.Assets)
	sortAmounts(report.Liabilities)
	sortAmounts(report.Equity)
	return report, nil
}

func sortAmounts(lines []AccountAmount) {
	sort.Slice(lines, func(i, j int) bool { return lines[i].Code < lines[j].Code })
}
