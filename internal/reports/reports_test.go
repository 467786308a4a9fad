package reports_test

import (
	"context"
	"testing"
	"time"

	accounts "backoffice-ledger/internal/accounts/domain"
	accountmemory "backoffice-ledger/internal/accounts/infrastructure/memory"
	"backoffice-ledger/internal/balance"
	ledger "backoffice-ledger/internal/ledger/domain"
	ledgermemory "backoffice-ledger/internal/ledger/infrastructure/memory"
	periods "backoffice-ledger/internal/periods/domain"
	periodmemory "backoffice-ledger/internal/periods/infrastructure/memory"
	"backoffice-ledger/internal/reports"
)

type reportFixture struct {
	accounts  *accountmemory.Repository
	store     *ledgermemory.Store
	generator *reports.Generator
	ids       map[string]string
}

func day(value string) time.Time {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return parsed
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	ctx := context.Background()
	f := &reportFixture{
		accounts: accountmemory.NewRepository(),
		store:    ledgermemory.NewStore(),
		ids:      make(map[string]string),
	}

	periodRepo := periodmemory.NewRepository()
	if err := periodRepo.Save(ctx, &periods.FinancialYear{
		ID: "fy-2025", Name: "FY2025", Start: day("2025-01-01"), End: day("2025-12-31"), Status: periods.StatusOpen,
	}); err != nil {
		t.Fatalf("save year: %v", err)
	}

	chart := []struct {
		code string
		name string
		typ  accounts.AccountType
	}{
		{"1000", "Cash", accounts.TypeAsset},
		{"1500", "Equipment", accounts.TypeAsset},
		{"2000", "Accounts Payable", accounts.TypeLiability},
		{"2500", "Bank Loan", accounts.TypeLiability},
		{"3000", "Share Capital", accounts.TypeEquity},
		{"4000", "Sales Revenue", accounts.TypeIncome},
		{"5000", "Rent Expense", accounts.TypeExpense},
	}
	for _, spec := range chart {
		account := &accounts.Account{ID: accounts.NewID(), Code: spec.code, Name: spec.name, Type: spec.typ, Active: true}
		if err := f.accounts.Save(ctx, account); err != nil {
			t.Fatalf("save account: %v", err)
		}
		f.ids[spec.code] = account.ID
	}

	engine, err := balance.NewEngine(f.accounts, f.store, periodRepo, nil)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	generator, err := reports.NewGenerator(engine, f.accounts, f.store)
	if err != nil {
		t.Fatalf("generator: %v", err)
	}
	f.generator = generator
	return f
}

func (f *reportFixture) append(t *testing.T, date, debitCode, creditCode string, amount int64) {
	t.Helper()
	voucher := &ledger.Voucher{
		Type: ledger.TypeJournal,
		Date: day(date),
		Entries: []ledger.Entry{
			{AccountID: f.ids[debitCode], Side: accounts.SideDebit, Amount: amount, BaseAmount: amount},
			{AccountID: f.ids[creditCode], Side: accounts.SideCredit, Amount: amount, BaseAmount: amount},
		},
	}
	if _, err := f.store.Append(context.Background(), voucher); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestTrialBalanceSingleSale(t *testing.T) {
	f := newReportFixture(t)
	f.append(t, "2025-03-01", "1000", "4000", 250000)

	report, err := f.generator.TrialBalance(context.Background(), day("2025-12-31"))
	if err != nil {
		t.Fatalf("trial balance: %v", err)
	}
	if len(report.Lines) != 2 {
		t.Fatalf("lines = %d, want 2 (zero balances omitted)", len(report.Lines))
	}
	if report.Lines[0].Code != "1000" || report.Lines[0].Debit != 250000 || report.Lines[0].Credit != 0 {
		t.Fatalf("cash line = %+v", report.Lines[0])
	}
	if report.Lines[1].Code != "4000" || report.Lines[1].Credit != 250000 || report.Lines[1].Debit != 0 {
		t.Fatalf("sales line = %+v", report.Lines[1])
	}
	if report.TotalDebit != report.TotalCredit || report.TotalDebit != 250000 {
		t.Fatalf("totals = %d / %d", report.TotalDebit, report.TotalCredit)
	}
}

func TestTrialBalanceNetsEachAccount(t *testing.T) {
	f := newReportFixture(t)
	f.append(t, "2025-03-01", "1000", "4000", 250000)
	f.append(t, "2025-04-01", "5000", "1000", 90000)

	report, err := f.generator.TrialBalance(context.Background(), day("2025-12-31"))
	if err != nil {
		t.Fatalf("trial balance: %v", err)
	}
	for _, line := range report.Lines {
		if line.Code == "1000" {
			// 250000 debit against 90000 credit shows as one net figure.
			if line.Debit != 160000 || line.Credit != 0 {
				t.Fatalf("cash line = %+v", line)
			}
		}
	}
	if report.TotalDebit != report.TotalCredit {
		t.Fatalf("totals differ: %d / %d", report.TotalDebit, report.TotalCredit)
	}
}

func TestProfitAndLossRangeIsStartExclusive(t *testing.T) {
	f := newReportFixture(t)
	f.append(t, "2025-02-01", "1000", "4000", 250000)
	f.append(t, "2025-06-30", "1000", "4000", 50000)
	f.append(t, "2025-09-01", "1000", "4000", 100000)
	f.append(t, "2025-10-01", "5000", "1000", 30000)

	report, err := f.generator.ProfitAndLoss(context.Background(), day("2025-06-30"), day("2025-12-31"))
	if err != nil {
		t.Fatalf("profit and loss: %v", err)
	}
	// Activity on the from date itself is excluded.
	if report.TotalIncome != 100000 {
		t.Fatalf("income = %d, want 100000", report.TotalIncome)
	}
	if report.TotalExpense != 30000 {
		t.Fatalf("expense = %d, want 30000", report.TotalExpense)
	}
	if report.NetProfit != 70000 {
		t.Fatalf("net profit = %d, want 70000", report.NetProfit)
	}

	full, err := f.generator.ProfitAndLoss(context.Background(), time.Time{}, day("2025-12-31"))
	if err != nil {
		t.Fatalf("profit and loss: %v", err)
	}
	if full.TotalIncome != 400000 {
		t.Fatalf("full-year income = %d, want 400000", full.TotalIncome)
	}
}

func TestBalanceSheetIdentity(t *testing.T) {
	f := newReportFixture(t)
	f.append(t, "2025-01-05", "1000", "3000", 500000)
	f.append(t, "2025-01-10", "1000", "2500", 200000)
	f.append(t, "2025-02-01", "1500", "1000", 80000)

	report, err := f.generator.BalanceSheet(context.Background(), day("2025-12-31"))
	if err != nil {
		t.Fatalf("balance sheet: %v", err)
	}
	if report.TotalAssets != 700000 {
		t.Fatalf("assets = %d, want 700000", report.TotalAssets)
	}
	if report.TotalAssets != report.TotalLiabilities+report.TotalEquity {
		t.Fatalf("identity broken: %d != %d + %d", report.TotalAssets, report.TotalLiabilities, report.TotalEquity)
	}
	if len(report.Assets) != 2 || report.Assets[0].Code != "1000" || report.Assets[1].Code != "1500" {
		t.Fatalf("asset lines = %+v", report.Assets)
	}
}

func TestCashFlowBuckets(t *testing.T) {
	f := newReportFixture(t)
	// Before the range: capital injection, fixes the opening position.
	f.append(t, "2025-01-05", "1000", "3000", 500000)
	// In range: a sale, an equipment purchase and a loan drawdown.
	f.append(t, "2025-03-01", "1000", "4000", 250000)
	f.append(t, "2025-04-01", "1500", "1000", 80000)
	f.append(t, "2025-05-01", "1000", "2500", 120000)
	// Non-cash voucher must not contribute.
	f.append(t, "2025-06-01", "5000", "2000", 40000)

	categories := map[string]reports.Category{
		f.ids["1500"]: reports.CategoryInvesting,
		f.ids["2500"]: reports.CategoryFinancing,
	}
	categorizer := reports.CategorizerFunc(func(accountID string) (reports.Category, bool) {
		c, ok := categories[accountID]
		return c, ok
	})

	report, err := f.generator.CashFlow(
		context.Background(), day("2025-01-31"), day("2025-12-31"),
		[]string{f.ids["1000"]}, categorizer,
	)
	if err != nil {
		t.Fatalf("cash flow: %v", err)
	}
	if report.Operating != 250000 {
		t.Fatalf("operating = %d, want 250000", report.Operating)
	}
	if report.Investing != -80000 {
		t.Fatalf("investing = %d, want -80000", report.Investing)
	}
	if report.Financing != 120000 {
		t.Fatalf("financing = %d, want 120000", report.Financing)
	}
	if report.NetChange != 290000 {
		t.Fatalf("net change = %d, want 290000", report.NetChange)
	}
	if report.OpeningCash != 500000 {
		t.Fatalf("opening cash = %d, want 500000", report.OpeningCash)
	}
	if report.ClosingCash != 790000 {
		t.Fatalf("closing cash = %d, want 790000", report.ClosingCash)
	}
	if report.ClosingCash != report.OpeningCash+report.NetChange {
		t.Fatalf("positions inconsistent: %d != %d + %d", report.ClosingCash, report.OpeningCash, report.NetChange)
	}
}

func TestCashFlowDefaultsToOperating(t *testing.T) {
	f := newReportFixture(t)
	f.append(t, "2025-03-01", "1000", "4000", 100000)

	report, err := f.generator.CashFlow(context.Background(), time.Time{}, day("2025-12-31"), []string{f.ids["1000"]}, nil)
	if err != nil {
		t.Fatalf("cash flow: %v", err)
	}
	if report.Operating != 100000 || report.Investing != 0 || report.Financing != 0 {
		t.Fatalf("uncategorized movement must land in operating: %+v", report)
	}
}
