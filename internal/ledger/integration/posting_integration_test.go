package integration

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	accounts "backoffice-ledger/internal/accounts/domain"
	accountmemory "backoffice-ledger/internal/accounts/infrastructure/memory"
	"backoffice-ledger/internal/balance"
	currency "backoffice-ledger/internal/currency/domain"
	currencymemory "backoffice-ledger/internal/currency/infrastructure/memory"
	"backoffice-ledger/internal/eventing"
	ledgerapp "backoffice-ledger/internal/ledger/application"
	ledger "backoffice-ledger/internal/ledger/domain"
	ledgermemory "backoffice-ledger/internal/ledger/infrastructure/memory"
	periodapp "backoffice-ledger/internal/periods/application"
	periods "backoffice-ledger/internal/periods/domain"
	periodmemory "backoffice-ledger/internal/periods/infrastructure/memory"
)

type fixture struct {
	accounts   *accountmemory.Repository
	currencies *currencymemory.Repository
	periods    *periodmemory.Repository
	store      *ledgermemory.Store
	engine     *balance.Engine
	manager    *periodapp.Manager
	posting    *ledgerapp.PostingService
	ids        map[string]string // code -> account id
}

func date(value string) time.Time {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return parsed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := log.New(os.Stdout, "", 0)

	f := &fixture{
		accounts:   accountmemory.NewRepository(),
		currencies: currencymemory.NewRepository(),
		periods:    periodmemory.NewRepository(),
		store:      ledgermemory.NewStore(),
		ids:        make(map[string]string),
	}

	if err := f.currencies.Save(ctx, &currency.Currency{Code: "USD", IsBase: true}); err != nil {
		t.Fatalf("save base currency: %v", err)
	}

	years := []*periods.FinancialYear{
		{ID: "fy-2025", Name: "FY2025", Start: date("2025-01-01"), End: date("2025-12-31"), Status: periods.StatusOpen},
		{ID: "fy-2026", Name: "FY2026", Start: date("2026-01-01"), End: date("2026-12-31"), Status: periods.StatusOpen},
	}
	for _, year := range years {
		if err := f.periods.Save(ctx, year); err != nil {
			t.Fatalf("save year: %v", err)
		}
	}

	chart := []struct {
		code string
		name string
		typ  accounts.AccountType
	}{
		{"1000", "Cash", accounts.TypeAsset},
		{"2000", "Accounts Payable", accounts.TypeLiability},
		{"3000", "Share Capital", accounts.TypeEquity},
		{"3900", "Retained Earnings", accounts.TypeEquity},
		{"4000", "Sales Revenue", accounts.TypeIncome},
		{"5000", "Rent Expense", accounts.TypeExpense},
	}
	for _, spec := range chart {
		account := &accounts.Account{
			ID:     accounts.NewID(),
			Code:   spec.code,
			Name:   spec.name,
			Type:   spec.typ,
			Active: true,
		}
		if err := f.accounts.Save(ctx, account); err != nil {
			t.Fatalf("save account %s: %v", spec.code, err)
		}
		f.ids[spec.code] = account.ID
	}

	bus := eventing.NewBus()
	cache := balance.NewCache(nil, nil)
	cache.SubscribeInvalidation(bus, f.periods)

	engine, err := balance.NewEngine(f.accounts, f.store, f.periods, cache)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	f.engine = engine

	executor := periodmemory.NewCloseExecutor(f.periods, f.store)
	manager, err := periodapp.NewManager(f.periods, f.accounts, engine, executor, bus, logger)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	f.manager = manager

	validator, err := ledger.NewValidator(f.accounts, manager, f.currencies, f.currencies)
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	posting, err := ledgerapp.NewPostingService(validator, f.store, manager, bus, logger)
	if err != nil {
		t.Fatalf("posting service: %v", err)
	}
	f.posting = posting
	return f
}

func (f *fixture) submit(t *testing.T, day string, entries ...ledger.DraftEntry) string {
	t.Helper()
	id, err := f.posting.Submit(context.Background(), ledger.DraftVoucher{
		Type:    ledger.TypeJournal,
		Date:    date(day),
		Entries: entries,
	})
	if err != nil {
		t.Fatalf("submit voucher: %v", err)
	}
	return id
}

func (f *fixture) net(t *testing.T, code, day string) int64 {
	t.Helper()
	b, err := f.engine.BalanceAsOf(context.Background(), f.ids[code], date(day))
	if err != nil {
		t.Fatalf("balance of %s: %v", code, err)
	}
	return b.Net()
}

func TestSubmitBalancedVoucher(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, "2025-03-01",
		ledger.DraftEntry{AccountCode: "1000", Debit: 50000},
		ledger.DraftEntry{AccountCode: "4000", Credit: 50000},
	)

	voucher, err := f.posting.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get voucher: %v", err)
	}
	if voucher.Status != ledger.StatusPosted {
		t.Fatalf("expected posted, got %s", voucher.Status)
	}
	if voucher.Sequence != 1 {
		t.Fatalf("expected sequence 1, got %d", voucher.Sequence)
	}
	if got := f.net(t, "1000", "2025-03-01"); got != 50000 {
		t.Fatalf("cash balance = %d, want 50000", got)
	}
	if got := f.net(t, "4000", "2025-03-01"); got != 50000 {
		t.Fatalf("sales balance = %d, want 50000", got)
	}
}

func TestSubmitUnbalancedRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.posting.Submit(context.Background(), ledger.DraftVoucher{
		Type: ledger.TypeJournal,
		Date: date("2025-03-01"),
		Entries: []ledger.DraftEntry{
			{AccountCode: "1000", Debit: 100},
			{AccountCode: "4000", Credit: 99},
		},
	})
	if !errors.Is(err, ledger.ErrUnbalanced) {
		t.Fatalf("expected ErrUnbalanced, got %v", err)
	}
	seq, err := f.store.SnapshotSeq(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if seq != 0 {
		t.Fatalf("rejected voucher must not be recorded, seq = %d", seq)
	}
}

func TestSubmitUnknownAccountRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.posting.Submit(context.Background(), ledger.DraftVoucher{
		Type: ledger.TypeJournal,
		Date: date("2025-03-01"),
		Entries: []ledger.DraftEntry{
			{AccountCode: "9999", Debit: 100},
			{AccountCode: "4000", Credit: 100},
		},
	})
	if !errors.Is(err, ledger.ErrUnknownAccount) {
		t.Fatalf("expected ErrUnknownAccount, got %v", err)
	}
}

func TestSubmitMalformedEntryRejected(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name  string
		entry ledger.DraftEntry
	}{
		{"both sides", ledger.DraftEntry{AccountCode: "1000", Debit: 100, Credit: 100}},
		{"neither side", ledger.DraftEntry{AccountCode: "1000"}},
		{"negative", ledger.DraftEntry{AccountCode: "1000", Debit: -100}},
	}
	for _, tc := range cases {
		_, err := f.posting.Submit(context.Background(), ledger.DraftVoucher{
			Type:    ledger.TypeJournal,
			Date:    date("2025-03-01"),
			Entries: []ledger.DraftEntry{tc.entry, {AccountCode: "4000", Credit: 100}},
		})
		if !errors.Is(err, ledger.ErrMalformedEntry) {
			t.Fatalf("%s: expected ErrMalformedEntry, got %v", tc.name, err)
		}
	}
}

func TestSubmitDeactivatedAccountRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account, err := f.accounts.Get(ctx, f.ids["2000"])
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	account.Active = false
	if err := f.accounts.Update(ctx, account); err != nil {
		t.Fatalf("update account: %v", err)
	}

	_, err = f.posting.Submit(ctx, ledger.DraftVoucher{
		Type: ledger.TypeJournal,
		Date: date("2025-03-01"),
		Entries: []ledger.DraftEntry{
			{AccountCode: "1000", Debit: 100},
			{AccountCode: "2000", Credit: 100},
		},
	})
	if !errors.Is(err, ledger.ErrUnknownAccount) {
		t.Fatalf("expected ErrUnknownAccount, got %v", err)
	}
}

func TestSubmitOutsideAnyYearRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.posting.Submit(context.Background(), ledger.DraftVoucher{
		Type: ledger.TypeJournal,
		Date: date("2030-01-01"),
		Entries: []ledger.DraftEntry{
			{AccountCode: "1000", Debit: 100},
			{AccountCode: "4000", Credit: 100},
		},
	})
	if !errors.Is(err, ledger.ErrNoOpenPeriod) {
		t.Fatalf("expected ErrNoOpenPeriod, got %v", err)
	}
}

func TestForeignCurrencyTranslationFrozen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.currencies.Save(ctx, &currency.Currency{Code: "EUR"}); err != nil {
		t.Fatalf("save currency: %v", err)
	}
	rate, _ := decimal.NewFromString("1.10")
	if err := f.currencies.PutRate(ctx, currency.ExchangeRate{Currency: "EUR", Rate: rate, RateDate: date("2025-02-01")}); err != nil {
		t.Fatalf("put rate: %v", err)
	}

	id, err := f.posting.Submit(ctx, ledger.DraftVoucher{
		Type:     ledger.TypeJournal,
		Date:     date("2025-03-01"),
		Currency: "EUR",
		Entries: []ledger.DraftEntry{
			{AccountCode: "1000", Debit: 10000},
			{AccountCode: "4000", Credit: 10000},
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	voucher, err := f.posting.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for _, entry := range voucher.Entries {
		if entry.Amount != 10000 {
			t.Fatalf("entry amount = %d, want 10000", entry.Amount)
		}
		if entry.BaseAmount != 11000 {
			t.Fatalf("entry base amount = %d, want 11000", entry.BaseAmount)
		}
	}

	// A later rate must not change what was frozen at posting time.
	later, _ := decimal.NewFromString("2.00")
	if err := f.currencies.PutRate(ctx, currency.ExchangeRate{Currency: "EUR", Rate: later, RateDate: date("2025-03-02")}); err != nil {
		t.Fatalf("put rate: %v", err)
	}
	if got := f.net(t, "1000", "2025-12-31"); got != 11000 {
		t.Fatalf("cash balance = %d, want 11000", got)
	}
}

func TestMissingExchangeRateRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.currencies.Save(ctx, &currency.Currency{Code: "EUR"}); err != nil {
		t.Fatalf("save currency: %v", err)
	}
	rate, _ := decimal.NewFromString("1.10")
	// Rate exists, but only after the voucher date.
	if err := f.currencies.PutRate(ctx, currency.ExchangeRate{Currency: "EUR", Rate: rate, RateDate: date("2025-06-01")}); err != nil {
		t.Fatalf("put rate: %v", err)
	}

	_, err := f.posting.Submit(ctx, ledger.DraftVoucher{
		Type:     ledger.TypeJournal,
		Date:     date("2025-03-01"),
		Currency: "EUR",
		Entries: []ledger.DraftEntry{
			{AccountCode: "1000", Debit: 10000},
			{AccountCode: "4000", Credit: 10000},
		},
	})
	if !errors.Is(err, ledger.ErrMissingExchangeRate) {
		t.Fatalf("expected ErrMissingExchangeRate, got %v", err)
	}
}

func TestReversalRestoresBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.submit(t, "2025-03-01",
		ledger.DraftEntry{AccountCode: "5000", Debit: 20000},
		ledger.DraftEntry{AccountCode: "1000", Credit: 20000},
	)
	if got := f.net(t, "5000", "2025-03-31"); got != 20000 {
		t.Fatalf("rent balance = %d, want 20000", got)
	}

	reversalID, err := f.posting.Reverse(ctx, ledgerapp.ReverseParams{VoucherID: id, Date: date("2025-04-01")})
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}

	if got := f.net(t, "5000", "2025-04-30"); got != 0 {
		t.Fatalf("rent balance after reversal = %d, want 0", got)
	}
	if got := f.net(t, "1000", "2025-04-30"); got != 0 {
		t.Fatalf("cash balance after reversal = %d, want 0", got)
	}

	original, err := f.posting.Get(ctx, id)
	if err != nil {
		t.Fatalf("get original: %v", err)
	}
	if original.Status != ledger.StatusReversed || original.ReversedBy != reversalID {
		t.Fatalf("original not linked: status=%s reversed_by=%s", original.Status, original.ReversedBy)
	}
	reversal, err := f.posting.Get(ctx, reversalID)
	if err != nil {
		t.Fatalf("get reversal: %v", err)
	}
	if reversal.ReversalOf != id {
		t.Fatalf("reversal not linked: reversal_of=%s", reversal.ReversalOf)
	}
}

func TestDoubleReversalRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.submit(t, "2025-03-01",
		ledger.DraftEntry{AccountCode: "1000", Debit: 100},
		ledger.DraftEntry{AccountCode: "4000", Credit: 100},
	)
	if _, err := f.posting.Reverse(ctx, ledgerapp.ReverseParams{VoucherID: id, Date: date("2025-03-02")}); err != nil {
		t.Fatalf("first reverse: %v", err)
	}
	_, err := f.posting.Reverse(ctx, ledgerapp.ReverseParams{VoucherID: id, Date: date("2025-03-03")})
	if !errors.Is(err, ledger.ErrAlreadyReversed) {
		t.Fatalf("expected ErrAlreadyReversed, got %v", err)
	}
}

func TestSequencesAreGapFreeAndOrdered(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.submit(t, "2025-03-01",
			ledger.DraftEntry{AccountCode: "1000", Debit: 100},
			ledger.DraftEntry{AccountCode: "4000", Credit: 100},
		)
	}
	vouchers, err := f.store.Vouchers(context.Background(), ledger.DateRange{})
	if err != nil {
		t.Fatalf("vouchers: %v", err)
	}
	if len(vouchers) != 5 {
		t.Fatalf("expected 5 vouchers, got %d", len(vouchers))
	}
	for i, voucher := range vouchers {
		if voucher.Sequence != int64(i+1) {
			t.Fatalf("voucher %d has sequence %d", i, voucher.Sequence)
		}
	}
}
