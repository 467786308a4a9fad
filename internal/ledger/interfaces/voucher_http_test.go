package interfaces_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	accounts "backoffice-ledger/internal/accounts/domain"
	accountmemory "backoffice-ledger/internal/accounts/infrastructure/memory"
	"backoffice-ledger/internal/balance"
	currency "backoffice-ledger/internal/currency/domain"
	currencymemory "backoffice-ledger/internal/currency/infrastructure/memory"
	ledgerapp "backoffice-ledger/internal/ledger/application"
	ledger "backoffice-ledger/internal/ledger/domain"
	ledgermemory "backoffice-ledger/internal/ledger/infrastructure/memory"
	"backoffice-ledger/internal/ledger/interfaces"
	periodapp "backoffice-ledger/internal/periods/application"
	periods "backoffice-ledger/internal/periods/domain"
	periodmemory "backoffice-ledger/internal/periods/infrastructure/memory"
)

func newVoucherHandler(t *testing.T) (*interfaces.VoucherHandler, *ledgermemory.Store) {
	t.Helper()
	ctx := context.Background()

	accountRepo := accountmemory.NewRepository()
	for _, code := range []string{"1000", "4000"} {
		typ := accounts.TypeAsset
		if code == "4000" {
			typ = accounts.TypeIncome
		}
		if err := accountRepo.Save(ctx, &accounts.Account{ID: accounts.NewID(), Code: code, Name: code, Type: typ, Active: true}); err != nil {
			t.Fatalf("save account: %v", err)
		}
	}

	currencyRepo := currencymemory.NewRepository()
	if err := currencyRepo.Save(ctx, &currency.Currency{Code: "USD", IsBase: true}); err != nil {
		t.Fatalf("save base currency: %v", err)
	}

	periodRepo := periodmemory.NewRepository()
	if err := periodRepo.Save(ctx, &periods.FinancialYear{
		ID: "fy-2025", Name: "FY2025",
		Start:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		Status: periods.StatusOpen,
	}); err != nil {
		t.Fatalf("save year: %v", err)
	}

	store := ledgermemory.NewStore()
	engine, err := balance.NewEngine(accountRepo, store, periodRepo, nil)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	manager, err := periodapp.NewManager(periodRepo, accountRepo, engine, periodmemory.NewCloseExecutor(periodRepo, store), nil, nil)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	validator, err := ledger.NewValidator(accountRepo, manager, currencyRepo, currencyRepo)
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	posting, err := ledgerapp.NewPostingService(validator, store, manager, nil, nil)
	if err != nil {
		t.Fatalf("posting service: %v", err)
	}
	handler, err := interfaces.NewVoucherHandler(posting, nil)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	return handler, store
}

func submitBody(voucherType string) string {
	return `{
		"type": "` + voucherType + `",
		"date": "2025-03-01",
		"narration": "Cash sale",
		"entries": [
			{"account_code": "1000", "debit": 50000},
			{"account_code": "4000", "credit": 50000}
		]
	}`
}

func TestSubmitRejectsUnknownVoucherType(t *testing.T) {
	handler, store := newVoucherHandler(t)

	for _, voucherType := range []string{"journol", "invoice", ""} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/vouchers", strings.NewReader(submitBody(voucherType)))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("type %q: status = %d, want 400", voucherType, resp.Code)
		}
	}

	seq, err := store.SnapshotSeq(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if seq != 0 {
		t.Fatalf("rejected submits must not append, seq = %d", seq)
	}
}

func TestSubmitPostsValidVoucher(t *testing.T) {
	handler, store := newVoucherHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/vouchers", strings.NewReader(submitBody("journal")))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		VoucherID string `json:"voucher_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.VoucherID == "" {
		t.Fatal("missing voucher_id")
	}

	voucher, err := store.Get(context.Background(), body.VoucherID)
	if err != nil {
		t.Fatalf("get voucher: %v", err)
	}
	if voucher.Type != ledger.TypeJournal || voucher.Status != ledger.StatusPosted {
		t.Fatalf("voucher = %+v", voucher)
	}
}
