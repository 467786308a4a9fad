package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	accounts "backoffice-ledger/internal/accounts/domain"
	"backoffice-ledger/internal/observability/metrics"
	"backoffice-ledger/internal/reports"
)

// ReportHandler handles reporting APIs.
type ReportHandler struct {
	generator   *reports.Generator
	accounts    accounts.Repository
	cashCodes   []string
	categorizer reports.Categorizer
}

// NewReportHandler constructs a handler. cashCodes names the accounts
// treated as cash or bank for the cash flow statement.
func NewReportHandler(generator *reports.Generator, accountRepo accounts.Repository, cashCodes []string, categorizer reports.Categorizer) (*ReportHandler, error) {
	if generator == nil || accountRepo == nil {
		return nil, errors.New("report handler: nil dependency")
	}
	return &ReportHandler{generator: generator, accounts: accountRepo, cashCodes: cashCodes, categorizer: categorizer}, nil
}

// ServeHTTP handles report routes under /api/v1/reports.
func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/reports/")
	switch path {
	case "trial-balance":
		h.handleTrialBalance(w, r)
	case "trial-balance/export.csv":
		h.handleTrialBalanceExport(w, r, "csv")
	case "trial-balance/export.xlsx":
		h.handleTrialBalanceExport(w, r, "xlsx")
	case "trial-balance/export.pdf":
		h.handleTrialBalanceExport(w, r, "pdf")
	case "profit-and-loss":
		h.handleProfitAndLoss(w, r)
	case "profit-and-loss/export.csv":
		h.handleProfitAndLossExport(w, r)
	case "balance-sheet":
		h.handleBalanceSheet(w, r)
	case "balance-sheet/export.xlsx":
		h.handleBalanceSheetExport(w, r)
	case "cash-flow":
		h.handleCashFlow(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func parseDateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", raw)
}

func (h *ReportHandler) asOf(r *http.Request) (time.Time, error) {
	asOf, err := parseDateParam(r, "as_of")
	if err != nil {
		return time.Time{}, err
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	return asOf, nil
}

func (h *ReportHandler) handleTrialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		http.Error(w, "invalid as_of date", http.StatusBadRequest)
		return
	}
	report, err := h.generator.TrialBalance(r.Context(), asOf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

func (h *ReportHandler) handleTrialBalanceExport(w http.ResponseWriter, r *http.Request, format string) {
	result := metrics.ResultSuccess
	defer func() { metrics.ObserveReportExport("trial_balance", format, result) }()

	asOf, err := h.asOf(r)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "invalid as_of date", http.StatusBadRequest)
		return
	}
	report, err := h.generator.TrialBalance(r.Context(), asOf)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var data []byte
	contentType := ""
	switch format {
	case "csv":
		data, err = BuildTrialBalanceCSV(report)
		contentType = "text/csv"
	case "xlsx":
		data, err = BuildTrialBalanceXLSX(report)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "pdf":
		data, err = BuildTrialBalancePDF(report)
		contentType = "application/pdf"
	}
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *ReportHandler) rangeParams(r *http.Request) (time.Time, time.Time, error) {
	from, err := parseDateParam(r, "from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	return from, to, nil
}

func (h *ReportHandler) handleProfitAndLoss(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.rangeParams(r)
	if err != nil {
		http.Error(w, "invalid date range", http.StatusBadRequest)
		return
	}
	report, err := h.generator.ProfitAndLoss(r.Context(), from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

func (h *ReportHandler) handleProfitAndLossExport(w http.ResponseWriter, r *http.Request) {
	result := metrics.ResultSuccess
	defer func() { metrics.ObserveReportExport("profit_and_loss", "csv", result) }()

	from, to, err := h.rangeParams(r)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "invalid date range", http.StatusBadRequest)
		return
	}
	report, err := h.generator.ProfitAndLoss(r.Context(), from, to)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := BuildProfitAndLossCSV(report)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *ReportHandler) handleBalanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		http.Error(w, "invalid as_of date", http.StatusBadRequest)
		return
	}
	report, err := h.generator.BalanceSheet(r.Context(), asOf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

func (h *ReportHandler) handleBalanceSheetExport(w http.ResponseWriter, r *http.Request) {
	result := metrics.ResultSuccess
	defer func() { metrics.ObserveReportExport("balance_sheet", "xlsx", result) }()

	asOf, err := h.asOf(r)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "invalid as_of date", http.StatusBadRequest)
		return
	}
	report, err := h.generator.BalanceSheet(r.Context(), asOf)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := BuildBalanceSheetXLSX(report)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *ReportHandler) handleCashFlow(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.rangeParams(r)
	if err != nil {
		http.Error(w, "invalid date range", http.StatusBadRequest)
		return
	}
	cashIDs, err := h.resolveCashAccounts(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	report, err := h.generator.CashFlow(r.Context(), from, to, cashIDs, h.categorizer)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

// resolveCashAccounts maps configured cash account codes to ids. A
// cash query parameter overrides the configured set.
func (h *ReportHandler) resolveCashAccounts(r *http.Request) ([]string, error) {
	codes := h.cashCodes
	if raw := r.URL.Query().Get("cash"); raw != "" {
		codes = strings.Split(raw, ",")
	}
	ids := make([]string, 0, len(codes))
	for _, code := range codes {
		account, err := h.accounts.GetByCode(r.Context(), strings.TrimSpace(code))
		if err != nil {
			return nil, err
		}
		ids = append(ids, account.ID)
	}
	return ids, nil
}
