package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"backoffice-ledger/internal/audit"
	"backoffice-ledger/internal/auth"

	currency "backoffice-ledger/internal/currency/domain"
)

// RateHandler handles currency and exchange rate APIs. Rates arrive
// from an external feed; the ledger itself never writes them.
type RateHandler struct {
	repo        currency.Repository
	auditLogger audit.Logger
}

// NewRateHandler constructs a handler.
func NewRateHandler(repo currency.Repository, auditLogger audit.Logger) (*RateHandler, error) {
	if repo == nil {
		return nil, errors.New("rate handler: nil repository")
	}
	return &RateHandler{repo: repo, auditLogger: auditLogger}, nil
}

// ServeHTTP handles /api/v1/currencies and /api/v1/rates.
func (h *RateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/currencies" && r.Method == http.MethodPost:
		h.handleCreateCurrency(w, r)
	case r.URL.Path == "/api/v1/rates" && r.Method == http.MethodPost:
		h.handleIngestRates(w, r)
	case r.URL.Path == "/api/v1/rates" && r.Method == http.MethodGet:
		h.handleLookup(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *RateHandler) handleCreateCurrency(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code   string `json:"code"`
		Symbol string `json:"symbol"`
		IsBase bool   `json:"is_base"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	err := h.repo.Save(r.Context(), &currency.Currency{Code: req.Code, Symbol: req.Symbol, IsBase: req.IsBase})
	if err != nil {
		respondCurrencyError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	h.logAudit(r, req.Code, "currency.create", map[string]any{"is_base": req.IsBase})
}

// handleIngestRates accepts a batch of feed observations.
func (h *RateHandler) handleIngestRates(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rates []struct {
			Currency string `json:"currency"`
			Rate     string `json:"rate"`
			Date     string `json:"date"`
		} `json:"rates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	accepted := 0
	for _, row := range req.Rates {
		rate, err := decimal.NewFromString(row.Rate)
		if err != nil || rate.Sign() <= 0 {
			respondCurrencyError(w, currency.ErrInvalidRate)
			return
		}
		date, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			http.Error(w, "invalid rate date", http.StatusBadRequest)
			return
		}
		err = h.repo.PutRate(r.Context(), currency.ExchangeRate{
			Currency: row.Currency,
			Rate:     rate,
			RateDate: date,
		})
		if err != nil {
			respondCurrencyError(w, err)
			return
		}
		accepted++
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"accepted": accepted})
	h.logAudit(r, "", "rates.ingest", map[string]any{"count": accepted})
}

func (h *RateHandler) handleLookup(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	dateRaw := r.URL.Query().Get("date")
	if code == "" || dateRaw == "" {
		http.Error(w, "code and date required", http.StatusBadRequest)
		return
	}
	date, err := time.Parse("2006-01-02", dateRaw)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	rate, err := h.repo.RateOn(r.Context(), code, date)
	if err != nil {
		respondCurrencyError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"currency": code, "date": dateRaw, "rate": rate.String()})
}

func (h *RateHandler) logAudit(r *http.Request, resourceID, action string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	payload, _ := json.Marshal(meta)
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:         auth.SubjectFromContext(r.Context()),
		Role:          string(auth.RoleFromContext(r.Context())),
		Action:        action,
		ResourceType:  "currency",
		ResourceID:    resourceID,
		Metadata:      payload,
		PayloadDigest: audit.DigestJSON(payload),
		IP:            audit.ClientIP(r),
		UserAgent:     r.UserAgent(),
	})
}

func respondCurrencyError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, currency.ErrCurrencyNotFound), errors.Is(err, currency.ErrMissingRate):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, currency.ErrDuplicateBase):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
