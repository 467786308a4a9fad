package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"backoffice-ledger/internal/audit"
	"backoffice-ledger/internal/auth"

	"backoffice-ledger/internal/accounts/application"
	accounts "backoffice-ledger/internal/accounts/domain"
	ledger "backoffice-ledger/internal/ledger/domain"
)

// LedgerBrowser lists an account's posted lines; the posting service
// implements it.
type LedgerBrowser interface {
	EntriesForAccount(ctx context.Context, accountID string, r ledger.DateRange) ([]ledger.AccountEntry, error)
}

// AccountHandler handles chart-of-accounts APIs.
type AccountHandler struct {
	service     *application.RegistryService
	browser     LedgerBrowser
	auditLogger audit.Logger
}

// NewAccountHandler constructs a handler. The browser may be nil, which
// disables the account ledger endpoint.
func NewAccountHandler(service *application.RegistryService, browser LedgerBrowser, auditLogger audit.Logger) (*AccountHandler, error) {
	if service == nil {
		return nil, errors.New("account handler: nil service")
	}
	return &AccountHandler{service: service, browser: browser, auditLogger: auditLogger}, nil
}

type accountDTO struct {
	ID             string `json:"id"`
	Code           string `json:"code"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	ParentID       string `json:"parent_id,omitempty"`
	OpeningBalance int64  `json:"opening_balance"`
	Currency       string `json:"currency,omitempty"`
	Active         bool   `json:"active"`
}

func toAccountDTO(a *accounts.Account) accountDTO {
	return accountDTO{
		ID:             a.ID,
		Code:           a.Code,
		Name:           a.Name,
		Type:           string(a.Type),
		ParentID:       a.ParentID,
		OpeningBalance: a.OpeningBalance,
		Currency:       a.Currency,
		Active:         a.Active,
	}
}

// ServeHTTP handles account routes under /api/v1/accounts.
func (h *AccountHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/accounts" {
		switch r.Method {
		case http.MethodPost:
			h.handleCreate(w, r)
		case http.MethodGet:
			h.handleList(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}
	if strings.HasPrefix(path, "/api/v1/accounts/") {
		rest := strings.TrimPrefix(path, "/api/v1/accounts/")
		h.handleByID(w, r, rest)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *AccountHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code           string `json:"code"`
		Name           string `json:"name"`
		Type           string `json:"type"`
		ParentCode     string `json:"parent_code"`
		OpeningBalance int64  `json:"opening_balance"`
		Currency       string `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	accountType, ok := accounts.NormalizeType(req.Type)
	if !ok {
		http.Error(w, "invalid account type", http.StatusBadRequest)
		return
	}
	account, err := h.service.CreateAccount(r.Context(), application.CreateAccountParams{
		Code:           req.Code,
		Name:           req.Name,
		Type:           accountType,
		ParentCode:     req.ParentCode,
		OpeningBalance: req.OpeningBalance,
		Currency:       req.Currency,
	})
	if err != nil {
		respondAccountError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toAccountDTO(account))
	h.logAudit(r, account.ID, "account.create", map[string]any{"code": account.Code, "type": account.Type})
}

func (h *AccountHandler) handleList(w http.ResponseWriter, r *http.Request) {
	if code := r.URL.Query().Get("code"); code != "" {
		account, err := h.service.ResolveByCode(r.Context(), code)
		if err != nil {
			respondAccountError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toAccountDTO(account))
		return
	}
	list, err := h.service.List(r.Context())
	if err != nil {
		respondAccountError(w, err)
		return
	}
	out := make([]accountDTO, 0, len(list))
	for _, account := range list {
		out = append(out, toAccountDTO(account))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *AccountHandler) handleByID(w http.ResponseWriter, r *http.Request, rest string) {
	if rest == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	if len(parts) == 1 && r.Method == http.MethodGet {
		h.handleGet(w, r, id)
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "rename":
			if r.Method == http.MethodPost {
				h.handleRename(w, r, id)
				return
			}
		case "deactivate":
			if r.Method == http.MethodPost {
				h.handleDeactivate(w, r, id)
				return
			}
		case "tree":
			if r.Method == http.MethodGet {
				h.handleTree(w, r, id)
				return
			}
		case "ledger":
			if r.Method == http.MethodGet {
				h.handleLedger(w, r, id)
				return
			}
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *AccountHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	tree, err := h.service.TreeOf(r.Context(), id)
	if err != nil {
		respondAccountError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toAccountDTO(tree[0]))
}

func (h *AccountHandler) handleRename(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := h.service.RenameAccount(r.Context(), id, req.Name); err != nil {
		respondAccountError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	h.logAudit(r, id, "account.rename", map[string]any{"name": req.Name})
}

func (h *AccountHandler) handleDeactivate(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Override bool `json:"override"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if err := h.service.DeactivateAccount(r.Context(), id, req.Override); err != nil {
		respondAccountError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	h.logAudit(r, id, "account.deactivate", map[string]any{"override": req.Override})
}

func (h *AccountHandler) handleTree(w http.ResponseWriter, r *http.Request, id string) {
	tree, err := h.service.TreeOf(r.Context(), id)
	if err != nil {
		respondAccountError(w, err)
		return
	}
	out := make([]accountDTO, 0, len(tree))
	for _, account := range tree {
		out = append(out, toAccountDTO(account))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *AccountHandler) handleLedger(w http.ResponseWriter, r *http.Request, id string) {
	if h.browser == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	var dateRange ledger.DateRange
	if from := r.URL.Query().Get("from"); from != "" {
		parsed, err := time.Parse("2006-01-02", from)
		if err != nil {
			http.Error(w, "invalid from date", http.StatusBadRequest)
			return
		}
		dateRange.From = parsed
	}
	if to := r.URL.Query().Get("to"); to != "" {
		parsed, err := time.Parse("2006-01-02", to)
		if err != nil {
			http.Error(w, "invalid to date", http.StatusBadRequest)
			return
		}
		dateRange.To = parsed
	}
	entries, err := h.browser.EntriesForAccount(r.Context(), id, dateRange)
	if err != nil {
		respondAccountError(w, err)
		return
	}
	type lineDTO struct {
		VoucherID  string `json:"voucher_id"`
		Sequence   int64  `json:"sequence"`
		Date       string `json:"date"`
		Side       string `json:"side"`
		Amount     int64  `json:"amount"`
		BaseAmount int64  `json:"base_amount"`
	}
	out := make([]lineDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, lineDTO{
			VoucherID:  entry.VoucherID,
			Sequence:   entry.Sequence,
			Date:       entry.Date.Format("2006-01-02"),
			Side:       string(entry.Side),
			Amount:     entry.Amount,
			BaseAmount: entry.BaseAmount,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *AccountHandler) logAudit(r *http.Request, accountID, action string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	payload, _ := json.Marshal(meta)
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:         auth.SubjectFromContext(r.Context()),
		Role:          string(auth.RoleFromContext(r.Context())),
		Action:        action,
		ResourceType:  "account",
		ResourceID:    accountID,
		Metadata:      payload,
		PayloadDigest: audit.DigestJSON(payload),
		IP:            audit.ClientIP(r),
		UserAgent:     r.UserAgent(),
	})
}

func respondAccountError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, accounts.ErrAccountNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, accounts.ErrDuplicateCode):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, accounts.ErrAccountInUse):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
