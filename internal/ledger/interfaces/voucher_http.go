package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"backoffice-ledger/internal/audit"
	"backoffice-ledger/internal/auth"

	"backoffice-ledger/internal/ledger/application"
	ledger "backoffice-ledger/internal/ledger/domain"
)

// VoucherHandler handles posting APIs.
type VoucherHandler struct {
	service     *application.PostingService
	auditLogger audit.Logger
}

// NewVoucherHandler constructs a handler.
func NewVoucherHandler(service *application.PostingService, auditLogger audit.Logger) (*VoucherHandler, error) {
	if service == nil {
		return nil, errors.New("voucher handler: nil service")
	}
	return &VoucherHandler{service: service, auditLogger: auditLogger}, nil
}

type entryDTO struct {
	AccountID  string `json:"account_id"`
	Side       string `json:"side"`
	Amount     int64  `json:"amount"`
	BaseAmount int64  `json:"base_amount"`
}

type voucherDTO struct {
	ID         string     `json:"id"`
	Sequence   int64      `json:"sequence"`
	Type       string     `json:"type"`
	Date       string     `json:"date"`
	Status     string     `json:"status"`
	Narration  string     `json:"narration,omitempty"`
	Currency   string     `json:"currency,omitempty"`
	CreatedBy  string     `json:"created_by,omitempty"`
	Entries    []entryDTO `json:"entries"`
	ReversalOf string     `json:"reversal_of,omitempty"`
	ReversedBy string     `json:"reversed_by,omitempty"`
	PostedAt   time.Time  `json:"posted_at"`
}

func toVoucherDTO(v *ledger.Voucher) voucherDTO {
	dto := voucherDTO{
		ID:         v.ID,
		Sequence:   v.Sequence,
		Type:       string(v.Type),
		Date:       v.Date.Format("2006-01-02"),
		Status:     string(v.Status),
		Narration:  v.Narration,
		Currency:   v.Currency,
		CreatedBy:  v.CreatedBy,
		ReversalOf: v.ReversalOf,
		ReversedBy: v.ReversedBy,
		PostedAt:   v.PostedAt,
	}
	for _, e := range v.Entries {
		dto.Entries = append(dto.Entries, entryDTO{
			AccountID:  e.AccountID,
			Side:       string(e.Side),
			Amount:     e.Amount,
			BaseAmount: e.BaseAmount,
		})
	}
	return dto
}

// ServeHTTP handles voucher routes under /api/v1/vouchers.
func (h *VoucherHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/vouchers" && r.Method == http.MethodPost {
		h.handleSubmit(w, r)
		return
	}
	if strings.HasPrefix(path, "/api/v1/vouchers/") {
		rest := strings.TrimPrefix(path, "/api/v1/vouchers/")
		h.handleByID(w, r, rest)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *VoucherHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type      string `json:"type"`
		Date      string `json:"date"`
		Narration string `json:"narration"`
		Currency  string `json:"currency"`
		Entries   []struct {
			AccountCode string `json:"account_code"`
			Debit       int64  `json:"debit"`
			Credit      int64  `json:"credit"`
		} `json:"entries"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	voucherType, ok := ledger.NormalizeVoucherType(req.Type)
	if !ok {
		http.Error(w, "unknown voucher type", http.StatusBadRequest)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	draft := ledger.DraftVoucher{
		Type:      voucherType,
		Date:      date,
		Narration: req.Narration,
		Currency:  req.Currency,
		CreatedBy: auth.SubjectFromContext(r.Context()),
	}
	for _, e := range req.Entries {
		draft.Entries = append(draft.Entries, ledger.DraftEntry{
			AccountCode: e.AccountCode,
			Debit:       e.Debit,
			Credit:      e.Credit,
		})
	}

	id, err := h.service.Submit(r.Context(), draft)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"voucher_id": id})
	h.logAudit(r, id, "voucher.post", map[string]any{
		"type":     string(voucherType),
		"date":     req.Date,
		"currency": req.Currency,
		"lines":    len(req.Entries),
	})
}

func (h *VoucherHandler) handleByID(w http.ResponseWriter, r *http.Request, rest string) {
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
	if len(parts) == 2 && parts[1] == "reverse" && r.Method == http.MethodPost {
		h.handleReverse(w, r, id)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *VoucherHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	voucher, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toVoucherDTO(voucher))
}

func (h *VoucherHandler) handleReverse(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Date string `json:"date"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	params := application.ReverseParams{
		VoucherID: id,
		Actor:     auth.SubjectFromContext(r.Context()),
	}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
		params.Date = date
	}
	reversalID, err := h.service.Reverse(r.Context(), params)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"reversal_id": reversalID})
	h.logAudit(r, id, "voucher.reverse", map[string]any{"reversal_id": reversalID, "date": req.Date})
}

func (h *VoucherHandler) logAudit(r *http.Request, voucherID, action string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	payload, _ := json.Marshal(meta)
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:         auth.SubjectFromContext(r.Context()),
		Role:          string(auth.RoleFromContext(r.Context())),
		Action:        action,
		ResourceType:  "voucher",
		ResourceID:    voucherID,
		Metadata:      payload,
		PayloadDigest: audit.DigestJSON(payload),
		IP:            audit.ClientIP(r),
		UserAgent:     r.UserAgent(),
	})
}

func respondLedgerError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, ledger.ErrVoucherNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ledger.ErrAlreadyReversed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ledger.ErrClosedPeriod), errors.Is(err, ledger.ErrNoOpenPeriod):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		var integrity *ledger.IntegrityError
		if errors.As(err, &integrity) {
			http.Error(w, "ledger integrity violation", http.StatusInternalServerError)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
