package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"backoffice-ledger/internal/audit"
	"backoffice-ledger/internal/auth"

	"backoffice-ledger/internal/periods/application"
	periods "backoffice-ledger/internal/periods/domain"
)

// YearHandler handles financial year APIs.
type YearHandler struct {
	manager     *application.Manager
	auditLogger audit.Logger
}

// NewYearHandler constructs a handler.
func NewYearHandler(manager *application.Manager, auditLogger audit.Logger) (*YearHandler, error) {
	if manager == nil {
		return nil, errors.New("year handler: nil manager")
	}
	return &YearHandler{manager: manager, auditLogger: auditLogger}, nil
}

type yearDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Status string `json:"status"`
}

func toYearDTO(y *periods.FinancialYear) yearDTO {
	return yearDTO{
		ID:     y.ID,
		Name:   y.Name,
		Start:  y.Start.Format("2006-01-02"),
		End:    y.End.Format("2006-01-02"),
		Status: string(y.Status),
	}
}

// ServeHTTP handles year routes under /api/v1/years.
func (h *YearHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/years" {
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
	if strings.HasPrefix(path, "/api/v1/years/") {
		rest := strings.TrimPrefix(path, "/api/v1/years/")
		parts := strings.Split(rest, "/")
		if len(parts) == 2 && parts[1] == "close" && r.Method == http.MethodPost {
			h.handleClose(w, r, parts[0])
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *YearHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Start string `json:"start"`
		End   string `json:"end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	start, err := time.Parse("2006-01-02", req.Start)
	if err != nil {
		http.Error(w, "invalid start date", http.StatusBadRequest)
		return
	}
	end, err := time.Parse("2006-01-02", req.End)
	if err != nil {
		http.Error(w, "invalid end date", http.StatusBadRequest)
		return
	}
	year, err := h.manager.CreateYear(r.Context(), req.Name, start, end)
	if err != nil {
		respondPeriodError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toYearDTO(year))
	h.logAudit(r, year.ID, "year.create", map[string]any{"name": req.Name, "start": req.Start, "end": req.End})
}

func (h *YearHandler) handleList(w http.ResponseWriter, r *http.Request) {
	years, err := h.manager.Years(r.Context())
	if err != nil {
		respondPeriodError(w, err)
		return
	}
	out := make([]yearDTO, 0, len(years))
	for _, year := range years {
		out = append(out, toYearDTO(year))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *YearHandler) handleClose(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		RetainedEarningsCode string `json:"retained_earnings_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	actor := auth.SubjectFromContext(r.Context())
	closingID, err := h.manager.CloseYear(r.Context(), id, req.RetainedEarningsCode, actor)
	if err != nil {
		respondPeriodError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"closing_voucher_id": closingID})
	h.logAudit(r, id, "year.close", map[string]any{
		"retained_earnings_code": req.RetainedEarningsCode,
		"closing_voucher_id":     closingID,
	})
}

func (h *YearHandler) logAudit(r *http.Request, yearID, action string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	payload, _ := json.Marshal(meta)
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:         auth.SubjectFromContext(r.Context()),
		Role:          string(auth.RoleFromContext(r.Context())),
		Action:        action,
		ResourceType:  "financial_year",
		ResourceID:    yearID,
		Metadata:      payload,
		PayloadDigest: audit.DigestJSON(payload),
		IP:            audit.ClientIP(r),
		UserAgent:     r.UserAgent(),
	})
}

func respondPeriodError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, periods.ErrPeriodNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, periods.ErrPeriodAlreadyClosed), errors.Is(err, periods.ErrOverlappingPeriod):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, periods.ErrUnbalancedClosing):
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
