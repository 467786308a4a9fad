package application

import (
	"context"
	"errors"
	"log"
	"time"

	"backoffice-ledger/internal/eventing"
	ledger "backoffice-ledger/internal/ledger/domain"
	"backoffice-ledger/internal/observability/metrics"
)

// PostingService is the submitVoucher/reverse entry point for upstream
// modules (sales, procurement, payroll, cash/bank desks).
type PostingService struct {
	validator *ledger.Validator
	store     ledger.Store
	periods   ledger.PeriodChecker
	bus       *eventing.Bus
	logger    *log.Logger
}

// NewPostingService constructs the posting service.
func NewPostingService(validator *ledger.Validator, store ledger.Store, periods ledger.PeriodChecker, bus *eventing.Bus, logger *log.Logger) (*PostingService, error) {
	if validator == nil || store == nil || periods == nil {
		return nil, errors.New("posting service: nil dependency")
	}
	return &PostingService{validator: validator, store: store, periods: periods, bus: bus, logger: logger}, nil
}

// Submit validates the draft and appends it atomically. On success the
// returned id identifies the posted voucher; on failure nothing is
// recorded and the error names the violated rule.
func (s *PostingService) Submit(ctx context.Context, draft ledger.DraftVoucher) (string, error) {
	started := time.Now()
	voucher, err := s.validator.Validate(ctx, draft)
	if err != nil {
		metrics.ObserveVoucherPost(metrics.ResultLabel(err), time.Since(started))
		return "", err
	}

	id, err := s.store.Append(ctx, voucher)
	metrics.ObserveVoucherPost(metrics.ResultLabel(err), time.Since(started))
	if err != nil {
		s.logIntegrity(err)
		return "", err
	}

	s.publishPosted(ctx, voucher)
	return id, nil
}

// ReverseParams controls a reversal. Date zero means "now"; an explicit
// override date is still subject to the open-period rule.
type ReverseParams struct {
	VoucherID string
	Date      time.Time
	Actor     string
}

// Reverse synthesizes and posts the opposite-signed voucher and links
// both records. The original is never mutated beyond the link.
func (s *PostingService) Reverse(ctx context.Context, params ReverseParams) (string, error) {
	original, err := s.store.Get(ctx, params.VoucherID)
	if err != nil {
		metrics.ObserveVoucherReverse(metrics.ResultLabel(err))
		return "", err
	}
	if original.Status == ledger.StatusReversed || original.ReversedBy != "" {
		metrics.ObserveVoucherReverse("error")
		return "", ledger.ErrAlreadyReversed
	}

	date := params.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	if err := s.periods.CheckDate(ctx, date); err != nil {
		metrics.ObserveVoucherReverse("error")
		return "", err
	}

	reversal := original.BuildReversal(date, params.Actor)
	id, err := s.store.AppendReversal(ctx, reversal, original.ID)
	metrics.ObserveVoucherReverse(metrics.ResultLabel(err))
	if err != nil {
		s.logIntegrity(err)
		return "", err
	}

	s.publishPosted(ctx, reversal)
	return id, nil
}

// Get returns a posted voucher.
func (s *PostingService) Get(ctx context.Context, id string) (*ledger.Voucher, error) {
	return s.store.Get(ctx, id)
}

// EntriesForAccount exposes the account ledger for browsing.
func (s *PostingService) EntriesForAccount(ctx context.Context, accountID string, r ledger.DateRange) ([]ledger.AccountEntry, error) {
	return s.store.EntriesForAccount(ctx, accountID, r, 0)
}

func (s *PostingService) publishPosted(ctx context.Context, v *ledger.Voucher) {
	if s.bus == nil {
		return
	}
	accountIDs := make([]string, 0, len(v.Entries))
	seen := make(map[string]bool, len(v.Entries))
	for _, e := range v.Entries {
		if !seen[e.AccountID] {
			seen[e.AccountID] = true
			accountIDs = append(accountIDs, e.AccountID)
		}
	}
	err := s.bus.PublishVoucherPosted(ctx, eventing.VoucherPosted{
		VoucherID:  v.ID,
		Sequence:   v.Sequence,
		Date:       v.Date,
		AccountIDs: accountIDs,
		ReversalOf: v.ReversalOf,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil && s.logger != nil {
		s.logger.Printf("voucher posted event dispatch failed: %v", err)
	}
}

func (s *PostingService) logIntegrity(err error) {
	var integrity *ledger.IntegrityError
	if errors.As(err, &integrity) {
		metrics.IntegrityError()
		if s.logger != nil {
			s.logger.Printf("LEDGER INTEGRITY VIOLATION: %v", integrity)
		}
	}
}
