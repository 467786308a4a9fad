package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	accounts "backoffice-ledger/internal/accounts/domain"
	currency "backoffice-ledger/internal/currency/domain"
)

// PeriodChecker validates a voucher date against the financial years:
// nil when the date falls in exactly one open year, ErrNoOpenPeriod or
// ErrClosedPeriod otherwise (wrapped in PeriodError).
type PeriodChecker interface {
	CheckDate(ctx context.Context, date time.Time) error
}

// BaseResolver returns the ledger base currency.
type BaseResolver interface {
	Base(ctx context.Context) (*currency.Currency, error)
}

// Validator checks candidate vouchers before they are admitted to the
// store. This is the only place base-currency translation amounts are
// computed; they are frozen into the entries and never recomputed.
type Validator struct {
	accounts accounts.Repository
	periods  PeriodChecker
	rates    currency.RateProvider
	base     BaseResolver
}

// NewValidator constructs a Validator.
func NewValidator(accountRepo accounts.Repository, periods PeriodChecker, rates currency.RateProvider, base BaseResolver) (*Validator, error) {
	if accountRepo == nil {
		return nil, errors.New("validator: nil account repository")
	}
	if periods == nil {
		return nil, errors.New("validator: nil period checker")
	}
	if rates == nil || base == nil {
		return nil, errors.New("validator: nil currency source")
	}
	return &Validator{accounts: accountRepo, periods: periods, rates: rates, base: base}, nil
}

// Validate runs the posting checks in order, short-circuiting on the
// first failure, and returns the voucher ready for append.
func (v *Validator) Validate(ctx context.Context, draft DraftVoucher) (*Voucher, error) {
	if _, ok := NormalizeVoucherType(string(draft.Type)); !ok {
		return nil, &ValidationError{Rule: ErrMalformedEntry, Detail: fmt.Sprintf("unknown voucher type %q", draft.Type)}
	}
	if len(draft.Entries) == 0 {
		return nil, &ValidationError{Rule: ErrMalformedEntry, Detail: "voucher has no entries"}
	}

	// 1. Every entry references an active, existing account.
	resolved := make([]*accounts.Account, len(draft.Entries))
	for i, entry := range draft.Entries {
		account, err := v.accounts.GetByCode(ctx, entry.AccountCode)
		if err != nil {
			if errors.Is(err, accounts.ErrAccountNotFound) {
				return nil, &ValidationError{Rule: ErrUnknownAccount, Detail: fmt.Sprintf("code %q", entry.AccountCode)}
			}
			return nil, err
		}
		if !account.Active {
			return nil, &ValidationError{Rule: ErrUnknownAccount, Detail: fmt.Sprintf("code %q is deactivated", entry.AccountCode)}
		}
		resolved[i] = account
	}

	// 2. Exactly one of debit/credit per entry, strictly positive.
	for i, entry := range draft.Entries {
		if entry.Debit < 0 || entry.Credit < 0 {
			return nil, &ValidationError{Rule: ErrMalformedEntry, Detail: fmt.Sprintf("entry %d has a negative amount", i)}
		}
		hasDebit := entry.Debit > 0
		hasCredit := entry.Credit > 0
		if hasDebit == hasCredit {
			return nil, &ValidationError{Rule: ErrMalformedEntry, Detail: fmt.Sprintf("entry %d must have exactly one of debit or credit", i)}
		}
	}

	// 3. Debit sum equals credit sum, compared as exact minor units.
	var totalDebit, totalCredit int64
	for _, entry := range draft.Entries {
		totalDebit += entry.Debit
		totalCredit += entry.Credit
	}
	if totalDebit != totalCredit {
		return nil, &ValidationError{Rule: ErrUnbalanced, Detail: fmt.Sprintf("debits %d != credits %d", totalDebit, totalCredit)}
	}

	// 4. The date falls inside exactly one open financial year.
	if err := v.periods.CheckDate(ctx, draft.Date); err != nil {
		return nil, err
	}

	// 5. Non-base vouchers need a rate effective on or before the date.
	base, err := v.base.Base(ctx)
	if err != nil {
		return nil, err
	}
	voucherCurrency := draft.Currency
	if voucherCurrency == "" {
		voucherCurrency = base.Code
	}
	translate := func(amount int64) int64 { return amount }
	if voucherCurrency != base.Code {
		rate, err := v.rates.RateOn(ctx, voucherCurrency, draft.Date)
		if err != nil {
			if errors.Is(err, currency.ErrMissingRate) {
				return nil, &ValidationError{Rule: ErrMissingExchangeRate, Detail: fmt.Sprintf("currency %q on %s", voucherCurrency, draft.Date.Format("2006-01-02"))}
			}
			return nil, err
		}
		translate = func(amount int64) int64 { return currency.Translate(amount, rate) }
	}

	entries := make([]Entry, len(draft.Entries))
	for i, entry := range draft.Entries {
		side := accounts.SideDebit
		amount := entry.Debit
		if entry.Credit > 0 {
			side = accounts.SideCredit
			amount = entry.Credit
		}
		entries[i] = Entry{
			AccountID:  resolved[i].ID,
			Side:       side,
			Amount:     amount,
			BaseAmount: translate(amount),
		}
	}

	return &Voucher{
		Type:      draft.Type,
		Date:      draft.Date,
		Status:    StatusDraft,
		Narration: draft.Narration,
		Currency:  voucherCurrency,
		CreatedBy: draft.CreatedBy,
		Entries:   entries,
	}, nil
}
