package ledger

import (
	"errors"
	"fmt"
)

// Posting rule sentinels. Wrapped by the typed error values below so
// callers can match both the class and the specific violated rule.
var (
	ErrUnknownAccount      = errors.New("ledger: unknown account")
	ErrMalformedEntry      = errors.New("ledger: malformed entry")
	ErrUnbalanced          = errors.New("ledger: debits do not equal credits")
	ErrNoOpenPeriod        = errors.New("ledger: date outside any financial year")
	ErrClosedPeriod        = errors.New("ledger: financial year is closed")
	ErrMissingExchangeRate = errors.New("ledger: no exchange rate effective on date")
	ErrAlreadyReversed     = errors.New("ledger: voucher already reversed")
	ErrVoucherNotFound     = errors.New("ledger: voucher not found")
)

// ValidationError reports a draft that violates a posting rule. The
// caller can correct the draft and resubmit.
type ValidationError struct {
	Rule   error
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Rule.Error()
	}
	return fmt.Sprintf("%s: %s", e.Rule.Error(), e.Detail)
}

// Unwrap exposes the violated rule sentinel.
func (e *ValidationError) Unwrap() error { return e.Rule }

// PeriodError reports a date/period conflict. The caller must resubmit
// with a different date or escalate to an operator.
type PeriodError struct {
	Rule   error
	Detail string
}

func (e *PeriodError) Error() string {
	if e.Detail == "" {
		return e.Rule.Error()
	}
	return fmt.Sprintf("%s: %s", e.Rule.Error(), e.Detail)
}

// Unwrap exposes the violated rule sentinel.
func (e *PeriodError) Unwrap() error { return e.Rule }

// IntegrityError reports an invariant violation inside the store itself,
// e.g. a sequence collision. It indicates a bug, not bad input, and is
// fatal to the operation.
type IntegrityError struct {
	Detail string
}

func (e *IntegrityError) Error() string {
	return "ledger: integrity violation: " + e.Detail
}
