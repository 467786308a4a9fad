package periods

import "errors"

var (
	// ErrPeriodNotFound is returned when a year id is unknown.
	ErrPeriodNotFound = errors.New("periods: financial year not found")
	// ErrPeriodAlreadyClosed is returned when closing a closed year.
	ErrPeriodAlreadyClosed = errors.New("periods: financial year already closed")
	// ErrOverlappingPeriod is returned when a new year overlaps an existing one.
	ErrOverlappingPeriod = errors.New("periods: overlapping financial year")
	// ErrInvalidRange is returned when a year's end precedes its start.
	ErrInvalidRange = errors.New("periods: end date before start date")
	// ErrNextYearMissing is returned when closing a year with no successor
	// to receive the carry-forward opening balances.
	ErrNextYearMissing = errors.New("periods: no following financial year")
	// ErrUnbalancedClosing is the defensive re-check before committing a
	// closing voucher whose debits and credits diverge. Given posting
	// validation this should be impossible; it indicates a bug.
	ErrUnbalancedClosing = errors.New("periods: closing voucher unbalanced")
	// ErrNoRetainedEarnings is returned when the configured retained
	// earnings account cannot be resolved.
	ErrNoRetainedEarnings = errors.New("periods: retained earnings account not found")
)
