package currency

import "errors"

var (
	// ErrMissingRate is returned when no rate is effective on or before a date.
	ErrMissingRate = errors.New("currency: no effective exchange rate")
	// ErrNoBaseCurrency is returned when no base currency is configured.
	ErrNoBaseCurrency = errors.New("currency: no base currency")
	// ErrDuplicateBase is returned when a second base currency is saved.
	ErrDuplicateBase = errors.New("currency: base currency already set")
	// ErrCurrencyNotFound is returned when a currency code is unknown.
	ErrCurrencyNotFound = errors.New("currency: not found")
	// ErrInvalidRate is returned when a feed rate is zero or negative.
	ErrInvalidRate = errors.New("currency: invalid rate")
)
