package accounts

import "errors"

var (
	// ErrDuplicateCode is returned when an account code already exists.
	ErrDuplicateCode = errors.New("accounts: duplicate code")
	// ErrInvalidParent is returned when a parent would create a cycle or
	// cross account-type subtrees.
	ErrInvalidParent = errors.New("accounts: invalid parent")
	// ErrAccountInUse is returned when deactivating an account that is
	// referenced by open-period entries without an override.
	ErrAccountInUse = errors.New("accounts: account in use")
	// ErrAccountNotFound is returned when an account does not exist.
	ErrAccountNotFound = errors.New("accounts: not found")
	// ErrInvalidType is returned when an account type string is unknown.
	ErrInvalidType = errors.New("accounts: invalid type")
	// ErrEmptyCode is returned when an account code is blank.
	ErrEmptyCode = errors.New("accounts: empty code")
)
