package accounts

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// AccountType classifies an account in the chart of accounts.
type AccountType string

const (
	TypeAsset     AccountType = "asset"
	TypeLiability AccountType = "liability"
	TypeEquity    AccountType = "equity"
	TypeIncome    AccountType = "income"
	TypeExpense   AccountType = "expense"
)

// Side is one half of a double entry.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideDebit {
		return SideCredit
	}
	return SideDebit
}

// NormalizeType parses a free-form type string into an AccountType.
func NormalizeType(raw string) (AccountType, bool) {
	switch AccountType(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeAsset:
		return TypeAsset, true
	case TypeLiability:
		return TypeLiability, true
	case TypeEquity:
		return TypeEquity, true
	case TypeIncome:
		return TypeIncome, true
	case TypeExpense:
		return TypeExpense, true
	}
	return "", false
}

// NormalSide returns the side on which accounts of this type increase.
// Asset and Expense accounts increase on debit; Liability, Equity and
// Income accounts increase on credit.
func (t AccountType) NormalSide() Side {
	switch t {
	case TypeAsset, TypeExpense:
		return SideDebit
	default:
		return SideCredit
	}
}

// Account is a node in the chart of accounts. OpeningBalance is a signed
// amount in minor currency units: positive means a balance on the
// account's normal side, negative the opposite side.
type Account struct {
	ID             string
	Code           string
	Name           string
	Type           AccountType
	ParentID       string // empty = top-level
	OpeningBalance int64
	Currency       string // native currency code; empty = ledger base
	Active         bool
}

// NewID generates a random account id.
func NewID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return "acc-" + hex.EncodeToString(buf)
}
