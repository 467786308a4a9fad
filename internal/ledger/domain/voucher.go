package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	accounts "backoffice-ledger/internal/accounts/domain"
)

// VoucherType classifies the business origin of a voucher.
type VoucherType string

const (
	TypeJournal     VoucherType = "journal"
	TypeCashPayment VoucherType = "cash_payment"
	TypeCashReceipt VoucherType = "cash_receipt"
	TypeBankPayment VoucherType = "bank_payment"
	TypeBankReceipt VoucherType = "bank_receipt"
	TypeContra      VoucherType = "contra"
)

// NormalizeVoucherType parses a free-form type string.
func NormalizeVoucherType(raw string) (VoucherType, bool) {
	switch VoucherType(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeJournal:
		return TypeJournal, true
	case TypeCashPayment:
		return TypeCashPayment, true
	case TypeCashReceipt:
		return TypeCashReceipt, true
	case TypeBankPayment:
		return TypeBankPayment, true
	case TypeBankReceipt:
		return TypeBankReceipt, true
	case TypeContra:
		return TypeContra, true
	}
	return "", false
}

// VoucherStatus is the lifecycle state of a voucher.
type VoucherStatus string

const (
	StatusDraft    VoucherStatus = "draft"
	StatusPosted   VoucherStatus = "posted"
	StatusReversed VoucherStatus = "reversed"
)

// DraftEntry is one candidate line as submitted by an upstream module.
// Callers supply account codes, not ids. Exactly one of Debit/Credit must
// be set, strictly positive, in the voucher's currency minor units.
type DraftEntry struct {
	AccountCode string
	Debit       int64
	Credit      int64
}

// DraftVoucher is a candidate voucher before validation.
type DraftVoucher struct {
	Type      VoucherType
	Date      time.Time
	Narration string
	Currency  string // empty = ledger base currency
	CreatedBy string
	Entries   []DraftEntry
}

// Entry is one posted line. Amount is in the voucher currency,
// BaseAmount is the translation frozen at posting time.
type Entry struct {
	AccountID  string
	Side       accounts.Side
	Amount     int64
	BaseAmount int64
}

// Voucher is a posted, immutable transaction record. It is never edited
// in place; the only follow-up mutation is a linked reversal voucher.
type Voucher struct {
	ID         string
	Sequence   int64
	Type       VoucherType
	Date       time.Time
	Status     VoucherStatus
	Narration  string
	Currency   string
	CreatedBy  string
	Entries    []Entry
	ReversalOf string // id of the voucher this one reverses
	ReversedBy string // id of the voucher that reversed this one
	PostedAt   time.Time
}

// Clone returns a detached deep copy.
func (v *Voucher) Clone() *Voucher {
	if v == nil {
		return nil
	}
	out := *v
	out.Entries = make([]Entry, len(v.Entries))
	copy(out.Entries, v.Entries)
	return &out
}

// BuildReversal synthesizes the opposite-signed voucher for v, dated at
// the given date. Entries keep their frozen base amounts; only the side
// flips. Linking is done by the store at append time.
func (v *Voucher) BuildReversal(date time.Time, createdBy string) *Voucher {
	rev := &Voucher{
		Type:       v.Type,
		Date:       date,
		Status:     StatusDraft,
		Narration:  "Reversal of " + v.ID,
		Currency:   v.Currency,
		CreatedBy:  createdBy,
		ReversalOf: v.ID,
		Entries:    make([]Entry, len(v.Entries)),
	}
	for i, e := range v.Entries {
		rev.Entries[i] = Entry{
			AccountID:  e.AccountID,
			Side:       e.Side.Opposite(),
			Amount:     e.Amount,
			BaseAmount: e.BaseAmount,
		}
	}
	return rev
}

// NewID generates a random voucher id.
func NewID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return "vch-" + hex.EncodeToString(buf)
}
