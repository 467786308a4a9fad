package ledger

import (
	"context"
	"time"

	accounts "backoffice-ledger/internal/accounts/domain"
)

// DateRange bounds a query. Zero From or To means unbounded on that end;
// both bounds are inclusive.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether the date falls inside the range.
func (r DateRange) Contains(date time.Time) bool {
	if !r.From.IsZero() && date.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && date.After(r.To) {
		return false
	}
	return true
}

// AccountEntry is one posted line flattened with its voucher ordering
// metadata, as returned by account ledger queries.
type AccountEntry struct {
	VoucherID  string
	Sequence   int64
	Date       time.Time
	AccountID  string
	Side       accounts.Side
	Amount     int64
	BaseAmount int64
}

// Store is the append-only source of truth for posted vouchers. Append
// and AppendReversal are the only mutation paths; both are atomic, and
// readers always observe all or none of a voucher's entries.
type Store interface {
	// Append durably records a validated voucher, assigning its id and
	// the next ledger sequence, and returns the id.
	Append(ctx context.Context, v *Voucher) (string, error)

	// AppendReversal records a reversal voucher and links both records.
	// Fails with ErrAlreadyReversed when the original is already reversed.
	AppendReversal(ctx context.Context, reversal *Voucher, originalID string) (string, error)

	// Get returns the voucher with the given id.
	Get(ctx context.Context, id string) (*Voucher, error)

	// EntriesForAccount returns the account's posted lines inside the
	// range, in ascending (date, sequence) order with entries in
	// insertion order per voucher. Lines with sequence above maxSeq are
	// excluded when maxSeq > 0, pinning the read to a snapshot.
	EntriesForAccount(ctx context.Context, accountID string, r DateRange, maxSeq int64) ([]AccountEntry, error)

	// Vouchers lists vouchers inside the range in (date, sequence) order.
	Vouchers(ctx context.Context, r DateRange) ([]*Voucher, error)

	// HasEntries reports whether any posted line references the account
	// inside the range.
	HasEntries(ctx context.Context, accountID string, r DateRange) (bool, error)

	// SnapshotSeq returns the highest committed sequence number.
	SnapshotSeq(ctx context.Context) (int64, error)
}
