package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	ledger "backoffice-ledger/internal/ledger/domain"
)

// Store is an in-memory append-only voucher store. A single mutex
// serializes appends (one logical commit path, one sequence counter);
// readers copy under the read lock so they never observe a partially
// appended voucher.
type Store struct {
	mu       sync.RWMutex
	vouchers map[string]*ledger.Voucher
	ordered  []*ledger.Voucher // ascending (date, sequence)
	lastSeq  int64
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{vouchers: make(map[string]*ledger.Voucher)}
}

// Append records the voucher, assigning id and sequence.
func (s *Store) Append(ctx context.Context, v *ledger.Voucher) (string, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(v)
}

// AppendReversal records the reversal and links both vouchers.
func (s *Store) AppendReversal(ctx context.Context, reversal *ledger.Voucher, originalID string) (string, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.vouchers[originalID]
	if !ok {
		return "", ledger.ErrVoucherNotFound
	}
	if original.Status == ledger.StatusReversed || original.ReversedBy != "" {
		return "", ledger.ErrAlreadyReversed
	}

	reversal.ReversalOf = originalID
	id, err := s.appendLocked(reversal)
	if err != nil {
		return "", err
	}
	original.Status = ledger.StatusReversed
	original.ReversedBy = id
	return id, nil
}

func (s *Store) appendLocked(v *ledger.Voucher) (string, error) {
	stored := v.Clone()
	if stored.ID == "" {
		stored.ID = ledger.NewID()
	}
	if _, exists := s.vouchers[stored.ID]; exists {
		return "", &ledger.IntegrityError{Detail: "voucher id collision " + stored.ID}
	}
	s.lastSeq++
	stored.Sequence = s.lastSeq
	stored.Status = ledger.StatusPosted
	stored.PostedAt = time.Now().UTC()

	s.vouchers[stored.ID] = stored
	idx := sort.Search(len(s.ordered), func(i int) bool {
		other := s.ordered[i]
		if !other.Date.Equal(stored.Date) {
			return other.Date.After(stored.Date)
		}
		return other.Sequence > stored.Sequence
	})
	s.ordered = append(s.ordered, nil)
	copy(s.ordered[idx+1:], s.ordered[idx:])
	s.ordered[idx] = stored
	return stored.ID, nil
}

// Get returns a detached copy of the voucher.
func (s *Store) Get(ctx context.Context, id string) (*ledger.Voucher, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vouchers[id]
	if !ok {
		return nil, ledger.ErrVoucherNotFound
	}
	return v.Clone(), nil
}

// EntriesForAccount returns the account's lines in (date, sequence)
// order, entries in insertion order per voucher.
func (s *Store) EntriesForAccount(ctx context.Context, accountID string, r ledger.DateRange, maxSeq int64) ([]ledger.AccountEntry, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ledger.AccountEntry
	for _, v := range s.ordered {
		if !r.Contains(v.Date) {
			continue
		}
		if maxSeq > 0 && v.Sequence > maxSeq {
			continue
		}
		for _, e := range v.Entries {
			if e.AccountID != accountID {
				continue
			}
			out = append(out, ledger.AccountEntry{
				VoucherID:  v.ID,
				Sequence:   v.Sequence,
				Date:       v.Date,
				AccountID:  e.AccountID,
				Side:       e.Side,
				Amount:     e.Amount,
				BaseAmount: e.BaseAmount,
			})
		}
	}
	return out, nil
}

// Vouchers lists vouchers inside the range.
func (s *Store) Vouchers(ctx context.Context, r ledger.DateRange) ([]*ledger.Voucher, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ledger.Voucher
	for _, v := range s.ordered {
		if r.Contains(v.Date) {
			out = append(out, v.Clone())
		}
	}
	return out, nil
}

// HasEntries reports whether the account is referenced inside the range.
func (s *Store) HasEntries(ctx context.Context, accountID string, r ledger.DateRange) (bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.ordered {
		if !r.Contains(v.Date) {
			continue
		}
		for _, e := range v.Entries {
			if e.AccountID == accountID {
				return true, nil
			}
		}
	}
	return false, nil
}

// SnapshotSeq returns the highest committed sequence.
func (s *Store) SnapshotSeq(ctx context.Context) (int64, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeq, nil
}
