package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	accounts "backoffice-ledger/internal/accounts/domain"
	ledger "backoffice-ledger/internal/ledger/domain"
	ledgermemory "backoffice-ledger/internal/ledger/infrastructure/memory"
)

func balancedVoucher(amount int64) *ledger.Voucher {
	return &ledger.Voucher{
		Type: ledger.TypeJournal,
		Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Entries: []ledger.Entry{
			{AccountID: "acc-cash", Side: accounts.SideDebit, Amount: amount, BaseAmount: amount},
			{AccountID: "acc-sales", Side: accounts.SideCredit, Amount: amount, BaseAmount: amount},
		},
	}
}

// Readers running against concurrent appends must only ever observe
// complete vouchers: both entries present, debits equal to credits, and
// exactly as many lines per account as the snapshot sequence admits.
func TestConcurrentReadersSeeOnlyCompleteVouchers(t *testing.T) {
	const writers = 4
	const perWriter = 25
	store := ledgermemory.NewStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	done := make(chan struct{})
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := store.Append(ctx, balancedVoucher(100)); err != nil {
					t.Errorf("append: %v", err)
					return
				}
			}
		}()
	}

	var readers sync.WaitGroup
	for r := 0; r < 2; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				vouchers, err := store.Vouchers(ctx, ledger.DateRange{})
				if err != nil {
					t.Errorf("vouchers: %v", err)
					return
				}
				for _, v := range vouchers {
					if len(v.Entries) != 2 {
						t.Errorf("voucher %s observed with %d entries", v.ID, len(v.Entries))
						return
					}
					var debit, credit int64
					for _, e := range v.Entries {
						if e.Side == accounts.SideDebit {
							debit += e.BaseAmount
						} else {
							credit += e.BaseAmount
						}
					}
					if debit != credit {
						t.Errorf("voucher %s observed unbalanced: %d != %d", v.ID, debit, credit)
						return
					}
				}

				snapshot, err := store.SnapshotSeq(ctx)
				if err != nil {
					t.Errorf("snapshot: %v", err)
					return
				}
				entries, err := store.EntriesForAccount(ctx, "acc-cash", ledger.DateRange{}, snapshot)
				if err != nil {
					t.Errorf("entries: %v", err)
					return
				}
				// One cash line per committed voucher at that snapshot.
				if int64(len(entries)) != snapshot {
					t.Errorf("read %d cash lines at snapshot %d", len(entries), snapshot)
					return
				}
			}
		}()
	}

	wg.Wait()
	close(done)
	readers.Wait()

	vouchers, err := store.Vouchers(ctx, ledger.DateRange{})
	if err != nil {
		t.Fatalf("vouchers: %v", err)
	}
	if len(vouchers) != writers*perWriter {
		t.Fatalf("vouchers = %d, want %d", len(vouchers), writers*perWriter)
	}
	seen := make(map[int64]bool, len(vouchers))
	for _, v := range vouchers {
		if v.Sequence < 1 || v.Sequence > int64(writers*perWriter) || seen[v.Sequence] {
			t.Fatalf("sequence %d out of range or duplicated", v.Sequence)
		}
		seen[v.Sequence] = true
	}
}

func TestSnapshotPinsEntryReads(t *testing.T) {
	store := ledgermemory.NewStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.Append(ctx, balancedVoucher(100)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	snapshot, err := store.SnapshotSeq(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := store.Append(ctx, balancedVoucher(100)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries, err := store.EntriesForAccount(ctx, "acc-cash", ledger.DateRange{}, snapshot)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries at pinned snapshot = %d, want 3", len(entries))
	}
	for _, e := range entries {
		if e.Sequence > snapshot {
			t.Fatalf("entry from sequence %d leaked past snapshot %d", e.Sequence, snapshot)
		}
	}
}
