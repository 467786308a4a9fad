package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	accounts "backoffice-ledger/internal/accounts/domain"
	ledger "backoffice-ledger/internal/ledger/domain"
)

// Store is the Postgres implementation of the ledger store. Each append
// runs in one transaction: the sequence counter row is bumped with
// UPDATE ... RETURNING, which serializes concurrent appends on the
// single commit path.
type Store struct {
	db *sql.DB
}

// NewStore constructs a Store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append records the voucher and its entries atomically.
func (s *Store) Append(ctx context.Context, v *ledger.Voucher) (string, error) {
	return s.appendTx(ctx, v, "")
}

// AppendReversal records the reversal and links both vouchers in the
// same transaction.
func (s *Store) AppendReversal(ctx context.Context, reversal *ledger.Voucher, originalID string) (string, error) {
	return s.appendTx(ctx, reversal, originalID)
}

func (s *Store) appendTx(ctx context.Context, v *ledger.Voucher, originalID string) (string, error) {
	if s == nil || s.db == nil {
		return "", errors.New("ledger store: nil db")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if originalID != "" {
		var status, reversedBy string
		err := tx.QueryRowContext(ctx, `
SELECT status, COALESCE(reversed_by, '')
FROM gl_vouchers
WHERE id = $1
FOR UPDATE`, originalID).Scan(&status, &reversedBy)
		if errors.Is(err, sql.ErrNoRows) {
			return "", ledger.ErrVoucherNotFound
		}
		if err != nil {
			return "", err
		}
		if ledger.VoucherStatus(status) == ledger.StatusReversed || reversedBy != "" {
			return "", ledger.ErrAlreadyReversed
		}
		v.ReversalOf = originalID
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `
UPDATE gl_sequence SET value = value + 1 RETURNING value`).Scan(&seq); err != nil {
		return "", err
	}

	id := v.ID
	if id == "" {
		id = ledger.NewID()
	}
	postedAt := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
INSERT INTO gl_vouchers (
	id, seq, type, voucher_date, status, narration, currency,
	created_by, reversal_of, posted_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),$10)`,
		id, seq, string(v.Type), v.Date.UTC(), string(ledger.StatusPosted), v.Narration,
		v.Currency, v.CreatedBy, v.ReversalOf, postedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return "", &ledger.IntegrityError{Detail: fmt.Sprintf("sequence or id collision for voucher %s: %v", id, err)}
		}
		return "", err
	}

	for i, e := range v.Entries {
		_, err = tx.ExecContext(ctx, `
INSERT INTO gl_entries (
	voucher_id, line_no, account_id, side, amount, base_amount
) VALUES ($1,$2,$3,$4,$5,$6)`,
			id, i, e.AccountID, string(e.Side), e.Amount, e.BaseAmount)
		if err != nil {
			return "", err
		}
	}

	if originalID != "" {
		_, err = tx.ExecContext(ctx, `
UPDATE gl_vouchers SET status = $1, reversed_by = $2 WHERE id = $3`,
			string(ledger.StatusReversed), id, originalID)
		if err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	v.ID = id
	v.Sequence = seq
	v.Status = ledger.StatusPosted
	v.PostedAt = postedAt
	return id, nil
}

// Get returns the voucher with its entries.
func (s *Store) Get(ctx context.Context, id string) (*ledger.Voucher, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, seq, type, voucher_date, status, narration, currency,
	created_by, COALESCE(reversal_of, ''), COALESCE(reversed_by, ''), posted_at
FROM gl_vouchers WHERE id = $1`, id)
	v, err := scanVoucher(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT account_id, side, amount, base_amount
FROM gl_entries WHERE voucher_id = $1 ORDER BY line_no`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var e ledger.Entry
		var side string
		if err := rows.Scan(&e.AccountID, &side, &e.Amount, &e.BaseAmount); err != nil {
			return nil, err
		}
		e.Side = accounts.Side(side)
		v.Entries = append(v.Entries, e)
	}
	return v, rows.Err()
}

// EntriesForAccount returns posted lines in (date, seq, line_no) order.
func (s *Store) EntriesForAccount(ctx context.Context, accountID string, r ledger.DateRange, maxSeq int64) ([]ledger.AccountEntry, error) {
	query := `
SELECT v.id, v.seq, v.voucher_date, e.account_id, e.side, e.amount, e.base_amount
FROM gl_entries e
JOIN gl_vouchers v ON v.id = e.voucher_id
WHERE e.account_id = $1`
	args := []any{accountID}
	query, args = appendRange(query, args, r, "v.voucher_date")
	if maxSeq > 0 {
		args = append(args, maxSeq)
		query += fmt.Sprintf(" AND v.seq <= $%d", len(args))
	}
	query += " ORDER BY v.voucher_date, v.seq, e.line_no"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.AccountEntry
	for rows.Next() {
		var e ledger.AccountEntry
		var side string
		if err := rows.Scan(&e.VoucherID, &e.Sequence, &e.Date, &e.AccountID, &side, &e.Amount, &e.BaseAmount); err != nil {
			return nil, err
		}
		e.Side = accounts.Side(side)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Vouchers lists vouchers inside the range with their entries.
func (s *Store) Vouchers(ctx context.Context, r ledger.DateRange) ([]*ledger.Voucher, error) {
	query := `
SELECT id, seq, type, voucher_date, status, narration, currency,
	created_by, COALESCE(reversal_of, ''), COALESCE(reversed_by, ''), posted_at
FROM gl_vouchers WHERE 1=1`
	args := []any{}
	query, args = appendRange(query, args, r, "voucher_date")
	query += " ORDER BY voucher_date, seq"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ledger.Voucher
	byID := make(map[string]*ledger.Voucher)
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		byID[v.ID] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	entryRows, err := s.db.QueryContext(ctx, `
SELECT e.voucher_id, e.account_id, e.side, e.amount, e.base_amount
FROM gl_entries e
JOIN gl_vouchers v ON v.id = e.voucher_id
ORDER BY v.voucher_date, v.seq, e.line_no`)
	if err != nil {
		return nil, err
	}
	defer entryRows.Close()
	for entryRows.Next() {
		var voucherID, side string
		var e ledger.Entry
		if err := entryRows.Scan(&voucherID, &e.AccountID, &side, &e.Amount, &e.BaseAmount); err != nil {
			return nil, err
		}
		if v, ok := byID[voucherID]; ok {
			e.Side = accounts.Side(side)
			v.Entries = append(v.Entries, e)
		}
	}
	return out, entryRows.Err()
}

// HasEntries reports whether the account is referenced inside the range.
func (s *Store) HasEntries(ctx context.Context, accountID string, r ledger.DateRange) (bool, error) {
	query := `
SELECT 1
FROM gl_entries e
JOIN gl_vouchers v ON v.id = e.voucher_id
WHERE e.account_id = $1`
	args := []any{accountID}
	query, args = appendRange(query, args, r, "v.voucher_date")
	query += " LIMIT 1"

	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SnapshotSeq returns the current sequence counter value.
func (s *Store) SnapshotSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM gl_sequence`).Scan(&seq)
	return seq, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVoucher(row rowScanner) (*ledger.Voucher, error) {
	var v ledger.Voucher
	var typ, status string
	err := row.Scan(&v.ID, &v.Sequence, &typ, &v.Date, &status, &v.Narration,
		&v.Currency, &v.CreatedBy, &v.ReversalOf, &v.ReversedBy, &v.PostedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrVoucherNotFound
	}
	if err != nil {
		return nil, err
	}
	v.Type = ledger.VoucherType(typ)
	v.Status = ledger.VoucherStatus(status)
	return &v, nil
}

func appendRange(query string, args []any, r ledger.DateRange, column string) (string, []any) {
	if !r.From.IsZero() {
		args = append(args, r.From.UTC())
		query += fmt.Sprintf(" AND %s >= $%d", column, len(args))
	}
	if !r.To.IsZero() {
		args = append(args, r.To.UTC())
		query += fmt.Sprintf(" AND %s <= $%d", column, len(args))
	}
	return query, args
}

func isUniqueViolation(err error) bool {
	// pgx surfaces SQLSTATE in the error string under database/sql.
	return err != nil && (strings.Contains(err.Error(), "23505") || strings.Contains(err.Error(), "duplicate key"))
}
