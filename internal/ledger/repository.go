package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/meridian-retail/meridian/internal/shared"
)

// TxRepository exposes the journal operations available within a transaction.
// Orchestrator repositories embed it so ledger writes share the caller's unit
// of work.
type TxRepository interface {
	FindEntryByReference(ctx context.Context, ref ReferenceType, refID int64) (JournalEntry, error)
	InsertEntry(ctx context.Context, entry JournalEntry) (int64, error)
	UpdateEntry(ctx context.Context, entry JournalEntry) error
	DeleteEntry(ctx context.Context, entryID int64) error
	InsertLines(ctx context.Context, entry JournalEntry, lines []LineSpec) error
	DeleteLines(ctx context.Context, entryID int64) error
}

// Tx is the pgx-backed TxRepository bound to one open transaction.
type Tx struct {
	tx pgx.Tx
}

// NewTx wraps an open transaction.
func NewTx(tx pgx.Tx) *Tx {
	return &Tx{tx: tx}
}

func (r *Tx) FindEntryByReference(ctx context.Context, ref ReferenceType, refID int64) (JournalEntry, error) {
	var entry JournalEntry
	err := r.tx.QueryRow(ctx, `SELECT id, entry_date, description, reference_type, reference_id, created_at, updated_at
FROM journal_entries WHERE reference_type=$1 AND reference_id=$2`, ref, refID).
		Scan(&entry.ID, &entry.EntryDate, &entry.Description, &entry.ReferenceType, &entry.ReferenceID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrNotFound
		}
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *Tx) InsertEntry(ctx context.Context, entry JournalEntry) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (entry_date, description, reference_type, reference_id)
VALUES ($1,$2,$3,$4) RETURNING id`, entry.EntryDate, entry.Description, entry.ReferenceType, entry.ReferenceID).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Tx) UpdateEntry(ctx context.Context, entry JournalEntry) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET entry_date=$2, description=$3, updated_at=NOW() WHERE id=$1`,
		entry.ID, entry.EntryDate, entry.Description)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Tx) DeleteEntry(ctx context.Context, entryID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE id=$1`, entryID)
	return err
}

// InsertLines writes journal lines and their general-ledger mirror rows in
// lockstep.
func (r *Tx) InsertLines(ctx context.Context, entry JournalEntry, lines []LineSpec) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_entry_lines (journal_id, account_id, debit_amount, credit_amount, description)
VALUES ($1,$2,$3,$4,$5)`, entry.ID, line.AccountID, line.Debit, line.Credit, line.Description); err != nil {
			return err
		}
		if _, err := r.tx.Exec(ctx, `INSERT INTO general_ledger (transaction_date, account_id, debit_amount, credit_amount, reference_type, reference_id, journal_entry_id)
VALUES ($1,$2,$3,$4,$5,$6,$7)`, entry.EntryDate, line.AccountID, line.Debit, line.Credit, entry.ReferenceType, entry.ReferenceID, entry.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *Tx) DeleteLines(ctx context.Context, entryID int64) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM journal_entry_lines WHERE journal_id=$1`, entryID); err != nil {
		return err
	}
	_, err := r.tx.Exec(ctx, `DELETE FROM general_ledger WHERE journal_entry_id=$1`, entryID)
	return err
}
