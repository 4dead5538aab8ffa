package ledger

import (
	"context"
	"errors"

	"github.com/meridian-retail/meridian/internal/shared"
)

// Poster translates business events into balanced journal entries. All methods
// operate inside the caller's transaction: a failed line insert aborts the
// whole unit of work.
type Poster struct{}

// NewPoster builds a Poster.
func NewPoster() *Poster {
	return &Poster{}
}

// Post creates the journal header and lines for an event.
func (p *Poster) Post(ctx context.Context, tx TxRepository, ev Event) (JournalEntry, error) {
	lines, err := BuildLines(ev)
	if err != nil {
		return JournalEntry{}, err
	}
	entry := JournalEntry{
		EntryDate:     ev.Date,
		Description:   ev.Description,
		ReferenceType: ev.Type,
		ReferenceID:   ev.ReferenceID,
	}
	id, err := tx.InsertEntry(ctx, entry)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.ID = id
	if err := tx.InsertLines(ctx, entry, lines); err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = toJournalLines(id, lines)
	return entry, nil
}

// Repost re-derives the posting for an updated transaction. The existing entry
// located by (reference_type, reference_id) keeps its id: header fields are
// updated, all lines and general-ledger rows are wiped and re-inserted. When
// no entry exists yet, Repost falls back to Post.
func (p *Poster) Repost(ctx context.Context, tx TxRepository, ev Event) (JournalEntry, error) {
	existing, err := tx.FindEntryByReference(ctx, ev.Type, ev.ReferenceID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return p.Post(ctx, tx, ev)
		}
		return JournalEntry{}, err
	}
	lines, err := BuildLines(ev)
	if err != nil {
		return JournalEntry{}, err
	}
	existing.EntryDate = ev.Date
	existing.Description = ev.Description
	if err := tx.UpdateEntry(ctx, existing); err != nil {
		return JournalEntry{}, err
	}
	if err := tx.DeleteLines(ctx, existing.ID); err != nil {
		return JournalEntry{}, err
	}
	if err := tx.InsertLines(ctx, existing, lines); err != nil {
		return JournalEntry{}, err
	}
	existing.Lines = toJournalLines(existing.ID, lines)
	return existing, nil
}

// Remove deletes the posting for a transaction: lines, general-ledger rows and
// the header. Removing a transaction that was never posted is a no-op.
func (p *Poster) Remove(ctx context.Context, tx TxRepository, ref ReferenceType, refID int64) error {
	entry, err := tx.FindEntryByReference(ctx, ref, refID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := tx.DeleteLines(ctx, entry.ID); err != nil {
		return err
	}
	return tx.DeleteEntry(ctx, entry.ID)
}

func toJournalLines(entryID int64, lines []LineSpec) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, JournalLine{
			JournalID:   entryID,
			AccountID:   line.AccountID,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	return out
}
