package expenses

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/shared"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

type memoryStore struct {
	nextExpenseID int64
	nextEntryID   int64
	expenses      map[int64]Expense
	entries       map[int64]ledger.JournalEntry
	lines         map[int64][]ledger.LineSpec
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		expenses: make(map[int64]Expense),
		entries:  make(map[int64]ledger.JournalEntry),
		lines:    make(map[int64][]ledger.LineSpec),
	}
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{store: m})
}

func (m *memoryStore) Get(ctx context.Context, id int64) (Expense, error) {
	expense, ok := m.expenses[id]
	if !ok {
		return Expense{}, shared.ErrNotFound
	}
	return expense, nil
}

func (m *memoryStore) List(ctx context.Context, filter ListFilter) ([]Expense, int, error) {
	var out []Expense
	for _, expense := range m.expenses {
		out = append(out, expense)
	}
	return out, len(out), nil
}

type memoryTx struct {
	store *memoryStore
}

func (t *memoryTx) GetExpenseForUpdate(ctx context.Context, id int64) (Expense, error) {
	expense, ok := t.store.expenses[id]
	if !ok {
		return Expense{}, shared.ErrNotFound
	}
	return expense, nil
}

func (t *memoryTx) InsertExpense(ctx context.Context, expense Expense) (int64, error) {
	t.store.nextExpenseID++
	expense.ID = t.store.nextExpenseID
	t.store.expenses[expense.ID] = expense
	return expense.ID, nil
}

func (t *memoryTx) UpdateExpense(ctx context.Context, expense Expense) error {
	if _, ok := t.store.expenses[expense.ID]; !ok {
		return shared.ErrNotFound
	}
	t.store.expenses[expense.ID] = expense
	return nil
}

func (t *memoryTx) DeleteExpense(ctx context.Context, id int64) error {
	delete(t.store.expenses, id)
	return nil
}

func (t *memoryTx) FindEntryByReference(ctx context.Context, ref ledger.ReferenceType, refID int64) (ledger.JournalEntry, error) {
	for _, entry := range t.store.entries {
		if entry.ReferenceType == ref && entry.ReferenceID == refID {
			return entry, nil
		}
	}
	return ledger.JournalEntry{}, shared.ErrNotFound
}

func (t *memoryTx) InsertEntry(ctx context.Context, entry ledger.JournalEntry) (int64, error) {
	t.store.nextEntryID++
	entry.ID = t.store.nextEntryID
	t.store.entries[entry.ID] = entry
	return entry.ID, nil
}

func (t *memoryTx) UpdateEntry(ctx context.Context, entry ledger.JournalEntry) error {
	if _, ok := t.store.entries[entry.ID]; !ok {
		return shared.ErrNotFound
	}
	t.store.entries[entry.ID] = entry
	return nil
}

func (t *memoryTx) DeleteEntry(ctx context.Context, entryID int64) error {
	delete(t.store.entries, entryID)
	return nil
}

func (t *memoryTx) InsertLines(ctx context.Context, entry ledger.JournalEntry, lines []ledger.LineSpec) error {
	t.store.lines[entry.ID] = append(t.store.lines[entry.ID], lines...)
	return nil
}

func (t *memoryTx) DeleteLines(ctx context.Context, entryID int64) error {
	delete(t.store.lines, entryID)
	return nil
}

func newTestService(store *memoryStore) *Service {
	svc := NewService(store, ledger.NewPoster())
	svc.WithNow(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) })
	return svc
}

func TestCreateExpensePostsEntry(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	expense, err := svc.Create(context.Background(), ExpenseInput{Category: "Rent", Amount: dec("1200")})
	require.NoError(t, err)
	require.False(t, expense.ExpenseDate.IsZero(), "date defaulted")

	require.Len(t, store.entries, 1)
	lines := store.lines[1]
	require.Len(t, lines, 2)
	require.Equal(t, ledger.AccountOperatingExpenses, lines[0].AccountID)
	require.True(t, lines[0].Debit.Equal(dec("1200")))
	require.Equal(t, ledger.AccountCash, lines[1].AccountID)
	require.True(t, lines[1].Credit.Equal(dec("1200")))
}

func TestCreateExpenseRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService(newMemoryStore())

	_, err := svc.Create(context.Background(), ExpenseInput{Category: "Rent", Amount: dec("0")})
	require.True(t, shared.IsValidation(err))
}

func TestUpdateExpenseRepostsEntry(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	expense, err := svc.Create(ctx, ExpenseInput{Category: "Rent", Amount: dec("1200")})
	require.NoError(t, err)

	_, err = svc.Update(ctx, expense.ID, ExpenseInput{Category: "Rent", Amount: dec("1350")})
	require.NoError(t, err)
	require.Len(t, store.entries, 1, "entry reused, not duplicated")
	lines := store.lines[1]
	require.Len(t, lines, 2)
	require.True(t, lines[0].Debit.Equal(dec("1350")))
}

func TestDeleteExpenseRemovesPosting(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	expense, err := svc.Create(ctx, ExpenseInput{Category: "Utilities", Amount: dec("90")})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, expense.ID))
	require.Empty(t, store.entries)
	require.Empty(t, store.expenses)
	for _, lines := range store.lines {
		require.Empty(t, lines)
	}
}

func TestDeleteMissingExpense(t *testing.T) {
	svc := newTestService(newMemoryStore())
	err := svc.Delete(context.Background(), 42)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
