package sales

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-retail/meridian/internal/inventory"
	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/shared"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// memoryStore fakes the whole transactional surface: sales, items, product
// stock/cost, journal entries and the general ledger. WithTx snapshots state
// and restores it when fn fails, mirroring a rollback.
type memoryStore struct {
	nextSaleID  int64
	nextEntryID int64
	sales       map[int64]Sale
	items       map[int64][]SaleItem
	invoices    map[string]int64
	customers   map[int64]bool
	stock       map[int64]int64
	costs       map[int64]decimal.Decimal
	entries     map[int64]ledger.JournalEntry
	lines       map[int64][]ledger.LineSpec
	ledgerRows  map[int64][]ledger.GeneralLedgerRow
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		sales:      make(map[int64]Sale),
		items:      make(map[int64][]SaleItem),
		invoices:   make(map[string]int64),
		customers:  map[int64]bool{1: true},
		stock:      make(map[int64]int64),
		costs:      make(map[int64]decimal.Decimal),
		entries:    make(map[int64]ledger.JournalEntry),
		lines:      make(map[int64][]ledger.LineSpec),
		ledgerRows: make(map[int64][]ledger.GeneralLedgerRow),
	}
}

func (m *memoryStore) clone() *memoryStore {
	c := newMemoryStore()
	c.nextSaleID = m.nextSaleID
	c.nextEntryID = m.nextEntryID
	for k, v := range m.sales {
		c.sales[k] = v
	}
	for k, v := range m.items {
		c.items[k] = append([]SaleItem(nil), v...)
	}
	for k, v := range m.invoices {
		c.invoices[k] = v
	}
	for k, v := range m.customers {
		c.customers[k] = v
	}
	for k, v := range m.stock {
		c.stock[k] = v
	}
	for k, v := range m.costs {
		c.costs[k] = v
	}
	for k, v := range m.entries {
		c.entries[k] = v
	}
	for k, v := range m.lines {
		c.lines[k] = append([]ledger.LineSpec(nil), v...)
	}
	for k, v := range m.ledgerRows {
		c.ledgerRows[k] = append([]ledger.GeneralLedgerRow(nil), v...)
	}
	return c
}

func (m *memoryStore) restore(from *memoryStore) {
	*m = *from
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := m.clone()
	if err := fn(ctx, &memoryTx{store: m}); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

func (m *memoryStore) Get(ctx context.Context, id int64) (Sale, error) {
	sale, ok := m.sales[id]
	if !ok {
		return Sale{}, shared.ErrNotFound
	}
	sale.Items = append([]SaleItem(nil), m.items[id]...)
	return sale, nil
}

func (m *memoryStore) List(ctx context.Context, filter ListFilter) ([]Sale, int, error) {
	var out []Sale
	for _, sale := range m.sales {
		out = append(out, sale)
	}
	return out, len(out), nil
}

type memoryTx struct {
	store *memoryStore
}

func (t *memoryTx) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	sale, ok := t.store.sales[id]
	if !ok {
		return Sale{}, shared.ErrNotFound
	}
	return sale, nil
}

func (t *memoryTx) GetSaleItems(ctx context.Context, saleID int64) ([]SaleItem, error) {
	return append([]SaleItem(nil), t.store.items[saleID]...), nil
}

func (t *memoryTx) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	if _, dup := t.store.invoices[sale.InvoiceNumber]; dup {
		return 0, shared.ConflictError{Field: "invoice_number", Value: sale.InvoiceNumber}
	}
	t.store.nextSaleID++
	sale.ID = t.store.nextSaleID
	t.store.sales[sale.ID] = sale
	t.store.invoices[sale.InvoiceNumber] = sale.ID
	return sale.ID, nil
}

func (t *memoryTx) UpdateSale(ctx context.Context, sale Sale) error {
	current, ok := t.store.sales[sale.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if owner, dup := t.store.invoices[sale.InvoiceNumber]; dup && owner != sale.ID {
		return shared.ConflictError{Field: "invoice_number", Value: sale.InvoiceNumber}
	}
	delete(t.store.invoices, current.InvoiceNumber)
	t.store.invoices[sale.InvoiceNumber] = sale.ID
	t.store.sales[sale.ID] = sale
	return nil
}

func (t *memoryTx) DeleteSale(ctx context.Context, id int64) error {
	if sale, ok := t.store.sales[id]; ok {
		delete(t.store.invoices, sale.InvoiceNumber)
	}
	delete(t.store.sales, id)
	return nil
}

func (t *memoryTx) InsertSaleItems(ctx context.Context, saleID int64, items []SaleItem) error {
	t.store.items[saleID] = append([]SaleItem(nil), items...)
	return nil
}

func (t *memoryTx) DeleteSaleItems(ctx context.Context, saleID int64) error {
	delete(t.store.items, saleID)
	return nil
}

func (t *memoryTx) CustomerExists(ctx context.Context, id int64) (bool, error) {
	return t.store.customers[id], nil
}

func (t *memoryTx) AdjustStock(ctx context.Context, productID, delta int64) error {
	current, ok := t.store.stock[productID]
	if !ok {
		return shared.NewValidationError("product_id", "unknown product")
	}
	if current+delta < 0 {
		return shared.StockError{Kind: shared.StockInsufficient, ProductID: productID}
	}
	t.store.stock[productID] = current + delta
	return nil
}

func (t *memoryTx) SetProductCost(ctx context.Context, productID int64, cost decimal.Decimal) error {
	t.store.costs[productID] = cost
	return nil
}

func (t *memoryTx) ProductCosts(ctx context.Context, ids []int64) (map[int64]decimal.Decimal, error) {
	out := make(map[int64]decimal.Decimal, len(ids))
	for _, id := range ids {
		if cost, ok := t.store.costs[id]; ok {
			out[id] = cost
		}
	}
	return out, nil
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
	for _, line := range lines {
		t.store.ledgerRows[entry.ID] = append(t.store.ledgerRows[entry.ID], ledger.GeneralLedgerRow{
			TransactionDate: entry.EntryDate,
			AccountID:       line.AccountID,
			Debit:           line.Debit,
			Credit:          line.Credit,
			ReferenceType:   entry.ReferenceType,
			ReferenceID:     entry.ReferenceID,
			JournalEntryID:  entry.ID,
		})
	}
	return nil
}

func (t *memoryTx) DeleteLines(ctx context.Context, entryID int64) error {
	delete(t.store.lines, entryID)
	delete(t.store.ledgerRows, entryID)
	return nil
}

func newTestService(store *memoryStore) *Service {
	svc := NewService(store, inventory.NewAdjuster(), ledger.NewPoster(), 1)
	svc.WithNow(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) })
	return svc
}

func saleInput(qty int64) SaleInput {
	price := dec("80")
	total := price.Mul(decimal.NewFromInt(qty))
	return SaleInput{
		InvoiceNumber: "INV-001",
		CustomerID:    1,
		Subtotal:      total,
		TotalAmount:   total,
		AmountPaid:    total,
		Items:         []SaleItemInput{{ProductID: 1, Quantity: qty, Price: price}},
	}
}

func TestCreateSimpleSale(t *testing.T) {
	store := newMemoryStore()
	store.stock[1] = 10
	store.costs[1] = dec("50")
	svc := newTestService(store)

	sale, err := svc.Create(context.Background(), saleInput(3))
	require.NoError(t, err)
	require.EqualValues(t, 7, store.stock[1])
	require.True(t, sale.Items[0].CostPrice.Equal(dec("50")), "cost snapshot captured")

	require.Len(t, store.entries, 1)
	lines := store.lines[1]
	require.Len(t, lines, 4)
	requireLine(t, lines, ledger.AccountCash, dec("240"), decimal.Zero)
	requireLine(t, lines, ledger.AccountSalesRevenue, decimal.Zero, dec("240"))
	requireLine(t, lines, ledger.AccountCOGS, dec("150"), decimal.Zero)
	requireLine(t, lines, ledger.AccountInventory, decimal.Zero, dec("150"))
}

func TestWritesNotifyReportsChangedOnlyOnCommit(t *testing.T) {
	store := newMemoryStore()
	store.stock[1] = 10
	store.costs[1] = dec("50")
	svc := newTestService(store)
	ctx := context.Background()

	var notified int
	svc.WithReportsChanged(func(context.Context) { notified++ })

	sale, err := svc.Create(ctx, saleInput(3))
	require.NoError(t, err)
	require.Equal(t, 1, notified)

	// A rolled-back write must leave cached reports alone.
	oversold := saleInput(50)
	oversold.InvoiceNumber = "INV-002"
	_, err = svc.Create(ctx, oversold)
	require.True(t, shared.IsStock(err))
	require.Equal(t, 1, notified)

	require.NoError(t, svc.Delete(ctx, sale.ID))
	require.Equal(t, 2, notified)
}

func TestCreateSaleInsufficientStockLeavesNoTrace(t *testing.T) {
	store := newMemoryStore()
	store.stock[1] = 2
	store.costs[1] = dec("50")
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), saleInput(5))
	require.True(t, shared.IsStock(err))
	require.EqualValues(t, 2, store.stock[1])
	require.Empty(t, store.sales)
	require.Empty(t, store.entries)
}

func TestCreateSaleRejectsUnpaidInvoice(t *testing.T) {
	store := newMemoryStore()
	store.stock[1] = 10
	store.costs[1] = dec("50")
	svc := newTestService(store)

	input := saleInput(2)
	input.AmountPaid = dec("1")
	_, err := svc.Create(context.Background(), input)
	require.True(t, shared.IsValidation(err))
}

func TestCreateSaleDuplicateInvoice(t *testing.T) {
	store := newMemoryStore()
	store.stock[1] = 10
	store.costs[1] = dec("50")
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Create(ctx, saleInput(1))
	require.NoError(t, err)
	_, err = svc.Create(ctx, saleInput(1))
	require.True(t, shared.IsConflict(err))
}

func TestDeleteSaleRestoresStockAndLedger(t *testing.T) {
	store := newMemoryStore()
	store.stock[1] = 10
	store.costs[1] = dec("50")
	svc := newTestService(store)
	ctx := context.Background()

	sale, err := svc.Create(ctx, saleInput(3))
	require.NoError(t, err)
	require.EqualValues(t, 7, store.stock[1])

	require.NoError(t, svc.Delete(ctx, sale.ID))
	require.EqualValues(t, 10, store.stock[1])
	require.Empty(t, store.entries)
	for _, rows := range store.ledgerRows {
		require.Empty(t, rows)
	}
	_, err = svc.Get(ctx, sale.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateSaleSameItemsIsIdempotent(t *testing.T) {
	store := newMemoryStore()
	store.stock[1] = 10
	store.costs[1] = dec("50")
	svc := newTestService(store)
	ctx := context.Background()

	sale, err := svc.Create(ctx, saleInput(3))
	require.NoError(t, err)
	linesBefore := append([]ledger.LineSpec(nil), store.lines[1]...)

	_, err = svc.Update(ctx, sale.ID, saleInput(3))
	require.NoError(t, err)
	require.EqualValues(t, 7, store.stock[1], "stock unchanged")
	require.Equal(t, len(linesBefore), len(store.lines[1]))
	for i := range linesBefore {
		require.Equal(t, linesBefore[i].AccountID, store.lines[1][i].AccountID)
		require.True(t, linesBefore[i].Debit.Equal(store.lines[1][i].Debit))
		require.True(t, linesBefore[i].Credit.Equal(store.lines[1][i].Credit))
	}
}

func TestUpdateSaleDropsItemRestoresStock(t *testing.T) {
	store := newMemoryStore()
	store.stock[1] = 10
	store.stock[2] = 4
	store.costs[1] = dec("50")
	store.costs[2] = dec("20")
	svc := newTestService(store)
	ctx := context.Background()

	input := saleInput(3)
	input.Items = append(input.Items, SaleItemInput{ProductID: 2, Quantity: 2, Price: dec("30")})
	input.Subtotal = dec("300")
	input.TotalAmount = dec("300")
	input.AmountPaid = dec("300")
	sale, err := svc.Create(ctx, input)
	require.NoError(t, err)
	require.EqualValues(t, 7, store.stock[1])
	require.EqualValues(t, 2, store.stock[2])

	// Updated sale drops product 2 entirely.
	_, err = svc.Update(ctx, sale.ID, saleInput(3))
	require.NoError(t, err)
	require.EqualValues(t, 7, store.stock[1])
	require.EqualValues(t, 4, store.stock[2], "dropped item fully restored")
}

func TestUpdateMissingSale(t *testing.T) {
	store := newMemoryStore()
	store.stock[1] = 10
	store.costs[1] = dec("50")
	svc := newTestService(store)

	_, err := svc.Update(context.Background(), 999, saleInput(1))
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func requireLine(t *testing.T, lines []ledger.LineSpec, account int64, debit, credit decimal.Decimal) {
	t.Helper()
	for _, line := range lines {
		if line.AccountID == account {
			require.True(t, line.Debit.Equal(debit), "account %d debit %s want %s", account, line.Debit, debit)
			require.True(t, line.Credit.Equal(credit), "account %d credit %s want %s", account, line.Credit, credit)
			return
		}
	}
	t.Fatalf("no line for account %d", account)
}
