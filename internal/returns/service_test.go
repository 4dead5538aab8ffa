package returns

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

// memoryStore fakes the transactional surface for returns: return headers and
// items, original sale/purchase quantities, product stock/cost, journal
// entries and lines. WithTx snapshots state and restores it when fn fails.
type memoryStore struct {
	nextReturnID int64
	nextEntryID  int64

	saleReturns     map[int64]SaleReturn
	purchaseReturns map[int64]PurchaseReturn
	items           map[int64][]ReturnItem
	numbers         map[string]int64

	saleQty     map[int64]map[int64]int64
	purchaseQty map[int64]map[int64]int64
	customers   map[int64]bool
	vendors     map[int64]bool

	stock   map[int64]int64
	costs   map[int64]decimal.Decimal
	entries map[int64]ledger.JournalEntry
	lines   map[int64][]ledger.LineSpec
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		saleReturns:     make(map[int64]SaleReturn),
		purchaseReturns: make(map[int64]PurchaseReturn),
		items:           make(map[int64][]ReturnItem),
		numbers:         make(map[string]int64),
		saleQty:         make(map[int64]map[int64]int64),
		purchaseQty:     make(map[int64]map[int64]int64),
		customers:       map[int64]bool{1: true},
		vendors:         map[int64]bool{1: true},
		stock:           make(map[int64]int64),
		costs:           make(map[int64]decimal.Decimal),
		entries:         make(map[int64]ledger.JournalEntry),
		lines:           make(map[int64][]ledger.LineSpec),
	}
}

func (m *memoryStore) clone() *memoryStore {
	c := newMemoryStore()
	c.nextReturnID = m.nextReturnID
	c.nextEntryID = m.nextEntryID
	for k, v := range m.saleReturns {
		c.saleReturns[k] = v
	}
	for k, v := range m.purchaseReturns {
		c.purchaseReturns[k] = v
	}
	for k, v := range m.items {
		c.items[k] = append([]ReturnItem(nil), v...)
	}
	for k, v := range m.numbers {
		c.numbers[k] = v
	}
	for k, v := range m.saleQty {
		inner := make(map[int64]int64, len(v))
		for pk, pv := range v {
			inner[pk] = pv
		}
		c.saleQty[k] = inner
	}
	for k, v := range m.purchaseQty {
		inner := make(map[int64]int64, len(v))
		for pk, pv := range v {
			inner[pk] = pv
		}
		c.purchaseQty[k] = inner
	}
	for k, v := range m.customers {
		c.customers[k] = v
	}
	for k, v := range m.vendors {
		c.vendors[k] = v
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
	return c
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := m.clone()
	if err := fn(ctx, &memoryTx{store: m}); err != nil {
		*m = *snapshot
		return err
	}
	return nil
}

func (m *memoryStore) GetSaleReturn(ctx context.Context, id int64) (SaleReturn, error) {
	ret, ok := m.saleReturns[id]
	if !ok {
		return SaleReturn{}, shared.ErrNotFound
	}
	ret.Items = append([]ReturnItem(nil), m.items[id]...)
	return ret, nil
}

func (m *memoryStore) GetPurchaseReturn(ctx context.Context, id int64) (PurchaseReturn, error) {
	ret, ok := m.purchaseReturns[id]
	if !ok {
		return PurchaseReturn{}, shared.ErrNotFound
	}
	ret.Items = append([]ReturnItem(nil), m.items[id]...)
	return ret, nil
}

func (m *memoryStore) ListSaleReturns(ctx context.Context, filter ListFilter) ([]SaleReturn, int, error) {
	var out []SaleReturn
	for _, ret := range m.saleReturns {
		out = append(out, ret)
	}
	return out, len(out), nil
}

func (m *memoryStore) ListPurchaseReturns(ctx context.Context, filter ListFilter) ([]PurchaseReturn, int, error) {
	var out []PurchaseReturn
	for _, ret := range m.purchaseReturns {
		out = append(out, ret)
	}
	return out, len(out), nil
}

type memoryTx struct {
	store *memoryStore
}

func (t *memoryTx) GetSaleReturnForUpdate(ctx context.Context, id int64) (SaleReturn, error) {
	ret, ok := t.store.saleReturns[id]
	if !ok {
		return SaleReturn{}, shared.ErrNotFound
	}
	return ret, nil
}

func (t *memoryTx) GetSaleReturnItems(ctx context.Context, returnID int64) ([]ReturnItem, error) {
	return append([]ReturnItem(nil), t.store.items[returnID]...), nil
}

func (t *memoryTx) InsertSaleReturn(ctx context.Context, ret SaleReturn) (int64, error) {
	if _, dup := t.store.numbers[ret.ReturnNumber]; dup {
		return 0, shared.ConflictError{Field: "return_number", Value: ret.ReturnNumber}
	}
	t.store.nextReturnID++
	ret.ID = t.store.nextReturnID
	t.store.saleReturns[ret.ID] = ret
	t.store.numbers[ret.ReturnNumber] = ret.ID
	return ret.ID, nil
}

func (t *memoryTx) UpdateSaleReturn(ctx context.Context, ret SaleReturn) error {
	current, ok := t.store.saleReturns[ret.ID]
	if !ok {
		return shared.ErrNotFound
	}
	delete(t.store.numbers, current.ReturnNumber)
	t.store.numbers[ret.ReturnNumber] = ret.ID
	t.store.saleReturns[ret.ID] = ret
	return nil
}

func (t *memoryTx) DeleteSaleReturn(ctx context.Context, id int64) error {
	if ret, ok := t.store.saleReturns[id]; ok {
		delete(t.store.numbers, ret.ReturnNumber)
	}
	delete(t.store.saleReturns, id)
	return nil
}

func (t *memoryTx) InsertSaleReturnItems(ctx context.Context, returnID int64, items []ReturnItem) error {
	t.store.items[returnID] = append([]ReturnItem(nil), items...)
	return nil
}

func (t *memoryTx) DeleteSaleReturnItems(ctx context.Context, returnID int64) error {
	delete(t.store.items, returnID)
	return nil
}

func (t *memoryTx) GetPurchaseReturnForUpdate(ctx context.Context, id int64) (PurchaseReturn, error) {
	ret, ok := t.store.purchaseReturns[id]
	if !ok {
		return PurchaseReturn{}, shared.ErrNotFound
	}
	return ret, nil
}

func (t *memoryTx) GetPurchaseReturnItems(ctx context.Context, returnID int64) ([]ReturnItem, error) {
	return append([]ReturnItem(nil), t.store.items[returnID]...), nil
}

func (t *memoryTx) InsertPurchaseReturn(ctx context.Context, ret PurchaseReturn) (int64, error) {
	if _, dup := t.store.numbers[ret.ReturnNumber]; dup {
		return 0, shared.ConflictError{Field: "return_number", Value: ret.ReturnNumber}
	}
	t.store.nextReturnID++
	ret.ID = t.store.nextReturnID
	t.store.purchaseReturns[ret.ID] = ret
	t.store.numbers[ret.ReturnNumber] = ret.ID
	return ret.ID, nil
}

func (t *memoryTx) UpdatePurchaseReturn(ctx context.Context, ret PurchaseReturn) error {
	current, ok := t.store.purchaseReturns[ret.ID]
	if !ok {
		return shared.ErrNotFound
	}
	delete(t.store.numbers, current.ReturnNumber)
	t.store.numbers[ret.ReturnNumber] = ret.ID
	t.store.purchaseReturns[ret.ID] = ret
	return nil
}

func (t *memoryTx) DeletePurchaseReturn(ctx context.Context, id int64) error {
	if ret, ok := t.store.purchaseReturns[id]; ok {
		delete(t.store.numbers, ret.ReturnNumber)
	}
	delete(t.store.purchaseReturns, id)
	return nil
}

func (t *memoryTx) InsertPurchaseReturnItems(ctx context.Context, returnID int64, items []ReturnItem) error {
	t.store.items[returnID] = append([]ReturnItem(nil), items...)
	return nil
}

func (t *memoryTx) DeletePurchaseReturnItems(ctx context.Context, returnID int64) error {
	delete(t.store.items, returnID)
	return nil
}

func (t *memoryTx) SaleExists(ctx context.Context, id int64) (bool, error) {
	_, ok := t.store.saleQty[id]
	return ok, nil
}

func (t *memoryTx) PurchaseExists(ctx context.Context, id int64) (bool, error) {
	_, ok := t.store.purchaseQty[id]
	return ok, nil
}

func (t *memoryTx) CustomerExists(ctx context.Context, id int64) (bool, error) {
	return t.store.customers[id], nil
}

func (t *memoryTx) VendorExists(ctx context.Context, id int64) (bool, error) {
	return t.store.vendors[id], nil
}

func (t *memoryTx) OriginalSaleQuantities(ctx context.Context, saleID int64) (map[int64]int64, error) {
	return t.store.saleQty[saleID], nil
}

func (t *memoryTx) OriginalPurchaseQuantities(ctx context.Context, purchaseID int64) (map[int64]int64, error) {
	return t.store.purchaseQty[purchaseID], nil
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
	return nil
}

func (t *memoryTx) DeleteLines(ctx context.Context, entryID int64) error {
	delete(t.store.lines, entryID)
	return nil
}

func newTestService(store *memoryStore) *Service {
	svc := NewService(store, inventory.NewAdjuster(), ledger.NewPoster(), 1, 1)
	svc.WithNow(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) })
	return svc
}

func saleReturnInput(qty int64) SaleReturnInput {
	price := dec("80")
	total := price.Mul(decimal.NewFromInt(qty))
	return SaleReturnInput{
		ReturnNumber:   "SRN-001",
		OriginalSaleID: 1,
		CustomerID:     1,
		Subtotal:       total,
		TotalAmount:    total,
		RefundAmount:   total,
		Reason:         "defective",
		Items:          []ReturnItemInput{{ProductID: 1, Quantity: qty, UnitPrice: price}},
	}
}

func purchaseReturnInput(qty int64) PurchaseReturnInput {
	price := dec("50")
	total := price.Mul(decimal.NewFromInt(qty))
	return PurchaseReturnInput{
		ReturnNumber:       "PRN-001",
		OriginalPurchaseID: 1,
		VendorID:           1,
		Subtotal:           total,
		TotalAmount:        total,
		RefundReceived:     total,
		Reason:             "damaged in transit",
		Items:              []ReturnItemInput{{ProductID: 1, Quantity: qty, UnitPrice: price}},
	}
}

func TestCreateSaleReturnRestocksAndPosts(t *testing.T) {
	store := newMemoryStore()
	store.saleQty[1] = map[int64]int64{1: 3}
	store.stock[1] = 7
	store.costs[1] = dec("50")
	svc := newTestService(store)

	ret, err := svc.CreateSaleReturn(context.Background(), saleReturnInput(1))
	require.NoError(t, err)
	require.EqualValues(t, 8, store.stock[1])
	require.Equal(t, StatusCompleted, ret.Status)

	require.Len(t, store.entries, 1)
	lines := store.lines[1]
	require.Len(t, lines, 4)
	requireLine(t, lines, ledger.AccountSalesRevenue, dec("80"), decimal.Zero)
	requireLine(t, lines, ledger.AccountCash, decimal.Zero, dec("80"))
	requireLine(t, lines, ledger.AccountInventory, dec("50"), decimal.Zero)
	requireLine(t, lines, ledger.AccountCOGS, decimal.Zero, dec("50"))
}

func TestSaleReturnExceedsOriginalRejected(t *testing.T) {
	store := newMemoryStore()
	store.saleQty[1] = map[int64]int64{1: 3}
	store.stock[1] = 7
	store.costs[1] = dec("50")
	svc := newTestService(store)

	_, err := svc.CreateSaleReturn(context.Background(), saleReturnInput(5))
	require.True(t, shared.IsStock(err))
	require.EqualValues(t, 7, store.stock[1])
	require.Empty(t, store.saleReturns)
	require.Empty(t, store.entries)
}

func TestSaleReturnSplitLinesCannotExceedOriginal(t *testing.T) {
	store := newMemoryStore()
	store.saleQty[1] = map[int64]int64{1: 3}
	store.stock[1] = 7
	store.costs[1] = dec("50")
	svc := newTestService(store)

	// Splitting the product over two lines must not widen the bound.
	price := dec("80")
	input := saleReturnInput(4)
	input.Items = []ReturnItemInput{
		{ProductID: 1, Quantity: 2, UnitPrice: price},
		{ProductID: 1, Quantity: 2, UnitPrice: price},
	}
	_, err := svc.CreateSaleReturn(context.Background(), input)
	require.True(t, shared.IsStock(err))
	require.EqualValues(t, 7, store.stock[1])
	require.Empty(t, store.saleReturns)
}

func TestSaleReturnUnknownProductRejected(t *testing.T) {
	store := newMemoryStore()
	store.saleQty[1] = map[int64]int64{1: 3}
	store.stock[1] = 7
	store.stock[2] = 5
	store.costs[1] = dec("50")
	svc := newTestService(store)

	input := saleReturnInput(1)
	input.Items[0].ProductID = 2
	_, err := svc.CreateSaleReturn(context.Background(), input)
	require.True(t, shared.IsStock(err), "product absent from original sale")
}

func TestSaleReturnRefundMismatchRejected(t *testing.T) {
	store := newMemoryStore()
	store.saleQty[1] = map[int64]int64{1: 3}
	store.stock[1] = 7
	store.costs[1] = dec("50")
	svc := newTestService(store)

	input := saleReturnInput(1)
	input.RefundAmount = dec("10")
	_, err := svc.CreateSaleReturn(context.Background(), input)
	require.True(t, shared.IsValidation(err))
}

func TestSaleReturnUsesCurrentCost(t *testing.T) {
	store := newMemoryStore()
	store.saleQty[1] = map[int64]int64{1: 3}
	store.stock[1] = 7
	// Cost drifted since the original sale; the return values goods at the
	// current standing cost.
	store.costs[1] = dec("60")
	svc := newTestService(store)

	_, err := svc.CreateSaleReturn(context.Background(), saleReturnInput(1))
	require.NoError(t, err)
	requireLine(t, store.lines[1], ledger.AccountInventory, dec("60"), decimal.Zero)
	requireLine(t, store.lines[1], ledger.AccountCOGS, decimal.Zero, dec("60"))
}

func TestDeleteSaleReturnTakesStockBack(t *testing.T) {
	store := newMemoryStore()
	store.saleQty[1] = map[int64]int64{1: 3}
	store.stock[1] = 7
	store.costs[1] = dec("50")
	svc := newTestService(store)
	ctx := context.Background()

	ret, err := svc.CreateSaleReturn(ctx, saleReturnInput(2))
	require.NoError(t, err)
	require.EqualValues(t, 9, store.stock[1])

	require.NoError(t, svc.DeleteSaleReturn(ctx, ret.ID))
	require.EqualValues(t, 7, store.stock[1])
	require.Empty(t, store.entries)
	_, err = svc.GetSaleReturn(ctx, ret.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateSaleReturnNetsDelta(t *testing.T) {
	store := newMemoryStore()
	store.saleQty[1] = map[int64]int64{1: 3}
	store.stock[1] = 7
	store.costs[1] = dec("50")
	svc := newTestService(store)
	ctx := context.Background()

	ret, err := svc.CreateSaleReturn(ctx, saleReturnInput(1))
	require.NoError(t, err)
	require.EqualValues(t, 8, store.stock[1])

	_, err = svc.UpdateSaleReturn(ctx, ret.ID, saleReturnInput(3))
	require.NoError(t, err)
	require.EqualValues(t, 10, store.stock[1], "net delta of +2 applied")
	requireLine(t, store.lines[1], ledger.AccountSalesRevenue, dec("240"), decimal.Zero)
}

func TestCreatePurchaseReturnRemovesStockAndPosts(t *testing.T) {
	store := newMemoryStore()
	store.purchaseQty[1] = map[int64]int64{1: 10}
	store.stock[1] = 10
	store.costs[1] = dec("50")
	svc := newTestService(store)

	_, err := svc.CreatePurchaseReturn(context.Background(), purchaseReturnInput(4))
	require.NoError(t, err)
	require.EqualValues(t, 6, store.stock[1])

	lines := store.lines[1]
	require.Len(t, lines, 4)
	requireLine(t, lines, ledger.AccountCash, dec("200"), decimal.Zero)
	requireLine(t, lines, ledger.AccountInventory, decimal.Zero, dec("200"))
	requireLine(t, lines, ledger.AccountCOGS, dec("200"), decimal.Zero)
	requireLine(t, lines, ledger.AccountAccountsPayable, decimal.Zero, dec("200"))
}

func TestPurchaseReturnInsufficientStock(t *testing.T) {
	store := newMemoryStore()
	store.purchaseQty[1] = map[int64]int64{1: 10}
	store.stock[1] = 2
	store.costs[1] = dec("50")
	svc := newTestService(store)

	_, err := svc.CreatePurchaseReturn(context.Background(), purchaseReturnInput(4))
	require.True(t, shared.IsStock(err))
	require.EqualValues(t, 2, store.stock[1])
	require.Empty(t, store.purchaseReturns)
}

func TestPurchaseReturnUnknownPurchase(t *testing.T) {
	store := newMemoryStore()
	store.stock[1] = 10
	store.costs[1] = dec("50")
	svc := newTestService(store)

	_, err := svc.CreatePurchaseReturn(context.Background(), purchaseReturnInput(1))
	require.True(t, shared.IsValidation(err))
}

func TestDeletePurchaseReturnRestoresStock(t *testing.T) {
	store := newMemoryStore()
	store.purchaseQty[1] = map[int64]int64{1: 10}
	store.stock[1] = 10
	store.costs[1] = dec("50")
	svc := newTestService(store)
	ctx := context.Background()

	ret, err := svc.CreatePurchaseReturn(ctx, purchaseReturnInput(4))
	require.NoError(t, err)
	require.EqualValues(t, 6, store.stock[1])

	require.NoError(t, svc.DeletePurchaseReturn(ctx, ret.ID))
	require.EqualValues(t, 10, store.stock[1])
	require.Empty(t, store.entries)
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
