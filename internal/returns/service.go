package returns

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-retail/meridian/internal/inventory"
	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/shared"
)

// Service coordinates sale-return and purchase-return flows. Bound checks run
// against the original transaction inside the same unit of work as the stock
// and ledger writes.
type Service struct {
	repo              Repository
	adjuster          *inventory.Adjuster
	poster            *ledger.Poster
	defaultCustomerID int64
	defaultVendorID   int64
	now               func() time.Time
	reportsChanged    func(context.Context)
}

// NewService builds the returns Service.
func NewService(repo Repository, adjuster *inventory.Adjuster, poster *ledger.Poster, defaultCustomerID, defaultVendorID int64) *Service {
	return &Service{
		repo:              repo,
		adjuster:          adjuster,
		poster:            poster,
		defaultCustomerID: defaultCustomerID,
		defaultVendorID:   defaultVendorID,
		now:               time.Now,
	}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithReportsChanged registers a hook run after every committed write so
// cached reports can be invalidated.
func (s *Service) WithReportsChanged(fn func(context.Context)) {
	s.reportsChanged = fn
}

func (s *Service) notifyReportsChanged(ctx context.Context) {
	if s.reportsChanged != nil {
		s.reportsChanged(ctx)
	}
}

// GetSaleReturn loads one sale return with its items.
func (s *Service) GetSaleReturn(ctx context.Context, id int64) (SaleReturn, error) {
	return s.repo.GetSaleReturn(ctx, id)
}

// GetPurchaseReturn loads one purchase return with its items.
func (s *Service) GetPurchaseReturn(ctx context.Context, id int64) (PurchaseReturn, error) {
	return s.repo.GetPurchaseReturn(ctx, id)
}

// ListSaleReturns returns sale returns matching the filter.
func (s *Service) ListSaleReturns(ctx context.Context, filter ListFilter) ([]SaleReturn, shared.Pagination, error) {
	filter = defaultFilter(filter)
	out, total, err := s.repo.ListSaleReturns(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return out, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// ListPurchaseReturns returns purchase returns matching the filter.
func (s *Service) ListPurchaseReturns(ctx context.Context, filter ListFilter) ([]PurchaseReturn, shared.Pagination, error) {
	filter = defaultFilter(filter)
	out, total, err := s.repo.ListPurchaseReturns(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return out, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// CreateSaleReturn restocks returned goods, refunds the customer and posts
// the reversing journal entry.
func (s *Service) CreateSaleReturn(ctx context.Context, input SaleReturnInput) (SaleReturn, error) {
	input, err := s.normalizeSaleReturn(input)
	if err != nil {
		return SaleReturn{}, err
	}
	var created SaleReturn
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.checkSaleReturnRefs(ctx, tx, input); err != nil {
			return err
		}
		items := buildItems(input.Items)
		movements := toMovements(items)
		originals, err := tx.OriginalSaleQuantities(ctx, input.OriginalSaleID)
		if err != nil {
			return err
		}
		if err := inventory.CheckReturnBound(originals, movements); err != nil {
			return err
		}
		ret := saleReturnFromInput(input)
		id, err := tx.InsertSaleReturn(ctx, ret)
		if err != nil {
			return err
		}
		ret.ID = id
		if err := tx.InsertSaleReturnItems(ctx, id, items); err != nil {
			return err
		}
		if err := s.adjuster.ApplyCreate(ctx, tx, inventory.KindSaleReturn, movements); err != nil {
			return err
		}
		cogs, err := currentCOGS(ctx, tx, movements)
		if err != nil {
			return err
		}
		if _, err := s.poster.Post(ctx, tx, s.saleReturnEvent(ret, cogs)); err != nil {
			return err
		}
		ret.Items = items
		created = ret
		return nil
	})
	if err != nil {
		return SaleReturn{}, err
	}
	s.notifyReportsChanged(ctx)
	return created, nil
}

// UpdateSaleReturn replaces the item set, nets the stock delta and re-derives
// the posting.
func (s *Service) UpdateSaleReturn(ctx context.Context, id int64, input SaleReturnInput) (SaleReturn, error) {
	input, err := s.normalizeSaleReturn(input)
	if err != nil {
		return SaleReturn{}, err
	}
	var updated SaleReturn
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetSaleReturnForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.checkSaleReturnRefs(ctx, tx, input); err != nil {
			return err
		}
		items := buildItems(input.Items)
		movements := toMovements(items)
		originals, err := tx.OriginalSaleQuantities(ctx, input.OriginalSaleID)
		if err != nil {
			return err
		}
		if err := inventory.CheckReturnBound(originals, movements); err != nil {
			return err
		}
		previousItems, err := tx.GetSaleReturnItems(ctx, id)
		if err != nil {
			return err
		}
		ret := saleReturnFromInput(input)
		ret.ID = current.ID
		ret.CreatedAt = current.CreatedAt
		if err := tx.UpdateSaleReturn(ctx, ret); err != nil {
			return err
		}
		if err := tx.DeleteSaleReturnItems(ctx, id); err != nil {
			return err
		}
		if err := tx.InsertSaleReturnItems(ctx, id, items); err != nil {
			return err
		}
		if err := s.adjuster.ApplyUpdate(ctx, tx, inventory.KindSaleReturn, itemQuantities(previousItems), movements); err != nil {
			return err
		}
		cogs, err := currentCOGS(ctx, tx, movements)
		if err != nil {
			return err
		}
		if _, err := s.poster.Repost(ctx, tx, s.saleReturnEvent(ret, cogs)); err != nil {
			return err
		}
		ret.Items = items
		updated = ret
		return nil
	})
	if err != nil {
		return SaleReturn{}, err
	}
	s.notifyReportsChanged(ctx)
	return updated, nil
}

// DeleteSaleReturn takes the restocked goods back out of inventory and
// removes the posting. It fails when the restocked goods were already sold.
func (s *Service) DeleteSaleReturn(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetSaleReturnForUpdate(ctx, id); err != nil {
			return err
		}
		items, err := tx.GetSaleReturnItems(ctx, id)
		if err != nil {
			return err
		}
		if err := s.adjuster.Reverse(ctx, tx, inventory.KindSaleReturn, toMovements(items)); err != nil {
			return err
		}
		if err := s.poster.Remove(ctx, tx, ledger.ReferenceSaleReturn, id); err != nil {
			return err
		}
		if err := tx.DeleteSaleReturnItems(ctx, id); err != nil {
			return err
		}
		return tx.DeleteSaleReturn(ctx, id)
	})
	if err != nil {
		return err
	}
	s.notifyReportsChanged(ctx)
	return nil
}

// CreatePurchaseReturn ships goods back to the vendor, records the refund and
// posts the reversing journal entry.
func (s *Service) CreatePurchaseReturn(ctx context.Context, input PurchaseReturnInput) (PurchaseReturn, error) {
	input, err := s.normalizePurchaseReturn(input)
	if err != nil {
		return PurchaseReturn{}, err
	}
	var created PurchaseReturn
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.checkPurchaseReturnRefs(ctx, tx, input); err != nil {
			return err
		}
		items := buildItems(input.Items)
		movements := toMovements(items)
		originals, err := tx.OriginalPurchaseQuantities(ctx, input.OriginalPurchaseID)
		if err != nil {
			return err
		}
		if err := inventory.CheckReturnBound(originals, movements); err != nil {
			return err
		}
		ret := purchaseReturnFromInput(input)
		id, err := tx.InsertPurchaseReturn(ctx, ret)
		if err != nil {
			return err
		}
		ret.ID = id
		if err := tx.InsertPurchaseReturnItems(ctx, id, items); err != nil {
			return err
		}
		if err := s.adjuster.ApplyCreate(ctx, tx, inventory.KindPurchaseReturn, movements); err != nil {
			return err
		}
		cogs, err := currentCOGS(ctx, tx, movements)
		if err != nil {
			return err
		}
		if _, err := s.poster.Post(ctx, tx, s.purchaseReturnEvent(ret, cogs)); err != nil {
			return err
		}
		ret.Items = items
		created = ret
		return nil
	})
	if err != nil {
		return PurchaseReturn{}, err
	}
	s.notifyReportsChanged(ctx)
	return created, nil
}

// UpdatePurchaseReturn replaces the item set, nets the stock delta and
// re-derives the posting.
func (s *Service) UpdatePurchaseReturn(ctx context.Context, id int64, input PurchaseReturnInput) (PurchaseReturn, error) {
	input, err := s.normalizePurchaseReturn(input)
	if err != nil {
		return PurchaseReturn{}, err
	}
	var updated PurchaseReturn
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPurchaseReturnForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.checkPurchaseReturnRefs(ctx, tx, input); err != nil {
			return err
		}
		items := buildItems(input.Items)
		movements := toMovements(items)
		originals, err := tx.OriginalPurchaseQuantities(ctx, input.OriginalPurchaseID)
		if err != nil {
			return err
		}
		if err := inventory.CheckReturnBound(originals, movements); err != nil {
			return err
		}
		previousItems, err := tx.GetPurchaseReturnItems(ctx, id)
		if err != nil {
			return err
		}
		ret := purchaseReturnFromInput(input)
		ret.ID = current.ID
		ret.CreatedAt = current.CreatedAt
		if err := tx.UpdatePurchaseReturn(ctx, ret); err != nil {
			return err
		}
		if err := tx.DeletePurchaseReturnItems(ctx, id); err != nil {
			return err
		}
		if err := tx.InsertPurchaseReturnItems(ctx, id, items); err != nil {
			return err
		}
		if err := s.adjuster.ApplyUpdate(ctx, tx, inventory.KindPurchaseReturn, itemQuantities(previousItems), movements); err != nil {
			return err
		}
		cogs, err := currentCOGS(ctx, tx, movements)
		if err != nil {
			return err
		}
		if _, err := s.poster.Repost(ctx, tx, s.purchaseReturnEvent(ret, cogs)); err != nil {
			return err
		}
		ret.Items = items
		updated = ret
		return nil
	})
	if err != nil {
		return PurchaseReturn{}, err
	}
	s.notifyReportsChanged(ctx)
	return updated, nil
}

// DeletePurchaseReturn puts the returned goods back into stock and removes
// the posting.
func (s *Service) DeletePurchaseReturn(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetPurchaseReturnForUpdate(ctx, id); err != nil {
			return err
		}
		items, err := tx.GetPurchaseReturnItems(ctx, id)
		if err != nil {
			return err
		}
		if err := s.adjuster.Reverse(ctx, tx, inventory.KindPurchaseReturn, toMovements(items)); err != nil {
			return err
		}
		if err := s.poster.Remove(ctx, tx, ledger.ReferencePurchaseReturn, id); err != nil {
			return err
		}
		if err := tx.DeletePurchaseReturnItems(ctx, id); err != nil {
			return err
		}
		return tx.DeletePurchaseReturn(ctx, id)
	})
	if err != nil {
		return err
	}
	s.notifyReportsChanged(ctx)
	return nil
}

func (s *Service) normalizeSaleReturn(input SaleReturnInput) (SaleReturnInput, error) {
	if err := checkItems(input.Items); err != nil {
		return input, err
	}
	if input.Subtotal.IsNegative() || input.TaxAmount.IsNegative() || input.TotalAmount.IsNegative() || input.RefundAmount.IsNegative() {
		return input, shared.NewValidationError("amounts", "must not be negative")
	}
	if !input.TotalAmount.Equal(input.Subtotal.Add(input.TaxAmount)) {
		return input, shared.NewValidationError("total_amount", "must equal subtotal + tax_amount")
	}
	// The refund is the cash leg of the reversing entry; anything other than
	// subtotal plus tax cannot balance against the reversed revenue.
	if !input.RefundAmount.Equal(input.TotalAmount) {
		return input, shared.NewValidationError("refund_amount", "must equal total_amount")
	}
	if input.CustomerID == 0 {
		input.CustomerID = s.defaultCustomerID
	}
	if input.ReturnNumber == "" {
		input.ReturnNumber = generateNumber("SRN")
	}
	if input.ReturnDate.IsZero() {
		input.ReturnDate = s.now()
	}
	return input, nil
}

func (s *Service) normalizePurchaseReturn(input PurchaseReturnInput) (PurchaseReturnInput, error) {
	if err := checkItems(input.Items); err != nil {
		return input, err
	}
	if input.Subtotal.IsNegative() || input.TaxAmount.IsNegative() || input.TotalAmount.IsNegative() || input.RefundReceived.IsNegative() {
		return input, shared.NewValidationError("amounts", "must not be negative")
	}
	if !input.TotalAmount.Equal(input.Subtotal.Add(input.TaxAmount)) {
		return input, shared.NewValidationError("total_amount", "must equal subtotal + tax_amount")
	}
	if !input.RefundReceived.Equal(input.TotalAmount) {
		return input, shared.NewValidationError("refund_received", "must equal total_amount")
	}
	if input.VendorID == 0 {
		input.VendorID = s.defaultVendorID
	}
	if input.ReturnNumber == "" {
		input.ReturnNumber = generateNumber("PRN")
	}
	if input.ReturnDate.IsZero() {
		input.ReturnDate = s.now()
	}
	return input, nil
}

func (s *Service) checkSaleReturnRefs(ctx context.Context, tx TxRepository, input SaleReturnInput) error {
	exists, err := tx.SaleExists(ctx, input.OriginalSaleID)
	if err != nil {
		return err
	}
	if !exists {
		return shared.NewValidationError("original_sale_id", "unknown sale")
	}
	exists, err = tx.CustomerExists(ctx, input.CustomerID)
	if err != nil {
		return err
	}
	if !exists {
		return shared.NewValidationError("customer_id", "unknown customer")
	}
	return nil
}

func (s *Service) checkPurchaseReturnRefs(ctx context.Context, tx TxRepository, input PurchaseReturnInput) error {
	exists, err := tx.PurchaseExists(ctx, input.OriginalPurchaseID)
	if err != nil {
		return err
	}
	if !exists {
		return shared.NewValidationError("original_purchase_id", "unknown purchase")
	}
	exists, err = tx.VendorExists(ctx, input.VendorID)
	if err != nil {
		return err
	}
	if !exists {
		return shared.NewValidationError("vendor_id", "unknown vendor")
	}
	return nil
}

func (s *Service) saleReturnEvent(ret SaleReturn, cogs decimal.Decimal) ledger.Event {
	return ledger.Event{
		Type:        ledger.ReferenceSaleReturn,
		ReferenceID: ret.ID,
		Date:        ret.ReturnDate,
		Description: fmt.Sprintf("Sale return %s", ret.ReturnNumber),
		Subtotal:    ret.Subtotal,
		Tax:         ret.TaxAmount,
		Refund:      ret.RefundAmount,
		COGS:        cogs,
	}
}

func (s *Service) purchaseReturnEvent(ret PurchaseReturn, cogs decimal.Decimal) ledger.Event {
	return ledger.Event{
		Type:        ledger.ReferencePurchaseReturn,
		ReferenceID: ret.ID,
		Date:        ret.ReturnDate,
		Description: fmt.Sprintf("Purchase return %s", ret.ReturnNumber),
		Subtotal:    ret.Subtotal,
		Tax:         ret.TaxAmount,
		Total:       ret.TotalAmount,
		Refund:      ret.RefundReceived,
		COGS:        cogs,
	}
}

// currentCOGS values returned goods at the product's current standing cost,
// not the cost recorded on the original transaction.
func currentCOGS(ctx context.Context, tx TxRepository, movements []inventory.Line) (decimal.Decimal, error) {
	ids := make([]int64, 0, len(movements))
	for _, m := range movements {
		ids = append(ids, m.ProductID)
	}
	costs, err := tx.ProductCosts(ctx, ids)
	if err != nil {
		return decimal.Decimal{}, err
	}
	total := decimal.Zero
	for _, m := range movements {
		total = total.Add(costs[m.ProductID].Mul(decimal.NewFromInt(m.Quantity)))
	}
	return total, nil
}

func defaultFilter(filter ListFilter) ListFilter {
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	return filter
}

func checkItems(items []ReturnItemInput) error {
	if len(items) == 0 {
		return shared.NewValidationError("items", "at least one item required")
	}
	for _, item := range items {
		if item.ProductID <= 0 {
			return shared.NewValidationError("product_id", "required")
		}
		if item.Quantity <= 0 {
			return shared.NewValidationError("quantity", "must be greater than zero")
		}
		if item.UnitPrice.IsNegative() {
			return shared.NewValidationError("unit_price", "must not be negative")
		}
	}
	return nil
}

func buildItems(inputs []ReturnItemInput) []ReturnItem {
	items := make([]ReturnItem, 0, len(inputs))
	for _, item := range inputs {
		items = append(items, ReturnItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)),
		})
	}
	return items
}

func saleReturnFromInput(input SaleReturnInput) SaleReturn {
	return SaleReturn{
		ReturnNumber:   input.ReturnNumber,
		OriginalSaleID: input.OriginalSaleID,
		CustomerID:     input.CustomerID,
		Subtotal:       input.Subtotal,
		TaxAmount:      input.TaxAmount,
		TotalAmount:    input.TotalAmount,
		RefundAmount:   input.RefundAmount,
		Reason:         input.Reason,
		Status:         StatusCompleted,
		ReturnDate:     input.ReturnDate,
	}
}

func purchaseReturnFromInput(input PurchaseReturnInput) PurchaseReturn {
	return PurchaseReturn{
		ReturnNumber:       input.ReturnNumber,
		OriginalPurchaseID: input.OriginalPurchaseID,
		VendorID:           input.VendorID,
		Subtotal:           input.Subtotal,
		TaxAmount:          input.TaxAmount,
		TotalAmount:        input.TotalAmount,
		RefundReceived:     input.RefundReceived,
		Reason:             input.Reason,
		Status:             StatusCompleted,
		ReturnDate:         input.ReturnDate,
	}
}

func toMovements(items []ReturnItem) []inventory.Line {
	out := make([]inventory.Line, 0, len(items))
	for _, item := range items {
		out = append(out, inventory.Line{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out
}

func itemQuantities(items []ReturnItem) map[int64]int64 {
	out := make(map[int64]int64, len(items))
	for _, item := range items {
		out[item.ProductID] += item.Quantity
	}
	return out
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(uuid.NewString()[:8]))
}
