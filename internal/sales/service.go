package sales

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

// Service coordinates sale create/update/delete flows. Every operation is one
// committed state change or none: validation happens before the first write,
// and any write failure rolls back header, items, stock and ledger together.
type Service struct {
	repo              Repository
	adjuster          *inventory.Adjuster
	poster            *ledger.Poster
	defaultCustomerID int64
	now               func() time.Time
	reportsChanged    func(context.Context)
}

// NewService builds the sales Service. defaultCustomerID is the walk-in
// customer applied when a payload names no counterparty.
func NewService(repo Repository, adjuster *inventory.Adjuster, poster *ledger.Poster, defaultCustomerID int64) *Service {
	return &Service{
		repo:              repo,
		adjuster:          adjuster,
		poster:            poster,
		defaultCustomerID: defaultCustomerID,
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

// Get loads one sale with its items.
func (s *Service) Get(ctx context.Context, id int64) (Sale, error) {
	return s.repo.Get(ctx, id)
}

// List returns sales matching the filter plus pagination metadata.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Sale, shared.Pagination, error) {
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	sales, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return sales, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Create validates the payload and commits header, items, stock issue and the
// ledger posting as one unit.
func (s *Service) Create(ctx context.Context, input SaleInput) (Sale, error) {
	input, err := s.normalize(input)
	if err != nil {
		return Sale{}, err
	}
	var created Sale
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.checkCustomer(ctx, tx, input.CustomerID); err != nil {
			return err
		}
		items, cogs, err := buildItems(ctx, tx, input.Items)
		if err != nil {
			return err
		}
		sale := saleFromInput(input)
		id, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		sale.ID = id
		if err := tx.InsertSaleItems(ctx, id, items); err != nil {
			return err
		}
		if err := s.adjuster.ApplyCreate(ctx, tx, inventory.KindSale, toMovements(items)); err != nil {
			return err
		}
		if _, err := s.poster.Post(ctx, tx, s.event(sale, cogs)); err != nil {
			return err
		}
		sale.Items = items
		created = sale
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	s.notifyReportsChanged(ctx)
	return created, nil
}

// Update replaces the item set wholesale, applies only the quantity deltas to
// stock and re-derives the ledger posting in place.
func (s *Service) Update(ctx context.Context, id int64, input SaleInput) (Sale, error) {
	input, err := s.normalize(input)
	if err != nil {
		return Sale{}, err
	}
	var updated Sale
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetSaleForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.checkCustomer(ctx, tx, input.CustomerID); err != nil {
			return err
		}
		originalItems, err := tx.GetSaleItems(ctx, id)
		if err != nil {
			return err
		}
		items, cogs, err := buildItems(ctx, tx, input.Items)
		if err != nil {
			return err
		}
		sale := saleFromInput(input)
		sale.ID = current.ID
		sale.CreatedAt = current.CreatedAt
		if err := tx.UpdateSale(ctx, sale); err != nil {
			return err
		}
		if err := tx.DeleteSaleItems(ctx, id); err != nil {
			return err
		}
		if err := tx.InsertSaleItems(ctx, id, items); err != nil {
			return err
		}
		if err := s.adjuster.ApplyUpdate(ctx, tx, inventory.KindSale, itemQuantities(originalItems), toMovements(items)); err != nil {
			return err
		}
		if _, err := s.poster.Repost(ctx, tx, s.event(sale, cogs)); err != nil {
			return err
		}
		sale.Items = items
		updated = sale
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	s.notifyReportsChanged(ctx)
	return updated, nil
}

// Delete reverses the sale's stock effect, removes its journal and ledger rows
// and deletes the header and items.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetSaleForUpdate(ctx, id); err != nil {
			return err
		}
		items, err := tx.GetSaleItems(ctx, id)
		if err != nil {
			return err
		}
		if err := s.adjuster.Reverse(ctx, tx, inventory.KindSale, toMovements(items)); err != nil {
			return err
		}
		if err := s.poster.Remove(ctx, tx, ledger.ReferenceSale, id); err != nil {
			return err
		}
		if err := tx.DeleteSaleItems(ctx, id); err != nil {
			return err
		}
		return tx.DeleteSale(ctx, id)
	})
	if err != nil {
		return err
	}
	s.notifyReportsChanged(ctx)
	return nil
}

func (s *Service) normalize(input SaleInput) (SaleInput, error) {
	if len(input.Items) == 0 {
		return input, shared.NewValidationError("items", "at least one item required")
	}
	for _, item := range input.Items {
		if item.ProductID <= 0 {
			return input, shared.NewValidationError("product_id", "required")
		}
		if item.Quantity <= 0 {
			return input, shared.NewValidationError("quantity", "must be greater than zero")
		}
		if item.Price.IsNegative() {
			return input, shared.NewValidationError("price", "must not be negative")
		}
	}
	if input.Subtotal.IsNegative() || input.TotalAmount.IsNegative() || input.Discount.IsNegative() || input.TaxAmount.IsNegative() {
		return input, shared.NewValidationError("amounts", "must not be negative")
	}
	// Cash-only: the invoice is settled in full at sale time.
	if !input.AmountPaid.Equal(input.TotalAmount) {
		return input, shared.NewValidationError("amount_paid", "must equal total_amount")
	}
	if !input.TotalAmount.Equal(input.Subtotal.Sub(input.Discount).Add(input.TaxAmount)) {
		return input, shared.NewValidationError("total_amount", "must equal subtotal - discount + tax_amount")
	}
	if input.CustomerID == 0 {
		input.CustomerID = s.defaultCustomerID
	}
	if input.InvoiceNumber == "" {
		input.InvoiceNumber = generateNumber("INV")
	}
	if input.SaleDate.IsZero() {
		input.SaleDate = s.now()
	}
	return input, nil
}

func (s *Service) checkCustomer(ctx context.Context, tx TxRepository, id int64) error {
	exists, err := tx.CustomerExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return shared.NewValidationError("customer_id", "unknown customer")
	}
	return nil
}

func (s *Service) event(sale Sale, cogs decimal.Decimal) ledger.Event {
	return ledger.Event{
		Type:        ledger.ReferenceSale,
		ReferenceID: sale.ID,
		Date:        sale.SaleDate,
		Description: fmt.Sprintf("Sale %s", sale.InvoiceNumber),
		Subtotal:    sale.Subtotal,
		Discount:    sale.Discount,
		Tax:         sale.TaxAmount,
		Total:       sale.TotalAmount,
		COGS:        cogs,
	}
}

// buildItems snapshots the current product cost into each line and totals the
// cost of goods sold.
func buildItems(ctx context.Context, tx TxRepository, inputs []SaleItemInput) ([]SaleItem, decimal.Decimal, error) {
	ids := make([]int64, 0, len(inputs))
	for _, item := range inputs {
		ids = append(ids, item.ProductID)
	}
	costs, err := tx.ProductCosts(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, err
	}
	items := make([]SaleItem, 0, len(inputs))
	cogs := decimal.Zero
	for _, item := range inputs {
		cost, ok := costs[item.ProductID]
		if !ok {
			return nil, decimal.Zero, shared.NewValidationError("product_id", fmt.Sprintf("unknown product %d", item.ProductID))
		}
		qty := decimal.NewFromInt(item.Quantity)
		items = append(items, SaleItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			CostPrice: cost,
			LineTotal: item.Price.Mul(qty),
		})
		cogs = cogs.Add(cost.Mul(qty))
	}
	return items, cogs, nil
}

func saleFromInput(input SaleInput) Sale {
	return Sale{
		InvoiceNumber: input.InvoiceNumber,
		CustomerID:    input.CustomerID,
		Subtotal:      input.Subtotal,
		Discount:      input.Discount,
		TaxAmount:     input.TaxAmount,
		TotalAmount:   input.TotalAmount,
		AmountPaid:    input.AmountPaid,
		SaleDate:      input.SaleDate,
	}
}

func toMovements(items []SaleItem) []inventory.Line {
	out := make([]inventory.Line, 0, len(items))
	for _, item := range items {
		out = append(out, inventory.Line{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out
}

func itemQuantities(items []SaleItem) map[int64]int64 {
	out := make(map[int64]int64, len(items))
	for _, item := range items {
		out[item.ProductID] += item.Quantity
	}
	return out
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(uuid.NewString()[:8]))
}
