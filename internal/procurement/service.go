package procurement

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

// Service coordinates purchase create/update/delete flows as single atomic
// units of work.
type Service struct {
	repo            Repository
	adjuster        *inventory.Adjuster
	poster          *ledger.Poster
	defaultVendorID int64
	now             func() time.Time
	reportsChanged  func(context.Context)
}

// NewService builds the procurement Service.
func NewService(repo Repository, adjuster *inventory.Adjuster, poster *ledger.Poster, defaultVendorID int64) *Service {
	return &Service{
		repo:            repo,
		adjuster:        adjuster,
		poster:          poster,
		defaultVendorID: defaultVendorID,
		now:             time.Now,
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

// Get loads one purchase with its items.
func (s *Service) Get(ctx context.Context, id int64) (Purchase, error) {
	return s.repo.Get(ctx, id)
}

// List returns purchases matching the filter plus pagination metadata.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Purchase, shared.Pagination, error) {
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	purchases, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return purchases, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Create receives stock, updates standing costs and posts the payable.
func (s *Service) Create(ctx context.Context, input PurchaseInput) (Purchase, error) {
	input, err := s.normalize(input)
	if err != nil {
		return Purchase{}, err
	}
	var created Purchase
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.checkVendor(ctx, tx, input.VendorID); err != nil {
			return err
		}
		purchase := purchaseFromInput(input)
		items := buildItems(input.Items)
		id, err := tx.InsertPurchase(ctx, purchase)
		if err != nil {
			return err
		}
		purchase.ID = id
		if err := tx.InsertPurchaseItems(ctx, id, items); err != nil {
			return err
		}
		if err := s.adjuster.ApplyCreate(ctx, tx, inventory.KindPurchase, toMovements(items)); err != nil {
			return err
		}
		if _, err := s.poster.Post(ctx, tx, s.event(purchase)); err != nil {
			return err
		}
		purchase.Items = items
		created = purchase
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}
	s.notifyReportsChanged(ctx)
	return created, nil
}

// Update replaces the item set, adjusts stock by quantity deltas and
// re-derives the ledger posting.
func (s *Service) Update(ctx context.Context, id int64, input PurchaseInput) (Purchase, error) {
	input, err := s.normalize(input)
	if err != nil {
		return Purchase{}, err
	}
	var updated Purchase
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPurchaseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.checkVendor(ctx, tx, input.VendorID); err != nil {
			return err
		}
		originalItems, err := tx.GetPurchaseItems(ctx, id)
		if err != nil {
			return err
		}
		purchase := purchaseFromInput(input)
		purchase.ID = current.ID
		purchase.CreatedAt = current.CreatedAt
		items := buildItems(input.Items)
		if err := tx.UpdatePurchase(ctx, purchase); err != nil {
			return err
		}
		if err := tx.DeletePurchaseItems(ctx, id); err != nil {
			return err
		}
		if err := tx.InsertPurchaseItems(ctx, id, items); err != nil {
			return err
		}
		if err := s.adjuster.ApplyUpdate(ctx, tx, inventory.KindPurchase, itemQuantities(originalItems), toMovements(items)); err != nil {
			return err
		}
		if _, err := s.poster.Repost(ctx, tx, s.event(purchase)); err != nil {
			return err
		}
		purchase.Items = items
		updated = purchase
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}
	s.notifyReportsChanged(ctx)
	return updated, nil
}

// Delete removes received stock again and deletes the posting and rows.
// Deleting a purchase whose goods were already sold fails with a stock error.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetPurchaseForUpdate(ctx, id); err != nil {
			return err
		}
		items, err := tx.GetPurchaseItems(ctx, id)
		if err != nil {
			return err
		}
		if err := s.adjuster.Reverse(ctx, tx, inventory.KindPurchase, toMovements(items)); err != nil {
			return err
		}
		if err := s.poster.Remove(ctx, tx, ledger.ReferencePurchase, id); err != nil {
			return err
		}
		if err := tx.DeletePurchaseItems(ctx, id); err != nil {
			return err
		}
		return tx.DeletePurchase(ctx, id)
	})
	if err != nil {
		return err
	}
	s.notifyReportsChanged(ctx)
	return nil
}

func (s *Service) normalize(input PurchaseInput) (PurchaseInput, error) {
	if len(input.Items) == 0 {
		return input, shared.NewValidationError("items", "at least one item required")
	}
	lineSum := decimal.Zero
	for _, item := range input.Items {
		if item.ProductID <= 0 {
			return input, shared.NewValidationError("product_id", "required")
		}
		if item.Quantity <= 0 {
			return input, shared.NewValidationError("quantity", "must be greater than zero")
		}
		if item.UnitPrice.IsNegative() {
			return input, shared.NewValidationError("unit_price", "must not be negative")
		}
		lineSum = lineSum.Add(item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)))
	}
	if input.Subtotal.IsNegative() || input.TaxAmount.IsNegative() || input.TotalAmount.IsNegative() {
		return input, shared.NewValidationError("amounts", "must not be negative")
	}
	// The subtotal is posted as the Inventory debit, so it must match the
	// stock value the items actually move.
	if !input.Subtotal.Equal(lineSum) {
		return input, shared.NewValidationError("subtotal", "must equal the sum of item line totals")
	}
	if !input.TotalAmount.Equal(input.Subtotal.Add(input.TaxAmount)) {
		return input, shared.NewValidationError("total_amount", "must equal subtotal + tax_amount")
	}
	if input.VendorID == 0 {
		input.VendorID = s.defaultVendorID
	}
	if input.InvoiceNumber == "" {
		input.InvoiceNumber = generateNumber("PUR")
	}
	if input.PurchaseDate.IsZero() {
		input.PurchaseDate = s.now()
	}
	return input, nil
}

func (s *Service) checkVendor(ctx context.Context, tx TxRepository, id int64) error {
	exists, err := tx.VendorExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return shared.NewValidationError("vendor_id", "unknown vendor")
	}
	return nil
}

func (s *Service) event(purchase Purchase) ledger.Event {
	return ledger.Event{
		Type:        ledger.ReferencePurchase,
		ReferenceID: purchase.ID,
		Date:        purchase.PurchaseDate,
		Description: fmt.Sprintf("Purchase %s", purchase.InvoiceNumber),
		Subtotal:    purchase.Subtotal,
		Tax:         purchase.TaxAmount,
		Total:       purchase.TotalAmount,
	}
}

func buildItems(inputs []PurchaseItemInput) []PurchaseItem {
	items := make([]PurchaseItem, 0, len(inputs))
	for _, item := range inputs {
		items = append(items, PurchaseItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)),
		})
	}
	return items
}

func purchaseFromInput(input PurchaseInput) Purchase {
	return Purchase{
		InvoiceNumber: input.InvoiceNumber,
		VendorID:      input.VendorID,
		Subtotal:      input.Subtotal,
		TaxAmount:     input.TaxAmount,
		TotalAmount:   input.TotalAmount,
		PurchaseDate:  input.PurchaseDate,
	}
}

func toMovements(items []PurchaseItem) []inventory.Line {
	out := make([]inventory.Line, 0, len(items))
	for _, item := range items {
		out = append(out, inventory.Line{ProductID: item.ProductID, Quantity: item.Quantity, UnitCost: item.UnitPrice})
	}
	return out
}

func itemQuantities(items []PurchaseItem) map[int64]int64 {
	out := make(map[int64]int64, len(items))
	for _, item := range items {
		out[item.ProductID] += item.Quantity
	}
	return out
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(uuid.NewString()[:8]))
}
