package products

import (
	"context"
	"strings"

	"github.com/meridian-retail/meridian/internal/shared"
)

// Service owns product catalog rules: SKU uniqueness, non-negative pricing,
// and the no-delete-while-referenced rule.
type Service struct {
	repo Repository
}

// NewService builds the products Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns products matching the filters plus pagination metadata.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Product, shared.Pagination, error) {
	if filters.PerPage <= 0 {
		filters.PerPage = 20
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	products, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return products, shared.NewPagination(filters.Page, filters.PerPage, total), nil
}

// Get loads one product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts a new product with its opening stock.
func (s *Service) Create(ctx context.Context, form ProductForm) (Product, error) {
	if err := validate(form); err != nil {
		return Product{}, err
	}
	if form.Stock < 0 {
		return Product{}, shared.NewValidationError("stock", "must not be negative")
	}
	return s.repo.Create(ctx, fromForm(form))
}

// Update rewrites catalog attributes. Stock is never changed here.
func (s *Service) Update(ctx context.Context, id int64, form ProductForm) (Product, error) {
	if err := validate(form); err != nil {
		return Product{}, err
	}
	product := fromForm(form)
	product.ID = id
	if err := s.repo.Update(ctx, product); err != nil {
		return Product{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a product unless historical transactions reference it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	referenced, err := s.repo.Referenced(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return shared.NewValidationError("id", "product is referenced by transactions")
	}
	return s.repo.Delete(ctx, id)
}

func validate(form ProductForm) error {
	if strings.TrimSpace(form.SKU) == "" {
		return shared.NewValidationError("sku", "required")
	}
	if strings.TrimSpace(form.Name) == "" {
		return shared.NewValidationError("name", "required")
	}
	if form.CostPrice.IsNegative() || form.SalePrice.IsNegative() {
		return shared.NewValidationError("price", "must not be negative")
	}
	if form.MinStockLevel < 0 {
		return shared.NewValidationError("min_stock_level", "must not be negative")
	}
	return nil
}

func fromForm(form ProductForm) Product {
	return Product{
		SKU:           form.SKU,
		Name:          form.Name,
		Description:   form.Description,
		CostPrice:     form.CostPrice,
		SalePrice:     form.SalePrice,
		Stock:         form.Stock,
		MinStockLevel: form.MinStockLevel,
		BrandID:       form.BrandID,
		CategoryID:    form.CategoryID,
	}
}
