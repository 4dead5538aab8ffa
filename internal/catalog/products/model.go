package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is one sellable item. Stock is owned by the inventory engine;
// catalog edits never touch it after creation.
type Product struct {
	ID            int64           `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	Stock         int64           `json:"stock"`
	MinStockLevel int64           `json:"min_stock_level"`
	BrandID       *int64          `json:"brand_id,omitempty"`
	CategoryID    *int64          `json:"category_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ProductForm is the create/update payload. Stock applies on create only.
type ProductForm struct {
	SKU           string          `json:"sku" validate:"required"`
	Name          string          `json:"name" validate:"required"`
	Description   string          `json:"description"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	Stock         int64           `json:"stock"`
	MinStockLevel int64           `json:"min_stock_level"`
	BrandID       *int64          `json:"brand_id"`
	CategoryID    *int64          `json:"category_id"`
}

// ListFilters narrows product listings.
type ListFilters struct {
	Search     string
	CategoryID *int64
	BrandID    *int64
	LowStock   bool
	Page       int
	PerPage    int
}
