// Package procurement orchestrates the purchase workflow: stock receipt,
// standing-cost updates and accounts-payable posting in one atomic unit.
package procurement

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase is a vendor invoice header owning its line items.
type Purchase struct {
	ID            int64           `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	VendorID      int64           `json:"vendor_id"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PurchaseDate  time.Time       `json:"purchase_date"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Items         []PurchaseItem  `json:"items,omitempty"`
}

// PurchaseItem is one received line.
type PurchaseItem struct {
	ID         int64           `json:"id"`
	PurchaseID int64           `json:"purchase_id"`
	ProductID  int64           `json:"product_id"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

// PurchaseInput is the create/update payload.
type PurchaseInput struct {
	InvoiceNumber string              `json:"invoice_number"`
	VendorID      int64               `json:"vendor_id"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	TaxAmount     decimal.Decimal     `json:"tax_amount"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	PurchaseDate  time.Time           `json:"purchase_date"`
	Items         []PurchaseItemInput `json:"items" validate:"required,min=1,dive"`
}

// PurchaseItemInput is one requested line.
type PurchaseItemInput struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  int64           `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ListFilter narrows purchase listings.
type ListFilter struct {
	Search   string
	VendorID *int64
	From     *time.Time
	To       *time.Time
	Page     int
	PerPage  int
}
