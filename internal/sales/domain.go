// Package sales orchestrates the cash-sale workflow: validation, stock
// issue, cost-of-goods capture and ledger posting in one atomic unit.
package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is a sales invoice header owning its line items.
type Sale struct {
	ID            int64           `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    int64           `json:"customer_id"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	SaleDate      time.Time       `json:"sale_date"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Items         []SaleItem      `json:"items,omitempty"`
}

// SaleItem is one invoice line. CostPrice is the product cost captured at sale
// time so the COGS posting stays correct even when the product's cost later
// changes.
type SaleItem struct {
	ID        int64           `json:"id"`
	SaleID    int64           `json:"sale_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	CostPrice decimal.Decimal `json:"cost_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// SaleInput is the create/update payload.
type SaleInput struct {
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    int64           `json:"customer_id"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	SaleDate      time.Time       `json:"sale_date"`
	Items         []SaleItemInput `json:"items" validate:"required,min=1,dive"`
}

// SaleItemInput is one requested invoice line.
type SaleItemInput struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  int64           `json:"quantity" validate:"required,gt=0"`
	Price     decimal.Decimal `json:"price"`
}

// ListFilter narrows sale listings.
type ListFilter struct {
	Search     string
	CustomerID *int64
	From       *time.Time
	To         *time.Time
	Page       int
	PerPage    int
}
