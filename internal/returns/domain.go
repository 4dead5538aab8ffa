// Package returns orchestrates sale-return and purchase-return workflows.
// Both validate returned quantities against the original transaction, move
// stock in the opposite direction of the original event and post the
// reversing journal entry in the same unit of work.
package returns

import (
	"time"

	"github.com/shopspring/decimal"
)

// Return statuses. Returns are completed on creation; there is no approval
// workflow.
const (
	StatusCompleted = "COMPLETED"
)

// SaleReturn is a customer refund against an earlier sale.
type SaleReturn struct {
	ID             int64           `json:"id"`
	ReturnNumber   string          `json:"return_number"`
	OriginalSaleID int64           `json:"original_sale_id"`
	CustomerID     int64           `json:"customer_id"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	RefundAmount   decimal.Decimal `json:"refund_amount"`
	Reason         string          `json:"reason"`
	Status         string          `json:"status"`
	ReturnDate     time.Time       `json:"return_date"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Items          []ReturnItem    `json:"items,omitempty"`
}

// PurchaseReturn sends goods back to a vendor against an earlier purchase.
type PurchaseReturn struct {
	ID                 int64           `json:"id"`
	ReturnNumber       string          `json:"return_number"`
	OriginalPurchaseID int64           `json:"original_purchase_id"`
	VendorID           int64           `json:"vendor_id"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	TaxAmount          decimal.Decimal `json:"tax_amount"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	RefundReceived     decimal.Decimal `json:"refund_received"`
	Reason             string          `json:"reason"`
	Status             string          `json:"status"`
	ReturnDate         time.Time       `json:"return_date"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	Items              []ReturnItem    `json:"items,omitempty"`
}

// ReturnItem is one returned line. Sale returns and purchase returns record
// the same columns.
type ReturnItem struct {
	ID        int64           `json:"id"`
	ReturnID  int64           `json:"return_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// SaleReturnInput is the create/update payload for sale returns.
type SaleReturnInput struct {
	ReturnNumber   string            `json:"return_number"`
	OriginalSaleID int64             `json:"original_sale_id" validate:"required,gt=0"`
	CustomerID     int64             `json:"customer_id"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	TaxAmount      decimal.Decimal   `json:"tax_amount"`
	TotalAmount    decimal.Decimal   `json:"total_amount"`
	RefundAmount   decimal.Decimal   `json:"refund_amount"`
	Reason         string            `json:"reason"`
	ReturnDate     time.Time         `json:"return_date"`
	Items          []ReturnItemInput `json:"items" validate:"required,min=1,dive"`
}

// PurchaseReturnInput is the create/update payload for purchase returns.
type PurchaseReturnInput struct {
	ReturnNumber       string            `json:"return_number"`
	OriginalPurchaseID int64             `json:"original_purchase_id" validate:"required,gt=0"`
	VendorID           int64             `json:"vendor_id"`
	Subtotal           decimal.Decimal   `json:"subtotal"`
	TaxAmount          decimal.Decimal   `json:"tax_amount"`
	TotalAmount        decimal.Decimal   `json:"total_amount"`
	RefundReceived     decimal.Decimal   `json:"refund_received"`
	Reason             string            `json:"reason"`
	ReturnDate         time.Time         `json:"return_date"`
	Items              []ReturnItemInput `json:"items" validate:"required,min=1,dive"`
}

// ReturnItemInput is one requested returned line.
type ReturnItemInput struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  int64           `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ListFilter narrows return listings.
type ListFilter struct {
	Search  string
	From    *time.Time
	To      *time.Time
	Page    int
	PerPage int
}
