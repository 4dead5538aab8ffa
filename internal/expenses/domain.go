// Package expenses records operating expenses and posts them to the ledger.
package expenses

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is one operating expense record.
type Expense struct {
	ID          int64           `json:"id"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	ExpenseDate time.Time       `json:"expense_date"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ExpenseInput is the create/update payload.
type ExpenseInput struct {
	Category    string          `json:"category" validate:"required"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	ExpenseDate time.Time       `json:"expense_date"`
}

// ListFilter narrows expense listings.
type ListFilter struct {
	Search   string
	Category string
	From     *time.Time
	To       *time.Time
	Page     int
	PerPage  int
}
