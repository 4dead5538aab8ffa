package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferenceType names the business event a journal entry originated from.
type ReferenceType string

const (
	ReferenceSale           ReferenceType = "SALE"
	ReferencePurchase       ReferenceType = "PURCHASE"
	ReferenceSaleReturn     ReferenceType = "SALE_RETURN"
	ReferencePurchaseReturn ReferenceType = "PURCHASE_RETURN"
	ReferenceExpense        ReferenceType = "EXPENSE"
)

// JournalEntry is the posting header. Exactly one entry exists per originating
// transaction, located by (ReferenceType, ReferenceID).
type JournalEntry struct {
	ID            int64         `json:"id"`
	EntryDate     time.Time     `json:"entry_date"`
	Description   string        `json:"description"`
	ReferenceType ReferenceType `json:"reference_type"`
	ReferenceID   int64         `json:"reference_id"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	Lines         []JournalLine `json:"lines,omitempty"`
}

// JournalLine stores a debit or credit amount for an account. Exactly one of
// Debit/Credit is non-zero per line.
type JournalLine struct {
	ID          int64           `json:"id"`
	JournalID   int64           `json:"journal_id"`
	AccountID   int64           `json:"account_id"`
	Debit       decimal.Decimal `json:"debit_amount"`
	Credit      decimal.Decimal `json:"credit_amount"`
	Description string          `json:"description"`
}

// GeneralLedgerRow is the denormalized, date-indexed mirror of a journal line
// used by the reporting aggregator. Rows are written and deleted in lockstep
// with their journal lines.
type GeneralLedgerRow struct {
	ID              int64           `json:"id"`
	TransactionDate time.Time       `json:"transaction_date"`
	AccountID       int64           `json:"account_id"`
	Debit           decimal.Decimal `json:"debit_amount"`
	Credit          decimal.Decimal `json:"credit_amount"`
	ReferenceType   ReferenceType   `json:"reference_type"`
	ReferenceID     int64           `json:"reference_id"`
	JournalEntryID  int64           `json:"journal_entry_id"`
}
