// Package reports builds read-only financial reports from the committed
// ledger: profit and loss, balance sheet, and customer/vendor statements.
package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountBalance is one chart-of-accounts row with its summed ledger
// activity for the requested range.
type AccountBalance struct {
	AccountID int64
	Code      string
	Name      string
	Type      string
	SubType   string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// DateRange bounds a report. Nil endpoints mean unbounded.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Key returns a stable cache key fragment for the range.
func (r DateRange) Key() string {
	const layout = "2006-01-02"
	from, to := "", ""
	if r.From != nil {
		from = r.From.Format(layout)
	}
	if r.To != nil {
		to = r.To.Format(layout)
	}
	return from + ":" + to
}
