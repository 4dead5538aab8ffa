package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatementLine is one transaction on a counterparty statement.
type StatementLine struct {
	ID     int64           `json:"id"`
	Number string          `json:"number"`
	Date   time.Time       `json:"date"`
	Total  decimal.Decimal `json:"total"`
	Paid   decimal.Decimal `json:"paid"`
}

// Statement summarises a counterparty's transaction history.
type Statement struct {
	CounterpartyID   int64           `json:"counterparty_id"`
	CounterpartyName string          `json:"counterparty_name"`
	TransactionCount int             `json:"transaction_count"`
	Total            decimal.Decimal `json:"total"`
	Paid             decimal.Decimal `json:"paid"`
	Balance          decimal.Decimal `json:"balance"`
	Transactions     []StatementLine `json:"transactions"`
}

// BuildStatement folds transaction lines into the statement summary.
func BuildStatement(id int64, name string, lines []StatementLine) Statement {
	st := Statement{
		CounterpartyID:   id,
		CounterpartyName: name,
		TransactionCount: len(lines),
		Total:            decimal.Zero,
		Paid:             decimal.Zero,
		Transactions:     lines,
	}
	for _, line := range lines {
		st.Total = st.Total.Add(line.Total)
		st.Paid = st.Paid.Add(line.Paid)
	}
	st.Balance = st.Total.Sub(st.Paid)
	return st
}
