package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnbalanced indicates a derived line set whose debits and credits differ.
// Postings that would violate the double-entry invariant never reach the store.
var ErrUnbalanced = errors.New("ledger: journal lines do not balance")

// Event is one business event to be translated into journal lines. The
// orchestrators fill only the amounts that apply to their event kind.
type Event struct {
	Type        ReferenceType
	ReferenceID int64
	Date        time.Time
	Description string

	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
	Refund   decimal.Decimal
	COGS     decimal.Decimal
}

// LineSpec is one derived debit or credit against a fixed account.
type LineSpec struct {
	AccountID   int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

func debit(account int64, amount decimal.Decimal, desc string) LineSpec {
	return LineSpec{AccountID: account, Debit: amount, Description: desc}
}

func credit(account int64, amount decimal.Decimal, desc string) LineSpec {
	return LineSpec{AccountID: account, Credit: amount, Description: desc}
}

// BuildLines derives the journal lines for an event from the fixed account
// mapping. Zero-amount lines are omitted. The result is guaranteed balanced;
// an event whose amounts cannot balance returns ErrUnbalanced.
func BuildLines(ev Event) ([]LineSpec, error) {
	var lines []LineSpec
	switch ev.Type {
	case ReferenceSale:
		lines = append(lines, debit(AccountCash, ev.Total, "Cash received"))
		if ev.Discount.IsPositive() {
			lines = append(lines, debit(AccountSalesDiscounts, ev.Discount, "Sales discount"))
		}
		lines = append(lines, credit(AccountSalesRevenue, ev.Subtotal, "Sales revenue"))
		if ev.Tax.IsPositive() {
			lines = append(lines, credit(AccountTaxPayable, ev.Tax, "Sales tax collected"))
		}
		if ev.COGS.IsPositive() {
			lines = append(lines,
				debit(AccountCOGS, ev.COGS, "Cost of goods sold"),
				credit(AccountInventory, ev.COGS, "Inventory issued"))
		}
	case ReferenceSaleReturn:
		lines = append(lines, debit(AccountSalesRevenue, ev.Subtotal, "Sales revenue reversed"))
		if ev.Tax.IsPositive() {
			lines = append(lines, debit(AccountTaxPayable, ev.Tax, "Sales tax reversed"))
		}
		lines = append(lines, credit(AccountCash, ev.Refund, "Refund paid"))
		if ev.COGS.IsPositive() {
			lines = append(lines,
				debit(AccountInventory, ev.COGS, "Inventory restocked"),
				credit(AccountCOGS, ev.COGS, "Cost of goods sold reversed"))
		}
	case ReferencePurchase:
		lines = append(lines, debit(AccountInventory, ev.Subtotal, "Inventory received"))
		if ev.Tax.IsPositive() {
			lines = append(lines, debit(AccountTaxAsset, ev.Tax, "Input tax"))
		}
		lines = append(lines, credit(AccountAccountsPayable, ev.Total, "Accounts payable"))
	case ReferencePurchaseReturn:
		lines = append(lines, debit(AccountCash, ev.Refund, "Refund received"))
		if ev.COGS.IsPositive() {
			lines = append(lines,
				credit(AccountInventory, ev.COGS, "Inventory returned"),
				debit(AccountCOGS, ev.COGS, "Cost of goods returned"))
		}
		if ev.Total.IsPositive() {
			lines = append(lines, credit(AccountAccountsPayable, ev.Total, "Accounts payable adjustment"))
		}
	case ReferenceExpense:
		lines = append(lines,
			debit(AccountOperatingExpenses, ev.Total, "Operating expense"),
			credit(AccountCash, ev.Total, "Cash paid"))
	default:
		return nil, fmt.Errorf("ledger: unknown event type %q", ev.Type)
	}

	out := lines[:0]
	for _, line := range lines {
		if line.Debit.IsZero() && line.Credit.IsZero() {
			continue
		}
		out = append(out, line)
	}
	if err := checkBalanced(out); err != nil {
		return nil, err
	}
	return out, nil
}

func checkBalanced(lines []LineSpec) error {
	var debits, credits decimal.Decimal
	for _, line := range lines {
		debits = debits.Add(line.Debit)
		credits = credits.Add(line.Credit)
	}
	if !debits.Equal(credits) {
		return fmt.Errorf("%w: debits %s, credits %s", ErrUnbalanced, debits, credits)
	}
	return nil
}
