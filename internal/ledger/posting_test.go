package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func lineAmounts(t *testing.T, lines []LineSpec, account int64) (debit, credit decimal.Decimal) {
	t.Helper()
	for _, line := range lines {
		if line.AccountID == account {
			return line.Debit, line.Credit
		}
	}
	t.Fatalf("no line for account %d", account)
	return
}

func TestBuildLinesSale(t *testing.T) {
	// Sale of 3 units at 80 with cost 50 (stock scenario from the sales docs).
	lines, err := BuildLines(Event{
		Type:        ReferenceSale,
		ReferenceID: 1,
		Date:        time.Now(),
		Subtotal:    dec("240"),
		Total:       dec("240"),
		COGS:        dec("150"),
	})
	require.NoError(t, err)
	require.Len(t, lines, 4)

	debit, _ := lineAmounts(t, lines, AccountCash)
	require.True(t, debit.Equal(dec("240")))
	_, credit := lineAmounts(t, lines, AccountSalesRevenue)
	require.True(t, credit.Equal(dec("240")))
	debit, _ = lineAmounts(t, lines, AccountCOGS)
	require.True(t, debit.Equal(dec("150")))
	_, credit = lineAmounts(t, lines, AccountInventory)
	require.True(t, credit.Equal(dec("150")))
}

func TestBuildLinesSaleWithTaxAndDiscount(t *testing.T) {
	lines, err := BuildLines(Event{
		Type:     ReferenceSale,
		Subtotal: dec("100"),
		Discount: dec("10"),
		Tax:      dec("9"),
		Total:    dec("99"),
		COGS:     dec("60"),
	})
	require.NoError(t, err)

	debit, _ := lineAmounts(t, lines, AccountSalesDiscounts)
	require.True(t, debit.Equal(dec("10")))
	_, credit := lineAmounts(t, lines, AccountTaxPayable)
	require.True(t, credit.Equal(dec("9")))
	requireBalanced(t, lines)
}

func TestBuildLinesSaleReturn(t *testing.T) {
	lines, err := BuildLines(Event{
		Type:     ReferenceSaleReturn,
		Subtotal: dec("80"),
		Refund:   dec("80"),
		COGS:     dec("50"),
	})
	require.NoError(t, err)
	require.Len(t, lines, 4)

	debit, _ := lineAmounts(t, lines, AccountSalesRevenue)
	require.True(t, debit.Equal(dec("80")))
	_, credit := lineAmounts(t, lines, AccountCash)
	require.True(t, credit.Equal(dec("80")))
	debit, _ = lineAmounts(t, lines, AccountInventory)
	require.True(t, debit.Equal(dec("50")))
	_, credit = lineAmounts(t, lines, AccountCOGS)
	require.True(t, credit.Equal(dec("50")))
}

func TestBuildLinesPurchase(t *testing.T) {
	lines, err := BuildLines(Event{
		Type:     ReferencePurchase,
		Subtotal: dec("500"),
		Tax:      dec("50"),
		Total:    dec("550"),
	})
	require.NoError(t, err)
	require.Len(t, lines, 3)

	debit, _ := lineAmounts(t, lines, AccountInventory)
	require.True(t, debit.Equal(dec("500")))
	debit, _ = lineAmounts(t, lines, AccountTaxAsset)
	require.True(t, debit.Equal(dec("50")))
	_, credit := lineAmounts(t, lines, AccountAccountsPayable)
	require.True(t, credit.Equal(dec("550")))
}

func TestBuildLinesPurchaseReturn(t *testing.T) {
	lines, err := BuildLines(Event{
		Type:   ReferencePurchaseReturn,
		Total:  dec("300"),
		Refund: dec("300"),
		COGS:   dec("300"),
	})
	require.NoError(t, err)
	requireBalanced(t, lines)

	debit, _ := lineAmounts(t, lines, AccountCash)
	require.True(t, debit.Equal(dec("300")))
	_, credit := lineAmounts(t, lines, AccountInventory)
	require.True(t, credit.Equal(dec("300")))
}

func TestBuildLinesExpense(t *testing.T) {
	lines, err := BuildLines(Event{Type: ReferenceExpense, Total: dec("125.50")})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	requireBalanced(t, lines)
}

func TestBuildLinesOmitsZeroAmounts(t *testing.T) {
	lines, err := BuildLines(Event{
		Type:     ReferenceSale,
		Subtotal: dec("100"),
		Total:    dec("100"),
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	for _, line := range lines {
		require.NotEqual(t, AccountTaxPayable, line.AccountID)
		require.NotEqual(t, AccountCOGS, line.AccountID)
	}
}

func TestBuildLinesRejectsUnbalancedEvent(t *testing.T) {
	_, err := BuildLines(Event{
		Type:     ReferenceSale,
		Subtotal: dec("100"),
		Total:    dec("90"),
	})
	require.ErrorIs(t, err, ErrUnbalanced)

	_, err = BuildLines(Event{
		Type:   ReferencePurchaseReturn,
		Total:  dec("300"),
		Refund: dec("250"),
		COGS:   dec("300"),
	})
	require.ErrorIs(t, err, ErrUnbalanced)
}

func TestBuildLinesUnknownType(t *testing.T) {
	_, err := BuildLines(Event{Type: ReferenceType("TRANSFER")})
	require.Error(t, err)
}

func requireBalanced(t *testing.T, lines []LineSpec) {
	t.Helper()
	var debits, credits decimal.Decimal
	for _, line := range lines {
		require.False(t, line.Debit.IsPositive() && line.Credit.IsPositive(), "line must be debit xor credit")
		debits = debits.Add(line.Debit)
		credits = credits.Add(line.Credit)
	}
	require.True(t, debits.Equal(credits), "debits %s credits %s", debits, credits)
}
