package reports

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func sampleBalances() []AccountBalance {
	return []AccountBalance{
		{AccountID: 1, Code: "1000", Name: "Cash", Type: "ASSET", SubType: "CASH", Debit: dec("1240"), Credit: dec("1290")},
		{AccountID: 2, Code: "1100", Name: "Inventory", Type: "ASSET", SubType: "INVENTORY", Debit: dec("500"), Credit: dec("150")},
		{AccountID: 5, Code: "2100", Name: "Accounts Payable", Type: "LIABILITY", SubType: "AP", Debit: decimal.Zero, Credit: dec("500")},
		{AccountID: 3, Code: "3000", Name: "Owner Equity", Type: "EQUITY", SubType: "CAPITAL", Debit: decimal.Zero, Credit: dec("1000")},
		{AccountID: 7, Code: "4000", Name: "Sales Revenue", Type: "REVENUE", SubType: "SALES", Debit: decimal.Zero, Credit: dec("240")},
		{AccountID: 10, Code: "4100", Name: "Sales Discounts", Type: "REVENUE", SubType: "DISCOUNT", Debit: dec("10"), Credit: decimal.Zero},
		{AccountID: 8, Code: "5000", Name: "Cost of Goods Sold", Type: "EXPENSE", SubType: "COGS", Debit: dec("150"), Credit: decimal.Zero},
		{AccountID: 12, Code: "6000", Name: "Operating Expenses", Type: "EXPENSE", SubType: "OPERATING", Debit: dec("40"), Credit: decimal.Zero},
	}
}

func TestBuildProfitAndLoss(t *testing.T) {
	pl := BuildProfitAndLoss(sampleBalances())

	require.True(t, pl.Revenue.Total.Equal(dec("230")), "discounts reduce revenue: %s", pl.Revenue.Total)
	require.True(t, pl.CostOfGoodsSold.Total.Equal(dec("150")))
	require.True(t, pl.GrossProfit.Equal(dec("80")))
	require.True(t, pl.OperatingExpenses.Total.Equal(dec("40")))
	require.True(t, pl.NetProfit.Equal(dec("40")))
	require.True(t, pl.GrossMargin.Equal(dec("34.78")), "gross margin %s", pl.GrossMargin)
	require.True(t, pl.NetMargin.Equal(dec("17.39")), "net margin %s", pl.NetMargin)
}

func TestBuildProfitAndLossEmptyLedger(t *testing.T) {
	pl := BuildProfitAndLoss(nil)
	require.True(t, pl.NetProfit.IsZero())
	require.True(t, pl.GrossMargin.IsZero(), "no division by zero revenue")
}

func TestBuildBalanceSheet(t *testing.T) {
	bs := BuildBalanceSheet(sampleBalances())

	require.True(t, bs.Assets.Total.Equal(dec("300")), "assets %s", bs.Assets.Total)
	require.True(t, bs.Liabilities.Total.Equal(dec("500")))
	require.True(t, bs.RetainedEarnings.Equal(dec("40")), "revenue minus expense")
	require.True(t, bs.Equity.Total.Equal(dec("1040")), "equity includes retained earnings")
	require.True(t, bs.TotalLiabilitiesAndEquity.Equal(dec("1540")))

	require.Equal(t, "1000", bs.Assets.Accounts[0].Code, "sorted by code")
}

func TestBuildStatement(t *testing.T) {
	lines := []StatementLine{
		{ID: 1, Number: "INV-001", Date: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), Total: dec("240"), Paid: dec("240")},
		{ID: 2, Number: "INV-002", Date: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), Total: dec("100"), Paid: dec("100")},
	}
	st := BuildStatement(7, "Acme Stores", lines)

	require.Equal(t, 2, st.TransactionCount)
	require.True(t, st.Total.Equal(dec("340")))
	require.True(t, st.Paid.Equal(dec("340")))
	require.True(t, st.Balance.IsZero())
}

func TestBuildStatementOutstandingBalance(t *testing.T) {
	lines := []StatementLine{
		{ID: 1, Number: "PUR-001", Total: dec("500"), Paid: decimal.Zero},
	}
	st := BuildStatement(3, "Supplier Co", lines)
	require.True(t, st.Balance.Equal(dec("500")))
}
