package reports

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ProfitAndLossAccount is one revenue or expense account summary.
type ProfitAndLossAccount struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// ProfitAndLossSection groups accounts by nature.
type ProfitAndLossSection struct {
	Label    string                 `json:"label"`
	Accounts []ProfitAndLossAccount `json:"accounts"`
	Total    decimal.Decimal        `json:"total"`
}

// ProfitAndLoss is the structured response for the profit and loss report.
type ProfitAndLoss struct {
	Revenue           ProfitAndLossSection `json:"revenue"`
	CostOfGoodsSold   ProfitAndLossSection `json:"cost_of_goods_sold"`
	GrossProfit       decimal.Decimal      `json:"gross_profit"`
	OperatingExpenses ProfitAndLossSection `json:"operating_expenses"`
	NetProfit         decimal.Decimal      `json:"net_profit"`
	GrossMargin       decimal.Decimal      `json:"gross_margin"`
	NetMargin         decimal.Decimal      `json:"net_margin"`
}

// BuildProfitAndLoss aggregates account activity into revenue, cost of goods
// sold and operating expense sections. Contra-revenue accounts (discounts)
// carry a debit balance and reduce the revenue total on their own.
func BuildProfitAndLoss(accounts []AccountBalance) ProfitAndLoss {
	revenue := ProfitAndLossSection{Label: "Revenue", Total: decimal.Zero}
	cogs := ProfitAndLossSection{Label: "Cost of Goods Sold", Total: decimal.Zero}
	opex := ProfitAndLossSection{Label: "Operating Expenses", Total: decimal.Zero}

	for _, acc := range accounts {
		switch {
		case acc.Type == "REVENUE":
			amount := acc.Credit.Sub(acc.Debit)
			revenue.Accounts = append(revenue.Accounts, ProfitAndLossAccount{Code: acc.Code, Name: acc.Name, Amount: amount})
			revenue.Total = revenue.Total.Add(amount)
		case acc.Type == "EXPENSE" && acc.SubType == "COGS":
			amount := acc.Debit.Sub(acc.Credit)
			cogs.Accounts = append(cogs.Accounts, ProfitAndLossAccount{Code: acc.Code, Name: acc.Name, Amount: amount})
			cogs.Total = cogs.Total.Add(amount)
		case acc.Type == "EXPENSE":
			amount := acc.Debit.Sub(acc.Credit)
			opex.Accounts = append(opex.Accounts, ProfitAndLossAccount{Code: acc.Code, Name: acc.Name, Amount: amount})
			opex.Total = opex.Total.Add(amount)
		}
	}

	sortAccounts(revenue.Accounts)
	sortAccounts(cogs.Accounts)
	sortAccounts(opex.Accounts)

	gross := revenue.Total.Sub(cogs.Total)
	net := gross.Sub(opex.Total)
	return ProfitAndLoss{
		Revenue:           revenue,
		CostOfGoodsSold:   cogs,
		GrossProfit:       gross,
		OperatingExpenses: opex,
		NetProfit:         net,
		GrossMargin:       margin(gross, revenue.Total),
		NetMargin:         margin(net, revenue.Total),
	}
}

func margin(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2)
}

func sortAccounts(accounts []ProfitAndLossAccount) {
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })
}
