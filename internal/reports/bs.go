package reports

import (
	"sort"

	"github.com/shopspring/decimal"
)

// BalanceSheetAccount summarises an account for assets, liabilities or equity.
type BalanceSheetAccount struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// BalanceSheetSection contains the accounts and total for a classification.
type BalanceSheetSection struct {
	Label    string                `json:"label"`
	Accounts []BalanceSheetAccount `json:"accounts"`
	Total    decimal.Decimal       `json:"total"`
}

// BalanceSheet is the structured response for the balance sheet report.
type BalanceSheet struct {
	Assets                    BalanceSheetSection `json:"assets"`
	Liabilities               BalanceSheetSection `json:"liabilities"`
	Equity                    BalanceSheetSection `json:"equity"`
	RetainedEarnings          decimal.Decimal     `json:"retained_earnings"`
	TotalLiabilitiesAndEquity decimal.Decimal     `json:"total_liabilities_and_equity"`
}

// BuildBalanceSheet aggregates all-time balances into assets, liabilities and
// equity sections. Retained earnings are derived as all-time revenue minus
// expense and folded into the equity total.
func BuildBalanceSheet(accounts []AccountBalance) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets", Total: decimal.Zero}
	liabilities := BalanceSheetSection{Label: "Liabilities", Total: decimal.Zero}
	equity := BalanceSheetSection{Label: "Equity", Total: decimal.Zero}
	retained := decimal.Zero

	for _, acc := range accounts {
		switch acc.Type {
		case "ASSET":
			row := BalanceSheetAccount{Code: acc.Code, Name: acc.Name, Balance: acc.Debit.Sub(acc.Credit)}
			assets.Accounts = append(assets.Accounts, row)
			assets.Total = assets.Total.Add(row.Balance)
		case "LIABILITY":
			row := BalanceSheetAccount{Code: acc.Code, Name: acc.Name, Balance: acc.Credit.Sub(acc.Debit)}
			liabilities.Accounts = append(liabilities.Accounts, row)
			liabilities.Total = liabilities.Total.Add(row.Balance)
		case "EQUITY":
			row := BalanceSheetAccount{Code: acc.Code, Name: acc.Name, Balance: acc.Credit.Sub(acc.Debit)}
			equity.Accounts = append(equity.Accounts, row)
			equity.Total = equity.Total.Add(row.Balance)
		case "REVENUE":
			retained = retained.Add(acc.Credit.Sub(acc.Debit))
		case "EXPENSE":
			retained = retained.Sub(acc.Debit.Sub(acc.Credit))
		}
	}

	sortSection(&assets)
	sortSection(&liabilities)
	sortSection(&equity)

	equity.Total = equity.Total.Add(retained)
	return BalanceSheet{
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		RetainedEarnings:          retained,
		TotalLiabilitiesAndEquity: liabilities.Total.Add(equity.Total),
	}
}

func sortSection(s *BalanceSheetSection) {
	sort.Slice(s.Accounts, func(i, j int) bool { return s.Accounts[i].Code < s.Accounts[j].Code })
}
