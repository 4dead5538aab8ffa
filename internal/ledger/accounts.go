package ledger

// AccountType classifies chart-of-accounts entries for reporting.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Fixed chart-of-accounts ids. Postings always reference these names; the ids
// must match the seed rows in migrations/0001_init.sql.
const (
	AccountCash              int64 = 1
	AccountInventory         int64 = 2
	AccountOwnerEquity       int64 = 3
	AccountTaxPayable        int64 = 4
	AccountAccountsPayable   int64 = 5
	AccountTaxAsset          int64 = 6
	AccountSalesRevenue      int64 = 7
	AccountCOGS              int64 = 8
	AccountSalesDiscounts    int64 = 10
	AccountOperatingExpenses int64 = 12
)

// Account is a chart-of-accounts row. The chart is fixed reference data and is
// never mutated by the posting engine.
type Account struct {
	ID      int64       `json:"id"`
	Code    string      `json:"code"`
	Name    string      `json:"name"`
	Type    AccountType `json:"type"`
	SubType string      `json:"sub_type"`
}
