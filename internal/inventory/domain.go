// Package inventory applies per-product stock deltas for business events and
// enforces the stock rules: stock never goes negative and returned quantities
// never exceed the original transaction.
package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/meridian-retail/meridian/internal/shared"
)

// Kind identifies the business event driving a stock adjustment.
type Kind int

const (
	KindSale Kind = iota
	KindPurchase
	KindSaleReturn
	KindPurchaseReturn
)

// factor is the signed stock direction of the event on create: sales and
// purchase returns remove inventory, purchases and sale returns add it.
func (k Kind) factor() int64 {
	switch k {
	case KindPurchase, KindSaleReturn:
		return 1
	default:
		return -1
	}
}

// Line is one product movement within an event.
type Line struct {
	ProductID int64
	Quantity  int64
	// UnitCost is the purchase price; only meaningful for purchases, where the
	// latest price becomes the product's standing cost.
	UnitCost decimal.Decimal
}

// CheckReturnBound validates return line items against the quantities recorded
// on the original transaction. Every returned product must appear in the
// original, and the total returned quantity per product must not exceed the
// original quantity even when a product is split across multiple lines.
func CheckReturnBound(original map[int64]int64, lines []Line) error {
	returned := make(map[int64]int64, len(lines))
	for _, line := range lines {
		returned[line.ProductID] += line.Quantity
		if returned[line.ProductID] > original[line.ProductID] {
			return shared.StockError{Kind: shared.StockReturnExceedsOriginal, ProductID: line.ProductID}
		}
	}
	return nil
}
