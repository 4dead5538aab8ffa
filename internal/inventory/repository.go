package inventory

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/meridian-retail/meridian/internal/shared"
)

// TxRepository exposes the product-level operations the adjuster needs inside
// the caller's transaction.
type TxRepository interface {
	// AdjustStock applies a relative stock delta. Negative deltas fail with a
	// StockError when insufficient stock is available.
	AdjustStock(ctx context.Context, productID, delta int64) error
	// SetProductCost overwrites the product's standing cost price.
	SetProductCost(ctx context.Context, productID int64, cost decimal.Decimal) error
	// ProductCosts returns the current cost price for each requested product.
	ProductCosts(ctx context.Context, productIDs []int64) (map[int64]decimal.Decimal, error)
}

// Tx is the pgx-backed TxRepository bound to one open transaction.
type Tx struct {
	tx pgx.Tx
}

// NewTx wraps an open transaction.
func NewTx(tx pgx.Tx) *Tx {
	return &Tx{tx: tx}
}

// AdjustStock mutates stock with a relative UPDATE so concurrent transactions
// serialize at the database instead of racing through application memory.
func (r *Tx) AdjustStock(ctx context.Context, productID, delta int64) error {
	if delta == 0 {
		return nil
	}
	cmd, err := r.tx.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at=NOW()
WHERE id=$1 AND stock + $2 >= 0`, productID, delta)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id=$1)`, productID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return shared.NewValidationError("product_id", "unknown product")
		}
		return shared.StockError{Kind: shared.StockInsufficient, ProductID: productID}
	}
	return nil
}

func (r *Tx) SetProductCost(ctx context.Context, productID int64, cost decimal.Decimal) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE products SET cost_price=$2, updated_at=NOW() WHERE id=$1`, productID, cost)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NewValidationError("product_id", "unknown product")
	}
	return nil
}

func (r *Tx) ProductCosts(ctx context.Context, productIDs []int64) (map[int64]decimal.Decimal, error) {
	costs := make(map[int64]decimal.Decimal, len(productIDs))
	rows, err := r.tx.Query(ctx, `SELECT id, cost_price FROM products WHERE id = ANY($1)`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var cost decimal.Decimal
		if err := rows.Scan(&id, &cost); err != nil {
			return nil, err
		}
		costs[id] = cost
	}
	return costs, rows.Err()
}
