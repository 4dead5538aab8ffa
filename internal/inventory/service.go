package inventory

import (
	"context"

	"github.com/meridian-retail/meridian/internal/shared"
)

// Adjuster computes and applies stock deltas for one event. It always runs
// inside the orchestrator's transaction; a stock rule violation aborts the
// whole unit of work.
type Adjuster struct{}

// NewAdjuster builds an Adjuster.
func NewAdjuster() *Adjuster {
	return &Adjuster{}
}

// ApplyCreate applies the full stock effect of a newly created event. For
// purchases the unit price also becomes the product's new standing cost.
func (a *Adjuster) ApplyCreate(ctx context.Context, tx TxRepository, kind Kind, lines []Line) error {
	for _, line := range lines {
		if line.Quantity <= 0 {
			return shared.NewValidationError("quantity", "must be greater than zero")
		}
		if err := tx.AdjustStock(ctx, line.ProductID, kind.factor()*line.Quantity); err != nil {
			return err
		}
		if kind == KindPurchase {
			if err := tx.SetProductCost(ctx, line.ProductID, line.UnitCost); err != nil {
				return err
			}
		}
	}
	return nil
}

// ApplyUpdate adjusts stock by the difference between the stored quantities
// and the new item set. Products dropped from the new set have their original
// quantity fully reversed.
func (a *Adjuster) ApplyUpdate(ctx context.Context, tx TxRepository, kind Kind, original map[int64]int64, lines []Line) error {
	remaining := make(map[int64]int64, len(original))
	for id, qty := range original {
		remaining[id] = qty
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return shared.NewValidationError("quantity", "must be greater than zero")
		}
		delta := line.Quantity - remaining[line.ProductID]
		delete(remaining, line.ProductID)
		if err := tx.AdjustStock(ctx, line.ProductID, kind.factor()*delta); err != nil {
			return err
		}
		if kind == KindPurchase {
			if err := tx.SetProductCost(ctx, line.ProductID, line.UnitCost); err != nil {
				return err
			}
		}
	}
	for id, qty := range remaining {
		if err := tx.AdjustStock(ctx, id, -kind.factor()*qty); err != nil {
			return err
		}
	}
	return nil
}

// Reverse undoes the full stock effect of an event, used on delete.
func (a *Adjuster) Reverse(ctx context.Context, tx TxRepository, kind Kind, lines []Line) error {
	for _, line := range lines {
		if err := tx.AdjustStock(ctx, line.ProductID, -kind.factor()*line.Quantity); err != nil {
			return err
		}
	}
	return nil
}
