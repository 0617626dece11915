package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vendora/bazaar/internal/domain"
)

// DecrementStock and IncrementStock are the only two mutators of variant
// stock in the system. Both must run inside the caller's transaction (the
// RepoSet is transaction-bound) so the stock count can never drift from the
// audit log.

func DecrementStock(ctx context.Context, tx domain.RepoSet, variantID uuid.UUID, qty int, reason domain.InventoryReason, refID *uuid.UUID, actor string) error {
	if qty <= 0 {
		return fmt.Errorf("decrement quantity must be positive, got %d", qty)
	}
	ok, err := tx.Inventory().ApplyStockDelta(ctx, variantID, -qty)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: variant %s, requested %d", domain.ErrInsufficientStock, variantID, qty)
	}
	return appendLog(ctx, tx, variantID, -qty, reason, refID, actor)
}

func IncrementStock(ctx context.Context, tx domain.RepoSet, variantID uuid.UUID, qty int, reason domain.InventoryReason, refID *uuid.UUID, actor string) error {
	if qty <= 0 {
		return fmt.Errorf("increment quantity must be positive, got %d", qty)
	}
	ok, err := tx.Inventory().ApplyStockDelta(ctx, variantID, qty)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("stock adjustment rejected for variant %s", variantID)
	}
	return appendLog(ctx, tx, variantID, qty, reason, refID, actor)
}

// appendLog reads the post-delta stock inside the same transaction (the row
// is locked by our own update) so PrevQuantity+Delta == NewQuantity always
// holds on the audit row.
func appendLog(ctx context.Context, tx domain.RepoSet, variantID uuid.UUID, delta int, reason domain.InventoryReason, refID *uuid.UUID, actor string) error {
	newQty, err := tx.Inventory().VariantStock(ctx, variantID)
	if err != nil {
		return err
	}
	entry := &domain.InventoryLogEntry{
		ID:           uuid.New(),
		VariantID:    variantID,
		Delta:        delta,
		Reason:       reason,
		ReferenceID:  refID,
		PrevQuantity: newQty - delta,
		NewQuantity:  newQty,
		Actor:        actor,
		CreatedAt:    time.Now(),
	}
	return tx.Inventory().AppendLog(ctx, entry)
}
