package dal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/meridian-pos/meridian-pos/internal/inventory"
	"github.com/meridian-pos/meridian-pos/internal/offline"
	"github.com/meridian-pos/meridian-pos/internal/orders"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// IdempotencyChecker short-circuits replays of an action that already landed.
type IdempotencyChecker interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

const idempotencyModule = "offline"

// ApplyOfflineAction replays one queued action against the remote store.
// Dedup by idempotency key makes the at-least-once replay safe to retry: a
// key that was already recorded means the action landed on a previous pass.
func (d *DAL) ApplyOfflineAction(idem IdempotencyChecker) offline.Applier {
	return func(ctx context.Context, action offline.Action) error {
		if idem != nil {
			err := idem.CheckAndInsert(ctx, action.IdempotencyKey, idempotencyModule)
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return nil
			}
			if err != nil {
				return err
			}
		}
		if err := d.applyAction(ctx, action); err != nil {
			if idem != nil {
				// Free the key so a requeue can try again.
				_ = idem.Delete(ctx, action.IdempotencyKey)
			}
			return err
		}
		return nil
	}
}

func (d *DAL) applyAction(ctx context.Context, action offline.Action) error {
	switch action.Type {
	case ActionCreateBatch:
		var b inventory.Batch
		if err := json.Unmarshal(action.Payload, &b); err != nil {
			return fmt.Errorf("decode %s: %w", action.Type, err)
		}
		_, err := d.store.CreateBatch(ctx, b)
		if err == nil {
			d.invalidate(ctx, keyInventoryScope, keyDashboardScope)
		}
		return err
	case ActionUpdateBatchQty:
		var input UpdateBatchQuantityInput
		if err := json.Unmarshal(action.Payload, &input); err != nil {
			return fmt.Errorf("decode %s: %w", action.Type, err)
		}
		_, err := d.store.UpdateBatchQuantity(ctx, input.BatchID, input.NewQty, input.ExpectedQty, input.Status)
		if err == nil {
			d.invalidate(ctx, keyInventoryScope, keyDashboardScope)
		}
		return err
	case ActionCreateMovement:
		var m inventory.Movement
		if err := json.Unmarshal(action.Payload, &m); err != nil {
			return fmt.Errorf("decode %s: %w", action.Type, err)
		}
		_, err := d.store.CreateMovement(ctx, m)
		if err == nil {
			d.invalidate(ctx, keyInventoryScope)
		}
		return err
	case ActionCreateSalesOrder:
		var so orders.SalesOrder
		if err := json.Unmarshal(action.Payload, &so); err != nil {
			return fmt.Errorf("decode %s: %w", action.Type, err)
		}
		_, err := d.store.CreateSalesOrder(ctx, so)
		if err == nil {
			d.invalidate(ctx, keyOrdersScope, keyDashboardScope)
		}
		return err
	case ActionCreatePurchaseOrder:
		var po orders.PurchaseOrder
		if err := json.Unmarshal(action.Payload, &po); err != nil {
			return fmt.Errorf("decode %s: %w", action.Type, err)
		}
		_, err := d.store.CreatePurchaseOrder(ctx, po)
		if err == nil {
			d.invalidate(ctx, keyOrdersScope)
		}
		return err
	case ActionCreatePayable:
		var p orders.Payable
		if err := json.Unmarshal(action.Payload, &p); err != nil {
			return fmt.Errorf("decode %s: %w", action.Type, err)
		}
		_, err := d.store.CreatePayable(ctx, p)
		return err
	default:
		return fmt.Errorf("unknown offline action type %q", action.Type)
	}
}
