package dal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meridian-pos/meridian-pos/internal/gateway"
	"github.com/meridian-pos/meridian-pos/internal/inventory"
	"github.com/meridian-pos/meridian-pos/internal/offline"
	"github.com/meridian-pos/meridian-pos/internal/orders"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// Offline action types understood by the applier.
const (
	ActionCreateBatch         = "batch.create"
	ActionUpdateBatchQty      = "batch.update_qty"
	ActionCreateMovement      = "movement.create"
	ActionCreateSalesOrder    = "sales_order.create"
	ActionCreatePurchaseOrder = "purchase_order.create"
	ActionCreatePayable       = "payable.create"
)

// Queue is the offline capture surface the DAL records to when the remote
// store is unreachable.
type Queue interface {
	Enqueue(ctx context.Context, actionType string, payload any) (offline.Action, error)
}

// queueOnUnavailable records the mutation offline when the gateway was
// unreachable and converts the error to shared.ErrQueuedOffline so callers
// can tell the sale/receipt was captured, not lost.
func (d *DAL) queueOnUnavailable(ctx context.Context, err error, actionType string, payload any) error {
	if err == nil || d.queue == nil || !gateway.IsUnavailable(err) {
		return err
	}
	if _, qerr := d.queue.Enqueue(ctx, actionType, payload); qerr != nil {
		if d.logger != nil {
			d.logger.Error("offline capture failed", slog.String("type", actionType), slog.Any("error", qerr))
		}
		return err
	}
	return fmt.Errorf("%s: %w", actionType, shared.ErrQueuedOffline)
}

// CreateBatch writes a batch and invalidates the inventory namespace.
func (d *DAL) CreateBatch(ctx context.Context, b inventory.Batch) (inventory.Batch, error) {
	created, err := d.store.CreateBatch(ctx, b)
	if err != nil {
		return inventory.Batch{}, d.queueOnUnavailable(ctx, err, ActionCreateBatch, b)
	}
	d.invalidate(ctx, keyInventoryScope, keyDashboardScope)
	return created, nil
}

// UpdateBatchQuantityInput mirrors the gateway compare-and-swap write so it
// can round-trip through the offline queue.
type UpdateBatchQuantityInput struct {
	BatchID     int64                 `json:"batch_id"`
	NewQty      float64               `json:"new_qty"`
	ExpectedQty float64               `json:"expected_qty"`
	Status      inventory.BatchStatus `json:"status"`
}

// UpdateBatchQuantity applies a direct quantity adjustment outside a sale.
func (d *DAL) UpdateBatchQuantity(ctx context.Context, input UpdateBatchQuantityInput) (inventory.Batch, error) {
	updated, err := d.store.UpdateBatchQuantity(ctx, input.BatchID, input.NewQty, input.ExpectedQty, input.Status)
	if err != nil {
		return inventory.Batch{}, d.queueOnUnavailable(ctx, err, ActionUpdateBatchQty, input)
	}
	d.invalidate(ctx, keyInventoryScope, keyDashboardScope)
	return updated, nil
}

// CreateMovement appends a stock movement record.
func (d *DAL) CreateMovement(ctx context.Context, m inventory.Movement) (inventory.Movement, error) {
	created, err := d.store.CreateMovement(ctx, m)
	if err != nil {
		return inventory.Movement{}, d.queueOnUnavailable(ctx, err, ActionCreateMovement, m)
	}
	d.invalidate(ctx, keyInventoryScope)
	return created, nil
}

// CreateSalesOrder persists a sale header.
func (d *DAL) CreateSalesOrder(ctx context.Context, so orders.SalesOrder) (orders.SalesOrder, error) {
	created, err := d.store.CreateSalesOrder(ctx, so)
	if err != nil {
		return orders.SalesOrder{}, d.queueOnUnavailable(ctx, err, ActionCreateSalesOrder, so)
	}
	d.invalidate(ctx, keyOrdersScope, keyDashboardScope)
	return created, nil
}

// CreatePurchaseOrder persists a purchase order.
func (d *DAL) CreatePurchaseOrder(ctx context.Context, po orders.PurchaseOrder) (orders.PurchaseOrder, error) {
	created, err := d.store.CreatePurchaseOrder(ctx, po)
	if err != nil {
		return orders.PurchaseOrder{}, d.queueOnUnavailable(ctx, err, ActionCreatePurchaseOrder, po)
	}
	d.invalidate(ctx, keyOrdersScope)
	return created, nil
}

// CreatePayable records the supplier payable for a receipt.
func (d *DAL) CreatePayable(ctx context.Context, p orders.Payable) (orders.Payable, error) {
	created, err := d.store.CreatePayable(ctx, p)
	if err != nil {
		return orders.Payable{}, d.queueOnUnavailable(ctx, err, ActionCreatePayable, p)
	}
	return created, nil
}

// WithSaleTx runs a sale deduction in one remote transaction and, on commit,
// drops every cache entry the deduction could have staled.
func (d *DAL) WithSaleTx(ctx context.Context, fn func(ctx context.Context, tx inventory.SaleTx) error) error {
	if err := d.store.WithSaleTx(ctx, fn); err != nil {
		return err
	}
	d.invalidate(ctx, keyInventoryScope, keyDashboardScope)
	return nil
}

func (d *DAL) invalidate(ctx context.Context, prefixes ...string) {
	if d.cache == nil {
		return
	}
	for _, prefix := range prefixes {
		d.cache.RemoveByPrefix(ctx, prefix)
	}
}
