package inventory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/meridian-pos/meridian-pos/internal/orders"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// ReceiptStore persists the artifacts of a purchase receipt.
type ReceiptStore interface {
	CreateBatch(ctx context.Context, b Batch) (Batch, error)
	CreateMovement(ctx context.Context, m Movement) (Movement, error)
	CreatePayable(ctx context.Context, p orders.Payable) (orders.Payable, error)
}

// LowStockReader lists products at or below their minimum stock level.
type LowStockReader interface {
	GetLowStock(ctx context.Context, forceRefresh bool) ([]LowStockEntry, error)
}

const payableTermDays = 30

// Receipts turns purchase receipt lines into inventory batches.
type Receipts struct {
	products ProductResolver
	store    ReceiptStore
	lowStock LowStockReader
	logger   *slog.Logger
	now      func() time.Time
}

// NewReceipts constructs the receipt service.
func NewReceipts(products ProductResolver, store ReceiptStore, lowStock LowStockReader, logger *slog.Logger) *Receipts {
	return &Receipts{products: products, store: store, lowStock: lowStock, logger: logger, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (r *Receipts) WithNow(fn func() time.Time) {
	if fn != nil {
		r.now = fn
	}
}

// ReceiveStock creates a batch for the received quantity, an inbound stock
// movement, and the supplier payable. The batch expiry date derives from the
// product shelf life when the product declares one.
func (r *Receipts) ReceiveStock(ctx context.Context, input ReceiptInput) (Batch, error) {
	if input.Qty <= 0 {
		return Batch{}, ErrInvalidQuantity
	}
	product, err := r.products.GetProduct(ctx, input.ProductID)
	if err != nil {
		return Batch{}, err
	}

	receivedAt := input.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = r.now().UTC()
	}
	batch := Batch{
		ProductID:   input.ProductID,
		WarehouseID: input.WarehouseID,
		BatchNumber: input.BatchNumber,
		Quantity:    input.Qty,
		UnitCost:    input.UnitCost,
		ReceivedAt:  receivedAt,
		Status:      BatchStatusActive,
	}
	if product.ShelfLifeDays > 0 {
		batch.ExpiresAt = receivedAt.AddDate(0, 0, product.ShelfLifeDays)
	}

	created, err := r.store.CreateBatch(ctx, batch)
	if err != nil {
		if errors.Is(err, shared.ErrQueuedOffline) && r.logger != nil {
			r.logger.Info("receipt queued offline",
				slog.Int64("product_id", input.ProductID),
				slog.String("ref", input.RefCode))
		}
		return Batch{}, err
	}

	movement := Movement{
		ProductID:   input.ProductID,
		WarehouseID: input.WarehouseID,
		BatchID:     created.ID,
		Type:        MovementTypePurchase,
		Quantity:    input.Qty,
		RefCode:     input.RefCode,
		UnitCost:    input.UnitCost,
		OccurredAt:  receivedAt,
	}
	if _, err := r.store.CreateMovement(ctx, movement); err != nil {
		return Batch{}, err
	}

	if input.SupplierID != 0 {
		payable := orders.Payable{
			SupplierID: input.SupplierID,
			RefCode:    input.RefCode,
			Amount:     input.Qty * input.UnitCost,
			DueDate:    receivedAt.AddDate(0, 0, payableTermDays),
		}
		if _, err := r.store.CreatePayable(ctx, payable); err != nil {
			return Batch{}, err
		}
	}
	return created, nil
}

// LowStock reports products whose active stock sits at or below minimum.
func (r *Receipts) LowStock(ctx context.Context, forceRefresh bool) ([]LowStockEntry, error) {
	if r.lowStock == nil {
		return nil, nil
	}
	return r.lowStock.GetLowStock(ctx, forceRefresh)
}
