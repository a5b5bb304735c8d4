package gateway

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/meridian-pos/meridian-pos/internal/inventory"
	"github.com/meridian-pos/meridian-pos/internal/platform/db"
)

// Tx exposes the batch operations available inside one sale transaction.
// Batch rows are locked on read, so the whole deduction commits or none of
// it does and concurrent sales serialise instead of overselling.
type Tx struct {
	tx pgx.Tx
}

// WithSaleTx runs fn inside a single Repeatable Read transaction.
func (g *Gateway) WithSaleTx(ctx context.Context, fn func(ctx context.Context, tx inventory.SaleTx) error) error {
	err := db.WithTx(ctx, g.pool, func(tx pgx.Tx) error {
		return fn(ctx, &Tx{tx: tx})
	})
	return classify(err)
}

// BatchesForUpdate loads the product's active batches with row locks held
// until commit.
func (t *Tx) BatchesForUpdate(ctx context.Context, productID int64) ([]inventory.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM inventory_batches
		WHERE product_id = $1 AND status = $2 FOR UPDATE`
	rows, err := t.tx.Query(ctx, query, productID, inventory.BatchStatusActive)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	return scanBatches(rows)
}

// UpdateBatchQuantity applies one deduction under the expected-quantity
// precondition, inside the transaction.
func (t *Tx) UpdateBatchQuantity(ctx context.Context, batchID int64, newQty, expectedQty float64, status inventory.BatchStatus) (inventory.Batch, error) {
	return updateBatchQuantity(ctx, t.tx, batchID, newQty, expectedQty, status)
}

// InsertMovement appends one movement record inside the transaction.
func (t *Tx) InsertMovement(ctx context.Context, m inventory.Movement) (inventory.Movement, error) {
	return insertMovement(ctx, t.tx, m)
}
