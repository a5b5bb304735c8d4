package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/meridian-pos/meridian-pos/internal/inventory"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

const batchColumns = `id, product_id, warehouse_id, batch_number, quantity, unit_cost, received_at, expires_at, status`

// BatchesByProduct returns the product's active batches, unordered. FIFO
// ordering is the engine's responsibility.
func (g *Gateway) BatchesByProduct(ctx context.Context, productID int64) ([]inventory.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM inventory_batches WHERE product_id = $1 AND status = $2`
	rows, err := g.pool.Query(ctx, query, productID, inventory.BatchStatusActive)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	return scanBatches(rows)
}

// CreateBatch inserts a batch created by a purchase receipt.
func (g *Gateway) CreateBatch(ctx context.Context, b inventory.Batch) (inventory.Batch, error) {
	const query = `INSERT INTO inventory_batches (product_id, warehouse_id, batch_number, quantity, unit_cost, received_at, expires_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := g.pool.QueryRow(ctx, query, b.ProductID, b.WarehouseID, b.BatchNumber, b.Quantity, b.UnitCost, b.ReceivedAt, b.ExpiresAt, b.Status).Scan(&b.ID)
	if err != nil {
		return inventory.Batch{}, classify(err)
	}
	return b, nil
}

// UpdateBatchQuantity decrements a batch under an expected-quantity
// precondition. A zero-row update means another writer got there first and
// surfaces as shared.ErrConflict.
func (g *Gateway) UpdateBatchQuantity(ctx context.Context, batchID int64, newQty, expectedQty float64, status inventory.BatchStatus) (inventory.Batch, error) {
	return updateBatchQuantity(ctx, g.pool, batchID, newQty, expectedQty, status)
}

type execQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func updateBatchQuantity(ctx context.Context, q execQuerier, batchID int64, newQty, expectedQty float64, status inventory.BatchStatus) (inventory.Batch, error) {
	query := `UPDATE inventory_batches SET quantity = $1, status = $2
		WHERE id = $3 AND quantity = $4 RETURNING ` + batchColumns
	var b inventory.Batch
	err := q.QueryRow(ctx, query, newQty, status, batchID, expectedQty).Scan(
		&b.ID, &b.ProductID, &b.WarehouseID, &b.BatchNumber, &b.Quantity, &b.UnitCost, &b.ReceivedAt, &b.ExpiresAt, &b.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return inventory.Batch{}, shared.ErrConflict
		}
		return inventory.Batch{}, classify(err)
	}
	return b, nil
}

// CreateMovement appends one stock movement audit record.
func (g *Gateway) CreateMovement(ctx context.Context, m inventory.Movement) (inventory.Movement, error) {
	return insertMovement(ctx, g.pool, m)
}

func insertMovement(ctx context.Context, q execQuerier, m inventory.Movement) (inventory.Movement, error) {
	const query = `INSERT INTO stock_movements (product_id, warehouse_id, batch_id, movement_type, quantity, ref_code, unit_cost, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := q.QueryRow(ctx, query, m.ProductID, m.WarehouseID, m.BatchID, m.Type, m.Quantity, m.RefCode, m.UnitCost, m.OccurredAt).Scan(&m.ID)
	if err != nil {
		return inventory.Movement{}, classify(err)
	}
	return m, nil
}

// MovementsByProduct lists recent movements for a product, newest first.
func (g *Gateway) MovementsByProduct(ctx context.Context, productID int64, limit int) ([]inventory.Movement, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `SELECT id, product_id, warehouse_id, batch_id, movement_type, quantity, ref_code, unit_cost, occurred_at
		FROM stock_movements WHERE product_id = $1 ORDER BY occurred_at DESC LIMIT $2`
	rows, err := g.pool.Query(ctx, query, productID, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var movements []inventory.Movement
	for rows.Next() {
		var m inventory.Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.WarehouseID, &m.BatchID, &m.Type, &m.Quantity, &m.RefCode, &m.UnitCost, &m.OccurredAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// MarkExpiredBatches flips active batches past their expiry date to expired
// and returns the number of rows touched. A zero expires_at means no expiry.
func (g *Gateway) MarkExpiredBatches(ctx context.Context, now time.Time) (int64, error) {
	const query = `UPDATE inventory_batches SET status = $1
		WHERE status = $2 AND expires_at > $3 AND expires_at <= $4`
	tag, err := g.pool.Exec(ctx, query, inventory.BatchStatusExpired, inventory.BatchStatusActive, time.Time{}, now)
	if err != nil {
		return 0, classify(err)
	}
	return tag.RowsAffected(), nil
}

// LowStockEntries lists products whose active stock is at or below their
// minimum stock level.
func (g *Gateway) LowStockEntries(ctx context.Context) ([]inventory.LowStockEntry, error) {
	const query = `SELECT p.id, p.name, COALESCE(SUM(b.quantity), 0) AS total, p.min_stock_level
		FROM products p
		LEFT JOIN inventory_batches b ON b.product_id = p.id AND b.status = $1
		WHERE p.is_active = true
		GROUP BY p.id, p.name, p.min_stock_level
		HAVING COALESCE(SUM(b.quantity), 0) <= p.min_stock_level
		ORDER BY p.name`
	rows, err := g.pool.Query(ctx, query, inventory.BatchStatusActive)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var entries []inventory.LowStockEntry
	for rows.Next() {
		var e inventory.LowStockEntry
		if err := rows.Scan(&e.ProductID, &e.ProductName, &e.TotalStock, &e.MinStockLevel); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanBatches(rows pgx.Rows) ([]inventory.Batch, error) {
	var batches []inventory.Batch
	for rows.Next() {
		var b inventory.Batch
		if err := rows.Scan(&b.ID, &b.ProductID, &b.WarehouseID, &b.BatchNumber, &b.Quantity, &b.UnitCost, &b.ReceivedAt, &b.ExpiresAt, &b.Status); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}
