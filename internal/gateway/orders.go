package gateway

import (
	"context"
	"encoding/json"

	"github.com/meridian-pos/meridian-pos/internal/orders"
)

// PurchaseOrders lists purchase orders, newest first.
func (g *Gateway) PurchaseOrders(ctx context.Context, limit int) ([]orders.PurchaseOrder, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `SELECT id, code, supplier_id, warehouse_id, status, items, total, ordered_at, created_at
		FROM purchase_orders ORDER BY ordered_at DESC LIMIT $1`
	rows, err := g.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var result []orders.PurchaseOrder
	for rows.Next() {
		var po orders.PurchaseOrder
		var items []byte
		if err := rows.Scan(&po.ID, &po.Code, &po.SupplierID, &po.WarehouseID, &po.Status, &items, &po.Total, &po.OrderedAt, &po.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(items, &po.Items); err != nil {
			return nil, err
		}
		result = append(result, po)
	}
	return result, rows.Err()
}

// SalesOrders lists sales orders, newest first.
func (g *Gateway) SalesOrders(ctx context.Context, limit int) ([]orders.SalesOrder, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `SELECT id, code, warehouse_id, status, items, total, sold_at, created_at
		FROM sales_orders ORDER BY sold_at DESC LIMIT $1`
	rows, err := g.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var result []orders.SalesOrder
	for rows.Next() {
		var so orders.SalesOrder
		var items []byte
		if err := rows.Scan(&so.ID, &so.Code, &so.WarehouseID, &so.Status, &items, &so.Total, &so.SoldAt, &so.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(items, &so.Items); err != nil {
			return nil, err
		}
		result = append(result, so)
	}
	return result, rows.Err()
}

// CreateSalesOrder persists a completed sale header.
func (g *Gateway) CreateSalesOrder(ctx context.Context, so orders.SalesOrder) (orders.SalesOrder, error) {
	items, err := json.Marshal(so.Items)
	if err != nil {
		return orders.SalesOrder{}, err
	}
	const query = `INSERT INTO sales_orders (code, warehouse_id, status, items, total, sold_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	err = g.pool.QueryRow(ctx, query, so.Code, so.WarehouseID, so.Status, items, so.Total, so.SoldAt).Scan(&so.ID, &so.CreatedAt)
	if err != nil {
		return orders.SalesOrder{}, classify(err)
	}
	return so, nil
}

// CreatePurchaseOrder persists a purchase order.
func (g *Gateway) CreatePurchaseOrder(ctx context.Context, po orders.PurchaseOrder) (orders.PurchaseOrder, error) {
	items, err := json.Marshal(po.Items)
	if err != nil {
		return orders.PurchaseOrder{}, err
	}
	const query = `INSERT INTO purchase_orders (code, supplier_id, warehouse_id, status, items, total, ordered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`
	err = g.pool.QueryRow(ctx, query, po.Code, po.SupplierID, po.WarehouseID, po.Status, items, po.Total, po.OrderedAt).Scan(&po.ID, &po.CreatedAt)
	if err != nil {
		return orders.PurchaseOrder{}, classify(err)
	}
	return po, nil
}

// CreatePayable records the supplier payable raised by a purchase receipt.
// This is the one accounting call the core owns.
func (g *Gateway) CreatePayable(ctx context.Context, p orders.Payable) (orders.Payable, error) {
	const query = `INSERT INTO payables (supplier_id, ref_code, amount, due_date)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err := g.pool.QueryRow(ctx, query, p.SupplierID, p.RefCode, p.Amount, p.DueDate).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return orders.Payable{}, classify(err)
	}
	return p, nil
}
