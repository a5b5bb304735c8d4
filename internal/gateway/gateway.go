// Package gateway is the only component that talks to the remote relational
// store. It returns rows or an error; ordering, caching and retry policy all
// live with the callers.
package gateway

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/masterdata"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// Gateway executes per-entity reads and writes against PostgreSQL.
type Gateway struct {
	pool *pgxpool.Pool
}

// New constructs a Gateway.
func New(pool *pgxpool.Pool) *Gateway {
	return &Gateway{pool: pool}
}

// Products lists active catalog products with their alternate units.
func (g *Gateway) Products(ctx context.Context) ([]masterdata.Product, error) {
	const query = `SELECT id, code, name, base_unit, shelf_life_days, min_stock_level, price, is_active, created_at, updated_at
		FROM products WHERE is_active = true ORDER BY name`
	rows, err := g.pool.Query(ctx, query)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var products []masterdata.Product
	for rows.Next() {
		var p masterdata.Product
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.BaseUnit, &p.ShelfLifeDays, &p.MinStockLevel, &p.Price, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	for i := range products {
		units, err := g.productUnits(ctx, products[i].ID)
		if err != nil {
			return nil, err
		}
		products[i].AlternateUnits = units
	}
	return products, nil
}

// Product fetches one product including its unit conversion table.
func (g *Gateway) Product(ctx context.Context, id int64) (masterdata.Product, error) {
	const query = `SELECT id, code, name, base_unit, shelf_life_days, min_stock_level, price, is_active, created_at, updated_at
		FROM products WHERE id = $1`
	var p masterdata.Product
	err := g.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Code, &p.Name, &p.BaseUnit, &p.ShelfLifeDays, &p.MinStockLevel, &p.Price, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return masterdata.Product{}, shared.ErrNotFound
		}
		return masterdata.Product{}, classify(err)
	}
	units, err := g.productUnits(ctx, p.ID)
	if err != nil {
		return masterdata.Product{}, err
	}
	p.AlternateUnits = units
	return p, nil
}

func (g *Gateway) productUnits(ctx context.Context, productID int64) ([]masterdata.AlternateUnit, error) {
	const query = `SELECT name, conversion_factor FROM product_units WHERE product_id = $1 ORDER BY name`
	rows, err := g.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var units []masterdata.AlternateUnit
	for rows.Next() {
		var u masterdata.AlternateUnit
		if err := rows.Scan(&u.Name, &u.ConversionFactor); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// Warehouses lists active warehouses.
func (g *Gateway) Warehouses(ctx context.Context) ([]masterdata.Warehouse, error) {
	const query = `SELECT id, code, name, address, is_active, created_at FROM warehouses WHERE is_active = true ORDER BY name`
	rows, err := g.pool.Query(ctx, query)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var warehouses []masterdata.Warehouse
	for rows.Next() {
		var w masterdata.Warehouse
		if err := rows.Scan(&w.ID, &w.Code, &w.Name, &w.Address, &w.IsActive, &w.CreatedAt); err != nil {
			return nil, err
		}
		warehouses = append(warehouses, w)
	}
	return warehouses, rows.Err()
}

// Suppliers lists active suppliers.
func (g *Gateway) Suppliers(ctx context.Context) ([]masterdata.Supplier, error) {
	const query = `SELECT id, code, name, phone, address, is_active, created_at FROM suppliers WHERE is_active = true ORDER BY name`
	rows, err := g.pool.Query(ctx, query)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var suppliers []masterdata.Supplier
	for rows.Next() {
		var s masterdata.Supplier
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.Phone, &s.Address, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}
