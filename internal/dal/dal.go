// Package dal is the cache-or-fetch facade between the domain services and
// the remote store. Reads go through the TTL cache; mutations go straight to
// the gateway and invalidate the coarse collection keys that could be stale.
package dal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meridian-pos/meridian-pos/internal/cache"
	"github.com/meridian-pos/meridian-pos/internal/inventory"
	"github.com/meridian-pos/meridian-pos/internal/masterdata"
	"github.com/meridian-pos/meridian-pos/internal/orders"
)

// Cache keys. Invalidation is deliberately coarse: a batch write clears the
// whole inventory namespace rather than chasing per-product keys, trading a
// few refetches for never missing an invalidation.
const (
	keyProducts       = "products"
	keyProductPrefix  = "products:"
	keyWarehouses     = "warehouses"
	keySuppliers      = "suppliers"
	keyBatchPrefix    = "inventory:batches:"
	keyInventoryScope = "inventory:"
	keyPurchaseOrders = "orders:purchase"
	keySalesOrders    = "orders:sales"
	keyOrdersScope    = "orders:"
	keyLowStock       = "dashboard:lowstock"
	keyDashboardScope = "dashboard:"
)

// TTLConfig carries the per-entity cache windows. Values are configuration,
// chosen by expected mutation frequency.
type TTLConfig struct {
	Products   time.Duration
	Warehouses time.Duration
	Suppliers  time.Duration
	Inventory  time.Duration
	Orders     time.Duration
	Dashboard  time.Duration
}

// Store is the gateway surface the DAL fetches from and writes through.
type Store interface {
	Products(ctx context.Context) ([]masterdata.Product, error)
	Product(ctx context.Context, id int64) (masterdata.Product, error)
	Warehouses(ctx context.Context) ([]masterdata.Warehouse, error)
	Suppliers(ctx context.Context) ([]masterdata.Supplier, error)
	BatchesByProduct(ctx context.Context, productID int64) ([]inventory.Batch, error)
	MovementsByProduct(ctx context.Context, productID int64, limit int) ([]inventory.Movement, error)
	LowStockEntries(ctx context.Context) ([]inventory.LowStockEntry, error)
	PurchaseOrders(ctx context.Context, limit int) ([]orders.PurchaseOrder, error)
	SalesOrders(ctx context.Context, limit int) ([]orders.SalesOrder, error)

	CreateBatch(ctx context.Context, b inventory.Batch) (inventory.Batch, error)
	UpdateBatchQuantity(ctx context.Context, batchID int64, newQty, expectedQty float64, status inventory.BatchStatus) (inventory.Batch, error)
	CreateMovement(ctx context.Context, m inventory.Movement) (inventory.Movement, error)
	CreateSalesOrder(ctx context.Context, so orders.SalesOrder) (orders.SalesOrder, error)
	CreatePurchaseOrder(ctx context.Context, po orders.PurchaseOrder) (orders.PurchaseOrder, error)
	CreatePayable(ctx context.Context, p orders.Payable) (orders.Payable, error)
	WithSaleTx(ctx context.Context, fn func(ctx context.Context, tx inventory.SaleTx) error) error
}

// DAL wires the gateway, the cache and the offline queue together.
type DAL struct {
	store  Store
	cache  *cache.Store
	queue  Queue
	logger *slog.Logger
	ttl    TTLConfig
}

// New constructs the data access layer. queue may be nil when offline capture
// is disabled.
func New(store Store, cacheStore *cache.Store, queue Queue, ttl TTLConfig, logger *slog.Logger) *DAL {
	return &DAL{store: store, cache: cacheStore, queue: queue, logger: logger, ttl: ttl}
}

func fetchCached[T any](ctx context.Context, d *DAL, key string, ttl time.Duration, forceRefresh bool, load func(context.Context) (T, error)) (T, error) {
	if !forceRefresh {
		if hit, ok := cache.Get[T](ctx, d.cache, key); ok {
			return hit, nil
		}
	}
	value, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	cache.Set(ctx, d.cache, key, value, ttl)
	return value, nil
}

// GetProducts returns the product catalog, cache first.
func (d *DAL) GetProducts(ctx context.Context, forceRefresh bool) ([]masterdata.Product, error) {
	return fetchCached(ctx, d, keyProducts, d.ttl.Products, forceRefresh, d.store.Products)
}

// GetProduct returns one product with its unit conversion table.
func (d *DAL) GetProduct(ctx context.Context, id int64) (masterdata.Product, error) {
	key := fmt.Sprintf("%s%d", keyProductPrefix, id)
	return fetchCached(ctx, d, key, d.ttl.Products, false, func(ctx context.Context) (masterdata.Product, error) {
		return d.store.Product(ctx, id)
	})
}

// GetWarehouses returns warehouses, cache first.
func (d *DAL) GetWarehouses(ctx context.Context, forceRefresh bool) ([]masterdata.Warehouse, error) {
	return fetchCached(ctx, d, keyWarehouses, d.ttl.Warehouses, forceRefresh, d.store.Warehouses)
}

// GetSuppliers returns suppliers, cache first.
func (d *DAL) GetSuppliers(ctx context.Context, forceRefresh bool) ([]masterdata.Supplier, error) {
	return fetchCached(ctx, d, keySuppliers, d.ttl.Suppliers, forceRefresh, d.store.Suppliers)
}

// GetBatchesByProduct returns the product's active batches, cache first.
func (d *DAL) GetBatchesByProduct(ctx context.Context, productID int64, forceRefresh bool) ([]inventory.Batch, error) {
	key := fmt.Sprintf("%s%d", keyBatchPrefix, productID)
	return fetchCached(ctx, d, key, d.ttl.Inventory, forceRefresh, func(ctx context.Context) ([]inventory.Batch, error) {
		return d.store.BatchesByProduct(ctx, productID)
	})
}

// GetMovementsByProduct returns recent movements. The audit trail is always
// read fresh; it backs operator screens, not hot paths.
func (d *DAL) GetMovementsByProduct(ctx context.Context, productID int64, limit int) ([]inventory.Movement, error) {
	return d.store.MovementsByProduct(ctx, productID, limit)
}

// GetLowStock returns the low-stock dashboard rows, cache first.
func (d *DAL) GetLowStock(ctx context.Context, forceRefresh bool) ([]inventory.LowStockEntry, error) {
	return fetchCached(ctx, d, keyLowStock, d.ttl.Dashboard, forceRefresh, d.store.LowStockEntries)
}

// GetPurchaseOrders returns purchase orders, cache first.
func (d *DAL) GetPurchaseOrders(ctx context.Context, forceRefresh bool) ([]orders.PurchaseOrder, error) {
	return fetchCached(ctx, d, keyPurchaseOrders, d.ttl.Orders, forceRefresh, func(ctx context.Context) ([]orders.PurchaseOrder, error) {
		return d.store.PurchaseOrders(ctx, 0)
	})
}

// GetSalesOrders returns sales orders, cache first.
func (d *DAL) GetSalesOrders(ctx context.Context, forceRefresh bool) ([]orders.SalesOrder, error) {
	return fetchCached(ctx, d, keySalesOrders, d.ttl.Orders, forceRefresh, func(ctx context.Context) ([]orders.SalesOrder, error) {
		return d.store.SalesOrders(ctx, 0)
	})
}

// Preload warms the cache with the independent collections the POS screens
// need at startup. Failures are logged, not fatal: a cold cache only costs
// extra round-trips later.
func (d *DAL) Preload(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { _, err := d.GetProducts(ctx, true); return err })
	g.Go(func() error { _, err := d.GetWarehouses(ctx, true); return err })
	g.Go(func() error { _, err := d.GetSuppliers(ctx, true); return err })
	g.Go(func() error { _, err := d.GetLowStock(ctx, true); return err })
	if err := g.Wait(); err != nil {
		if d.logger != nil {
			d.logger.Warn("cache preload incomplete", slog.Any("error", err))
		}
		return err
	}
	return nil
}

// ClearCache drops every cached entry, typically on session teardown.
func (d *DAL) ClearCache(ctx context.Context) {
	if d.cache != nil {
		d.cache.ClearAll(ctx)
	}
}
