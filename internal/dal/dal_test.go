package dal

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/cache"
	"github.com/meridian-pos/meridian-pos/internal/inventory"
	"github.com/meridian-pos/meridian-pos/internal/masterdata"
	"github.com/meridian-pos/meridian-pos/internal/offline"
	"github.com/meridian-pos/meridian-pos/internal/orders"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// fakeStore counts every remote round-trip so tests can assert cache behavior.
type fakeStore struct {
	products   []masterdata.Product
	warehouses []masterdata.Warehouse
	suppliers  []masterdata.Supplier
	batches    map[int64][]inventory.Batch
	lowStock   []inventory.LowStockEntry

	calls       map[string]int
	unavailable bool

	createdBatches   []inventory.Batch
	createdMovements []inventory.Movement
	createdPayables  []orders.Payable
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		batches: map[int64][]inventory.Batch{},
		calls:   map[string]int{},
	}
}

func (s *fakeStore) hit(name string) error {
	s.calls[name]++
	if s.unavailable {
		return fmt.Errorf("dial tcp: %w", shared.ErrGatewayUnavailable)
	}
	return nil
}

func (s *fakeStore) Products(ctx context.Context) ([]masterdata.Product, error) {
	if err := s.hit("Products"); err != nil {
		return nil, err
	}
	return s.products, nil
}

func (s *fakeStore) Product(ctx context.Context, id int64) (masterdata.Product, error) {
	if err := s.hit("Product"); err != nil {
		return masterdata.Product{}, err
	}
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return masterdata.Product{}, shared.ErrNotFound
}

func (s *fakeStore) Warehouses(ctx context.Context) ([]masterdata.Warehouse, error) {
	if err := s.hit("Warehouses"); err != nil {
		return nil, err
	}
	return s.warehouses, nil
}

func (s *fakeStore) Suppliers(ctx context.Context) ([]masterdata.Supplier, error) {
	if err := s.hit("Suppliers"); err != nil {
		return nil, err
	}
	return s.suppliers, nil
}

func (s *fakeStore) BatchesByProduct(ctx context.Context, productID int64) ([]inventory.Batch, error) {
	if err := s.hit("BatchesByProduct"); err != nil {
		return nil, err
	}
	return s.batches[productID], nil
}

func (s *fakeStore) MovementsByProduct(ctx context.Context, productID int64, limit int) ([]inventory.Movement, error) {
	if err := s.hit("MovementsByProduct"); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *fakeStore) LowStockEntries(ctx context.Context) ([]inventory.LowStockEntry, error) {
	if err := s.hit("LowStockEntries"); err != nil {
		return nil, err
	}
	return s.lowStock, nil
}

func (s *fakeStore) PurchaseOrders(ctx context.Context, limit int) ([]orders.PurchaseOrder, error) {
	if err := s.hit("PurchaseOrders"); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *fakeStore) SalesOrders(ctx context.Context, limit int) ([]orders.SalesOrder, error) {
	if err := s.hit("SalesOrders"); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *fakeStore) CreateBatch(ctx context.Context, b inventory.Batch) (inventory.Batch, error) {
	if err := s.hit("CreateBatch"); err != nil {
		return inventory.Batch{}, err
	}
	b.ID = int64(len(s.createdBatches) + 1)
	s.createdBatches = append(s.createdBatches, b)
	return b, nil
}

func (s *fakeStore) UpdateBatchQuantity(ctx context.Context, batchID int64, newQty, expectedQty float64, status inventory.BatchStatus) (inventory.Batch, error) {
	if err := s.hit("UpdateBatchQuantity"); err != nil {
		return inventory.Batch{}, err
	}
	return inventory.Batch{ID: batchID, Quantity: newQty, Status: status}, nil
}

func (s *fakeStore) CreateMovement(ctx context.Context, m inventory.Movement) (inventory.Movement, error) {
	if err := s.hit("CreateMovement"); err != nil {
		return inventory.Movement{}, err
	}
	m.ID = int64(len(s.createdMovements) + 1)
	s.createdMovements = append(s.createdMovements, m)
	return m, nil
}

func (s *fakeStore) CreateSalesOrder(ctx context.Context, so orders.SalesOrder) (orders.SalesOrder, error) {
	if err := s.hit("CreateSalesOrder"); err != nil {
		return orders.SalesOrder{}, err
	}
	return so, nil
}

func (s *fakeStore) CreatePurchaseOrder(ctx context.Context, po orders.PurchaseOrder) (orders.PurchaseOrder, error) {
	if err := s.hit("CreatePurchaseOrder"); err != nil {
		return orders.PurchaseOrder{}, err
	}
	return po, nil
}

func (s *fakeStore) CreatePayable(ctx context.Context, p orders.Payable) (orders.Payable, error) {
	if err := s.hit("CreatePayable"); err != nil {
		return orders.Payable{}, err
	}
	s.createdPayables = append(s.createdPayables, p)
	return p, nil
}

func (s *fakeStore) WithSaleTx(ctx context.Context, fn func(ctx context.Context, tx inventory.SaleTx) error) error {
	if err := s.hit("WithSaleTx"); err != nil {
		return err
	}
	return fn(ctx, nil)
}

func newTestDAL(t *testing.T, store Store, queue Queue) *DAL {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ttl := TTLConfig{
		Products:   time.Hour,
		Warehouses: time.Hour,
		Suppliers:  time.Hour,
		Inventory:  30 * time.Second,
		Orders:     time.Minute,
		Dashboard:  time.Minute,
	}
	return New(store, cache.NewStore(client, nil), queue, ttl, nil)
}

func TestGetProductsServesSecondReadFromCache(t *testing.T) {
	store := newFakeStore()
	store.products = []masterdata.Product{{ID: 1, Name: "Tissue"}}
	d := newTestDAL(t, store, nil)
	ctx := context.Background()

	first, err := d.GetProducts(ctx, false)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := d.GetProducts(ctx, false)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, store.calls["Products"])
}

func TestGetProductsForceRefreshBypassesCache(t *testing.T) {
	store := newFakeStore()
	store.products = []masterdata.Product{{ID: 1}}
	d := newTestDAL(t, store, nil)
	ctx := context.Background()

	_, err := d.GetProducts(ctx, false)
	require.NoError(t, err)
	_, err = d.GetProducts(ctx, true)
	require.NoError(t, err)
	require.Equal(t, 2, store.calls["Products"])
}

func TestFetchErrorIsNotCached(t *testing.T) {
	store := newFakeStore()
	store.unavailable = true
	d := newTestDAL(t, store, nil)
	ctx := context.Background()

	_, err := d.GetWarehouses(ctx, false)
	require.Error(t, err)

	store.unavailable = true
	_, err = d.GetWarehouses(ctx, false)
	require.Error(t, err)
	require.Equal(t, 2, store.calls["Warehouses"])
}

func TestCreateBatchInvalidatesInventoryCache(t *testing.T) {
	store := newFakeStore()
	store.batches[7] = []inventory.Batch{{ID: 1, ProductID: 7, Quantity: 10}}
	d := newTestDAL(t, store, nil)
	ctx := context.Background()

	_, err := d.GetBatchesByProduct(ctx, 7, false)
	require.NoError(t, err)
	_, err = d.GetBatchesByProduct(ctx, 7, false)
	require.NoError(t, err)
	require.Equal(t, 1, store.calls["BatchesByProduct"])

	_, err = d.CreateBatch(ctx, inventory.Batch{ProductID: 7, Quantity: 4})
	require.NoError(t, err)

	_, err = d.GetBatchesByProduct(ctx, 7, false)
	require.NoError(t, err)
	require.Equal(t, 2, store.calls["BatchesByProduct"])
}

func TestCreateBatchLeavesProductCacheAlone(t *testing.T) {
	store := newFakeStore()
	store.products = []masterdata.Product{{ID: 1}}
	d := newTestDAL(t, store, nil)
	ctx := context.Background()

	_, err := d.GetProducts(ctx, false)
	require.NoError(t, err)
	_, err = d.CreateBatch(ctx, inventory.Batch{ProductID: 7})
	require.NoError(t, err)

	_, err = d.GetProducts(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 1, store.calls["Products"])
}

func TestWithSaleTxInvalidatesOnCommitOnly(t *testing.T) {
	store := newFakeStore()
	store.batches[7] = []inventory.Batch{{ID: 1, ProductID: 7}}
	d := newTestDAL(t, store, nil)
	ctx := context.Background()

	_, err := d.GetBatchesByProduct(ctx, 7, false)
	require.NoError(t, err)

	txErr := errors.New("insufficient stock")
	err = d.WithSaleTx(ctx, func(ctx context.Context, tx inventory.SaleTx) error {
		return txErr
	})
	require.ErrorIs(t, err, txErr)

	// Rolled-back sale: the cached batches are still valid.
	_, err = d.GetBatchesByProduct(ctx, 7, false)
	require.NoError(t, err)
	require.Equal(t, 1, store.calls["BatchesByProduct"])

	err = d.WithSaleTx(ctx, func(ctx context.Context, tx inventory.SaleTx) error {
		return nil
	})
	require.NoError(t, err)

	_, err = d.GetBatchesByProduct(ctx, 7, false)
	require.NoError(t, err)
	require.Equal(t, 2, store.calls["BatchesByProduct"])
}

func newOfflineQueue(t *testing.T) *offline.Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return offline.NewQueue(client, nil)
}

func TestUnavailableGatewayQueuesMutationOffline(t *testing.T) {
	store := newFakeStore()
	store.unavailable = true
	queue := newOfflineQueue(t)
	d := newTestDAL(t, store, queue)
	ctx := context.Background()

	_, err := d.CreateBatch(ctx, inventory.Batch{ProductID: 7, Quantity: 4})
	require.ErrorIs(t, err, shared.ErrQueuedOffline)

	pending, err := queue.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, ActionCreateBatch, pending[0].Type)
}

func TestNonNetworkErrorIsNotQueued(t *testing.T) {
	queue := newOfflineQueue(t)
	ctx := context.Background()

	// Conflict errors come back verbatim; a stale expected quantity is not
	// an outage.
	d := newTestDAL(t, &conflictingStore{fakeStore: newFakeStore()}, queue)

	_, err := d.UpdateBatchQuantity(ctx, UpdateBatchQuantityInput{BatchID: 1, NewQty: 2, ExpectedQty: 5})
	require.ErrorIs(t, err, shared.ErrConflict)

	pending, err := queue.ListPending(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}

type conflictingStore struct {
	*fakeStore
}

func (s *conflictingStore) UpdateBatchQuantity(ctx context.Context, batchID int64, newQty, expectedQty float64, status inventory.BatchStatus) (inventory.Batch, error) {
	return inventory.Batch{}, shared.ErrConflict
}

func TestOfflineReplayLandsQueuedMutation(t *testing.T) {
	store := newFakeStore()
	store.unavailable = true
	queue := newOfflineQueue(t)
	d := newTestDAL(t, store, queue)
	ctx := context.Background()

	_, err := d.CreateBatch(ctx, inventory.Batch{ProductID: 7, Quantity: 4, Status: inventory.BatchStatusActive})
	require.ErrorIs(t, err, shared.ErrQueuedOffline)

	store.unavailable = false
	report, err := queue.Sync(ctx, d.ApplyOfflineAction(nil))
	require.NoError(t, err)
	require.Equal(t, offline.SyncReport{Attempted: 1, Completed: 1}, report)
	require.Len(t, store.createdBatches, 1)
	require.Equal(t, int64(7), store.createdBatches[0].ProductID)
}

// memoryIdempotency mimics the pg-backed key store.
type memoryIdempotency struct {
	keys map[string]bool
}

func (m *memoryIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryIdempotency) Delete(ctx context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

func TestOfflineReplayDedupsByIdempotencyKey(t *testing.T) {
	store := newFakeStore()
	store.unavailable = true
	queue := newOfflineQueue(t)
	d := newTestDAL(t, store, queue)
	ctx := context.Background()

	_, err := d.CreateBatch(ctx, inventory.Batch{ProductID: 7, Quantity: 4})
	require.ErrorIs(t, err, shared.ErrQueuedOffline)

	store.unavailable = false
	idem := &memoryIdempotency{keys: map[string]bool{}}
	apply := d.ApplyOfflineAction(idem)

	_, err = queue.Sync(ctx, apply)
	require.NoError(t, err)
	require.Len(t, store.createdBatches, 1)

	// Replaying the same action again is a dedup no-op, not a second write.
	actions, err := queue.List(ctx)
	require.NoError(t, err)
	require.NoError(t, apply(ctx, actions[0]))
	require.Len(t, store.createdBatches, 1)
}

func TestOfflineReplayFreesKeyOnFailure(t *testing.T) {
	store := newFakeStore()
	store.unavailable = true
	queue := newOfflineQueue(t)
	d := newTestDAL(t, store, queue)
	ctx := context.Background()

	_, err := d.CreateBatch(ctx, inventory.Batch{ProductID: 7})
	require.ErrorIs(t, err, shared.ErrQueuedOffline)

	idem := &memoryIdempotency{keys: map[string]bool{}}
	apply := d.ApplyOfflineAction(idem)

	// Still down: the replay fails and the key must not stay burned.
	report, err := queue.Sync(ctx, apply)
	require.NoError(t, err)
	require.Equal(t, 1, report.Failed)
	require.Empty(t, idem.keys)

	store.unavailable = false
	actions, err := queue.List(ctx)
	require.NoError(t, err)
	_, err = queue.Requeue(ctx, actions[0].ID)
	require.NoError(t, err)

	report, err = queue.Sync(ctx, apply)
	require.NoError(t, err)
	require.Equal(t, 1, report.Completed)
	require.Len(t, store.createdBatches, 1)
}

func TestApplyRejectsUnknownActionType(t *testing.T) {
	store := newFakeStore()
	d := newTestDAL(t, store, nil)

	apply := d.ApplyOfflineAction(nil)
	err := apply(context.Background(), offline.Action{Type: "order.teleport", Payload: []byte(`{}`)})
	require.Error(t, err)
}

func TestPreloadWarmsCollections(t *testing.T) {
	store := newFakeStore()
	store.products = []masterdata.Product{{ID: 1}}
	d := newTestDAL(t, store, nil)
	ctx := context.Background()

	require.NoError(t, d.Preload(ctx))
	require.Equal(t, 1, store.calls["Products"])
	require.Equal(t, 1, store.calls["Warehouses"])
	require.Equal(t, 1, store.calls["Suppliers"])
	require.Equal(t, 1, store.calls["LowStockEntries"])

	_, err := d.GetProducts(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 1, store.calls["Products"])
}
