package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/meridian-pos/meridian-pos/internal/masterdata"
)

// ProductResolver resolves catalog products for unit conversion.
type ProductResolver interface {
	GetProduct(ctx context.Context, id int64) (masterdata.Product, error)
}

// SaleTx is the transactional surface a deduction runs against. All writes
// made through it commit together or not at all.
type SaleTx interface {
	BatchesForUpdate(ctx context.Context, productID int64) ([]Batch, error)
	UpdateBatchQuantity(ctx context.Context, batchID int64, newQty, expectedQty float64, status BatchStatus) (Batch, error)
	InsertMovement(ctx context.Context, m Movement) (Movement, error)
}

// SaleTxRunner opens the per-sale transaction and invalidates inventory
// caches after a successful commit.
type SaleTxRunner interface {
	WithSaleTx(ctx context.Context, fn func(ctx context.Context, tx SaleTx) error) error
}

// Engine deducts stock for sales, oldest batch first.
type Engine struct {
	products ProductResolver
	runner   SaleTxRunner
	logger   *slog.Logger
	now      func() time.Time
}

// NewEngine constructs the deduction engine.
func NewEngine(products ProductResolver, runner SaleTxRunner, logger *slog.Logger) *Engine {
	return &Engine{products: products, runner: runner, logger: logger, now: time.Now}
}

// WithNow overrides the engine clock for testing.
func (e *Engine) WithNow(fn func() time.Time) {
	if fn != nil {
		e.now = fn
	}
}

const qtyEpsilon = 1e-9

// DeductForSale decrements inventory for every line of the sale and records
// one stock movement per batch touched. Line items are processed in order;
// within a line, batches are consumed strictly oldest-received-first. The
// whole sale runs in one transaction, so a failure on any line leaves no
// partial deductions behind.
func (e *Engine) DeductForSale(ctx context.Context, sale Sale) (DeductionResult, error) {
	result := DeductionResult{Deductions: []Deduction{}}
	if len(sale.Lines) == 0 {
		return result, nil
	}

	for i, line := range sale.Lines {
		if line.Qty <= 0 {
			return DeductionResult{}, fmt.Errorf("line %d: %w", i, ErrInvalidQuantity)
		}
	}

	err := e.runner.WithSaleTx(ctx, func(ctx context.Context, tx SaleTx) error {
		for i, line := range sale.Lines {
			deds, err := e.deductLine(ctx, tx, sale, line)
			if err != nil {
				return fmt.Errorf("line %d: %w", i, err)
			}
			for _, d := range deds {
				result.Deductions = append(result.Deductions, d)
				result.TotalDeducted += d.QuantityDeducted
			}
		}
		return nil
	})
	if err != nil {
		return DeductionResult{}, err
	}
	return result, nil
}

func (e *Engine) deductLine(ctx context.Context, tx SaleTx, sale Sale, line SaleLine) ([]Deduction, error) {
	product, err := e.products.GetProduct(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}
	factor, ok := product.ConversionFactor(line.Unit)
	if !ok {
		if e.logger != nil {
			e.logger.Warn("sale line uses undeclared unit",
				slog.Int64("product_id", line.ProductID),
				slog.String("unit", line.Unit),
				slog.String("base_unit", product.BaseUnit))
		}
		return nil, fmt.Errorf("%w: %q for product %d", ErrUnknownUnit, line.Unit, line.ProductID)
	}
	needed := line.Qty * factor

	batches, err := tx.BatchesForUpdate(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}
	// Received timestamp ascending is the FIFO order and the only ordering
	// rule. Batch id is not a substitute tie-breaker.
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].ReceivedAt.Before(batches[j].ReceivedAt)
	})

	var available float64
	for _, b := range batches {
		available += b.Quantity
	}
	if needed > available+qtyEpsilon {
		return nil, &InsufficientStockError{ProductID: line.ProductID, Needed: needed, Available: available}
	}

	now := e.now().UTC()
	var deductions []Deduction
	remaining := needed
	for _, batch := range batches {
		if remaining <= qtyEpsilon {
			break
		}
		take := remaining
		if batch.Quantity < take {
			take = batch.Quantity
		}
		if take <= qtyEpsilon {
			continue
		}
		newQty := batch.Quantity - take
		if newQty < qtyEpsilon {
			newQty = 0
		}
		status := batch.Status
		if newQty == 0 {
			status = BatchStatusDepleted
		}
		updated, err := tx.UpdateBatchQuantity(ctx, batch.ID, newQty, batch.Quantity, status)
		if err != nil {
			return nil, err
		}
		movement := Movement{
			ProductID:   line.ProductID,
			WarehouseID: batch.WarehouseID,
			BatchID:     batch.ID,
			Type:        MovementTypeSale,
			Quantity:    take,
			RefCode:     sale.Code,
			UnitCost:    batch.UnitCost,
			OccurredAt:  now,
		}
		if _, err := tx.InsertMovement(ctx, movement); err != nil {
			return nil, err
		}
		deductions = append(deductions, Deduction{
			BatchID:          batch.ID,
			ProductID:        line.ProductID,
			QuantityDeducted: take,
			RemainingStock:   updated.Quantity,
		})
		remaining -= take
	}
	if remaining > qtyEpsilon {
		return nil, &InsufficientStockError{ProductID: line.ProductID, Needed: needed, Available: needed - remaining}
	}
	return deductions, nil
}
