package inventory

import (
	"errors"
	"fmt"
	"time"
)

// BatchStatus enumerates inventory batch states.
type BatchStatus string

const (
	// BatchStatusActive marks a batch that still holds sellable stock.
	BatchStatusActive BatchStatus = "active"
	// BatchStatusExpired marks a batch past its expiry date.
	BatchStatusExpired BatchStatus = "expired"
	// BatchStatusDepleted marks a batch whose quantity reached zero.
	BatchStatusDepleted BatchStatus = "depleted"
	// BatchStatusCancelled marks a batch voided by an operator.
	BatchStatusCancelled BatchStatus = "cancelled"
)

// Batch is a discrete receipt of stock for one product at one warehouse.
// Batches are never deleted, only decremented or transitioned out of active.
type Batch struct {
	ID          int64       `json:"id"`
	ProductID   int64       `json:"product_id"`
	WarehouseID int64       `json:"warehouse_id"`
	BatchNumber string      `json:"batch_number"`
	Quantity    float64     `json:"quantity"`
	UnitCost    float64     `json:"unit_cost"`
	ReceivedAt  time.Time   `json:"received_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
	Status      BatchStatus `json:"status"`
}

// MovementType enumerates stock movement causes.
type MovementType string

const (
	MovementTypeSale       MovementType = "sale"
	MovementTypePurchase   MovementType = "purchase"
	MovementTypeAdjustment MovementType = "adjustment"
)

// Movement is one append-only audit record per batch touched.
type Movement struct {
	ID          int64        `json:"id"`
	ProductID   int64        `json:"product_id"`
	WarehouseID int64        `json:"warehouse_id"`
	BatchID     int64        `json:"batch_id"`
	Type        MovementType `json:"type"`
	Quantity    float64      `json:"quantity"`
	RefCode     string       `json:"ref_code"`
	UnitCost    float64      `json:"unit_cost"`
	OccurredAt  time.Time    `json:"occurred_at"`
}

// SaleLine is a read-only input line of a sale.
type SaleLine struct {
	ProductID int64   `json:"product_id"`
	Qty       float64 `json:"qty"`
	Unit      string  `json:"unit"`
	UnitPrice float64 `json:"unit_price"`
}

// Sale carries everything the deduction engine needs from the sale screen.
type Sale struct {
	Code        string     `json:"code"`
	WarehouseID int64      `json:"warehouse_id"`
	Lines       []SaleLine `json:"lines"`
	SoldAt      time.Time  `json:"sold_at"`
}

// Deduction reports one batch decrement performed for a sale.
type Deduction struct {
	BatchID          int64   `json:"batch_id"`
	ProductID        int64   `json:"product_id"`
	QuantityDeducted float64 `json:"quantity_deducted"`
	RemainingStock   float64 `json:"remaining_stock"`
}

// DeductionResult is the engine's success output.
type DeductionResult struct {
	Deductions    []Deduction `json:"deductions"`
	TotalDeducted float64     `json:"total_deducted"`
}

// ReceiptInput describes one purchase receipt line turned into a batch.
type ReceiptInput struct {
	ProductID   int64     `json:"product_id"`
	WarehouseID int64     `json:"warehouse_id"`
	SupplierID  int64     `json:"supplier_id"`
	BatchNumber string    `json:"batch_number"`
	Qty         float64   `json:"qty"`
	UnitCost    float64   `json:"unit_cost"`
	RefCode     string    `json:"ref_code"`
	ReceivedAt  time.Time `json:"received_at"`
}

// ExpirySummary is a read-side snapshot over a product's batches.
type ExpirySummary struct {
	ProductID        int64     `json:"product_id"`
	TotalStock       float64   `json:"total_stock"`
	ActiveBatches    int       `json:"active_batches"`
	ExpiredBatches   int       `json:"expired_batches"`
	ExpiringSoon     int       `json:"expiring_soon"`
	EarliestReceived time.Time `json:"earliest_received"`
	LatestReceived   time.Time `json:"latest_received"`
	AverageBatchAge  float64   `json:"average_batch_age_days"`
}

// LowStockEntry flags a product at or below its minimum stock level.
type LowStockEntry struct {
	ProductID     int64   `json:"product_id"`
	ProductName   string  `json:"product_name"`
	TotalStock    float64 `json:"total_stock"`
	MinStockLevel float64 `json:"min_stock_level"`
}

// ErrInvalidQuantity indicates a non-positive requested quantity.
var ErrInvalidQuantity = errors.New("inventory: quantity must be positive")

// ErrUnknownUnit indicates a sale line unit the product does not declare.
// The line fails outright rather than guessing a 1:1 conversion.
var ErrUnknownUnit = errors.New("inventory: unknown unit of measure")

// InsufficientStockError reports a FIFO walk that exhausted all active
// batches before covering the requested quantity.
type InsufficientStockError struct {
	ProductID int64
	Needed    float64
	Available float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for product %d: need %.3f, available %.3f",
		e.ProductID, e.Needed, e.Available)
}

// Shortfall returns the missing quantity in base units.
func (e *InsufficientStockError) Shortfall() float64 {
	return e.Needed - e.Available
}
