package orders

import "time"

// OrderStatus enumerates purchase and sales order states.
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusReceived  OrderStatus = "received"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PurchaseOrderItem is one line of a purchase order.
type PurchaseOrderItem struct {
	ProductID int64   `json:"product_id"`
	Qty       float64 `json:"qty"`
	UnitCost  float64 `json:"unit_cost"`
}

// PurchaseOrder models an order placed with a supplier.
type PurchaseOrder struct {
	ID          int64               `json:"id"`
	Code        string              `json:"code"`
	SupplierID  int64               `json:"supplier_id"`
	WarehouseID int64               `json:"warehouse_id"`
	Status      OrderStatus         `json:"status"`
	Items       []PurchaseOrderItem `json:"items"`
	Total       float64             `json:"total"`
	OrderedAt   time.Time           `json:"ordered_at"`
	CreatedAt   time.Time           `json:"created_at"`
}

// SalesOrderItem is one line of a sales order.
type SalesOrderItem struct {
	ProductID int64   `json:"product_id"`
	Qty       float64 `json:"qty"`
	Unit      string  `json:"unit"`
	UnitPrice float64 `json:"unit_price"`
}

// SalesOrder models a completed POS sale.
type SalesOrder struct {
	ID          int64            `json:"id"`
	Code        string           `json:"code"`
	WarehouseID int64            `json:"warehouse_id"`
	Status      OrderStatus      `json:"status"`
	Items       []SalesOrderItem `json:"items"`
	Total       float64          `json:"total"`
	SoldAt      time.Time        `json:"sold_at"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Payable is the single accounting record created when stock is received
// against a supplier invoice.
type Payable struct {
	ID         int64     `json:"id"`
	SupplierID int64     `json:"supplier_id"`
	RefCode    string    `json:"ref_code"`
	Amount     float64   `json:"amount"`
	DueDate    time.Time `json:"due_date"`
	CreatedAt  time.Time `json:"created_at"`
}
