package inventory

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-pos/meridian-pos/internal/orders"
	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// SalesRecorder persists the sale header after a successful deduction.
type SalesRecorder interface {
	CreateSalesOrder(ctx context.Context, so orders.SalesOrder) (orders.SalesOrder, error)
}

// MovementReader lists the stock movement audit trail for a product.
type MovementReader interface {
	GetMovementsByProduct(ctx context.Context, productID int64, limit int) ([]Movement, error)
}

// Handler wires HTTP endpoints for the inventory core.
type Handler struct {
	logger    *slog.Logger
	engine    *Engine
	receipts  *Receipts
	tracker   *ExpiryTracker
	batches   BatchReader
	movements MovementReader
	sales     SalesRecorder
	validate  *validator.Validate
}

// NewHandler constructs the inventory handler.
func NewHandler(logger *slog.Logger, engine *Engine, receipts *Receipts, tracker *ExpiryTracker, batches BatchReader, movements MovementReader, sales SalesRecorder) *Handler {
	return &Handler{
		logger:    logger,
		engine:    engine,
		receipts:  receipts,
		tracker:   tracker,
		batches:   batches,
		movements: movements,
		sales:     sales,
		validate:  validator.New(),
	}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sales/deduct", h.handleDeduct)
	r.Post("/purchases/receive", h.handleReceive)
	r.Get("/inventory/batches", h.handleBatches)
	r.Get("/inventory/movements", h.handleMovements)
	r.Get("/inventory/expiry/{productID}", h.handleExpiry)
	r.Get("/inventory/low-stock", h.handleLowStock)
}

type saleLineRequest struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Qty       float64 `json:"qty" validate:"required,gt=0"`
	Unit      string  `json:"unit"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

type deductRequest struct {
	Code        string            `json:"code" validate:"required"`
	WarehouseID int64             `json:"warehouse_id" validate:"required,gt=0"`
	Lines       []saleLineRequest `json:"lines" validate:"dive"`
}

type deductResponse struct {
	Deductions    []Deduction `json:"deductions"`
	TotalDeducted float64     `json:"total_deducted"`
	SalesOrderID  int64       `json:"sales_order_id,omitempty"`
}

func (h *Handler) handleDeduct(w http.ResponseWriter, r *http.Request) {
	var req deductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	sale := Sale{Code: req.Code, WarehouseID: req.WarehouseID}
	var total float64
	for _, line := range req.Lines {
		sale.Lines = append(sale.Lines, SaleLine{
			ProductID: line.ProductID,
			Qty:       line.Qty,
			Unit:      line.Unit,
			UnitPrice: line.UnitPrice,
		})
		total += line.Qty * line.UnitPrice
	}

	result, err := h.engine.DeductForSale(r.Context(), sale)
	if err != nil {
		h.respondDeductionError(w, err)
		return
	}

	resp := deductResponse{Deductions: result.Deductions, TotalDeducted: result.TotalDeducted}
	if h.sales != nil && len(sale.Lines) > 0 {
		so := orders.SalesOrder{
			Code:        sale.Code,
			WarehouseID: sale.WarehouseID,
			Status:      orders.OrderStatusConfirmed,
			Total:       total,
			SoldAt:      h.engine.now().UTC(),
		}
		for _, line := range sale.Lines {
			so.Items = append(so.Items, orders.SalesOrderItem{
				ProductID: line.ProductID,
				Qty:       line.Qty,
				Unit:      line.Unit,
				UnitPrice: line.UnitPrice,
			})
		}
		created, err := h.sales.CreateSalesOrder(r.Context(), so)
		if err != nil {
			// The deduction is committed; losing the header is logged, not fatal.
			h.logger.Error("record sales order", slog.String("code", sale.Code), slog.Any("error", err))
		} else {
			resp.SalesOrderID = created.ID
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

type receiveRequest struct {
	ProductID   int64   `json:"product_id" validate:"required,gt=0"`
	WarehouseID int64   `json:"warehouse_id" validate:"required,gt=0"`
	SupplierID  int64   `json:"supplier_id"`
	BatchNumber string  `json:"batch_number" validate:"required"`
	Qty         float64 `json:"qty" validate:"required,gt=0"`
	UnitCost    float64 `json:"unit_cost" validate:"gte=0"`
	RefCode     string  `json:"ref_code" validate:"required"`
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	var req receiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	batch, err := h.receipts.ReceiveStock(r.Context(), ReceiptInput{
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		SupplierID:  req.SupplierID,
		BatchNumber: req.BatchNumber,
		Qty:         req.Qty,
		UnitCost:    req.UnitCost,
		RefCode:     req.RefCode,
	})
	if err != nil {
		if errors.Is(err, shared.ErrQueuedOffline) {
			httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
			return
		}
		h.respondDeductionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, batch)
}

func (h *Handler) handleBatches(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
	if err != nil || productID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "invalid product_id", "")
		return
	}
	force := r.URL.Query().Get("refresh") == "1"
	batches, err := h.batches.GetBatchesByProduct(r.Context(), productID, force)
	if err != nil {
		h.respondDeductionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, batches)
}

func (h *Handler) handleMovements(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
	if err != nil || productID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "invalid product_id", "")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	movements, err := h.movements.GetMovementsByProduct(r.Context(), productID, limit)
	if err != nil {
		h.respondDeductionError(w, err)
		return
	}
	if movements == nil {
		movements = []Movement{}
	}
	httpx.JSON(w, http.StatusOK, movements)
}

func (h *Handler) handleExpiry(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "invalid product id", "")
		return
	}
	summary, err := h.tracker.Summary(r.Context(), productID)
	if err != nil {
		h.respondDeductionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	entries, err := h.receipts.LowStock(r.Context(), r.URL.Query().Get("refresh") == "1")
	if err != nil {
		h.respondDeductionError(w, err)
		return
	}
	if entries == nil {
		entries = []LowStockEntry{}
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) respondDeductionError(w http.ResponseWriter, err error) {
	var insufficient *InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		httpx.JSON(w, http.StatusConflict, map[string]any{
			"error":      "insufficient stock",
			"product_id": insufficient.ProductID,
			"needed":     insufficient.Needed,
			"available":  insufficient.Available,
			"shortfall":  insufficient.Shortfall(),
		})
	case errors.Is(err, ErrUnknownUnit):
		httpx.Problem(w, http.StatusUnprocessableEntity, "unknown unit of measure", err.Error())
	case errors.Is(err, ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "invalid quantity", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "not found", err.Error())
	case errors.Is(err, shared.ErrConflict):
		httpx.Problem(w, http.StatusConflict, "concurrent update", err.Error())
	case errors.Is(err, shared.ErrGatewayUnavailable):
		httpx.Problem(w, http.StatusServiceUnavailable, "remote store unavailable", err.Error())
	default:
		h.logger.Error("inventory request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "internal error", "")
	}
}
