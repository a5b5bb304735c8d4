package orders

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// Reader is the order history facade the handler serves from.
type Reader interface {
	GetSalesOrders(ctx context.Context, forceRefresh bool) ([]SalesOrder, error)
	GetPurchaseOrders(ctx context.Context, forceRefresh bool) ([]PurchaseOrder, error)
}

// Handler serves order history to operator screens.
type Handler struct {
	logger *slog.Logger
	reader Reader
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, reader Reader) *Handler {
	return &Handler{logger: logger, reader: reader}
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sales", h.listSales)
	r.Get("/purchase", h.listPurchase)
}

type listResponse[T any] struct {
	Data       []T               `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func queryInt(r *http.Request, key string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(key))
	return v
}

func paginate[T any](r *http.Request, items []T) listResponse[T] {
	p := shared.NewPagination(queryInt(r, "page"), queryInt(r, "per_page"), len(items))
	from, to := p.Slice(len(items))
	page := items[from:to]
	if page == nil {
		page = []T{}
	}
	return listResponse[T]{Data: page, Pagination: p}
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.reader.GetSalesOrders(r.Context(), r.URL.Query().Get("refresh") == "1")
	if err != nil {
		h.logger.Error("sales order listing failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, paginate(r, sales))
}

func (h *Handler) listPurchase(w http.ResponseWriter, r *http.Request) {
	purchases, err := h.reader.GetPurchaseOrders(r.Context(), r.URL.Query().Get("refresh") == "1")
	if err != nil {
		h.logger.Error("purchase order listing failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, paginate(r, purchases))
}
