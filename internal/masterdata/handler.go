package masterdata

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// Catalog is the read facade the handler serves from.
type Catalog interface {
	GetProducts(ctx context.Context, forceRefresh bool) ([]Product, error)
	GetWarehouses(ctx context.Context, forceRefresh bool) ([]Warehouse, error)
	GetSuppliers(ctx context.Context, forceRefresh bool) ([]Supplier, error)
}

// Handler serves catalog reads to the POS screens.
type Handler struct {
	logger  *slog.Logger
	catalog Catalog
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, catalog Catalog) *Handler {
	return &Handler{logger: logger, catalog: catalog}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/warehouses", h.listWarehouses)
	r.Get("/suppliers", h.listSuppliers)
}

func forceRefresh(r *http.Request) bool {
	return r.URL.Query().Get("refresh") == "1"
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.GetProducts(r.Context(), forceRefresh(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) listWarehouses(w http.ResponseWriter, r *http.Request) {
	warehouses, err := h.catalog.GetWarehouses(r.Context(), forceRefresh(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, warehouses)
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.catalog.GetSuppliers(r.Context(), forceRefresh(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, suppliers)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, shared.ErrGatewayUnavailable) {
		h.logger.Error("catalog request failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
