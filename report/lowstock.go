package report

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/inventory"
	"github.com/meridian-pos/meridian-pos/web"
)

var lowStockTmpl = template.Must(template.ParseFS(web.Templates, "templates/lowstock.html"))

// LowStockReader lists products at or below their minimum stock level.
type LowStockReader interface {
	GetLowStock(ctx context.Context, forceRefresh bool) ([]inventory.LowStockEntry, error)
}

// Handler serves rendered reports.
type Handler struct {
	client   *Client
	lowStock LowStockReader
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandler constructs the report handler.
func NewHandler(client *Client, lowStock LowStockReader, logger *slog.Logger) *Handler {
	return &Handler{client: client, lowStock: lowStock, logger: logger, now: time.Now}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	r.Get("/low-stock.pdf", h.lowStockPDF)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

type lowStockRow struct {
	ProductName   string
	TotalStock    float64
	MinStockLevel float64
	Shortage      float64
}

type lowStockView struct {
	GeneratedAt time.Time
	Entries     []lowStockRow
}

func (h *Handler) lowStockPDF(w http.ResponseWriter, r *http.Request) {
	entries, err := h.lowStock.GetLowStock(r.Context(), r.URL.Query().Get("refresh") == "1")
	if err != nil {
		h.logger.Error("low stock report read", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	view := lowStockView{GeneratedAt: h.now().UTC(), Entries: make([]lowStockRow, 0, len(entries))}
	for _, e := range entries {
		shortage := e.MinStockLevel - e.TotalStock
		if shortage < 0 {
			shortage = 0
		}
		view.Entries = append(view.Entries, lowStockRow{
			ProductName:   e.ProductName,
			TotalStock:    e.TotalStock,
			MinStockLevel: e.MinStockLevel,
			Shortage:      shortage,
		})
	}

	var html bytes.Buffer
	if err := lowStockTmpl.Execute(&html, view); err != nil {
		h.logger.Error("low stock report render", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	pdf, err := h.client.RenderHTML(r.Context(), html.Bytes())
	if err != nil {
		h.logger.Error("low stock report convert", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename=low-stock.pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
