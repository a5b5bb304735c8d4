package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/inventory"
	"github.com/meridian-pos/meridian-pos/internal/masterdata"
	"github.com/meridian-pos/meridian-pos/internal/offline"
	"github.com/meridian-pos/meridian-pos/internal/orders"
	"github.com/meridian-pos/meridian-pos/jobs"
	"github.com/meridian-pos/meridian-pos/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	InventoryHandler  *inventory.Handler
	MasterDataHandler *masterdata.Handler
	OrdersHandler     *orders.Handler
	OfflineHandler    *offline.Handler
	JobHandler        *jobs.Handler
	ReportHandler     *report.Handler
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		if params.InventoryHandler != nil {
			params.InventoryHandler.MountRoutes(r)
		}
		if params.MasterDataHandler != nil {
			params.MasterDataHandler.MountRoutes(r)
		}
		if params.OrdersHandler != nil {
			r.Route("/orders", func(r chi.Router) {
				params.OrdersHandler.MountRoutes(r)
			})
		}
		if params.OfflineHandler != nil {
			r.Route("/offline", func(r chi.Router) {
				params.OfflineHandler.MountRoutes(r)
			})
		}
		if params.JobHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				params.JobHandler.MountRoutes(r)
			})
		}
		if params.ReportHandler != nil {
			r.Route("/reports", func(r chi.Router) {
				params.ReportHandler.MountRoutes(r)
			})
		}
	})

	return r
}
