package offline

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
)

// Handler exposes the offline queue to operators.
type Handler struct {
	logger  *slog.Logger
	queue   *Queue
	applier Applier
}

// NewHandler constructs the offline queue handler.
func NewHandler(logger *slog.Logger, queue *Queue, applier Applier) *Handler {
	return &Handler{logger: logger, queue: queue, applier: applier}
}

// MountRoutes registers offline queue routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/pending", h.listPending)
	r.Get("/actions", h.listAll)
	r.Post("/sync", h.sync)
	r.Post("/{id}/requeue", h.requeue)
	r.Post("/completed/purge", h.purgeCompleted)
}

func (h *Handler) listPending(w http.ResponseWriter, r *http.Request) {
	actions, err := h.queue.ListPending(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	if actions == nil {
		actions = []Action{}
	}
	httpx.JSON(w, http.StatusOK, actions)
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	actions, err := h.queue.List(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	if actions == nil {
		actions = []Action{}
	}
	httpx.JSON(w, http.StatusOK, actions)
}

func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	report, err := h.queue.Sync(r.Context(), h.applier)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) requeue(w http.ResponseWriter, r *http.Request) {
	action, err := h.queue.Requeue(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrActionNotFound) {
			httpx.Problem(w, http.StatusNotFound, "action not found", "")
			return
		}
		httpx.Problem(w, http.StatusConflict, "cannot requeue", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, action)
}

func (h *Handler) purgeCompleted(w http.ResponseWriter, r *http.Request) {
	removed, err := h.queue.ClearCompleted(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	h.logger.Error("offline queue request failed", slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "internal error", "")
}
