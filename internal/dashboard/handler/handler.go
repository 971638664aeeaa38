package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idbcrm/internal/dashboard/models"
	"idbcrm/internal/platform/middleware"
	"idbcrm/internal/scope"
	"idbcrm/pkg/platform/httputil"
	"idbcrm/pkg/requestcontext"
)

type Service interface {
	Stats(ctx context.Context, actor scope.Actor) (*models.Stats, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/dashboard/stats", h.HandleStats)
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	st, err := h.service.Stats(ctx, actor)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to load dashboard stats",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}
