package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idbcrm/internal/platform/middleware"
	"idbcrm/internal/scope"
	"idbcrm/internal/timeline/models"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/httputil"
	"idbcrm/pkg/requestcontext"
)

// Service is the read side of the timeline.
type Service interface {
	ListForLead(ctx context.Context, actor scope.Actor, leadID domain.LeadID, req models.PageRequest) (*models.Page, error)
}

// Handler serves a lead's timeline.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a timeline handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the timeline route. r must already require authentication.
func (h *Handler) Register(r chi.Router) {
	r.Get("/leads/{id}/timeline", h.HandleList)
}

// HandleList handles GET /leads/{id}/timeline?cursor=&limit=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	leadID, err := domain.ParseLeadID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, err := httputil.QueryInt(r, "limit", models.DefaultPageLimit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	page, err := h.service.ListForLead(ctx, actor, leadID, models.PageRequest{
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "failed to list timeline",
			"request_id", requestcontext.RequestID(ctx),
			"lead_id", leadID,
			"actor_id", actor.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}
