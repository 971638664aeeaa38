package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"idbcrm/internal/followups/models"
	"idbcrm/internal/platform/middleware"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/platform/httputil"
	"idbcrm/pkg/requestcontext"
)

// Service defines the follow-up operations the handler exposes.
type Service interface {
	Create(ctx context.Context, actor scope.Actor, in models.CreateFollowUpInput) (*models.FollowUp, error)
	ListForLead(ctx context.Context, actor scope.Actor, leadID domain.LeadID) ([]*models.FollowUp, error)
	ListDue(ctx context.Context, actor scope.Actor, day time.Time) ([]*models.Due, error)
	Update(ctx context.Context, actor scope.Actor, id domain.FollowUpID, in models.UpdateFollowUpInput) (*models.FollowUp, error)
	Delete(ctx context.Context, actor scope.Actor, id domain.FollowUpID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts follow-up routes. r must already require authentication.
func (h *Handler) Register(r chi.Router) {
	r.Post("/followups", h.HandleCreate)
	r.Get("/followups/due", h.HandleListDue)
	r.Patch("/followups/{id}", h.HandleUpdate)
	r.Delete("/followups/{id}", h.HandleDelete)
	r.Get("/leads/{id}/followups", h.HandleListForLead)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.CreateFollowUpInput](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	f, err := h.service.Create(ctx, actor, *in)
	if err != nil {
		h.fail(ctx, w, "create follow-up", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, f)
}

// HandleListDue handles GET /followups/due?date=2006-01-02; the date defaults to today.
func (h *Handler) HandleListDue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	day := requestcontext.Now(ctx)
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, raw, day.Location())
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "date must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}
	due, err := h.service.ListDue(ctx, actor, day)
	if err != nil {
		h.fail(ctx, w, "list due follow-ups", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, due)
}

func (h *Handler) HandleListForLead(w http.ResponseWriter, r *http.Request) {
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
	out, err := h.service.ListForLead(ctx, actor, leadID)
	if err != nil {
		h.fail(ctx, w, "list follow-ups", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := domain.ParseFollowUpID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.UpdateFollowUpInput](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	f, err := h.service.Update(ctx, actor, id, *in)
	if err != nil {
		h.fail(ctx, w, "update follow-up", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, f)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := domain.ParseFollowUpID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(ctx, actor, id); err != nil {
		h.fail(ctx, w, "delete follow-up", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	h.logger.WarnContext(ctx, "failed to "+op,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
