package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idbcrm/internal/partners/models"
	"idbcrm/internal/platform/middleware"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/httputil"
	"idbcrm/pkg/requestcontext"
)

// Service defines the partner operations the handler exposes.
type Service interface {
	Create(ctx context.Context, actor scope.Actor, in models.CreatePartnerInput) (*models.Partner, error)
	Get(ctx context.Context, actor scope.Actor, id domain.PartnerID) (*models.Partner, error)
	List(ctx context.Context, actor scope.Actor) ([]*models.Partner, error)
	Update(ctx context.Context, actor scope.Actor, id domain.PartnerID, in models.UpdatePartnerInput) (*models.Partner, error)
}

// Handler serves /partners.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a partner handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts partner routes. Creation is admin-only at the router.
func (h *Handler) Register(r chi.Router) {
	r.With(middleware.RequireAdmin(h.logger)).Post("/partners", h.HandleCreate)
	r.Get("/partners", h.HandleList)
	r.Get("/partners/{id}", h.HandleGet)
	r.Patch("/partners/{id}", h.HandleUpdate)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.CreatePartnerInput](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	p, err := h.service.Create(ctx, actor, *in)
	if err != nil {
		h.fail(ctx, w, "create partner", actor, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	partners, err := h.service.List(ctx, actor)
	if err != nil {
		h.fail(ctx, w, "list partners", actor, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, partners)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := domain.ParsePartnerID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.Get(ctx, actor, id)
	if err != nil {
		h.fail(ctx, w, "get partner", actor, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := domain.ParsePartnerID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.UpdatePartnerInput](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	p, err := h.service.Update(ctx, actor, id, *in)
	if err != nil {
		h.fail(ctx, w, "update partner", actor, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, actor scope.Actor, err error) {
	h.logger.WarnContext(ctx, "failed to "+op,
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", actor.ID,
		"error", err,
	)
	httputil.WriteError(w, err)
}
