package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idbcrm/internal/branches/models"
	"idbcrm/internal/platform/middleware"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/httputil"
	"idbcrm/pkg/requestcontext"
)

// Service defines the branch operations the handler exposes.
type Service interface {
	Create(ctx context.Context, actor scope.Actor, in models.CreateBranchInput) (*models.Branch, error)
	List(ctx context.Context) ([]*models.Branch, error)
	Get(ctx context.Context, id domain.BranchID) (*models.Detail, error)
	Update(ctx context.Context, actor scope.Actor, id domain.BranchID, in models.UpdateBranchInput) (*models.Branch, error)
	Delete(ctx context.Context, actor scope.Actor, id domain.BranchID) error
}

// Handler serves /branches.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a branch handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts branch routes; mutations require an admin.
func (h *Handler) Register(r chi.Router) {
	r.Get("/branches", h.HandleList)
	r.Get("/branches/{id}", h.HandleGet)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(h.logger))
		r.Post("/branches", h.HandleCreate)
		r.Patch("/branches/{id}", h.HandleUpdate)
		r.Delete("/branches/{id}", h.HandleDelete)
	})
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.CreateBranchInput](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	b, err := h.service.Create(ctx, actor, *in)
	if err != nil {
		h.fail(ctx, w, "create branch", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, b)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	branches, err := h.service.List(ctx)
	if err != nil {
		h.fail(ctx, w, "list branches", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, branches)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseBranchID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.Get(ctx, id)
	if err != nil {
		h.fail(ctx, w, "get branch", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := domain.ParseBranchID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.UpdateBranchInput](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	b, err := h.service.Update(ctx, actor, id, *in)
	if err != nil {
		h.fail(ctx, w, "update branch", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := domain.ParseBranchID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(ctx, actor, id); err != nil {
		h.fail(ctx, w, "delete branch", err)
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
