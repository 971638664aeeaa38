package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idbcrm/internal/announcements/models"
	"idbcrm/internal/platform/middleware"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/httputil"
	"idbcrm/pkg/requestcontext"
)

// Service defines the announcement operations the handler exposes.
type Service interface {
	Create(ctx context.Context, actor scope.Actor, in models.CreateAnnouncementInput) (*models.Announcement, error)
	List(ctx context.Context, actor scope.Actor, includeInactive bool) ([]*models.View, error)
	UnreadCount(ctx context.Context, actor scope.Actor) (int, error)
	Get(ctx context.Context, actor scope.Actor, id domain.AnnouncementID) (*models.View, error)
	MarkRead(ctx context.Context, actor scope.Actor, id domain.AnnouncementID) (*models.View, error)
	Update(ctx context.Context, actor scope.Actor, id domain.AnnouncementID, in models.UpdateAnnouncementInput) (*models.Announcement, error)
	Delete(ctx context.Context, actor scope.Actor, id domain.AnnouncementID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts announcement routes; mutations require an admin.
func (h *Handler) Register(r chi.Router) {
	r.Get("/announcements", h.HandleList)
	r.Get("/announcements/unread-count", h.HandleUnreadCount)
	r.Get("/announcements/{id}", h.HandleGet)
	r.Post("/announcements/{id}/mark-read", h.HandleMarkRead)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(h.logger))
		r.Post("/announcements", h.HandleCreate)
		r.Patch("/announcements/{id}", h.HandleUpdate)
		r.Delete("/announcements/{id}", h.HandleDelete)
	})
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.CreateAnnouncementInput](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	a, err := h.service.Create(ctx, actor, *in)
	if err != nil {
		h.fail(ctx, w, "create announcement", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	items, err := h.service.List(ctx, actor, httputil.QueryBool(r, "include_inactive"))
	if err != nil {
		h.fail(ctx, w, "list announcements", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) HandleUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	n, err := h.service.UnreadCount(ctx, actor)
	if err != nil {
		h.fail(ctx, w, "count unread announcements", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"unread_count": n})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := domain.ParseAnnouncementID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	v, err := h.service.Get(ctx, actor, id)
	if err != nil {
		h.fail(ctx, w, "get announcement", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := domain.ParseAnnouncementID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	v, err := h.service.MarkRead(ctx, actor, id)
	if err != nil {
		h.fail(ctx, w, "mark announcement read", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := domain.ParseAnnouncementID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.UpdateAnnouncementInput](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	a, err := h.service.Update(ctx, actor, id, *in)
	if err != nil {
		h.fail(ctx, w, "update announcement", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := domain.ParseAnnouncementID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(ctx, actor, id); err != nil {
		h.fail(ctx, w, "delete announcement", err)
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
