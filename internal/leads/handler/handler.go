package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idbcrm/internal/leads/models"
	"idbcrm/internal/platform/middleware"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/httputil"
	"idbcrm/pkg/requestcontext"
)

// Service defines the lead operations the handler exposes.
type Service interface {
	Create(ctx context.Context, actor scope.Actor, in models.CreateLeadInput) (*models.Lead, error)
	Get(ctx context.Context, actor scope.Actor, id domain.LeadID) (*models.Lead, error)
	List(ctx context.Context, actor scope.Actor, f models.ListFilter) (*models.ListResult, error)
	Update(ctx context.Context, actor scope.Actor, id domain.LeadID, in models.UpdateLeadInput) (*models.Lead, error)
	BulkUpdateStatus(ctx context.Context, actor scope.Actor, in models.BulkStatusInput) (int, error)
}

// Handler serves /leads.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a lead handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts lead routes. r must already require authentication.
func (h *Handler) Register(r chi.Router) {
	r.Get("/leads", h.HandleList)
	r.Post("/leads", h.HandleCreate)
	r.Post("/leads/bulk-status", h.HandleBulkStatus)
	r.Get("/leads/{id}", h.HandleGet)
	r.Patch("/leads/{id}", h.HandleUpdate)
}

type bulkStatusResponse struct {
	Updated int `json:"updated"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.CreateLeadInput](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	lead, err := h.service.Create(ctx, actor, *in)
	if err != nil {
		h.fail(ctx, w, "create lead", actor, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, lead)
}

// HandleList handles GET /leads?status=&search=&assigned_to=&type=&limit=&offset=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	f, err := parseListFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.List(ctx, actor, f)
	if err != nil {
		h.fail(ctx, w, "list leads", actor, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := domain.ParseLeadID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	lead, err := h.service.Get(ctx, actor, id)
	if err != nil {
		h.fail(ctx, w, "get lead", actor, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, lead)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := domain.ParseLeadID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.UpdateLeadInput](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	lead, err := h.service.Update(ctx, actor, id, *in)
	if err != nil {
		h.fail(ctx, w, "update lead", actor, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, lead)
}

func (h *Handler) HandleBulkStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.BulkStatusInput](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	n, err := h.service.BulkUpdateStatus(ctx, actor, *in)
	if err != nil {
		h.fail(ctx, w, "bulk update lead status", actor, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bulkStatusResponse{Updated: n})
}

func parseListFilter(r *http.Request) (models.ListFilter, error) {
	q := r.URL.Query()
	f := models.ListFilter{Search: q.Get("search")}
	for _, raw := range httputil.QueryList(r, "status") {
		st, err := models.ParseStatus(raw)
		if err != nil {
			return f, err
		}
		f.Statuses = append(f.Statuses, st)
	}
	if raw := q.Get("assigned_to"); raw != "" {
		id, err := domain.ParsePartnerID(raw)
		if err != nil {
			return f, err
		}
		f.AssignedTo = &id
	}
	if raw := q.Get("type"); raw != "" {
		f.Type = models.Type(raw)
	}
	var err error
	if f.Limit, err = httputil.QueryInt(r, "limit", models.DefaultListLimit); err != nil {
		return f, err
	}
	if f.Offset, err = httputil.QueryInt(r, "offset", 0); err != nil {
		return f, err
	}
	return f, nil
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, actor scope.Actor, err error) {
	h.logger.WarnContext(ctx, "failed to "+op,
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", actor.ID,
		"error", err,
	)
	httputil.WriteError(w, err)
}
