package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idbcrm/internal/notes/models"
	"idbcrm/internal/platform/middleware"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/httputil"
	"idbcrm/pkg/requestcontext"
)

// Service defines the note operations the handler exposes.
type Service interface {
	Create(ctx context.Context, actor scope.Actor, in models.CreateNoteInput) (*models.Note, error)
	ListForLead(ctx context.Context, actor scope.Actor, leadID domain.LeadID) ([]*models.Note, error)
	Update(ctx context.Context, actor scope.Actor, id domain.NoteID, in models.UpdateNoteInput) (*models.Note, error)
	Delete(ctx context.Context, actor scope.Actor, id domain.NoteID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts note routes. r must already require authentication.
func (h *Handler) Register(r chi.Router) {
	r.Post("/notes", h.HandleCreate)
	r.Patch("/notes/{id}", h.HandleUpdate)
	r.Delete("/notes/{id}", h.HandleDelete)
	r.Get("/leads/{id}/notes", h.HandleListForLead)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.CreateNoteInput](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	note, err := h.service.Create(ctx, actor, *in)
	if err != nil {
		h.fail(ctx, w, "create note", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, note)
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
	notes, err := h.service.ListForLead(ctx, actor, leadID)
	if err != nil {
		h.fail(ctx, w, "list notes", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, notes)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := domain.ParseNoteID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.UpdateNoteInput](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	note, err := h.service.Update(ctx, actor, id, *in)
	if err != nil {
		h.fail(ctx, w, "update note", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, note)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := domain.ParseNoteID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(ctx, actor, id); err != nil {
		h.fail(ctx, w, "delete note", err)
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
