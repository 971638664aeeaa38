package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"idbcrm/internal/applications/models"
	"idbcrm/internal/platform/middleware"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/platform/httputil"
	"idbcrm/pkg/requestcontext"
)

const (
	multipartMemory = 32 << 20
	maxUploadBytes  = models.MaxFilesPerRequest*models.MaxFileBytes + 1<<20
)

// Service defines the application operations the handler exposes.
type Service interface {
	Get(ctx context.Context, actor scope.Actor, leadID domain.LeadID) (*models.Detail, error)
	UpdatePersonal(ctx context.Context, actor scope.Actor, leadID domain.LeadID, in models.PersonalInput) (*models.Detail, error)
	UpdatePreferences(ctx context.Context, actor scope.Actor, leadID domain.LeadID, in models.PreferencesInput) (*models.Detail, error)
	UpdateVisa(ctx context.Context, actor scope.Actor, leadID domain.LeadID, in models.VisaInput) (*models.Detail, error)
	UpdateEducation(ctx context.Context, actor scope.Actor, leadID domain.LeadID, in models.EducationInput) (*models.Detail, error)
	UpdateTests(ctx context.Context, actor scope.Actor, leadID domain.LeadID, in models.TestsInput) (*models.Detail, error)
	UpdateWorkExperience(ctx context.Context, actor scope.Actor, leadID domain.LeadID, in models.WorkExperienceInput) (*models.Detail, error)
	UpdateDocuments(ctx context.Context, actor scope.Actor, leadID domain.LeadID, files []models.File) (*models.Detail, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts application routes. r must already require authentication.
func (h *Handler) Register(r chi.Router) {
	r.Route("/applications/{leadId}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Patch("/personal", h.HandleUpdatePersonal)
		r.Patch("/preferences", h.HandleUpdatePreferences)
		r.Patch("/visa", h.HandleUpdateVisa)
		r.Patch("/education", h.HandleUpdateEducation)
		r.Patch("/tests", h.HandleUpdateTests)
		r.Patch("/work-experience", h.HandleUpdateWorkExperience)
		r.Patch("/documents", h.HandleUpdateDocuments)
	})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	leadID, err := domain.ParseLeadID(chi.URLParam(r, "leadId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	detail, err := h.service.Get(ctx, actor, leadID)
	if err != nil {
		h.fail(ctx, w, "get application", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) HandleUpdatePersonal(w http.ResponseWriter, r *http.Request) {
	handleSection(h, w, r, "update personal details", h.service.UpdatePersonal)
}

func (h *Handler) HandleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	handleSection(h, w, r, "update preferences", h.service.UpdatePreferences)
}

func (h *Handler) HandleUpdateVisa(w http.ResponseWriter, r *http.Request) {
	handleSection(h, w, r, "update visa details", h.service.UpdateVisa)
}

func (h *Handler) HandleUpdateEducation(w http.ResponseWriter, r *http.Request) {
	handleSection(h, w, r, "update education", h.service.UpdateEducation)
}

func (h *Handler) HandleUpdateTests(w http.ResponseWriter, r *http.Request) {
	handleSection(h, w, r, "update tests", h.service.UpdateTests)
}

func (h *Handler) HandleUpdateWorkExperience(w http.ResponseWriter, r *http.Request) {
	handleSection(h, w, r, "update work experience", h.service.UpdateWorkExperience)
}

// HandleUpdateDocuments accepts multipart/form-data whose field names are
// document slots. List slots may repeat.
func (h *Handler) HandleUpdateDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	leadID, err := domain.ParseLeadID(chi.URLParam(r, "leadId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	files, err := readFiles(w, r)
	if err != nil {
		h.fail(ctx, w, "read documents", err)
		return
	}
	detail, err := h.service.UpdateDocuments(ctx, actor, leadID, files)
	if err != nil {
		h.fail(ctx, w, "update documents", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

type sectionUpdate[T any] func(ctx context.Context, actor scope.Actor, leadID domain.LeadID, in T) (*models.Detail, error)

func handleSection[T any](h *Handler, w http.ResponseWriter, r *http.Request, op string, update sectionUpdate[T]) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	leadID, err := domain.ParseLeadID(chi.URLParam(r, "leadId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, ok := httputil.DecodeAndPrepare[T](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	detail, err := update(ctx, actor, leadID, *in)
	if err != nil {
		h.fail(ctx, w, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

func readFiles(w http.ResponseWriter, r *http.Request) ([]models.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, dErrors.New(dErrors.CodeValidation, "upload is too large")
		}
		return nil, dErrors.New(dErrors.CodeBadRequest, "expected multipart/form-data")
	}
	form := r.MultipartForm
	for field := range form.File {
		if !models.Slot(field).IsValid() {
			return nil, dErrors.Newf(dErrors.CodeValidation, "unknown document field %q", field)
		}
	}
	var files []models.File
	for _, slot := range models.Slots {
		headers := form.File[string(slot)]
		if !slot.IsList() && len(headers) > 1 {
			return nil, dErrors.Newf(dErrors.CodeValidation, "%s accepts a single file", slot)
		}
		for _, fh := range headers {
			if fh.Size > models.MaxFileBytes {
				return nil, dErrors.Newf(dErrors.CodeValidation, "%s exceeds %d bytes", slot, models.MaxFileBytes)
			}
			f, err := fh.Open()
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable upload")
			}
			body, err := io.ReadAll(io.LimitReader(f, models.MaxFileBytes+1))
			f.Close()
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable upload")
			}
			files = append(files, models.File{
				Slot:        slot,
				Filename:    fh.Filename,
				ContentType: contentType(fh.Header.Get("Content-Type"), body),
				Body:        body,
			})
		}
	}
	return files, nil
}

var genericTypes = []string{"", "application/octet-stream"}

func contentType(declared string, body []byte) string {
	if !slices.Contains(genericTypes, declared) {
		return declared
	}
	return http.DetectContentType(body)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	h.logger.WarnContext(ctx, "failed to "+op,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
