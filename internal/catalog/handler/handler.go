package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idbcrm/internal/catalog/models"
	"idbcrm/internal/platform/middleware"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/platform/httputil"
	"idbcrm/pkg/requestcontext"
)

// Service defines the catalog operations the handler exposes.
type Service interface {
	CreateCountry(ctx context.Context, actor scope.Actor, in models.CreateCountryInput) (*models.Country, error)
	ListCountries(ctx context.Context) ([]*models.Country, error)
	GetCountry(ctx context.Context, id domain.CountryID) (*models.CountryDetail, error)
	UpdateCountry(ctx context.Context, actor scope.Actor, id domain.CountryID, in models.UpdateCountryInput) (*models.Country, error)
	DeleteCountry(ctx context.Context, actor scope.Actor, id domain.CountryID) error

	CreateUniversity(ctx context.Context, actor scope.Actor, in models.CreateUniversityInput) (*models.University, error)
	ListUniversities(ctx context.Context, countryID *domain.CountryID) ([]*models.University, error)
	GetUniversity(ctx context.Context, id domain.UniversityID) (*models.UniversityDetail, error)
	UpdateUniversity(ctx context.Context, actor scope.Actor, id domain.UniversityID, in models.UpdateUniversityInput) (*models.University, error)
	DeleteUniversity(ctx context.Context, actor scope.Actor, id domain.UniversityID) error

	CreateCourse(ctx context.Context, actor scope.Actor, in models.CreateCourseInput) (*models.Course, error)
	SearchCourses(ctx context.Context, f models.CourseFilter) ([]*models.Course, error)
	GetCourse(ctx context.Context, id domain.CourseID) (*models.Course, error)
	UpdateCourse(ctx context.Context, actor scope.Actor, id domain.CourseID, in models.UpdateCourseInput) (*models.Course, error)
	DeleteCourse(ctx context.Context, actor scope.Actor, id domain.CourseID) error
	FilterOptions(ctx context.Context) (*models.FilterOptions, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the catalog routes served without authentication.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/countries", h.HandleListCountries)
}

// Register mounts the authenticated catalog routes; mutations require an admin.
func (h *Handler) Register(r chi.Router) {
	r.Get("/countries/{id}", h.HandleGetCountry)
	r.Get("/universities", h.HandleListUniversities)
	r.Get("/universities/{id}", h.HandleGetUniversity)
	r.Get("/courses", h.HandleSearchCourses)
	r.Get("/courses/filter-options", h.HandleFilterOptions)
	r.Get("/courses/{id}", h.HandleGetCourse)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(h.logger))
		r.Post("/countries", h.HandleCreateCountry)
		r.Patch("/countries/{id}", h.HandleUpdateCountry)
		r.Delete("/countries/{id}", h.HandleDeleteCountry)
		r.Post("/universities", h.HandleCreateUniversity)
		r.Patch("/universities/{id}", h.HandleUpdateUniversity)
		r.Delete("/universities/{id}", h.HandleDeleteUniversity)
		r.Post("/courses", h.HandleCreateCourse)
		r.Patch("/courses/{id}", h.HandleUpdateCourse)
		r.Delete("/courses/{id}", h.HandleDeleteCourse)
	})
}

func (h *Handler) HandleListCountries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	countries, err := h.service.ListCountries(ctx)
	if err != nil {
		h.fail(ctx, w, "list countries", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, countries)
}

func (h *Handler) HandleGetCountry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseCountryID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.GetCountry(ctx, id)
	if err != nil {
		h.fail(ctx, w, "get country", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleCreateCountry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.CreateCountryInput](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.CreateCountry(ctx, actor, *in)
	if err != nil {
		h.fail(ctx, w, "create country", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) HandleUpdateCountry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := domain.ParseCountryID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.UpdateCountryInput](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.UpdateCountry(ctx, actor, id, *in)
	if err != nil {
		h.fail(ctx, w, "update country", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleDeleteCountry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := domain.ParseCountryID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteCountry(ctx, actor, id); err != nil {
		h.fail(ctx, w, "delete country", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleListUniversities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var countryID *domain.CountryID
	if raw := r.URL.Query().Get("country_id"); raw != "" {
		id, err := domain.ParseCountryID(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid country_id"))
			return
		}
		countryID = &id
	}
	universities, err := h.service.ListUniversities(ctx, countryID)
	if err != nil {
		h.fail(ctx, w, "list universities", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, universities)
}

func (h *Handler) HandleGetUniversity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseUniversityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	u, err := h.service.GetUniversity(ctx, id)
	if err != nil {
		h.fail(ctx, w, "get university", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) HandleCreateUniversity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.CreateUniversityInput](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	u, err := h.service.CreateUniversity(ctx, actor, *in)
	if err != nil {
		h.fail(ctx, w, "create university", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, u)
}

func (h *Handler) HandleUpdateUniversity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := domain.ParseUniversityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.UpdateUniversityInput](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	u, err := h.service.UpdateUniversity(ctx, actor, id, *in)
	if err != nil {
		h.fail(ctx, w, "update university", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) HandleDeleteUniversity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := domain.ParseUniversityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteUniversity(ctx, actor, id); err != nil {
		h.fail(ctx, w, "delete university", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSearchCourses filters by search, country, level, university and
// intake; list parameters accept repeated or comma-separated values.
func (h *Handler) HandleSearchCourses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f := models.CourseFilter{
		Search:       r.URL.Query().Get("search"),
		Countries:    httputil.QueryList(r, "country"),
		Levels:       httputil.QueryList(r, "level"),
		Universities: httputil.QueryList(r, "university"),
		Intakes:      httputil.QueryList(r, "intake"),
	}
	courses, err := h.service.SearchCourses(ctx, f)
	if err != nil {
		h.fail(ctx, w, "search courses", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, courses)
}

func (h *Handler) HandleFilterOptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	opts, err := h.service.FilterOptions(ctx)
	if err != nil {
		h.fail(ctx, w, "load course filter options", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, opts)
}

func (h *Handler) HandleGetCourse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseCourseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.GetCourse(ctx, id)
	if err != nil {
		h.fail(ctx, w, "get course", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleCreateCourse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.CreateCourseInput](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.CreateCourse(ctx, actor, *in)
	if err != nil {
		h.fail(ctx, w, "create course", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) HandleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := domain.ParseCourseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.UpdateCourseInput](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.UpdateCourse(ctx, actor, id, *in)
	if err != nil {
		h.fail(ctx, w, "update course", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := domain.ParseCourseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteCourse(ctx, actor, id); err != nil {
		h.fail(ctx, w, "delete course", err)
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
