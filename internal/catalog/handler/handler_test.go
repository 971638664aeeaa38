package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"idbcrm/internal/catalog/handler/mocks"
	"idbcrm/internal/catalog/models"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

func newRouter(t *testing.T) (http.Handler, *mocks.MockService) {
	t.Helper()
	svc := mocks.NewMockService(gomock.NewController(t))
	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.RegisterPublic(r)
	h.Register(r)
	return r, svc
}

func TestCatalogRoutes(t *testing.T) {
	admin := testutil.Admin()
	staff := testutil.BranchActor(scope.RoleStaff, domain.New[domain.BranchID]())
	countryID := domain.New[domain.CountryID]()
	universityID := domain.New[domain.UniversityID]()

	t.Run("countries are listed without an actor", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().ListCountries(gomock.Any()).Return([]*models.Country{{ID: countryID, Name: "Canada", UniversityCount: 2}}, nil)
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/countries"))
		testutil.AssertStatusOK(t, rr)
	})

	t.Run("country detail", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().GetCountry(gomock.Any(), countryID).Return(nil, dErrors.New(dErrors.CodeNotFound, "country not found"))
		rr := testutil.DoRequest(router, testutil.WithActor(testutil.NewRequest(t, http.MethodGet, "/countries/"+countryID.String()), staff))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})

	t.Run("universities filter by country", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().ListUniversities(gomock.Any(), &countryID).Return([]*models.University{}, nil)
		rr := testutil.DoRequest(router, testutil.WithActor(testutil.NewRequest(t, http.MethodGet, "/universities?country_id="+countryID.String()), staff))
		testutil.AssertStatusOK(t, rr)
	})

	t.Run("malformed country filter is rejected", func(t *testing.T) {
		router, _ := newRouter(t)
		rr := testutil.DoRequest(router, testutil.WithActor(testutil.NewRequest(t, http.MethodGet, "/universities?country_id=nope"), staff))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("course search reads list filters", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().SearchCourses(gomock.Any(), models.CourseFilter{
			Search:    "data",
			Countries: []string{"Canada", "United Kingdom"},
			Levels:    []string{"Postgraduate"},
			Intakes:   []string{"January"},
		}).Return([]*models.Course{}, nil)
		rr := testutil.DoRequest(router, testutil.WithActor(testutil.NewRequest(t, http.MethodGet,
			"/courses?search=data&country=Canada,United%20Kingdom&level=Postgraduate&intake=January"), staff))
		testutil.AssertStatusOK(t, rr)
	})

	t.Run("filter options is not a course id", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().FilterOptions(gomock.Any()).Return(&models.FilterOptions{Levels: []string{"Postgraduate"}}, nil)
		rr := testutil.DoRequest(router, testutil.WithActor(testutil.NewRequest(t, http.MethodGet, "/courses/filter-options"), staff))
		testutil.AssertStatusOK(t, rr)
	})

	t.Run("mutations are admin only", func(t *testing.T) {
		router, _ := newRouter(t)
		rr := testutil.DoRequest(router, testutil.WithActor(testutil.NewJSONRequest(t, http.MethodPost, "/countries",
			map[string]any{"name": "Canada", "code": "CA"}), staff))
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})

	t.Run("create country normalizes input", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().CreateCountry(gomock.Any(), admin, models.CreateCountryInput{Name: "Canada", Code: "CA"}).
			Return(&models.Country{ID: countryID, Name: "Canada", Code: "CA"}, nil)
		rr := testutil.DoRequest(router, testutil.WithActor(testutil.NewJSONRequest(t, http.MethodPost, "/countries",
			map[string]any{"name": " Canada ", "code": "ca"}), admin))
		testutil.AssertStatus(t, rr, http.StatusCreated)
	})

	t.Run("delete university in use conflicts", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().DeleteUniversity(gomock.Any(), admin, universityID).Return(dErrors.New(dErrors.CodeConflict, "university has 3 courses"))
		rr := testutil.DoRequest(router, testutil.WithActor(testutil.NewRequest(t, http.MethodDelete, "/universities/"+universityID.String()), admin))
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
	})
}
