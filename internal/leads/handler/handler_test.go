package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"idbcrm/internal/leads/handler/mocks"
	"idbcrm/internal/leads/models"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

func newRouter(t *testing.T) (http.Handler, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	return r, svc
}

func TestHandleCreate(t *testing.T) {
	actor := testutil.Admin()

	t.Run("returns 201 with the created lead", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().Create(gomock.Any(), actor, gomock.Any()).
			DoAndReturn(func(_ any, _ any, in models.CreateLeadInput) (*models.Lead, error) {
				assert.Equal(t, "Asha Rao", in.Name)
				assert.Equal(t, "asha@example.com", in.Email)
				return &models.Lead{ID: domain.New[domain.LeadID](), Name: in.Name, Status: models.StatusNew}, nil
			})

		req := testutil.WithActor(testutil.NewJSONRequest(t, http.MethodPost, "/leads", map[string]any{
			"name": "  Asha Rao ", "email": "ASHA@example.com",
		}), actor)
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusCreated)
		testutil.AssertJSONContains(t, rr, "status", "new")
	})

	t.Run("rejects an invalid body before the service", func(t *testing.T) {
		router, _ := newRouter(t)
		req := testutil.WithActor(testutil.NewJSONRequest(t, http.MethodPost, "/leads", map[string]any{"name": ""}), actor)
		rr := testutil.DoRequest(router, req)
		assert.GreaterOrEqual(t, rr.Code, 400)
		assert.Less(t, rr.Code, 500)
	})

	t.Run("requires an actor", func(t *testing.T) {
		router, _ := newRouter(t)
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/leads", map[string]any{"name": "x"}))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}

func TestHandleList(t *testing.T) {
	actor := testutil.Agent()
	assignee := domain.New[domain.PartnerID]()

	t.Run("parses filters from the query", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().List(gomock.Any(), actor, models.ListFilter{
			Statuses:   []models.Status{models.StatusHot, models.StatusInProgress},
			Search:     "asha",
			AssignedTo: &assignee,
			Limit:      20,
			Offset:     40,
		}).Return(&models.ListResult{Items: []*models.Lead{}, Total: 41, Limit: 20, Offset: 40}, nil)

		req := testutil.WithActor(testutil.NewRequest(t, http.MethodGet,
			"/leads?status=hot,in-progress&search=asha&assigned_to="+assignee.String()+"&limit=20&offset=40"), actor)
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusOK(t, rr)
		res := testutil.UnmarshalResponse[models.ListResult](t, rr)
		assert.Equal(t, 41, res.Total)
		assert.NotNil(t, res.Items)
	})

	t.Run("rejects an unknown status", func(t *testing.T) {
		router, _ := newRouter(t)
		req := testutil.WithActor(testutil.NewRequest(t, http.MethodGet, "/leads?status=lukewarm"), actor)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
	})

	t.Run("rejects a negative offset", func(t *testing.T) {
		router, _ := newRouter(t)
		req := testutil.WithActor(testutil.NewRequest(t, http.MethodGet, "/leads?offset=-1"), actor)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestHandleGet(t *testing.T) {
	actor := testutil.Agent()
	id := domain.New[domain.LeadID]()

	t.Run("out of scope reads as not found", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().Get(gomock.Any(), actor, id).Return(nil, dErrors.New(dErrors.CodeNotFound, "lead not found"))
		rr := testutil.DoRequest(router, testutil.WithActor(testutil.NewRequest(t, http.MethodGet, "/leads/"+id.String()), actor))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})

	t.Run("malformed id", func(t *testing.T) {
		router, _ := newRouter(t)
		rr := testutil.DoRequest(router, testutil.WithActor(testutil.NewRequest(t, http.MethodGet, "/leads/123"), actor))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestHandleUpdate(t *testing.T) {
	actor := testutil.Admin()
	id := domain.New[domain.LeadID]()

	router, svc := newRouter(t)
	svc.EXPECT().Update(gomock.Any(), actor, id, gomock.Any()).
		DoAndReturn(func(_ any, _ any, _ domain.LeadID, in models.UpdateLeadInput) (*models.Lead, error) {
			require.NotNil(t, in.Status)
			assert.Equal(t, models.StatusConverted, *in.Status)
			assert.Nil(t, in.Name)
			return &models.Lead{ID: id, Status: *in.Status}, nil
		})

	req := testutil.WithActor(testutil.NewJSONRequest(t, http.MethodPatch, "/leads/"+id.String(), map[string]any{"status": "converted"}), actor)
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "status", "converted")
}

func TestHandleBulkStatus(t *testing.T) {
	actor := testutil.Admin()
	ids := []domain.LeadID{domain.New[domain.LeadID](), domain.New[domain.LeadID]()}

	router, svc := newRouter(t)
	svc.EXPECT().BulkUpdateStatus(gomock.Any(), actor, models.BulkStatusInput{IDs: ids, Status: models.StatusRejected}).Return(2, nil)

	req := testutil.WithActor(testutil.NewJSONRequest(t, http.MethodPost, "/leads/bulk-status", map[string]any{
		"ids": ids, "status": "rejected",
	}), actor)
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "updated", float64(2))
}
