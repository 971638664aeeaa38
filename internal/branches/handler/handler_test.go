package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idbcrm/internal/branches/models"
	"idbcrm/internal/branches/service"
	"idbcrm/internal/branches/store"
	partnerStore "idbcrm/internal/partners/store"
	"idbcrm/pkg/testutil"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	svc := service.New(store.NewInMemory(), partnerStore.NewInMemory())
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func TestBranchLifecycleViaHandlers(t *testing.T) {
	router := newRouter(t)
	admin := testutil.Admin()

	create := func(body map[string]any) *models.Branch {
		req := testutil.WithActor(testutil.NewJSONRequest(t, http.MethodPost, "/branches", body), admin)
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		return testutil.UnmarshalResponse[models.Branch](t, rr)
	}

	hq := create(map[string]any{"name": "Head Office", "code": "hq-001", "type": "HeadOffice"})
	assert.Equal(t, "HQ-001", hq.Code)
	del := create(map[string]any{"name": "Delhi", "code": "DEL-001", "parent_id": hq.ID})
	assert.Equal(t, "Head Office", del.ParentName)

	t.Run("duplicate code is a conflict", func(t *testing.T) {
		req := testutil.WithActor(testutil.NewJSONRequest(t, http.MethodPost, "/branches",
			map[string]any{"name": "Dup", "code": "DEL-001"}), admin)
		testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusConflict, "conflict")
	})

	t.Run("get returns children", func(t *testing.T) {
		req := testutil.WithActor(testutil.NewRequest(t, http.MethodGet, "/branches/"+hq.ID.String()), admin)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusOK(t, rr)
		detail := testutil.UnmarshalResponse[struct {
			Children []models.Branch `json:"children"`
		}](t, rr)
		require.Len(t, detail.Children, 1)
		assert.Equal(t, del.ID, detail.Children[0].ID)
	})

	t.Run("delete with children is a conflict", func(t *testing.T) {
		req := testutil.WithActor(testutil.NewRequest(t, http.MethodDelete, "/branches/"+hq.ID.String()), admin)
		testutil.AssertStatus(t, testutil.DoRequest(router, req), http.StatusConflict)
	})

	t.Run("cycle is rejected", func(t *testing.T) {
		req := testutil.WithActor(testutil.NewJSONRequest(t, http.MethodPatch, "/branches/"+hq.ID.String(),
			map[string]any{"parent_id": del.ID}), admin)
		testutil.AssertStatus(t, testutil.DoRequest(router, req), http.StatusUnprocessableEntity)
	})

	t.Run("staff cannot mutate", func(t *testing.T) {
		req := testutil.WithActor(testutil.NewRequest(t, http.MethodDelete, "/branches/"+del.ID.String()), testutil.Agent())
		testutil.AssertStatus(t, testutil.DoRequest(router, req), http.StatusForbidden)
	})

	t.Run("leaf branch can be deleted", func(t *testing.T) {
		req := testutil.WithActor(testutil.NewRequest(t, http.MethodDelete, "/branches/"+del.ID.String()), admin)
		testutil.AssertStatus(t, testutil.DoRequest(router, req), http.StatusNoContent)
	})
}
