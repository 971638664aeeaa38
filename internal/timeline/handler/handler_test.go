package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"idbcrm/internal/timeline/handler/mocks"
	"idbcrm/internal/timeline/models"
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

func TestHandleList(t *testing.T) {
	leadID := domain.New[domain.LeadID]()
	actor := testutil.Admin()

	t.Run("passes cursor and limit through", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().
			ListForLead(gomock.Any(), actor, leadID, models.PageRequest{Cursor: "abc", Limit: 10}).
			Return(&models.Page{
				Events: []*models.Event{{
					ID: domain.New[domain.EventID](), LeadID: leadID, Type: models.EventLeadCreated,
					NewState: "Asha", ActorID: actor.ID, CreatedAt: time.Now(),
				}},
				NextCursor: "next",
			}, nil)

		req := testutil.WithActor(testutil.NewRequest(t, http.MethodGet, "/leads/"+leadID.String()+"/timeline?cursor=abc&limit=10"), actor)
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusOK(t, rr)
		page := testutil.UnmarshalResponse[struct {
			Events []struct {
				EventType string `json:"event_type"`
				NewState  string `json:"new_state"`
			} `json:"events"`
			NextCursor string `json:"next_cursor"`
		}](t, rr)
		require.Len(t, page.Events, 1)
		assert.Equal(t, "LEAD_CREATED", page.Events[0].EventType)
		assert.Equal(t, "next", page.NextCursor)
	})

	t.Run("out of scope lead is not found", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().ListForLead(gomock.Any(), actor, leadID, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "lead not found"))

		req := testutil.WithActor(testutil.NewRequest(t, http.MethodGet, "/leads/"+leadID.String()+"/timeline"), actor)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})

	t.Run("rejects malformed lead id", func(t *testing.T) {
		router, _ := newRouter(t)
		req := testutil.WithActor(testutil.NewRequest(t, http.MethodGet, "/leads/nope/timeline"), actor)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("requires an actor", func(t *testing.T) {
		router, _ := newRouter(t)
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/leads/"+leadID.String()+"/timeline"))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}
