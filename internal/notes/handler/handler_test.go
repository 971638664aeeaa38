package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"idbcrm/internal/notes/handler/mocks"
	"idbcrm/internal/notes/models"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

func newRouter(t *testing.T) (http.Handler, *mocks.MockService) {
	t.Helper()
	svc := mocks.NewMockService(gomock.NewController(t))
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r, svc
}

func TestNoteRoutes(t *testing.T) {
	actor := testutil.Agent()
	leadID := domain.New[domain.LeadID]()
	noteID := domain.New[domain.NoteID]()

	t.Run("create", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().Create(gomock.Any(), actor, models.CreateNoteInput{LeadID: leadID, Text: "hello"}).
			Return(&models.Note{ID: noteID, LeadID: leadID, Text: "hello"}, nil)
		rr := testutil.DoRequest(router, testutil.WithActor(testutil.NewJSONRequest(t, http.MethodPost, "/notes",
			map[string]any{"lead_id": leadID, "text": " hello "}), actor))
		testutil.AssertStatus(t, rr, http.StatusCreated)
		testutil.AssertJSONContains(t, rr, "text", "hello")
	})

	t.Run("list for lead", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().ListForLead(gomock.Any(), actor, leadID).Return([]*models.Note{}, nil)
		rr := testutil.DoRequest(router, testutil.WithActor(testutil.NewRequest(t, http.MethodGet, "/leads/"+leadID.String()+"/notes"), actor))
		testutil.AssertStatusOK(t, rr)
	})

	t.Run("update by someone else is forbidden", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().Update(gomock.Any(), actor, noteID, models.UpdateNoteInput{Text: "x"}).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "only the author or an admin can change this note"))
		rr := testutil.DoRequest(router, testutil.WithActor(testutil.NewJSONRequest(t, http.MethodPatch, "/notes/"+noteID.String(),
			map[string]any{"text": "x"}), actor))
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})

	t.Run("delete", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().Delete(gomock.Any(), actor, noteID).Return(nil)
		rr := testutil.DoRequest(router, testutil.WithActor(testutil.NewRequest(t, http.MethodDelete, "/notes/"+noteID.String()), actor))
		testutil.AssertStatus(t, rr, http.StatusNoContent)
	})

	t.Run("empty text never reaches the service", func(t *testing.T) {
		router, _ := newRouter(t)
		rr := testutil.DoRequest(router, testutil.WithActor(testutil.NewJSONRequest(t, http.MethodPost, "/notes",
			map[string]any{"lead_id": leadID, "text": ""}), actor))
		testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
	})
}
