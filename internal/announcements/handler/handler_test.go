package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"idbcrm/internal/announcements/handler/mocks"
	"idbcrm/internal/announcements/models"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
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

func TestAnnouncementRoutes(t *testing.T) {
	admin := testutil.Admin()
	staff := testutil.BranchActor(scope.RoleStaff, domain.New[domain.BranchID]())
	id := domain.New[domain.AnnouncementID]()
	view := &models.View{Announcement: &models.Announcement{ID: id, Title: "Holiday"}, IsRead: true}

	t.Run("list passes include_inactive", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().List(gomock.Any(), admin, true).Return([]*models.View{view}, nil)
		rr := testutil.DoRequest(router, testutil.WithActor(testutil.NewRequest(t, http.MethodGet, "/announcements?include_inactive=true"), admin))
		testutil.AssertStatusOK(t, rr)
	})

	t.Run("unread count", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().UnreadCount(gomock.Any(), staff).Return(3, nil)
		rr := testutil.DoRequest(router, testutil.WithActor(testutil.NewRequest(t, http.MethodGet, "/announcements/unread-count"), staff))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "unread_count", float64(3))
	})

	t.Run("mark read", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().MarkRead(gomock.Any(), staff, id).Return(view, nil)
		rr := testutil.DoRequest(router, testutil.WithActor(testutil.NewRequest(t, http.MethodPost, "/announcements/"+id.String()+"/mark-read"), staff))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "is_read", true)
	})

	t.Run("create is admin only", func(t *testing.T) {
		router, _ := newRouter(t)
		rr := testutil.DoRequest(router, testutil.WithActor(testutil.NewJSONRequest(t, http.MethodPost, "/announcements",
			map[string]any{"title": "t", "content": "c"}), staff))
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})

	t.Run("create", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().Create(gomock.Any(), admin, models.CreateAnnouncementInput{
			Title: "Holiday", Content: "Office closed", TargetAudience: models.AudienceBranch, Users: []domain.PartnerID{},
		}).Return(view.Announcement, nil)
		rr := testutil.DoRequest(router, testutil.WithActor(testutil.NewJSONRequest(t, http.MethodPost, "/announcements",
			map[string]any{"title": " Holiday ", "content": "Office closed"}), admin))
		testutil.AssertStatus(t, rr, http.StatusCreated)
	})

	t.Run("delete", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().Delete(gomock.Any(), admin, id).Return(nil)
		rr := testutil.DoRequest(router, testutil.WithActor(testutil.NewRequest(t, http.MethodDelete, "/announcements/"+id.String()), admin))
		testutil.AssertStatus(t, rr, http.StatusNoContent)
	})
}
