package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"idbcrm/internal/auth/handler/mocks"
	"idbcrm/internal/auth/models"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

func TestHandleLogin(t *testing.T) {
	newRouter := func(t *testing.T) (http.Handler, *mocks.MockService) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockService(ctrl)
		r := chi.NewRouter()
		New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
		return r, svc
	}

	testutil.Given(t, "valid credentials", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().Login(gomock.Any(), models.LoginRequest{Email: "asha@idb.in", Password: "password1"}).
			Return(&models.TokenResult{AccessToken: "tok", TokenType: "Bearer", ExpiresIn: 3600}, nil)

		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login",
			map[string]string{"email": "Asha@IDB.in", "password": "password1"}))

		testutil.Then(t, "a bearer token is returned", func(t *testing.T) {
			testutil.AssertStatusOK(t, rr)
			assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
			res := testutil.UnmarshalResponse[models.TokenResult](t, rr)
			assert.Equal(t, "tok", res.AccessToken)
			assert.Equal(t, "Bearer", res.TokenType)
			assert.Equal(t, 3600, res.ExpiresIn)
		})
	})

	testutil.Given(t, "wrong credentials", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().Login(gomock.Any(), gomock.Any()).Return(nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login",
			map[string]string{"email": "asha@idb.in", "password": "nope-nope"}))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	testutil.Given(t, "missing password", func(t *testing.T) {
		router, _ := newRouter(t)
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login",
			map[string]string{"email": "asha@idb.in"}))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}
