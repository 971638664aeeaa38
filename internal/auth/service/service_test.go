package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idbcrm/internal/auth/models"
	jwttoken "idbcrm/internal/jwt_token"
	partnerModels "idbcrm/internal/partners/models"
	partnerService "idbcrm/internal/partners/service"
	partnerStore "idbcrm/internal/partners/store"
	"idbcrm/internal/platform/logger"
	"idbcrm/internal/platform/metrics"
	ratelimitModels "idbcrm/internal/ratelimit/models"
	ratelimitService "idbcrm/internal/ratelimit/service"
	ratelimitStore "idbcrm/internal/ratelimit/store"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
)

func TestLogin(t *testing.T) {
	ctx := context.Background()
	branch := domain.New[domain.BranchID]()
	partners := partnerService.New(partnerStore.NewInMemory(), nil)
	admin := scope.Actor{ID: domain.New[domain.PartnerID](), Role: scope.RoleAdmin}
	created, err := partners.Create(ctx, admin, partnerModels.CreatePartnerInput{
		Name: "Staff", Email: "staff@idb.in", Password: "password1", Role: "staff", BranchID: &branch,
	})
	require.NoError(t, err)

	jwt := jwttoken.NewJWTService("0123456789abcdef0123456789abcdef", "idbcrm")
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	svc := New(partners, jwt, time.Hour, WithMetrics(m))

	t.Run("token carries role and branch", func(t *testing.T) {
		res, err := svc.Login(ctx, models.LoginRequest{Email: "STAFF@idb.in", Password: "password1"})
		require.NoError(t, err)
		assert.Equal(t, "Bearer", res.TokenType)
		assert.Equal(t, 3600, res.ExpiresIn)

		actor, err := jwt.Verify(res.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, created.ID, actor.ID)
		assert.Equal(t, scope.RoleStaff, actor.Role)
		require.NotNil(t, actor.BranchID)
		assert.Equal(t, branch, *actor.BranchID)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.LoginsTotal.WithLabelValues("success")))
	})

	t.Run("bad password is unauthorized and counted", func(t *testing.T) {
		_, err := svc.Login(ctx, models.LoginRequest{Email: "staff@idb.in", Password: "wrong-password"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.LoginsTotal.WithLabelValues("failure")))
	})

	t.Run("missing fields are a bad request", func(t *testing.T) {
		_, err := svc.Login(ctx, models.LoginRequest{Email: "staff@idb.in"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func TestLoginLockout(t *testing.T) {
	ctx := context.Background()
	partners := partnerService.New(partnerStore.NewInMemory(), nil)
	admin := scope.Actor{ID: domain.New[domain.PartnerID](), Role: scope.RoleAdmin}
	_, err := partners.Create(ctx, admin, partnerModels.CreatePartnerInput{
		Name: "Agent", Email: "agent@idb.in", Password: "password1", Role: "agent",
	})
	require.NoError(t, err)

	limits := ratelimitStore.NewInMemory()
	guard := ratelimitService.New(limits, limits,
		ratelimitService.WithLogger(logger.Discard()),
		ratelimitService.WithPolicy(ratelimitModels.Policy{LockoutThreshold: 2}),
	)
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	jwt := jwttoken.NewJWTService("0123456789abcdef0123456789abcdef", "idbcrm")
	svc := New(partners, jwt, time.Hour, WithMetrics(m), WithLoginGuard(guard))

	t.Run("a success resets the streak", func(t *testing.T) {
		_, err := svc.Login(ctx, models.LoginRequest{Email: "agent@idb.in", Password: "nope-nope"})
		require.Error(t, err)
		_, err = svc.Login(ctx, models.LoginRequest{Email: "agent@idb.in", Password: "password1"})
		require.NoError(t, err)
	})

	t.Run("repeated failures lock even the right password out", func(t *testing.T) {
		for range 2 {
			_, err := svc.Login(ctx, models.LoginRequest{Email: "agent@idb.in", Password: "nope-nope"})
			assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		}
		_, err := svc.Login(ctx, models.LoginRequest{Email: "Agent@idb.in", Password: "password1"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeRateLimited))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.LoginsTotal.WithLabelValues("locked")))
	})
}
