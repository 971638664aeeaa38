package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
)

const testKey = "test-signing-key-0123456789"

func TestIssueAndVerify(t *testing.T) {
	svc := NewJWTService(testKey, "idbcrm")
	branch := domain.New[domain.BranchID]()
	actor := scope.Actor{ID: domain.New[domain.PartnerID](), Role: scope.RoleBranchManager, BranchID: &branch}

	token, expires, err := svc.Issue(actor, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	got, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, actor.ID, got.ID)
	assert.Equal(t, actor.Role, got.Role)
	require.NotNil(t, got.BranchID)
	assert.Equal(t, branch, *got.BranchID)
}

func TestVerifyWithoutBranch(t *testing.T) {
	svc := NewJWTService(testKey, "idbcrm")
	actor := scope.Actor{ID: domain.New[domain.PartnerID](), Role: scope.RoleAgent}
	token, _, err := svc.Issue(actor, time.Minute)
	require.NoError(t, err)

	got, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Nil(t, got.BranchID)
}

func TestExpiredToken(t *testing.T) {
	svc := NewJWTService(testKey, "idbcrm")
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := svc.Issue(scope.Actor{ID: domain.New[domain.PartnerID](), Role: scope.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Verify(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func TestRejectsWrongKeyAndIssuer(t *testing.T) {
	actor := scope.Actor{ID: domain.New[domain.PartnerID](), Role: scope.RoleAdmin}
	token, _, err := NewJWTService("another-signing-key-9876543210", "idbcrm").Issue(actor, time.Hour)
	require.NoError(t, err)
	_, err = NewJWTService(testKey, "idbcrm").Verify(token)
	assert.Error(t, err)

	token, _, err = NewJWTService(testKey, "someone-else").Issue(actor, time.Hour)
	require.NoError(t, err)
	_, err = NewJWTService(testKey, "idbcrm").Verify(token)
	assert.Error(t, err)
}

func TestRejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{
		Subject:   domain.New[domain.PartnerID]().String(),
		Issuer:    "idbcrm",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTService(testKey, "idbcrm").Verify(token)
	assert.Error(t, err)
}

func TestRejectsUnknownRole(t *testing.T) {
	svc := NewJWTService(testKey, "idbcrm")
	claims := Claims{Role: "root", RegisteredClaims: jwt.RegisteredClaims{
		Subject:   domain.New[domain.PartnerID]().String(),
		Issuer:    "idbcrm",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testKey))
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.Error(t, err)
}
