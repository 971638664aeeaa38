package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "idbcrm/internal/jwt_token"
	"idbcrm/internal/partners/models"
	partnerService "idbcrm/internal/partners/service"
	partnerStore "idbcrm/internal/partners/store"
	"idbcrm/internal/platform/config"
	"idbcrm/internal/platform/logger"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
)

type harness struct {
	store  *partnerStore.InMemory
	tokens *jwttoken.JWTService
	opts   *RootOptions
}

func newHarness() *harness {
	h := &harness{
		store:  partnerStore.NewInMemory(),
		tokens: jwttoken.NewJWTService("test-signing-key-0123456789", "idbcrm-test"),
	}
	h.opts = &RootOptions{Open: func(context.Context, *RootOptions) (*Backend, error) {
		return &Backend{
			Config:   config.Config{Auth: config.AuthConfig{TokenTTL: time.Hour}},
			Logger:   logger.Discard(),
			Store:    h.store,
			Partners: partnerService.New(h.store, nil),
			Tokens:   h.tokens,
		}, nil
	}}
	return h
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(h.opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCreateAdminThenIssueToken(t *testing.T) {
	h := newHarness()

	out, err := h.run(t, "create-admin", "--email", " Root@Example.com ", "--password", "s3cret-pass!")
	require.NoError(t, err)
	assert.Contains(t, out, "created admin root@example.com")

	out, err = h.run(t, "issue-token", "ROOT@example.com")
	require.NoError(t, err)

	actor, err := h.tokens.Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, scope.RoleAdmin, actor.Role)
}

func TestCreateAdminReadsPasswordFromEnv(t *testing.T) {
	h := newHarness()
	t.Setenv(EnvAdminPassword, "from-env-pass!")

	out, err := h.run(t, "--format", "json", "create-admin", "--email", "ops@example.com", "--name", "Ops")
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, "ops@example.com", body["email"])
	assert.Equal(t, "Ops", body["name"])
	assert.Equal(t, "admin", body["role"])
}

func TestCreateAdminWithoutPasswordFails(t *testing.T) {
	h := newHarness()
	t.Setenv(EnvAdminPassword, "")

	_, err := h.run(t, "create-admin", "--email", "ops@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvAdminPassword)
}

func TestCreateAdminDuplicateEmail(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "create-admin", "--email", "ops@example.com", "--password", "s3cret-pass!")
	require.NoError(t, err)

	_, err = h.run(t, "create-admin", "--email", "OPS@example.com", "--password", "s3cret-pass!")
	assert.Error(t, err)
}

func TestIssueTokenJSONCarriesExpiry(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "create-admin", "--email", "ops@example.com", "--password", "s3cret-pass!")
	require.NoError(t, err)

	out, err := h.run(t, "--format", "json", "issue-token", "ops@example.com", "--ttl", "10m")
	require.NoError(t, err)

	var body struct {
		AccessToken string    `json:"access_token"`
		TokenType   string    `json:"token_type"`
		ExpiresAt   time.Time `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, "Bearer", body.TokenType)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), body.ExpiresAt, time.Minute)
}

func TestIssueTokenRejectsUnknownAndInactive(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.store.Create(context.Background(), &models.Partner{
		ID:     domain.New[domain.PartnerID](),
		Name:   "Gone",
		Email:  "gone@example.com",
		Role:   scope.RoleAgent,
		Active: false,
	}))

	_, err := h.run(t, "issue-token", "nobody@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no partner")

	_, err = h.run(t, "issue-token", "gone@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deactivated")
}

func TestMigrateNeedsDatabase(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "migrate")
	assert.Error(t, err)
}

func TestRejectsUnknownFormat(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "--format", "yaml", "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
