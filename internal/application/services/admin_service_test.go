package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hall-dev/halldev-go/internal/infrastructure/security"
)

func newAdminService(t *testing.T) *AdminService {
	t.Helper()
	hash, err := security.HashAdminToken("sekret")
	require.NoError(t, err)
	return NewAdminService(newStateStore(t), quietLogger(t), AdminServiceConfig{
		TokenHash:  hash,
		JWTSecret:  "test-jwt-secret",
		SessionTTL: time.Hour,
	})
}

func TestLoginIssuesValidatableToken(t *testing.T) {
	svc := newAdminService(t)

	token, err := svc.Login(context.Background(), "sekret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	tokenID, err := svc.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.NotEmpty(t, tokenID)
}

func TestLoginRejectsWrongToken(t *testing.T) {
	svc := newAdminService(t)

	_, err := svc.Login(context.Background(), "wrong")
	assert.ErrorIs(t, err, ErrInvalidAdminToken)
	assert.ErrorIs(t, err, security.ErrInvalidAdminToken, "the service sentinel aliases the security one")
}

func TestLogoutRevokesSession(t *testing.T) {
	svc := newAdminService(t)

	token, err := svc.Login(context.Background(), "sekret")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), token))

	_, err = svc.Validate(context.Background(), token)
	assert.Error(t, err, "a revoked session no longer validates")
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := newAdminService(t)
	_, err := svc.Validate(context.Background(), "not-a-jwt")
	assert.Error(t, err)
}
