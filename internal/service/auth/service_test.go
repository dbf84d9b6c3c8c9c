package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterhq/oncall-api/internal/clock"
	"github.com/rosterhq/oncall-api/internal/config"
	apperrors "github.com/rosterhq/oncall-api/pkg/errors"
	"github.com/rosterhq/oncall-api/pkg/security"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	hash, err := security.NewBcryptHasher(security.DefaultBcryptCost).Hash("correct-horse")
	require.NoError(t, err)

	// Token validation checks expiry against wall time, so the test
	// clock must not be pinned in the past.
	return NewService(
		config.JWTConfig{Secret: "test-secret", ExpiryHours: 24},
		config.AdminConfig{Email: "admin@example.com", PasswordHash: hash},
		clock.New(time.UTC),
	)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	token, err := svc.Login(ctx, "admin@example.com", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", claims.Email)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Login(ctx, "intruder@example.com", "correct-horse")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))

	_, err = svc.Login(ctx, "admin@example.com", "wrong-password")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.ValidateToken(ctx, "not-a-token")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))

	_, err = svc.ValidateToken(ctx, "")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	hash, err := security.NewBcryptHasher(security.DefaultBcryptCost).Hash("correct-horse")
	require.NoError(t, err)
	other := NewService(
		config.JWTConfig{Secret: "different-secret", ExpiryHours: 24},
		config.AdminConfig{Email: "admin@example.com", PasswordHash: hash},
		clock.New(time.UTC),
	)

	token, err := other.Login(ctx, "admin@example.com", "correct-horse")
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, token)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}
