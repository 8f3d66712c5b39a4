package services

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptolotto/lottery-backend/internal/apperrors"
	"github.com/cryptolotto/lottery-backend/internal/config"
	"github.com/cryptolotto/lottery-backend/internal/models"
)

func newAuthService() (*AuthServiceImpl, *fakeAdminUserRepo) {
	admins := newFakeAdminUserRepo()
	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", ExpiresIn: 3600},
	}
	return NewAuthService(admins, &recordingAuditSink{}, cfg), admins
}

func TestRegisterAndLogin(t *testing.T) {
	service, _ := newAuthService()

	admin, err := service.Register(context.Background(), models.RegisterRequest{
		Email:    "ops@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.Role)
	// The stored password must be hashed, never plaintext.
	assert.NotEqual(t, "correct-horse", admin.Password)

	token, logged, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "ops@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, admin.ID, logged.ID)

	parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, admin.ID.Hex(), claims["sub"])
	assert.Equal(t, "admin", claims["role"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	service, _ := newAuthService()

	_, err := service.Register(context.Background(), models.RegisterRequest{
		Email: "ops@example.com", Password: "correct-horse",
	})
	require.NoError(t, err)

	_, err = service.Register(context.Background(), models.RegisterRequest{
		Email: "ops@example.com", Password: "another-pass",
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	service, _ := newAuthService()

	_, err := service.Register(context.Background(), models.RegisterRequest{
		Email: "ops@example.com", Password: "correct-horse",
	})
	require.NoError(t, err)

	_, _, err = service.Login(context.Background(), models.LoginRequest{
		Email: "ops@example.com", Password: "wrong",
	})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, _, err = service.Login(context.Background(), models.LoginRequest{
		Email: "nobody@example.com", Password: "correct-horse",
	})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
