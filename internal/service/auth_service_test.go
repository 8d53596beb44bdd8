package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/task-service/internal/config"
	"github.com/spec-kit/task-service/internal/domain"
	apperrors "github.com/spec-kit/task-service/pkg/util"
)

func newAuthFixture() (*AuthService, *memUserRepo) {
	users := newMemUserRepo()
	cfg := config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.AccessTokenTTLMinutes = 30
	cfg.Auth.BcryptCost = 4
	return NewAuthService(cfg, users), users
}

func TestRegisterCreatesActiveUser(t *testing.T) {
	svc, _ := newAuthFixture()

	user, err := svc.Register(context.Background(), "Jamie", "Jamie@Example.com", "password1", "")
	require.NoError(t, err)

	assert.Equal(t, "jamie@example.com", user.Email, "email is normalized")
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "password1", user.PasswordHash)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), "Jamie", "jamie@example.com", "password1", "")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "Other", "JAMIE@example.com", "password2", "")
	require.Error(t, err)
	assert.Equal(t, "Email already exists", apperrors.ToDomainError(err).Message)
}

func TestLoginSuccess(t *testing.T) {
	svc, _ := newAuthFixture()

	registered, err := svc.Register(context.Background(), "Jamie", "jamie@example.com", "password1", "")
	require.NoError(t, err)

	user, token, _, err := svc.Login(context.Background(), "jamie@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	require.NotEmpty(t, token)

	claims, err := svc.TokenManager().Parse(token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.UserID)
}

func TestLoginUniformDenial(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), "Jamie", "jamie@example.com", "password1", "")
	require.NoError(t, err)

	// Wrong password and unknown account must be indistinguishable.
	_, _, _, err = svc.Login(context.Background(), "jamie@example.com", "wrong")
	require.Error(t, err)
	wrongPassword := apperrors.ToDomainError(err).Message

	_, _, _, err = svc.Login(context.Background(), "nobody@example.com", "password1")
	require.Error(t, err)
	assert.Equal(t, wrongPassword, apperrors.ToDomainError(err).Message)
	assert.Equal(t, "Invalid email or password", wrongPassword)
}

func TestLoginDeactivatedAccount(t *testing.T) {
	svc, users := newAuthFixture()

	registered, err := svc.Register(context.Background(), "Jamie", "jamie@example.com", "password1", "")
	require.NoError(t, err)

	registered.IsActive = false
	require.NoError(t, users.Update(context.Background(), registered))

	_, _, _, err = svc.Login(context.Background(), "jamie@example.com", "password1")
	require.Error(t, err)
	assert.Equal(t, "Your account has been deactivated. Please contact support.", apperrors.ToDomainError(err).Message)
}

func TestRegisterAdminRole(t *testing.T) {
	svc, _ := newAuthFixture()

	user, err := svc.Register(context.Background(), "Root", "root@example.com", "password1", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)
}
