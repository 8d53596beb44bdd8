package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/repository"
	"github.com/spec-kit/task-service/pkg/util"
)

type fakeUserRepo struct {
	users map[string]*domain.User
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) error { return nil }
func (f *fakeUserRepo) Update(ctx context.Context, user *domain.User) error { return nil }
func (f *fakeUserRepo) Delete(ctx context.Context, id string) error         { return nil }

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) List(ctx context.Context) ([]domain.User, error) { return nil, nil }

type fakeTaskRepo struct {
	tasks  map[string]*domain.Task
	getErr error
}

func (f *fakeTaskRepo) Create(ctx context.Context, task *domain.Task) error { return nil }
func (f *fakeTaskRepo) Update(ctx context.Context, task *domain.Task) error { return nil }
func (f *fakeTaskRepo) Delete(ctx context.Context, id string) error         { return nil }

func (f *fakeTaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	task, ok := f.tasks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *task
	return &copied, nil
}

func (f *fakeTaskRepo) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	return nil, nil
}

func (f *fakeTaskRepo) Count(ctx context.Context, filter repository.TaskFilter) (int64, error) {
	return 0, nil
}

func (f *fakeTaskRepo) AddAttachments(ctx context.Context, taskID string, attachments []domain.Attachment) error {
	return nil
}

func (f *fakeTaskRepo) RemoveAttachment(ctx context.Context, taskID, filename string) error {
	return nil
}

func (f *fakeTaskRepo) ReassignAssignee(ctx context.Context, userID string) error { return nil }

// newTestApp mirrors the production error envelope so middleware failures
// surface as the right status and message.
func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := util.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{
				"status":  "error",
				"message": domainErr.Message,
			})
		},
	})
}

type errorEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func decodeEnvelope(t *testing.T, resp *http.Response) errorEnvelope {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}

func okHandler(c *fiber.Ctx) error {
	return c.SendStatus(http.StatusOK)
}

func activeUser(id string, role domain.Role) *domain.User {
	return &domain.User{
		ID:       id,
		Name:     "Test User",
		Email:    id + "@example.com",
		Role:     role,
		IsActive: true,
	}
}

func TestAuthenticateNoToken(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*domain.User{}}
	m := NewAuthMiddleware(NewTokenManager("secret", 30), users, zap.NewNop())

	app := newTestApp()
	app.Get("/protected", m.Authenticate, okHandler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/protected", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Access denied. No token provided.", decodeEnvelope(t, resp).Message)
}

func TestAuthenticateMalformedToken(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*domain.User{}}
	m := NewAuthMiddleware(NewTokenManager("secret", 30), users, zap.NewNop())

	app := newTestApp()
	app.Get("/protected", m.Authenticate, okHandler)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid token. Please log in again.", decodeEnvelope(t, resp).Message)
}

func TestAuthenticateDeletedUser(t *testing.T) {
	tokens := NewTokenManager("secret", 30)
	users := &fakeUserRepo{users: map[string]*domain.User{}}
	m := NewAuthMiddleware(tokens, users, zap.NewNop())

	token, _, err := tokens.Generate("ghost")
	require.NoError(t, err)

	app := newTestApp()
	app.Get("/protected", m.Authenticate, okHandler)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "The user belonging to this token no longer exists.", decodeEnvelope(t, resp).Message)
}

func TestAuthenticateDeactivatedUser(t *testing.T) {
	tokens := NewTokenManager("secret", 30)
	dormant := activeUser("u1", domain.RoleUser)
	dormant.IsActive = false
	users := &fakeUserRepo{users: map[string]*domain.User{"u1": dormant}}
	m := NewAuthMiddleware(tokens, users, zap.NewNop())

	token, _, err := tokens.Generate("u1")
	require.NoError(t, err)

	app := newTestApp()
	app.Get("/protected", m.Authenticate, okHandler)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Your account has been deactivated. Please contact support.", decodeEnvelope(t, resp).Message)
}

func TestAuthenticateResolvesUser(t *testing.T) {
	tokens := NewTokenManager("secret", 30)
	users := &fakeUserRepo{users: map[string]*domain.User{"u1": activeUser("u1", domain.RoleUser)}}
	m := NewAuthMiddleware(tokens, users, zap.NewNop())

	token, _, err := tokens.Generate("u1")
	require.NoError(t, err)

	app := newTestApp()
	app.Get("/protected", m.Authenticate, func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		require.True(t, ok)
		assert.Equal(t, "u1", user.ID)
		return c.SendStatus(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOptionalAuthNeverFails(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*domain.User{}}
	m := NewAuthMiddleware(NewTokenManager("secret", 30), users, zap.NewNop())

	app := newTestApp()
	app.Get("/open", m.OptionalAuth, func(c *fiber.Ctx) error {
		_, ok := CurrentUser(c)
		assert.False(t, ok)
		return c.SendStatus(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer bogus")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
