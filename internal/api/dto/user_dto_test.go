package dto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/task-service/internal/domain"
)

func TestRegisterRequestValid(t *testing.T) {
	req := RegisterRequest{Name: "Jamie", Email: "jamie@example.com", Password: "secret1"}
	assert.Empty(t, req.Validate())
}

func TestRegisterRequestRules(t *testing.T) {
	req := RegisterRequest{Name: "J", Email: "not-an-email", Password: "short", Role: domain.Role("root")}
	fields := messagesByField(req.Validate())

	assert.Equal(t, "Name must be between 2 and 50 characters", fields["name"])
	assert.Equal(t, "Please provide a valid email", fields["email"])
	assert.Equal(t, "Password must be at least 6 characters long", fields["password"])
	assert.Equal(t, "Invalid role specified", fields["role"])
}

func TestRegisterRequestMissingName(t *testing.T) {
	req := RegisterRequest{Email: "jamie@example.com", Password: "secret1"}
	fields := messagesByField(req.Validate())
	assert.Equal(t, "Name is required", fields["name"])
}

func TestRegisterRequestNameCountsCharacters(t *testing.T) {
	req := RegisterRequest{Name: strings.Repeat("李", 30), Email: "li@example.com", Password: "secret1"}
	assert.Empty(t, req.Validate(), "30 multibyte characters fit the 50 limit")

	req.Name = strings.Repeat("李", 51)
	fields := messagesByField(req.Validate())
	assert.Equal(t, "Name must be between 2 and 50 characters", fields["name"])
}

func TestLoginRequestRules(t *testing.T) {
	fields := messagesByField(LoginRequest{}.Validate())
	assert.Equal(t, "Please provide a valid email", fields["email"])
	assert.Equal(t, "Password is required", fields["password"])

	assert.Empty(t, LoginRequest{Email: "jamie@example.com", Password: "x"}.Validate())
}

func TestUpdateUserRequestEmptyIsValid(t *testing.T) {
	assert.Empty(t, UpdateUserRequest{}.Validate())
}

func TestUpdateUserRequestChecksProvidedFields(t *testing.T) {
	bad := "x"
	req := UpdateUserRequest{Name: &bad, Password: &bad}
	fields := messagesByField(req.Validate())
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "password")
}

func TestNewUserResponseOmitsPassword(t *testing.T) {
	user := &domain.User{
		ID:           "u1",
		Name:         "Jamie",
		Email:        "jamie@example.com",
		PasswordHash: "$2a$10$hash",
		Role:         domain.RoleUser,
		IsActive:     true,
	}
	resp := NewUserResponse(user)
	assert.Equal(t, "u1", resp.ID)
	assert.Equal(t, domain.RoleUser, resp.Role)
}
