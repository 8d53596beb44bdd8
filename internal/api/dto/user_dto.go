package dto

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/pkg/util"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// Validate applies the registration rules.
func (r RegisterRequest) Validate() []util.FieldError {
	var errs fieldErrors
	name := strings.TrimSpace(r.Name)
	if name == "" {
		errs.add("name", "Name is required")
	} else if chars := utf8.RuneCountInString(name); chars < 2 || chars > 50 {
		errs.add("name", "Name must be between 2 and 50 characters")
	}
	if !validEmail(r.Email) {
		errs.add("email", "Please provide a valid email")
	}
	if len(r.Password) < 6 {
		errs.add("password", "Password must be at least 6 characters long")
	}
	if r.Role != "" && !domain.ValidRole(r.Role) {
		errs.add("role", "Invalid role specified")
	}
	return errs
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate applies the login rules.
func (r LoginRequest) Validate() []util.FieldError {
	var errs fieldErrors
	if !validEmail(r.Email) {
		errs.add("email", "Please provide a valid email")
	}
	if r.Password == "" {
		errs.add("password", "Password is required")
	}
	return errs
}

// UpdateUserRequest payload for profile updates; nil fields are untouched.
type UpdateUserRequest struct {
	Name     *string      `json:"name"`
	Email    *string      `json:"email"`
	Password *string      `json:"password"`
	Role     *domain.Role `json:"role"`
	IsActive *bool        `json:"isActive"`
}

// Validate applies the update rules.
func (r UpdateUserRequest) Validate() []util.FieldError {
	var errs fieldErrors
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if chars := utf8.RuneCountInString(name); chars < 2 || chars > 50 {
			errs.add("name", "Name must be between 2 and 50 characters")
		}
	}
	if r.Email != nil && !validEmail(*r.Email) {
		errs.add("email", "Please provide a valid email")
	}
	if r.Password != nil && len(*r.Password) < 6 {
		errs.add("password", "Password must be at least 6 characters long")
	}
	if r.Role != nil && !domain.ValidRole(*r.Role) {
		errs.add("role", "Invalid role specified")
	}
	return errs
}

// UserResponse is the account representation. The password hash is never
// part of it.
type UserResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	IsActive  bool        `json:"isActive"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// NewUserResponse maps a domain user to its response form.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
