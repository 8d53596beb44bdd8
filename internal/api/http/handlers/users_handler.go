package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-service/internal/api/dto"
	"github.com/spec-kit/task-service/internal/auth"
	"github.com/spec-kit/task-service/internal/service"
	"github.com/spec-kit/task-service/pkg/util"
)

// UsersHandler exposes account administration endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// List handles GET /api/users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext())
	if err != nil {
		return err
	}

	responses := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, dto.NewUserResponse(&users[i]))
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"results": len(responses),
		"data":    fiber.Map{"users": responses},
	})
}

// Get handles GET /api/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	target, ok := auth.TargetUserFromContext(c)
	if !ok {
		return util.NewNotFound("User")
	}
	return c.JSON(fiber.Map{
		"status": "success",
		"data":   fiber.Map{"user": dto.NewUserResponse(target)},
	})
}

// Update handles PUT /api/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	caller, ok := auth.CurrentUser(c)
	if !ok {
		return util.NewUnauthorized("Access denied. No token provided.")
	}
	target, ok := auth.TargetUserFromContext(c)
	if !ok {
		return util.NewNotFound("User")
	}

	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("Invalid request body")
	}
	if errs := req.Validate(); len(errs) > 0 {
		return util.NewValidationFailed(errs)
	}

	updated, err := h.users.Update(c.UserContext(), caller, target, service.UserUpdateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		IsActive: req.IsActive,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "User updated successfully",
		"data":    fiber.Map{"user": dto.NewUserResponse(updated)},
	})
}

// Delete handles DELETE /api/users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	caller, ok := auth.CurrentUser(c)
	if !ok {
		return util.NewUnauthorized("Access denied. No token provided.")
	}

	target, err := h.users.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	if err := h.users.Delete(c.UserContext(), caller, target); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "User deleted successfully",
	})
}
