package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/auth"
	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/repository"
	apperrors "github.com/spec-kit/task-service/pkg/util"
)

// UserService coordinates account administration.
type UserService struct {
	users      repository.UserRepository
	tasks      repository.TaskRepository
	logger     *zap.Logger
	bcryptCost int
}

// NewUserService builds the service.
func NewUserService(users repository.UserRepository, tasks repository.TaskRepository, logger *zap.Logger, bcryptCost int) *UserService {
	return &UserService{users: users, tasks: tasks, logger: logger, bcryptCost: bcryptCost}
}

// UserUpdateInput describes a partial profile update; nil fields are left
// untouched. Role and IsActive are applied only for admin callers.
type UserUpdateInput struct {
	Name     *string
	Email    *string
	Password *string
	Role     *domain.Role
	IsActive *bool
}

// List returns all accounts.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// Get loads one account.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("User")
		}
		return nil, err
	}
	return user, nil
}

// Update mutates a user record already authorized by the self-or-admin
// policy. Only admins may change role and active state; for other callers
// those fields are silently ignored.
func (s *UserService) Update(ctx context.Context, caller *domain.User, target *domain.User, input UserUpdateInput) (*domain.User, error) {
	if input.Name != nil {
		target.Name = *input.Name
	}
	if input.Email != nil {
		email := NormalizeEmail(*input.Email)
		if email != target.Email {
			if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing.ID != target.ID {
				return nil, apperrors.NewConflict("Email already exists")
			} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return nil, err
			}
			target.Email = email
		}
	}
	if input.Password != nil {
		hash, err := auth.HashPassword(*input.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		target.PasswordHash = hash
	}
	if caller.Role == domain.RoleAdmin {
		if input.Role != nil {
			target.Role = *input.Role
		}
		if input.IsActive != nil {
			target.IsActive = *input.IsActive
		}
	}

	if err := s.users.Update(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// Delete removes an account. Self-deletion is forbidden; tasks assigned to
// the deleted user become unassigned while tasks they created are left
// untouched.
func (s *UserService) Delete(ctx context.Context, caller *domain.User, target *domain.User) error {
	if target.ID == caller.ID {
		return apperrors.NewConflict("You cannot delete your own account")
	}

	if err := s.tasks.ReassignAssignee(ctx, target.ID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, target.ID); err != nil {
		return err
	}

	s.logger.Info("user deleted",
		zap.String("user_id", target.ID),
		zap.String("deleted_by", caller.ID))
	return nil
}
