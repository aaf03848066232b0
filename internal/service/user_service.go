package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tleenotes/internal/auth"
	apperrors "tleenotes/internal/errors"
	"tleenotes/internal/model"
	"tleenotes/internal/repository"
)

// CreateUserInput is the payload for a new account. An empty Role means user.
type CreateUserInput struct {
	Email    string
	Username string
	Name     string
	Password string
	Role     string
}

// UpdateUserInput is a partial update; nil fields are left unchanged.
type UpdateUserInput struct {
	Email    *string
	Username *string
	Name     *string
	Password *string
	Role     *string
	IsActive *bool
}

// UserService exposes account management guarded by the role policy.
// actor is the authenticated account performing the call.
type UserService interface {
	Create(ctx context.Context, actor *model.User, in CreateUserInput) (*model.User, error)
	Get(ctx context.Context, actor *model.User, id uuid.UUID) (*model.User, error)
	List(ctx context.Context, actor *model.User) ([]model.User, error)
	Update(ctx context.Context, actor *model.User, id uuid.UUID, in UpdateUserInput) (*model.User, error)
	Delete(ctx context.Context, actor *model.User, id uuid.UUID) error
}

type userService struct {
	repo repository.UserRepository
	log  zerolog.Logger
}

// NewUserService builds a UserService with repository.
func NewUserService(repo repository.UserRepository, log zerolog.Logger) UserService {
	return &userService{
		repo: repo,
		log:  log.With().Str("component", "users").Logger(),
	}
}

func (s *userService) Create(ctx context.Context, actor *model.User, in CreateUserInput) (*model.User, error) {
	role := model.RoleUser
	if in.Role != "" {
		parsed, err := model.ParseRole(in.Role)
		if err != nil {
			return nil, err
		}
		role = parsed
	}
	if err := auth.CanAct(actor.Role, role, auth.ActionCreate); err != nil {
		return nil, err
	}

	hashed, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Email:          in.Email,
		Username:       in.Username,
		Name:           in.Name,
		HashedPassword: hashed,
		Role:           role,
		IsActive:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("actor_id", actor.ID.String()).
		Str("user_id", user.ID.String()).
		Str("role", string(role)).
		Msg("user created")
	return user, nil
}

func (s *userService) Get(ctx context.Context, actor *model.User, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CanAct(actor.Role, user.Role, auth.ActionRead); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) List(ctx context.Context, actor *model.User) ([]model.User, error) {
	if err := auth.CanAct(actor.Role, model.RoleUser, auth.ActionList); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

func nonBlank(field string, v *string) (string, error) {
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return "", fmt.Errorf("%w: %s must not be empty", apperrors.ErrValidation, field)
	}
	return trimmed, nil
}

func (s *userService) Update(ctx context.Context, actor *model.User, id uuid.UUID, in UpdateUserInput) (*model.User, error) {
	target, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CanAct(actor.Role, target.Role, auth.ActionUpdate); err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	for _, f := range []struct {
		column string
		value  *string
	}{
		{"email", in.Email},
		{"username", in.Username},
		{"name", in.Name},
	} {
		if f.value == nil {
			continue
		}
		v, err := nonBlank(f.column, f.value)
		if err != nil {
			return nil, err
		}
		fields[f.column] = v
	}

	if in.Password != nil {
		if _, err := nonBlank("password", in.Password); err != nil {
			return nil, err
		}
		hashed, err := hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		fields["hashed_password"] = hashed
	}

	if in.Role != nil {
		role, err := model.ParseRole(*in.Role)
		if err != nil {
			return nil, err
		}
		if role != target.Role {
			// Promotion is checked against the role being granted as well.
			if err := auth.CanAct(actor.Role, role, auth.ActionUpdate); err != nil {
				return nil, err
			}
		}
		fields["role"] = role
	}

	if in.IsActive != nil {
		fields["is_active"] = *in.IsActive
	}

	updated, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("actor_id", actor.ID.String()).
		Str("user_id", id.String()).
		Int("fields", len(fields)).
		Msg("user updated")
	return updated, nil
}

func (s *userService) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	target, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.CanAct(actor.Role, target.Role, auth.ActionDelete); err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if !deleted {
		return apperrors.ErrUserNotFound
	}

	s.log.Info().
		Str("actor_id", actor.ID.String()).
		Str("user_id", id.String()).
		Msg("user deleted")
	return nil
}
