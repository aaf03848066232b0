package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"tleenotes/internal/auth"
	apperrors "tleenotes/internal/errors"
	"tleenotes/internal/metrics"
	"tleenotes/internal/model"
	"tleenotes/internal/repository"
)

const bcryptCost = 10

// BootstrapInput describes the first administrator account.
type BootstrapInput struct {
	Name     string
	Email    string
	Username string
	Password string
}

// AuthService handles authentication operations.
type AuthService interface {
	// Authenticate checks credentials; login may be an email or a username.
	Authenticate(ctx context.Context, login, password string) (*model.User, error)
	Login(ctx context.Context, login, password string) (accessToken, refreshToken string, user *model.User, err error)
	RefreshToken(ctx context.Context, refreshToken string) (accessToken string, err error)
	Logout(ctx context.Context, refreshToken string) error
	// Bootstrap creates the first admin and refuses once any account exists.
	Bootstrap(ctx context.Context, in BootstrapInput) (*model.User, error)
	// Principal loads the active account a verified token belongs to.
	Principal(ctx context.Context, claims *auth.Claims) (*model.User, error)
}

type authService struct {
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	log        zerolog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo repository.UserRepository, jwtService *auth.JWTService, tokenStore auth.TokenStoreInterface, log zerolog.Logger) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtService: jwtService,
		tokenStore: tokenStore,
		log:        log.With().Str("component", "auth").Logger(),
	}
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password must be at most 72 bytes", apperrors.ErrValidation)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *authService) Authenticate(ctx context.Context, login, password string) (*model.User, error) {
	user, err := s.userRepo.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrInactiveUser
	}
	return user, nil
}

// Login authenticates an account and returns access and refresh tokens.
func (s *authService) Login(ctx context.Context, login, password string) (string, string, *model.User, error) {
	user, err := s.Authenticate(ctx, login, password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			metrics.AuthLoginsTotal.WithLabelValues("invalid_credentials").Inc()
		case errors.Is(err, apperrors.ErrInactiveUser):
			metrics.AuthLoginsTotal.WithLabelValues("inactive").Inc()
		}
		s.log.Warn().Err(err).Str("login", login).Msg("login rejected")
		return "", "", nil, err
	}

	accessToken, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return "", "", nil, fmt.Errorf("generate access token: %w", err)
	}

	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(user)
	if err != nil {
		return "", "", nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, user.ID, auth.RefreshTokenExpiry); err != nil {
		return "", "", nil, fmt.Errorf("store refresh token: %w", err)
	}

	metrics.AuthLoginsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("user_id", user.ID.String()).Msg("user logged in")
	return accessToken, refreshToken, user, nil
}

// RefreshToken validates a refresh token and returns a new access token
// carrying the account's current role.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", apperrors.ErrInvalidToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return "", apperrors.ErrInvalidToken
	}

	storedUserID, err := s.tokenStore.GetRefreshToken(ctx, claims.ID)
	if err != nil || storedUserID != userID {
		return "", apperrors.ErrInvalidToken
	}

	user, err := s.Principal(ctx, claims)
	if err != nil {
		return "", err
	}

	accessToken, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return accessToken, nil
}

// Logout invalidates a refresh token.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	tokenID, err := s.jwtService.ExtractTokenID(refreshToken)
	if err != nil {
		return apperrors.ErrInvalidToken
	}
	return s.tokenStore.DeleteRefreshToken(ctx, tokenID)
}

func (s *authService) Bootstrap(ctx context.Context, in BootstrapInput) (*model.User, error) {
	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil, apperrors.ErrAdminExists
	}

	hashed, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	slot := model.BootstrapSlotAdmin
	user := &model.User{
		Email:          in.Email,
		Username:       in.Username,
		Name:           in.Name,
		HashedPassword: hashed,
		Role:           model.RoleAdmin,
		IsActive:       true,
		IsSuperuser:    true,
		BootstrapSlot:  &slot,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrUserExists) {
			// The slot index rejects every bootstrap after the first, even
			// when each one observed an empty table.
			return nil, apperrors.ErrAdminExists
		}
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID.String()).Msg("admin bootstrapped")
	return user, nil
}

func (s *authService) Principal(ctx context.Context, claims *auth.Claims) (*model.User, error) {
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrInactiveUser
	}
	return user, nil
}
