package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spindit/locker-service/internal/auth"
	"github.com/spindit/locker-service/internal/config"
	"github.com/spindit/locker-service/internal/domain"
	"github.com/spindit/locker-service/internal/repository"
	"github.com/spindit/locker-service/internal/validation"
	apperrors "github.com/spindit/locker-service/pkg/util/errorutil"
)

// ProfileInput carries the editable contact fields of an account.
type ProfileInput struct {
	FullName string          `json:"full_name" validate:"omitempty,min=2,max=200"`
	Address  string          `json:"address" validate:"omitempty,min=4,max=500"`
	Phone    string          `json:"phone" validate:"omitempty,phone"`
	Language domain.Language `json:"language" validate:"omitempty,language"`
}

func (p ProfileInput) toDomain() domain.Profile {
	return domain.Profile{
		FullName: strings.TrimSpace(p.FullName),
		Address:  strings.TrimSpace(p.Address),
		Phone:    strings.TrimSpace(p.Phone),
		Language: p.Language,
	}
}

// SignupInput describes a self-service registration.
type SignupInput struct {
	Email           string       `json:"email" validate:"required,email,max=254"`
	Password        string       `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string       `json:"password_confirm" validate:"required,eqfield=Password"`
	Profile         ProfileInput `json:"profile"`
}

// LoginInput carries credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordInput replaces the caller's password.
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
	NewPasswordConf string `json:"new_password_confirm" validate:"required,eqfield=NewPassword"`
}

// AuthService coordinates registration, login and the caller's own account.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	validator  *validation.Validator
	logger     *zap.Logger
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo  repository.UserRepository
	Validator *validation.Validator
	Logger    *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	v := deps.Validator
	if v == nil {
		v = validation.New()
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL()),
		validator:  v,
		logger:     logger,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Signup registers a guardian account and signs it in.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*domain.User, domain.Token, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, domain.Token{}, err
	}
	email := normalizeEmail(input.Email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.Token{}, apperrors.NewConflict("email already registered", nil)
	} else if !isNotFound(err) {
		return nil, domain.Token{}, apperrors.NewRemoteReadError(err)
	}

	hash, err := hashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, domain.Token{}, err
	}
	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Language:     domain.DefaultLanguage,
	}
	user.ApplyProfile(input.Profile.toDomain())
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.Token{}, apperrors.NewConflict("email already registered", nil)
		}
		return nil, domain.Token{}, apperrors.NewRemoteWriteError(err)
	}

	token, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, domain.Token{}, apperrors.NewInternalError(err)
	}
	s.logger.Info("user signed up", zap.String("user_id", user.ID))
	return user, token, nil
}

// Login authenticates by email and password.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.User, domain.Token, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, domain.Token{}, err
	}
	user, err := s.users.GetByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if isNotFound(err) {
			return nil, domain.Token{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, domain.Token{}, apperrors.NewRemoteReadError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, input.Password); err != nil {
		return nil, domain.Token{}, apperrors.NewUnauthorized("invalid credentials")
	}
	s.upgradeHash(ctx, user, input.Password)
	token, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, domain.Token{}, apperrors.NewInternalError(err)
	}
	return user, token, nil
}

// Logout currently no-ops for stateless JWT approach.
func (s *AuthService) Logout(_ context.Context, _ string) error {
	return nil
}

// CurrentUser resolves a bearer token to its user.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewUnauthorized("user not found")
		}
		return nil, apperrors.NewRemoteReadError(err)
	}
	return user, nil
}

// UpdateProfile changes the caller's contact fields. Empty fields are kept.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, input ProfileInput) (*domain.User, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, readError("user", userID, err)
	}
	user.ApplyProfile(input.toDomain())
	if err := s.users.Update(ctx, user); err != nil {
		return nil, writeError("user", err)
	}
	return user, nil
}

// ChangePassword verifies current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, input ChangePasswordInput) error {
	if err := s.validator.Struct(input); err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return readError("user", userID, err)
	}
	if err := auth.ComparePassword(user.PasswordHash, input.CurrentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	hash, err := hashPassword(input.NewPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return writeError("user", err)
	}
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// upgradeHash rewrites a hash made at an outdated cost. Failures only log;
// the login itself already succeeded.
func (s *AuthService) upgradeHash(ctx context.Context, user *domain.User, plain string) {
	if !auth.NeedsRehash(user.PasswordHash, s.bcryptCost) {
		return
	}
	hash, err := auth.HashPassword(plain, s.bcryptCost)
	if err != nil {
		s.logger.Warn("password rehash failed", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Warn("password rehash not stored", zap.String("user_id", user.ID), zap.Error(err))
	}
}

func hashPassword(plain string, cost int) (string, error) {
	hash, err := auth.HashPassword(plain, cost)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", apperrors.NewValidationError("password is too long", map[string]any{"password": "max 72 bytes"})
	}
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return hash, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
