package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spindit/locker-service/internal/domain"
	"github.com/spindit/locker-service/internal/repository"
	"github.com/spindit/locker-service/internal/validation"
	apperrors "github.com/spindit/locker-service/pkg/util/errorutil"
)

// UserListInput filters the staff user listing.
type UserListInput struct {
	domain.PageRequest
	Search      string
	StaffOnly   bool
	CreatedFrom *time.Time
}

// UserCreateInput is a staff-created account.
type UserCreateInput struct {
	Email    string          `json:"email" validate:"required,email,max=254"`
	Password string          `json:"password" validate:"required,min=8,max=72"`
	FullName string          `json:"full_name" validate:"omitempty,min=2,max=200"`
	Address  string          `json:"address" validate:"omitempty,min=4,max=500"`
	Phone    string          `json:"phone" validate:"omitempty,phone"`
	Language domain.Language `json:"language" validate:"omitempty,language"`
	IsStaff  bool            `json:"is_staff"`
}

// UserUpdateInput changes profile fields and the staff flag of an account.
type UserUpdateInput struct {
	Email    *string          `json:"email" validate:"omitempty,email,max=254"`
	FullName *string          `json:"full_name" validate:"omitempty,min=2,max=200"`
	Address  *string          `json:"address" validate:"omitempty,min=4,max=500"`
	Phone    *string          `json:"phone" validate:"omitempty,phone"`
	Language *domain.Language `json:"language" validate:"omitempty,language"`
	IsStaff  *bool            `json:"is_staff"`
}

// UserService manages accounts on behalf of staff.
type UserService struct {
	store      *repository.Store
	validator  *validation.Validator
	logger     *zap.Logger
	bcryptCost int
}

// UserDependencies bundles collaborators.
type UserDependencies struct {
	Store      *repository.Store
	Validator  *validation.Validator
	Logger     *zap.Logger
	BcryptCost int
}

// NewUserService creates the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	v := deps.Validator
	if v == nil {
		v = validation.New()
	}
	return &UserService{store: deps.Store, validator: v, logger: logger, bcryptCost: deps.BcryptCost}
}

// List returns a page of users.
func (s *UserService) List(ctx context.Context, input UserListInput) (domain.Page[domain.User], error) {
	filter := repository.UserFilter{
		PageRequest: input.PageRequest,
		Search:      input.Search,
		CreatedFrom: input.CreatedFrom,
	}
	if input.StaffOnly {
		staff := true
		filter.IsStaff = &staff
	}
	page, err := s.store.Users.List(ctx, filter)
	if err != nil {
		return domain.Page[domain.User]{}, listError(err)
	}
	return page, nil
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, readError("user", id, err)
	}
	return user, nil
}

// Create adds an account with a password chosen by staff.
func (s *UserService) Create(ctx context.Context, input UserCreateInput) (*domain.User, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	hash, err := hashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Email:        normalizeEmail(input.Email),
		PasswordHash: hash,
		Language:     domain.DefaultLanguage,
		IsStaff:      input.IsStaff,
	}
	user.ApplyProfile(domain.Profile{
		FullName: strings.TrimSpace(input.FullName),
		Address:  strings.TrimSpace(input.Address),
		Phone:    strings.TrimSpace(input.Phone),
		Language: input.Language,
	})
	if err := s.store.Users.Create(ctx, user); err != nil {
		return nil, userWriteError(err)
	}
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.Bool("is_staff", user.IsStaff))
	return user, nil
}

// Update applies the provided fields.
func (s *UserService) Update(ctx context.Context, id string, input UserUpdateInput) (*domain.User, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	user, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, readError("user", id, err)
	}
	if input.Email != nil {
		user.Email = normalizeEmail(*input.Email)
	}
	if input.FullName != nil {
		user.FullName = strings.TrimSpace(*input.FullName)
	}
	if input.Address != nil {
		user.Address = strings.TrimSpace(*input.Address)
	}
	if input.Phone != nil {
		user.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Language != nil {
		user.Language = *input.Language
	}
	if input.IsStaff != nil {
		user.IsStaff = *input.IsStaff
	}
	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, userWriteError(err)
	}
	return user, nil
}

// Delete removes an account that owns no requests and no children.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if _, err := s.store.Users.GetByID(ctx, id); err != nil {
		return readError("user", id, err)
	}
	owned, err := s.store.Requests.List(ctx, repository.RequestFilter{
		PageRequest: domain.PageRequest{Page: 1, PerPage: 1},
		UserID:      &id,
	})
	if err != nil {
		return listError(err)
	}
	if owned.TotalItems > 0 {
		return apperrors.NewConflict("user still owns requests", map[string]any{"requests": owned.TotalItems})
	}
	children, err := s.store.Children.ListByParent(ctx, id)
	if err != nil {
		return listError(err)
	}
	if len(children) > 0 {
		return apperrors.NewConflict("user still has children", map[string]any{"children": len(children)})
	}
	if err := s.store.Users.Delete(ctx, id); err != nil {
		return writeError("user", err)
	}
	return nil
}

func userWriteError(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperrors.NewConflict("email already registered", nil)
	}
	return writeError("user", err)
}
