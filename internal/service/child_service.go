package service

import (
	"context"
	"strings"

	"github.com/spindit/locker-service/internal/domain"
	"github.com/spindit/locker-service/internal/repository"
	"github.com/spindit/locker-service/internal/validation"
)

// ChildInput registers a student under the caller.
type ChildInput struct {
	FullName string `json:"full_name" validate:"required,notblank,min=2,max=200"`
	Class    string `json:"class" validate:"max=50"`
}

// ChildService manages the students a guardian registered.
type ChildService struct {
	children  repository.ChildRepository
	validator *validation.Validator
}

// NewChildService creates the service.
func NewChildService(children repository.ChildRepository, v *validation.Validator) *ChildService {
	if v == nil {
		v = validation.New()
	}
	return &ChildService{children: children, validator: v}
}

// List returns the parent's children ordered by name.
func (s *ChildService) List(ctx context.Context, parentID string) ([]domain.Child, error) {
	items, err := s.children.ListByParent(ctx, parentID)
	if err != nil {
		return nil, listError(err)
	}
	if items == nil {
		items = []domain.Child{}
	}
	return items, nil
}

// Create adds a child owned by parentID.
func (s *ChildService) Create(ctx context.Context, parentID string, input ChildInput) (*domain.Child, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	child := &domain.Child{
		ParentID: parentID,
		FullName: strings.TrimSpace(input.FullName),
		Class:    strings.TrimSpace(input.Class),
	}
	if err := s.children.Create(ctx, child); err != nil {
		return nil, writeError("child", err)
	}
	return child, nil
}
