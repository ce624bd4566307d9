package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spindit/locker-service/internal/domain"
	"github.com/spindit/locker-service/internal/repository"
	"github.com/spindit/locker-service/internal/validation"
	apperrors "github.com/spindit/locker-service/pkg/util/errorutil"
)

// LockerInput creates or replaces a locker.
type LockerInput struct {
	Number int                 `json:"number" validate:"required,gt=0"`
	Status domain.LockerStatus `json:"status" validate:"omitempty,locker_status"`
	ZoneID *string             `json:"zone_id" validate:"omitempty,notblank"`
	Note   string              `json:"note" validate:"max=1000"`
}

// LockerService manages the locker inventory.
type LockerService struct {
	store     *repository.Store
	validator *validation.Validator
	logger    *zap.Logger
}

// LockerDependencies bundles collaborators.
type LockerDependencies struct {
	Store     *repository.Store
	Validator *validation.Validator
	Logger    *zap.Logger
}

// NewLockerService creates the service.
func NewLockerService(deps LockerDependencies) *LockerService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	v := deps.Validator
	if v == nil {
		v = validation.New()
	}
	return &LockerService{store: deps.Store, validator: v, logger: logger}
}

// List returns a page of lockers ordered by number.
func (s *LockerService) List(ctx context.Context, filter repository.LockerFilter) (domain.Page[domain.Locker], error) {
	page, err := s.store.Lockers.List(ctx, filter)
	if err != nil {
		return domain.Page[domain.Locker]{}, listError(err)
	}
	return page, nil
}

// Get returns one locker.
func (s *LockerService) Get(ctx context.Context, id string) (*domain.Locker, error) {
	locker, err := s.store.Lockers.GetByID(ctx, id)
	if err != nil {
		return nil, readError("locker", id, err)
	}
	return locker, nil
}

// Create adds a locker. Status defaults to free.
func (s *LockerService) Create(ctx context.Context, input LockerInput) (*domain.Locker, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	if err := s.checkZone(ctx, input.ZoneID); err != nil {
		return nil, err
	}
	locker := &domain.Locker{
		Number: input.Number,
		Status: input.Status,
		ZoneID: trimmedID(input.ZoneID),
		Note:   strings.TrimSpace(input.Note),
	}
	if locker.Status == "" {
		locker.Status = domain.LockerStatusFree
	}
	if err := s.store.Lockers.Create(ctx, locker); err != nil {
		return nil, lockerWriteError(locker.Number, err)
	}
	return locker, nil
}

// Update replaces the locker fields. Status changes made here bypass the
// reconciler, which is how staff mark lockers occupied or in maintenance.
func (s *LockerService) Update(ctx context.Context, id string, input LockerInput) (*domain.Locker, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	locker, err := s.store.Lockers.GetByID(ctx, id)
	if err != nil {
		return nil, readError("locker", id, err)
	}
	if err := s.checkZone(ctx, input.ZoneID); err != nil {
		return nil, err
	}
	locker.Number = input.Number
	if input.Status != "" {
		locker.Status = input.Status
	}
	locker.ZoneID = trimmedID(input.ZoneID)
	locker.Note = strings.TrimSpace(input.Note)
	if err := s.store.Lockers.Update(ctx, locker); err != nil {
		return nil, lockerWriteError(locker.Number, err)
	}
	return locker, nil
}

// Delete removes a locker that no assignment references.
func (s *LockerService) Delete(ctx context.Context, id string) error {
	if _, err := s.store.Lockers.GetByID(ctx, id); err != nil {
		return readError("locker", id, err)
	}
	holder, err := s.store.Assignments.GetByLocker(ctx, id)
	switch {
	case err == nil:
		return apperrors.NewConflict("locker is assigned to a request", map[string]any{"request_id": holder.RequestID})
	case !isNotFound(err):
		return apperrors.NewRemoteReadError(err)
	}
	if err := s.store.Lockers.Delete(ctx, id); err != nil {
		return lockerWriteError(0, err)
	}
	return nil
}

func (s *LockerService) checkZone(ctx context.Context, zoneID *string) error {
	id := trimmedID(zoneID)
	if id == nil {
		return nil
	}
	if _, err := s.store.Zones.GetByID(ctx, *id); err != nil {
		if isNotFound(err) {
			return fieldError("zone_id", "zone_id does not exist")
		}
		return apperrors.NewRemoteReadError(err)
	}
	return nil
}

func lockerWriteError(number int, err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperrors.NewConflict("locker number already exists", map[string]any{"number": number})
	}
	if errors.Is(err, repository.ErrReferenced) {
		return apperrors.NewConflict("locker is still referenced", nil)
	}
	return writeError("locker", err)
}

// trimmedID returns nil for a missing or blank id.
func trimmedID(id *string) *string {
	if id == nil {
		return nil
	}
	v := strings.TrimSpace(*id)
	if v == "" {
		return nil
	}
	return &v
}
