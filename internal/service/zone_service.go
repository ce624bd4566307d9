package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spindit/locker-service/internal/blob"
	"github.com/spindit/locker-service/internal/domain"
	"github.com/spindit/locker-service/internal/repository"
	"github.com/spindit/locker-service/internal/validation"
	apperrors "github.com/spindit/locker-service/pkg/util/errorutil"
)

// ZoneInput creates or replaces a zone.
type ZoneInput struct {
	Name        string   `json:"name" validate:"required,notblank,min=2,max=100"`
	Description string   `json:"description" validate:"max=1000"`
	ClassTags   []string `json:"class_tags" validate:"max=20,dive,max=32"`
}

// tags trims the class tags and drops duplicates, keeping the first spelling.
func (in ZoneInput) tags() []string {
	out := make([]string, 0, len(in.ClassTags))
	seen := map[string]bool{}
	for _, t := range in.ClassTags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

// ZoneService manages zones and their map images.
type ZoneService struct {
	store      *repository.Store
	blobs      blob.Store
	validator  *validation.Validator
	logger     *zap.Logger
	presignTTL time.Duration
	maxUpload  int64
}

// ZoneDependencies bundles collaborators.
type ZoneDependencies struct {
	Store          *repository.Store
	Blobs          blob.Store
	Validator      *validation.Validator
	Logger         *zap.Logger
	PresignTTL     time.Duration
	MaxUploadBytes int64
}

// NewZoneService creates the service.
func NewZoneService(deps ZoneDependencies) *ZoneService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	v := deps.Validator
	if v == nil {
		v = validation.New()
	}
	blobs := deps.Blobs
	if blobs == nil {
		blobs = blob.NewMemory()
	}
	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 5 << 20
	}
	return &ZoneService{
		store:      deps.Store,
		blobs:      blobs,
		validator:  v,
		logger:     logger,
		presignTTL: deps.PresignTTL,
		maxUpload:  maxUpload,
	}
}

// List returns a page of zones ordered by name.
func (s *ZoneService) List(ctx context.Context, filter repository.ZoneFilter) (domain.Page[domain.Zone], error) {
	page, err := s.store.Zones.List(ctx, filter)
	if err != nil {
		return domain.Page[domain.Zone]{}, listError(err)
	}
	return page, nil
}

// Get returns one zone.
func (s *ZoneService) Get(ctx context.Context, id string) (*domain.Zone, error) {
	zone, err := s.store.Zones.GetByID(ctx, id)
	if err != nil {
		return nil, readError("zone", id, err)
	}
	return zone, nil
}

// Create adds a zone. Names are unique.
func (s *ZoneService) Create(ctx context.Context, input ZoneInput) (*domain.Zone, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	zone := &domain.Zone{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		ClassTags:   input.tags(),
	}
	if err := s.store.Zones.Create(ctx, zone); err != nil {
		return nil, zoneWriteError(err)
	}
	return zone, nil
}

// Update replaces name and description.
func (s *ZoneService) Update(ctx context.Context, id string, input ZoneInput) (*domain.Zone, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	zone, err := s.store.Zones.GetByID(ctx, id)
	if err != nil {
		return nil, readError("zone", id, err)
	}
	zone.Name = strings.TrimSpace(input.Name)
	zone.Description = strings.TrimSpace(input.Description)
	zone.ClassTags = input.tags()
	if err := s.store.Zones.Update(ctx, zone); err != nil {
		return nil, zoneWriteError(err)
	}
	return zone, nil
}

// Delete removes a zone that no locker and no request references.
func (s *ZoneService) Delete(ctx context.Context, id string) error {
	zone, err := s.store.Zones.GetByID(ctx, id)
	if err != nil {
		return readError("zone", id, err)
	}
	one := domain.PageRequest{Page: 1, PerPage: 1}
	lockers, err := s.store.Lockers.List(ctx, repository.LockerFilter{PageRequest: one, ZoneID: &id})
	if err != nil {
		return listError(err)
	}
	if lockers.TotalItems > 0 {
		return apperrors.NewConflict("zone still has lockers", map[string]any{"lockers": lockers.TotalItems})
	}
	requests, err := s.store.Requests.List(ctx, repository.RequestFilter{PageRequest: one, PreferredZoneID: &id})
	if err != nil {
		return listError(err)
	}
	if requests.TotalItems > 0 {
		return apperrors.NewConflict("zone is referenced by requests", map[string]any{"requests": requests.TotalItems})
	}
	if err := s.store.Zones.Delete(ctx, id); err != nil {
		return zoneWriteError(err)
	}
	s.dropMap(ctx, zone.MapKey)
	return nil
}

// UploadMap stores a floor plan image for the zone, replacing any previous one.
func (s *ZoneService) UploadMap(ctx context.Context, id string, r io.Reader, contentType string) (*domain.Zone, error) {
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return nil, apperrors.NewValidationError("map must be an image", map[string]any{"content_type": contentType})
	}
	zone, err := s.store.Zones.GetByID(ctx, id)
	if err != nil {
		return nil, readError("zone", id, err)
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxUpload+1))
	if err != nil {
		return nil, apperrors.NewValidationError("could not read upload", nil)
	}
	if int64(len(data)) > s.maxUpload {
		return nil, apperrors.NewValidationError("map image is too large", map[string]any{"max_bytes": s.maxUpload})
	}
	if len(data) == 0 {
		return nil, apperrors.NewValidationError("map image is empty", nil)
	}

	key := "zones/" + zone.ID + "/map-" + uuid.NewString()
	if _, err := s.blobs.Put(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return nil, apperrors.NewRemoteWriteError(err)
	}
	previous := zone.MapKey
	zone.MapKey = key
	if err := s.store.Zones.Update(ctx, zone); err != nil {
		s.dropMap(ctx, key)
		return nil, zoneWriteError(err)
	}
	s.dropMap(ctx, previous)
	return zone, nil
}

// MapURL returns a time-limited URL for the zone map. It returns an empty
// string when the blob driver cannot presign; callers then use OpenMap.
func (s *ZoneService) MapURL(ctx context.Context, id string) (string, error) {
	zone, err := s.mapZone(ctx, id)
	if err != nil {
		return "", err
	}
	url, err := s.blobs.PresignURL(ctx, zone.MapKey, s.presignTTL)
	if errors.Is(err, blob.ErrUnsupported) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.NewRemoteReadError(err)
	}
	return url, nil
}

// OpenMap streams the zone map. The caller closes the reader.
func (s *ZoneService) OpenMap(ctx context.Context, id string) (blob.Info, io.ReadCloser, error) {
	zone, err := s.mapZone(ctx, id)
	if err != nil {
		return blob.Info{}, nil, err
	}
	info, rc, err := s.blobs.Get(ctx, zone.MapKey)
	if errors.Is(err, blob.ErrNotFound) {
		return blob.Info{}, nil, apperrors.NewNotFound("zone map", map[string]any{"id": id})
	}
	if err != nil {
		return blob.Info{}, nil, apperrors.NewRemoteReadError(err)
	}
	return info, rc, nil
}

func (s *ZoneService) mapZone(ctx context.Context, id string) (*domain.Zone, error) {
	zone, err := s.store.Zones.GetByID(ctx, id)
	if err != nil {
		return nil, readError("zone", id, err)
	}
	if zone.MapKey == "" {
		return nil, apperrors.NewNotFound("zone map", map[string]any{"id": id})
	}
	return zone, nil
}

func (s *ZoneService) dropMap(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, blob.ErrNotFound) {
		s.logger.Warn("failed to delete zone map", zap.String("key", key), zap.Error(err))
	}
}

func zoneWriteError(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperrors.NewConflict("zone name already exists", nil)
	}
	if errors.Is(err, repository.ErrReferenced) {
		return apperrors.NewConflict("zone is still referenced", nil)
	}
	return writeError("zone", err)
}
