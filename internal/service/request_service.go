package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spindit/locker-service/internal/domain"
	"github.com/spindit/locker-service/internal/events"
	"github.com/spindit/locker-service/internal/repository"
	"github.com/spindit/locker-service/internal/validation"
	apperrors "github.com/spindit/locker-service/pkg/util/errorutil"
)

// RequestInput carries the form fields of a locker request.
type RequestInput struct {
	RequesterName    string     `json:"requester_name" validate:"required,notblank,min=2,max=200"`
	RequesterAddress string     `json:"requester_address" validate:"required,notblank,min=4,max=500"`
	RequesterPhone   string     `json:"requester_phone" validate:"required,phone"`
	StudentName      string     `json:"student_name" validate:"required,notblank,min=2,max=200"`
	StudentClass     string     `json:"student_class" validate:"required,notblank,max=50"`
	SchoolYear       string     `json:"school_year" validate:"required,schoolyear"`
	PreferredZoneID  *string    `json:"preferred_zone_id"`
	PreferredLocker  string     `json:"preferred_locker" validate:"max=100"`
	SubmittedAt      *time.Time `json:"submitted_at"`
}

// StaffRequestInput is a request created or edited by staff on behalf of a user.
type StaffRequestInput struct {
	RequestInput
	UserID string               `json:"user_id" validate:"required,notblank"`
	Status domain.RequestStatus `json:"status" validate:"omitempty,request_status"`
}

// StatusInput changes the status of one or more requests.
type StatusInput struct {
	Status domain.RequestStatus `json:"status" validate:"required,request_status"`
}

// BulkStatusInput changes the status of several requests.
type BulkStatusInput struct {
	IDs    []string             `json:"ids" validate:"required,min=1,max=200,dive,required"`
	Status domain.RequestStatus `json:"status" validate:"required,request_status"`
}

// BulkDeleteInput deletes several requests.
type BulkDeleteInput struct {
	IDs []string `json:"ids" validate:"required,min=1,max=200,dive,required"`
}

// BulkFailure reports one id a bulk operation could not process.
type BulkFailure struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// BulkResult summarizes a bulk operation. Ids are processed independently.
type BulkResult struct {
	Succeeded []string      `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

func (r *BulkResult) record(id string, err error) {
	if err == nil {
		r.Succeeded = append(r.Succeeded, id)
		return
	}
	domainErr := apperrors.ToDomainError(err)
	r.Failed = append(r.Failed, BulkFailure{ID: id, Code: domainErr.Code, Error: domainErr.Message})
}

// RequestService coordinates the locker request lifecycle.
type RequestService struct {
	store       *repository.Store
	assignments *AssignmentService
	dispatcher  events.Dispatcher
	validator   *validation.Validator
	logger      *zap.Logger
	now         func() time.Time
}

// RequestDependencies bundles collaborators.
type RequestDependencies struct {
	Store       *repository.Store
	Assignments *AssignmentService
	Dispatcher  events.Dispatcher
	Validator   *validation.Validator
	Logger      *zap.Logger
}

// NewRequestService creates the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	v := deps.Validator
	if v == nil {
		v = validation.New()
	}
	return &RequestService{
		store:       deps.Store,
		assignments: deps.Assignments,
		dispatcher:  deps.Dispatcher,
		validator:   v,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create submits a pending request owned by userID.
func (s *RequestService) Create(ctx context.Context, userID string, input RequestInput) (*domain.Request, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	return s.create(ctx, userID, userID, input, domain.RequestStatusPending)
}

// CreateForUser lets staff submit a request for any user.
func (s *RequestService) CreateForUser(ctx context.Context, actorID string, input StaffRequestInput) (*domain.Request, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	userID := strings.TrimSpace(input.UserID)
	if _, err := s.store.Users.GetByID(ctx, userID); err != nil {
		if isNotFound(err) {
			return nil, fieldError("user_id", "user_id does not exist")
		}
		return nil, apperrors.NewRemoteReadError(err)
	}
	status := input.Status
	if status == "" {
		status = domain.RequestStatusPending
	}
	return s.create(ctx, actorID, userID, input.RequestInput, status)
}

func (s *RequestService) create(ctx context.Context, actorID, userID string, input RequestInput, status domain.RequestStatus) (*domain.Request, error) {
	zoneID, err := s.checkZone(ctx, input.PreferredZoneID)
	if err != nil {
		return nil, err
	}
	request := &domain.Request{
		UserID:          userID,
		PreferredZoneID: zoneID,
		Status:          status,
		SubmittedAt:     s.now(),
	}
	applyRequestInput(request, input)
	if err := s.store.Requests.Create(ctx, request); err != nil {
		return nil, writeError("request", err)
	}
	s.logger.Info("request created", zap.String("request_id", request.ID), zap.String("user_id", userID))

	s.publish(ctx, events.New(events.EventRequestCreated, request.ID, &actorID, events.RequestCreatedPayload{
		UserID:          userID,
		PreferredZoneID: request.PreferredZoneID,
		PreferredLocker: request.PreferredLocker,
	}))
	return s.reload(ctx, request)
}

// ListOwn returns the caller's requests, newest first.
func (s *RequestService) ListOwn(ctx context.Context, userID string, filter repository.RequestFilter) (domain.Page[domain.Request], error) {
	filter.UserID = &userID
	return s.List(ctx, filter)
}

// GetOwn returns one of the caller's requests. Other users' requests are reported as missing.
func (s *RequestService) GetOwn(ctx context.Context, userID, id string) (*domain.Request, error) {
	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.UserID != userID {
		return nil, apperrors.NewNotFound("request", map[string]any{"id": id})
	}
	return request, nil
}

// Cancel marks the caller's own request cancelled. Cancelling twice is a no-op.
func (s *RequestService) Cancel(ctx context.Context, userID, id string) (*domain.Request, error) {
	request, err := s.GetOwn(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.setStatus(ctx, userID, request, domain.RequestStatusCancelled)
}

// List returns a page of requests, newest first.
func (s *RequestService) List(ctx context.Context, filter repository.RequestFilter) (domain.Page[domain.Request], error) {
	page, err := s.store.Requests.List(ctx, filter)
	if err != nil {
		return domain.Page[domain.Request]{}, listError(err)
	}
	return page, nil
}

// Get returns one request.
func (s *RequestService) Get(ctx context.Context, id string) (*domain.Request, error) {
	request, err := s.store.Requests.GetByID(ctx, id)
	if err != nil {
		return nil, readError("request", id, err)
	}
	return request, nil
}

// Update replaces the form fields of a request. A status in the input goes
// through the same path as UpdateStatus.
func (s *RequestService) Update(ctx context.Context, actorID, id string, input StaffRequestInput) (*domain.Request, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	zoneID, err := s.checkZone(ctx, input.PreferredZoneID)
	if err != nil {
		return nil, err
	}
	userID := strings.TrimSpace(input.UserID)
	if userID != request.UserID {
		if _, err := s.store.Users.GetByID(ctx, userID); err != nil {
			if isNotFound(err) {
				return nil, fieldError("user_id", "user_id does not exist")
			}
			return nil, apperrors.NewRemoteReadError(err)
		}
		request.UserID = userID
	}
	applyRequestInput(request, input.RequestInput)
	request.PreferredZoneID = zoneID
	if err := s.store.Requests.Update(ctx, request); err != nil {
		return nil, writeError("request", err)
	}
	if input.Status != "" && input.Status != request.Status {
		return s.setStatus(ctx, actorID, request, input.Status)
	}
	return request, nil
}

// UpdateStatus moves a request to status and publishes request_status_changed.
// Setting the current status again writes nothing.
func (s *RequestService) UpdateStatus(ctx context.Context, actorID, id string, input StatusInput) (*domain.Request, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.setStatus(ctx, actorID, request, input.Status)
}

// BulkUpdateStatus applies UpdateStatus to every id.
func (s *RequestService) BulkUpdateStatus(ctx context.Context, actorID string, input BulkStatusInput) (BulkResult, error) {
	if err := s.validator.Struct(input); err != nil {
		return BulkResult{}, err
	}
	result := BulkResult{Succeeded: []string{}, Failed: []BulkFailure{}}
	for _, id := range dedupe(input.IDs) {
		_, err := s.UpdateStatus(ctx, actorID, id, StatusInput{Status: input.Status})
		result.record(id, err)
	}
	return result, nil
}

// Delete releases the request's locker and removes the request in one transaction.
// The release is announced only after that transaction commits.
func (s *RequestService) Delete(ctx context.Context, id string) error {
	var release *pendingChange
	err := s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.Requests.GetByID(ctx, id); err != nil {
			return readError("request", id, err)
		}
		change, err := s.assignments.reconcileWithin(ctx, id, nil)
		if err != nil {
			return err
		}
		release = change
		if err := s.store.Requests.Delete(ctx, id); err != nil {
			return writeError("request", err)
		}
		return nil
	})
	if release != nil {
		release.finish(ctx, err == nil)
	}
	if err != nil {
		return writeError("request", err)
	}
	s.logger.Info("request deleted", zap.String("request_id", id))
	return nil
}

// BulkDelete applies Delete to every id.
func (s *RequestService) BulkDelete(ctx context.Context, input BulkDeleteInput) (BulkResult, error) {
	if err := s.validator.Struct(input); err != nil {
		return BulkResult{}, err
	}
	result := BulkResult{Succeeded: []string{}, Failed: []BulkFailure{}}
	for _, id := range dedupe(input.IDs) {
		result.record(id, s.Delete(ctx, id))
	}
	return result, nil
}

func (s *RequestService) setStatus(ctx context.Context, actorID string, request *domain.Request, status domain.RequestStatus) (*domain.Request, error) {
	old := request.Status
	if old == status {
		return request, nil
	}
	request.Status = status
	if err := s.store.Requests.Update(ctx, request); err != nil {
		return nil, writeError("request", err)
	}
	s.logger.Info("request status changed",
		zap.String("request_id", request.ID),
		zap.String("old_status", string(old)),
		zap.String("new_status", string(status)))

	s.publish(ctx, events.New(events.EventRequestStatusChanged, request.ID, &actorID, events.RequestStatusChangedPayload{
		OldStatus: old,
		NewStatus: status,
	}))
	return s.reload(ctx, request)
}

// publish runs the event handlers. Their failures are logged; the triggering
// write has already been committed.
func (s *RequestService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("request_id", event.RequestID),
			zap.Error(err))
	}
}

// reload returns the stored request, which handlers may have changed.
func (s *RequestService) reload(ctx context.Context, request *domain.Request) (*domain.Request, error) {
	fresh, err := s.store.Requests.GetByID(ctx, request.ID)
	if err != nil {
		if isNotFound(err) {
			return request, nil
		}
		return nil, apperrors.NewRemoteReadError(err)
	}
	return fresh, nil
}

func (s *RequestService) checkZone(ctx context.Context, zoneID *string) (*string, error) {
	id := trimmedID(zoneID)
	if id == nil {
		return nil, nil
	}
	if _, err := s.store.Zones.GetByID(ctx, *id); err != nil {
		if isNotFound(err) {
			return nil, fieldError("preferred_zone_id", "preferred_zone_id does not exist")
		}
		return nil, apperrors.NewRemoteReadError(err)
	}
	return id, nil
}

func applyRequestInput(request *domain.Request, input RequestInput) {
	request.RequesterName = strings.TrimSpace(input.RequesterName)
	request.RequesterAddress = strings.TrimSpace(input.RequesterAddress)
	request.RequesterPhone = strings.TrimSpace(input.RequesterPhone)
	request.StudentName = strings.TrimSpace(input.StudentName)
	request.StudentClass = strings.TrimSpace(input.StudentClass)
	request.SchoolYear = strings.TrimSpace(input.SchoolYear)
	request.PreferredLocker = strings.TrimSpace(input.PreferredLocker)
	if input.SubmittedAt != nil && !input.SubmittedAt.IsZero() {
		request.SubmittedAt = input.SubmittedAt.UTC()
	}
}

func fieldError(field, message string) error {
	return apperrors.NewValidationError("invalid input", map[string]any{
		"fields": map[string]string{field: message},
	})
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
