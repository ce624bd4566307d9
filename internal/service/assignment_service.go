package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spindit/locker-service/internal/config"
	"github.com/spindit/locker-service/internal/domain"
	"github.com/spindit/locker-service/internal/events"
	"github.com/spindit/locker-service/internal/locking"
	"github.com/spindit/locker-service/internal/observability"
	"github.com/spindit/locker-service/internal/repository"
	apperrors "github.com/spindit/locker-service/pkg/util/errorutil"
)

// Reconcile outcomes, also used as metric labels.
const (
	OutcomeCreated  = "created"
	OutcomeMoved    = "moved"
	OutcomeReleased = "released"
	OutcomeNoop     = "noop"
	OutcomeFailed   = "failed"
)

// AssignmentService keeps the request/locker link and locker status consistent.
type AssignmentService struct {
	store      *repository.Store
	locks      locking.Manager
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.AssignmentConfig
	now        func() time.Time
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	Store      *repository.Store
	Locks      locking.Manager
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Config     config.AssignmentConfig
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	locks := deps.Locks
	if locks == nil {
		locks = locking.NewInProcess()
	}
	return &AssignmentService{
		store:      deps.Store,
		locks:      locks,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		cfg:        deps.Config,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type reconcileResult struct {
	assignment  *domain.Assignment
	outcome     string
	oldLockerID *string
}

// Reconcile makes the request's assignment match lockerID. A nil lockerID removes
// the assignment and frees its locker; the same locker again is a no-op without writes.
// All writes of one call commit or roll back together.
func (s *AssignmentService) Reconcile(ctx context.Context, requestID string, lockerID *string) (*domain.Assignment, error) {
	change, err := s.reconcileWithin(ctx, requestID, lockerID)
	if err != nil {
		return nil, err
	}
	change.finish(ctx, true)
	return change.result.assignment, nil
}

// pendingChange is a reconcile whose transaction may belong to the caller.
// Its locks stay held and its event stays unpublished until finish.
type pendingChange struct {
	svc       *AssignmentService
	locks     *lockSet
	requestID string
	result    reconcileResult
}

// finish releases the locks and, when the enclosing transaction committed,
// records the outcome and publishes the change.
func (p *pendingChange) finish(ctx context.Context, committed bool) {
	p.locks.release(ctx)
	if !committed {
		p.svc.metrics.RecordReconcile(OutcomeFailed)
		return
	}
	p.svc.metrics.RecordReconcile(p.result.outcome)
	p.svc.publishChange(ctx, p.requestID, p.result)
}

// reconcileWithin runs the reconcile in ctx's transaction, or in its own when
// ctx carries none. The caller must call finish on success.
func (s *AssignmentService) reconcileWithin(ctx context.Context, requestID string, lockerID *string) (*pendingChange, error) {
	if lockerID != nil && strings.TrimSpace(*lockerID) == "" {
		lockerID = nil
	}

	locks := newLockSet(s.locks, s.cfg.LockTTL())
	if err := locks.take(ctx, locking.RequestKey(requestID)); err != nil {
		locks.release(ctx)
		s.metrics.RecordReconcile(OutcomeFailed)
		return nil, lockError("request", err)
	}

	change := &pendingChange{svc: s, locks: locks, requestID: requestID}
	err := s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		request, err := s.store.Requests.GetByID(ctx, requestID)
		if err != nil {
			return readError("request", requestID, err)
		}
		change.result, err = s.reconcile(ctx, locks, request, lockerID)
		return err
	})
	if err != nil {
		change.finish(ctx, false)
		return nil, writeError("assignment", err)
	}
	return change, nil
}

// reconcile runs inside a transaction with the request lock held.
func (s *AssignmentService) reconcile(ctx context.Context, locks *lockSet, request *domain.Request, lockerID *string) (reconcileResult, error) {
	current, err := s.store.Assignments.GetByRequest(ctx, request.ID)
	if err != nil && !isNotFound(err) {
		return reconcileResult{}, apperrors.NewRemoteReadError(err)
	}
	if isNotFound(err) {
		current = nil
	}

	if lockerID == nil {
		if current == nil {
			return reconcileResult{outcome: OutcomeNoop}, nil
		}
		if err := locks.take(ctx, locking.LockerKey(current.LockerID)); err != nil {
			return reconcileResult{}, lockError("locker", err)
		}
		old := current.LockerID
		if err := s.freeLocker(ctx, old, request.ID); err != nil {
			return reconcileResult{}, err
		}
		if err := s.store.Assignments.Delete(ctx, current.ID); err != nil {
			return reconcileResult{}, apperrors.NewRemoteWriteError(err)
		}
		return reconcileResult{outcome: OutcomeReleased, oldLockerID: &old}, nil
	}

	if current != nil && current.LockerID == *lockerID {
		return reconcileResult{assignment: current, outcome: OutcomeNoop}, nil
	}

	if err := locks.take(ctx, locking.LockerKey(*lockerID)); err != nil {
		return reconcileResult{}, lockError("locker", err)
	}
	target, err := s.store.Lockers.GetByID(ctx, *lockerID)
	if err != nil {
		return reconcileResult{}, readError("locker", *lockerID, err)
	}
	holder, err := s.store.Assignments.GetByLocker(ctx, target.ID)
	switch {
	case err == nil && holder.RequestID != request.ID:
		return reconcileResult{}, apperrors.NewConflict("locker is assigned to another request", map[string]any{
			"locker_id":  target.ID,
			"request_id": holder.RequestID,
		})
	case err == nil && (current == nil || holder.ID != current.ID):
		return reconcileResult{}, apperrors.NewInvariantViolation("request holds more than one assignment", map[string]any{
			"request_id":    request.ID,
			"assignment_id": holder.ID,
		})
	case err != nil && !isNotFound(err):
		return reconcileResult{}, apperrors.NewRemoteReadError(err)
	}
	if s.cfg.ProtectLockedStatuses && target.Status.Locked() {
		return reconcileResult{}, apperrors.NewConflict("locker is not available", map[string]any{
			"locker_id": target.ID,
			"status":    target.Status,
		})
	}

	now := s.now()
	if current == nil {
		assignment := &domain.Assignment{RequestID: request.ID, LockerID: target.ID, AssignedAt: now}
		if err := s.store.Assignments.Create(ctx, assignment); err != nil {
			return reconcileResult{}, apperrors.NewRemoteWriteError(err)
		}
		if err := s.store.Lockers.UpdateStatus(ctx, target.ID, domain.LockerStatusReserved); err != nil {
			return reconcileResult{}, apperrors.NewRemoteWriteError(err)
		}
		return reconcileResult{assignment: assignment, outcome: OutcomeCreated}, nil
	}

	old := current.LockerID
	if err := locks.take(ctx, locking.LockerKey(old)); err != nil {
		return reconcileResult{}, lockError("locker", err)
	}
	if err := s.freeLocker(ctx, old, request.ID); err != nil {
		return reconcileResult{}, err
	}
	current.LockerID = target.ID
	current.AssignedAt = now
	if err := s.store.Assignments.Update(ctx, current); err != nil {
		return reconcileResult{}, apperrors.NewRemoteWriteError(err)
	}
	if err := s.store.Lockers.UpdateStatus(ctx, target.ID, domain.LockerStatusReserved); err != nil {
		return reconcileResult{}, apperrors.NewRemoteWriteError(err)
	}
	return reconcileResult{assignment: current, outcome: OutcomeMoved, oldLockerID: &old}, nil
}

// freeLocker sets the locker free. A locker that no longer exists is skipped.
func (s *AssignmentService) freeLocker(ctx context.Context, lockerID, requestID string) error {
	if s.cfg.ProtectLockedStatuses {
		locker, err := s.store.Lockers.GetByID(ctx, lockerID)
		switch {
		case err == nil && locker.Status.Locked():
			s.logger.Info("leaving locked locker status untouched",
				zap.String("locker_id", lockerID), zap.String("status", string(locker.Status)))
			return nil
		case err != nil && !isNotFound(err):
			return apperrors.NewRemoteReadError(err)
		}
	}
	err := s.store.Lockers.UpdateStatus(ctx, lockerID, domain.LockerStatusFree)
	if isNotFound(err) {
		s.logger.Warn("assigned locker no longer exists",
			zap.String("locker_id", lockerID), zap.String("request_id", requestID))
		return nil
	}
	if err != nil {
		return apperrors.NewRemoteWriteError(err)
	}
	return nil
}

// AutoReserve reserves a locker for a freshly created request that has none: the
// preferred locker (by id or number) when free, else the lowest-numbered free locker
// in the preferred zone. It sets the request to reserved in the same transaction.
// It returns nil without error when nothing could be reserved.
func (s *AssignmentService) AutoReserve(ctx context.Context, requestID string) (*domain.Assignment, error) {
	locks := newLockSet(s.locks, s.cfg.LockTTL())
	defer locks.release(ctx)
	if err := locks.take(ctx, locking.RequestKey(requestID)); err != nil {
		s.metrics.RecordAutoReserve(OutcomeFailed)
		return nil, lockError("request", err)
	}

	var (
		result    reconcileResult
		oldStatus domain.RequestStatus
	)
	err := s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		request, err := s.store.Requests.GetByID(ctx, requestID)
		if err != nil {
			return readError("request", requestID, err)
		}
		if _, err := s.store.Assignments.GetByRequest(ctx, request.ID); err == nil {
			result.outcome = OutcomeNoop
			return nil
		} else if !isNotFound(err) {
			return apperrors.NewRemoteReadError(err)
		}

		candidate, err := s.pickLocker(ctx, request)
		if err != nil {
			return err
		}
		if candidate == nil {
			s.logger.Warn("no available locker to auto-reserve", zap.String("request_id", request.ID))
			result.outcome = OutcomeNoop
			return nil
		}

		result, err = s.reconcile(ctx, locks, request, &candidate.ID)
		if err != nil {
			return err
		}
		if request.Status != domain.RequestStatusReserved {
			oldStatus = request.Status
			request.Status = domain.RequestStatusReserved
			if err := s.store.Requests.Update(ctx, request); err != nil {
				return apperrors.NewRemoteWriteError(err)
			}
		}
		return nil
	})
	if err != nil {
		s.metrics.RecordAutoReserve(OutcomeFailed)
		return nil, writeError("assignment", err)
	}

	s.metrics.RecordAutoReserve(result.outcome)
	s.publishChange(ctx, requestID, result)
	if oldStatus != "" && s.dispatcher != nil {
		event := events.New(events.EventRequestStatusChanged, requestID, nil, events.RequestStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: domain.RequestStatusReserved,
		})
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("status change handlers failed", zap.String("request_id", requestID), zap.Error(err))
		}
	}
	return result.assignment, nil
}

func (s *AssignmentService) pickLocker(ctx context.Context, request *domain.Request) (*domain.Locker, error) {
	if preferred := strings.TrimSpace(request.PreferredLocker); preferred != "" {
		locker, err := s.store.Lockers.GetByID(ctx, preferred)
		if err != nil && !isNotFound(err) {
			return nil, apperrors.NewRemoteReadError(err)
		}
		if locker == nil || locker.Status != domain.LockerStatusFree {
			locker = nil
			if number, convErr := strconv.Atoi(preferred); convErr == nil {
				byNumber, err := s.store.Lockers.GetByNumber(ctx, number)
				if err != nil && !isNotFound(err) {
					return nil, apperrors.NewRemoteReadError(err)
				}
				if byNumber != nil && byNumber.Status == domain.LockerStatusFree {
					locker = byNumber
				}
			}
		}
		if locker != nil {
			return locker, nil
		}
	}

	locker, err := s.store.Lockers.FindFirstFree(ctx, request.PreferredZoneID)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewRemoteReadError(err)
	}
	return locker, nil
}

// ReleaseOnCancel frees the locker of a request that just became cancelled.
func (s *AssignmentService) ReleaseOnCancel(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RequestStatusChangedPayload)
	if !ok || payload.NewStatus != domain.RequestStatusCancelled || payload.OldStatus == domain.RequestStatusCancelled {
		return nil
	}
	_, err := s.Reconcile(ctx, event.RequestID, nil)
	return err
}

// HandleRequestCreated runs AutoReserve for request_created events when enabled.
func (s *AssignmentService) HandleRequestCreated(ctx context.Context, event events.Event) error {
	if !s.cfg.AutoReserve {
		return nil
	}
	_, err := s.AutoReserve(ctx, event.RequestID)
	return err
}

// RegisterHandlers subscribes the automatic reservation and release handlers.
func (s *AssignmentService) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Subscribe(events.EventRequestCreated, s.HandleRequestCreated)
	s.dispatcher.Subscribe(events.EventRequestStatusChanged, s.ReleaseOnCancel)
}

// GetForRequest returns the request's assignment.
func (s *AssignmentService) GetForRequest(ctx context.Context, requestID string) (*domain.Assignment, error) {
	if _, err := s.store.Requests.GetByID(ctx, requestID); err != nil {
		return nil, readError("request", requestID, err)
	}
	assignment, err := s.store.Assignments.GetByRequest(ctx, requestID)
	if err != nil {
		return nil, readError("assignment", requestID, err)
	}
	return assignment, nil
}

// ListOwn returns the assignments of every request owned by userID.
func (s *AssignmentService) ListOwn(ctx context.Context, userID string) ([]domain.Assignment, error) {
	items, err := s.store.Assignments.ListByUser(ctx, userID)
	if err != nil {
		return nil, listError(err)
	}
	if items == nil {
		items = []domain.Assignment{}
	}
	return items, nil
}

// Audit reports every stored state that breaks the assignment invariants.
// Repair is re-running Reconcile for the affected request.
func (s *AssignmentService) Audit(ctx context.Context) ([]domain.InvariantViolation, error) {
	lockers, err := collectPages(func(p domain.PageRequest) (domain.Page[domain.Locker], error) {
		return s.store.Lockers.List(ctx, repository.LockerFilter{PageRequest: p})
	})
	if err != nil {
		return nil, listError(err)
	}
	assignments, err := s.store.Assignments.ListAll(ctx)
	if err != nil {
		return nil, listError(err)
	}

	byID := make(map[string]domain.Locker, len(lockers))
	for _, l := range lockers {
		byID[l.ID] = l
	}
	perLocker := map[string][]domain.Assignment{}
	perRequest := map[string][]domain.Assignment{}
	violations := []domain.InvariantViolation{}

	for _, a := range assignments {
		perLocker[a.LockerID] = append(perLocker[a.LockerID], a)
		perRequest[a.RequestID] = append(perRequest[a.RequestID], a)

		locker, ok := byID[a.LockerID]
		switch {
		case !ok:
			violations = append(violations, domain.InvariantViolation{
				Kind: domain.ViolationMissingLocker, LockerID: a.LockerID, RequestID: a.RequestID, AssignmentID: a.ID,
				Detail: "assignment points at a locker that does not exist",
			})
		case locker.Status == domain.LockerStatusFree:
			violations = append(violations, domain.InvariantViolation{
				Kind: domain.ViolationAssignmentToFree, LockerID: a.LockerID, RequestID: a.RequestID, AssignmentID: a.ID,
				Detail: "assigned locker is free",
			})
		}

		if _, err := s.store.Requests.GetByID(ctx, a.RequestID); err != nil {
			if !isNotFound(err) {
				return nil, apperrors.NewRemoteReadError(err)
			}
			violations = append(violations, domain.InvariantViolation{
				Kind: domain.ViolationMissingRequest, LockerID: a.LockerID, RequestID: a.RequestID, AssignmentID: a.ID,
				Detail: "assignment points at a request that does not exist",
			})
		}
	}

	for lockerID, list := range perLocker {
		if len(list) > 1 {
			violations = append(violations, domain.InvariantViolation{
				Kind: domain.ViolationLockerSharedByRequests, LockerID: lockerID,
				Detail: strconv.Itoa(len(list)) + " assignments share this locker",
			})
		}
	}
	for requestID, list := range perRequest {
		if len(list) > 1 {
			violations = append(violations, domain.InvariantViolation{
				Kind: domain.ViolationRequestHasManyAssignments, RequestID: requestID,
				Detail: strconv.Itoa(len(list)) + " assignments for one request",
			})
		}
	}
	for _, l := range lockers {
		if l.Status == domain.LockerStatusReserved && len(perLocker[l.ID]) == 0 {
			violations = append(violations, domain.InvariantViolation{
				Kind: domain.ViolationReservedWithoutAssignment, LockerID: l.ID,
				Detail: "locker " + strconv.Itoa(l.Number) + " is reserved but unassigned",
			})
		}
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].Kind != violations[j].Kind {
			return violations[i].Kind < violations[j].Kind
		}
		if violations[i].LockerID != violations[j].LockerID {
			return violations[i].LockerID < violations[j].LockerID
		}
		return violations[i].RequestID < violations[j].RequestID
	})
	return violations, nil
}

func (s *AssignmentService) publishChange(ctx context.Context, requestID string, result reconcileResult) {
	if s.dispatcher == nil || result.outcome == OutcomeNoop || result.outcome == "" {
		return
	}
	payload := events.AssignmentChangedPayload{OldLockerID: result.oldLockerID}
	if result.assignment != nil {
		payload.AssignmentID = result.assignment.ID
		lockerID := result.assignment.LockerID
		payload.NewLockerID = &lockerID
	}
	if err := s.dispatcher.Publish(ctx, events.New(events.EventAssignmentChanged, requestID, nil, payload)); err != nil {
		s.logger.Warn("assignment change handlers failed", zap.String("request_id", requestID), zap.Error(err))
	}
}

// lockSet collects leases taken during one operation.
type lockSet struct {
	manager locking.Manager
	ttl     time.Duration
	held    map[string]locking.Lease
}

func newLockSet(manager locking.Manager, ttl time.Duration) *lockSet {
	return &lockSet{manager: manager, ttl: ttl, held: map[string]locking.Lease{}}
}

// take acquires key unless this set already holds it.
func (l *lockSet) take(ctx context.Context, key string) error {
	if _, ok := l.held[key]; ok {
		return nil
	}
	lease, err := l.manager.Acquire(ctx, key, l.ttl)
	if err != nil {
		return err
	}
	l.held[key] = lease
	return nil
}

func (l *lockSet) release(ctx context.Context) {
	// Release even when the request context is already cancelled.
	ctx = context.WithoutCancel(ctx)
	for key, lease := range l.held {
		_ = lease.Release(ctx)
		delete(l.held, key)
	}
}

func lockError(resource string, err error) error {
	if errors.Is(err, locking.ErrLocked) {
		return apperrors.NewConflict(resource+" is being changed by another request", nil)
	}
	return apperrors.NewInternalError(err)
}

// collectPages walks every page of a listing.
func collectPages[T any](fetch func(domain.PageRequest) (domain.Page[T], error)) ([]T, error) {
	var all []T
	for page := 1; ; page++ {
		p, err := fetch(domain.PageRequest{Page: page, PerPage: domain.MaxPerPage})
		if err != nil {
			return nil, err
		}
		all = append(all, p.Items...)
		if page >= p.TotalPages {
			return all, nil
		}
	}
}
