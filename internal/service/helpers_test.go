package service

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/spindit/locker-service/internal/config"
	"github.com/spindit/locker-service/internal/domain"
	"github.com/spindit/locker-service/internal/events"
	"github.com/spindit/locker-service/internal/locking"
	"github.com/spindit/locker-service/internal/repository"
	"github.com/spindit/locker-service/internal/repository/memory"
	"github.com/spindit/locker-service/internal/validation"
	apperrors "github.com/spindit/locker-service/pkg/util/errorutil"
)

var errInjected = errors.New("injected store failure")

// countingLockers counts status writes and can be told to fail them.
type countingLockers struct {
	repository.LockerRepository
	writes atomic.Int32
	failOn map[domain.LockerStatus]bool
}

func (c *countingLockers) UpdateStatus(ctx context.Context, id string, status domain.LockerStatus) error {
	c.writes.Add(1)
	if c.failOn[status] {
		return errInjected
	}
	return c.LockerRepository.UpdateStatus(ctx, id, status)
}

// countingAssignments counts assignment writes.
type countingAssignments struct {
	repository.AssignmentRepository
	writes atomic.Int32
}

func (c *countingAssignments) Create(ctx context.Context, a *domain.Assignment) error {
	c.writes.Add(1)
	return c.AssignmentRepository.Create(ctx, a)
}

func (c *countingAssignments) Update(ctx context.Context, a *domain.Assignment) error {
	c.writes.Add(1)
	return c.AssignmentRepository.Update(ctx, a)
}

func (c *countingAssignments) Delete(ctx context.Context, id string) error {
	c.writes.Add(1)
	return c.AssignmentRepository.Delete(ctx, id)
}

type testEnv struct {
	mem         *memory.Store
	store       *repository.Store
	lockers     *countingLockers
	assignRepo  *countingAssignments
	locks       *locking.InProcess
	dispatcher  events.Dispatcher
	validator   *validation.Validator
	assignments *AssignmentService
	requests    *RequestService
	auth        *AuthService
	users       *UserService
	zones       *ZoneService
	lockerSvc   *LockerService
}

type envOption func(*config.AssignmentConfig)

func protectLocked(cfg *config.AssignmentConfig) { cfg.ProtectLockedStatuses = true }

func withoutAutoReserve(cfg *config.AssignmentConfig) { cfg.AutoReserve = false }

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	mem := memory.New()
	store := mem.Repositories()
	lockers := &countingLockers{LockerRepository: store.Lockers, failOn: map[domain.LockerStatus]bool{}}
	assignRepo := &countingAssignments{AssignmentRepository: store.Assignments}
	store.Lockers = lockers
	store.Assignments = assignRepo

	cfg := config.AssignmentConfig{AutoReserve: true, LockTTLSeconds: 5}
	for _, opt := range opts {
		opt(&cfg)
	}
	appCfg := config.Config{Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 30, BcryptCost: bcrypt.MinCost}}

	v := validation.New()
	dispatcher := events.NewInMemoryDispatcher()
	locks := locking.NewInProcess()
	assignments := NewAssignmentService(AssignmentDependencies{
		Store: store, Locks: locks, Dispatcher: dispatcher, Config: cfg,
	})
	assignments.RegisterHandlers()

	return &testEnv{
		mem:         mem,
		store:       store,
		lockers:     lockers,
		assignRepo:  assignRepo,
		locks:       locks,
		dispatcher:  dispatcher,
		validator:   v,
		assignments: assignments,
		requests: NewRequestService(RequestDependencies{
			Store: store, Assignments: assignments, Dispatcher: dispatcher, Validator: v,
		}),
		auth:      NewAuthService(appCfg, AuthDependencies{UserRepo: store.Users, Validator: v}),
		users:     NewUserService(UserDependencies{Store: store, Validator: v, BcryptCost: bcrypt.MinCost}),
		zones:     NewZoneService(ZoneDependencies{Store: store, Validator: v}),
		lockerSvc: NewLockerService(LockerDependencies{Store: store, Validator: v}),
	}
}

func (e *testEnv) resetCounters() {
	e.lockers.writes.Store(0)
	e.assignRepo.writes.Store(0)
}

func (e *testEnv) writes() int32 {
	return e.lockers.writes.Load() + e.assignRepo.writes.Load()
}

func (e *testEnv) user(t *testing.T, email string) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, FullName: "Parent " + email, Language: domain.DefaultLanguage}
	if err := e.store.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *testEnv) zone(t *testing.T, name string) *domain.Zone {
	t.Helper()
	z := &domain.Zone{Name: name}
	if err := e.store.Zones.Create(context.Background(), z); err != nil {
		t.Fatalf("create zone: %v", err)
	}
	return z
}

func (e *testEnv) locker(t *testing.T, number int, zone *domain.Zone, status domain.LockerStatus) *domain.Locker {
	t.Helper()
	l := &domain.Locker{Number: number, Status: status}
	if zone != nil {
		id := zone.ID
		l.ZoneID = &id
	}
	if err := e.store.Lockers.Create(context.Background(), l); err != nil {
		t.Fatalf("create locker %d: %v", number, err)
	}
	return l
}

// request stores a pending request directly, bypassing events.
func (e *testEnv) request(t *testing.T, owner *domain.User) *domain.Request {
	t.Helper()
	r := &domain.Request{
		UserID:           owner.ID,
		RequesterName:    owner.FullName,
		RequesterAddress: "Schulweg 12",
		RequesterPhone:   "+41442010001",
		StudentName:      "Student " + strconv.Itoa(len(owner.Email)),
		StudentClass:     "7A",
		SchoolYear:       "2025/26",
		Status:           domain.RequestStatusPending,
	}
	if err := e.store.Requests.Create(context.Background(), r); err != nil {
		t.Fatalf("create request: %v", err)
	}
	return r
}

func (e *testEnv) lockerStatus(t *testing.T, id string) domain.LockerStatus {
	t.Helper()
	l, err := e.store.Lockers.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get locker: %v", err)
	}
	return l.Status
}

func requestInput(preferredLocker string, zoneID *string) RequestInput {
	return RequestInput{
		RequesterName:    "Alex Johnson",
		RequesterAddress: "Bahnhofstrasse 10\n8001 Zürich",
		RequesterPhone:   "+41442010001",
		StudentName:      "Emma Johnson",
		StudentClass:     "6A",
		SchoolYear:       "2025/26",
		PreferredZoneID:  zoneID,
		PreferredLocker:  preferredLocker,
	}
}

func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	if !apperrors.IsCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func strPtr(s string) *string { return &s }
