// Package memory provides an in-memory implementation of the record store
// used for tests, local development and the SQLite snapshot driver.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spindit/locker-service/internal/domain"
	"github.com/spindit/locker-service/internal/repository"
)

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Users       map[string]domain.User       `json:"users"`
	Zones       map[string]domain.Zone       `json:"zones"`
	Lockers     map[string]domain.Locker     `json:"lockers"`
	Requests    map[string]domain.Request    `json:"requests"`
	Assignments map[string]domain.Assignment `json:"assignments"`
	Children    map[string]domain.Child      `json:"children"`
}

// Persister receives the full state after every committed write.
type Persister interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) error
}

// Store keeps every collection in maps guarded by a single RWMutex.
// Transactions are serialized; a failed transaction restores the state it started from.
type Store struct {
	mu        sync.RWMutex
	txMu      sync.Mutex
	state     Snapshot
	dirty     bool
	persister Persister
	now       func() time.Time
}

type txKey struct{}

var _ repository.Transactor = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{state: newSnapshot(), now: func() time.Time { return time.Now().UTC() }}
}

// NewPersistent returns a store seeded from p that saves to p after each commit.
func NewPersistent(ctx context.Context, p Persister) (*Store, error) {
	s := New()
	snapshot, err := p.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	s.ImportState(snapshot)
	s.persister = p
	return s, nil
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() *repository.Store {
	return &repository.Store{
		Users:       &userRepo{s: s},
		Zones:       &zoneRepo{s: s},
		Lockers:     &lockerRepo{s: s},
		Requests:    &requestRepo{s: s},
		Assignments: &assignmentRepo{s: s},
		Children:    &childRepo{s: s},
		Tx:          s,
	}
}

// SetClock overrides the timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// WithinTx runs fn with exclusive write access. Nested calls join the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	before := s.ExportState()
	s.dirty = false
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.ImportState(before)
		return err
	}
	if s.persister != nil && s.dirty {
		if err := s.persister.Save(ctx, s.ExportState()); err != nil {
			s.ImportState(before)
			return fmt.Errorf("persist snapshot: %w", err)
		}
	}
	return nil
}

// ExportState returns a deep copy of the current state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// ImportState replaces the current state with a deep copy of snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	cloned := snapshot.clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = cloned
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// write applies fn under the write lock, inside a transaction when ctx has none.
func (s *Store) write(ctx context.Context, fn func(st *Snapshot, now time.Time) error) error {
	return s.WithinTx(ctx, func(context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.dirty = true
		return fn(&s.state, s.now())
	})
}

func (s *Store) read(fn func(st *Snapshot)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.state)
}

func newID() string {
	return uuid.NewString()
}

func newSnapshot() Snapshot {
	return Snapshot{
		Users:       map[string]domain.User{},
		Zones:       map[string]domain.Zone{},
		Lockers:     map[string]domain.Locker{},
		Requests:    map[string]domain.Request{},
		Assignments: map[string]domain.Assignment{},
		Children:    map[string]domain.Child{},
	}
}

func (s Snapshot) clone() Snapshot {
	cloned := newSnapshot()
	for k, v := range s.Users {
		cloned.Users[k] = v
	}
	for k, v := range s.Zones {
		cloned.Zones[k] = cloneZone(v)
	}
	for k, v := range s.Lockers {
		cloned.Lockers[k] = cloneLocker(v)
	}
	for k, v := range s.Requests {
		cloned.Requests[k] = cloneRequest(v)
	}
	for k, v := range s.Assignments {
		cloned.Assignments[k] = v
	}
	for k, v := range s.Children {
		cloned.Children[k] = v
	}
	return cloned
}

func cloneZone(z domain.Zone) domain.Zone {
	if z.ClassTags != nil {
		z.ClassTags = append([]string{}, z.ClassTags...)
	}
	return z
}

func cloneLocker(l domain.Locker) domain.Locker {
	l.ZoneID = cloneString(l.ZoneID)
	return l
}

func cloneRequest(r domain.Request) domain.Request {
	r.PreferredZoneID = cloneString(r.PreferredZoneID)
	return r
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func paginate[T any](items []T, req domain.PageRequest) domain.Page[T] {
	req = req.Normalize()
	total := len(items)
	start := req.Offset()
	if start < 0 || start > total {
		start = total
	}
	end := start + req.PerPage
	if end > total {
		end = total
	}
	return domain.NewPage(items[start:end], req, total)
}
