package locking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InProcess is a Manager for single-instance deployments and tests.
type InProcess struct {
	mu    sync.Mutex
	held  map[string]inProcessEntry
	clock func() time.Time
}

type inProcessEntry struct {
	token   string
	expires time.Time
}

// NewInProcess returns an empty in-process lock table.
func NewInProcess() *InProcess {
	return &InProcess{held: map[string]inProcessEntry{}, clock: time.Now}
}

func (m *InProcess) Acquire(_ context.Context, key string, ttl time.Duration) (Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock()
	if entry, ok := m.held[key]; ok && now.Before(entry.expires) {
		return nil, ErrLocked
	}
	token := uuid.NewString()
	m.held[key] = inProcessEntry{token: token, expires: now.Add(ttl)}
	return &inProcessLease{m: m, key: key, token: token}, nil
}

type inProcessLease struct {
	m     *InProcess
	key   string
	token string
}

func (l *inProcessLease) Release(context.Context) error {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	if entry, ok := l.m.held[l.key]; ok && entry.token == l.token {
		delete(l.m.held, l.key)
	}
	return nil
}
