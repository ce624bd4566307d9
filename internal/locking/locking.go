// Package locking provides short-lived mutual exclusion keyed by resource name.
package locking

import (
	"context"
	"errors"
	"time"
)

// ErrLocked is returned when another holder owns the key.
var ErrLocked = errors.New("resource is locked")

// Manager hands out leases on named keys. Acquire never waits.
type Manager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Lease is a held lock.
type Lease interface {
	Release(ctx context.Context) error
}

// RequestKey names the lock guarding a request's assignment.
func RequestKey(id string) string { return "lock:request:" + id }

// LockerKey names the lock guarding a locker's status.
func LockerKey(id string) string { return "lock:locker:" + id }
