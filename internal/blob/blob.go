// Package blob stores binary objects such as zone map images.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when the key does not exist.
	ErrNotFound = errors.New("blob not found")
	// ErrUnsupported is returned by drivers that cannot presign URLs.
	ErrUnsupported = errors.New("operation not supported by blob driver")
)

// Info describes a stored object.
type Info struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Store is the minimal object store surface used by the service.
type Store interface {
	// Put writes or replaces the object at key.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
