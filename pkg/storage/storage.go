// Package storage keeps rendered compliance exports and signs their download links.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned when a stored export no longer exists.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the capability the export worker needs from a storage backend.
type ObjectStore interface {
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
	CleanupOlderThan(ctx context.Context, ttl time.Duration) ([]string, error)
}
