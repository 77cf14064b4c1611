package storage

import (
	"context"
	"errors"
)

// SessionKey is the well-known key the session record lives under
const SessionKey = "monti.session"

// ErrNotFound is returned by Get when nothing is stored under a key
var ErrNotFound = errors.New("storage: key not found")

// TokenStore persists small opaque values (the session record) by key
type TokenStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
