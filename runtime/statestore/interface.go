// Package statestore persists the session resumption handle so a session can
// be resumed after a transport loss or a process restart.
//
// The lifecycle is: read at startup, write whenever the backend issues or
// rotates a handle, clear when the backend ends or expires the session or the
// user clears it explicitly.
package statestore

import (
	"context"
	"errors"
	"time"
)

// Common errors.
var (
	// ErrNotFound is returned when no handle is stored under a key.
	ErrNotFound = errors.New("resumption handle not found")
	// ErrInvalidKey is returned for an empty key.
	ErrInvalidKey = errors.New("invalid handle key")
)

// DefaultKey is used when the client is not scoped to a specific interview.
const DefaultKey = "default"

// HandleRecord is one persisted resumption handle.
type HandleRecord struct {
	Handle    string    `json:"handle"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HandleStore persists resumption handles by key.
type HandleStore interface {
	// Load returns the record for key or ErrNotFound.
	Load(ctx context.Context, key string) (*HandleRecord, error)
	// Save replaces the record for key.
	Save(ctx context.Context, key string, rec *HandleRecord) error
	// Clear removes the record for key. Clearing a missing key is not an error.
	Clear(ctx context.Context, key string) error
}

// LoadHandle returns the stored handle for key, or "" when none is stored.
func LoadHandle(ctx context.Context, s HandleStore, key string) (string, error) {
	rec, err := s.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return rec.Handle, nil
}
