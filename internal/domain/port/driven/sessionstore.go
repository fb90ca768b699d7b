package driven

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned by SessionStore.Load when no session blob
// has been persisted yet. Callers treat it as "no session" and fall back to
// a fresh login.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists the opaque session blob across restarts. The blob
// is an uninterpreted byte sequence owned by the Monarch client.
type SessionStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
	Clear(ctx context.Context) error
}
