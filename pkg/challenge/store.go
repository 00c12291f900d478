// Package challenge holds ephemeral, session-scoped state for in-progress 2FA
// enrollment and removal attempts.
//
// A Store is shared by all sessions; a Session is the handle for one
// authenticated session and is what the 2FA manager works with. Values never
// outlive the configured TTL.
package challenge

import (
	"context"
	"time"
)

// DefaultTTL bounds how long a pending challenge survives without being consumed.
const DefaultTTL = 30 * time.Minute

// Store is a key-value store partitioned by session ID.
type Store interface {
	Get(ctx context.Context, sessionID, key string) (string, bool, error)
	Put(ctx context.Context, sessionID, key, value string) error
	Has(ctx context.Context, sessionID, key string) (bool, error)
	// Pull returns the value and deletes it in one step.
	Pull(ctx context.Context, sessionID, key string) (string, bool, error)
	Forget(ctx context.Context, sessionID string, keys ...string) error
}

// Session is a Store bound to one session ID.
type Session interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Has(ctx context.Context, key string) (bool, error)
	Pull(ctx context.Context, key string) (string, bool, error)
	Forget(ctx context.Context, keys ...string) error
}

type boundSession struct {
	store     Store
	sessionID string
}

// Bind returns the Session handle for sessionID.
func Bind(store Store, sessionID string) Session {
	return &boundSession{store: store, sessionID: sessionID}
}

func (s *boundSession) Get(ctx context.Context, key string) (string, bool, error) {
	return s.store.Get(ctx, s.sessionID, key)
}

func (s *boundSession) Put(ctx context.Context, key, value string) error {
	return s.store.Put(ctx, s.sessionID, key, value)
}

func (s *boundSession) Has(ctx context.Context, key string) (bool, error) {
	return s.store.Has(ctx, s.sessionID, key)
}

func (s *boundSession) Pull(ctx context.Context, key string) (string, bool, error) {
	return s.store.Pull(ctx, s.sessionID, key)
}

func (s *boundSession) Forget(ctx context.Context, keys ...string) error {
	return s.store.Forget(ctx, s.sessionID, keys...)
}
