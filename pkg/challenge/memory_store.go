package challenge

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore implements Store in process memory. Suitable for a single
// instance deployment or tests.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]map[string]entry
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithMemoryTTL sets the lifetime of stored values
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates a new in-memory challenge store
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		ttl:      DefaultTTL,
		now:      time.Now,
		sessions: make(map[string]map[string]entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lookup must be called with mu held. Expired entries are dropped on read.
func (s *MemoryStore) lookup(sessionID, key string) (entry, bool) {
	values, ok := s.sessions[sessionID]
	if !ok {
		return entry{}, false
	}
	e, ok := values[key]
	if !ok {
		return entry{}, false
	}
	if !s.now().Before(e.expiresAt) {
		s.delete(sessionID, key)
		return entry{}, false
	}
	return e, true
}

func (s *MemoryStore) delete(sessionID, key string) {
	values, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	delete(values, key)
	if len(values) == 0 {
		delete(s.sessions, sessionID)
	}
}

func (s *MemoryStore) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(sessionID, key)
	return e.value, ok, nil
}

func (s *MemoryStore) Put(ctx context.Context, sessionID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, ok := s.sessions[sessionID]
	if !ok {
		values = make(map[string]entry)
		s.sessions[sessionID] = values
	}
	values[key] = entry{value: value, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Has(ctx context.Context, sessionID, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.lookup(sessionID, key)
	return ok, nil
}

func (s *MemoryStore) Pull(ctx context.Context, sessionID, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(sessionID, key)
	if ok {
		s.delete(sessionID, key)
	}
	return e.value, ok, nil
}

func (s *MemoryStore) Forget(ctx context.Context, sessionID string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		s.delete(sessionID, key)
	}
	return nil
}
