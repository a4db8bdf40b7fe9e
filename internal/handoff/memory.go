// internal/handoff/memory.go
package handoff

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/classkit/internal/models"
	"github.com/jonboulle/clockwork"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore keeps handoff values in process memory. Expired entries are dropped lazily.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	clock   clockwork.Clock
}

// NewMemoryStore returns a store whose values live for ttl (0 means forever).
func NewMemoryStore(ttl time.Duration, clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		clock:   clock,
	}
}

func (s *MemoryStore) Save(_ context.Context, cfg models.SessionConfig) (string, error) {
	data, err := encode(cfg)
	if err != nil {
		return "", err
	}
	key := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	e := memoryEntry{data: data}
	if s.ttl > 0 {
		e.expiresAt = s.clock.Now().Add(s.ttl)
	}
	s.entries[key] = e
	return key, nil
}

func (s *MemoryStore) Load(_ context.Context, key string) (models.SessionConfig, error) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if ok && s.expiredLocked(e) {
		delete(s.entries, key)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return models.SessionConfig{}, ErrNotFound
	}
	return decode(e.data)
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// put stores raw bytes under key. Tests use it to plant corrupt values.
func (s *MemoryStore) put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{data: data}
}

func (s *MemoryStore) expiredLocked(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && !s.clock.Now().Before(e.expiresAt)
}

func (s *MemoryStore) pruneLocked() {
	for k, e := range s.entries {
		if s.expiredLocked(e) {
			delete(s.entries, k)
		}
	}
}
