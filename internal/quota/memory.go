package quota

import (
	"context"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

type record struct {
	count   int
	resetAt time.Time
}

// MemoryStore is the in-process Store. Counters live for the process
// lifetime only; a restart grants every client a fresh window.
type MemoryStore struct {
	mu    sync.Mutex
	limit int
	now   func() time.Time
	byKey map[string]*record
}

// NewMemoryStore creates a MemoryStore with the given daily limit.
func NewMemoryStore(limit int) *MemoryStore {
	return &MemoryStore{
		limit: limit,
		now:   time.Now,
		byKey: make(map[string]*record),
	}
}

// Allow consumes one unit for key if the daily limit permits. The whole
// read-modify-write runs under the lock, so concurrent requests from the
// same client cannot both slip past the limit.
func (s *MemoryStore) Allow(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, ok := s.byKey[key]
	if !ok || !rec.resetAt.After(now) {
		rec = &record{resetAt: windowStart(now).Add(24 * time.Hour)}
		s.byKey[key] = rec
	}

	if rec.count >= s.limit {
		return false, nil
	}
	rec.count++
	return true, nil
}
