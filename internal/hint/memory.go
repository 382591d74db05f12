package hint

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"realm-server/internal/direction"
)

type memoryStore struct {
	mu      sync.Mutex
	lastHit map[string]time.Time
	window  time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an in-process debounce store. The clock is
// injectable for tests.
func NewMemoryStore(window time.Duration, now func() time.Time) Store {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &memoryStore{
		lastHit: make(map[string]time.Time),
		window:  window,
		now:     now,
	}
}

func (s *memoryStore) ShouldEmit(_ context.Context, playerID, locationID uuid.UUID, dir direction.Direction) (Decision, error) {
	key := debounceKey(playerID, locationID, dir)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if last, ok := s.lastHit[key]; ok && now.Sub(last) < s.window {
		return Decision{Emit: false, DebounceHit: true}, nil
	}
	s.lastHit[key] = now
	return Decision{Emit: true, DebounceHit: false}, nil
}
