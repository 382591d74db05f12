package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"realm-server/internal/models"
)

// memoryRegistry is an in-process Registry for tests and single-node runs.
type memoryRegistry struct {
	mu    sync.Mutex
	byKey map[string]ProcessedEventRecord
	now   func() time.Time
}

// NewMemoryRegistry creates an in-memory processed-event registry.
func NewMemoryRegistry() Registry {
	return &memoryRegistry{
		byKey: make(map[string]ProcessedEventRecord),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *memoryRegistry) CheckProcessed(_ context.Context, idempotencyKey string) (*ProcessedEventRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byKey[idempotencyKey]
	if !ok {
		return nil, nil
	}
	if rec.ExpiresUTC != nil && !rec.ExpiresUTC.After(r.now()) {
		delete(r.byKey, idempotencyKey)
		return nil, nil
	}
	out := rec
	return &out, nil
}

func (r *memoryRegistry) MarkProcessed(_ context.Context, rec ProcessedEventRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byKey[rec.IdempotencyKey]; ok {
		if existing.ExpiresUTC == nil || existing.ExpiresUTC.After(r.now()) {
			return false, nil
		}
	}
	r.byKey[rec.IdempotencyKey] = rec
	return true, nil
}

func (r *memoryRegistry) GetByID(_ context.Context, id uuid.UUID) (*ProcessedEventRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.byKey {
		if rec.ID == id {
			out := rec
			return &out, nil
		}
	}
	return nil, models.ErrNotFound
}
