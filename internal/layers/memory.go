package layers

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"realm-server/internal/models"
)

type memoryRepository struct {
	mu     sync.Mutex
	layers map[string][]models.DescriptionLayer // keyed by scopeID + "\x00" + layerType
	clocks map[uuid.UUID]models.LocationClock
}

// NewMemoryRepository creates an in-memory layer repository for tests and
// single-node runs.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		layers: make(map[string][]models.DescriptionLayer),
		clocks: make(map[uuid.UUID]models.LocationClock),
	}
}

func layerKey(scopeID, layerType string) string {
	return scopeID + "\x00" + layerType
}

func (r *memoryRepository) InsertLayer(_ context.Context, layer models.DescriptionLayer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := layerKey(layer.ScopeID, layer.LayerType)
	r.layers[key] = append(r.layers[key], layer)
	return nil
}

func (r *memoryRepository) ListLayers(_ context.Context, scopeID, layerType string) ([]models.DescriptionLayer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.layers[layerKey(scopeID, layerType)]
	out := make([]models.DescriptionLayer, len(stored))
	copy(out, stored)
	return out, nil
}

func (r *memoryRepository) GetClock(_ context.Context, locationID uuid.UUID) (*models.LocationClock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clock, ok := r.clocks[locationID]
	if !ok {
		return nil, nil
	}
	out := clock
	return &out, nil
}

func (r *memoryRepository) SaveClock(_ context.Context, clock models.LocationClock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// The caller bumps Revision before saving; the save only lands when the
	// stored revision is exactly one behind.
	existing, ok := r.clocks[clock.LocationID]
	if ok && existing.Revision != clock.Revision-1 {
		return models.ErrRevisionConflict
	}
	if !ok && clock.Revision != 1 {
		return models.ErrRevisionConflict
	}
	r.clocks[clock.LocationID] = clock
	return nil
}
