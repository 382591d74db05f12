// Package layers manages time-interval-scoped narrative facts and resolves
// which one is authoritative at a given world tick.
package layers

import (
	"context"

	"github.com/google/uuid"

	"realm-server/internal/models"
)

// Repository is the storage contract behind the layer store. Selection and
// tie-breaking happen in the Store so every backend resolves identically.
type Repository interface {
	// InsertLayer appends an immutable layer record.
	InsertLayer(ctx context.Context, layer models.DescriptionLayer) error
	// ListLayers returns every layer of (scopeID, layerType) in ascending
	// EffectiveFromTick order.
	ListLayers(ctx context.Context, scopeID, layerType string) ([]models.DescriptionLayer, error)
	// GetClock returns the location clock, or nil when none exists yet.
	GetClock(ctx context.Context, locationID uuid.UUID) (*models.LocationClock, error)
	// SaveClock persists the clock, failing with ErrRevisionConflict when
	// the stored revision no longer matches the one the caller read.
	SaveClock(ctx context.Context, clock models.LocationClock) error
}
