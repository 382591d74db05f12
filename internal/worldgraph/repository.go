// Package worldgraph stores the location/exit graph and implements the move
// primitive over it.
package worldgraph

import (
	"context"

	"github.com/google/uuid"

	"realm-server/internal/direction"
	"realm-server/internal/models"
)

// Snapshot is a read-only view of the full graph, taken for consistency
// scanning.
type Snapshot struct {
	Locations []models.Location
}

// Edges flattens every exit edge of the snapshot.
func (s *Snapshot) Edges() []models.ExitEdge {
	var edges []models.ExitEdge
	for _, loc := range s.Locations {
		edges = append(edges, loc.Exits...)
	}
	return edges
}

// HasLocation reports whether the snapshot contains the given location id.
func (s *Snapshot) HasLocation(id uuid.UUID) bool {
	for _, loc := range s.Locations {
		if loc.ID == id {
			return true
		}
	}
	return false
}

// Repository is the graph/document store contract.
type Repository interface {
	GetLocation(ctx context.Context, id uuid.UUID) (*models.Location, error)
	// UpsertLocation creates or updates a location. The version increases
	// only when name, description, or tags actually change.
	UpsertLocation(ctx context.Context, loc *models.Location) error
	// EnsureExit creates the edge unless one already exists for
	// (FromLocationID, Direction). Re-ensuring an existing edge is a no-op.
	EnsureExit(ctx context.Context, edge models.ExitEdge) error
	RemoveExit(ctx context.Context, fromID uuid.UUID, dir direction.Direction) error
	// SetExitAvailability marks a direction as pending or forbidden.
	SetExitAvailability(ctx context.Context, locationID uuid.UUID, dir direction.Direction, state models.Availability) error
	// ClearExitAvailability removes the pending/forbidden mark, typically
	// after a concrete edge was created.
	ClearExitAvailability(ctx context.Context, locationID uuid.UUID, dir direction.Direction) error
	ListLocations(ctx context.Context) ([]models.Location, error)
	// Move re-validates direction canonicity, origin existence, edge
	// existence, and destination existence, then returns the destination.
	// Violations surface as ErrInvalidDirection, ErrLocationNotFound,
	// ErrNoExit, or ErrTargetLocationNotFound.
	Move(ctx context.Context, fromID uuid.UUID, dir direction.Direction) (*models.Location, error)
	// PruneLocation is a guarded administrative removal: it requires a
	// non-empty operator reason and refuses while inbound edges exist.
	// It is never called from event handlers.
	PruneLocation(ctx context.Context, id uuid.UUID, reason string) error
}
