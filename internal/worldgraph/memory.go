package worldgraph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"realm-server/internal/direction"
	"realm-server/internal/models"
)

// memoryRepository is an in-process Repository used by tests and the
// anonymous play flow.
type memoryRepository struct {
	mu        sync.Mutex
	locations map[uuid.UUID]*models.Location
	now       func() time.Time
}

// NewMemoryRepository creates an in-memory world graph store.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		locations: make(map[uuid.UUID]*models.Location),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func copyLocation(loc *models.Location) *models.Location {
	out := *loc
	out.Exits = append([]models.ExitEdge(nil), loc.Exits...)
	out.Tags = append([]string(nil), loc.Tags...)
	out.ExitAvailability.Pending = append([]direction.Direction(nil), loc.ExitAvailability.Pending...)
	out.ExitAvailability.Forbidden = append([]direction.Direction(nil), loc.ExitAvailability.Forbidden...)
	return &out
}

func (r *memoryRepository) GetLocation(_ context.Context, id uuid.UUID) (*models.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	loc, ok := r.locations[id]
	if !ok {
		return nil, models.ErrLocationNotFound
	}
	return copyLocation(loc), nil
}

func (r *memoryRepository) UpsertLocation(_ context.Context, loc *models.Location) error {
	if loc.ID == uuid.Nil {
		return fmt.Errorf("%w: location id is required", models.ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	existing, ok := r.locations[loc.ID]
	if !ok {
		stored := copyLocation(loc)
		stored.Version = 1
		stored.CreatedUTC = now
		stored.UpdatedUTC = now
		stored.ExitSummary = stored.RenderExitSummary()
		r.locations[loc.ID] = stored
		return nil
	}
	contentChanged := existing.Name != loc.Name ||
		existing.Description != loc.Description ||
		!equalStrings(existing.Tags, loc.Tags)
	stored := copyLocation(loc)
	stored.Exits = existing.Exits
	stored.ExitAvailability = existing.ExitAvailability
	stored.CreatedUTC = existing.CreatedUTC
	stored.UpdatedUTC = now
	stored.Version = existing.Version
	if contentChanged {
		stored.Version++
	}
	stored.ExitSummary = stored.RenderExitSummary()
	r.locations[loc.ID] = stored
	return nil
}

func (r *memoryRepository) EnsureExit(_ context.Context, edge models.ExitEdge) error {
	if !edge.Direction.IsCanonical() {
		return models.ErrInvalidDirection
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	loc, ok := r.locations[edge.FromLocationID]
	if !ok {
		return models.ErrLocationNotFound
	}
	for _, e := range loc.Exits {
		if e.Direction == edge.Direction {
			// At most one edge per (from, direction); re-ensuring is a no-op.
			return nil
		}
	}
	loc.Exits = append(loc.Exits, edge)
	loc.ExitSummary = loc.RenderExitSummary()
	loc.UpdatedUTC = r.now()
	return nil
}

func (r *memoryRepository) RemoveExit(_ context.Context, fromID uuid.UUID, dir direction.Direction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	loc, ok := r.locations[fromID]
	if !ok {
		return models.ErrLocationNotFound
	}
	for i, e := range loc.Exits {
		if e.Direction == dir {
			loc.Exits = append(loc.Exits[:i], loc.Exits[i+1:]...)
			loc.ExitSummary = loc.RenderExitSummary()
			loc.UpdatedUTC = r.now()
			return nil
		}
	}
	return models.ErrNoExit
}

func (r *memoryRepository) SetExitAvailability(_ context.Context, locationID uuid.UUID, dir direction.Direction, state models.Availability) error {
	if !dir.IsCanonical() {
		return models.ErrInvalidDirection
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	loc, ok := r.locations[locationID]
	if !ok {
		return models.ErrLocationNotFound
	}
	switch state {
	case models.AvailabilityPending:
		if !loc.ExitAvailability.IsPending(dir) {
			loc.ExitAvailability.Pending = append(loc.ExitAvailability.Pending, dir)
		}
	case models.AvailabilityForbidden:
		if !loc.ExitAvailability.IsForbidden(dir) {
			loc.ExitAvailability.Forbidden = append(loc.ExitAvailability.Forbidden, dir)
		}
	default:
		return fmt.Errorf("%w: unknown availability %q", models.ErrInvalidInput, state)
	}
	return nil
}

func (r *memoryRepository) ClearExitAvailability(_ context.Context, locationID uuid.UUID, dir direction.Direction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	loc, ok := r.locations[locationID]
	if !ok {
		return models.ErrLocationNotFound
	}
	loc.ExitAvailability.Pending = removeDirection(loc.ExitAvailability.Pending, dir)
	loc.ExitAvailability.Forbidden = removeDirection(loc.ExitAvailability.Forbidden, dir)
	return nil
}

func removeDirection(list []direction.Direction, d direction.Direction) []direction.Direction {
	out := list[:0]
	for _, c := range list {
		if c != d {
			out = append(out, c)
		}
	}
	return out
}

func (r *memoryRepository) ListLocations(_ context.Context) ([]models.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Location, 0, len(r.locations))
	for _, loc := range r.locations {
		out = append(out, *copyLocation(loc))
	}
	return out, nil
}

func (r *memoryRepository) Move(_ context.Context, fromID uuid.UUID, dir direction.Direction) (*models.Location, error) {
	if !dir.IsCanonical() {
		return nil, models.ErrInvalidDirection
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	from, ok := r.locations[fromID]
	if !ok {
		return nil, models.ErrLocationNotFound
	}
	edge, ok := from.ExitIn(dir)
	if !ok || edge.Blocked {
		return nil, models.ErrNoExit
	}
	target, ok := r.locations[edge.ToLocationID]
	if !ok {
		return nil, models.ErrTargetLocationNotFound
	}
	return copyLocation(target), nil
}

func (r *memoryRepository) PruneLocation(_ context.Context, id uuid.UUID, reason string) error {
	if reason == "" {
		return fmt.Errorf("%w: prune requires an operator reason", models.ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.locations[id]; !ok {
		return models.ErrLocationNotFound
	}
	for _, loc := range r.locations {
		if loc.ID == id {
			continue
		}
		for _, e := range loc.Exits {
			if e.ToLocationID == id {
				return models.ErrLocationHasInboundEdges
			}
		}
	}
	delete(r.locations, id)
	return nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
