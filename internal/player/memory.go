package player

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"realm-server/internal/models"
)

// memoryRepository is an in-process Repository used by tests and the
// anonymous play flow.
type memoryRepository struct {
	mu      sync.Mutex
	players map[uuid.UUID]*models.Player
	now     func() time.Time
}

// NewMemoryRepository creates an in-memory player store.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		players: make(map[uuid.UUID]*models.Player),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func copyPlayer(p *models.Player) *models.Player {
	out := *p
	if p.LastHeading != nil {
		heading := *p.LastHeading
		out.LastHeading = &heading
	}
	return &out
}

func (r *memoryRepository) Get(_ context.Context, id uuid.UUID) (*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return nil, models.ErrPlayerNotFound
	}
	return copyPlayer(p), nil
}

func (r *memoryRepository) GetOrCreate(_ context.Context, id uuid.UUID, startLocationID uuid.UUID) (*models.Player, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id != uuid.Nil {
		if p, ok := r.players[id]; ok {
			return copyPlayer(p), false, nil
		}
	} else {
		id = uuid.New()
	}
	now := r.now()
	p := &models.Player{
		ID:                id,
		CurrentLocationID: startLocationID,
		Guest:             true,
		CreatedUTC:        now,
		UpdatedUTC:        now,
	}
	r.players[id] = p
	return copyPlayer(p), true, nil
}

func (r *memoryRepository) Update(_ context.Context, p *models.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[p.ID]; !ok {
		return models.ErrPlayerNotFound
	}
	stored := copyPlayer(p)
	stored.UpdatedUTC = r.now()
	r.players[p.ID] = stored
	return nil
}
