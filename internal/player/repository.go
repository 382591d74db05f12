// Package player stores player records. A player has exactly one
// authoritative current location.
package player

import (
	"context"

	"github.com/google/uuid"

	"realm-server/internal/models"
)

// Repository is the player store contract.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Player, error)
	// GetOrCreate returns the existing player, or creates a guest record
	// when id is uuid.Nil or unknown. The second return value reports
	// whether a record was created.
	GetOrCreate(ctx context.Context, id uuid.UUID, startLocationID uuid.UUID) (*models.Player, bool, error)
	// Update persists the record and fails with ErrPlayerNotFound when the
	// player no longer exists.
	Update(ctx context.Context, p *models.Player) error
}
