// Package hint rate-limits "please generate this exit" signals per
// (player, location, direction). Independent keys never interfere.
package hint

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"realm-server/internal/direction"
)

// Decision reports whether a hint should be emitted for a key.
type Decision struct {
	Emit        bool
	DebounceHit bool
}

// Store is the debounce store behind exit generation hints. The first call
// within the window wins; later calls for the same key are debounced until
// the window elapses.
type Store interface {
	ShouldEmit(ctx context.Context, playerID, locationID uuid.UUID, dir direction.Direction) (Decision, error)
}

func debounceKey(playerID, locationID uuid.UUID, dir direction.Direction) string {
	return fmt.Sprintf("exit_hint:%s:%s:%s", playerID, locationID, dir)
}
