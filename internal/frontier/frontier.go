// Package frontier governs which not-yet-generated directions are offered to
// players and audits the exit graph for structural violations.
package frontier

import (
	"go.uber.org/zap"

	"realm-server/internal/direction"
	"realm-server/internal/models"
)

// DefaultExitCap bounds how many pending directions are offered at once.
const DefaultExitCap = 3

// Policy selects frontier exits for a location.
type Policy struct {
	logger *zap.Logger
}

// NewPolicy creates a frontier exit policy.
func NewPolicy(logger *zap.Logger) *Policy {
	return &Policy{logger: logger.Named("FrontierPolicy")}
}

// SelectFrontierExits returns up to cap pending directions in their original
// declaration order. A direction marked both pending and forbidden is never
// offered: forbidden always wins, and each such conflict emits one diagnostic
// warning naming the location and direction.
func (p *Policy) SelectFrontierExits(loc *models.Location, cap int) []direction.Direction {
	if cap <= 0 {
		cap = DefaultExitCap
	}
	avail := loc.ExitAvailability
	if len(avail.Pending) == 0 {
		return nil
	}
	var out []direction.Direction
	for _, d := range avail.Pending {
		if avail.IsForbidden(d) {
			p.logger.Warn("Direction marked both pending and forbidden, forbidden wins",
				zap.Stringer("location_id", loc.ID),
				zap.String("location_name", loc.Name),
				zap.String("direction", d.String()),
				zap.Bool("frontier_boundary", loc.HasTag(models.TagFrontierBoundary)),
			)
			continue
		}
		if len(out) < cap {
			out = append(out, d)
		}
	}
	return out
}

// Availability reports whether the direction awaits generation or is
// permanently impassable, which is what the movement core checks before
// recording a generation hint. Forbidden wins when both marks are present.
func (p *Policy) Availability(loc *models.Location, d direction.Direction) (models.Availability, bool) {
	if loc.ExitAvailability.IsForbidden(d) {
		return models.AvailabilityForbidden, true
	}
	if loc.ExitAvailability.IsPending(d) {
		return models.AvailabilityPending, true
	}
	return "", false
}
