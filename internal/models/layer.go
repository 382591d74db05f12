package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Scope key prefixes for description layers and events.
const (
	ScopePrefixLocation = "loc:"
	ScopePrefixRealm    = "realm:"
	ScopePrefixPlayer   = "player:"
	ScopePrefixGlobal   = "global:"
)

// LocationScope builds the scope key for a location.
func LocationScope(id uuid.UUID) string {
	return ScopePrefixLocation + id.String()
}

// ValidScopeKey reports whether s carries a known prefix and a non-empty rest.
func ValidScopeKey(s string) bool {
	for _, p := range []string{ScopePrefixLocation, ScopePrefixRealm, ScopePrefixPlayer, ScopePrefixGlobal} {
		if strings.HasPrefix(s, p) && len(s) > len(p) {
			return true
		}
	}
	return false
}

// Well-known layer types and metadata keys of the hero-prose convention.
const (
	LayerTypeDynamic     = "dynamic"
	LayerMetaReplaceBase = "replacesBase"
	LayerMetaRole        = "role"
	LayerRoleHero        = "hero"
)

// DescriptionLayer is an immutable, time-interval-scoped narrative fact.
// Multiple layers of the same (ScopeID, LayerType) may overlap by design;
// resolution picks the most recently authored one.
type DescriptionLayer struct {
	ID        string `json:"id"`
	ScopeID   string `json:"scopeId"`
	LayerType string `json:"layerType"`
	Value     string `json:"value"`
	// EffectiveFromTick is inclusive; EffectiveToTick is exclusive and nil
	// means the layer never expires.
	EffectiveFromTick int64             `json:"effectiveFromTick"`
	EffectiveToTick   *int64            `json:"effectiveToTick,omitempty"`
	AuthoredAt        time.Time         `json:"authoredAt"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// ContainsTick reports whether the layer's interval covers the given tick.
func (l *DescriptionLayer) ContainsTick(tick int64) bool {
	if tick < l.EffectiveFromTick {
		return false
	}
	return l.EffectiveToTick == nil || tick < *l.EffectiveToTick
}

// IsHeroProse reports whether the layer follows the hero-prose convention.
func (l *DescriptionLayer) IsHeroProse() bool {
	return l.LayerType == LayerTypeDynamic &&
		l.Metadata[LayerMetaReplaceBase] == "true" &&
		l.Metadata[LayerMetaRole] == LayerRoleHero
}

// LocationClock anchors a location to the world tick timeline.
// One exists per location, lazily created on first access.
type LocationClock struct {
	LocationID  uuid.UUID `json:"locationId"`
	ClockAnchor int64     `json:"clockAnchor"`
	LastSynced  time.Time `json:"lastSynced"`
	// Revision is the optimistic-concurrency token bumped on every write.
	Revision int64 `json:"revision"`
}
