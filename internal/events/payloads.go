package events

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"realm-server/internal/direction"
	"realm-server/internal/models"
)

// Terrain guides which neighbor directions an expansion prefers.
type Terrain string

const (
	TerrainForest Terrain = "forest"
	TerrainCavern Terrain = "cavern"
	TerrainCoast  Terrain = "coast"
	TerrainRuins  Terrain = "ruins"
	TerrainPlains Terrain = "plains"
)

// IsKnown reports whether t is a known terrain.
func (t Terrain) IsKnown() bool {
	switch t {
	case TerrainForest, TerrainCavern, TerrainCoast, TerrainRuins, TerrainPlains:
		return true
	}
	return false
}

// AreaExpandBatchPayload asks the expansion orchestrator to grow the world
// around a root location.
type AreaExpandBatchPayload struct {
	RootLocationID   uuid.UUID           `json:"rootLocationId" validate:"required"`
	Terrain          Terrain             `json:"terrain" validate:"required"`
	ArrivalDirection direction.Direction `json:"arrivalDirection" validate:"required"`
	Depth            int                 `json:"depth" validate:"required,min=1,max=3"`
	BatchSize        int                 `json:"batchSize" validate:"required,min=1,max=20"`
}

// ExitCreatePayload asks for a forward and reciprocal edge between two
// locations. Creation is idempotent per (from, direction).
type ExitCreatePayload struct {
	FromLocationID uuid.UUID           `json:"fromLocationId" validate:"required"`
	ToLocationID   uuid.UUID           `json:"toLocationId" validate:"required"`
	Direction      direction.Direction `json:"direction" validate:"required"`
	Description    string              `json:"description,omitempty"`
}

// DescriptionUpdatePayload appends a new temporal description layer for a
// scope. It never mutates an existing layer.
type DescriptionUpdatePayload struct {
	ScopeKey          string            `json:"scopeKey" validate:"required"`
	LayerType         string            `json:"layerType" validate:"required"`
	Value             string            `json:"value" validate:"required"`
	EffectiveFromTick int64             `json:"effectiveFromTick"`
	EffectiveToTick   *int64            `json:"effectiveToTick,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// DecodePayload unmarshals and validates the payload for the envelope's type.
// The returned value is a pointer to the type-specific payload struct.
// Failures are terminal and belong in the dead-letter sink.
func DecodePayload(e *Envelope) (any, error) {
	switch e.Type {
	case EventTypeAreaExpandBatch:
		var p AreaExpandBatchPayload
		if err := decodeInto(e.Payload, &p); err != nil {
			return nil, err
		}
		if !p.Terrain.IsKnown() {
			return nil, fmt.Errorf("%w: unknown terrain %q", models.ErrInvalidPayload, p.Terrain)
		}
		if !p.ArrivalDirection.IsCanonical() {
			return nil, fmt.Errorf("%w: arrival direction %q is not canonical", models.ErrInvalidPayload, p.ArrivalDirection)
		}
		return &p, nil

	case EventTypeExitCreate:
		var p ExitCreatePayload
		if err := decodeInto(e.Payload, &p); err != nil {
			return nil, err
		}
		if !p.Direction.IsCanonical() {
			return nil, fmt.Errorf("%w: direction %q is not canonical", models.ErrInvalidPayload, p.Direction)
		}
		return &p, nil

	case EventTypeDescriptionUpdate:
		var p DescriptionUpdatePayload
		if err := decodeInto(e.Payload, &p); err != nil {
			return nil, err
		}
		if !models.ValidScopeKey(p.ScopeKey) {
			return nil, fmt.Errorf("%w: malformed scope key %q", models.ErrInvalidPayload, p.ScopeKey)
		}
		if p.EffectiveToTick != nil && *p.EffectiveToTick <= p.EffectiveFromTick {
			return nil, fmt.Errorf("%w: effectiveToTick must exceed effectiveFromTick", models.ErrInvalidPayload)
		}
		return &p, nil

	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownEventType, e.Type)
	}
}

func decodeInto(raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidPayload, err)
	}
	if err := envelopeValidator.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidPayload, err)
	}
	return nil
}
