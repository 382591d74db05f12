package models

import (
	"time"

	"github.com/google/uuid"

	"realm-server/internal/direction"
)

// Player is a participant with exactly one authoritative location.
// For authenticated players CurrentLocationID is read from the store and
// never trusted from client input.
type Player struct {
	ID                uuid.UUID `json:"id"`
	CurrentLocationID uuid.UUID `json:"currentLocationId"`
	Guest             bool      `json:"guest"`
	CreatedUTC        time.Time `json:"createdUtc"`
	UpdatedUTC        time.Time `json:"updatedUtc"`
	ExternalID        string    `json:"externalId,omitempty"`
	Name              string    `json:"name,omitempty"`
	// LastHeading is the most recent successfully travelled canonical
	// direction, used to resolve relative terms like "left".
	LastHeading *direction.Direction `json:"lastHeading,omitempty"`
}
