package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"realm-server/internal/direction"
)

// Availability marks a direction that has no concrete edge yet.
type Availability string

const (
	// AvailabilityPending marks a direction whose area has not been generated.
	AvailabilityPending Availability = "pending"
	// AvailabilityForbidden marks a direction that will never be generated.
	AvailabilityForbidden Availability = "forbidden"
)

// ExitAvailability records directions without a concrete edge, in their
// declaration order. A direction may appear in both lists when independent
// writers disagree; consumers must treat forbidden as winning.
type ExitAvailability struct {
	Pending   []direction.Direction `json:"pending,omitempty"`
	Forbidden []direction.Direction `json:"forbidden,omitempty"`
}

// IsPending reports whether d awaits generation.
func (a ExitAvailability) IsPending(d direction.Direction) bool {
	return containsDirection(a.Pending, d)
}

// IsForbidden reports whether d is permanently impassable.
func (a ExitAvailability) IsForbidden(d direction.Direction) bool {
	return containsDirection(a.Forbidden, d)
}

// IsEmpty reports whether no availability marks exist.
func (a ExitAvailability) IsEmpty() bool {
	return len(a.Pending) == 0 && len(a.Forbidden) == 0
}

func containsDirection(list []direction.Direction, d direction.Direction) bool {
	for _, c := range list {
		if c == d {
			return true
		}
	}
	return false
}

// ExitEdge is a directed connection between two locations.
// At most one edge exists per (FromLocationID, Direction).
type ExitEdge struct {
	Direction      direction.Direction `json:"direction"`
	FromLocationID uuid.UUID           `json:"fromLocationId"`
	ToLocationID   uuid.UUID           `json:"toLocationId"`
	Description    string              `json:"description,omitempty"`
	Blocked        bool                `json:"blocked,omitempty"`
}

// Location is a node of the world graph.
type Location struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	// Exits keeps declaration order; frontier selection depends on it.
	Exits []ExitEdge `json:"exits"`
	// ExitAvailability records directions without a concrete edge.
	ExitAvailability ExitAvailability `json:"exitAvailability,omitempty"`
	Tags             []string         `json:"tags,omitempty"`
	// Version increases only on content changes, never on metadata touches.
	Version     int64     `json:"version"`
	ExitSummary string    `json:"exitSummary,omitempty"`
	CreatedUTC  time.Time `json:"createdUtc"`
	UpdatedUTC  time.Time `json:"updatedUtc"`
}

// ExitIn returns the edge leaving in the given direction, if any.
func (l *Location) ExitIn(d direction.Direction) (ExitEdge, bool) {
	for _, e := range l.Exits {
		if e.Direction == d {
			return e, true
		}
	}
	return ExitEdge{}, false
}

// HasTag reports whether the location carries the given tag.
// Matching is case-insensitive.
func (l *Location) HasTag(tag string) bool {
	for _, t := range l.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// ExitDirections lists the directions of concrete edges in declaration order.
func (l *Location) ExitDirections() []direction.Direction {
	dirs := make([]direction.Direction, 0, len(l.Exits))
	for _, e := range l.Exits {
		dirs = append(dirs, e.Direction)
	}
	return dirs
}

// RenderExitSummary rebuilds the cached one-line exit summary.
func (l *Location) RenderExitSummary() string {
	dirs := l.ExitDirections()
	if len(dirs) == 0 {
		return "There are no obvious exits."
	}
	names := make([]string, len(dirs))
	for i, d := range dirs {
		names[i] = d.String()
	}
	return "Exits: " + strings.Join(names, ", ")
}

// TagFrontierBoundary is set on locations at the generated edge of the world.
const TagFrontierBoundary = "frontier-boundary"
