package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"realm-server/internal/models"
)

// EventType is the closed set of world-mutation event types.
type EventType string

const (
	EventTypeAreaExpandBatch   EventType = "World.Area.ExpandBatch"
	EventTypeExitCreate        EventType = "World.Exit.Create"
	EventTypeDescriptionUpdate EventType = "World.Description.Update"
)

// KnownEventTypes lists every event type the dispatcher accepts.
var KnownEventTypes = []EventType{
	EventTypeAreaExpandBatch,
	EventTypeExitCreate,
	EventTypeDescriptionUpdate,
}

// IsKnown reports whether t belongs to the closed enum.
func (t EventType) IsKnown() bool {
	for _, k := range KnownEventTypes {
		if k == t {
			return true
		}
	}
	return false
}

// ActorKind identifies what kind of agent caused an event.
type ActorKind string

const (
	ActorKindPlayer ActorKind = "player"
	ActorKindNPC    ActorKind = "npc"
	ActorKindSystem ActorKind = "system"
	ActorKindAI     ActorKind = "ai"
)

// IsKnown reports whether k is a known actor kind.
func (k ActorKind) IsKnown() bool {
	switch k {
	case ActorKindPlayer, ActorKindNPC, ActorKindSystem, ActorKindAI:
		return true
	}
	return false
}

// Actor identifies the agent behind an event.
type Actor struct {
	Kind ActorKind  `json:"kind" validate:"required"`
	ID   *uuid.UUID `json:"id,omitempty"`
}

// Envelope is the wire form of a world-mutation event. IdempotencyKey is
// stable across retried deliveries of the logically same event;
// CorrelationID threads the causal chain across handlers.
type Envelope struct {
	EventID        uuid.UUID       `json:"eventId" validate:"required"`
	Type           EventType       `json:"type" validate:"required"`
	OccurredUTC    time.Time       `json:"occurredUtc" validate:"required"`
	Actor          Actor           `json:"actor"`
	CorrelationID  uuid.UUID       `json:"correlationId" validate:"required"`
	CausationID    *uuid.UUID      `json:"causationId,omitempty"`
	IdempotencyKey string          `json:"idempotencyKey" validate:"required"`
	Version        int             `json:"version" validate:"required,gt=0"`
	Payload        json.RawMessage `json:"payload" validate:"required"`
}

var envelopeValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the envelope structure. Failures are terminal; the caller
// routes them to the dead-letter sink, never to retry.
func (e *Envelope) Validate() error {
	if err := envelopeValidator.Struct(e); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidEnvelope, err)
	}
	if !e.Type.IsKnown() {
		return fmt.Errorf("%w: %q", models.ErrUnknownEventType, e.Type)
	}
	if !e.Actor.Kind.IsKnown() {
		return fmt.Errorf("%w: unknown actor kind %q", models.ErrInvalidEnvelope, e.Actor.Kind)
	}
	return nil
}

// NewEnvelope builds a root envelope for a fresh causal chain. The
// idempotency key is derived from the actor kind, type, and scope key so
// logically-identical requests within one time bucket collapse.
func NewEnvelope(t EventType, actor Actor, scopeKey string, payload any) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal payload for %s: %w", t, err)
	}
	now := time.Now().UTC()
	return Envelope{
		EventID:        uuid.New(),
		Type:           t,
		OccurredUTC:    now,
		Actor:          actor,
		CorrelationID:  uuid.New(),
		IdempotencyKey: DeriveIdempotencyKey(actor.Kind, t, scopeKey, now),
		Version:        1,
		Payload:        body,
	}, nil
}

// ChildEnvelope builds a downstream envelope caused by e, carrying the same
// correlation id and recording e as the causation.
func (e *Envelope) ChildEnvelope(t EventType, actor Actor, idempotencyKey string, payload any) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal payload for %s: %w", t, err)
	}
	causation := e.EventID
	return Envelope{
		EventID:        uuid.New(),
		Type:           t,
		OccurredUTC:    time.Now().UTC(),
		Actor:          actor,
		CorrelationID:  e.CorrelationID,
		CausationID:    &causation,
		IdempotencyKey: idempotencyKey,
		Version:        1,
		Payload:        body,
	}, nil
}

// idempotencyBucket is the time-bucket layout of derived idempotency keys.
// One minute sits comfortably above the hint debounce window.
const idempotencyBucket = "2006-01-02T15:04"

// DeriveIdempotencyKey builds the default idempotency key
// actorKind:eventType:scopeKey:timeBucket for callers that supply none.
func DeriveIdempotencyKey(kind ActorKind, t EventType, scopeKey string, occurred time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%s", kind, t, scopeKey, occurred.UTC().Format(idempotencyBucket))
}
