// Package registry records which idempotency keys have already been handled.
// It is the sole serialization point for duplicate suppression: MarkProcessed
// is insert-if-absent, so of two deliveries racing on the same key exactly
// one observes inserted=true.
package registry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"realm-server/internal/events"
)

// ProcessedEventRecord is created exactly once per idempotency key, the
// first time an event is successfully or terminally handled.
type ProcessedEventRecord struct {
	ID             uuid.UUID
	IdempotencyKey string
	EventID        uuid.UUID
	EventType      events.EventType
	CorrelationID  uuid.UUID
	ProcessedUTC   time.Time
	ActorKind      events.ActorKind
	Outcome        events.Outcome
	// ExpiresUTC is an optional TTL after which the record may be purged.
	ExpiresUTC *time.Time
}

// NewRecord builds a registry record for a handled envelope.
func NewRecord(e *events.Envelope, outcome events.Outcome, ttl time.Duration) ProcessedEventRecord {
	rec := ProcessedEventRecord{
		ID:             uuid.New(),
		IdempotencyKey: e.IdempotencyKey,
		EventID:        e.EventID,
		EventType:      e.Type,
		CorrelationID:  e.CorrelationID,
		ProcessedUTC:   time.Now().UTC(),
		ActorKind:      e.Actor.Kind,
		Outcome:        outcome,
	}
	if ttl > 0 {
		expires := rec.ProcessedUTC.Add(ttl)
		rec.ExpiresUTC = &expires
	}
	return rec
}

// Registry is the durable idempotency store.
type Registry interface {
	// CheckProcessed returns the record for the key, or nil when absent.
	CheckProcessed(ctx context.Context, idempotencyKey string) (*ProcessedEventRecord, error)
	// MarkProcessed inserts the record unless its key already exists.
	// It reports whether this call performed the insert.
	MarkProcessed(ctx context.Context, rec ProcessedEventRecord) (bool, error)
	// GetByID returns the record with the given id.
	GetByID(ctx context.Context, id uuid.UUID) (*ProcessedEventRecord, error)
}
