// Package messaging moves world event envelopes over RabbitMQ and enforces
// the validate, dedupe, execute, classify pipeline on every delivery.
package messaging

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"realm-server/internal/events"
	"realm-server/internal/models"
	"realm-server/internal/registry"
	"realm-server/internal/telemetry"
)

// DefaultRecordTTL bounds how long processed-event records are kept.
const DefaultRecordTTL = 30 * 24 * time.Hour

// Handler executes one decoded world event. The payload is the pointer
// returned by events.DecodePayload for the envelope's type. Errors wrapped
// with events.Terminal are dead-lettered instead of retried.
type Handler interface {
	Handle(ctx context.Context, envelope *events.Envelope, payload any) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, envelope *events.Envelope, payload any) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, envelope *events.Envelope, payload any) error {
	return f(ctx, envelope, payload)
}

// Dispatcher routes validated envelopes to their type-specific handlers with
// idempotency enforced by the processed-event registry.
type Dispatcher struct {
	handlers  map[events.EventType]Handler
	registry  registry.Registry
	metrics   *telemetry.Recorder
	logger    *zap.Logger
	recordTTL time.Duration
}

// NewDispatcher creates a dispatcher with no handlers bound.
func NewDispatcher(reg registry.Registry, metrics *telemetry.Recorder, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		handlers:  make(map[events.EventType]Handler),
		registry:  reg,
		metrics:   metrics,
		logger:    logger.Named("Dispatcher"),
		recordTTL: DefaultRecordTTL,
	}
}

// Register binds exactly one handler to an event type. Binding the same type
// twice is a programming error and panics at startup.
func (d *Dispatcher) Register(t events.EventType, h Handler) {
	if _, exists := d.handlers[t]; exists {
		panic(fmt.Sprintf("handler for %s already registered", t))
	}
	d.handlers[t] = h
}

// Dispatch runs the full pipeline for one delivery and classifies the
// outcome. Only OutcomeError is eligible for transport-level retry; the
// registry absorbs redeliveries of completed events as duplicates.
func (d *Dispatcher) Dispatch(ctx context.Context, envelope *events.Envelope) (events.Outcome, error) {
	log := d.logger.With(
		zap.Stringer("event_id", envelope.EventID),
		zap.String("event_type", string(envelope.Type)),
		zap.Stringer("correlation_id", envelope.CorrelationID),
	)

	if err := envelope.Validate(); err != nil {
		log.Warn("Rejecting invalid envelope", zap.Error(err))
		d.metrics.RecordHandlerOutcome(string(envelope.Type), string(events.OutcomeValidationFailed))
		return events.OutcomeValidationFailed, err
	}

	payload, err := events.DecodePayload(envelope)
	if err != nil {
		log.Warn("Rejecting invalid payload", zap.Error(err))
		// The envelope itself is well-formed, so the rejection is recorded:
		// a redelivery of the same broken event becomes a duplicate.
		d.mark(ctx, log, envelope, events.OutcomeValidationFailed)
		d.metrics.RecordHandlerOutcome(string(envelope.Type), string(events.OutcomeValidationFailed))
		return events.OutcomeValidationFailed, err
	}

	if rec, err := d.registry.CheckProcessed(ctx, envelope.IdempotencyKey); err != nil {
		log.Error("Registry check failed", zap.Error(err))
		d.metrics.RecordHandlerOutcome(string(envelope.Type), string(events.OutcomeError))
		return events.OutcomeError, err
	} else if rec != nil {
		log.Info("Duplicate delivery absorbed",
			zap.String("idempotency_key", envelope.IdempotencyKey),
			zap.Stringer("first_event_id", rec.EventID),
		)
		d.metrics.RecordHandlerOutcome(string(envelope.Type), string(events.OutcomeDuplicate))
		return events.OutcomeDuplicate, nil
	}

	handler, ok := d.handlers[envelope.Type]
	if !ok {
		err := fmt.Errorf("%w: %s", models.ErrHandlerNotRegistered, envelope.Type)
		log.Error("No handler bound for event type")
		d.metrics.RecordHandlerOutcome(string(envelope.Type), string(events.OutcomeValidationFailed))
		return events.OutcomeValidationFailed, err
	}

	if err := handler.Handle(ctx, envelope, payload); err != nil {
		if events.IsTerminal(err) {
			log.Warn("Handler failed terminally", zap.Error(err))
			d.mark(ctx, log, envelope, events.OutcomeValidationFailed)
			d.metrics.RecordHandlerOutcome(string(envelope.Type), string(events.OutcomeValidationFailed))
			return events.OutcomeValidationFailed, err
		}
		log.Error("Handler failed, eligible for retry", zap.Error(err))
		d.metrics.RecordHandlerOutcome(string(envelope.Type), string(events.OutcomeError))
		return events.OutcomeError, err
	}

	if inserted := d.mark(ctx, log, envelope, events.OutcomeSuccess); !inserted {
		// A concurrent delivery won the insert race after our check; the
		// side effects are idempotent, so report this one as the duplicate.
		d.metrics.RecordHandlerOutcome(string(envelope.Type), string(events.OutcomeDuplicate))
		return events.OutcomeDuplicate, nil
	}
	d.metrics.RecordHandlerOutcome(string(envelope.Type), string(events.OutcomeSuccess))
	return events.OutcomeSuccess, nil
}

func (d *Dispatcher) mark(ctx context.Context, log *zap.Logger, envelope *events.Envelope, outcome events.Outcome) bool {
	inserted, err := d.registry.MarkProcessed(ctx, registry.NewRecord(envelope, outcome, d.recordTTL))
	if err != nil {
		// The handler already ran; losing the record only risks one extra
		// duplicate absorption on redelivery.
		log.Error("Failed to mark event processed", zap.Error(err))
		return true
	}
	if !inserted {
		log.Info("Lost mark race to a concurrent delivery",
			zap.String("idempotency_key", envelope.IdempotencyKey))
	}
	return inserted
}

// IsRetryable reports whether the outcome should be redelivered.
func IsRetryable(outcome events.Outcome) bool {
	return outcome == events.OutcomeError
}
