package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"realm-server/internal/events"
)

const (
	publishTimeout  = 10 * time.Second
	publishAttempts = 3
	publishBackoff  = 500 * time.Millisecond
)

// worldEventPublisher enqueues envelopes onto the world event queue,
// carrying the correlation id in the message properties.
type worldEventPublisher struct {
	channel  *amqp.Channel
	topology Topology
	logger   *zap.Logger
}

// NewWorldEventPublisher opens a channel and ensures the queue topology
// exists. The returned publisher satisfies events.Publisher.
func NewWorldEventPublisher(conn *amqp.Connection, topology Topology, logger *zap.Logger) (events.Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("event publisher: failed to open channel: %w", err)
	}
	if err := topology.Declare(ch); err != nil {
		ch.Close()
		return nil, err
	}
	return &worldEventPublisher{
		channel:  ch,
		topology: topology,
		logger:   logger.Named("EventPublisher"),
	}, nil
}

func (p *worldEventPublisher) Publish(ctx context.Context, envelope events.Envelope) error {
	if p.channel == nil {
		return errors.New("event publisher: channel not initialized")
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("event publisher: failed to marshal envelope %s: %w", envelope.EventID, err)
	}

	var lastErr error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		err = p.channel.PublishWithContext(pubCtx,
			"",               // default exchange
			p.topology.Queue, // routing key
			false,            // mandatory
			false,            // immediate
			amqp.Publishing{
				ContentType:   "application/json",
				DeliveryMode:  amqp.Persistent,
				MessageId:     envelope.EventID.String(),
				CorrelationId: envelope.CorrelationID.String(),
				Type:          string(envelope.Type),
				Timestamp:     envelope.OccurredUTC,
				Body:          body,
			},
		)
		cancel()
		if err == nil {
			p.logger.Info("Published world event",
				zap.Stringer("event_id", envelope.EventID),
				zap.String("event_type", string(envelope.Type)),
				zap.Stringer("correlation_id", envelope.CorrelationID),
			)
			return nil
		}
		lastErr = err
		p.logger.Warn("Publish attempt failed",
			zap.Int("attempt", attempt),
			zap.Stringer("event_id", envelope.EventID),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(publishBackoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("event publisher: failed to publish %s after %d attempts: %w",
		envelope.EventID, publishAttempts, lastErr)
}
