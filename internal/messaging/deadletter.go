package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"realm-server/internal/events"
)

const dlqConsumerTag = "realm-dlq-inspector"

// DeadLetterInspector drains the dead-letter queue, logging each rejected
// envelope for operators. Dead-lettered events are terminal; the inspector
// never requeues them.
type DeadLetterInspector struct {
	conn         *amqp.Connection
	topology     Topology
	logger       *zap.Logger
	shutdownChan chan struct{}
}

// NewDeadLetterInspector creates a dead-letter queue inspector.
func NewDeadLetterInspector(conn *amqp.Connection, topology Topology, logger *zap.Logger) *DeadLetterInspector {
	return &DeadLetterInspector{
		conn:         conn,
		topology:     topology,
		logger:       logger.Named("DLQInspector"),
		shutdownChan: make(chan struct{}),
	}
}

// StartConsuming runs the inspection loop in a goroutine until Stop.
func (i *DeadLetterInspector) StartConsuming() {
	go func() {
		for {
			select {
			case <-i.shutdownChan:
				i.logger.Info("Stopping dead-letter inspector")
				return
			default:
				if err := i.consumeMessages(); err != nil {
					i.logger.Error("Dead-letter loop failed, reconnecting",
						zap.Duration("delay", reconnectDelay),
						zap.Error(err),
					)
					select {
					case <-time.After(reconnectDelay):
					case <-i.shutdownChan:
						return
					}
				}
			}
		}
	}()
	i.logger.Info("Dead-letter inspector started", zap.String("queue", i.topology.DeadLetterQueue))
}

// Stop signals the inspection loop to exit.
func (i *DeadLetterInspector) Stop() {
	close(i.shutdownChan)
}

func (i *DeadLetterInspector) consumeMessages() error {
	ch, err := i.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclarePassive(i.topology.DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("dead-letter queue %q not found: %w", i.topology.DeadLetterQueue, err)
	}

	msgs, err := ch.Consume(
		i.topology.DeadLetterQueue,
		dlqConsumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register dead-letter consumer: %w", err)
	}

	for {
		select {
		case <-i.shutdownChan:
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("dead-letter delivery channel closed")
			}
			i.inspect(d)
		}
	}
}

func (i *DeadLetterInspector) inspect(d amqp.Delivery) {
	log := i.logger.With(zap.Uint64("delivery_tag", d.DeliveryTag))

	var envelope events.Envelope
	if err := json.Unmarshal(d.Body, &envelope); err != nil {
		log.Error("Dead-lettered message is not an envelope",
			zap.Error(err),
			zap.ByteString("body", d.Body),
		)
	} else {
		log.Warn("Inspected dead-lettered event",
			zap.Stringer("event_id", envelope.EventID),
			zap.String("event_type", string(envelope.Type)),
			zap.Stringer("correlation_id", envelope.CorrelationID),
			zap.String("idempotency_key", envelope.IdempotencyKey),
			zap.String("death_reason", deathReason(d)),
		)
	}

	if err := d.Ack(false); err != nil {
		log.Error("Failed to ack dead-lettered message", zap.Error(err))
	}
}

// deathReason extracts the broker's x-death reason when present.
func deathReason(d amqp.Delivery) string {
	deaths, ok := d.Headers["x-death"].([]interface{})
	if !ok || len(deaths) == 0 {
		return "unknown"
	}
	death, ok := deaths[0].(amqp.Table)
	if !ok {
		return "unknown"
	}
	if reason, ok := death["reason"].(string); ok {
		return reason
	}
	return "unknown"
}
