package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"realm-server/internal/events"
	"realm-server/internal/telemetry"
)

const (
	consumerTag    = "realm-world-event-consumer"
	reconnectDelay = 5 * time.Second
)

// Consumer pulls world event envelopes off the queue one at a time and
// feeds them to the dispatcher. Ack policy follows the outcome: terminal
// outcomes are acked, validation failures are dead-lettered, and only error
// outcomes go back to the queue for retry.
type Consumer struct {
	conn         *amqp.Connection
	dispatcher   *Dispatcher
	topology     Topology
	metrics      *telemetry.Recorder
	logger       *zap.Logger
	shutdownChan chan struct{}
}

// NewConsumer creates a world event consumer.
func NewConsumer(conn *amqp.Connection, dispatcher *Dispatcher, topology Topology, metrics *telemetry.Recorder, logger *zap.Logger) *Consumer {
	return &Consumer{
		conn:         conn,
		dispatcher:   dispatcher,
		topology:     topology,
		metrics:      metrics,
		logger:       logger.Named("EventConsumer"),
		shutdownChan: make(chan struct{}),
	}
}

// StartConsuming runs the consume loop in a goroutine, reconnecting on
// channel failures until Stop is called.
func (c *Consumer) StartConsuming(ctx context.Context) {
	go func() {
		for {
			select {
			case <-c.shutdownChan:
				c.logger.Info("Stopping world event consumer")
				return
			case <-ctx.Done():
				c.logger.Info("Context cancelled, stopping world event consumer")
				return
			default:
				if err := c.consumeMessages(ctx); err != nil {
					c.logger.Error("Consumer loop failed, reconnecting",
						zap.Duration("delay", reconnectDelay),
						zap.Error(err),
					)
					select {
					case <-time.After(reconnectDelay):
					case <-c.shutdownChan:
						return
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	c.logger.Info("World event consumer started", zap.String("queue", c.topology.Queue))
}

// Stop signals the consume loop to exit.
func (c *Consumer) Stop() {
	close(c.shutdownChan)
}

func (c *Consumer) consumeMessages(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := c.topology.Declare(ch); err != nil {
		return err
	}

	// One unacked message at a time: handler side effects are idempotent
	// but ordering within the queue is still worth preserving.
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		c.topology.Queue,
		consumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Waiting for world events", zap.String("queue", c.topology.Queue))
	for {
		select {
		case <-c.shutdownChan:
			return nil
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.handleDelivery(ctx, d)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	log := c.logger.With(zap.Uint64("delivery_tag", d.DeliveryTag))

	var envelope events.Envelope
	if err := json.Unmarshal(d.Body, &envelope); err != nil {
		log.Error("Failed to unmarshal envelope, dead-lettering",
			zap.Error(err),
			zap.ByteString("body", d.Body),
		)
		c.metrics.RecordDeadLetter("malformed_json")
		c.nack(log, d, false)
		return
	}

	outcome, err := c.dispatcher.Dispatch(ctx, &envelope)
	switch outcome {
	case events.OutcomeSuccess, events.OutcomeDuplicate:
		c.ack(log, d)
	case events.OutcomeValidationFailed:
		c.metrics.RecordDeadLetter(string(events.OutcomeValidationFailed))
		c.nack(log, d, false)
	case events.OutcomeError:
		log.Warn("Requeueing delivery after retryable failure",
			zap.Stringer("event_id", envelope.EventID),
			zap.Error(err),
		)
		c.nack(log, d, true)
	default:
		log.Error("Unexpected dispatch outcome, dead-lettering",
			zap.String("outcome", string(outcome)))
		c.metrics.RecordDeadLetter("unexpected_outcome")
		c.nack(log, d, false)
	}
}

func (c *Consumer) ack(log *zap.Logger, d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		log.Error("Failed to ack delivery", zap.Error(err))
	}
}

func (c *Consumer) nack(log *zap.Logger, d amqp.Delivery, requeue bool) {
	if err := d.Nack(false, requeue); err != nil {
		log.Error("Failed to nack delivery", zap.Bool("requeue", requeue), zap.Error(err))
	}
}
