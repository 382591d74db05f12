package messaging

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Topology names the world event queue and its dead-letter pair. Publisher
// and consumer must declare identical arguments or the broker rejects the
// second declaration.
type Topology struct {
	Queue              string
	DeadLetterExchange string
	DeadLetterQueue    string
}

// Declare sets up the dead-letter exchange, the dead-letter queue bound to
// it, and the main queue routing rejections there. Declaration is idempotent
// on the broker side.
func (t Topology) Declare(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		t.DeadLetterExchange,
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare dead-letter exchange %q: %w", t.DeadLetterExchange, err)
	}
	if _, err := ch.QueueDeclare(
		t.DeadLetterQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare dead-letter queue %q: %w", t.DeadLetterQueue, err)
	}
	if err := ch.QueueBind(t.DeadLetterQueue, t.Queue, t.DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind dead-letter queue %q: %w", t.DeadLetterQueue, err)
	}
	if _, err := ch.QueueDeclare(
		t.Queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-dead-letter-exchange":    t.DeadLetterExchange,
			"x-dead-letter-routing-key": t.Queue,
		},
	); err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", t.Queue, err)
	}
	return nil
}
