package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPTransport publishes events to a topic exchange, routed by
// "<exchange>.<event type>"
type AMQPTransport struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewAMQPTransport(url, exchange string) (*AMQPTransport, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic", // routed by event type
		true,    // durable
		false,   // auto-deleted
		false,   // internal
		false,   // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &AMQPTransport{conn: conn, channel: ch, exchange: exchange}, nil
}

// RoutingKey of an event on this transport
func (t *AMQPTransport) RoutingKey(e Event) string {
	return fmt.Sprintf("%s.%s", t.exchange, e.Type)
}

func (t *AMQPTransport) Send(ctx context.Context, events []Event) error {
	for _, event := range events {
		body, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}

		err = t.channel.PublishWithContext(ctx,
			t.exchange,
			t.RoutingKey(event),
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				Body:         body,
				MessageId:    event.ID,
				Timestamp:    event.Timestamp,
				DeliveryMode: amqp.Persistent,
				Headers: amqp.Table{
					"event_type": string(event.Type),
					"severity":   string(event.Severity),
					"source":     event.Source,
				},
			},
		)
		if err != nil {
			return fmt.Errorf("failed to publish event: %w", err)
		}
	}
	return nil
}

func (t *AMQPTransport) Close() error {
	if t.channel != nil {
		t.channel.Close()
	}
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}
