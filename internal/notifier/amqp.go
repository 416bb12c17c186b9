package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/streadway/amqp"
)

// ConfirmationQueue is where paid-order confirmations land. Consumers
// (email sender, fulfillment sync) bind to it independently.
const ConfirmationQueue = "order.confirmations"

// AMQPNotifier publishes one durable message per confirmed order.
type AMQPNotifier struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *log.Logger
}

type confirmationMessage struct {
	OrderID     string    `json:"orderId"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}

// NewAMQPNotifier dials the broker and declares the confirmation queue.
func NewAMQPNotifier(url string, logger *log.Logger) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to amqp: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if _, err := channel.QueueDeclare(ConfirmationQueue, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", ConfirmationQueue, err)
	}
	logger.Printf("notifier: amqp connected, queue %s declared", ConfirmationQueue)
	return &AMQPNotifier{conn: conn, channel: channel, logger: logger}, nil
}

func (n *AMQPNotifier) Notify(_ context.Context, orderID string) error {
	body, err := json.Marshal(confirmationMessage{OrderID: orderID, ConfirmedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal confirmation for order %s: %w", orderID, err)
	}
	err = n.channel.Publish("", ConfirmationQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish confirmation for order %s: %w", orderID, err)
	}
	return nil
}

// Close releases the channel and connection for graceful shutdown.
func (n *AMQPNotifier) Close() error {
	if n.channel != nil {
		if err := n.channel.Close(); err != nil {
			return err
		}
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
