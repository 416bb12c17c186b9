// Package notifier delivers order confirmation signals to downstream
// consumers (email workers, fulfillment). Delivery is best-effort; the
// order state machine never depends on it.
package notifier

import (
	"context"
	"log"
)

type Notifier interface {
	Notify(ctx context.Context, orderID string) error
}

// LogNotifier is the fallback when no message broker is configured. It
// records the confirmation in the service log and nothing else.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, orderID string) error {
	n.logger.Printf("notifier: order %s confirmed", orderID)
	return nil
}
