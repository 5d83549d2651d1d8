package ingestion

import "context"

// Delivery is one received message. Ack completes it; Nack leaves it to the
// transport's redelivery policy.
type Delivery interface {
	ID() string
	Body() []byte
	Ack(ctx context.Context) error
	Nack(ctx context.Context) error
}

// Source yields deliveries from an at-least-once queue.
type Source interface {
	// Receive blocks until a delivery is available or ctx is done.
	Receive(ctx context.Context) (Delivery, error)
	Close() error
}

// Publisher puts raw payloads onto a queue
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}
