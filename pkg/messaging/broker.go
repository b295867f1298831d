package messaging

import (
	"context"
)

// Broker is the raw pub/sub surface a backend implements. Subscribe returns
// a channel that closes when the context is cancelled.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// MessageBroker is the byte-oriented surface the outbox processor and the
// notifier consume: publish raw payloads, subscribe with a handler callback.
type MessageBroker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string, handler func([]byte) error) error
	Close() error
}
