package messaging

import (
	"context"
	"encoding/json"
)

// BrokerAdapter bridges a channel-based Broker to the handler-based
// MessageBroker the workers expect.
type BrokerAdapter struct {
	broker Broker
}

func NewBrokerAdapter(broker Broker) MessageBroker {
	return &BrokerAdapter{broker: broker}
}

func (a *BrokerAdapter) Publish(ctx context.Context, topic string, payload []byte) error {
	var msg interface{}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return err
	}
	return a.broker.Publish(ctx, topic, msg)
}

func (a *BrokerAdapter) Close() error {
	return a.broker.Close()
}

// Subscribe pumps messages into handler on a background goroutine until the
// underlying subscription channel closes. Handler errors skip the message;
// delivery here is at-most-once and the outbox provides the durable retry.
func (a *BrokerAdapter) Subscribe(ctx context.Context, topic string, handler func([]byte) error) error {
	msgChan, err := a.broker.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgChan {
			if err := handler(msg); err != nil {
				continue
			}
		}
	}()

	return nil
}
