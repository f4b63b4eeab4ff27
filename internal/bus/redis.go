package bus

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// RedisBus implements Publisher and Subscriber over Redis Pub/Sub.
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus wraps an existing client.
func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

// Publish JSON-encodes payload and publishes it on topic.
func (b *RedisBus) Publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, topic, data).Err()
}

// Subscribe delivers messages from the given topics. The subscription and
// the returned channel are closed when ctx is done.
func (b *RedisBus) Subscribe(ctx context.Context, topics ...string) (<-chan Message, error) {
	sub := b.client.Subscribe(ctx, topics...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- Message{Topic: msg.Channel, Payload: []byte(msg.Payload)}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
