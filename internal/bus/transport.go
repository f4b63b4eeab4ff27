package bus

import "context"

// Message is one inbound bus delivery.
type Message struct {
	Topic   string
	Payload []byte
}

// Publisher sends a JSON-encoded payload on a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// Subscriber delivers messages from the given topics until ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, topics ...string) (<-chan Message, error)
}
