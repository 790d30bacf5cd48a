// Package eventbus hides the broker behind a small publish/receive surface so
// the outbox publisher and the analytics worker run unchanged on Pub/Sub or Kafka.
package eventbus

import (
	"context"
	"errors"
)

// Attribute names stamped on every published message.
const (
	AttrEventID       = "event_id"
	AttrEventType     = "event_type"
	AttrAggregateType = "aggregate_type"
	AttrAggregateID   = "aggregate_id"
	AttrCreatedAt     = "created_at"
)

// ErrTopicRequired is returned when a message has no destination.
var ErrTopicRequired = errors.New("message topic is required")

// Message is a transport-neutral event.
type Message struct {
	Topic      string
	Key        string
	Data       []byte
	Attributes map[string]string
}

// Publisher delivers messages to a broker. Publish blocks until the broker acknowledges.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Handler processes a received message. A nil return acknowledges it.
type Handler func(ctx context.Context, msg Message) error

// Subscriber pulls messages and dispatches them to a handler until ctx ends.
type Subscriber interface {
	Receive(ctx context.Context, handler Handler) error
	Close() error
}
