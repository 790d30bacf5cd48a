package pubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/fincore/pkg/eventbus"
)

type topicPublisher interface {
	Publish(context.Context, *pubsub.Message) *pubsub.PublishResult
	Stop()
}

// Bus publishes eventbus messages to Pub/Sub topics, caching one publisher per topic.
type Bus struct {
	client *Client

	mu         sync.Mutex
	publishers map[string]topicPublisher
}

// NewBus wraps client as an eventbus.Publisher.
func NewBus(client *Client) (*Bus, error) {
	if client == nil {
		return nil, errors.New("pubsub client is required")
	}
	return &Bus{client: client, publishers: map[string]topicPublisher{}}, nil
}

// Publish sends msg and waits for the server ID.
func (b *Bus) Publish(ctx context.Context, msg eventbus.Message) error {
	if msg.Topic == "" {
		return eventbus.ErrTopicRequired
	}
	pub, err := b.publisher(msg.Topic)
	if err != nil {
		return err
	}
	result := pub.Publish(ctx, &pubsub.Message{
		Data:       msg.Data,
		Attributes: msg.Attributes,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.Topic, err)
	}
	return nil
}

func (b *Bus) publisher(topic string) (topicPublisher, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if pub, ok := b.publishers[topic]; ok {
		return pub, nil
	}
	pub := b.client.Publisher(topic)
	if pub == nil {
		return nil, fmt.Errorf("publisher not configured for topic %s", topic)
	}
	b.publishers[topic] = pub
	return pub, nil
}

// Close flushes and stops every cached publisher.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for topic, pub := range b.publishers {
		pub.Stop()
		delete(b.publishers, topic)
	}
	return nil
}

// Subscription adapts a Pub/Sub subscriber to eventbus.Subscriber.
type Subscription struct {
	sub *pubsub.Subscriber
}

// NewSubscription wraps sub. Handler errors nack the message so Pub/Sub redelivers it.
func NewSubscription(sub *pubsub.Subscriber) (*Subscription, error) {
	if sub == nil {
		return nil, errors.New("pubsub subscriber is required")
	}
	return &Subscription{sub: sub}, nil
}

// Receive blocks until ctx is cancelled or the subscription fails.
func (s *Subscription) Receive(ctx context.Context, handler eventbus.Handler) error {
	return s.sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		err := handler(ctx, eventbus.Message{
			Topic:      s.sub.String(),
			Key:        m.OrderingKey,
			Data:       m.Data,
			Attributes: m.Attributes,
		})
		if err != nil {
			m.Nack()
			return
		}
		m.Ack()
	})
}

// Close is a no-op; the owning Client releases the connection.
func (s *Subscription) Close() error {
	return nil
}
