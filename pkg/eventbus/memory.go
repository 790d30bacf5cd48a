package eventbus

import (
	"context"
	"sync"
)

// MemoryBus is an in-process Publisher used by tests and local runs.
type MemoryBus struct {
	mu       sync.Mutex
	messages []Message
	failWith error
}

// NewMemoryBus returns an empty bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Publish records msg, or returns the configured failure.
func (b *MemoryBus) Publish(_ context.Context, msg Message) error {
	if msg.Topic == "" {
		return ErrTopicRequired
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failWith != nil {
		return b.failWith
	}
	b.messages = append(b.messages, msg)
	return nil
}

// FailWith makes subsequent publishes return err. Pass nil to recover.
func (b *MemoryBus) FailWith(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failWith = err
}

// Messages returns a copy of everything published so far.
func (b *MemoryBus) Messages() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// Close is a no-op.
func (b *MemoryBus) Close() error {
	return nil
}
