package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/angelmondragon/fincore/pkg/config"
	"github.com/angelmondragon/fincore/pkg/eventbus"
	"github.com/angelmondragon/fincore/pkg/logger"
)

const (
	defaultWriteTimeout = 10 * time.Second
	maxHandlerAttempts  = 5
	handlerRetryDelay   = 500 * time.Millisecond
)

var errBrokersRequired = errors.New("kafka brokers are required")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes eventbus messages to Kafka. The topic is taken from each message.
type Publisher struct {
	writer  messageWriter
	timeout time.Duration
}

// NewPublisher builds a synchronous writer that waits for all in-sync replicas.
func NewPublisher(cfg config.KafkaConfig) (*Publisher, error) {
	brokers := cleanBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, errBrokersRequired
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: timeout,
	}
	return &Publisher{writer: w, timeout: timeout}, nil
}

// Publish writes one message keyed by msg.Key so events of an aggregate stay ordered.
func (p *Publisher) Publish(ctx context.Context, msg eventbus.Message) error {
	if msg.Topic == "" {
		return eventbus.ErrTopicRequired
	}
	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(writeCtx, toKafka(msg)); err != nil {
		return fmt.Errorf("write to %s: %w", msg.Topic, err)
	}
	return nil
}

// Close flushes pending writes.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Subscriber consumes a set of topics as a consumer group.
type Subscriber struct {
	reader messageReader
	logg   *logger.Logger
}

// NewSubscriber joins cfg.GroupID on topics.
func NewSubscriber(cfg config.KafkaConfig, topics []string, logg *logger.Logger) (*Subscriber, error) {
	brokers := cleanBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, errBrokersRequired
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, errors.New("kafka group id is required")
	}
	if len(topics) == 0 {
		return nil, errors.New("at least one kafka topic is required")
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: topics,
	})
	return &Subscriber{reader: r, logg: logg}, nil
}

// Receive fetches messages until ctx ends. Offsets are committed only after the
// handler succeeds; a message that keeps failing stops the consumer so it is
// re-read after restart.
func (s *Subscriber) Receive(ctx context.Context, handler eventbus.Handler) error {
	for {
		m, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("fetch message: %w", err)
		}
		if err := s.handle(ctx, m, handler); err != nil {
			return err
		}
		if err := s.reader.CommitMessages(ctx, m); err != nil {
			return fmt.Errorf("commit offset %s/%d@%d: %w", m.Topic, m.Partition, m.Offset, err)
		}
	}
}

func (s *Subscriber) handle(ctx context.Context, m kafka.Message, handler eventbus.Handler) error {
	msg := fromKafka(m)
	var lastErr error
	for attempt := 1; attempt <= maxHandlerAttempts; attempt++ {
		lastErr = handler(ctx, msg)
		if lastErr == nil {
			return nil
		}
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"topic":     m.Topic,
				"partition": m.Partition,
				"offset":    m.Offset,
				"attempt":   attempt,
			})
			s.logg.Warn(s.logg.WithField(logCtx, "error", lastErr.Error()), "kafka handler failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * handlerRetryDelay):
		}
	}
	return fmt.Errorf("handler failed after %d attempts: %w", maxHandlerAttempts, lastErr)
}

// Close leaves the consumer group.
func (s *Subscriber) Close() error {
	return s.reader.Close()
}

func toKafka(msg eventbus.Message) kafka.Message {
	headers := make([]kafka.Header, 0, len(msg.Attributes))
	for k, v := range msg.Attributes {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	var key []byte
	if msg.Key != "" {
		key = []byte(msg.Key)
	}
	return kafka.Message{
		Topic:   msg.Topic,
		Key:     key,
		Value:   msg.Data,
		Headers: headers,
	}
}

func fromKafka(m kafka.Message) eventbus.Message {
	attrs := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		attrs[h.Key] = string(h.Value)
	}
	return eventbus.Message{
		Topic:      m.Topic,
		Key:        string(m.Key),
		Data:       m.Value,
		Attributes: attrs,
	}
}

func cleanBrokers(brokers []string) []string {
	out := make([]string, 0, len(brokers))
	for _, b := range brokers {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
