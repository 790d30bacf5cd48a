package eventbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"

	"github.com/angelmondragon/fincore/pkg/config"
)

// ErrBreakerOpen is returned while the breaker rejects publishes.
var ErrBreakerOpen = errors.New("event publisher circuit open")

// StateListener observes breaker transitions. State values are 0 closed, 1 half-open, 2 open.
type StateListener func(name string, from, to int)

// BreakerPublisher trips after consecutive broker failures and fails fast until
// the cool-down elapses.
type BreakerPublisher struct {
	inner   Publisher
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerPublisher wraps inner with a circuit breaker tuned by cfg.
func NewBreakerPublisher(name string, inner Publisher, cfg config.BreakerConfig, listener StateListener) (*BreakerPublisher, error) {
	if inner == nil {
		return nil, errors.New("inner publisher is required")
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	if listener != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			listener(name, stateValue(from), stateValue(to))
		}
	}
	return &BreakerPublisher{inner: inner, breaker: gobreaker.NewCircuitBreaker(settings)}, nil
}

// Publish forwards to the inner publisher unless the breaker is open.
func (p *BreakerPublisher) Publish(ctx context.Context, msg Message) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.inner.Publish(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrBreakerOpen, err)
	}
	return err
}

// State reports the breaker state using the StateListener encoding.
func (p *BreakerPublisher) State() int {
	return stateValue(p.breaker.State())
}

// Close closes the inner publisher.
func (p *BreakerPublisher) Close() error {
	return p.inner.Close()
}

func stateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
