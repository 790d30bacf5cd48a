package enums

import (
	"fmt"
	"strings"
)

// EventTransport selects the broker the outbox publisher and consumers use.
type EventTransport string

const (
	EventTransportPubSub EventTransport = "pubsub"
	EventTransportKafka  EventTransport = "kafka"
)

// IsValid reports whether the value is a supported transport.
func (t EventTransport) IsValid() bool {
	return t == EventTransportPubSub || t == EventTransportKafka
}

// ParseEventTransport converts raw input into an EventTransport.
func ParseEventTransport(value string) (EventTransport, error) {
	t := EventTransport(strings.ToLower(strings.TrimSpace(value)))
	if !t.IsValid() {
		return "", fmt.Errorf("invalid event transport %q", value)
	}
	return t, nil
}
