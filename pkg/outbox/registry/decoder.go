package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/fincore/pkg/enums"
)

// ErrNoDecoder is returned for an event type and version nobody registered.
var ErrNoDecoder = errors.New("no decoder registered")

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// Decoders maps (event type, payload version) to the Go type its payload
// decodes into. Registration happens at wiring time; Decode is safe for
// concurrent use afterwards.
type Decoders struct {
	byKey map[decoderKey]func(json.RawMessage) (any, error)
}

func NewDecoders() *Decoders {
	return &Decoders{byKey: make(map[decoderKey]func(json.RawMessage) (any, error))}
}

// Register makes payloads of eventType at version decode into a *T.
func Register[T any](d *Decoders, eventType enums.OutboxEventType, version int) {
	d.byKey[decoderKey{eventType, version}] = func(raw json.RawMessage) (any, error) {
		out := new(T)
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// Decode returns a pointer to the registered type.
func (d *Decoders) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	decode, ok := d.byKey[decoderKey{eventType, version}]
	if !ok {
		return nil, fmt.Errorf("%w for %s v%d", ErrNoDecoder, eventType, version)
	}
	return decode(payload)
}
