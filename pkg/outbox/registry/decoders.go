package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
)

type schema struct {
	event   enums.OutboxEventType
	version int
}

// Decoders turns consumed envelope data back into typed payloads, one schema version at a time.
type Decoders struct {
	mu      sync.RWMutex
	schemas map[schema]func() any
}

func NewDecoders() *Decoders {
	return &Decoders{schemas: map[schema]func() any{}}
}

// Accept registers a payload constructor for an event type at a version.
func (d *Decoders) Accept(event enums.OutboxEventType, version int, newPayload func() any) *Decoders {
	d.mu.Lock()
	d.schemas[schema{event, version}] = newPayload
	d.mu.Unlock()
	return d
}

func (d *Decoders) Decode(event enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	d.mu.RLock()
	newPayload, ok := d.schemas[schema{event, version}]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no decoder for %s v%d", event, version)
	}
	out := newPayload()
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("decode %s v%d: %w", event, version, err)
	}
	return out, nil
}
