// Package registry knows where each outbox event type is published and how its payload
// decodes on both sides of the topic.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/profilemedia-backend/pkg/config"
	"github.com/angelmondragon/profilemedia-backend/pkg/db/models"
	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
	"github.com/angelmondragon/profilemedia-backend/pkg/outbox"
	"github.com/angelmondragon/profilemedia-backend/pkg/outbox/payloads"
)

// ErrPoison marks a row that will never publish no matter how often it is retried.
var ErrPoison = errors.New("outbox row cannot be published")

// Route binds one event type to its aggregate and topic.
type Route struct {
	Aggregate  enums.OutboxAggregateType
	Topic      string
	NewPayload func() any
}

// Routes is keyed by event type.
type Routes map[enums.OutboxEventType]Route

// Decoded is a validated outbox row together with its typed payload.
type Decoded struct {
	Topic    string
	Envelope outbox.PayloadEnvelope
	Payload  any
}

// MediaRoutes sends every media event to the configured media topic.
func MediaRoutes(cfg config.PubSubConfig) (Routes, error) {
	if cfg.MediaTopic == "" {
		return nil, errors.New("media topic is required")
	}
	return Routes{
		enums.EventMediaUploaded: {
			Aggregate:  enums.AggregateMedia,
			Topic:      cfg.MediaTopic,
			NewPayload: func() any { return &payloads.MediaUploadedEvent{} },
		},
		enums.EventMediaDeleted: {
			Aggregate:  enums.AggregateMedia,
			Topic:      cfg.MediaTopic,
			NewPayload: func() any { return &payloads.MediaDeletedEvent{} },
		},
	}, nil
}

// Decode checks the row against its route and decodes the payload. Every error it returns
// wraps ErrPoison.
func (r Routes) Decode(row models.OutboxEvent) (*Decoded, error) {
	route, ok := r[row.EventType]
	switch {
	case !ok || route.NewPayload == nil:
		return nil, poison("no route for %s", row.EventType)
	case route.Aggregate != row.AggregateType:
		return nil, poison("%s belongs to %s, row says %s", row.EventType, route.Aggregate, row.AggregateType)
	case row.AggregateID == uuid.Nil:
		return nil, poison("%s row has no aggregate id", row.EventType)
	}

	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &env); err != nil {
		return nil, fmt.Errorf("%w: envelope: %w", ErrPoison, err)
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, poison("%s envelope carries no data", row.EventType)
	}
	payload := route.NewPayload()
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, fmt.Errorf("%w: %s data: %w", ErrPoison, row.EventType, err)
	}
	return &Decoded{Topic: route.Topic, Envelope: env, Payload: payload}, nil
}

func poison(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPoison, fmt.Sprintf(format, args...))
}
