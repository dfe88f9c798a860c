package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
)

// ActorRef is the caller whose request produced the event. Role is "admin" when an
// administrator acted on someone else's profile.
type ActorRef struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role,omitempty"`
}

// AggregateRef names the record the event is about.
type AggregateRef struct {
	Type enums.OutboxAggregateType `json:"type"`
	ID   uuid.UUID                 `json:"id"`
}

// PayloadEnvelope is stored in outbox_events.payload and sent unchanged as the message body.
// Consumers dedupe on EventID and pick a decoder by EventType and Version.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Aggregate  AggregateRef    `json:"aggregate"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
