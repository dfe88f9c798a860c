package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/profilemedia-backend/pkg/config"
	"github.com/angelmondragon/profilemedia-backend/pkg/db/models"
	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
	"github.com/angelmondragon/profilemedia-backend/pkg/outbox"
	"github.com/angelmondragon/profilemedia-backend/pkg/outbox/payloads"
)

func envelopeWith(t *testing.T, data string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		EventType:  string(enums.EventMediaDeleted),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(data),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return raw
}

func mediaRoutes(t *testing.T) Routes {
	t.Helper()
	routes, err := MediaRoutes(config.PubSubConfig{MediaTopic: "profile-media"})
	if err != nil {
		t.Fatalf("media routes: %v", err)
	}
	return routes
}

func TestMediaRoutesDecodeDeletedEvent(t *testing.T) {
	routes := mediaRoutes(t)

	mediaID := uuid.New()
	data, err := json.Marshal(payloads.MediaDeletedEvent{MediaID: mediaID, StorageKey: "profiles/o/m/pic.png"})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	decoded, err := routes.Decode(models.OutboxEvent{
		EventType:     enums.EventMediaDeleted,
		AggregateType: enums.AggregateMedia,
		AggregateID:   mediaID,
		Payload:       envelopeWith(t, string(data)),
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Topic != "profile-media" {
		t.Fatalf("unexpected topic %s", decoded.Topic)
	}
	if decoded.Envelope.EventID == "" {
		t.Fatal("expected envelope event id")
	}

	payload, ok := decoded.Payload.(*payloads.MediaDeletedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", decoded.Payload)
	}
	if payload.MediaID != mediaID || payload.StorageKey != "profiles/o/m/pic.png" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestMediaRoutesCoverEveryEventType(t *testing.T) {
	routes := mediaRoutes(t)
	for _, event := range enums.OutboxEventTypes() {
		route, ok := routes[event]
		if !ok {
			t.Fatalf("no route for %s", event)
		}
		if route.NewPayload() == nil {
			t.Fatalf("%s: route builds no payload", event)
		}
	}
}

func TestMediaRoutesPoisonRows(t *testing.T) {
	routes := mediaRoutes(t)

	rows := map[string]models.OutboxEvent{
		"unrouted type": {
			EventType:     "media_archived",
			AggregateType: enums.AggregateMedia,
			AggregateID:   uuid.New(),
			Payload:       envelopeWith(t, `{}`),
		},
		"wrong aggregate": {
			EventType:     enums.EventMediaUploaded,
			AggregateType: enums.AggregateProfile,
			AggregateID:   uuid.New(),
			Payload:       envelopeWith(t, `{}`),
		},
		"no aggregate id": {
			EventType:     enums.EventMediaDeleted,
			AggregateType: enums.AggregateMedia,
			Payload:       envelopeWith(t, `{}`),
		},
		"null data": {
			EventType:     enums.EventMediaDeleted,
			AggregateType: enums.AggregateMedia,
			AggregateID:   uuid.New(),
			Payload:       envelopeWith(t, `null`),
		},
		"garbled envelope": {
			EventType:     enums.EventMediaDeleted,
			AggregateType: enums.AggregateMedia,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"version":`),
		},
	}
	for name, row := range rows {
		t.Run(name, func(t *testing.T) {
			if _, err := routes.Decode(row); !errors.Is(err, ErrPoison) {
				t.Fatalf("expected ErrPoison, got %v", err)
			}
		})
	}
}

func TestMediaRoutesRequireTopic(t *testing.T) {
	if _, err := MediaRoutes(config.PubSubConfig{}); err == nil {
		t.Fatal("expected missing topic to fail")
	}
}

func TestDecodersMatchVersion(t *testing.T) {
	decoders := NewDecoders().
		Accept(enums.EventMediaDeleted, 1, func() any { return &payloads.MediaDeletedEvent{} })

	id := uuid.New()
	data := json.RawMessage(`{"media_id":"` + id.String() + `","storage_key":"profiles/a/b/c.png"}`)

	out, err := decoders.Decode(enums.EventMediaDeleted, 1, data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	event, ok := out.(*payloads.MediaDeletedEvent)
	if !ok || event.MediaID != id {
		t.Fatalf("unexpected decoded payload %#v", out)
	}

	if _, err := decoders.Decode(enums.EventMediaDeleted, 2, data); err == nil {
		t.Fatal("expected unregistered version to fail")
	}
	if _, err := decoders.Decode(enums.EventMediaUploaded, 1, data); err == nil {
		t.Fatal("expected unregistered type to fail")
	}
}
