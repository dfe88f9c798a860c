// Package blobcleanup removes stored blobs once their media rows have been deleted.
package blobcleanup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
	"github.com/angelmondragon/profilemedia-backend/pkg/logger"
	"github.com/angelmondragon/profilemedia-backend/pkg/outbox"
	"github.com/angelmondragon/profilemedia-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/profilemedia-backend/pkg/outbox/registry"
)

// ConsumerName scopes event claims for this worker.
const ConsumerName = "blob-cleanup"

type blobDeleter interface {
	Delete(ctx context.Context, key string) error
}

type keyLookup interface {
	StorageKeyInUse(ctx context.Context, key string) (bool, error)
}

type claimTracker interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type payloadDecoder interface {
	Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error)
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Params groups the consumer's collaborators.
type Params struct {
	Storage      blobDeleter
	Items        keyLookup
	Tracker      claimTracker
	Decoders     payloadDecoder
	Subscription receiver
	Logger       *logger.Logger
}

// Consumer deletes blobs announced by media_deleted events.
type Consumer struct {
	storage      blobDeleter
	items        keyLookup
	tracker      claimTracker
	decoders     payloadDecoder
	subscription receiver
	logg         *logger.Logger
}

func NewConsumer(p Params) (*Consumer, error) {
	if p.Storage == nil {
		return nil, errors.New("storage is required")
	}
	if p.Items == nil {
		return nil, errors.New("media repository is required")
	}
	if p.Tracker == nil {
		return nil, errors.New("event claim tracker is required")
	}
	if p.Decoders == nil {
		return nil, errors.New("decoder registry is required")
	}
	if p.Subscription == nil {
		return nil, errors.New("blob cleanup subscription is required")
	}
	if p.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		storage:      p.Storage,
		items:        p.Items,
		tracker:      p.Tracker,
		decoders:     p.Decoders,
		subscription: p.Subscription,
		logg:         p.Logger,
	}, nil
}

// Run processes messages until the context is canceled or the subscription errors.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

var (
	ack  = processResult{ack: true}
	nack = processResult{nack: true}
)

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})
	if eventType != enums.EventMediaDeleted {
		c.logg.Debug(logCtx, "skipping event")
		return ack
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		logCtx = c.logg.WithFields(logCtx, map[string]any{
			"payload_preview": previewBytes(msg.Data, 800),
			"payload_len":     len(msg.Data),
		})
		c.logg.Error(logCtx, "failed to unmarshal envelope", err)
		return ack
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "envelope has invalid event id", err)
		return ack
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	decoded, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		return ack
	}
	event, ok := decoded.(*payloads.MediaDeletedEvent)
	if !ok || strings.TrimSpace(event.StorageKey) == "" {
		c.logg.Error(logCtx, "payload missing storage key", fmt.Errorf("unexpected payload %T", decoded))
		return ack
	}
	logCtx = c.logg.WithMediaID(logCtx, event.MediaID.String())
	logCtx = c.logg.WithField(logCtx, "storage_key", event.StorageKey)

	first, err := c.tracker.Claim(logCtx, ConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "event claim failed", err)
		return nack
	}
	if !first {
		c.logg.Info(logCtx, "event already processed")
		return ack
	}

	inUse, err := c.items.StorageKeyInUse(logCtx, event.StorageKey)
	if err != nil {
		return c.release(logCtx, eventID, "media lookup failed", err)
	}
	if inUse {
		c.logg.Warn(logCtx, "storage key still referenced, keeping blob")
		return ack
	}

	if err := c.storage.Delete(logCtx, event.StorageKey); err != nil {
		return c.release(logCtx, eventID, "blob delete failed", err)
	}
	c.logg.Info(logCtx, "blob deleted")
	return ack
}

// release drops the claim so redelivery can retry.
func (c *Consumer) release(ctx context.Context, eventID uuid.UUID, msg string, cause error) processResult {
	c.logg.Error(ctx, msg, cause)
	if err := c.tracker.Release(ctx, ConsumerName, eventID); err != nil {
		c.logg.Error(ctx, "failed to release event claim", err)
	}
	return nack
}

func previewBytes(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "...(truncated)"
}

// NewDecoders registers the payload versions this worker understands.
func NewDecoders() *registry.Decoders {
	return registry.NewDecoders().
		Accept(enums.EventMediaDeleted, 1, func() any { return &payloads.MediaDeletedEvent{} })
}
