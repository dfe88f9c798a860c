// Package dedupe lets a Pub/Sub consumer act on each outbox event id once, even though
// delivery is at least once.
package dedupe

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type claimStore interface {
	Key(parts ...string) string
	Claim(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Forget(ctx context.Context, keys ...string) error
}

// Tracker records claimed event ids per consumer for ttl.
type Tracker struct {
	store claimStore
	ttl   time.Duration
}

func NewTracker(store claimStore, ttl time.Duration) (*Tracker, error) {
	if store == nil {
		return nil, errors.New("claim store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	return &Tracker{store: store, ttl: ttl}, nil
}

// Claim reports whether this is the first delivery of eventID to consumer. A false result
// means another delivery already claimed it.
func (t *Tracker) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := t.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	return t.store.Claim(ctx, key, time.Now().UTC().Format(time.RFC3339), t.ttl)
}

// Release gives up a claim so the next redelivery is handled again.
func (t *Tracker) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := t.key(consumer, eventID)
	if err != nil {
		return err
	}
	return t.store.Forget(ctx, key)
}

func (t *Tracker) key(consumer string, eventID uuid.UUID) (string, error) {
	switch {
	case consumer == "":
		return "", errors.New("consumer name is required")
	case eventID == uuid.Nil:
		return "", errors.New("event id is required")
	}
	return t.store.Key("consumed", consumer, eventID.String()), nil
}
