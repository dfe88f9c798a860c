// Package relay moves committed outbox rows onto Pub/Sub.
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/profilemedia-backend/pkg/config"
	"github.com/angelmondragon/profilemedia-backend/pkg/db/models"
	"github.com/angelmondragon/profilemedia-backend/pkg/logger"
	"github.com/angelmondragon/profilemedia-backend/pkg/metrics"
	"github.com/angelmondragon/profilemedia-backend/pkg/outbox/registry"
	pkgpubsub "github.com/angelmondragon/profilemedia-backend/pkg/pubsub"
)

const (
	defaultBatchSize   = 50
	defaultPoll        = 500 * time.Millisecond
	defaultMaxAttempts = 10
	sendTimeout        = 15 * time.Second
	errorBackoffLimit  = 10 * time.Second
	pollJitter         = 250 * time.Millisecond
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type rowStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type rowDecoder interface {
	Decode(row models.OutboxEvent) (*registry.Decoded, error)
}

// Sender publishes one message and waits for the server to accept it.
type Sender interface {
	Send(ctx context.Context, topic string, msg *pubsub.Message) (string, error)
}

// Params wires a Relay.
type Params struct {
	Config  config.OutboxConfig
	DB      txRunner
	Rows    rowStore
	Routes  rowDecoder
	Sender  Sender
	Metrics *metrics.OutboxMetrics
	Logger  *logger.Logger
}

// Relay publishes outbox rows in commit order. A row is marked published only after Pub/Sub
// acknowledges it, so consumers see each event at least once.
type Relay struct {
	db          txRunner
	rows        rowStore
	routes      rowDecoder
	sender      Sender
	metrics     *metrics.OutboxMetrics
	logg        *logger.Logger
	batchSize   int
	maxAttempts int
	pace        *pacer
	sleep       func(context.Context, time.Duration) error
}

func New(p Params) (*Relay, error) {
	switch {
	case p.DB == nil:
		return nil, errors.New("database is required")
	case p.Rows == nil:
		return nil, errors.New("outbox repository is required")
	case p.Routes == nil:
		return nil, errors.New("event routes are required")
	case p.Sender == nil:
		return nil, errors.New("sender is required")
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	}

	poll := time.Duration(p.Config.PollIntervalMS) * time.Millisecond
	if poll <= 0 {
		poll = defaultPoll
	}
	return &Relay{
		db:          p.DB,
		rows:        p.Rows,
		routes:      p.Routes,
		sender:      p.Sender,
		metrics:     p.Metrics,
		logg:        p.Logger,
		batchSize:   positiveOr(p.Config.BatchSize, defaultBatchSize),
		maxAttempts: positiveOr(p.Config.MaxAttempts, defaultMaxAttempts),
		pace:        newPacer(poll, errorBackoffLimit, pollJitter),
		sleep:       sleepCtx,
	}, nil
}

// Run drains batches until ctx ends. Full batches are followed immediately by the next one.
func (r *Relay) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Drain(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox batch failed", err)
			wait = r.pace.failed()
		case n > 0:
			r.pace.idle()
			continue
		default:
			wait = r.pace.idle()
		}
		if err := r.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Drain handles one locked batch and reports how many rows it settled. Rows another relay
// already holds are skipped.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	settled := 0
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.rows.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox batch: %w", err)
		}
		for _, row := range rows {
			if err := r.settle(ctx, tx, row); err != nil {
				return err
			}
			settled++
		}
		return nil
	})
	return settled, err
}

func (r *Relay) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	logCtx := r.logg.WithFields(ctx, map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"aggregate_id":  row.AggregateID.String(),
		"attempt_count": row.AttemptCount,
	})

	decoded, err := r.routes.Decode(row)
	if err == nil {
		logCtx = r.logg.WithFields(logCtx, map[string]any{
			"topic":    decoded.Topic,
			"event_id": decoded.Envelope.EventID,
		})
		err = r.send(ctx, row, decoded)
	}

	switch {
	case err == nil:
		if err := r.rows.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark %s published: %w", row.ID, err)
		}
		r.metrics.Published()
		r.logg.Info(logCtx, "outbox event published")
		return nil
	case errors.Is(err, registry.ErrPoison) || errors.Is(err, pkgpubsub.ErrNoTopic):
		return r.giveUp(logCtx, tx, row, metrics.OutboxPoisoned, err)
	case row.AttemptCount+1 >= r.maxAttempts:
		return r.giveUp(logCtx, tx, row, metrics.OutboxAttemptsUsed, fmt.Errorf("out of publish attempts: %w", err))
	}

	r.logg.Warn(r.logg.WithField(logCtx, "error", err.Error()), "outbox publish failed, will retry")
	r.metrics.Failed(metrics.OutboxRetry)
	if err := r.rows.MarkFailedTx(tx, row.ID, err); err != nil {
		return fmt.Errorf("mark %s failed: %w", row.ID, err)
	}
	return nil
}

// giveUp exhausts the row's attempts. It stays in the table for inspection but is never
// fetched again.
func (r *Relay) giveUp(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, outcome string, cause error) error {
	r.logg.Error(r.logg.WithField(ctx, "outcome", outcome), "outbox event abandoned", cause)
	r.metrics.Failed(outcome)
	if err := r.rows.MarkTerminalTx(tx, row.ID, cause, r.maxAttempts); err != nil {
		return fmt.Errorf("mark %s terminal: %w", row.ID, err)
	}
	return nil
}

func (r *Relay) send(ctx context.Context, row models.OutboxEvent, decoded *registry.Decoded) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	_, err := r.sender.Send(ctx, decoded.Topic, &pubsub.Message{
		Data: row.Payload,
		Attributes: map[string]string{
			"event_id":       decoded.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"created_at":     row.CreatedAt.Format(time.RFC3339Nano),
		},
	})
	return err
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
