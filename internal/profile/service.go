package profile

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/profilemedia-backend/internal/categories"
	"github.com/angelmondragon/profilemedia-backend/internal/media"
	"github.com/angelmondragon/profilemedia-backend/internal/ordering"
	"github.com/angelmondragon/profilemedia-backend/internal/uploads"
	"github.com/angelmondragon/profilemedia-backend/pkg/db/models"
	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
	"github.com/angelmondragon/profilemedia-backend/pkg/logger"
	"github.com/angelmondragon/profilemedia-backend/pkg/metrics"
	"github.com/angelmondragon/profilemedia-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type mediaStore interface {
	LockOwner(tx *gorm.DB, ownerID uuid.UUID) (*models.Profile, error)
	Snapshot(tx *gorm.DB, ownerID uuid.UUID) (*models.Profile, error)
	Create(tx *gorm.DB, in media.NewItem) (*models.MediaItem, error)
	GetTx(tx *gorm.DB, id uuid.UUID) (*models.MediaItem, error)
	List(tx *gorm.DB, ownerID uuid.UUID, category *enums.MediaCategory) ([]models.MediaItem, error)
	UpdateCategory(tx *gorm.DB, id uuid.UUID, category enums.MediaCategory) (*models.MediaItem, bool, error)
	Rename(tx *gorm.DB, id uuid.UUID, displayName string) (*models.MediaItem, error)
	Delete(tx *gorm.DB, id uuid.UUID) (*models.MediaItem, error)
	SetSelectedAudio(tx *gorm.DB, ownerID uuid.UUID, id *uuid.UUID) (*models.Profile, error)
	SetProfilePicture(tx *gorm.DB, ownerID uuid.UUID, id *uuid.UUID) (*models.Profile, error)
}

type categoryLedger interface {
	Counts(tx *gorm.DB, ownerID uuid.UUID) (categories.Counts, error)
	Limits() map[enums.MediaCategory]int
}

type reorderer interface {
	Reorder(tx *gorm.DB, ownerID uuid.UUID, in ordering.Input) (*ordering.Result, error)
}

type ingestor interface {
	Ingest(ctx context.Context, ownerID uuid.UUID, fileName string, body io.Reader) (*uploads.Upload, error)
	Discard(ctx context.Context, key string)
}

type referenceRepository interface {
	ListByMedia(ctx context.Context, mediaID uuid.UUID) ([]models.MediaReference, error)
	Insert(tx *gorm.DB, ref *models.MediaReference) error
	Repoint(tx *gorm.DB, oldID, newID uuid.UUID) (int64, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the single entry point for profile media changes. Every mutation checks the
// caller against the owner first, then runs in one transaction holding the owner lock.
type Service interface {
	Upload(ctx context.Context, caller Caller, ownerID uuid.UUID, fileName string, body io.Reader) (*models.MediaItem, error)
	SetCategory(ctx context.Context, caller Caller, ownerID, itemID uuid.UUID, category enums.MediaCategory) (*CategoryResult, error)
	Reorder(ctx context.Context, caller Caller, ownerID uuid.UUID, in ordering.Input) (*ReorderResult, error)
	Rename(ctx context.Context, caller Caller, ownerID, itemID uuid.UUID, displayName string) (*RenameResult, error)
	RenameMany(ctx context.Context, caller Caller, ownerID uuid.UUID, names map[uuid.UUID]string) (*BulkRenameResult, error)
	Delete(ctx context.Context, caller Caller, ownerID, itemID uuid.UUID) (*DeleteResult, error)
	GetCounts(ctx context.Context, caller Caller, ownerID uuid.UUID) (*CountsResult, error)
	List(ctx context.Context, caller Caller, ownerID uuid.UUID, category *enums.MediaCategory) ([]models.MediaItem, error)
	Profile(ctx context.Context, caller Caller, ownerID uuid.UUID) (*View, error)
	SelectAudio(ctx context.Context, caller Caller, ownerID uuid.UUID, itemID *uuid.UUID) (*View, error)
	SetProfilePicture(ctx context.Context, caller Caller, ownerID uuid.UUID, itemID *uuid.UUID) (*View, error)
	Usage(ctx context.Context, caller Caller, ownerID, itemID uuid.UUID) ([]models.MediaReference, error)
	RecordUsage(ctx context.Context, caller Caller, ownerID, itemID uuid.UUID, in UsageInput) (*models.MediaReference, error)
	ReplaceUsage(ctx context.Context, caller Caller, ownerID, oldID, newID uuid.UUID) (*ReplaceResult, error)
}

// ServiceParams packages the façade's collaborators.
type ServiceParams struct {
	DB         txRunner
	Store      mediaStore
	Ledger     categoryLedger
	Ordering   reorderer
	Uploads    ingestor
	References referenceRepository
	Outbox     outboxEmitter
	Metrics    *metrics.ProfileMetrics
	Logger     *logger.Logger
}

type service struct {
	db         txRunner
	store      mediaStore
	ledger     categoryLedger
	ordering   reorderer
	uploads    ingestor
	references referenceRepository
	outbox     outboxEmitter
	metrics    *metrics.ProfileMetrics
	logg       *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("media store required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("category ledger required")
	}
	if params.Ordering == nil {
		return nil, fmt.Errorf("ordering service required")
	}
	if params.Uploads == nil {
		return nil, fmt.Errorf("upload ingestor required")
	}
	if params.References == nil {
		return nil, fmt.Errorf("reference repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		db:         params.DB,
		store:      params.Store,
		ledger:     params.Ledger,
		ordering:   params.Ordering,
		uploads:    params.Uploads,
		references: params.References,
		outbox:     params.Outbox,
		metrics:    params.Metrics,
		logg:       logg,
	}, nil
}

// withOwnerLock authorizes the caller and runs fn inside one transaction that holds the owner lock.
func (s *service) withOwnerLock(ctx context.Context, caller Caller, ownerID uuid.UUID, fn func(tx *gorm.DB) error) error {
	if err := caller.authorize(ownerID); err != nil {
		return err
	}
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.store.LockOwner(tx, ownerID); err != nil {
			return err
		}
		return fn(tx)
	})
}

// read authorizes the caller and runs fn in a transaction without taking the owner lock.
func (s *service) read(ctx context.Context, caller Caller, ownerID uuid.UUID, fn func(tx *gorm.DB) error) error {
	if err := caller.authorize(ownerID); err != nil {
		return err
	}
	return s.db.WithTx(ctx, fn)
}

// ownedItem loads itemID inside tx and confirms it belongs to ownerID.
func (s *service) ownedItem(tx *gorm.DB, ownerID, itemID uuid.UUID) (*models.MediaItem, error) {
	item, err := s.store.GetTx(tx, itemID)
	if err != nil {
		return nil, err
	}
	if err := ensureOwned(item, ownerID); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) counts(tx *gorm.DB, ownerID uuid.UUID) (CountsResult, error) {
	counts, err := s.ledger.Counts(tx, ownerID)
	if err != nil {
		return CountsResult{}, err
	}
	return CountsResult{Counts: counts, Limits: s.ledger.Limits()}, nil
}

func (s *service) logMutation(ctx context.Context, op string, ownerID uuid.UUID, fields map[string]any) {
	ctx = s.logg.WithOwnerID(ctx, ownerID.String())
	if len(fields) > 0 {
		ctx = s.logg.WithFields(ctx, fields)
	}
	s.logg.Info(ctx, "profile.media."+op)
}
