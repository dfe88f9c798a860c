package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/profilemedia-backend/pkg/logger"
)

type IndexReconcileJobParams struct {
	Logger *logger.Logger
	DB     txRunner
	Owners ownerLister
	Index  indexReconciler
}

type ownerLister interface {
	ListOwners(ctx context.Context) ([]uuid.UUID, error)
}

type indexReconciler interface {
	Reconcile(tx *gorm.DB, ownerID uuid.UUID) (bool, error)
}

// NewIndexReconcileJob rebuilds any profile index that no longer matches its media rows.
// Each owner is handled in its own transaction under the owner lock.
func NewIndexReconcileJob(params IndexReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Owners == nil {
		return nil, fmt.Errorf("owner lister required")
	}
	if params.Index == nil {
		return nil, fmt.Errorf("index reconciler required")
	}
	return &indexReconcileJob{
		logg:   params.Logger,
		db:     params.DB,
		owners: params.Owners,
		index:  params.Index,
	}, nil
}

type indexReconcileJob struct {
	logg   *logger.Logger
	db     txRunner
	owners ownerLister
	index  indexReconciler
}

func (j *indexReconcileJob) Name() string { return "index-reconcile" }

func (j *indexReconcileJob) Run(ctx context.Context) error {
	owners, err := j.owners.ListOwners(ctx)
	if err != nil {
		return fmt.Errorf("list owners: %w", err)
	}

	var (
		repaired int
		errs     []error
	)
	for _, ownerID := range owners {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var changed bool
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			changed, err = j.index.Reconcile(tx, ownerID)
			return err
		})
		ownerCtx := j.logg.WithOwnerID(ctx, ownerID.String())
		if err != nil {
			errs = append(errs, fmt.Errorf("owner %s: %w", ownerID, err))
			j.logg.Error(ownerCtx, "index reconcile failed", err)
			continue
		}
		if changed {
			repaired++
			j.logg.Warn(ownerCtx, "profile index drifted; rebuilt")
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"owners":   len(owners),
		"repaired": repaired,
		"failed":   len(errs),
	}), "index reconcile complete")
	return multierr.Combine(errs...)
}
