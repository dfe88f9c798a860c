package profile

import (
	"context"
	"io"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/profilemedia-backend/internal/ordering"
	"github.com/angelmondragon/profilemedia-backend/pkg/db/models"
	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/profilemedia-backend/pkg/errors"
	"github.com/angelmondragon/profilemedia-backend/pkg/outbox"
	"github.com/angelmondragon/profilemedia-backend/pkg/outbox/payloads"
)

// Upload stores the blob, then records the item. The blob is discarded if the record fails.
func (s *service) Upload(ctx context.Context, caller Caller, ownerID uuid.UUID, fileName string, body io.Reader) (item *models.MediaItem, err error) {
	done := s.metrics.Track("upload")
	defer func() { done(err) }()

	if err := caller.authorize(ownerID); err != nil {
		return nil, err
	}
	upload, err := s.uploads.Ingest(ctx, ownerID, fileName, body)
	if err != nil {
		return nil, err
	}

	err = s.withOwnerLock(ctx, caller, ownerID, func(tx *gorm.DB) error {
		created, err := s.store.Create(tx, upload.NewItem(ownerID))
		if err != nil {
			return err
		}
		item = created
		return s.emit(ctx, tx, caller, enums.EventMediaUploaded, created.ID, payloads.MediaUploadedEvent{
			MediaID:    created.ID,
			OwnerID:    ownerID,
			Kind:       created.Kind,
			MimeType:   created.MimeType,
			SizeBytes:  created.SizeBytes,
			StorageKey: created.StorageKey,
		})
	})
	if err != nil {
		s.uploads.Discard(ctx, upload.StorageKey)
		return nil, err
	}

	s.logMutation(ctx, "upload", ownerID, map[string]any{
		"media_id": item.ID.String(),
		"kind":     item.Kind,
		"size":     item.SizeBytes,
	})
	return item, nil
}

func (s *service) SetCategory(ctx context.Context, caller Caller, ownerID, itemID uuid.UUID, category enums.MediaCategory) (res *CategoryResult, err error) {
	done := s.metrics.Track("set_category")
	defer func() { done(err) }()

	err = s.withOwnerLock(ctx, caller, ownerID, func(tx *gorm.DB) error {
		item, err := s.ownedItem(tx, ownerID, itemID)
		if err != nil {
			return err
		}
		previous := item.Category
		updated, changed, err := s.store.UpdateCategory(tx, itemID, category)
		if err != nil {
			return err
		}
		counts, err := s.counts(tx, ownerID)
		if err != nil {
			return err
		}
		res = &CategoryResult{
			ItemID:       itemID,
			Category:     updated.Category,
			Transition:   transitionFor(previous, updated.Category, changed),
			CountsResult: counts,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logMutation(ctx, "set_category", ownerID, map[string]any{
		"media_id":   itemID.String(),
		"category":   res.Category,
		"transition": res.Transition,
		"count":      res.Counts[res.Category],
	})
	return res, nil
}

// Reorder applies a batched reorder. Category changes in the batch are all-or-nothing with
// the new order.
func (s *service) Reorder(ctx context.Context, caller Caller, ownerID uuid.UUID, in ordering.Input) (res *ReorderResult, err error) {
	done := s.metrics.Track("reorder")
	defer func() { done(err) }()

	err = s.withOwnerLock(ctx, caller, ownerID, func(tx *gorm.DB) error {
		applied, err := s.ordering.Reorder(tx, ownerID, in)
		if err != nil {
			return err
		}
		counts, err := s.counts(tx, ownerID)
		if err != nil {
			return err
		}
		res = &ReorderResult{
			UpdatedCount:  applied.Updated,
			Recategorized: applied.Recategorized,
			Skipped:       applied.Skipped,
			CountsResult:  counts,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logMutation(ctx, "reorder", ownerID, map[string]any{
		"shape":         in.Shape.String(),
		"updated":       res.UpdatedCount,
		"recategorized": res.Recategorized,
		"skipped":       len(res.Skipped),
	})
	return res, nil
}

func (s *service) Rename(ctx context.Context, caller Caller, ownerID, itemID uuid.UUID, displayName string) (res *RenameResult, err error) {
	done := s.metrics.Track("rename")
	defer func() { done(err) }()

	err = s.withOwnerLock(ctx, caller, ownerID, func(tx *gorm.DB) error {
		if _, err := s.ownedItem(tx, ownerID, itemID); err != nil {
			return err
		}
		renamed, err := s.store.Rename(tx, itemID, displayName)
		if err != nil {
			return err
		}
		res = &RenameResult{ItemID: renamed.ID, DisplayName: renamed.DisplayName}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logMutation(ctx, "rename", ownerID, map[string]any{"media_id": itemID.String()})
	return res, nil
}

// RenameMany renames several items in one transaction. Entries that fail validation,
// ownership or lookup are reported and skipped; storage errors abort the whole call.
func (s *service) RenameMany(ctx context.Context, caller Caller, ownerID uuid.UUID, names map[uuid.UUID]string) (res *BulkRenameResult, err error) {
	done := s.metrics.Track("rename_many")
	defer func() { done(err) }()

	if len(names) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no display names supplied")
	}

	err = s.withOwnerLock(ctx, caller, ownerID, func(tx *gorm.DB) error {
		res = &BulkRenameResult{
			Failed:    []RenameFailure{},
			Breakdown: map[enums.MediaKind]int{},
		}
		for _, id := range sortedIDs(names) {
			item, err := s.ownedItem(tx, ownerID, id)
			if err == nil {
				_, err = s.store.Rename(tx, id, names[id])
			}
			if err != nil {
				if !isEntryError(err) {
					return err
				}
				res.Failed = append(res.Failed, RenameFailure{ItemID: id, Reason: reasonOf(err)})
				continue
			}
			res.Count++
			res.Breakdown[item.Kind]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logMutation(ctx, "rename_many", ownerID, map[string]any{
		"renamed": res.Count,
		"failed":  len(res.Failed),
	})
	return res, nil
}

// Delete removes the item and queues removal of its blob. References to it are left alone.
func (s *service) Delete(ctx context.Context, caller Caller, ownerID, itemID uuid.UUID) (res *DeleteResult, err error) {
	done := s.metrics.Track("delete")
	defer func() { done(err) }()

	err = s.withOwnerLock(ctx, caller, ownerID, func(tx *gorm.DB) error {
		if _, err := s.ownedItem(tx, ownerID, itemID); err != nil {
			return err
		}
		deleted, err := s.store.Delete(tx, itemID)
		if err != nil {
			return err
		}
		res = &DeleteResult{ItemID: deleted.ID, Deleted: true}
		return s.emit(ctx, tx, caller, enums.EventMediaDeleted, deleted.ID, payloads.MediaDeletedEvent{
			MediaID:    deleted.ID,
			OwnerID:    ownerID,
			Kind:       deleted.Kind,
			StorageKey: deleted.StorageKey,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logMutation(ctx, "delete", ownerID, map[string]any{"media_id": itemID.String()})
	return res, nil
}

func (s *service) GetCounts(ctx context.Context, caller Caller, ownerID uuid.UUID) (res *CountsResult, err error) {
	err = s.read(ctx, caller, ownerID, func(tx *gorm.DB) error {
		counts, err := s.counts(tx, ownerID)
		if err != nil {
			return err
		}
		res = &counts
		return nil
	})
	return res, err
}

func (s *service) List(ctx context.Context, caller Caller, ownerID uuid.UUID, category *enums.MediaCategory) (items []models.MediaItem, err error) {
	if category != nil && !category.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown category %q", *category)
	}
	err = s.read(ctx, caller, ownerID, func(tx *gorm.DB) error {
		items, err = s.store.List(tx, ownerID, category)
		return err
	})
	return items, err
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, caller Caller, eventType enums.OutboxEventType, mediaID uuid.UUID, data any) error {
	role := "user"
	if caller.Admin {
		role = "admin"
	}
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateMedia,
		AggregateID:   mediaID,
		Actor:         &outbox.ActorRef{UserID: caller.UserID, Role: role},
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue "+string(eventType)+" event")
	}
	return nil
}

func isEntryError(err error) bool {
	for _, code := range []pkgerrors.Code{pkgerrors.CodeValidation, pkgerrors.CodeNotFound, pkgerrors.CodeForbidden} {
		if pkgerrors.IsCode(err, code) {
			return true
		}
	}
	return false
}

func reasonOf(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	return err.Error()
}
