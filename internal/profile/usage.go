package profile

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/profilemedia-backend/pkg/db"
	"github.com/angelmondragon/profilemedia-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/profilemedia-backend/pkg/errors"
)

const referenceTargetConstraint = "ux_media_references_target"

// Usage lists the content that references an item.
func (s *service) Usage(ctx context.Context, caller Caller, ownerID, itemID uuid.UUID) ([]models.MediaReference, error) {
	err := s.read(ctx, caller, ownerID, func(tx *gorm.DB) error {
		_, err := s.ownedItem(tx, ownerID, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	refs, err := s.references.ListByMedia(ctx, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list media references")
	}
	return refs, nil
}

func (s *service) RecordUsage(ctx context.Context, caller Caller, ownerID, itemID uuid.UUID, in UsageInput) (ref *models.MediaReference, err error) {
	done := s.metrics.Track("record_usage")
	defer func() { done(err) }()

	if !in.EntityType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown entity type %q", in.EntityType)
	}
	entityID := strings.TrimSpace(in.EntityID)
	if entityID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entity id is required")
	}
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = models.RoleFeaturedImage
	}

	err = s.withOwnerLock(ctx, caller, ownerID, func(tx *gorm.DB) error {
		if _, err := s.ownedItem(tx, ownerID, itemID); err != nil {
			return err
		}
		ref = &models.MediaReference{
			MediaID:    itemID,
			OwnerID:    ownerID,
			EntityType: in.EntityType,
			EntityID:   entityID,
			Role:       role,
		}
		if err := s.references.Insert(tx, ref); err != nil {
			if dbpkg.IsUniqueViolation(err, referenceTargetConstraint) {
				return pkgerrors.New(pkgerrors.CodeConflict, "media is already used there")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record media reference")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logMutation(ctx, "record_usage", ownerID, map[string]any{
		"media_id":    itemID.String(),
		"entity_type": in.EntityType,
		"entity_id":   entityID,
	})
	return ref, nil
}

// ReplaceUsage repoints every reference from oldID to newID. Both items must belong to the
// owner and share a kind.
func (s *service) ReplaceUsage(ctx context.Context, caller Caller, ownerID, oldID, newID uuid.UUID) (res *ReplaceResult, err error) {
	done := s.metrics.Track("replace_usage")
	defer func() { done(err) }()

	if oldID == newID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "replacement must be a different media item")
	}

	err = s.withOwnerLock(ctx, caller, ownerID, func(tx *gorm.DB) error {
		oldItem, err := s.ownedItem(tx, ownerID, oldID)
		if err != nil {
			return err
		}
		newItem, err := s.ownedItem(tx, ownerID, newID)
		if err != nil {
			return err
		}
		if oldItem.Kind != newItem.Kind {
			return pkgerrors.New(pkgerrors.CodeValidation, "replacement must be the same kind of media").
				WithDetails(map[string]any{"old_kind": oldItem.Kind, "new_kind": newItem.Kind})
		}
		n, err := s.references.Repoint(tx, oldID, newID)
		if err != nil {
			if dbpkg.IsUniqueViolation(err, referenceTargetConstraint) {
				return pkgerrors.New(pkgerrors.CodeConflict, "replacement is already used by the same content")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "repoint media references")
		}
		res = &ReplaceResult{OldID: oldID, NewID: newID, Replaced: n}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logMutation(ctx, "replace_usage", ownerID, map[string]any{
		"old_media_id": oldID.String(),
		"new_media_id": newID.String(),
		"replaced":     res.Replaced,
	})
	return res, nil
}
