package media

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/profilemedia-backend/pkg/db/models"
)

// ReferenceRepository tracks content that uses a media item.
type ReferenceRepository struct {
	db *gorm.DB
}

func NewReferenceRepository(db *gorm.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

func (r *ReferenceRepository) ListByMedia(ctx context.Context, mediaID uuid.UUID) ([]models.MediaReference, error) {
	var rows []models.MediaReference
	err := r.db.WithContext(ctx).
		Where("media_id = ?", mediaID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *ReferenceRepository) Insert(tx *gorm.DB, ref *models.MediaReference) error {
	return tx.Create(ref).Error
}

// Repoint moves every reference from oldID to newID. A reference newID already holds for
// the same target is dropped from oldID instead of duplicated. It returns how many targets
// now point at newID because of the move.
func (r *ReferenceRepository) Repoint(tx *gorm.DB, oldID, newID uuid.UUID) (int64, error) {
	var current []models.MediaReference
	if err := tx.Where("media_id IN ?", []uuid.UUID{oldID, newID}).Find(&current).Error; err != nil {
		return 0, err
	}

	held := make(map[referenceTarget]struct{})
	for _, ref := range current {
		if ref.MediaID == newID {
			held[targetOf(ref)] = struct{}{}
		}
	}

	var merged, moved []uuid.UUID
	for _, ref := range current {
		if ref.MediaID != oldID {
			continue
		}
		if _, dup := held[targetOf(ref)]; dup {
			merged = append(merged, ref.ID)
			continue
		}
		moved = append(moved, ref.ID)
	}

	if len(merged) > 0 {
		if err := tx.Where("id IN ?", merged).Delete(&models.MediaReference{}).Error; err != nil {
			return 0, err
		}
	}
	if len(moved) > 0 {
		if err := tx.Model(&models.MediaReference{}).
			Where("id IN ?", moved).
			Update("media_id", newID).Error; err != nil {
			return 0, err
		}
	}
	return int64(len(merged) + len(moved)), nil
}

type referenceTarget struct {
	entityType string
	entityID   string
	role       string
}

func targetOf(ref models.MediaReference) referenceTarget {
	return referenceTarget{entityType: string(ref.EntityType), entityID: ref.EntityID, role: ref.Role}
}
