package media

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/profilemedia-backend/pkg/db/models"
	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
)

// Repository persists media_items rows. Methods taking a tx run inside the caller's transaction.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a media repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, item *models.MediaItem) error {
	return tx.Create(item).Error
}

// FindByID reads outside any transaction.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.MediaItem, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), id)
}

func (r *Repository) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*models.MediaItem, error) {
	var item models.MediaItem
	if err := tx.First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ListByOwner returns the owner's items in display order, optionally filtered by category.
func (r *Repository) ListByOwner(tx *gorm.DB, ownerID uuid.UUID, category *enums.MediaCategory) ([]models.MediaItem, error) {
	q := tx.Where("owner_id = ?", ownerID)
	if category != nil {
		q = q.Where("category = ?", *category)
	}
	var items []models.MediaItem
	err := q.Order("sort_position ASC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *Repository) MaxSortPosition(tx *gorm.DB, ownerID uuid.UUID) (int, error) {
	var max int
	err := tx.Model(&models.MediaItem{}).
		Where("owner_id = ?", ownerID).
		Select("COALESCE(MAX(sort_position), 0)").
		Scan(&max).Error
	return max, err
}

func (r *Repository) UpdateColumns(tx *gorm.DB, id uuid.UUID, values map[string]any) error {
	return tx.Model(&models.MediaItem{}).Where("id = ?", id).Updates(values).Error
}

// SetSortPosition scopes the write to the owner and reports how many rows matched.
func (r *Repository) SetSortPosition(tx *gorm.DB, ownerID, id uuid.UUID, position int) (int64, error) {
	res := tx.Model(&models.MediaItem{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Update("sort_position", position)
	return res.RowsAffected, res.Error
}

func (r *Repository) DeleteByID(tx *gorm.DB, id uuid.UUID) (int64, error) {
	res := tx.Where("id = ?", id).Delete(&models.MediaItem{})
	return res.RowsAffected, res.Error
}

// StorageKeyInUse reports whether any row still points at key.
func (r *Repository) StorageKeyInUse(ctx context.Context, key string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.MediaItem{}).Where("storage_key = ?", key).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
