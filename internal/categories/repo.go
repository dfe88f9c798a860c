package categories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/profilemedia-backend/pkg/db/models"
	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
)

// Repository runs the aggregate queries behind the ledger.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

type categoryCount struct {
	Category enums.MediaCategory
	Total    int
}

// CountByCategory scans the owner's items grouped by category.
func (r *Repository) CountByCategory(tx *gorm.DB, ownerID uuid.UUID) (map[enums.MediaCategory]int, error) {
	var rows []categoryCount
	err := tx.Model(&models.MediaItem{}).
		Select("category, COUNT(*) AS total").
		Where("owner_id = ?", ownerID).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.MediaCategory]int, len(rows))
	for _, row := range rows {
		out[row.Category] += row.Total
	}
	return out, nil
}

func (r *Repository) CountInCategory(tx *gorm.DB, ownerID uuid.UUID, category enums.MediaCategory, kind *enums.MediaKind) (int, error) {
	q := tx.Model(&models.MediaItem{}).Where("owner_id = ? AND category = ?", ownerID, category)
	if kind != nil {
		q = q.Where("kind = ?", *kind)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, err
	}
	return int(total), nil
}
