package media

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/profilemedia-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/profilemedia-backend/pkg/db/types"
)

// IndexRepository persists the per-owner aggregate index held on the profiles row.
type IndexRepository struct {
	db *gorm.DB
}

func NewIndexRepository(db *gorm.DB) *IndexRepository {
	return &IndexRepository{db: db}
}

// Lock makes sure the owner's profile row exists and takes a row lock on it for the rest of
// the transaction. SQLite ignores the locking clause; its writers are already serialized.
func (r *IndexRepository) Lock(tx *gorm.DB, ownerID uuid.UUID) (*models.Profile, error) {
	seed := emptyProfile(ownerID)
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
		return nil, err
	}

	var profile models.Profile
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&profile, "owner_id = ?", ownerID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// Find returns the stored index, or an empty one when the owner has never written.
func (r *IndexRepository) Find(ctx context.Context, ownerID uuid.UUID) (*models.Profile, error) {
	return r.FindTx(r.db.WithContext(ctx), ownerID)
}

// FindTx is Find inside tx. It never creates the profile row.
func (r *IndexRepository) FindTx(tx *gorm.DB, ownerID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := tx.First(&profile, "owner_id = ?", ownerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return emptyProfile(ownerID), nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListOwners returns every owner with a profile row or at least one media item.
func (r *IndexRepository) ListOwners(ctx context.Context) ([]uuid.UUID, error) {
	var withProfile, withItems []uuid.UUID
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Profile{}).Pluck("owner_id", &withProfile).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.MediaItem{}).Distinct().Pluck("owner_id", &withItems).Error; err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]struct{}, len(withProfile)+len(withItems))
	owners := make([]uuid.UUID, 0, len(withProfile)+len(withItems))
	for _, id := range append(withProfile, withItems...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		owners = append(owners, id)
	}
	return owners, nil
}

func (r *IndexRepository) Update(tx *gorm.DB, profile *models.Profile) error {
	return tx.Model(&models.Profile{}).
		Where("owner_id = ?", profile.OwnerID).
		Updates(map[string]any{
			"category_index":     profile.CategoryIndex,
			"order_index":        profile.OrderIndex,
			"selected_audio_id":  profile.SelectedAudioID,
			"profile_picture_id": profile.ProfilePictureID,
			"revision":           profile.Revision,
		}).Error
}

func emptyProfile(ownerID uuid.UUID) *models.Profile {
	return &models.Profile{
		OwnerID:       ownerID,
		CategoryIndex: dbtypes.CategoryIndex{},
		OrderIndex:    dbtypes.UUIDList{},
	}
}
