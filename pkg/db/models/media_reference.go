package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
)

// RoleFeaturedImage marks a reference that uses the media as a featured image.
const RoleFeaturedImage = "featured_image"

// MediaReference records content that uses a media item. Deleting the media leaves these
// rows in place so usage can still be audited.
type MediaReference struct {
	ID         uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	MediaID    uuid.UUID                 `gorm:"column:media_id;type:uuid;not null;uniqueIndex:ux_media_references_target,priority:1"`
	OwnerID    uuid.UUID                 `gorm:"column:owner_id;type:uuid;not null;index"`
	EntityType enums.ReferenceEntityType `gorm:"column:entity_type;type:text;not null;uniqueIndex:ux_media_references_target,priority:2"`
	EntityID   string                    `gorm:"column:entity_id;not null;uniqueIndex:ux_media_references_target,priority:3"`
	Role       string                    `gorm:"column:role;not null;uniqueIndex:ux_media_references_target,priority:4"`
	CreatedAt  time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

func (MediaReference) TableName() string { return "media_references" }

func (r *MediaReference) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
