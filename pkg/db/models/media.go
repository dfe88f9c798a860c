package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
)

// MediaItem is one uploaded profile asset. Owner and kind never change after creation.
type MediaItem struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID      uuid.UUID           `gorm:"column:owner_id;type:uuid;not null;index:idx_media_items_owner_position,priority:1;index:idx_media_items_owner_category,priority:1"`
	Kind         enums.MediaKind     `gorm:"column:kind;type:text;not null"`
	Category     enums.MediaCategory `gorm:"column:category;type:text;not null;default:none;index:idx_media_items_owner_category,priority:2"`
	SortPosition int                 `gorm:"column:sort_position;not null;default:0;index:idx_media_items_owner_position,priority:2"`
	DisplayName  string              `gorm:"column:display_name;not null"`
	FileName     string              `gorm:"column:file_name;not null"`
	MimeType     string              `gorm:"column:mime_type;not null"`
	SizeBytes    int64               `gorm:"column:size_bytes;not null"`
	StorageKey   string              `gorm:"column:storage_key;not null;uniqueIndex"`
	Width        *int                `gorm:"column:width"`
	Height       *int                `gorm:"column:height"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (MediaItem) TableName() string { return "media_items" }

func (m *MediaItem) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
