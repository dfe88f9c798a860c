package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/angelmondragon/profilemedia-backend/pkg/db/types"
)

// Profile is the per-owner aggregate index. It is rebuilt from media_items inside every
// write transaction and doubles as the row locked to serialize writes for one owner.
type Profile struct {
	OwnerID          uuid.UUID             `gorm:"column:owner_id;type:uuid;primaryKey"`
	CategoryIndex    dbtypes.CategoryIndex `gorm:"column:category_index;type:jsonb;not null"`
	OrderIndex       dbtypes.UUIDList      `gorm:"column:order_index;type:jsonb;not null"`
	SelectedAudioID  *uuid.UUID            `gorm:"column:selected_audio_id;type:uuid"`
	ProfilePictureID *uuid.UUID            `gorm:"column:profile_picture_id;type:uuid"`
	Revision         int64                 `gorm:"column:revision;not null;default:0"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (Profile) TableName() string { return "profiles" }
