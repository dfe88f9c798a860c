package profile

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/profilemedia-backend/internal/categories"
	"github.com/angelmondragon/profilemedia-backend/pkg/db/models"
	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
)

// Transition names the lifecycle step a category change produced.
type Transition string

const (
	TransitionNone          Transition = "unchanged"
	TransitionCategorized   Transition = "categorized"
	TransitionRecategorized Transition = "recategorized"
)

func transitionFor(from, to enums.MediaCategory, changed bool) Transition {
	switch {
	case !changed:
		return TransitionNone
	case from == enums.CategoryNone:
		return TransitionCategorized
	default:
		return TransitionRecategorized
	}
}

type CountsResult struct {
	Counts categories.Counts
	Limits map[enums.MediaCategory]int
}

type CategoryResult struct {
	ItemID     uuid.UUID
	Category   enums.MediaCategory
	Transition Transition
	CountsResult
}

type ReorderResult struct {
	UpdatedCount  int
	Recategorized int
	Skipped       []uuid.UUID
	CountsResult
}

type RenameResult struct {
	ItemID      uuid.UUID
	DisplayName string
}

// RenameFailure explains why one entry of a bulk rename was not applied.
type RenameFailure struct {
	ItemID uuid.UUID
	Reason string
}

type BulkRenameResult struct {
	Count     int
	Failed    []RenameFailure
	Breakdown map[enums.MediaKind]int
}

type DeleteResult struct {
	ItemID  uuid.UUID
	Deleted bool
}

// View is the owner's media together with the stored aggregate index.
type View struct {
	OwnerID          uuid.UUID
	Items            []models.MediaItem
	CategoryIndex    map[string]string
	OrderIndex       []uuid.UUID
	SelectedAudioID  *uuid.UUID
	ProfilePictureID *uuid.UUID
	Revision         int64
}

type ReplaceResult struct {
	OldID    uuid.UUID
	NewID    uuid.UUID
	Replaced int64
}

// UsageInput records one piece of content that uses a media item.
type UsageInput struct {
	EntityType enums.ReferenceEntityType
	EntityID   string
	Role       string
}
