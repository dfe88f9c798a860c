package profilemedia

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/profilemedia-backend/internal/profile"
	"github.com/angelmondragon/profilemedia-backend/pkg/db/models"
	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
)

// URLResolver turns a storage key into a client-facing URL.
type URLResolver interface {
	URL(key string) string
}

type mediaItemResponse struct {
	ID           uuid.UUID           `json:"id"`
	OwnerID      uuid.UUID           `json:"owner_id"`
	Kind         enums.MediaKind     `json:"kind"`
	Category     enums.MediaCategory `json:"category"`
	SortPosition int                 `json:"sort_position"`
	DisplayName  string              `json:"display_name"`
	FileName     string              `json:"file_name"`
	MimeType     string              `json:"mime_type"`
	SizeBytes    int64               `json:"size_bytes"`
	URL          string              `json:"url,omitempty"`
	Width        *int                `json:"width,omitempty"`
	Height       *int                `json:"height,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func newMediaItem(item models.MediaItem, urls URLResolver) mediaItemResponse {
	resp := mediaItemResponse{
		ID:           item.ID,
		OwnerID:      item.OwnerID,
		Kind:         item.Kind,
		Category:     item.Category,
		SortPosition: item.SortPosition,
		DisplayName:  item.DisplayName,
		FileName:     item.FileName,
		MimeType:     item.MimeType,
		SizeBytes:    item.SizeBytes,
		Width:        item.Width,
		Height:       item.Height,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
	if urls != nil {
		resp.URL = urls.URL(item.StorageKey)
	}
	return resp
}

func newMediaItems(items []models.MediaItem, urls URLResolver) []mediaItemResponse {
	out := make([]mediaItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, newMediaItem(item, urls))
	}
	return out
}

type countsResponse struct {
	Counts map[enums.MediaCategory]int `json:"counts"`
	Limits map[enums.MediaCategory]int `json:"limits"`
}

func newCounts(c profile.CountsResult) countsResponse {
	return countsResponse{Counts: c.Counts, Limits: c.Limits}
}

type categoryResponse struct {
	MediaID    uuid.UUID           `json:"media_id"`
	Category   enums.MediaCategory `json:"category"`
	Transition profile.Transition  `json:"transition"`
	countsResponse
}

type reorderResponse struct {
	Updated       int         `json:"updated"`
	Recategorized int         `json:"recategorized"`
	Skipped       []uuid.UUID `json:"skipped"`
	countsResponse
}

func newReorder(res *profile.ReorderResult) reorderResponse {
	skipped := res.Skipped
	if skipped == nil {
		skipped = []uuid.UUID{}
	}
	return reorderResponse{
		Updated:        res.UpdatedCount,
		Recategorized:  res.Recategorized,
		Skipped:        skipped,
		countsResponse: newCounts(res.CountsResult),
	}
}

type renameResponse struct {
	MediaID     uuid.UUID `json:"media_id"`
	DisplayName string    `json:"display_name"`
}

type renameFailure struct {
	MediaID uuid.UUID `json:"media_id"`
	Reason  string    `json:"reason"`
}

type bulkRenameResponse struct {
	Count     int                     `json:"count"`
	Failed    []renameFailure         `json:"failed"`
	Breakdown map[enums.MediaKind]int `json:"breakdown"`
}

func newBulkRename(res *profile.BulkRenameResult) bulkRenameResponse {
	failed := make([]renameFailure, 0, len(res.Failed))
	for _, f := range res.Failed {
		failed = append(failed, renameFailure{MediaID: f.ItemID, Reason: f.Reason})
	}
	return bulkRenameResponse{Count: res.Count, Failed: failed, Breakdown: res.Breakdown}
}

type deleteResponse struct {
	MediaID uuid.UUID `json:"media_id"`
	Deleted bool      `json:"deleted"`
}

type profileResponse struct {
	OwnerID          uuid.UUID           `json:"owner_id"`
	Items            []mediaItemResponse `json:"items"`
	CategoryIndex    map[string]string   `json:"category_index"`
	OrderIndex       []uuid.UUID         `json:"order_index"`
	SelectedAudioID  *uuid.UUID          `json:"selected_audio_id"`
	ProfilePictureID *uuid.UUID          `json:"profile_picture_id"`
	Revision         int64               `json:"revision"`
}

func newProfile(view *profile.View, urls URLResolver) profileResponse {
	categoryIndex := view.CategoryIndex
	if categoryIndex == nil {
		categoryIndex = map[string]string{}
	}
	orderIndex := view.OrderIndex
	if orderIndex == nil {
		orderIndex = []uuid.UUID{}
	}
	return profileResponse{
		OwnerID:          view.OwnerID,
		Items:            newMediaItems(view.Items, urls),
		CategoryIndex:    categoryIndex,
		OrderIndex:       orderIndex,
		SelectedAudioID:  view.SelectedAudioID,
		ProfilePictureID: view.ProfilePictureID,
		Revision:         view.Revision,
	}
}

type referenceResponse struct {
	ID         uuid.UUID                 `json:"id"`
	MediaID    uuid.UUID                 `json:"media_id"`
	EntityType enums.ReferenceEntityType `json:"entity_type"`
	EntityID   string                    `json:"entity_id"`
	Role       string                    `json:"role"`
	CreatedAt  time.Time                 `json:"created_at"`
}

func newReference(ref models.MediaReference) referenceResponse {
	return referenceResponse{
		ID:         ref.ID,
		MediaID:    ref.MediaID,
		EntityType: ref.EntityType,
		EntityID:   ref.EntityID,
		Role:       ref.Role,
		CreatedAt:  ref.CreatedAt,
	}
}

type usageResponse struct {
	MediaID    uuid.UUID           `json:"media_id"`
	InUse      bool                `json:"in_use"`
	References []referenceResponse `json:"references"`
}

func newUsage(mediaID uuid.UUID, refs []models.MediaReference) usageResponse {
	out := make([]referenceResponse, 0, len(refs))
	for _, ref := range refs {
		out = append(out, newReference(ref))
	}
	return usageResponse{MediaID: mediaID, InUse: len(out) > 0, References: out}
}

type replaceResponse struct {
	OldID    uuid.UUID `json:"old_id"`
	NewID    uuid.UUID `json:"new_id"`
	Replaced int64     `json:"replaced"`
}
