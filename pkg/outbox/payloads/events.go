package payloads

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
)

// MediaUploadedEvent announces a new profile media item.
type MediaUploadedEvent struct {
	MediaID    uuid.UUID       `json:"media_id"`
	OwnerID    uuid.UUID       `json:"owner_id"`
	Kind       enums.MediaKind `json:"kind"`
	MimeType   string          `json:"mime_type"`
	SizeBytes  int64           `json:"size_bytes"`
	StorageKey string          `json:"storage_key"`
}

// MediaDeletedEvent carries what the blob cleanup worker needs once the record is gone.
type MediaDeletedEvent struct {
	MediaID    uuid.UUID       `json:"media_id"`
	OwnerID    uuid.UUID       `json:"owner_id"`
	Kind       enums.MediaKind `json:"kind"`
	StorageKey string          `json:"storage_key"`
}
