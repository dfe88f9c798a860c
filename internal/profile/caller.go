package profile

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/profilemedia-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/profilemedia-backend/pkg/errors"
)

// Caller is the authenticated identity behind a request. Admin callers may act on any owner.
type Caller struct {
	UserID uuid.UUID
	Admin  bool
}

func (c Caller) authorize(ownerID uuid.UUID) error {
	if c.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if ownerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	if c.Admin || c.UserID == ownerID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "cannot manage another user's media")
}

func ensureOwned(item *models.MediaItem, ownerID uuid.UUID) error {
	if item.OwnerID != ownerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "media item belongs to another user").
			WithDetails(map[string]any{"media_id": item.ID})
	}
	return nil
}
