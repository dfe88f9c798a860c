package profilemedia

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/profilemedia-backend/api/validators"
	"github.com/angelmondragon/profilemedia-backend/internal/profile"
	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/profilemedia-backend/pkg/errors"
)

type setCategoryRequest struct {
	Category string `json:"category" validate:"media_category"`
}

func (r setCategoryRequest) category() (enums.MediaCategory, error) {
	category, err := enums.ParseMediaCategory(r.Category)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown category")
	}
	return category, nil
}

type reorderRequest struct {
	Order      json.RawMessage `json:"order" validate:"required"`
	Categories json.RawMessage `json:"categories,omitempty"`
}

type renameRequest struct {
	DisplayName string `json:"display_name"`
}

type bulkRenameRequest struct {
	DisplayNames map[string]string `json:"display_names" validate:"required,min=1"`
}

// parseDisplayNames keys the names by media id. Unparseable keys fail the whole request.
func parseDisplayNames(raw map[string]string) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(raw))
	for key, name := range raw {
		id, err := validators.ParseUUID(key, "display_names")
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "display_names keys must be media ids").
				WithDetails(map[string]any{"key": key})
		}
		names[id] = name
	}
	return names, nil
}

type pointerRequest struct {
	MediaID *string `json:"media_id"`
}

func (r pointerRequest) id() (*uuid.UUID, error) {
	if r.MediaID == nil {
		return nil, nil
	}
	return validators.ParseOptionalUUID(*r.MediaID, "media_id")
}

type recordUsageRequest struct {
	EntityType string `json:"entity_type" validate:"required,entity_type"`
	EntityID   string `json:"entity_id" validate:"required,max=191"`
	Role       string `json:"role,omitempty" validate:"max=64"`
}

func (r recordUsageRequest) toInput() (profile.UsageInput, error) {
	entityType, err := enums.ParseReferenceEntityType(r.EntityType)
	if err != nil {
		return profile.UsageInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown entity type")
	}
	return profile.UsageInput{
		EntityType: entityType,
		EntityID:   strings.TrimSpace(r.EntityID),
		Role:       strings.TrimSpace(r.Role),
	}, nil
}

type replaceRequest struct {
	ReplacementID string `json:"replacement_id" validate:"required,uuid"`
}
