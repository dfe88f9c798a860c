package validators

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/profilemedia-backend/pkg/errors"
)

// ParseOptionalCategory reads a category filter. An absent parameter yields nil.
func ParseOptionalCategory(r *http.Request, key string) (*enums.MediaCategory, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	category, err := enums.ParseMediaCategory(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown category").WithDetails(map[string]any{"field": key, "value": raw})
	}
	return &category, nil
}

// ParseUUID parses an identifier supplied as a path, query or form value.
func ParseUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").WithDetails(map[string]any{"field": field})
	}
	return id, nil
}

// ParseOptionalUUID accepts an empty value or "0" as "no id".
func ParseOptionalUUID(raw, field string) (*uuid.UUID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "0" {
		return nil, nil
	}
	id, err := ParseUUID(trimmed, field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
