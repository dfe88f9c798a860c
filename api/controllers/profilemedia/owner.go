package profilemedia

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/profilemedia-backend/api/middleware"
	"github.com/angelmondragon/profilemedia-backend/api/validators"
	"github.com/angelmondragon/profilemedia-backend/internal/profile"
	pkgerrors "github.com/angelmondragon/profilemedia-backend/pkg/errors"
)

// selfOwner is the path alias for the authenticated caller.
const selfOwner = "me"

func callerFromRequest(r *http.Request) (profile.Caller, error) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		return profile.Caller{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return profile.Caller{UserID: id.UserID, Admin: id.IsAdmin()}, nil
}

// callerAndOwner resolves the caller and the {ownerId} path segment.
func callerAndOwner(r *http.Request) (profile.Caller, uuid.UUID, error) {
	caller, err := callerFromRequest(r)
	if err != nil {
		return profile.Caller{}, uuid.Nil, err
	}
	raw := strings.TrimSpace(chi.URLParam(r, "ownerId"))
	if raw == "" || strings.EqualFold(raw, selfOwner) {
		return caller, caller.UserID, nil
	}
	ownerID, err := validators.ParseUUID(raw, "ownerId")
	if err != nil {
		return profile.Caller{}, uuid.Nil, err
	}
	return caller, ownerID, nil
}

func mediaIDParam(r *http.Request) (uuid.UUID, error) {
	return validators.ParseUUID(chi.URLParam(r, "mediaId"), "mediaId")
}
