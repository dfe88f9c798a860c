package profilemedia

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/profilemedia-backend/api/responses"
	"github.com/angelmondragon/profilemedia-backend/api/validators"
	"github.com/angelmondragon/profilemedia-backend/internal/ordering"
	"github.com/angelmondragon/profilemedia-backend/internal/profile"
	pkgerrors "github.com/angelmondragon/profilemedia-backend/pkg/errors"
	"github.com/angelmondragon/profilemedia-backend/pkg/logger"
)

const (
	uploadField        = "file"
	multipartMemoryMax = 32 << 20
)

// Upload stores a multipart file and records it as a new media item.
func Upload(svc profile.Service, urls URLResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ownerID, err := callerAndOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := r.ParseMultipartForm(multipartMemoryMax); err != nil {
			responses.WriteError(r.Context(), logg, w, multipartError(err))
			return
		}
		file, header, err := r.FormFile(uploadField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file is required").
				WithDetails(map[string]any{"field": uploadField}))
			return
		}
		defer file.Close()

		item, err := svc.Upload(r.Context(), caller, ownerID, header.Filename, file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newMediaItem(*item, urls))
	}
}

func multipartError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return pkgerrors.Wrap(pkgerrors.CodePayloadTooLarge, err, "file too large").
			WithDetails(map[string]any{"max_bytes": tooLarge.Limit})
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body")
}

// List returns the owner's media in display order, optionally filtered by ?category=.
func List(svc profile.Service, urls URLResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ownerID, err := callerAndOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := validators.ParseOptionalCategory(r, "category")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.List(r.Context(), caller, ownerID, category)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newMediaItems(items, urls))
	}
}

func Profile(svc profile.Service, urls URLResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ownerID, err := callerAndOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Profile(r.Context(), caller, ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProfile(view, urls))
	}
}

func Counts(svc profile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ownerID, err := callerAndOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		counts, err := svc.GetCounts(r.Context(), caller, ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCounts(*counts))
	}
}

// Reorder accepts either a flat id list or ids grouped by category under "order".
func Reorder(svc profile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ownerID, err := callerAndOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload reorderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeReorder(w, r, svc, logg, caller, ownerID, payload.Order, payload.Categories)
	}
}

func writeReorder(w http.ResponseWriter, r *http.Request, svc profile.Service, logg *logger.Logger, caller profile.Caller, ownerID uuid.UUID, order, categories json.RawMessage) {
	input, err := ordering.DecodeInput(order, categories)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	res, err := svc.Reorder(r.Context(), caller, ownerID, input)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, newReorder(res))
}

func SetCategory(svc profile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ownerID, err := callerAndOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mediaID, err := mediaIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload setCategoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := payload.category()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := svc.SetCategory(r.Context(), caller, ownerID, mediaID, category)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categoryResponse{
			MediaID:        res.ItemID,
			Category:       res.Category,
			Transition:     res.Transition,
			countsResponse: newCounts(res.CountsResult),
		})
	}
}

func Rename(svc profile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ownerID, err := callerAndOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mediaID, err := mediaIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload renameRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := svc.Rename(r.Context(), caller, ownerID, mediaID, payload.DisplayName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renameResponse{MediaID: res.ItemID, DisplayName: res.DisplayName})
	}
}

func RenameMany(svc profile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ownerID, err := callerAndOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload bulkRenameRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		names, err := parseDisplayNames(payload.DisplayNames)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := svc.RenameMany(r.Context(), caller, ownerID, names)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newBulkRename(res))
	}
}

func Delete(svc profile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ownerID, err := callerAndOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mediaID, err := mediaIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := svc.Delete(r.Context(), caller, ownerID, mediaID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, deleteResponse{MediaID: res.ItemID, Deleted: res.Deleted})
	}
}

func Usage(svc profile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ownerID, err := callerAndOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mediaID, err := mediaIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		refs, err := svc.Usage(r.Context(), caller, ownerID, mediaID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newUsage(mediaID, refs))
	}
}

func RecordUsage(svc profile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ownerID, err := callerAndOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mediaID, err := mediaIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload recordUsageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ref, err := svc.RecordUsage(r.Context(), caller, ownerID, mediaID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newReference(*ref))
	}
}

// ReplaceUsage repoints every reference to {mediaId} at the replacement item.
func ReplaceUsage(svc profile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ownerID, err := callerAndOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mediaID, err := mediaIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload replaceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		newID, err := validators.ParseUUID(payload.ReplacementID, "replacement_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := svc.ReplaceUsage(r.Context(), caller, ownerID, mediaID, newID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, replaceResponse{OldID: res.OldID, NewID: res.NewID, Replaced: res.Replaced})
	}
}

func SelectAudio(svc profile.Service, urls URLResolver, logg *logger.Logger) http.HandlerFunc {
	return pointerHandler(svc.SelectAudio, urls, logg)
}

func SetProfilePicture(svc profile.Service, urls URLResolver, logg *logger.Logger) http.HandlerFunc {
	return pointerHandler(svc.SetProfilePicture, urls, logg)
}

type pointerOp func(ctx context.Context, caller profile.Caller, ownerID uuid.UUID, itemID *uuid.UUID) (*profile.View, error)

func pointerHandler(op pointerOp, urls URLResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ownerID, err := callerAndOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload pointerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := payload.id()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := op(r.Context(), caller, ownerID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProfile(view, urls))
	}
}
