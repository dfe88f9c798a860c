package profilemedia

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/profilemedia-backend/api/responses"
	"github.com/angelmondragon/profilemedia-backend/api/validators"
	"github.com/angelmondragon/profilemedia-backend/internal/ordering"
	"github.com/angelmondragon/profilemedia-backend/internal/profile"
	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/profilemedia-backend/pkg/errors"
	"github.com/angelmondragon/profilemedia-backend/pkg/logger"
	"github.com/angelmondragon/profilemedia-backend/pkg/types"
)

const legacyFormMemory = 1 << 20

// mediaIDFields are the parameter spellings older clients use for a media id, in lookup order.
var mediaIDFields = []string{"media_id", "image_id", "audio_id", "video_id", "attachment_id"}

type legacyAction func(ctx context.Context, r *http.Request, caller profile.Caller) (any, error)

// LegacyActions serves the form-encoded action endpoint used by older profile editors. Each
// action acts on the caller's own profile and answers with a {success, data} envelope.
func LegacyActions(svc profile.Service, urls URLResolver, logg *logger.Logger) http.HandlerFunc {
	actions := legacyActions(svc, urls)
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "action")))
		action, ok := actions[name]
		if !ok {
			writeLegacyError(r.Context(), logg, w, pkgerrors.Newf(pkgerrors.CodeNotFound, "unknown action %q", name))
			return
		}
		caller, err := callerFromRequest(r)
		if err != nil {
			writeLegacyError(r.Context(), logg, w, err)
			return
		}
		if err := r.ParseMultipartForm(legacyFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			writeLegacyError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form body"))
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithField(ctx, "legacy_action", name)
		}
		data, err := action(ctx, r, caller)
		if err != nil {
			writeLegacyError(ctx, logg, w, err)
			return
		}
		responses.JSON(w, http.StatusOK, types.LegacyEnvelope{Success: true, Data: data})
	}
}

func legacyActions(svc profile.Service, urls URLResolver) map[string]legacyAction {
	setCategory := func(ctx context.Context, r *http.Request, caller profile.Caller) (any, error) {
		mediaID, err := formMediaID(r)
		if err != nil {
			return nil, err
		}
		raw := strings.TrimSpace(r.PostFormValue("category"))
		if raw == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing data")
		}
		category, err := enums.ParseMediaCategory(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown category")
		}
		res, err := svc.SetCategory(ctx, caller, caller.UserID, mediaID, category)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"media_id":   res.ItemID,
			"category":   res.Category,
			"transition": res.Transition,
			"counts":     res.Counts,
			"limits":     res.Limits,
			"message":    "Category updated",
		}, nil
	}

	deleteItem := func(ctx context.Context, r *http.Request, caller profile.Caller) (any, error) {
		mediaID, err := formMediaID(r)
		if err != nil {
			return nil, err
		}
		res, err := svc.Delete(ctx, caller, caller.UserID, mediaID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"media_id": res.ItemID, "deleted": res.Deleted, "message": "Deleted"}, nil
	}

	return map[string]legacyAction{
		"update_media_category": setCategory,
		"update_image_category": setCategory,
		"update_image_order": func(ctx context.Context, r *http.Request, caller profile.Caller) (any, error) {
			input, err := ordering.DecodeInput(formJSON(r, "order"), formJSON(r, "categories"))
			if err != nil {
				return nil, err
			}
			res, err := svc.Reorder(ctx, caller, caller.UserID, input)
			if err != nil {
				return nil, err
			}
			out := newReorder(res)
			return map[string]any{
				"message":       "Order and categories updated",
				"updated":       out.Updated,
				"recategorized": out.Recategorized,
				"skipped":       out.Skipped,
				"counts":        out.Counts,
				"limits":        out.Limits,
			}, nil
		},
		"update_display_names": func(ctx context.Context, r *http.Request, caller profile.Caller) (any, error) {
			var raw map[string]string
			if err := json.Unmarshal(formJSON(r, "display_names"), &raw); err != nil || len(raw) == 0 {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "no display names supplied")
			}
			names, err := parseDisplayNames(raw)
			if err != nil {
				return nil, err
			}
			res, err := svc.RenameMany(ctx, caller, caller.UserID, names)
			if err != nil {
				return nil, err
			}
			out := newBulkRename(res)
			return map[string]any{
				"message":   "Display names updated",
				"count":     out.Count,
				"failed":    out.Failed,
				"breakdown": out.Breakdown,
			}, nil
		},
		"save_audio_display_name": func(ctx context.Context, r *http.Request, caller profile.Caller) (any, error) {
			mediaID, err := formMediaID(r)
			if err != nil {
				return nil, err
			}
			res, err := svc.Rename(ctx, caller, caller.UserID, mediaID, r.PostFormValue("display_name"))
			if err != nil {
				return nil, err
			}
			return renameResponse{MediaID: res.ItemID, DisplayName: res.DisplayName}, nil
		},
		"delete_profile_image": deleteItem,
		"delete_profile_video": deleteItem,
		"delete_profile_audio": deleteItem,
		"save_selected_audio": func(ctx context.Context, r *http.Request, caller profile.Caller) (any, error) {
			itemID, err := validators.ParseOptionalUUID(formValue(r, "audio_id", "media_id"), "audio_id")
			if err != nil {
				return nil, err
			}
			view, err := svc.SelectAudio(ctx, caller, caller.UserID, itemID)
			if err != nil {
				return nil, err
			}
			return newProfile(view, urls), nil
		},
		"set_profile_picture": func(ctx context.Context, r *http.Request, caller profile.Caller) (any, error) {
			itemID, err := validators.ParseOptionalUUID(formValue(r, "image_id", "media_id"), "image_id")
			if err != nil {
				return nil, err
			}
			view, err := svc.SetProfilePicture(ctx, caller, caller.UserID, itemID)
			if err != nil {
				return nil, err
			}
			return newProfile(view, urls), nil
		},
		"get_category_counts": func(ctx context.Context, r *http.Request, caller profile.Caller) (any, error) {
			counts, err := svc.GetCounts(ctx, caller, caller.UserID)
			if err != nil {
				return nil, err
			}
			return newCounts(*counts), nil
		},
		"check_image_usage": func(ctx context.Context, r *http.Request, caller profile.Caller) (any, error) {
			mediaID, err := formMediaID(r)
			if err != nil {
				return nil, err
			}
			refs, err := svc.Usage(ctx, caller, caller.UserID, mediaID)
			if err != nil {
				return nil, err
			}
			return newUsage(mediaID, refs), nil
		},
		"replace_image_in_all_uses": func(ctx context.Context, r *http.Request, caller profile.Caller) (any, error) {
			oldID, err := validators.ParseUUID(r.PostFormValue("old_image_id"), "old_image_id")
			if err != nil {
				return nil, err
			}
			newID, err := validators.ParseUUID(r.PostFormValue("new_image_id"), "new_image_id")
			if err != nil {
				return nil, err
			}
			res, err := svc.ReplaceUsage(ctx, caller, caller.UserID, oldID, newID)
			if err != nil {
				return nil, err
			}
			return replaceResponse{OldID: res.OldID, NewID: res.NewID, Replaced: res.Replaced}, nil
		},
	}
}

func formValue(r *http.Request, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(r.PostFormValue(key)); v != "" {
			return v
		}
	}
	return ""
}

func formMediaID(r *http.Request) (uuid.UUID, error) {
	raw := formValue(r, mediaIDFields...)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "missing data").
			WithDetails(map[string]any{"fields": mediaIDFields})
	}
	return validators.ParseUUID(raw, "media_id")
}

// formJSON returns a JSON-valued form field. Some clients escape quotes before posting.
func formJSON(r *http.Request, key string) json.RawMessage {
	raw := strings.TrimSpace(r.PostFormValue(key))
	if strings.Contains(raw, `\"`) {
		raw = strings.ReplaceAll(raw, `\"`, `"`)
	}
	return json.RawMessage(raw)
}

func writeLegacyError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	status, body := responses.Describe(err)
	if logg != nil {
		ctx = logg.WithField(ctx, "surface", "legacy")
	}
	responses.Report(ctx, logg, status, err)
	responses.JSON(w, status, types.LegacyEnvelope{Success: false, Data: body})
}
