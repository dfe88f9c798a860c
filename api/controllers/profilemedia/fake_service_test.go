package profilemedia

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/profilemedia-backend/api/middleware"
	"github.com/angelmondragon/profilemedia-backend/internal/categories"
	"github.com/angelmondragon/profilemedia-backend/internal/ordering"
	"github.com/angelmondragon/profilemedia-backend/internal/profile"
	"github.com/angelmondragon/profilemedia-backend/pkg/db/models"
	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
)

type call struct {
	op       string
	caller   profile.Caller
	ownerID  uuid.UUID
	itemID   uuid.UUID
	pointer  *uuid.UUID
	category *enums.MediaCategory
	names    map[uuid.UUID]string
	reorder  ordering.Input
	fileName string
	body     string
	usage    profile.UsageInput
	newID    uuid.UUID
	display  string
}

// fakeService records the façade calls a handler makes and replays canned results.
type fakeService struct {
	calls []call
	err   error
	items []models.MediaItem
	refs  []models.MediaReference
}

func (f *fakeService) last() call {
	if len(f.calls) == 0 {
		return call{}
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeService) counts() profile.CountsResult {
	return profile.CountsResult{
		Counts: categories.Counts{enums.CategoryGallery: 1},
		Limits: enums.CategoryLimits(),
	}
}

func (f *fakeService) Upload(_ context.Context, caller profile.Caller, ownerID uuid.UUID, fileName string, body io.Reader) (*models.MediaItem, error) {
	data, _ := io.ReadAll(body)
	f.calls = append(f.calls, call{op: "upload", caller: caller, ownerID: ownerID, fileName: fileName, body: string(data)})
	if f.err != nil {
		return nil, f.err
	}
	return &models.MediaItem{ID: uuid.New(), OwnerID: ownerID, Kind: enums.MediaKindImage, Category: enums.CategoryNone, FileName: fileName, StorageKey: "k/" + fileName}, nil
}

func (f *fakeService) SetCategory(_ context.Context, caller profile.Caller, ownerID, itemID uuid.UUID, category enums.MediaCategory) (*profile.CategoryResult, error) {
	f.calls = append(f.calls, call{op: "set_category", caller: caller, ownerID: ownerID, itemID: itemID, category: &category})
	if f.err != nil {
		return nil, f.err
	}
	return &profile.CategoryResult{ItemID: itemID, Category: category, Transition: profile.TransitionCategorized, CountsResult: f.counts()}, nil
}

func (f *fakeService) Reorder(_ context.Context, caller profile.Caller, ownerID uuid.UUID, in ordering.Input) (*profile.ReorderResult, error) {
	f.calls = append(f.calls, call{op: "reorder", caller: caller, ownerID: ownerID, reorder: in})
	if f.err != nil {
		return nil, f.err
	}
	return &profile.ReorderResult{UpdatedCount: len(in.Steps()), CountsResult: f.counts()}, nil
}

func (f *fakeService) Rename(_ context.Context, caller profile.Caller, ownerID, itemID uuid.UUID, displayName string) (*profile.RenameResult, error) {
	f.calls = append(f.calls, call{op: "rename", caller: caller, ownerID: ownerID, itemID: itemID, display: displayName})
	if f.err != nil {
		return nil, f.err
	}
	return &profile.RenameResult{ItemID: itemID, DisplayName: displayName}, nil
}

func (f *fakeService) RenameMany(_ context.Context, caller profile.Caller, ownerID uuid.UUID, names map[uuid.UUID]string) (*profile.BulkRenameResult, error) {
	f.calls = append(f.calls, call{op: "rename_many", caller: caller, ownerID: ownerID, names: names})
	if f.err != nil {
		return nil, f.err
	}
	return &profile.BulkRenameResult{Count: len(names), Failed: []profile.RenameFailure{}, Breakdown: map[enums.MediaKind]int{enums.MediaKindImage: len(names)}}, nil
}

func (f *fakeService) Delete(_ context.Context, caller profile.Caller, ownerID, itemID uuid.UUID) (*profile.DeleteResult, error) {
	f.calls = append(f.calls, call{op: "delete", caller: caller, ownerID: ownerID, itemID: itemID})
	if f.err != nil {
		return nil, f.err
	}
	return &profile.DeleteResult{ItemID: itemID, Deleted: true}, nil
}

func (f *fakeService) GetCounts(_ context.Context, caller profile.Caller, ownerID uuid.UUID) (*profile.CountsResult, error) {
	f.calls = append(f.calls, call{op: "counts", caller: caller, ownerID: ownerID})
	if f.err != nil {
		return nil, f.err
	}
	res := f.counts()
	return &res, nil
}

func (f *fakeService) List(_ context.Context, caller profile.Caller, ownerID uuid.UUID, category *enums.MediaCategory) ([]models.MediaItem, error) {
	f.calls = append(f.calls, call{op: "list", caller: caller, ownerID: ownerID, category: category})
	return f.items, f.err
}

func (f *fakeService) Profile(_ context.Context, caller profile.Caller, ownerID uuid.UUID) (*profile.View, error) {
	f.calls = append(f.calls, call{op: "profile", caller: caller, ownerID: ownerID})
	if f.err != nil {
		return nil, f.err
	}
	return &profile.View{OwnerID: ownerID, Items: f.items}, nil
}

func (f *fakeService) SelectAudio(_ context.Context, caller profile.Caller, ownerID uuid.UUID, itemID *uuid.UUID) (*profile.View, error) {
	f.calls = append(f.calls, call{op: "select_audio", caller: caller, ownerID: ownerID, pointer: itemID})
	if f.err != nil {
		return nil, f.err
	}
	return &profile.View{OwnerID: ownerID, SelectedAudioID: itemID}, nil
}

func (f *fakeService) SetProfilePicture(_ context.Context, caller profile.Caller, ownerID uuid.UUID, itemID *uuid.UUID) (*profile.View, error) {
	f.calls = append(f.calls, call{op: "set_profile_picture", caller: caller, ownerID: ownerID, pointer: itemID})
	if f.err != nil {
		return nil, f.err
	}
	return &profile.View{OwnerID: ownerID, ProfilePictureID: itemID}, nil
}

func (f *fakeService) Usage(_ context.Context, caller profile.Caller, ownerID, itemID uuid.UUID) ([]models.MediaReference, error) {
	f.calls = append(f.calls, call{op: "usage", caller: caller, ownerID: ownerID, itemID: itemID})
	return f.refs, f.err
}

func (f *fakeService) RecordUsage(_ context.Context, caller profile.Caller, ownerID, itemID uuid.UUID, in profile.UsageInput) (*models.MediaReference, error) {
	f.calls = append(f.calls, call{op: "record_usage", caller: caller, ownerID: ownerID, itemID: itemID, usage: in})
	if f.err != nil {
		return nil, f.err
	}
	return &models.MediaReference{ID: uuid.New(), MediaID: itemID, OwnerID: ownerID, EntityType: in.EntityType, EntityID: in.EntityID, Role: in.Role}, nil
}

func (f *fakeService) ReplaceUsage(_ context.Context, caller profile.Caller, ownerID, oldID, newID uuid.UUID) (*profile.ReplaceResult, error) {
	f.calls = append(f.calls, call{op: "replace_usage", caller: caller, ownerID: ownerID, itemID: oldID, newID: newID})
	if f.err != nil {
		return nil, f.err
	}
	return &profile.ReplaceResult{OldID: oldID, NewID: newID, Replaced: 3}, nil
}

type staticURLs struct{}

func (staticURLs) URL(key string) string { return "https://cdn.example.test/" + key }

// serve routes one request through a chi router so URL params resolve like production.
func serve(t *testing.T, method, pattern, target string, handler http.HandlerFunc, user uuid.UUID, role string, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	router.Method(method, pattern, handler)

	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	ctx := req.Context()
	if user != uuid.Nil {
		ctx = middleware.WithIdentity(ctx, middleware.Identity{UserID: user, Role: enums.UserRole(role)})
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

func jsonBody(s string) io.Reader { return strings.NewReader(s) }
