package profile

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/profilemedia-backend/pkg/db/models"
	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/profilemedia-backend/pkg/errors"
)

// Profile returns the owner's items with the aggregate index as of one consistent read. It writes
// nothing; an owner without a profile row gets an empty index.
func (s *service) Profile(ctx context.Context, caller Caller, ownerID uuid.UUID) (view *View, err error) {
	err = s.read(ctx, caller, ownerID, func(tx *gorm.DB) error {
		view, err = s.view(tx, ownerID)
		return err
	})
	return view, err
}

// SelectAudio points the profile at one of the owner's audio items. A nil id clears it.
func (s *service) SelectAudio(ctx context.Context, caller Caller, ownerID uuid.UUID, itemID *uuid.UUID) (view *View, err error) {
	done := s.metrics.Track("select_audio")
	defer func() { done(err) }()

	err = s.setPointer(ctx, caller, ownerID, itemID, enums.MediaKindAudio, s.store.SetSelectedAudio)
	if err != nil {
		return nil, err
	}
	s.logMutation(ctx, "select_audio", ownerID, pointerFields(itemID))
	return s.Profile(ctx, caller, ownerID)
}

// SetProfilePicture points the profile at one of the owner's images. A nil id clears it.
func (s *service) SetProfilePicture(ctx context.Context, caller Caller, ownerID uuid.UUID, itemID *uuid.UUID) (view *View, err error) {
	done := s.metrics.Track("set_profile_picture")
	defer func() { done(err) }()

	err = s.setPointer(ctx, caller, ownerID, itemID, enums.MediaKindImage, s.store.SetProfilePicture)
	if err != nil {
		return nil, err
	}
	s.logMutation(ctx, "set_profile_picture", ownerID, pointerFields(itemID))
	return s.Profile(ctx, caller, ownerID)
}

type pointerSetter func(tx *gorm.DB, ownerID uuid.UUID, id *uuid.UUID) (*models.Profile, error)

func (s *service) setPointer(ctx context.Context, caller Caller, ownerID uuid.UUID, itemID *uuid.UUID, kind enums.MediaKind, set pointerSetter) error {
	return s.withOwnerLock(ctx, caller, ownerID, func(tx *gorm.DB) error {
		if itemID != nil {
			item, err := s.ownedItem(tx, ownerID, *itemID)
			if err != nil {
				return err
			}
			if item.Kind != kind {
				return pkgerrors.Newf(pkgerrors.CodeValidation, "media item must be %s", kind).
					WithDetails(map[string]any{"media_id": item.ID, "kind": item.Kind})
			}
		}
		_, err := set(tx, ownerID, itemID)
		return err
	})
}

func (s *service) view(tx *gorm.DB, ownerID uuid.UUID) (*View, error) {
	items, err := s.store.List(tx, ownerID, nil)
	if err != nil {
		return nil, err
	}
	profile, err := s.store.Snapshot(tx, ownerID)
	if err != nil {
		return nil, err
	}
	return &View{
		OwnerID:          ownerID,
		Items:            items,
		CategoryIndex:    map[string]string(profile.CategoryIndex),
		OrderIndex:       []uuid.UUID(profile.OrderIndex),
		SelectedAudioID:  profile.SelectedAudioID,
		ProfilePictureID: profile.ProfilePictureID,
		Revision:         profile.Revision,
	}, nil
}

func pointerFields(itemID *uuid.UUID) map[string]any {
	if itemID == nil {
		return map[string]any{"cleared": true}
	}
	return map[string]any{"media_id": itemID.String()}
}

func sortedIDs(names map[uuid.UUID]string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(names))
	for id := range names {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
