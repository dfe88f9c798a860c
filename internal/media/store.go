package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/profilemedia-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/profilemedia-backend/pkg/db/types"
	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/profilemedia-backend/pkg/errors"
)

// CapacityChecker decides whether items may move into a category. Check covers a single move;
// batches use CheckKind per move and Verify once on the resulting state.
type CapacityChecker interface {
	Check(tx *gorm.DB, item *models.MediaItem, target enums.MediaCategory) error
	CheckKind(item *models.MediaItem, target enums.MediaCategory) error
	Verify(tx *gorm.DB, ownerID uuid.UUID, touched []enums.MediaCategory) error
}

// NewItem carries what is known about an asset once its blob has been stored.
type NewItem struct {
	OwnerID     uuid.UUID
	Kind        enums.MediaKind
	DisplayName string
	FileName    string
	MimeType    string
	SizeBytes   int64
	StorageKey  string
	Width       *int
	Height      *int
}

// CategoryChange moves one item as part of a batch.
type CategoryChange struct {
	ID       uuid.UUID
	Category enums.MediaCategory
}

// Position assigns a sort position to one item.
type Position struct {
	ID           uuid.UUID
	SortPosition int
}

// Store owns media records and keeps the aggregate index in step with them. Every mutating
// method expects to run inside the caller's transaction and rebuilds the index before returning.
type Store struct {
	items    *Repository
	index    *IndexRepository
	capacity CapacityChecker
}

func NewStore(items *Repository, index *IndexRepository, capacity CapacityChecker) (*Store, error) {
	if items == nil {
		return nil, fmt.Errorf("media repository required")
	}
	if index == nil {
		return nil, fmt.Errorf("index repository required")
	}
	if capacity == nil {
		return nil, fmt.Errorf("capacity checker required")
	}
	return &Store{items: items, index: index, capacity: capacity}, nil
}

// Create inserts a new uncategorized item at the end of the owner's order.
func (s *Store) Create(tx *gorm.DB, in NewItem) (*models.MediaItem, error) {
	if in.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	if !in.Kind.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown media kind %q", in.Kind)
	}
	if strings.TrimSpace(in.StorageKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storage key is required")
	}

	name := truncateRunes(NormalizeDisplayName(in.DisplayName), MaxDisplayNameLength)
	if name == "" {
		name = DeriveDisplayName(in.FileName)
	}

	last, err := s.items.MaxSortPosition(tx, in.OwnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read max sort position")
	}

	item := &models.MediaItem{
		OwnerID:      in.OwnerID,
		Kind:         in.Kind,
		Category:     enums.CategoryNone,
		SortPosition: last + 1,
		DisplayName:  name,
		FileName:     in.FileName,
		MimeType:     in.MimeType,
		SizeBytes:    in.SizeBytes,
		StorageKey:   in.StorageKey,
		Width:        in.Width,
		Height:       in.Height,
	}
	if err := s.items.Insert(tx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert media item")
	}
	if _, err := s.RefreshIndex(tx, in.OwnerID); err != nil {
		return nil, err
	}
	return item, nil
}

// Get reads a single item outside of any transaction.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*models.MediaItem, error) {
	item, err := s.items.FindByID(ctx, id)
	return item, mapLookupErr(err)
}

func (s *Store) GetTx(tx *gorm.DB, id uuid.UUID) (*models.MediaItem, error) {
	item, err := s.items.FindByIDTx(tx, id)
	return item, mapLookupErr(err)
}

// List returns the owner's items in sort order.
func (s *Store) List(tx *gorm.DB, ownerID uuid.UUID, category *enums.MediaCategory) ([]models.MediaItem, error) {
	items, err := s.items.ListByOwner(tx, ownerID, category)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list media items")
	}
	return items, nil
}

// UpdateCategory moves an item into category. Moving an item to the category it already has
// changes nothing and is not charged against capacity. The bool reports whether a write happened.
func (s *Store) UpdateCategory(tx *gorm.DB, id uuid.UUID, category enums.MediaCategory) (*models.MediaItem, bool, error) {
	if !category.IsValid() {
		return nil, false, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown category %q", category)
	}
	item, err := s.GetTx(tx, id)
	if err != nil {
		return nil, false, err
	}
	if item.Category == category {
		return item, false, nil
	}
	if err := s.capacity.Check(tx, item, category); err != nil {
		return nil, false, err
	}
	if err := s.items.UpdateColumns(tx, id, map[string]any{"category": category}); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update category")
	}
	item.Category = category
	if _, err := s.RefreshIndex(tx, item.OwnerID); err != nil {
		return nil, false, err
	}
	return item, true, nil
}

// UpdateCategories applies a batch of moves for one owner. Kind rules are checked per move;
// capacity is checked once against the state after every move, so swaps between full
// categories pass whatever order they arrive in. On error the caller must roll back tx, since
// earlier moves of the batch are already written. It returns how many items changed category.
func (s *Store) UpdateCategories(tx *gorm.DB, ownerID uuid.UUID, changes []CategoryChange) (int, error) {
	var touched []enums.MediaCategory
	changed := 0
	for _, change := range changes {
		item, err := s.GetTx(tx, change.ID)
		if err != nil {
			return 0, err
		}
		if item.OwnerID != ownerID {
			return 0, pkgerrors.New(pkgerrors.CodeForbidden, "media item belongs to another user").
				WithDetails(map[string]any{"media_id": item.ID})
		}
		if err := s.capacity.CheckKind(item, change.Category); err != nil {
			return 0, err
		}
		if item.Category == change.Category {
			continue
		}
		if err := s.items.UpdateColumns(tx, item.ID, map[string]any{"category": change.Category}); err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update category")
		}
		touched = append(touched, change.Category)
		changed++
	}
	if changed == 0 {
		return 0, nil
	}
	if err := s.capacity.Verify(tx, ownerID, touched); err != nil {
		return 0, err
	}
	if _, err := s.RefreshIndex(tx, ownerID); err != nil {
		return 0, err
	}
	return changed, nil
}

func (s *Store) UpdateSortPosition(tx *gorm.DB, id uuid.UUID, position int) (*models.MediaItem, error) {
	if position < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sort position must be non-negative")
	}
	item, err := s.GetTx(tx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ApplyPositions(tx, item.OwnerID, []Position{{ID: id, SortPosition: position}}); err != nil {
		return nil, err
	}
	item.SortPosition = position
	return item, nil
}

// ApplyPositions writes many positions for one owner and rebuilds the index once.
func (s *Store) ApplyPositions(tx *gorm.DB, ownerID uuid.UUID, positions []Position) error {
	for _, p := range positions {
		if p.SortPosition < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "sort position must be non-negative")
		}
		n, err := s.items.SetSortPosition(tx, ownerID, p.ID, p.SortPosition)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update sort position")
		}
		if n == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "media item not found").
				WithDetails(map[string]any{"media_id": p.ID})
		}
	}
	_, err := s.RefreshIndex(tx, ownerID)
	return err
}

// Rename sets a new display name. Names are normalized first; empty or over-long names are rejected.
func (s *Store) Rename(tx *gorm.DB, id uuid.UUID, displayName string) (*models.MediaItem, error) {
	name := NormalizeDisplayName(displayName)
	if err := ValidateDisplayName(name); err != nil {
		return nil, err
	}
	item, err := s.GetTx(tx, id)
	if err != nil {
		return nil, err
	}
	if item.DisplayName == name {
		return item, nil
	}
	if err := s.items.UpdateColumns(tx, id, map[string]any{"display_name": name}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rename media item")
	}
	item.DisplayName = name
	return item, nil
}

// Delete removes the item and its index entries, returning the removed row. A missing id is
// reported as NotFound.
func (s *Store) Delete(tx *gorm.DB, id uuid.UUID) (*models.MediaItem, error) {
	item, err := s.GetTx(tx, id)
	if err != nil {
		return nil, err
	}
	n, err := s.items.DeleteByID(tx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete media item")
	}
	if n == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "media item not found")
	}
	if _, err := s.RefreshIndex(tx, item.OwnerID); err != nil {
		return nil, err
	}
	return item, nil
}

// LockOwner serializes writers for ownerID until the transaction ends.
func (s *Store) LockOwner(tx *gorm.DB, ownerID uuid.UUID) (*models.Profile, error) {
	profile, err := s.index.Lock(tx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock profile")
	}
	return profile, nil
}

// Index reads the stored aggregate index without locking.
func (s *Store) Index(ctx context.Context, ownerID uuid.UUID) (*models.Profile, error) {
	profile, err := s.index.Find(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read profile index")
	}
	return profile, nil
}

// Snapshot reads the stored index inside tx without locking or creating the profile row.
// Owners that never wrote get an empty index.
func (s *Store) Snapshot(tx *gorm.DB, ownerID uuid.UUID) (*models.Profile, error) {
	profile, err := s.index.FindTx(tx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read profile index")
	}
	return profile, nil
}

// SetSelectedAudio points the profile at an audio item, or clears it when id is nil.
func (s *Store) SetSelectedAudio(tx *gorm.DB, ownerID uuid.UUID, id *uuid.UUID) (*models.Profile, error) {
	return s.updatePointers(tx, ownerID, func(p *models.Profile) { p.SelectedAudioID = id })
}

// SetProfilePicture points the profile at an image item, or clears it when id is nil.
func (s *Store) SetProfilePicture(tx *gorm.DB, ownerID uuid.UUID, id *uuid.UUID) (*models.Profile, error) {
	return s.updatePointers(tx, ownerID, func(p *models.Profile) { p.ProfilePictureID = id })
}

func (s *Store) updatePointers(tx *gorm.DB, ownerID uuid.UUID, mutate func(*models.Profile)) (*models.Profile, error) {
	profile, err := s.LockOwner(tx, ownerID)
	if err != nil {
		return nil, err
	}
	mutate(profile)
	return s.rebuild(tx, profile)
}

// RefreshIndex recomputes the owner's category map and order list from media_items.
// Pointers to items that no longer exist are cleared.
func (s *Store) RefreshIndex(tx *gorm.DB, ownerID uuid.UUID) (*models.Profile, error) {
	profile, err := s.LockOwner(tx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.rebuild(tx, profile)
}

// Reconcile rebuilds the owner's index only when it no longer matches media_items, and
// reports whether it did.
func (s *Store) Reconcile(tx *gorm.DB, ownerID uuid.UUID) (bool, error) {
	profile, err := s.LockOwner(tx, ownerID)
	if err != nil {
		return false, err
	}
	items, err := s.items.ListByOwner(tx, ownerID, nil)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list media for index")
	}
	if indexMatches(profile, items) {
		return false, nil
	}
	if _, err := s.rebuild(tx, profile); err != nil {
		return false, err
	}
	return true, nil
}

func indexMatches(profile *models.Profile, items []models.MediaItem) bool {
	if len(profile.CategoryIndex) != len(items) || len(profile.OrderIndex) != len(items) {
		return false
	}
	present := make(map[uuid.UUID]struct{}, len(items))
	for i, item := range items {
		if profile.OrderIndex[i] != item.ID || profile.CategoryIndex[item.ID.String()] != string(item.Category) {
			return false
		}
		present[item.ID] = struct{}{}
	}
	return keepIfPresent(profile.SelectedAudioID, present) == profile.SelectedAudioID &&
		keepIfPresent(profile.ProfilePictureID, present) == profile.ProfilePictureID
}

func (s *Store) rebuild(tx *gorm.DB, profile *models.Profile) (*models.Profile, error) {
	items, err := s.items.ListByOwner(tx, profile.OwnerID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list media for index")
	}

	categories := make(dbtypes.CategoryIndex, len(items))
	order := make(dbtypes.UUIDList, 0, len(items))
	present := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		categories[item.ID.String()] = string(item.Category)
		order = append(order, item.ID)
		present[item.ID] = struct{}{}
	}

	profile.CategoryIndex = categories
	profile.OrderIndex = order
	profile.SelectedAudioID = keepIfPresent(profile.SelectedAudioID, present)
	profile.ProfilePictureID = keepIfPresent(profile.ProfilePictureID, present)
	profile.Revision++

	if err := s.index.Update(tx, profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write profile index")
	}
	return profile, nil
}

func keepIfPresent(id *uuid.UUID, present map[uuid.UUID]struct{}) *uuid.UUID {
	if id == nil {
		return nil
	}
	if _, ok := present[*id]; !ok {
		return nil
	}
	return id
}

func mapLookupErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "media item not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load media item")
}
