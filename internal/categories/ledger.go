package categories

import (
	"slices"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/profilemedia-backend/pkg/db/models"
	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/profilemedia-backend/pkg/errors"
)

// Counts maps every known category to the owner's current item count.
type Counts map[enums.MediaCategory]int

// Ledger derives per-category counts straight from media_items on every call and enforces
// the category limits. It holds no state between calls.
type Ledger struct {
	repo *Repository
}

func NewLedger(repo *Repository) *Ledger {
	if repo == nil {
		repo = NewRepository()
	}
	return &Ledger{repo: repo}
}

// Counts returns a zero-filled count for every category. Unknown stored values fold into none.
func (l *Ledger) Counts(tx *gorm.DB, ownerID uuid.UUID) (Counts, error) {
	raw, err := l.repo.CountByCategory(tx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count media by category")
	}
	counts := make(Counts, len(enums.MediaCategories()))
	for _, category := range enums.MediaCategories() {
		counts[category] = 0
	}
	for category, n := range raw {
		if !category.IsValid() {
			category = enums.CategoryNone
		}
		counts[category] += n
	}
	return counts, nil
}

// Limits returns the capped categories and their limits.
func (l *Ledger) Limits() map[enums.MediaCategory]int {
	return enums.CategoryLimits()
}

// HasCapacity reports whether one more item fits in category. Uncapped categories always fit.
func (l *Ledger) HasCapacity(tx *gorm.DB, ownerID uuid.UUID, category enums.MediaCategory) (bool, error) {
	limit, capped := category.Limit()
	if !capped {
		return true, nil
	}
	n, err := l.repo.CountInCategory(tx, ownerID, category, nil)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count media in category")
	}
	return n < limit, nil
}

// Check validates moving item into target: kind rules first, then the category limit, then the
// gallery video sub-limit. Re-applying the item's current category always passes.
func (l *Ledger) Check(tx *gorm.DB, item *models.MediaItem, target enums.MediaCategory) error {
	if err := l.CheckKind(item, target); err != nil {
		return err
	}
	if item.Category == target {
		return nil
	}

	ok, err := l.HasCapacity(tx, item.OwnerID, target)
	if err != nil {
		return err
	}
	if !ok {
		limit, _ := target.Limit()
		return capacityError(target, limit, item.Kind, false)
	}

	if target == enums.CategoryGallery && item.Kind == enums.MediaKindVideo {
		kind := enums.MediaKindVideo
		videos, err := l.repo.CountInCategory(tx, item.OwnerID, target, &kind)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count gallery videos")
		}
		if videos >= enums.GalleryVideoLimit {
			return capacityError(target, enums.GalleryVideoLimit, item.Kind, true)
		}
	}
	return nil
}

// CheckKind applies only the category and kind rules, leaving capacity to Check or Verify.
func (l *Ledger) CheckKind(item *models.MediaItem, target enums.MediaCategory) error {
	if !target.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown category %q", target)
	}
	if item.Category == target {
		return nil
	}
	return checkKind(item.Kind, target)
}

// Verify checks the owner's current state against the limits of the given categories, gallery
// video sub-limit included. Batches call it once after writing every move, so the result
// depends only on where items end up and not on the order they were moved in.
func (l *Ledger) Verify(tx *gorm.DB, ownerID uuid.UUID, touched []enums.MediaCategory) error {
	counts, err := l.Counts(tx, ownerID)
	if err != nil {
		return err
	}
	for _, category := range enums.MediaCategories() {
		if !slices.Contains(touched, category) {
			continue
		}
		if limit, capped := category.Limit(); capped && counts[category] > limit {
			return capacityError(category, limit, "", false)
		}
	}
	if !slices.Contains(touched, enums.CategoryGallery) {
		return nil
	}
	kind := enums.MediaKindVideo
	videos, err := l.repo.CountInCategory(tx, ownerID, enums.CategoryGallery, &kind)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count gallery videos")
	}
	if videos > enums.GalleryVideoLimit {
		return capacityError(enums.CategoryGallery, enums.GalleryVideoLimit, kind, true)
	}
	return nil
}

func checkKind(kind enums.MediaKind, target enums.MediaCategory) error {
	switch {
	case target == enums.CategoryNone:
		return nil
	case kind == enums.MediaKindAudio && target != enums.CategoryAudioClip:
		return pkgerrors.Newf(pkgerrors.CodeValidation, "audio can only be filed under %s", enums.CategoryAudioClip)
	case kind != enums.MediaKindAudio && target == enums.CategoryAudioClip:
		return pkgerrors.Newf(pkgerrors.CodeValidation, "%s only accepts audio", enums.CategoryAudioClip)
	}
	return nil
}

func capacityError(category enums.MediaCategory, limit int, kind enums.MediaKind, perKind bool) error {
	details := map[string]any{
		"category": category,
		"limit":    limit,
	}
	msg := "category " + string(category) + " is full"
	if perKind {
		details["kind"] = kind
		msg = "category " + string(category) + " already holds the maximum number of " + string(kind) + " items"
	}
	return pkgerrors.New(pkgerrors.CodeCapacityExceeded, msg).WithDetails(details)
}
