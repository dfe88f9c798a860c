package enums

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// MediaCategory buckets a profile's media. Each capped category has a per-owner limit.
type MediaCategory string

const (
	CategoryGallery   MediaCategory = "gallery"
	CategoryFeatured  MediaCategory = "featured"
	CategoryHands     MediaCategory = "hands"
	CategoryVehicle   MediaCategory = "vehicle"
	CategoryOther     MediaCategory = "other"
	CategoryAudioClip MediaCategory = "audio_clip"
	CategoryNone      MediaCategory = "none"
)

// GalleryVideoLimit caps how many videos may sit in the gallery.
const GalleryVideoLimit = 2

var validMediaCategories = []MediaCategory{
	CategoryGallery,
	CategoryFeatured,
	CategoryHands,
	CategoryVehicle,
	CategoryOther,
	CategoryAudioClip,
	CategoryNone,
}

var categoryLimits = map[MediaCategory]int{
	CategoryGallery:  6,
	CategoryFeatured: 1,
	CategoryHands:    2,
	CategoryVehicle:  2,
	CategoryOther:    12,
}

// older clients still send these spellings.
var legacyCategoryAliases = map[string]MediaCategory{
	"profile_featured_image": CategoryFeatured,
	"featured_image":         CategoryFeatured,
	"audio":                  CategoryAudioClip,
	"":                       CategoryNone,
}

func (c MediaCategory) String() string {
	return string(c)
}

func (c MediaCategory) IsValid() bool { return slices.Contains(validMediaCategories, c) }

// Limit returns the per-owner cap and whether the category is capped at all.
func (c MediaCategory) Limit() (int, bool) {
	limit, ok := categoryLimits[c]
	return limit, ok
}

// MediaCategories lists every category in canonical order.
func MediaCategories() []MediaCategory {
	return slices.Clone(validMediaCategories)
}

// CategoryLimits returns a copy of the capped categories and their limits.
func CategoryLimits() map[MediaCategory]int {
	return maps.Clone(categoryLimits)
}

// ParseMediaCategory converts raw input, including legacy aliases, into a MediaCategory.
func ParseMediaCategory(value string) (MediaCategory, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if alias, ok := legacyCategoryAliases[normalized]; ok {
		return alias, nil
	}
	category, err := parseOne("media category", validMediaCategories, normalized)
	if err != nil {
		return "", fmt.Errorf("invalid media category %q", value)
	}
	return category, nil
}
