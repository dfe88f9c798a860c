package enums

import (
	"slices"
	"strings"
)

// MediaKind is the broad type of an uploaded profile asset. Immutable after upload.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindAudio MediaKind = "audio"
	MediaKindVideo MediaKind = "video"
)

var validMediaKinds = []MediaKind{
	MediaKindImage,
	MediaKindAudio,
	MediaKindVideo,
}

// String returns the literal string for the kind.
func (m MediaKind) String() string {
	return string(m)
}

func (m MediaKind) IsValid() bool { return slices.Contains(validMediaKinds, m) }

// MediaKindForMIME maps a detected MIME type onto a kind by its top-level type.
func MediaKindForMIME(mime string) (MediaKind, bool) {
	top, _, _ := strings.Cut(strings.ToLower(mime), "/")
	kind := MediaKind(top)
	return kind, kind.IsValid()
}
