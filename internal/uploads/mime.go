package uploads

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
)

var allowedMimeTypes = map[enums.MediaKind][]string{
	enums.MediaKindImage: {"image/png", "image/jpeg", "image/webp", "image/gif"},
	enums.MediaKindAudio: {"audio/mpeg", "audio/wav", "audio/x-wav", "audio/ogg", "audio/mp4", "audio/x-m4a"},
	enums.MediaKindVideo: {
		"video/mp4", "video/mpeg", "video/quicktime", "video/x-msvideo",
		"video/x-ms-wmv", "video/x-ms-asf", "video/webm",
	},
}

var allowedDescription = buildAllowedDescription()

// classify maps a sniffed type onto a media kind, rejecting anything outside the allow list.
func classify(mtype *mimetype.MIME) (enums.MediaKind, bool) {
	for kind, allowed := range allowedMimeTypes {
		for _, candidate := range allowed {
			if mtype.Is(candidate) {
				return kind, true
			}
		}
	}
	return "", false
}

func buildAllowedDescription() string {
	kinds := make([]string, 0, len(allowedMimeTypes))
	for kind := range allowedMimeTypes {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	return fmt.Sprintf("%s or %s files", strings.Join(kinds[:len(kinds)-1], ", "), kinds[len(kinds)-1])
}
