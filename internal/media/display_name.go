package media

import (
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	pkgerrors "github.com/angelmondragon/profilemedia-backend/pkg/errors"
)

// MaxDisplayNameLength is measured in code points.
const MaxDisplayNameLength = 255

const untitled = "Untitled"

// NormalizeDisplayName applies NFC, drops control characters and trims surrounding space.
func NormalizeDisplayName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, norm.NFC.String(name))
	return strings.TrimSpace(cleaned)
}

// ValidateDisplayName rejects empty names and names longer than MaxDisplayNameLength.
func ValidateDisplayName(name string) error {
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "display name is required")
	}
	if n := utf8.RuneCountInString(name); n > MaxDisplayNameLength {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "display name exceeds %d characters", MaxDisplayNameLength).
			WithDetails(map[string]any{"max_length": MaxDisplayNameLength, "length": n})
	}
	return nil
}

// DeriveDisplayName turns an uploaded filename into a default display name by dropping the
// directory and the last extension. Over-long results are truncated rather than rejected.
func DeriveDisplayName(fileName string) string {
	base := path.Base(strings.ReplaceAll(fileName, `\`, "/"))
	if i := strings.LastIndex(base, "."); i > 0 && i < len(base)-1 {
		base = base[:i]
	}
	name := NormalizeDisplayName(base)
	if name == "" || name == "." || name == "/" {
		return untitled
	}
	return truncateRunes(name, MaxDisplayNameLength)
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:max]))
}
