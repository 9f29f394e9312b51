package itemgate

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxItemIDLength bounds item identifiers accepted from clients.
const MaxItemIDLength = 128

// UploadPrefix is the object name prefix for uploaded images.
const UploadPrefix = "uploads/"

// IsValidItemID validates an item identifier taken from a request path.
// It checks that the id:
//   - is not empty and at most MaxItemIDLength bytes
//   - is valid UTF-8
//   - does not contain "/" or "\"
//   - is not "." or ".."
//   - does not contain null bytes, control characters, DEL or whitespace
func IsValidItemID(id string) bool {
	if id == "" || len(id) > MaxItemIDLength {
		return false
	}

	if id == "." || id == ".." {
		return false
	}

	if !utf8.ValidString(id) {
		return false
	}

	for _, r := range id {
		if r == '/' || r == '\\' || r < 0x20 || r == 0x7f || unicode.IsSpace(r) {
			return false
		}
	}

	return true
}

// NormalizeEmail trims and lowercases an email so that lookups and
// uniqueness ignore case.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ImageObjectName builds a fresh object name for an upload. Names are
// time-ordered (UUID v1) and keep the original extension when it is made of
// letters and digits only.
func ImageObjectName(originalName string) (string, error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return "", fmt.Errorf("image object name: %w", err)
	}
	return UploadPrefix + id.String() + safeExtension(originalName), nil
}

func safeExtension(name string) string {
	ext := filepath.Ext(name)
	if len(ext) < 2 || len(ext) > 16 {
		return ""
	}
	for _, r := range ext[1:] {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return ""
		}
	}
	return ext
}
