// Package fileid derives stable identifiers for slides ingested from files.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const prefix = "file-"

// SlideID returns a stable slide id for the given absolute path. The same
// path always yields the same id, so re-ingesting a file replaces its slide.
func SlideID(absolutePath string) string {
	hash := sha256.Sum256([]byte(filepath.Clean(absolutePath)))
	return prefix + hex.EncodeToString(hash[:12])
}

// IsFileSlide reports whether id was produced by SlideID.
func IsFileSlide(id string) bool {
	return strings.HasPrefix(id, prefix)
}

// ContentHash fingerprints slide text; decks are invalidated when it changes.
func ContentHash(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
