package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/lu4p/cat"
)

// extractCat reads OpenDocument text and RTF handouts.
func extractCat(path string) (*Document, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}
	return &Document{Text: strings.TrimSpace(text)}, nil
}

// extractCatBytes spools content to a temporary file for extractCat.
func extractCatBytes(content []byte, ext string) (*Document, error) {
	f, err := os.CreateTemp("", "fuda-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	return extractCat(f.Name())
}
