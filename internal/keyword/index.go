// Package keyword indexes slides for full-text search and suggests spelling
// corrections for queries that find nothing.
package keyword

import (
	"context"

	"github.com/hyperjump/fuda/internal/models"
)

// SlideIndex defines slide search operations.
type SlideIndex interface {
	Index(ctx context.Context, slide *models.ContentItem) error
	Search(ctx context.Context, q *models.SlideQuery) ([]*Hit, error)
	Delete(ctx context.Context, id string) error
	DocCount() (uint64, error)
	Close() error
}

// Hit is a single search result.
type Hit struct {
	ID    string
	Score float64
}

// TermSource exposes the indexed vocabulary with document frequencies.
type TermSource interface {
	Terms() (map[string]int, error)
}
