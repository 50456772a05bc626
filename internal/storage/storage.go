// Package storage defines the persistence interface for slides, learner data and cached decks.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/fuda/internal/models"
)

// ErrNotFound is returned (wrapped) when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines slide, course, profile, supplement and deck persistence operations.
type Storage interface {
	// Slide operations
	UpsertSlide(ctx context.Context, slide *models.ContentItem) error
	GetSlide(ctx context.Context, id string) (*models.ContentItem, error)
	DeleteSlide(ctx context.Context, id string) error
	ListSlides(ctx context.Context, courseID string, offset, limit int) ([]*models.ContentItem, error)

	// Course operations
	UpsertCourse(ctx context.Context, course *models.Course) error
	GetCourse(ctx context.Context, id string) (*models.Course, error)

	// Supplementary content, keyed by exact topic title
	PutSupplement(ctx context.Context, topic, content string) error
	GetSupplement(ctx context.Context, topic string) (string, error)

	// Learner profiles
	UpsertProfile(ctx context.Context, profile *models.Profile) error
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)

	// Deck cache
	GetCachedDeck(ctx context.Context, contentID string, tier models.Tier) (*models.CacheEntry, error)
	UpsertCachedDeck(ctx context.Context, contentID string, tier models.Tier, deck *models.Deck) error
	DeleteCachedDeck(ctx context.Context, contentID string, tier models.Tier) error
	DeleteCachedDecks(ctx context.Context, contentID string) error
	ListCachedDecks(ctx context.Context, contentID string) ([]*models.CacheEntry, error)
	DeleteOrphanDecks(ctx context.Context) (int64, error)

	// Stats
	CountSlides(ctx context.Context) (int64, error)
	CountCourses(ctx context.Context) (int64, error)
	CountCachedDecks(ctx context.Context) (int64, error)

	Close() error
}
