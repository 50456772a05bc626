// Package cache keeps generated decks keyed by (content id, learning speed).
//
// Every Store follows last-write-wins semantics and reports a miss as a
// wrapped storage.ErrNotFound, so callers can treat the sqlite, redis and
// in-memory backends the same way.
package cache

import (
	"context"
	"fmt"

	"github.com/hyperjump/fuda/internal/models"
)

// Store is the deck cache contract. *storage.SQLiteStorage satisfies it.
type Store interface {
	GetCachedDeck(ctx context.Context, contentID string, tier models.Tier) (*models.CacheEntry, error)
	UpsertCachedDeck(ctx context.Context, contentID string, tier models.Tier, deck *models.Deck) error
	DeleteCachedDeck(ctx context.Context, contentID string, tier models.Tier) error
	DeleteCachedDecks(ctx context.Context, contentID string) error
}

// Key returns the cache key of a deck, without any backend prefix.
func Key(contentID string, tier models.Tier) string {
	return fmt.Sprintf("%s:%s", contentID, tier)
}
