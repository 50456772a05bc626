package cache

import (
	"context"

	"github.com/hyperjump/fuda/internal/models"
)

// Tiered puts an in-memory LRU in front of a durable Store.
type Tiered struct {
	front *Memory
	back  Store
}

// NewTiered returns back unchanged when memoryItems is zero.
func NewTiered(back Store, memoryItems int) Store {
	if memoryItems <= 0 {
		return back
	}
	return &Tiered{front: NewMemory(memoryItems), back: back}
}

func (t *Tiered) GetCachedDeck(ctx context.Context, contentID string, tier models.Tier) (*models.CacheEntry, error) {
	if entry, err := t.front.GetCachedDeck(ctx, contentID, tier); err == nil {
		return entry, nil
	}
	entry, err := t.back.GetCachedDeck(ctx, contentID, tier)
	if err != nil {
		return nil, err
	}
	_ = t.front.UpsertCachedDeck(ctx, contentID, tier, entry.Deck)
	return entry, nil
}

// UpsertCachedDeck writes through; the front is only updated when the backend accepts the deck.
func (t *Tiered) UpsertCachedDeck(ctx context.Context, contentID string, tier models.Tier, deck *models.Deck) error {
	if err := t.back.UpsertCachedDeck(ctx, contentID, tier, deck); err != nil {
		_ = t.front.DeleteCachedDeck(ctx, contentID, tier)
		return err
	}
	return t.front.UpsertCachedDeck(ctx, contentID, tier, deck)
}

func (t *Tiered) DeleteCachedDeck(ctx context.Context, contentID string, tier models.Tier) error {
	_ = t.front.DeleteCachedDeck(ctx, contentID, tier)
	return t.back.DeleteCachedDeck(ctx, contentID, tier)
}

func (t *Tiered) DeleteCachedDecks(ctx context.Context, contentID string) error {
	_ = t.front.DeleteCachedDecks(ctx, contentID)
	return t.back.DeleteCachedDecks(ctx, contentID)
}
