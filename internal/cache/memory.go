package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/fuda/internal/models"
	"github.com/hyperjump/fuda/internal/storage"
)

// Memory is a bounded LRU deck cache held in process memory.
type Memory struct {
	capacity int
	items    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type memoryEntry struct {
	key   string
	entry models.CacheEntry
}

// NewMemory creates an LRU holding at most capacity decks.
func NewMemory(capacity int) *Memory {
	if capacity < 1 {
		capacity = 1
	}
	return &Memory{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// GetCachedDeck returns a copy of the cached entry.
func (m *Memory) GetCachedDeck(_ context.Context, contentID string, tier models.Tier) (*models.CacheEntry, error) {
	key := Key(contentID, tier)
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[key]
	if !ok {
		return nil, fmt.Errorf("deck %s: %w", key, storage.ErrNotFound)
	}
	m.lru.MoveToFront(elem)
	entry := elem.Value.(*memoryEntry).entry
	entry.Deck = cloneDeck(entry.Deck)
	return &entry, nil
}

// UpsertCachedDeck stores deck, evicting the least recently used entry at capacity.
func (m *Memory) UpsertCachedDeck(_ context.Context, contentID string, tier models.Tier, deck *models.Deck) error {
	key := Key(contentID, tier)
	entry := models.CacheEntry{
		ContentID: contentID,
		Tier:      tier,
		Deck:      cloneDeck(deck),
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.items[key]; ok {
		m.lru.MoveToFront(elem)
		elem.Value.(*memoryEntry).entry = entry
		return nil
	}

	m.items[key] = m.lru.PushFront(&memoryEntry{key: key, entry: entry})
	if m.lru.Len() > m.capacity {
		if oldest := m.lru.Back(); oldest != nil {
			m.lru.Remove(oldest)
			delete(m.items, oldest.Value.(*memoryEntry).key)
		}
	}
	return nil
}

// DeleteCachedDeck removes one entry.
func (m *Memory) DeleteCachedDeck(_ context.Context, contentID string, tier models.Tier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remove(Key(contentID, tier))
	return nil
}

// DeleteCachedDecks removes the entries of every tier for contentID.
func (m *Memory) DeleteCachedDecks(_ context.Context, contentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range models.Tiers {
		m.remove(Key(contentID, t))
	}
	return nil
}

// Len returns the number of cached decks.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}

func (m *Memory) remove(key string) {
	if elem, ok := m.items[key]; ok {
		m.lru.Remove(elem)
		delete(m.items, key)
	}
}

// cloneDeck copies d so callers never share card slices with the cache.
func cloneDeck(d *models.Deck) *models.Deck {
	c := *d
	c.Flashcards = append([]models.Flashcard(nil), d.Flashcards...)
	c.Cached = false
	return &c
}
