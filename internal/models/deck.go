package models

import (
	"fmt"
	"time"
)

// GeneratedBy records which strategy produced a deck.
type GeneratedBy string

const (
	GeneratedByModel    GeneratedBy = "model"
	GeneratedBySample   GeneratedBy = "sample"
	GeneratedByFallback GeneratedBy = "fallback"
)

// Flashcard is a single question/answer pair.
type Flashcard struct {
	ID         string `json:"id"`
	Front      string `json:"front"`
	Back       string `json:"back"`
	Difficulty string `json:"difficulty,omitempty"`
}

// CardID returns the stable ordinal id for the card at zero-based index i.
func CardID(i int) string {
	return fmt.Sprintf("card-%d", i+1)
}

// Deck is the ordered set of flashcards produced for one (slide, tier) pair.
type Deck struct {
	Flashcards    []Flashcard `json:"flashcards"`
	DetailLevel   string      `json:"detail_level"`
	LearningSpeed Tier        `json:"learning_speed"`
	GeneratedBy   GeneratedBy `json:"generated_by"`
	CreatedAt     time.Time   `json:"created_at"`
	// Cached is set on responses served from the result cache. It is never persisted.
	Cached bool `json:"cached"`
}

// NewDeck returns a deck labelled for tier t.
func NewDeck(t Tier, by GeneratedBy, cards []Flashcard) *Deck {
	return &Deck{
		Flashcards:    cards,
		DetailLevel:   t.DetailLevel(),
		LearningSpeed: t,
		GeneratedBy:   by,
		CreatedAt:     time.Now().UTC(),
	}
}

// Len returns the number of cards in the deck.
func (d *Deck) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Flashcards)
}

// Renumber assigns ordinal ids to every card in order.
func (d *Deck) Renumber() {
	for i := range d.Flashcards {
		d.Flashcards[i].ID = CardID(i)
	}
}

// CacheEntry is a persisted deck keyed by (ContentID, Tier).
type CacheEntry struct {
	ContentID string    `json:"content_id"`
	Tier      Tier      `json:"learning_speed"`
	Deck      *Deck     `json:"deck"`
	CreatedAt time.Time `json:"created_at"`
}
