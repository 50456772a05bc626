// Package flashcards is the entry point of deck generation: it looks up the
// result cache, runs the normalize → enrich → generate pipeline on a miss and
// stores the winning deck.
package flashcards

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/fuda/internal/cache"
	"github.com/hyperjump/fuda/internal/config"
	"github.com/hyperjump/fuda/internal/generate"
	"github.com/hyperjump/fuda/internal/models"
	"github.com/hyperjump/fuda/internal/normalize"
	"github.com/hyperjump/fuda/internal/storage"
	"github.com/hyperjump/fuda/internal/sufficiency"
)

// ErrInput is the only error a caller is expected to show to a user. It wraps
// storage.ErrNotFound, ErrEmptyContent or models.ErrInvalidTier.
var ErrInput = errors.New("invalid input")

// ErrEmptyContent means the slide has neither a title nor any text.
var ErrEmptyContent = errors.New("slide has no title and no content")

// ContentSource reads slides and their courses.
type ContentSource interface {
	GetSlide(ctx context.Context, id string) (*models.ContentItem, error)
	GetCourse(ctx context.Context, id string) (*models.Course, error)
}

// ProfileSource reads learner classifications.
type ProfileSource interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
}

// Service generates and caches decks.
type Service struct {
	content  ContentSource
	profiles ProfileSource
	cache    cache.Store
	gate     *sufficiency.Gate
	selector *generate.Selector
	sizes    config.DeckSizes
	logger   *zap.Logger
	group    singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithProfiles enables GenerateForUser to resolve tiers from stored profiles.
func WithProfiles(p ProfileSource) Option {
	return func(s *Service) { s.profiles = p }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService wires a service from its pipeline parts.
func NewService(content ContentSource, store cache.Store, gate *sufficiency.Gate, selector *generate.Selector, sizes config.DeckSizes, opts ...Option) *Service {
	s := &Service{
		content:  content,
		cache:    store,
		gate:     gate,
		selector: selector,
		sizes:    sizes,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateDeck returns the deck for (contentID, tier), generating and caching
// it on a miss. An empty tier means models.DefaultTier. Concurrent calls for
// the same key share one generation, which is not cancelled when one of the
// callers gives up.
func (s *Service) GenerateDeck(ctx context.Context, contentID string, tier models.Tier) (*models.Deck, error) {
	contentID = strings.TrimSpace(contentID)
	if contentID == "" {
		return nil, fmt.Errorf("%w: content id is required", ErrInput)
	}
	if tier == "" {
		tier = models.DefaultTier
	}
	if !tier.Valid() {
		return nil, fmt.Errorf("%w: %w %q", ErrInput, models.ErrInvalidTier, tier)
	}

	if deck, ok := s.cached(ctx, contentID, tier); ok {
		return deck, nil
	}

	// The shared generation outlives any single caller; each caller only
	// stops waiting when its own ctx is done.
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(cache.Key(contentID, tier), func() (interface{}, error) {
		if deck, ok := s.cached(shared, contentID, tier); ok {
			return deck, nil
		}
		return s.generate(shared, contentID, tier)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return copyDeck(res.Val.(*models.Deck)), nil
	}
}

// GenerateForUser resolves the learner's tier and generates the deck for it.
// Unknown or unclassified learners get models.DefaultTier.
func (s *Service) GenerateForUser(ctx context.Context, userID, contentID string) (*models.Deck, error) {
	return s.GenerateDeck(ctx, contentID, s.TierFor(ctx, userID))
}

// TierFor returns the stored tier of userID.
func (s *Service) TierFor(ctx context.Context, userID string) models.Tier {
	if s.profiles == nil || userID == "" {
		return models.DefaultTier
	}
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("Failed to load profile", zap.String("user_id", userID), zap.Error(err))
		}
		return models.DefaultTier
	}
	return p.TierOrDefault()
}

// Invalidate drops the cached deck for (contentID, tier).
func (s *Service) Invalidate(ctx context.Context, contentID string, tier models.Tier) error {
	if !tier.Valid() {
		return fmt.Errorf("%w: %w %q", ErrInput, models.ErrInvalidTier, tier)
	}
	if err := s.cache.DeleteCachedDeck(ctx, contentID, tier); err != nil {
		return fmt.Errorf("failed to invalidate deck: %w", err)
	}
	s.logger.Debug("Invalidated deck", zap.String("content_id", contentID), zap.String("tier", string(tier)))
	return nil
}

// InvalidateAll drops the cached decks of every tier for contentID.
func (s *Service) InvalidateAll(ctx context.Context, contentID string) error {
	if err := s.cache.DeleteCachedDecks(ctx, contentID); err != nil {
		return fmt.Errorf("failed to invalidate decks: %w", err)
	}
	s.logger.Debug("Invalidated decks", zap.String("content_id", contentID))
	return nil
}

func (s *Service) cached(ctx context.Context, contentID string, tier models.Tier) (*models.Deck, bool) {
	entry, err := s.cache.GetCachedDeck(ctx, contentID, tier)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("Deck cache read failed",
				zap.String("content_id", contentID), zap.String("tier", string(tier)), zap.Error(err))
		}
		return nil, false
	}
	if entry.Deck == nil || entry.Deck.Len() == 0 {
		return nil, false
	}
	deck := copyDeck(entry.Deck)
	deck.Cached = true
	return deck, true
}

func (s *Service) generate(ctx context.Context, contentID string, tier models.Tier) (*models.Deck, error) {
	item, err := s.content.GetSlide(ctx, contentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrInput, err)
		}
		return nil, fmt.Errorf("failed to load slide %s: %w", contentID, err)
	}

	title := strings.TrimSpace(item.Title)
	text := normalize.Item(item)
	if title == "" && strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: slide %s: %w", ErrInput, contentID, ErrEmptyContent)
	}

	res, err := s.gate.Ensure(ctx, sufficiency.Input{
		Text:        text,
		Title:       title,
		CourseTitle: s.courseTitle(ctx, item.CourseID),
	})
	switch {
	case errors.Is(err, sufficiency.ErrInsufficient):
		// Untitled short slide: the template strategy still builds a deck from what is there.
		s.logger.Debug("Content below threshold without title",
			zap.String("content_id", contentID), zap.Int("length", len([]rune(res.Text))))
	case err != nil:
		return nil, err
	case res.Enriched():
		s.logger.Debug("Content enriched",
			zap.String("content_id", contentID), zap.Any("sources", res.Sources))
	}

	deck, err := s.selector.Generate(ctx, generate.Input{
		ContentID: contentID,
		Title:     title,
		Text:      res.Text,
		Tier:      tier,
		Count:     s.sizes.For(tier),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate deck for %s: %w", contentID, err)
	}

	if err := s.cache.UpsertCachedDeck(ctx, contentID, tier, deck); err != nil {
		s.logger.Warn("Failed to cache deck",
			zap.String("content_id", contentID), zap.String("tier", string(tier)), zap.Error(err))
	}
	s.logger.Info("Generated deck",
		zap.String("content_id", contentID),
		zap.String("tier", string(tier)),
		zap.String("strategy", string(deck.GeneratedBy)),
		zap.Int("cards", deck.Len()))
	return deck, nil
}

func (s *Service) courseTitle(ctx context.Context, courseID string) string {
	if courseID == "" {
		return ""
	}
	c, err := s.content.GetCourse(ctx, courseID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("Failed to load course", zap.String("course_id", courseID), zap.Error(err))
		}
		return ""
	}
	return c.Title
}

func copyDeck(d *models.Deck) *models.Deck {
	c := *d
	c.Flashcards = append([]models.Flashcard(nil), d.Flashcards...)
	return &c
}
