package generate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/fuda/internal/keyterm"
	"github.com/hyperjump/fuda/internal/models"
	"github.com/hyperjump/fuda/internal/segment"
)

// Input describes the deck to generate.
type Input struct {
	ContentID string
	Title     string
	// Text is the normalized text after sufficiency enrichment.
	Text  string
	Tier  models.Tier
	Count int
}

// Selector runs strategies in order until one produces a deck.
type Selector struct {
	strategies []Strategy
	segmenter  *segment.Segmenter
	extractor  *keyterm.Extractor
	logger     *zap.Logger
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithLogger sets the logger used for fallback decisions.
func WithLogger(l *zap.Logger) SelectorOption {
	return func(s *Selector) { s.logger = l }
}

// NewSelector creates a selector over strategies, tried in the given order.
func NewSelector(segmenter *segment.Segmenter, extractor *keyterm.Extractor, strategies []Strategy, opts ...SelectorOption) *Selector {
	s := &Selector{strategies: strategies, segmenter: segmenter, extractor: extractor, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Prepare segments the text and extracts key terms once for all strategies.
func (s *Selector) Prepare(in Input) *Request {
	chunks := s.segmenter.Split(in.Text)
	return &Request{
		ContentID: in.ContentID,
		Title:     in.Title,
		Text:      in.Text,
		Tier:      in.Tier,
		Count:     in.Count,
		Chunks:    chunks,
		Terms:     s.extractor.Extract(chunks, in.Text),
	}
}

// Generate returns the first deck a strategy produces. Cards are renumbered
// in order. A cancelled ctx stops the cascade.
func (s *Selector) Generate(ctx context.Context, in Input) (*models.Deck, error) {
	req := s.Prepare(in)
	var failures []error
	for _, st := range s.strategies {
		deck, err := st.Attempt(ctx, req)
		if err == nil {
			deck.Renumber()
			s.logger.Debug("deck generated",
				zap.String("content_id", in.ContentID),
				zap.String("tier", string(in.Tier)),
				zap.String("strategy", string(st.Kind())),
				zap.Int("cards", deck.Len()))
			return deck, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		failures = append(failures, err)
		fields := []zap.Field{
			zap.String("content_id", in.ContentID),
			zap.String("tier", string(in.Tier)),
			zap.String("strategy", string(st.Kind())),
		}
		var f *Failure
		if errors.As(err, &f) {
			fields = append(fields, zap.String("reason", string(f.Reason)))
		}
		s.logger.Info("strategy skipped", append(fields, zap.Error(err))...)
	}
	return nil, fmt.Errorf("%w: %w", ErrNoStrategy, errors.Join(failures...))
}
