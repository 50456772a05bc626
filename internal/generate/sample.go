package generate

import (
	"context"
	"fmt"

	"github.com/hyperjump/fuda/internal/models"
	"github.com/hyperjump/fuda/internal/samples"
	"github.com/hyperjump/fuda/internal/synth"
)

// SampleStrategy serves pre-authored cards for slides whose title matches a curated topic.
type SampleStrategy struct {
	library *samples.Library
}

// NewSampleStrategy creates the sample strategy.
func NewSampleStrategy(library *samples.Library) *SampleStrategy {
	return &SampleStrategy{library: library}
}

func (s *SampleStrategy) Kind() models.GeneratedBy { return models.GeneratedBySample }

// Attempt returns the topic's cards truncated to the tier size, each answer
// closed with the tier augmentation.
func (s *SampleStrategy) Attempt(_ context.Context, req *Request) (*models.Deck, error) {
	topic, ok := s.library.Lookup(req.Title)
	if !ok {
		return nil, &Failure{Strategy: s.Kind(), Reason: ReasonNoMatch}
	}
	pairs := samples.Pairs(topic)
	if len(pairs) < req.Count {
		return nil, &Failure{Strategy: s.Kind(), Reason: ReasonInsufficient,
			Err: fmt.Errorf("topic %q has %d cards, need %d", topic.Name, len(pairs), req.Count)}
	}
	cards := make([]models.Flashcard, req.Count)
	for i, p := range pairs[:req.Count] {
		variant := synth.Rand(req.ContentID, req.Tier, i).IntN(1 << 16)
		cards[i] = models.Flashcard{
			Front:      p.Question,
			Back:       synth.Augment(req.Tier, p.Answer, variant),
			Difficulty: req.Tier.DetailLevel(),
		}
	}
	return models.NewDeck(req.Tier, models.GeneratedBySample, cards), nil
}
