package generate

import (
	"context"

	"github.com/hyperjump/fuda/internal/models"
	"github.com/hyperjump/fuda/internal/synth"
)

// TemplateStrategy synthesizes cards locally from the slide text.
type TemplateStrategy struct {
	synth *synth.Synthesizer
}

// NewTemplateStrategy creates the template strategy.
func NewTemplateStrategy() *TemplateStrategy {
	return &TemplateStrategy{synth: synth.New()}
}

func (s *TemplateStrategy) Kind() models.GeneratedBy { return models.GeneratedByFallback }

// Attempt only fails for a non-positive card count.
func (s *TemplateStrategy) Attempt(_ context.Context, req *Request) (*models.Deck, error) {
	cards := s.synth.Build(synthInput(req))
	if len(cards) == 0 {
		return nil, &Failure{Strategy: s.Kind(), Reason: ReasonInsufficient}
	}
	return models.NewDeck(req.Tier, models.GeneratedByFallback, cards), nil
}
