package generate

import (
	"context"
	"errors"

	"github.com/hyperjump/fuda/internal/llm"
	"github.com/hyperjump/fuda/internal/models"
	"github.com/hyperjump/fuda/internal/synth"
)

// ModelStrategy asks a generative model for cards.
type ModelStrategy struct {
	completer   llm.Completer
	temperature float32
	maxTokens   int
	synth       *synth.Synthesizer
}

// NewModelStrategy creates the model strategy. A nil completer makes every attempt fail as unavailable.
func NewModelStrategy(c llm.Completer, temperature float32, maxTokens int) *ModelStrategy {
	return &ModelStrategy{completer: c, temperature: temperature, maxTokens: maxTokens, synth: synth.New()}
}

func (s *ModelStrategy) Kind() models.GeneratedBy { return models.GeneratedByModel }

// Attempt calls the model and parses its answer. Extra cards are dropped; a
// short answer is topped up with template cards for the same slide.
func (s *ModelStrategy) Attempt(ctx context.Context, req *Request) (*models.Deck, error) {
	if s.completer == nil {
		return nil, &Failure{Strategy: s.Kind(), Reason: ReasonUnavailable, Err: llm.ErrNoCredential}
	}
	out, err := s.completer.Complete(ctx, llm.Request{
		System:      SystemPrompt,
		Prompt:      BuildPrompt(req.Title, req.Text, req.Tier, req.Count),
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		reason := ReasonUpstream
		if errors.Is(err, llm.ErrNoCredential) {
			reason = ReasonUnavailable
		}
		return nil, &Failure{Strategy: s.Kind(), Reason: reason, Err: err}
	}
	pairs := ParsePairs(out)
	if len(pairs) == 0 {
		return nil, &Failure{Strategy: s.Kind(), Reason: ReasonUnparseable, Err: ErrNoPairs}
	}
	if len(pairs) > req.Count {
		pairs = pairs[:req.Count]
	}

	cards := make([]models.Flashcard, 0, req.Count)
	seen := make(map[string]struct{}, req.Count)
	for _, p := range pairs {
		seen[p.Question] = struct{}{}
		cards = append(cards, models.Flashcard{Front: p.Question, Back: p.Answer, Difficulty: req.Tier.DetailLevel()})
	}
	if len(cards) < req.Count {
		for _, c := range s.synth.Build(synthInput(req)) {
			if len(cards) == req.Count {
				break
			}
			if _, dup := seen[c.Front]; dup {
				continue
			}
			cards = append(cards, c)
		}
	}
	return models.NewDeck(req.Tier, models.GeneratedByModel, cards), nil
}

func synthInput(req *Request) synth.Input {
	return synth.Input{
		ContentID: req.ContentID,
		Title:     req.Title,
		Text:      req.Text,
		Tier:      req.Tier,
		Count:     req.Count,
		Chunks:    req.Chunks,
		Terms:     req.Terms,
	}
}
