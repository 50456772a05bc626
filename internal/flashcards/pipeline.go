package flashcards

import (
	"go.uber.org/zap"

	"github.com/hyperjump/fuda/internal/cache"
	"github.com/hyperjump/fuda/internal/config"
	"github.com/hyperjump/fuda/internal/generate"
	"github.com/hyperjump/fuda/internal/keyterm"
	"github.com/hyperjump/fuda/internal/llm"
	"github.com/hyperjump/fuda/internal/samples"
	"github.com/hyperjump/fuda/internal/segment"
	"github.com/hyperjump/fuda/internal/sufficiency"
)

// Deps are the collaborators of a Service built from configuration.
type Deps struct {
	Content     ContentSource
	Profiles    ProfileSource
	Supplements sufficiency.SupplementSource
	Cache       cache.Store
	// Completer is nil when no model credential is configured.
	Completer llm.Completer
	Library   *samples.Library
	Logger    *zap.Logger
}

// New builds the full pipeline: gate, selector with the model, sample and
// template strategies in that order, and the service around them.
func New(cfg *config.Config, deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	library := deps.Library
	if library == nil {
		library = samples.MustBuiltin()
	}
	g := cfg.Generation

	gateOpts := []sufficiency.Option{sufficiency.WithLogger(logger)}
	if deps.Supplements != nil {
		gateOpts = append(gateOpts, sufficiency.WithSupplements(deps.Supplements))
	}
	gate := sufficiency.NewGate(g.MinContentLength, library, gateOpts...)

	selector := generate.NewSelector(
		segment.NewSegmenter(g.MinChunkLength, g.MinChunks),
		keyterm.NewExtractor(g.MinKeyTerms),
		[]generate.Strategy{
			generate.NewModelStrategy(deps.Completer, cfg.Model.Temperature, cfg.Model.MaxTokens),
			generate.NewSampleStrategy(library),
			generate.NewTemplateStrategy(),
		},
		generate.WithLogger(logger),
	)

	opts := []Option{WithLogger(logger)}
	if deps.Profiles != nil {
		opts = append(opts, WithProfiles(deps.Profiles))
	}
	return NewService(deps.Content, deps.Cache, gate, selector, g.DeckSizes, opts...)
}
