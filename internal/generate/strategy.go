// Package generate picks a generation strategy for a slide and produces its deck.
//
// Strategies are tried in a fixed order: the generative model, the curated
// sample library, and finally local template synthesis, which cannot fail.
package generate

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/fuda/internal/keyterm"
	"github.com/hyperjump/fuda/internal/models"
	"github.com/hyperjump/fuda/internal/segment"
)

// ErrNoStrategy is returned when every strategy failed.
var ErrNoStrategy = errors.New("no generation strategy succeeded")

// ErrNoPairs is returned when a model response contains no parsable cards.
var ErrNoPairs = errors.New("no question/answer pairs in model response")

// Reason classifies why a strategy gave up.
type Reason string

const (
	ReasonUnavailable  Reason = "unavailable"
	ReasonUpstream     Reason = "upstream_error"
	ReasonUnparseable  Reason = "unparseable"
	ReasonNoMatch      Reason = "no_match"
	ReasonInsufficient Reason = "insufficient_material"
)

// Failure is returned by a strategy that could not produce a deck.
type Failure struct {
	Strategy models.GeneratedBy
	Reason   Reason
	Err      error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s strategy: %s", f.Strategy, f.Reason)
	}
	return fmt.Sprintf("%s strategy: %s: %v", f.Strategy, f.Reason, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Request is the prepared input shared by every strategy.
type Request struct {
	ContentID string
	Title     string
	Text      string
	Tier      models.Tier
	Count     int
	Chunks    []segment.Chunk
	Terms     *keyterm.Set
}

// Strategy produces a deck or a *Failure.
type Strategy interface {
	Kind() models.GeneratedBy
	Attempt(ctx context.Context, req *Request) (*models.Deck, error)
}
