// Package sufficiency enriches thin slide text until it is long enough to
// generate a full deck from.
package sufficiency

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/fuda/internal/samples"
)

// ErrInsufficient is returned when the text stays below the threshold and there
// is no title to enrich it from.
var ErrInsufficient = errors.New("content is insufficient and has no title")

// Source names where a piece of the final text came from.
type Source string

const (
	SourceOriginal   Source = "original"
	SourceSample     Source = "sample"
	SourceSupplement Source = "supplement"
	SourceTitle      Source = "title"
)

// DefaultCourseTitle is used in the synthesized sentence when a slide has no course.
const DefaultCourseTitle = "your course"

// SupplementSource looks up stored filler text by exact topic title.
type SupplementSource interface {
	GetSupplement(ctx context.Context, topic string) (string, error)
}

// Input is the text to check together with what is known about its slide.
type Input struct {
	Text        string
	Title       string
	CourseTitle string
}

// Result is the possibly enriched text.
type Result struct {
	Text       string
	Sources    []Source
	Sufficient bool
}

// Enriched reports whether anything was appended to the original text.
func (r Result) Enriched() bool {
	for _, s := range r.Sources {
		if s != SourceOriginal {
			return true
		}
	}
	return false
}

// Gate appends sample, supplementary and synthesized text, in that order, until
// the content reaches minLength characters.
type Gate struct {
	minLength   int
	library     *samples.Library
	supplements SupplementSource
	logger      *zap.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithSupplements enables the stored supplementary content step.
func WithSupplements(s SupplementSource) Option {
	return func(g *Gate) { g.supplements = s }
}

// WithLogger sets the logger for lookup failures.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

// NewGate creates a gate with the given threshold and sample library.
func NewGate(minLength int, library *samples.Library, opts ...Option) *Gate {
	g := &Gate{minLength: minLength, library: library, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Ensure returns text that is at least minLength characters long whenever the
// slide has a title. Lookup failures are logged and skipped.
func (g *Gate) Ensure(ctx context.Context, in Input) (Result, error) {
	text := strings.TrimSpace(in.Text)
	res := Result{Text: text}
	if text != "" {
		res.Sources = append(res.Sources, SourceOriginal)
	}
	if g.long(text) {
		res.Sufficient = true
		return res, nil
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return res, ErrInsufficient
	}

	steps := []struct {
		source Source
		lookup func() (string, error)
	}{
		{SourceSample, func() (string, error) {
			if topic, ok := g.library.Lookup(title); ok {
				return samples.Overview(topic), nil
			}
			return "", nil
		}},
		{SourceSupplement, func() (string, error) {
			if g.supplements == nil {
				return "", nil
			}
			return g.supplements.GetSupplement(ctx, title)
		}},
		{SourceTitle, func() (string, error) {
			return Synthesize(title, in.CourseTitle), nil
		}},
	}
	for _, step := range steps {
		extra, err := step.lookup()
		if err != nil {
			g.logger.Warn("supplementary content lookup failed",
				zap.String("source", string(step.source)), zap.String("title", title), zap.Error(err))
			continue
		}
		extra = strings.TrimSpace(extra)
		if extra == "" {
			continue
		}
		res.Text = join(res.Text, extra)
		res.Sources = append(res.Sources, step.source)
		if g.long(res.Text) {
			res.Sufficient = true
			break
		}
	}
	return res, nil
}

func (g *Gate) long(text string) bool {
	return len([]rune(text)) >= g.minLength
}

func join(a, b string) string {
	if a == "" {
		return b
	}
	return a + "\n\n" + b
}

// Synthesize builds the generic filler sentence for a title.
func Synthesize(title, courseTitle string) string {
	if strings.TrimSpace(courseTitle) == "" {
		courseTitle = DefaultCourseTitle
	}
	return fmt.Sprintf("%s is an important concept in %s. It involves understanding key principles and applications in this field.",
		title, courseTitle)
}
