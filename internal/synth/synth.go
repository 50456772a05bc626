// Package synth builds flashcards locally from slide text. It needs no
// network access and always produces a full deck.
package synth

import (
	"fmt"
	"strings"

	"github.com/hyperjump/fuda/internal/keyterm"
	"github.com/hyperjump/fuda/internal/models"
	"github.com/hyperjump/fuda/internal/segment"
	"github.com/hyperjump/fuda/pkg/utils"
)

const overviewFiller = "This topic covers important concepts that form the foundation of this subject area."

// Input is everything the synthesizer needs for one deck.
type Input struct {
	ContentID string
	Title     string
	Text      string
	Tier      models.Tier
	Count     int
	Chunks    []segment.Chunk
	Terms     *keyterm.Set
}

type questionFunc func(chunk, phrase string) string

var questions = map[models.Tier][3]questionFunc{
	models.TierSlow: {
		func(chunk, _ string) string { return fmt.Sprintf("What does this mean: \"%s\"?", excerpt(chunk, 30)) },
		func(_, p string) string { return fmt.Sprintf("Explain this concept: \"%s\"", p) },
		func(_, p string) string { return fmt.Sprintf("What is important about this: \"%s\"?", p) },
	},
	models.TierModerate: {
		func(_, p string) string { return fmt.Sprintf("How would you explain: \"%s\"?", p) },
		func(_, p string) string { return fmt.Sprintf("What are the implications of \"%s\"?", p) },
		func(_, p string) string { return fmt.Sprintf("How is \"%s\" applied in practice?", p) },
	},
	models.TierFast: {
		func(_, p string) string { return fmt.Sprintf("Analyze the significance of \"%s\"", p) },
		func(_, p string) string { return fmt.Sprintf("What critical insights can be drawn from \"%s\"?", p) },
		func(_, p string) string { return fmt.Sprintf("Evaluate the importance of \"%s\" in this context", p) },
	},
}

func excerpt(s string, n int) string {
	cut := utils.FirstN(s, n)
	if cut == s {
		return s
	}
	return cut + "..."
}

// Synthesizer builds TEMPLATE decks.
type Synthesizer struct{}

// New returns a synthesizer.
func New() *Synthesizer { return &Synthesizer{} }

type builder struct {
	in    Input
	cards []models.Flashcard
	seen  map[string]struct{}
}

func (b *builder) full() bool { return len(b.cards) >= b.in.Count }

func (b *builder) add(front, back string) {
	if b.full() {
		return
	}
	if _, dup := b.seen[front]; dup {
		return
	}
	b.seen[front] = struct{}{}
	i := len(b.cards)
	variant := Rand(b.in.ContentID, b.in.Tier, i).IntN(1 << 16)
	b.cards = append(b.cards, models.Flashcard{
		ID:         models.CardID(i),
		Front:      front,
		Back:       Augment(b.in.Tier, back, variant),
		Difficulty: b.in.Tier.DetailLevel(),
	})
}

// Build returns exactly in.Count cards: an overview card for titled slides, one
// card per chunk, cards for three-word phrases of the text, and finally
// recycled chunks or placeholders.
func (s *Synthesizer) Build(in Input) []models.Flashcard {
	if in.Count <= 0 {
		return nil
	}
	if !in.Tier.Valid() {
		in.Tier = models.DefaultTier
	}
	if in.Terms == nil {
		in.Terms = keyterm.NewSet()
	}
	b := &builder{in: in, seen: make(map[string]struct{})}
	title := utils.CollapseSpace(in.Title)
	texts := make([]string, 0, len(in.Chunks))
	for _, c := range in.Chunks {
		if t := utils.CollapseSpace(c.Text); t != "" {
			texts = append(texts, t)
		}
	}

	if len([]rune(title)) > 3 {
		b.add(fmt.Sprintf("What is \"%s\"?", title), overviewBack(title, texts))
	}

	tmpl := questions[in.Tier]
	start := Rand(in.ContentID, in.Tier, 0).IntN(len(tmpl))
	for i, text := range texts {
		if b.full() {
			break
		}
		phrase := in.Terms.PhraseFor(text)
		b.add(tmpl[(start+i)%len(tmpl)](text, phrase), text)
	}

	if len(texts) > 0 {
		for j, phrase := range keyterm.Windows(utils.CollapseSpace(in.Text)) {
			if b.full() {
				break
			}
			b.add(fmt.Sprintf("What is the importance of \"%s\"?", phrase), texts[j%len(texts)])
		}
		// Each round shifts the template so a recycled chunk gets a new question.
		for round := 1; round < len(tmpl) && !b.full(); round++ {
			for i, text := range texts {
				if b.full() {
					break
				}
				phrase := in.Terms.PhraseFor(text)
				b.add(tmpl[(start+i+round)%len(tmpl)](text, phrase), text)
			}
		}
	}

	name := title
	if name == "" {
		name = "this material"
	}
	for n := 1; !b.full(); n++ {
		b.add(fmt.Sprintf("Review key point %d of \"%s\" in the original slides.", n, name),
			"Review the slide content for key information.")
	}
	return b.cards
}

func overviewBack(title string, texts []string) string {
	lower := strings.ToLower(title)
	for _, t := range texts {
		if !strings.Contains(strings.ToLower(t), lower) && len([]rune(t)) > 2*len([]rune(title)) {
			return t
		}
	}
	if len(texts) > 0 {
		return texts[0] + "\n\n" + overviewFiller
	}
	return fmt.Sprintf("%s is a topic from your study material. Review the slides to see how it is introduced and applied.", title)
}
