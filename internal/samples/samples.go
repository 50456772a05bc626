// Package samples holds the curated topic library used when a slide is too thin
// or the model is unavailable.
package samples

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/fuda/internal/models"
)

//go:embed topics.yaml
var builtinTopics []byte

// Library looks curated topics up by slide title.
type Library struct {
	topics []models.SampleTopic
}

// New returns a library with the given topics, matched in order.
func New(topics []models.SampleTopic) *Library {
	return &Library{topics: topics}
}

// Builtin returns the library shipped with the binary.
func Builtin() (*Library, error) {
	return Parse(builtinTopics)
}

// MustBuiltin is like Builtin but panics on a malformed embedded file.
func MustBuiltin() *Library {
	lib, err := Builtin()
	if err != nil {
		panic(err)
	}
	return lib
}

// Parse reads a YAML list of topics.
func Parse(data []byte) (*Library, error) {
	var topics []models.SampleTopic
	if err := yaml.Unmarshal(data, &topics); err != nil {
		return nil, fmt.Errorf("failed to parse sample topics: %w", err)
	}
	return New(topics), nil
}

// Lookup returns the first topic whose name contains the title or is contained
// by it, ignoring case. Blank titles never match.
func (l *Library) Lookup(title string) (*models.SampleTopic, bool) {
	t := strings.ToLower(strings.TrimSpace(title))
	if t == "" || l == nil {
		return nil, false
	}
	for i := range l.topics {
		name := strings.ToLower(l.topics[i].Name)
		if strings.Contains(t, name) || strings.Contains(name, t) {
			return &l.topics[i], true
		}
	}
	return nil, false
}

// Names returns topic names in match order.
func (l *Library) Names() []string {
	out := make([]string, len(l.topics))
	for i, t := range l.topics {
		out[i] = t.Name
	}
	return out
}

// Overview renders a topic as study text: the definition followed by one
// bullet per sub-topic with its details.
func Overview(t *models.SampleTopic) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n\n", t.Name, t.Definition)
	if len(t.Topics) == 0 {
		return strings.TrimSpace(b.String())
	}
	b.WriteString("Key concepts:\n")
	for _, st := range t.Topics {
		fmt.Fprintf(&b, "- %s: %s\n", st.Name, st.Definition)
		if st.Characteristics != "" {
			fmt.Fprintf(&b, "  Characteristics: %s\n", st.Characteristics)
		}
		if st.Examples != "" {
			fmt.Fprintf(&b, "  Examples: %s\n", st.Examples)
		}
		if st.Applications != "" {
			fmt.Fprintf(&b, "  Applications: %s\n", st.Applications)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// Pairs returns the authored questions followed by pairs derived from the
// sub-topics: one definition card each, then one application card each.
func Pairs(t *models.SampleTopic) []models.QAPair {
	out := make([]models.QAPair, 0, len(t.Questions)+2*len(t.Topics))
	out = append(out, t.Questions...)
	for _, st := range t.Topics {
		answer := st.Definition + "."
		if st.Characteristics != "" {
			answer += " Characteristics: " + st.Characteristics + "."
		}
		if st.Examples != "" {
			answer += " Examples: " + st.Examples + "."
		}
		out = append(out, models.QAPair{
			Question: fmt.Sprintf("What is meant by %q in %s?", st.Name, t.Name),
			Answer:   answer,
		})
	}
	for _, st := range t.Topics {
		if st.Applications == "" {
			continue
		}
		out = append(out, models.QAPair{
			Question: fmt.Sprintf("Where are %s applied in practice?", st.Name),
			Answer:   st.Applications + ".",
		})
	}
	return out
}
