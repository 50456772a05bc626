// Package keyterm extracts salient terms and phrases from slide text.
package keyterm

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/hyperjump/fuda/internal/segment"
)

// Capitalized words (optionally runs of up to five), acronyms, or lowercase words of 4+ letters.
var termPattern = regexp.MustCompile(`\b[A-Z][a-zA-Z]{2,}(?:[ \t]+[A-Z][a-zA-Z]{2,}){0,4}\b|\b[A-Z]{2,}\b|\b[a-z]{4,}\b`)

var (
	primaryStop   = wordSet("the", "and", "that", "this", "with", "from", "have", "been", "were", "what")
	secondaryStop = wordSet("the", "and", "that", "this", "with", "from", "have")
	leadingCommon = wordSet("the", "a", "an", "and", "or", "but", "for", "with", "in", "on", "at")
	windowStop    = wordSet("the", "and", "that")
)

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func isStop(set map[string]struct{}, w string) bool {
	_, ok := set[strings.ToLower(w)]
	return ok
}

// Extractor collects key terms from chunks, topping up from raw text when the
// primary pattern finds too few.
type Extractor struct {
	minTerms int
}

// NewExtractor creates an extractor that falls back to plain tokens below minTerms.
func NewExtractor(minTerms int) *Extractor {
	return &Extractor{minTerms: minTerms}
}

// Extract returns the key terms of chunks in first-seen order.
func (e *Extractor) Extract(chunks []segment.Chunk, raw string) *Set {
	set := NewSet()
	joined := strings.Join(segment.Texts(chunks), "\n")
	for _, m := range termPattern.FindAllString(joined, -1) {
		if term := trimStops(m); term != "" {
			set.Add(term)
		}
	}
	if set.Len() >= e.minTerms {
		return set
	}
	for _, tok := range strings.Fields(raw) {
		tok = stripNonWord(tok)
		if len([]rune(tok)) > 3 && !isStop(secondaryStop, tok) {
			set.Add(tok)
		}
	}
	return set
}

// trimStops drops stop words from either end of a matched phrase.
func trimStops(phrase string) string {
	words := strings.Fields(phrase)
	for len(words) > 0 && isStop(primaryStop, words[0]) {
		words = words[1:]
	}
	for len(words) > 0 && isStop(primaryStop, words[len(words)-1]) {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

func stripNonWord(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return -1
	}, s)
}

// Set is an insertion-ordered, case-insensitive set of terms.
type Set struct {
	terms []string
	seen  map[string]struct{}
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Add inserts term, keeping the casing of its first occurrence. Reports whether it was new.
func (s *Set) Add(term string) bool {
	key := strings.ToLower(term)
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	s.terms = append(s.terms, term)
	return true
}

// Contains reports whether term is in the set, ignoring case.
func (s *Set) Contains(term string) bool {
	_, ok := s.seen[strings.ToLower(term)]
	return ok
}

// Len returns the number of terms.
func (s *Set) Len() int { return len(s.terms) }

// Terms returns the terms in insertion order.
func (s *Set) Terms() []string {
	out := make([]string, len(s.terms))
	copy(out, s.terms)
	return out
}

// PhraseFor returns the longest multi-word term found in chunk, earliest first on ties.
// Without one it falls back to KeyPhrase.
func (s *Set) PhraseFor(chunk string) string {
	best, bestWords := "", 1
	for _, t := range s.terms {
		n := len(strings.Fields(t))
		if n > bestWords && strings.Contains(chunk, t) {
			best, bestWords = t, n
		}
	}
	if best != "" {
		return best
	}
	return KeyPhrase(chunk)
}

// KeyPhrase returns a 3 to 5 word window of text (a third of its length, clamped),
// starting at the first of the leading five words that is not a common word.
func KeyPhrase(text string) string {
	words := strings.Fields(text)
	if len(words) <= 3 {
		return trimPunct(strings.Join(words, " "))
	}
	size := len(words) / 3
	if size < 3 {
		size = 3
	}
	if size > 5 {
		size = 5
	}
	start := 0
	for i := 0; i < len(words) && i < 5; i++ {
		if !isStop(leadingCommon, trimPunct(words[i])) {
			start = i
			break
		}
	}
	end := start + size
	if end > len(words) {
		end = len(words)
	}
	return trimPunct(strings.Join(words[start:end], " "))
}

// Windows returns consecutive, non-overlapping three-word phrases from text.
// Windows starting with a word of three letters or fewer, or with a stop word, are skipped.
func Windows(text string) []string {
	words := strings.Fields(text)
	var out []string
	for i := 0; i+3 <= len(words); i += 3 {
		first := trimPunct(words[i])
		if len([]rune(first)) <= 3 || isStop(windowStop, first) {
			continue
		}
		out = append(out, trimPunct(strings.Join(words[i:i+3], " ")))
	}
	return out
}

func trimPunct(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) && r != '-' || unicode.IsSpace(r)
	})
}
