package keyword

import (
	"strings"
)

// Speller proposes corrected queries from the indexed vocabulary.
type Speller struct {
	source      TermSource
	maxDistance int
}

// NewSpeller creates a speller. maxDistance defaults to 2.
func NewSpeller(source TermSource, maxDistance int) *Speller {
	if maxDistance <= 0 {
		maxDistance = 2
	}
	return &Speller{source: source, maxDistance: maxDistance}
}

// Suggest replaces every unknown query term with the closest known term,
// preferring smaller distances, then higher document frequency. It returns ""
// when no term changes.
func (s *Speller) Suggest(query string) (string, error) {
	vocab, err := s.source.Terms()
	if err != nil {
		return "", err
	}
	terms := tokenizeQuery(query)
	changed := false
	for i, term := range terms {
		if _, ok := vocab[term]; ok {
			continue
		}
		if best := s.closest(term, vocab); best != "" {
			terms[i] = best
			changed = true
		}
	}
	if !changed {
		return "", nil
	}
	return strings.Join(terms, " "), nil
}

func (s *Speller) closest(term string, vocab map[string]int) string {
	best, bestDist, bestFreq := "", s.maxDistance+1, 0
	n := len([]rune(term))
	for cand, freq := range vocab {
		diff := len([]rune(cand)) - n
		if diff > s.maxDistance || -diff > s.maxDistance {
			continue
		}
		d := LevenshteinDistance(term, cand)
		if d > s.maxDistance {
			continue
		}
		if d < bestDist || (d == bestDist && (freq > bestFreq || (freq == bestFreq && cand < best))) {
			best, bestDist, bestFreq = cand, d, freq
		}
	}
	return best
}
