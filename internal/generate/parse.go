package generate

import (
	"regexp"
	"strings"

	"github.com/hyperjump/fuda/internal/models"
)

var (
	questionMarker = regexp.MustCompile(`(?i)\bQUESTION\s*\d*\s*\**\s*:`)
	answerMarker   = regexp.MustCompile(`(?i)\bANSWER\s*\d*\s*\**\s*:`)
	// Leftovers of the next card's list numbering or markdown emphasis.
	trailingNoise = regexp.MustCompile(`(?:\n[ \t]*\d+[.)])?[\s*#]*$`)
)

// ParsePairs extracts QUESTION/ANSWER pairs from a model response. It accepts
// markdown emphasis, numbering and CRLF line endings. Incomplete pairs are dropped.
func ParsePairs(response string) []models.QAPair {
	text := strings.ReplaceAll(response, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	marks := questionMarker.FindAllStringIndex(text, -1)
	pairs := make([]models.QAPair, 0, len(marks))
	for i, m := range marks {
		end := len(text)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		segment := text[m[1]:end]
		a := answerMarker.FindStringIndex(segment)
		if a == nil {
			continue
		}
		q := clean(segment[:a[0]])
		ans := clean(segment[a[1]:])
		if q == "" || ans == "" {
			continue
		}
		pairs = append(pairs, models.QAPair{Question: q, Answer: ans})
	}
	return pairs
}

func clean(s string) string {
	s = trailingNoise.ReplaceAllString(s, "")
	return strings.Trim(s, " \t\n*#")
}
