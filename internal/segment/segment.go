// Package segment splits normalized slide text into chunks for card synthesis.
package segment

import (
	"regexp"
	"strings"
)

// Kind records which split produced a chunk.
type Kind string

const (
	KindSentence  Kind = "sentence"
	KindBullet    Kind = "bullet"
	KindParagraph Kind = "paragraph"
	KindWhole     Kind = "whole"
)

// Chunk is a trimmed substring of the source text.
type Chunk struct {
	Index int
	Text  string
	Kind  Kind
}

var (
	sentenceEnd   = regexp.MustCompile(`[.!?]\s+`)
	bulletSplit   = regexp.MustCompile(`\n[ \t]*[-•*][ \t]*`)
	leadingBullet = regexp.MustCompile(`^[-•*][ \t]*`)
	paragraphGap  = regexp.MustCompile(`\n[ \t]*\n`)
)

// Segmenter picks the first split strategy that yields enough usable chunks.
type Segmenter struct {
	minLength int
	minChunks int
}

// NewSegmenter creates a segmenter. Chunks must be longer than minLength
// characters, and a split strategy needs at least minChunks of them to win.
func NewSegmenter(minLength, minChunks int) *Segmenter {
	if minChunks < 1 {
		minChunks = 1
	}
	return &Segmenter{minLength: minLength, minChunks: minChunks}
}

// Split tries sentences, then bullets, then paragraphs. If none yields enough
// chunks, the whole text is returned as a single chunk. Empty text yields nil.
func (s *Segmenter) Split(text string) []Chunk {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	candidates := []struct {
		kind  Kind
		split func(string) []string
	}{
		{KindSentence, splitSentences},
		{KindBullet, splitBullets},
		{KindParagraph, func(t string) []string { return paragraphGap.Split(t, -1) }},
	}
	for _, c := range candidates {
		if chunks := s.keep(c.split(trimmed), c.kind); len(chunks) >= s.minChunks {
			return chunks
		}
	}
	return []Chunk{{Index: 0, Text: trimmed, Kind: KindWhole}}
}

func (s *Segmenter) keep(pieces []string, kind Kind) []Chunk {
	out := make([]Chunk, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if len([]rune(p)) > s.minLength {
			out = append(out, Chunk{Index: len(out), Text: p, Kind: kind})
		}
	}
	return out
}

// splitSentences cuts after terminal punctuation so each sentence keeps it.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		out = append(out, text[start:loc[0]+1])
		start = loc[1]
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func splitBullets(text string) []string {
	return bulletSplit.Split(leadingBullet.ReplaceAllString(text, ""), -1)
}

// Texts returns the text of every chunk in order.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
