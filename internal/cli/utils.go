// Package cli provides output helpers for the fuda command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/fuda/internal/models"
	"github.com/hyperjump/fuda/internal/normalize"
	"github.com/hyperjump/fuda/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat returns the format named s. Anything other than "json" is text.
func ParseFormat(s string) OutputFormat {
	if s == string(OutputJSON) {
		return OutputJSON
	}
	return OutputText
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteDeck writes a deck to w in the given format.
func WriteDeck(w io.Writer, contentID string, deck *models.Deck, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, struct {
			ContentID string `json:"content_id"`
			*models.Deck
		}{contentID, deck})
	}
	source := string(deck.GeneratedBy)
	if deck.Cached {
		source += ", cached"
	}
	fmt.Fprintf(w, "\n%d cards for %s (%s, %s) [%s]\n\n",
		deck.Len(), contentID, deck.LearningSpeed, deck.DetailLevel, source)
	for _, card := range deck.Flashcards {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "%s\n", card.ID)
		fmt.Fprintf(w, "Q: %s\n", card.Front)
		fmt.Fprintf(w, "A: %s\n", card.Back)
	}
	fmt.Fprintln(w)
	return nil
}

// WriteSearchResults writes slide search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SlideSearchResponse, suggestion string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, struct {
			*models.SlideSearchResponse
			Suggestion string `json:"suggestion,omitempty"`
		}{response, suggestion})
	}
	fmt.Fprintf(w, "\nFound %d slides in %dms\n\n", response.Total, response.QueryTime)
	for i, hit := range response.Hits {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", i+1, hit.Score)
		fmt.Fprintf(w, "ID: %s\n", hit.Slide.ID)
		if hit.Slide.Title != "" {
			fmt.Fprintf(w, "Title: %s\n", hit.Slide.Title)
		}
		if hit.Slide.CourseID != "" {
			fmt.Fprintf(w, "Course: %s\n", hit.Slide.CourseID)
		}
		if text := normalize.Item(hit.Slide); text != "" {
			fmt.Fprintf(w, "\n%s\n", utils.Truncate(utils.CollapseSpace(text), 200))
		}
		fmt.Fprintln(w)
	}
	if response.Total == 0 && suggestion != "" {
		fmt.Fprintf(w, "Did you mean: %s\n", suggestion)
	}
	return nil
}

// Status is the summary printed by the status command.
type Status struct {
	Slides         int64    `json:"slides"`
	Courses        int64    `json:"courses"`
	CachedDecks    int64    `json:"cached_decks"`
	IndexedSlides  uint64   `json:"indexed_slides"`
	DiskUsageBytes int64    `json:"disk_usage_bytes"`
	CacheBackend   string   `json:"cache_backend"`
	ModelProvider  string   `json:"model_provider"`
	ModelEnabled   bool     `json:"model_enabled"`
	WatchDirs      []string `json:"watch_directories,omitempty"`
}

// WriteStatus writes a status summary to w in the given format.
func WriteStatus(w io.Writer, st *Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Slides:         %d (%d indexed)\n", st.Slides, st.IndexedSlides)
	fmt.Fprintf(w, "Courses:        %d\n", st.Courses)
	fmt.Fprintf(w, "Cached decks:   %d (%s)\n", st.CachedDecks, st.CacheBackend)
	model := "disabled"
	if st.ModelEnabled {
		model = st.ModelProvider
	}
	fmt.Fprintf(w, "Model:          %s\n", model)
	fmt.Fprintf(w, "Disk usage:     %s\n", FormatBytes(st.DiskUsageBytes))
	for _, d := range st.WatchDirs {
		fmt.Fprintf(w, "Watching:       %s\n", d)
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
