// Package models defines core data structures for slides, decks, and profiles.
package models

import "time"

// ContentItem is one unit of study material (a slide). Content holds the raw
// payload as stored: plain text, a JSON block tree, or a JSON object with
// title/description/content fields. TextContent is pre-extracted text and wins
// over Content when non-empty.
type ContentItem struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	CourseID    string    `json:"course_id,omitempty" db:"course_id"`
	Content     string    `json:"content,omitempty" db:"content"`
	TextContent string    `json:"text_content,omitempty" db:"text_content"`
	SourcePath  string    `json:"source_path,omitempty" db:"source_path"`
	ContentHash string    `json:"content_hash,omitempty" db:"content_hash"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Course groups slides. Its title is used when synthesizing filler text.
type Course struct {
	ID    string `json:"id" db:"id"`
	Title string `json:"title" db:"title"`
}

// SlideInput is the input for creating or replacing a slide through the API.
// Content accepts any JSON value; strings are stored verbatim, everything else
// is stored as its JSON encoding.
type SlideInput struct {
	ID          string      `json:"id,omitempty"`
	Title       string      `json:"title,omitempty"`
	CourseID    string      `json:"course_id,omitempty"`
	CourseTitle string      `json:"course_title,omitempty"`
	Content     interface{} `json:"content,omitempty"`
	TextContent string      `json:"text_content,omitempty"`
}

// Supplement is stored filler text for a topic title, used when a slide is too thin.
type Supplement struct {
	Topic   string `json:"topic" db:"topic"`
	Content string `json:"content" db:"content"`
}

// Profile is a learner's classification result.
type Profile struct {
	UserID        string    `json:"user_id" db:"user_id"`
	LearningSpeed Tier      `json:"learning_speed" db:"learning_speed"`
	IsClassified  bool      `json:"is_classified" db:"is_classified"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// TierOrDefault returns the learner's tier, or DefaultTier for unclassified profiles.
func (p *Profile) TierOrDefault() Tier {
	if p == nil || !p.IsClassified || !p.LearningSpeed.Valid() {
		return DefaultTier
	}
	return p.LearningSpeed
}
