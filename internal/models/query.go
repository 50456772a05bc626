package models

import "fmt"

// SlideQuery is a keyword search over ingested slides.
type SlideQuery struct {
	Query    string `json:"query"`
	Limit    int    `json:"limit,omitempty"`
	CourseID string `json:"course_id,omitempty"`
	Fuzzy    bool   `json:"fuzzy,omitempty"`
}

// Validate rejects empty queries and clamps the limit to 1..100 (default 10).
func (q *SlideQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// SlideHit is one search result.
type SlideHit struct {
	Slide *ContentItem `json:"slide"`
	Score float64      `json:"score"`
}

// SlideSearchResponse is the response for a slide search.
type SlideSearchResponse struct {
	Hits      []*SlideHit `json:"hits"`
	Total     int         `json:"total"`
	Query     string      `json:"query"`
	QueryTime int64       `json:"query_time_ms"`
}
