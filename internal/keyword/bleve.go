package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/fuda/internal/models"
)

// titleBoost weights title matches over body matches.
const titleBoost = 3.0

// defaultFuzziness is the edit distance used by fuzzy queries.
const defaultFuzziness = 2

// slideDoc is the indexed form of a slide.
type slideDoc struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	CourseID string `json:"course_id"`
}

// BleveIndex implements SlideIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// If you change the mapping, remove the index directory to force a rebuild.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, slideMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func slideMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()
	// Standard analyzer: lowercase and tokenize without stemming, so "graphs" does not match "graph".
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	doc.AddFieldMappingsAt("title", text)
	doc.AddFieldMappingsAt("text", text)
	doc.AddFieldMappingsAt("course_id", bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("slide", doc)
	im.DefaultType = "slide"
	im.DefaultMapping = doc
	return im
}

// Index adds or replaces a slide. Underscores in titles are indexed as spaces
// so file-derived titles like "week_3_graphs" match "graphs".
func (b *BleveIndex) Index(_ context.Context, slide *models.ContentItem) error {
	text := slide.TextContent
	if text == "" {
		text = slide.Content
	}
	return b.index.Index(slide.ID, slideDoc{
		Title:    strings.ReplaceAll(slide.Title, "_", " "),
		Text:     text,
		CourseID: slide.CourseID,
	})
}

// Search scores title and body matches separately and adds them, with title
// scores multiplied by titleBoost. A course id restricts the hits to that course.
func (b *BleveIndex) Search(_ context.Context, q *models.SlideQuery) ([]*Hit, error) {
	reqSize := q.Limit * 2
	if reqSize < 50 {
		reqSize = 50
	}

	scores := make(map[string]float64)
	for _, f := range []struct {
		field string
		boost float64
	}{{"title", titleBoost}, {"text", 1}} {
		query := fieldQuery(q.Query, f.field, q.Fuzzy)
		if q.CourseID != "" {
			course := bleve.NewTermQuery(q.CourseID)
			course.SetField("course_id")
			query = bleve.NewConjunctionQuery(query, course)
		}
		req := bleve.NewSearchRequest(query)
		req.Size = reqSize
		res, err := b.index.Search(req)
		if err != nil {
			return nil, fmt.Errorf("Bleve %s search failed: %w", f.field, err)
		}
		for _, hit := range res.Hits {
			scores[hit.ID] += hit.Score * f.boost
		}
	}

	hits := make([]*Hit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, &Hit{ID: id, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

// fieldQuery builds a match query, or a disjunction of fuzzy term queries when fuzzy is set.
func fieldQuery(query, field string, fuzzy bool) blevequery.Query {
	terms := tokenizeQuery(query)
	if !fuzzy || len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(field)
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(defaultFuzziness)
		fq.SetField(field)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// Delete removes a slide from the index.
func (b *BleveIndex) Delete(_ context.Context, id string) error {
	return b.index.Delete(id)
}

// DocCount returns the number of indexed slides.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Terms returns every term of the title and text fields with its document frequency.
func (b *BleveIndex) Terms() (map[string]int, error) {
	terms := make(map[string]int)
	for _, field := range []string{"title", "text"} {
		dict, err := b.index.FieldDict(field)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s terms: %w", field, err)
		}
		for {
			entry, err := dict.Next()
			if err != nil {
				_ = dict.Close()
				return nil, err
			}
			if entry == nil {
				break
			}
			if int(entry.Count) > terms[entry.Term] {
				terms[entry.Term] = int(entry.Count)
			}
		}
		_ = dict.Close()
	}
	return terms, nil
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
