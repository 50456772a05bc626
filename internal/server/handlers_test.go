package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/fuda/internal/cache"
	"github.com/hyperjump/fuda/internal/config"
	"github.com/hyperjump/fuda/internal/extract"
	"github.com/hyperjump/fuda/internal/flashcards"
	"github.com/hyperjump/fuda/internal/ingest"
	"github.com/hyperjump/fuda/internal/keyword"
	"github.com/hyperjump/fuda/internal/models"
	"github.com/hyperjump/fuda/internal/storage"
)

const photosynthesis = "Photosynthesis converts light energy into chemical energy stored in glucose. " +
	"Chlorophyll absorbs red and blue light inside the chloroplast. " +
	"The Calvin cycle fixes carbon dioxide into sugar molecules."

type staticWatch []string

func (w staticWatch) Directories() []string { return w }

type testEnv struct {
	srv   *Server
	store *storage.SQLiteStorage
	h     http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DatabasePath = filepath.Join(dir, "db.sqlite")
	cfg.Storage.BleveIndexPath = filepath.Join(dir, "bleve")
	cfg.Model.APIKey = ""

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	index, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = index.Close() })

	logger := zap.NewNop()
	decks := flashcards.New(cfg, flashcards.Deps{
		Content:     store,
		Profiles:    store,
		Supplements: store,
		Cache:       cache.NewTiered(store, 0),
		Logger:      logger,
	})
	ing := ingest.New(store, index, extract.NewExtractor(),
		ingest.WithInvalidator(decks), ingest.WithLogger(logger))
	srv := NewServer(decks, ing, store, index, cfg, logger,
		WithSpeller(keyword.NewSpeller(index, 2)),
		WithWatch(staticWatch{"/srv/slides"}))
	return &testEnv{srv: srv, store: store, h: srv.Router()}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	e.h.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func (e *testEnv) addSlide(t *testing.T, input *models.SlideInput) {
	t.Helper()
	if w := e.do(t, http.MethodPost, "/api/v1/slides", input); w.Code != http.StatusCreated {
		t.Fatalf("POST /slides: %d %s", w.Code, w.Body.String())
	}
}

func TestHandleGenerate(t *testing.T) {
	e := newTestEnv(t)
	e.addSlide(t, &models.SlideInput{ID: "s1", Title: "Photosynthesis", Content: photosynthesis})

	w := e.do(t, http.MethodPost, "/api/v1/flashcards", generateRequest{ContentID: "s1", LearningSpeed: "slow"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var deck generateResponse
	decode(t, w, &deck)
	if deck.ContentID != "s1" || deck.LearningSpeed != models.TierSlow {
		t.Errorf("deck = %+v", deck)
	}
	if len(deck.Flashcards) != 10 {
		t.Errorf("cards = %d, want 10", len(deck.Flashcards))
	}
	if deck.GeneratedBy != models.GeneratedByFallback {
		t.Errorf("generated_by = %q, want fallback", deck.GeneratedBy)
	}
	if deck.Cached {
		t.Error("first response marked cached")
	}

	w = e.do(t, http.MethodPost, "/api/v1/flashcards", generateRequest{ContentID: "s1", LearningSpeed: "slow"})
	var again generateResponse
	decode(t, w, &again)
	if !again.Cached || again.Flashcards[0] != deck.Flashcards[0] {
		t.Errorf("second response not served from cache: %+v", again)
	}
}

func TestHandleGenerate_Errors(t *testing.T) {
	e := newTestEnv(t)
	e.addSlide(t, &models.SlideInput{ID: "blank"})

	tests := []struct {
		name string
		req  generateRequest
		want int
	}{
		{"missing slide", generateRequest{ContentID: "nope"}, http.StatusNotFound},
		{"bad tier", generateRequest{ContentID: "blank", LearningSpeed: "warp"}, http.StatusBadRequest},
		{"no id", generateRequest{}, http.StatusBadRequest},
		{"empty slide", generateRequest{ContentID: "blank"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, "/api/v1/flashcards", tt.req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			var out map[string]string
			decode(t, w, &out)
			if out["error"] == "" {
				t.Error("missing error message")
			}
		})
	}

	w := e.do(t, http.MethodPost, "/api/v1/flashcards", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty body: status = %d", w.Code)
	}
}

func TestHandleGenerate_UsesProfile(t *testing.T) {
	e := newTestEnv(t)
	e.addSlide(t, &models.SlideInput{ID: "s1", Title: "Photosynthesis", Content: photosynthesis})

	w := e.do(t, http.MethodPut, "/api/v1/profiles/u1", profileRequest{LearningSpeed: "fast"})
	if w.Code != http.StatusOK {
		t.Fatalf("PUT profile: %d %s", w.Code, w.Body.String())
	}
	w = e.do(t, http.MethodPut, "/api/v1/profiles/u2", profileRequest{LearningSpeed: "sideways"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad profile tier: status = %d", w.Code)
	}

	w = e.do(t, http.MethodPost, "/api/v1/flashcards", generateRequest{ContentID: "s1", UserID: "u1"})
	var deck generateResponse
	decode(t, w, &deck)
	if deck.LearningSpeed != models.TierFast || len(deck.Flashcards) != 6 {
		t.Errorf("deck tier = %q, cards = %d", deck.LearningSpeed, len(deck.Flashcards))
	}

	w = e.do(t, http.MethodPost, "/api/v1/flashcards", generateRequest{ContentID: "s1", UserID: "unknown"})
	decode(t, w, &deck)
	if deck.LearningSpeed != models.TierModerate {
		t.Errorf("unknown user tier = %q, want moderate", deck.LearningSpeed)
	}
}

func TestHandleInvalidateAndListDecks(t *testing.T) {
	e := newTestEnv(t)
	e.addSlide(t, &models.SlideInput{ID: "s1", Title: "Photosynthesis", Content: photosynthesis})
	for _, tier := range []string{"slow", "fast"} {
		e.do(t, http.MethodPost, "/api/v1/flashcards", generateRequest{ContentID: "s1", LearningSpeed: tier})
	}

	listDecks := func() int {
		w := e.do(t, http.MethodGet, "/api/v1/slides/s1/decks", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("GET decks: %d %s", w.Code, w.Body.String())
		}
		var out struct {
			Decks []*models.CacheEntry `json:"decks"`
		}
		decode(t, w, &out)
		return len(out.Decks)
	}
	if n := listDecks(); n != 2 {
		t.Fatalf("decks = %d, want 2", n)
	}

	w := e.do(t, http.MethodDelete, "/api/v1/flashcards/s1?learning_speed=fast", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("DELETE fast: %d", w.Code)
	}
	if n := listDecks(); n != 1 {
		t.Errorf("decks after tier invalidation = %d, want 1", n)
	}
	e.do(t, http.MethodDelete, "/api/v1/flashcards/s1", nil)
	if n := listDecks(); n != 0 {
		t.Errorf("decks after full invalidation = %d, want 0", n)
	}

	if w := e.do(t, http.MethodGet, "/api/v1/slides/missing/decks", nil); w.Code != http.StatusNotFound {
		t.Errorf("decks of missing slide: status = %d", w.Code)
	}
}

func TestHandleIngestSlide_ChangeInvalidatesDecks(t *testing.T) {
	e := newTestEnv(t)
	e.addSlide(t, &models.SlideInput{ID: "s1", Title: "Photosynthesis", Content: photosynthesis})
	e.do(t, http.MethodPost, "/api/v1/flashcards", generateRequest{ContentID: "s1"})

	e.addSlide(t, &models.SlideInput{ID: "s1", Title: "Photosynthesis", Content: photosynthesis + " Oxygen is released."})
	n, err := e.store.CountCachedDecks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("cached decks after content change = %d, want 0", n)
	}
}

func TestHandleSlides_GetAndDelete(t *testing.T) {
	e := newTestEnv(t)
	e.addSlide(t, &models.SlideInput{ID: "s1", Title: "Photosynthesis", Content: photosynthesis})

	w := e.do(t, http.MethodGet, "/api/v1/slides/s1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET slide: %d", w.Code)
	}
	var slide models.ContentItem
	decode(t, w, &slide)
	if slide.Title != "Photosynthesis" || slide.ContentHash == "" {
		t.Errorf("slide = %+v", slide)
	}

	if w := e.do(t, http.MethodDelete, "/api/v1/slides/s1", nil); w.Code != http.StatusOK {
		t.Fatalf("DELETE slide: %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/api/v1/slides/s1", nil); w.Code != http.StatusNotFound {
		t.Errorf("GET deleted slide: %d", w.Code)
	}
	if w := e.do(t, http.MethodDelete, "/api/v1/slides/s1", nil); w.Code != http.StatusNotFound {
		t.Errorf("DELETE deleted slide: %d", w.Code)
	}
}

func TestHandleSearch(t *testing.T) {
	e := newTestEnv(t)
	e.addSlide(t, &models.SlideInput{ID: "s1", Title: "Photosynthesis", CourseID: "bio", Content: photosynthesis})
	e.addSlide(t, &models.SlideInput{ID: "s2", Title: "Mitosis", CourseID: "bio", Content: "Cells divide into two daughter cells."})

	w := e.do(t, http.MethodGet, "/api/v1/slides/search?q=chlorophyll", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search: %d %s", w.Code, w.Body.String())
	}
	var out searchResponse
	decode(t, w, &out)
	if out.Total != 1 || out.Hits[0].Slide.ID != "s1" {
		t.Errorf("search = %+v", out.SlideSearchResponse)
	}

	w = e.do(t, http.MethodGet, "/api/v1/slides/search?q=chlorophyl", nil)
	out = searchResponse{}
	decode(t, w, &out)
	if out.Total != 0 || out.Suggestion != "chlorophyll" {
		t.Errorf("total = %d, suggestion = %q", out.Total, out.Suggestion)
	}

	if w := e.do(t, http.MethodGet, "/api/v1/slides/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("empty query: status = %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/api/v1/slides/search?q=cells&limit=x", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status = %d", w.Code)
	}
}

func TestHandlePutSupplement(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodPut, "/api/v1/supplements", models.Supplement{Topic: "Enzymes", Content: "Enzymes lower activation energy."})
	if w.Code != http.StatusOK {
		t.Fatalf("PUT supplement: %d %s", w.Code, w.Body.String())
	}
	got, err := e.store.GetSupplement(context.Background(), "Enzymes")
	if err != nil || got != "Enzymes lower activation energy." {
		t.Errorf("supplement = %q, err = %v", got, err)
	}
	if w := e.do(t, http.MethodPut, "/api/v1/supplements", models.Supplement{Topic: "Enzymes"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing content: status = %d", w.Code)
	}
}

func TestHandleStatusAndHealth(t *testing.T) {
	e := newTestEnv(t)
	e.addSlide(t, &models.SlideInput{ID: "s1", Title: "Photosynthesis", CourseID: "bio", CourseTitle: "Biology", Content: photosynthesis})

	w := e.do(t, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	var out map[string]interface{}
	decode(t, w, &out)
	if out["slides"] != float64(1) || out["courses"] != float64(1) || out["cached_decks"] != float64(0) {
		t.Errorf("counts = %v", out)
	}
	if out["indexed_slides"] != float64(1) {
		t.Errorf("indexed_slides = %v", out["indexed_slides"])
	}
	dirs, _ := out["watch_directories"].([]interface{})
	if len(dirs) != 1 || dirs[0] != "/srv/slides" {
		t.Errorf("watch_directories = %v", out["watch_directories"])
	}

	w = e.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("health: %d", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{storage.ErrNotFound, http.StatusNotFound},
		{flashcards.ErrEmptyContent, http.StatusUnprocessableEntity},
		{models.ErrInvalidTier, http.StatusBadRequest},
		{flashcards.ErrInput, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
