package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/fuda/internal/flashcards"
	"github.com/hyperjump/fuda/internal/models"
	"github.com/hyperjump/fuda/internal/storage"
)

type generateRequest struct {
	ContentID     string `json:"content_id"`
	LearningSpeed string `json:"learning_speed,omitempty"`
	UserID        string `json:"user_id,omitempty"`
}

type generateResponse struct {
	ContentID string `json:"content_id"`
	*models.Deck
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("generate request",
		zap.String("content_id", req.ContentID),
		zap.String("tier", req.LearningSpeed),
		zap.String("user_id", req.UserID))

	var (
		deck *models.Deck
		err  error
	)
	if req.LearningSpeed == "" && req.UserID != "" {
		deck, err = s.decks.GenerateForUser(r.Context(), req.UserID, req.ContentID)
	} else {
		var tier models.Tier
		tier, err = models.ParseTier(req.LearningSpeed)
		if err == nil {
			deck, err = s.decks.GenerateDeck(r.Context(), req.ContentID, tier)
		}
	}
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, generateResponse{ContentID: req.ContentID, Deck: deck})
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "slideID")
	speed := r.URL.Query().Get("learning_speed")
	var err error
	if speed == "" {
		err = s.decks.InvalidateAll(r.Context(), id)
	} else {
		var tier models.Tier
		tier, err = models.ParseTier(speed)
		if err == nil {
			err = s.decks.Invalidate(r.Context(), id, tier)
		}
	}
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"content_id": id, "status": "invalidated"})
}

func (s *Server) handleIngestSlide(w http.ResponseWriter, r *http.Request) {
	var input models.SlideInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ingest slide request", zap.String("content_id", input.ID), zap.String("title", input.Title))
	res, err := s.ingester.IngestSlide(r.Context(), &input)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":      res.Slide.ID,
		"changed": res.Changed,
		"status":  "stored",
	})
}

func (s *Server) handleGetSlide(w http.ResponseWriter, r *http.Request) {
	slide, err := s.storage.GetSlide(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, slide)
}

func (s *Server) handleDeleteSlide(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete slide request", zap.String("content_id", id))
	if err := s.ingester.Remove(r.Context(), id); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListDecks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if _, err := s.storage.GetSlide(ctx, id); err != nil {
		s.respondErr(w, err)
		return
	}
	entries, err := s.storage.ListCachedDecks(ctx, id)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if entries == nil {
		entries = []*models.CacheEntry{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"content_id": id, "decks": entries})
}

type searchResponse struct {
	*models.SlideSearchResponse
	Suggestion string `json:"suggestion,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	params := r.URL.Query()
	q := &models.SlideQuery{
		Query:    strings.TrimSpace(params.Get("q")),
		CourseID: params.Get("course_id"),
		Fuzzy:    params.Get("fuzzy") == "true",
	}
	if v := params.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		q.Limit = limit
	}
	if err := q.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("search request", zap.String("query", q.Query), zap.Int("limit", q.Limit))

	ctx := r.Context()
	hits, err := s.index.Search(ctx, q)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := &models.SlideSearchResponse{Query: q.Query, Hits: make([]*models.SlideHit, 0, len(hits))}
	for _, h := range hits {
		slide, err := s.storage.GetSlide(ctx, h.ID)
		if err != nil {
			// Index and store can briefly disagree while a slide is being removed.
			s.logger.Debug("search hit without slide", zap.String("content_id", h.ID), zap.Error(err))
			continue
		}
		resp.Hits = append(resp.Hits, &models.SlideHit{Slide: slide, Score: h.Score})
	}
	resp.Total = len(resp.Hits)
	resp.QueryTime = time.Since(start).Milliseconds()

	out := searchResponse{SlideSearchResponse: resp}
	if resp.Total == 0 && s.speller != nil {
		suggestion, err := s.speller.Suggest(q.Query)
		if err != nil {
			s.logger.Warn("spelling suggestion failed", zap.Error(err))
		}
		out.Suggestion = suggestion
	}
	s.respondJSON(w, http.StatusOK, out)
}

type profileRequest struct {
	LearningSpeed string `json:"learning_speed"`
	IsClassified  *bool  `json:"is_classified,omitempty"`
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tier, err := models.ParseTier(req.LearningSpeed)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	profile := &models.Profile{
		UserID:        chi.URLParam(r, "userID"),
		LearningSpeed: tier,
		IsClassified:  req.IsClassified == nil || *req.IsClassified,
	}
	if err := s.storage.UpsertProfile(r.Context(), profile); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, profile)
}

func (s *Server) handlePutSupplement(w http.ResponseWriter, r *http.Request) {
	var sup models.Supplement
	if err := json.NewDecoder(r.Body).Decode(&sup); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(sup.Topic) == "" || strings.TrimSpace(sup.Content) == "" {
		s.respondError(w, http.StatusBadRequest, "topic and content are required")
		return
	}
	if err := s.storage.PutSupplement(r.Context(), sup.Topic, sup.Content); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"topic": sup.Topic, "status": "stored"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	counts := map[string]func() (int64, error){
		"slides":       func() (int64, error) { return s.storage.CountSlides(ctx) },
		"courses":      func() (int64, error) { return s.storage.CountCourses(ctx) },
		"cached_decks": func() (int64, error) { return s.storage.CountCachedDecks(ctx) },
	}
	resp := map[string]interface{}{}
	for name, count := range counts {
		n, err := count()
		if err != nil {
			s.logger.Error("status: count failed", zap.String("table", name), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp[name] = n
	}
	if s.index != nil {
		if n, err := s.index.DocCount(); err == nil {
			resp["indexed_slides"] = n
		}
	}
	if s.config != nil {
		resp["config"] = map[string]interface{}{
			"cache_backend":    s.config.Cache.Backend,
			"model_provider":   s.config.Model.Provider,
			"model_enabled":    s.config.Model.APIKey != "",
			"deck_sizes":       s.config.Generation.DeckSizes,
			"database_path":    s.config.Storage.DatabasePath,
			"bleve_index_path": s.config.Storage.BleveIndexPath,
		}
		paths := append(storage.DatabaseFiles(s.config.Storage.DatabasePath), s.config.Storage.BleveIndexPath)
		if diskBytes, err := storage.DiskUsageBytes(paths...); err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	if s.watch != nil {
		resp["watch_directories"] = s.watch.Directories()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// statusFor maps pipeline and storage errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, flashcards.ErrEmptyContent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrInvalidTier), errors.Is(err, flashcards.ErrInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.respondJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
