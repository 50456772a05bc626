// Package ingest turns uploaded slides and slide files into stored, searchable
// content items and invalidates cached decks whose source changed.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/fuda/internal/extract"
	"github.com/hyperjump/fuda/internal/fileid"
	"github.com/hyperjump/fuda/internal/keyword"
	"github.com/hyperjump/fuda/internal/models"
	"github.com/hyperjump/fuda/internal/normalize"
	"github.com/hyperjump/fuda/internal/storage"
)

// Invalidator drops every cached deck of a slide.
type Invalidator interface {
	InvalidateAll(ctx context.Context, contentID string) error
}

// Result describes one ingested slide.
type Result struct {
	Slide *models.ContentItem
	// Changed is false when the slide already existed with identical content.
	Changed bool
}

// Ingester stores slides, indexes them and keeps the deck cache consistent.
type Ingester struct {
	storage     storage.Storage
	index       keyword.SlideIndex
	invalidator Invalidator
	extractor   *extract.Extractor
	extensions  []string
	courseDirs  bool
	logger      *zap.Logger
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(in *Ingester) { in.logger = l }
}

// WithExtensions limits file ingestion to the given extensions.
func WithExtensions(exts []string) Option {
	return func(in *Ingester) { in.extensions = exts }
}

// WithCourseFromDirectory makes the parent directory of a file its course.
func WithCourseFromDirectory(enabled bool) Option {
	return func(in *Ingester) { in.courseDirs = enabled }
}

// WithInvalidator sets where changed slides drop their decks.
func WithInvalidator(inv Invalidator) Option {
	return func(in *Ingester) { in.invalidator = inv }
}

// New creates an ingester. index may be nil to skip search indexing.
func New(st storage.Storage, index keyword.SlideIndex, extractor *extract.Extractor, opts ...Option) *Ingester {
	in := &Ingester{
		storage:    st,
		index:      index,
		extractor:  extractor,
		courseDirs: true,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// IngestSlide stores a slide posted through the API. A missing id gets a UUID.
// String content is stored verbatim; any other JSON value is stored encoded.
func (in *Ingester) IngestSlide(ctx context.Context, input *models.SlideInput) (*Result, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = uuid.New().String()
	}
	content, err := encodeContent(input.Content)
	if err != nil {
		return nil, err
	}
	if input.CourseID != "" && input.CourseTitle != "" {
		if err := in.storage.UpsertCourse(ctx, &models.Course{ID: input.CourseID, Title: input.CourseTitle}); err != nil {
			return nil, fmt.Errorf("failed to store course: %w", err)
		}
	}
	return in.store(ctx, &models.ContentItem{
		ID:          id,
		Title:       strings.TrimSpace(input.Title),
		CourseID:    input.CourseID,
		Content:     content,
		TextContent: input.TextContent,
	})
}

func encodeContent(v interface{}) (string, error) {
	switch c := v.(type) {
	case nil:
		return "", nil
	case string:
		return c, nil
	default:
		data, err := json.Marshal(c)
		if err != nil {
			return "", fmt.Errorf("failed to encode content: %w", err)
		}
		return string(data), nil
	}
}

// IngestFile extracts a slide file and stores it under an id derived from its
// absolute path. Returns an error if the extension is not allowed, the path is
// not a regular file or extraction fails.
func (in *Ingester) IngestFile(ctx context.Context, path string) (*Result, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	if !in.allowed(absPath) {
		return nil, fmt.Errorf("extension %q not in allowed list", filepath.Ext(absPath))
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	in.logger.Debug("Ingesting file", zap.String("path", absPath))

	doc, err := in.extractor.Extract(absPath)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	title := doc.Title
	if title == "" {
		base := filepath.Base(absPath)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	item := &models.ContentItem{
		ID:          fileid.SlideID(absPath),
		Title:       title,
		TextContent: doc.Text,
		SourcePath:  absPath,
	}
	if in.courseDirs {
		dir := filepath.Base(filepath.Dir(absPath))
		if dir != "" && dir != "." && dir != string(filepath.Separator) {
			item.CourseID = courseID(dir)
			if err := in.storage.UpsertCourse(ctx, &models.Course{ID: item.CourseID, Title: dir}); err != nil {
				return nil, fmt.Errorf("failed to store course: %w", err)
			}
		}
	}
	return in.store(ctx, item)
}

// courseID turns a directory name into a course id.
func courseID(dir string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(dir)), " ", "-")
}

// IngestDirectory walks dir and ingests every regular file with an allowed
// extension. Returns the number of slides ingested and the first error.
func (in *Ingester) IngestDirectory(ctx context.Context, dir string, recursive bool) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != absDir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !in.allowed(path) {
			return nil
		}
		// Resolve symlinks so only regular files are ingested.
		if finfo, statErr := os.Stat(path); statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		if _, ingestErr := in.IngestFile(ctx, path); ingestErr != nil {
			return ingestErr
		}
		n++
		return nil
	})
	return n, err
}

// store upserts item when its content hash differs from the stored one,
// invalidating decks built from the old content, and (re)indexes it.
func (in *Ingester) store(ctx context.Context, item *models.ContentItem) (*Result, error) {
	item.ContentHash = fileid.ContentHash(item.Title, item.Content, item.TextContent)

	existing, err := in.storage.GetSlide(ctx, item.ID)
	switch {
	case err == nil && existing.ContentHash == item.ContentHash && existing.CourseID == item.CourseID:
		// Unchanged: make sure the index has it, e.g. after the index directory was removed.
		if err := in.indexSlide(ctx, existing); err != nil {
			return nil, err
		}
		in.logger.Debug("Slide unchanged", zap.String("content_id", item.ID))
		return &Result{Slide: existing, Changed: false}, nil
	case err == nil:
		item.CreatedAt = existing.CreatedAt
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("failed to load slide: %w", err)
	}

	if err := in.storage.UpsertSlide(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to store slide: %w", err)
	}
	if existing != nil && in.invalidator != nil {
		if err := in.invalidator.InvalidateAll(ctx, item.ID); err != nil {
			in.logger.Warn("Failed to invalidate decks of changed slide", zap.String("content_id", item.ID), zap.Error(err))
		}
	}
	if err := in.indexSlide(ctx, item); err != nil {
		return nil, err
	}
	in.logger.Debug("Slide stored", zap.String("content_id", item.ID), zap.Bool("replaced", existing != nil))
	return &Result{Slide: item, Changed: true}, nil
}

func (in *Ingester) indexSlide(ctx context.Context, item *models.ContentItem) error {
	if in.index == nil {
		return nil
	}
	indexed := *item
	indexed.TextContent = normalize.Item(item)
	if err := in.index.Index(ctx, &indexed); err != nil {
		return fmt.Errorf("failed to index slide: %w", err)
	}
	return nil
}

// Remove deletes a slide, its index entry and its cached decks.
func (in *Ingester) Remove(ctx context.Context, id string) error {
	if _, err := in.storage.GetSlide(ctx, id); err != nil {
		return err
	}
	if in.index != nil {
		if err := in.index.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete from index: %w", err)
		}
	}
	if err := in.storage.DeleteSlide(ctx, id); err != nil {
		return fmt.Errorf("failed to delete slide: %w", err)
	}
	if in.invalidator != nil {
		if err := in.invalidator.InvalidateAll(ctx, id); err != nil {
			in.logger.Warn("Failed to invalidate decks of removed slide", zap.String("content_id", id), zap.Error(err))
		}
	}
	in.logger.Debug("Slide removed", zap.String("content_id", id))
	return nil
}

// RemoveFile deletes the slide ingested from path, if any.
func (in *Ingester) RemoveFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	err = in.Remove(ctx, fileid.SlideID(absPath))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

func (in *Ingester) allowed(path string) bool {
	if len(in.extensions) == 0 {
		return true
	}
	return extensionAllowed(filepath.Ext(path), in.extensions)
}

func extensionAllowed(ext string, allowed []string) bool {
	if ext == "" {
		return false
	}
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == ext {
			return true
		}
	}
	return false
}
