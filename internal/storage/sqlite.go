package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/fuda/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

var _ Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS courses (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS slides (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		course_id TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		text_content TEXT NOT NULL DEFAULT '',
		source_path TEXT NOT NULL DEFAULT '',
		content_hash TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_slides_course_id ON slides(course_id);

	CREATE TABLE IF NOT EXISTS supplementary_content (
		topic TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		learning_speed TEXT NOT NULL,
		is_classified INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS cached_decks (
		slide_id TEXT NOT NULL,
		learning_speed TEXT NOT NULL,
		deck_data TEXT NOT NULL,
		generated_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (slide_id, learning_speed)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertSlide inserts a slide or replaces every field except created_at.
func (s *SQLiteStorage) UpsertSlide(ctx context.Context, slide *models.ContentItem) error {
	now := time.Now()
	if slide.CreatedAt.IsZero() {
		slide.CreatedAt = now
	}
	slide.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO slides (id, title, course_id, content, text_content, source_path, content_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			course_id = excluded.course_id,
			content = excluded.content,
			text_content = excluded.text_content,
			source_path = excluded.source_path,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at`,
		slide.ID, slide.Title, slide.CourseID, slide.Content, slide.TextContent, slide.SourcePath,
		slide.ContentHash, slide.CreatedAt, slide.UpdatedAt,
	)
	return err
}

const slideColumns = `id, title, course_id, content, text_content, source_path, content_hash, created_at, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSlide(row scanner) (*models.ContentItem, error) {
	var slide models.ContentItem
	err := row.Scan(&slide.ID, &slide.Title, &slide.CourseID, &slide.Content, &slide.TextContent,
		&slide.SourcePath, &slide.ContentHash, &slide.CreatedAt, &slide.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &slide, nil
}

// GetSlide returns a slide by ID.
func (s *SQLiteStorage) GetSlide(ctx context.Context, id string) (*models.ContentItem, error) {
	slide, err := scanSlide(s.db.QueryRowContext(ctx, `SELECT `+slideColumns+` FROM slides WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("slide %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return slide, nil
}

// DeleteSlide removes a slide and its cached decks.
func (s *SQLiteStorage) DeleteSlide(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cached_decks WHERE slide_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM slides WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// ListSlides returns slides, newest first. An empty courseID lists every course.
func (s *SQLiteStorage) ListSlides(ctx context.Context, courseID string, offset, limit int) ([]*models.ContentItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+slideColumns+` FROM slides
		 WHERE (? = '' OR course_id = ?)
		 ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		courseID, courseID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slides []*models.ContentItem
	for rows.Next() {
		slide, err := scanSlide(rows)
		if err != nil {
			return nil, err
		}
		slides = append(slides, slide)
	}
	return slides, rows.Err()
}

// UpsertCourse inserts or renames a course.
func (s *SQLiteStorage) UpsertCourse(ctx context.Context, course *models.Course) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO courses (id, title) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title`,
		course.ID, course.Title,
	)
	return err
}

// GetCourse returns a course by ID.
func (s *SQLiteStorage) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	var c models.Course
	err := s.db.QueryRowContext(ctx, `SELECT id, title FROM courses WHERE id = ?`, id).Scan(&c.ID, &c.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("course %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// PutSupplement stores filler text for an exact topic title.
func (s *SQLiteStorage) PutSupplement(ctx context.Context, topic, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO supplementary_content (topic, content, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(topic) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		topic, content, time.Now(),
	)
	return err
}

// GetSupplement returns the filler text for topic, or "" when none is stored.
func (s *SQLiteStorage) GetSupplement(ctx context.Context, topic string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM supplementary_content WHERE topic = ?`, topic).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return content, err
}

// UpsertProfile stores a learner's classification.
func (s *SQLiteStorage) UpsertProfile(ctx context.Context, p *models.Profile) error {
	p.UpdatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, learning_speed, is_classified, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			learning_speed = excluded.learning_speed,
			is_classified = excluded.is_classified,
			updated_at = excluded.updated_at`,
		p.UserID, string(p.LearningSpeed), p.IsClassified, p.UpdatedAt,
	)
	return err
}

// GetProfile returns a learner profile.
func (s *SQLiteStorage) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	var speed string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, learning_speed, is_classified, updated_at FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &speed, &p.IsClassified, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	p.LearningSpeed = models.Tier(speed)
	return &p, nil
}

// GetCachedDeck returns the cached deck for (contentID, tier).
func (s *SQLiteStorage) GetCachedDeck(ctx context.Context, contentID string, tier models.Tier) (*models.CacheEntry, error) {
	var data string
	entry := &models.CacheEntry{ContentID: contentID, Tier: tier}
	err := s.db.QueryRowContext(ctx,
		`SELECT deck_data, created_at FROM cached_decks WHERE slide_id = ? AND learning_speed = ?`,
		contentID, string(tier),
	).Scan(&data, &entry.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("deck %s/%s: %w", contentID, tier, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &entry.Deck); err != nil {
		return nil, fmt.Errorf("failed to unmarshal deck: %w", err)
	}
	return entry, nil
}

// UpsertCachedDeck stores a deck; the last write for a key wins.
func (s *SQLiteStorage) UpsertCachedDeck(ctx context.Context, contentID string, tier models.Tier, deck *models.Deck) error {
	stored := *deck
	stored.Cached = false
	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to marshal deck: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cached_decks (slide_id, learning_speed, deck_data, generated_by, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(slide_id, learning_speed) DO UPDATE SET
			deck_data = excluded.deck_data,
			generated_by = excluded.generated_by,
			created_at = excluded.created_at`,
		contentID, string(tier), string(data), string(deck.GeneratedBy), time.Now(),
	)
	return err
}

// DeleteCachedDeck removes one cached deck. Deleting a missing deck is not an error.
func (s *SQLiteStorage) DeleteCachedDeck(ctx context.Context, contentID string, tier models.Tier) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cached_decks WHERE slide_id = ? AND learning_speed = ?`, contentID, string(tier))
	return err
}

// DeleteCachedDecks removes every cached deck of a slide.
func (s *SQLiteStorage) DeleteCachedDecks(ctx context.Context, contentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cached_decks WHERE slide_id = ?`, contentID)
	return err
}

// ListCachedDecks returns every cached deck of a slide ordered by tier name.
func (s *SQLiteStorage) ListCachedDecks(ctx context.Context, contentID string) ([]*models.CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT learning_speed, deck_data, created_at FROM cached_decks WHERE slide_id = ? ORDER BY learning_speed`,
		contentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.CacheEntry
	for rows.Next() {
		var tier, data string
		entry := &models.CacheEntry{ContentID: contentID}
		if err := rows.Scan(&tier, &data, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Tier = models.Tier(tier)
		if err := json.Unmarshal([]byte(data), &entry.Deck); err != nil {
			return nil, fmt.Errorf("failed to unmarshal deck: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// DeleteOrphanDecks removes cached decks whose slide no longer exists.
func (s *SQLiteStorage) DeleteOrphanDecks(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cached_decks WHERE slide_id NOT IN (SELECT id FROM slides)`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStorage) count(ctx context.Context, table string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n)
	return n, err
}

// CountSlides returns the total number of slides.
func (s *SQLiteStorage) CountSlides(ctx context.Context) (int64, error) {
	return s.count(ctx, "slides")
}

// CountCourses returns the total number of courses.
func (s *SQLiteStorage) CountCourses(ctx context.Context) (int64, error) {
	return s.count(ctx, "courses")
}

// CountCachedDecks returns the total number of cached decks.
func (s *SQLiteStorage) CountCachedDecks(ctx context.Context) (int64, error) {
	return s.count(ctx, "cached_decks")
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
