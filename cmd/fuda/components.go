package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/fuda/internal/cache"
	"github.com/hyperjump/fuda/internal/config"
	"github.com/hyperjump/fuda/internal/extract"
	"github.com/hyperjump/fuda/internal/flashcards"
	"github.com/hyperjump/fuda/internal/ingest"
	"github.com/hyperjump/fuda/internal/keyword"
	"github.com/hyperjump/fuda/internal/llm"
	"github.com/hyperjump/fuda/internal/storage"
)

// Components holds initialized services.
type Components struct {
	Storage  *storage.SQLiteStorage
	Index    *keyword.BleveIndex
	Cache    cache.Store
	Decks    *flashcards.Service
	Ingester *ingest.Ingester
	redis    *cache.Redis
}

// Close releases every opened resource.
func (c *Components) Close() {
	if c.redis != nil {
		_ = c.redis.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = store

	var back cache.Store = store
	if cfg.Cache.Backend == "redis" {
		r, err := cache.NewRedis(ctx, cfg.Cache.Redis)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize deck cache: %w", err)
		}
		c.redis = r
		back = r
	}
	c.Cache = cache.NewTiered(back, memoryItems(cfg))
	logger.Debug("deck cache initialized",
		zap.String("backend", cfg.Cache.Backend),
		zap.Int("memory_items", memoryItems(cfg)))

	index, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize slide index: %w", err)
	}
	c.Index = index

	deps := flashcards.Deps{
		Content:     store,
		Profiles:    store,
		Supplements: store,
		Cache:       c.Cache,
		Logger:      logger,
	}
	completer, err := llm.New(ctx, cfg.Model, logger)
	switch {
	case errors.Is(err, llm.ErrNoCredential):
		logger.Info("No model credential configured; decks come from samples and templates")
	case err != nil:
		logger.Warn("Model client unavailable; decks come from samples and templates", zap.Error(err))
	default:
		deps.Completer = completer
	}
	c.Decks = flashcards.New(cfg, deps)

	c.Ingester = ingest.New(store, index, extract.NewExtractor(),
		ingest.WithExtensions(cfg.Watch.Extensions),
		ingest.WithCourseFromDirectory(cfg.Watch.CourseFromDirectoryOrDefault()),
		ingest.WithInvalidator(c.Decks),
		ingest.WithLogger(logger),
	)
	return c, nil
}

// memoryItems sizes the in-process LRU. Redis is shared between instances, so a
// local front would keep serving decks another instance already invalidated.
func memoryItems(cfg *config.Config) int {
	if cfg.Cache.Backend == "redis" {
		return 0
	}
	return cfg.Cache.MemoryItems
}
