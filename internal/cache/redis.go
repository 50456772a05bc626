package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hyperjump/fuda/internal/config"
	"github.com/hyperjump/fuda/internal/models"
	"github.com/hyperjump/fuda/internal/storage"
)

// Redis stores decks as JSON values in a redis server. Keys never expire;
// entries are removed by explicit invalidation only.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to the server described by cfg and pings it.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return NewRedisWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(contentID string, tier models.Tier) string {
	return r.prefix + Key(contentID, tier)
}

// GetCachedDeck fetches and decodes a deck.
func (r *Redis) GetCachedDeck(ctx context.Context, contentID string, tier models.Tier) (*models.CacheEntry, error) {
	key := r.key(contentID, tier)
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("deck %s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal deck: %w", err)
	}
	return &entry, nil
}

// UpsertCachedDeck overwrites the stored deck.
func (r *Redis) UpsertCachedDeck(ctx context.Context, contentID string, tier models.Tier, deck *models.Deck) error {
	stored := *deck
	stored.Cached = false
	entry := models.CacheEntry{ContentID: contentID, Tier: tier, Deck: &stored, CreatedAt: time.Now()}
	data, err := json.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("failed to marshal deck: %w", err)
	}
	if err := r.client.Set(ctx, r.key(contentID, tier), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// DeleteCachedDeck removes one deck.
func (r *Redis) DeleteCachedDeck(ctx context.Context, contentID string, tier models.Tier) error {
	return r.client.Del(ctx, r.key(contentID, tier)).Err()
}

// DeleteCachedDecks removes the decks of every tier for contentID.
func (r *Redis) DeleteCachedDecks(ctx context.Context, contentID string) error {
	keys := make([]string, 0, len(models.Tiers))
	for _, t := range models.Tiers {
		keys = append(keys, r.key(contentID, t))
	}
	return r.client.Del(ctx, keys...).Err()
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
