// Package config provides configuration loading and structs for the fuda server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/fuda/internal/models"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Cache      CacheConfig      `yaml:"cache"`
	Generation GenerationConfig `yaml:"generation"`
	Model      ModelConfig      `yaml:"model"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the database and the slide index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// CacheConfig selects where generated decks are kept.
type CacheConfig struct {
	// Backend is "sqlite" (decks live next to the slides) or "redis".
	Backend string `yaml:"backend"`
	// MemoryItems sizes the in-process LRU in front of the sqlite backend. 0 disables it.
	// The redis backend never gets one.
	MemoryItems int `yaml:"memory_items"`
	// SweepSchedule is a cron spec for deleting decks of removed slides. Empty disables it.
	SweepSchedule string      `yaml:"sweep_schedule"`
	Redis         RedisConfig `yaml:"redis"`
}

// RedisConfig holds connection settings for the redis cache backend.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// GenerationConfig holds the thresholds of the generation pipeline.
type GenerationConfig struct {
	MinContentLength int       `yaml:"min_content_length"`
	MinChunkLength   int       `yaml:"min_chunk_length"`
	MinChunks        int       `yaml:"min_chunks"`
	MinKeyTerms      int       `yaml:"min_key_terms"`
	DeckSizes        DeckSizes `yaml:"deck_sizes"`
}

// DeckSizes is the target number of cards per tier.
type DeckSizes struct {
	Slow     int `yaml:"slow"`
	Moderate int `yaml:"moderate"`
	Fast     int `yaml:"fast"`
}

// For returns the configured size for t.
func (d DeckSizes) For(t models.Tier) int {
	switch t {
	case models.TierSlow:
		return d.Slow
	case models.TierFast:
		return d.Fast
	default:
		return d.Moderate
	}
}

// ModelConfig holds generative model settings.
type ModelConfig struct {
	// Provider is "openai" (any OpenAI-compatible endpoint) or "gemini".
	Provider          string        `yaml:"provider"`
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"base_url"`
	Temperature       float32       `yaml:"temperature"`
	MaxTokens         int           `yaml:"max_tokens"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
	// CourseFromDirectory files a slide under a course named after its parent directory.
	CourseFromDirectory *bool `yaml:"course_from_directory"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// CourseFromDirectoryOrDefault defaults to true when unset.
func (w *WatchConfig) CourseFromDirectoryOrDefault() bool {
	if w.CourseFromDirectory != nil {
		return *w.CourseFromDirectory
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks value ranges that defaults cannot fix.
func (c *Config) Validate() error {
	g := c.Generation
	if g.MinContentLength < 50 || g.MinContentLength > 100 {
		return fmt.Errorf("generation.min_content_length must be between 50 and 100, got %d", g.MinContentLength)
	}
	s := g.DeckSizes
	if s.Fast <= 0 || s.Moderate < s.Fast || s.Slow < s.Moderate {
		return fmt.Errorf("generation.deck_sizes must satisfy slow >= moderate >= fast > 0, got %d/%d/%d",
			s.Slow, s.Moderate, s.Fast)
	}
	switch c.Cache.Backend {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("cache.backend must be sqlite or redis, got %q", c.Cache.Backend)
	}
	switch c.Model.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("model.provider must be openai or gemini, got %q", c.Model.Provider)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
