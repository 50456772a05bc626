package config

import (
	"os"
	"time"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/fuda/data/db/fuda.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/fuda/data/indices/slides"
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "sqlite"
	}
	if cfg.Cache.Redis.Addr == "" {
		cfg.Cache.Redis.Addr = "localhost:6379"
	}
	if cfg.Cache.Redis.KeyPrefix == "" {
		cfg.Cache.Redis.KeyPrefix = "fuda:deck:"
	}
	if cfg.Generation.MinContentLength == 0 {
		cfg.Generation.MinContentLength = 100
	}
	if cfg.Generation.MinChunkLength == 0 {
		cfg.Generation.MinChunkLength = 10
	}
	if cfg.Generation.MinChunks == 0 {
		cfg.Generation.MinChunks = 3
	}
	if cfg.Generation.MinKeyTerms == 0 {
		cfg.Generation.MinKeyTerms = 5
	}
	if cfg.Generation.DeckSizes.Slow == 0 {
		cfg.Generation.DeckSizes.Slow = 10
	}
	if cfg.Generation.DeckSizes.Moderate == 0 {
		cfg.Generation.DeckSizes.Moderate = 8
	}
	if cfg.Generation.DeckSizes.Fast == 0 {
		cfg.Generation.DeckSizes.Fast = 6
	}
	if cfg.Model.Provider == "" {
		cfg.Model.Provider = "openai"
	}
	if cfg.Model.Model == "" {
		if cfg.Model.Provider == "gemini" {
			cfg.Model.Model = "gemini-2.5-flash"
		} else {
			cfg.Model.Model = "gpt-4"
		}
	}
	if cfg.Model.APIKey == "" {
		if cfg.Model.Provider == "gemini" {
			cfg.Model.APIKey = os.Getenv("GOOGLE_API_KEY")
		} else {
			cfg.Model.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if cfg.Model.Temperature == 0 {
		cfg.Model.Temperature = 0.5
	}
	if cfg.Model.MaxTokens == 0 {
		cfg.Model.MaxTokens = 2048
	}
	if cfg.Model.Timeout == 0 {
		cfg.Model.Timeout = 30 * time.Second
	}
	if cfg.Model.RequestsPerMinute == 0 {
		cfg.Model.RequestsPerMinute = 60
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".pdf", ".docx", ".odt", ".rtf", ".xlsx", ".pptx", ".odp", ".ods"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
