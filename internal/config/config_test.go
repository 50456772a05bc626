package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/fuda/internal/models"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "./data/db/fuda.db"
watch:
  directories: ["./dev/sample"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "fuda.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	if len(cfg.Watch.Directories) != 1 {
		t.Fatalf("watch directories: got %d", len(cfg.Watch.Directories))
	}
	wantWatch := filepath.Join(dir, "dev", "sample")
	if cfg.Watch.Directories[0] != wantWatch {
		t.Errorf("watch directory = %s, want %s", cfg.Watch.Directories[0], wantWatch)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Cache.Backend != "sqlite" {
		t.Errorf("default cache backend: got %s", cfg.Cache.Backend)
	}
	g := cfg.Generation
	if g.MinContentLength != 100 || g.MinChunkLength != 10 || g.MinChunks != 3 || g.MinKeyTerms != 5 {
		t.Errorf("generation thresholds: got %+v", g)
	}
	if g.DeckSizes != (DeckSizes{Slow: 10, Moderate: 8, Fast: 6}) {
		t.Errorf("deck sizes: got %+v", g.DeckSizes)
	}
	if cfg.Model.Temperature != 0.5 || cfg.Model.MaxTokens != 2048 {
		t.Errorf("model defaults: got temperature=%v max_tokens=%d", cfg.Model.Temperature, cfg.Model.MaxTokens)
	}
	if len(cfg.Watch.Extensions) != 10 || cfg.Watch.Extensions[0] != ".txt" {
		t.Errorf("watch extensions: got %v", cfg.Watch.Extensions)
	}
}

func TestApplyDefaults_APIKeyFromEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("GOOGLE_API_KEY", "g-key")

	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Model.APIKey != "sk-openai" || cfg.Model.Model != "gpt-4" {
		t.Errorf("openai: key=%q model=%q", cfg.Model.APIKey, cfg.Model.Model)
	}

	cfg = &Config{Model: ModelConfig{Provider: "gemini"}}
	ApplyDefaults(cfg)
	if cfg.Model.APIKey != "g-key" || cfg.Model.Model != "gemini-2.5-flash" {
		t.Errorf("gemini: key=%q model=%q", cfg.Model.APIKey, cfg.Model.Model)
	}

	cfg = &Config{Model: ModelConfig{APIKey: "explicit"}}
	ApplyDefaults(cfg)
	if cfg.Model.APIKey != "explicit" {
		t.Errorf("explicit key overwritten: %q", cfg.Model.APIKey)
	}
}

func TestDeckSizes_For(t *testing.T) {
	d := DeckSizes{Slow: 12, Moderate: 9, Fast: 4}
	if d.For(models.TierSlow) != 12 || d.For(models.TierModerate) != 9 || d.For(models.TierFast) != 4 {
		t.Errorf("For: got %d/%d/%d", d.For(models.TierSlow), d.For(models.TierModerate), d.For(models.TierFast))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"content length too low", func(c *Config) { c.Generation.MinContentLength = 20 }, true},
		{"content length too high", func(c *Config) { c.Generation.MinContentLength = 500 }, true},
		{"fast larger than moderate", func(c *Config) { c.Generation.DeckSizes.Fast = 9 }, true},
		{"moderate larger than slow", func(c *Config) { c.Generation.DeckSizes.Moderate = 11 }, true},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, true},
		{"redis backend", func(c *Config) { c.Cache.Backend = "redis" }, false},
		{"unknown provider", func(c *Config) { c.Model.Provider = "cohere" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_rejectsInvalidDeckSizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
generation:
  deck_sizes:
    slow: 4
    moderate: 8
    fast: 6
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for slow < moderate")
	}
}

func TestApplyDefaults_WatchRecursiveWhenDirectoriesSet(t *testing.T) {
	cfg := &Config{Watch: WatchConfig{Directories: []string{"/tmp/docs"}}}
	ApplyDefaults(cfg)
	if cfg.Watch.Recursive == nil || !*cfg.Watch.Recursive {
		t.Error("recursive should default to true when directories are set")
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		w := &WatchConfig{}
		if got := w.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("true_returns_true", func(t *testing.T) {
		v := true
		w := &WatchConfig{Recursive: &v}
		if got := w.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		w := &WatchConfig{Recursive: &f}
		if got := w.RecursiveOrDefault(); got {
			t.Errorf("RecursiveOrDefault() = %v, want false", got)
		}
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}

func TestLoad_modelSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
model:
  provider: gemini
  api_key: "abc"
  timeout: 5s
  temperature: 0.2
cache:
  backend: redis
  redis:
    addr: "cache:6379"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model.Provider != "gemini" || cfg.Model.APIKey != "abc" {
		t.Errorf("model: got %+v", cfg.Model)
	}
	if cfg.Model.Timeout != 5*time.Second {
		t.Errorf("timeout: got %v", cfg.Model.Timeout)
	}
	if cfg.Model.Temperature != 0.2 {
		t.Errorf("temperature: got %v", cfg.Model.Temperature)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.Redis.Addr != "cache:6379" || cfg.Cache.Redis.KeyPrefix != "fuda:deck:" {
		t.Errorf("cache: got %+v", cfg.Cache)
	}
}

func TestWatchConfig_CourseFromDirectoryOrDefault(t *testing.T) {
	w := &WatchConfig{}
	if !w.CourseFromDirectoryOrDefault() {
		t.Error("CourseFromDirectoryOrDefault() = false when unset, want true")
	}
	f := false
	w.CourseFromDirectory = &f
	if w.CourseFromDirectoryOrDefault() {
		t.Error("CourseFromDirectoryOrDefault() = true, want false")
	}
}
