// Package llm wraps text-completion providers behind a single interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/fuda/internal/config"
)

// ErrNoCredential means no API key is configured; callers treat the model as unavailable.
var ErrNoCredential = errors.New("no model credential configured")

// ErrEmptyResponse is returned when the provider answers without any text.
var ErrEmptyResponse = errors.New("empty model response")

// Request is a single completion call.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Completer produces text for a prompt.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// New builds the completer selected by cfg.Provider, wrapped with timeout and
// rate limiting. It returns ErrNoCredential when no key is available.
func New(ctx context.Context, cfg config.ModelConfig, logger *zap.Logger) (Completer, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoCredential
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		c   Completer
		err error
	)
	switch cfg.Provider {
	case "gemini":
		c, err = NewGemini(ctx, cfg.APIKey, cfg.Model)
	case "openai", "":
		c, err = NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("model client ready", zap.String("provider", cfg.Provider), zap.String("model", cfg.Model))
	return NewLimited(c, cfg.RequestsPerMinute, cfg.Timeout), nil
}

// Limited throttles and bounds calls to an inner completer.
type Limited struct {
	inner   Completer
	limiter *rate.Limiter
	timeout time.Duration
}

// NewLimited allows perMinute calls per minute (unlimited when <= 0), each bounded by timeout (none when <= 0).
func NewLimited(inner Completer, perMinute int, timeout time.Duration) *Limited {
	limit := rate.Inf
	burst := 1
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
		burst = perMinute
	}
	return &Limited{inner: inner, limiter: rate.NewLimiter(limit, burst), timeout: timeout}
}

// Complete waits for a rate-limit token, then calls the inner completer.
func (l *Limited) Complete(ctx context.Context, req Request) (string, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	return l.inner.Complete(ctx, req)
}
