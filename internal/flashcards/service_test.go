package flashcards

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/fuda/internal/cache"
	"github.com/hyperjump/fuda/internal/config"
	"github.com/hyperjump/fuda/internal/llm"
	"github.com/hyperjump/fuda/internal/models"
	"github.com/hyperjump/fuda/internal/storage"
	"github.com/hyperjump/fuda/internal/synth"
)

type fakeContent struct {
	slides   map[string]*models.ContentItem
	courses  map[string]*models.Course
	profiles map[string]*models.Profile
}

func newFakeContent(items ...*models.ContentItem) *fakeContent {
	f := &fakeContent{
		slides:   make(map[string]*models.ContentItem),
		courses:  make(map[string]*models.Course),
		profiles: make(map[string]*models.Profile),
	}
	for _, it := range items {
		f.slides[it.ID] = it
	}
	return f
}

func (f *fakeContent) GetSlide(_ context.Context, id string) (*models.ContentItem, error) {
	if s, ok := f.slides[id]; ok {
		c := *s
		return &c, nil
	}
	return nil, fmt.Errorf("slide %s: %w", id, storage.ErrNotFound)
}

func (f *fakeContent) GetCourse(_ context.Context, id string) (*models.Course, error) {
	if c, ok := f.courses[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("course %s: %w", id, storage.ErrNotFound)
}

func (f *fakeContent) GetProfile(_ context.Context, id string) (*models.Profile, error) {
	if p, ok := f.profiles[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("profile %s: %w", id, storage.ErrNotFound)
}

func (f *fakeContent) GetSupplement(context.Context, string) (string, error) {
	return "", nil
}

type fakeCompleter struct {
	mu    sync.Mutex
	out   string
	calls int
}

func (f *fakeCompleter) Complete(context.Context, llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.out, nil
}

func (f *fakeCompleter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type failingCache struct {
	*cache.Memory
}

func (failingCache) UpsertCachedDeck(context.Context, string, models.Tier, *models.Deck) error {
	return errors.New("database is locked")
}

func modelOutput(n int, label string) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "QUESTION: %s question %d?\nANSWER: %s answer %d.\n\n", label, i, label, i)
	}
	return b.String()
}

func newTestService(content *fakeContent, store cache.Store, completer llm.Completer) *Service {
	return New(config.Default(), Deps{
		Content:     content,
		Profiles:    content,
		Supplements: content,
		Cache:       store,
		Completer:   completer,
	})
}

const longText = "Hash tables map keys to values through a hash function. " +
	"Collisions are resolved with chaining or open addressing. " +
	"A good hash function spreads keys uniformly across buckets. " +
	"Load factor controls when the table is resized."

func TestGenerateDeck_ScenarioA_TemplateFallback(t *testing.T) {
	content := newFakeContent(&models.ContentItem{
		ID:      "s1",
		Title:   "Binary Search",
		Content: "Binary search halves the search space each step.",
	})
	svc := newTestService(content, cache.NewMemory(16), nil)

	deck, err := svc.GenerateDeck(context.Background(), "s1", models.TierFast)
	require.NoError(t, err)
	assert.Equal(t, models.GeneratedByFallback, deck.GeneratedBy)
	assert.Equal(t, "advanced", deck.DetailLevel)
	require.Len(t, deck.Flashcards, 6)
	for i, c := range deck.Flashcards {
		assert.Equal(t, models.CardID(i), c.ID)
		assert.NotEmpty(t, c.Front)
		assert.Contains(t, c.Back, "\n\n"+synth.AugmentLabel(models.TierFast)+" ")
	}
	assert.False(t, deck.Cached)
}

func TestGenerateDeck_ScenarioB_Sample(t *testing.T) {
	content := newFakeContent(&models.ContentItem{ID: "s2", Title: "Data Structures"})
	svc := newTestService(content, cache.NewMemory(16), nil)

	for _, tier := range models.Tiers {
		deck, err := svc.GenerateDeck(context.Background(), "s2", tier)
		require.NoError(t, err)
		assert.Equal(t, models.GeneratedBySample, deck.GeneratedBy, tier)
		assert.Len(t, deck.Flashcards, tier.DefaultDeckSize(), tier)
	}
}

func TestGenerateDeck_ScenarioC_Model(t *testing.T) {
	content := newFakeContent(&models.ContentItem{ID: "s3", Title: "Hash Tables", Content: longText})
	fc := &fakeCompleter{out: modelOutput(8, "Model")}
	svc := newTestService(content, cache.NewMemory(16), fc)

	deck, err := svc.GenerateDeck(context.Background(), "s3", models.TierModerate)
	require.NoError(t, err)
	assert.Equal(t, models.GeneratedByModel, deck.GeneratedBy)
	require.Len(t, deck.Flashcards, 8)
	assert.Equal(t, "Model question 1?", deck.Flashcards[0].Front)
	assert.Equal(t, 1, fc.Calls())
}

func TestGenerateDeck_ScenarioD_EmptySlide(t *testing.T) {
	content := newFakeContent(&models.ContentItem{ID: "s1"})
	store := cache.NewMemory(16)
	svc := newTestService(content, store, nil)

	deck, err := svc.GenerateDeck(context.Background(), "s1", models.TierSlow)
	assert.Nil(t, deck)
	assert.True(t, errors.Is(err, ErrInput))
	assert.True(t, errors.Is(err, ErrEmptyContent))
	assert.Equal(t, 0, store.Len())
}

func TestGenerateDeck_ScenarioE_CachedVerbatim(t *testing.T) {
	ctx := context.Background()
	content := newFakeContent(&models.ContentItem{ID: "s1", Title: "Hash Tables", Content: longText})
	store := cache.NewMemory(16)
	seeded := models.NewDeck(models.TierSlow, models.GeneratedBySample, []models.Flashcard{
		{ID: "card-1", Front: "Seeded?", Back: "Yes."},
	})
	require.NoError(t, store.UpsertCachedDeck(ctx, "s1", models.TierSlow, seeded))
	fc := &fakeCompleter{out: modelOutput(10, "Model")}
	svc := newTestService(content, store, fc)

	deck, err := svc.GenerateDeck(ctx, "s1", models.TierSlow)
	require.NoError(t, err)
	assert.Equal(t, 0, fc.Calls())
	assert.True(t, deck.Cached)
	assert.Equal(t, models.GeneratedBySample, deck.GeneratedBy)
	assert.Equal(t, seeded.Flashcards, deck.Flashcards)
}

func TestGenerateDeck_Idempotent(t *testing.T) {
	ctx := context.Background()
	content := newFakeContent(&models.ContentItem{ID: "s1", Title: "Hash Tables", Content: longText})
	svc := newTestService(content, cache.NewMemory(16), nil)

	first, err := svc.GenerateDeck(ctx, "s1", models.TierModerate)
	require.NoError(t, err)
	second, err := svc.GenerateDeck(ctx, "s1", models.TierModerate)
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.GeneratedBy, second.GeneratedBy)
	assert.Equal(t, first.Flashcards, second.Flashcards)
}

func TestGenerateDeck_TierSizesMonotonic(t *testing.T) {
	content := newFakeContent(&models.ContentItem{ID: "s1", Title: "Hash Tables", Content: longText})
	svc := newTestService(content, cache.NewMemory(16), nil)

	sizes := make(map[models.Tier]int)
	for _, tier := range models.Tiers {
		deck, err := svc.GenerateDeck(context.Background(), "s1", tier)
		require.NoError(t, err)
		sizes[tier] = deck.Len()
	}
	assert.GreaterOrEqual(t, sizes[models.TierSlow], sizes[models.TierModerate])
	assert.GreaterOrEqual(t, sizes[models.TierModerate], sizes[models.TierFast])
	assert.Equal(t, 10, sizes[models.TierSlow])
	assert.Equal(t, 6, sizes[models.TierFast])
}

func TestGenerateDeck_InputErrors(t *testing.T) {
	svc := newTestService(newFakeContent(), cache.NewMemory(16), nil)

	_, err := svc.GenerateDeck(context.Background(), "missing", models.TierFast)
	assert.True(t, errors.Is(err, ErrInput))
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	_, err = svc.GenerateDeck(context.Background(), "s1", models.Tier("turbo"))
	assert.True(t, errors.Is(err, ErrInput))
	assert.True(t, errors.Is(err, models.ErrInvalidTier))

	_, err = svc.GenerateDeck(context.Background(), "  ", models.TierFast)
	assert.True(t, errors.Is(err, ErrInput))
}

func TestGenerateDeck_UntitledShortSlideStillGetsDeck(t *testing.T) {
	content := newFakeContent(&models.ContentItem{ID: "s1", Content: "Stacks push and pop at one end."})
	svc := newTestService(content, cache.NewMemory(16), nil)

	deck, err := svc.GenerateDeck(context.Background(), "s1", models.TierFast)
	require.NoError(t, err)
	assert.Equal(t, models.GeneratedByFallback, deck.GeneratedBy)
	assert.Len(t, deck.Flashcards, 6)
}

func TestGenerateDeck_CacheWriteFailureIsNotFatal(t *testing.T) {
	content := newFakeContent(&models.ContentItem{ID: "s1", Title: "Hash Tables", Content: longText})
	svc := newTestService(content, failingCache{cache.NewMemory(16)}, nil)

	deck, err := svc.GenerateDeck(context.Background(), "s1", models.TierSlow)
	require.NoError(t, err)
	assert.Len(t, deck.Flashcards, 10)
}

func TestGenerateDeck_ConcurrentCallsShareGeneration(t *testing.T) {
	content := newFakeContent(&models.ContentItem{ID: "s1", Title: "Hash Tables", Content: longText})
	fc := &fakeCompleter{out: modelOutput(6, "Model")}
	svc := newTestService(content, cache.NewMemory(16), fc)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.GenerateDeck(context.Background(), "s1", models.TierFast)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, fc.Calls())
}

// blockingCompleter holds every call until release is closed.
type blockingCompleter struct {
	out     string
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingCompleter) Complete(ctx context.Context, _ llm.Request) (string, error) {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
		return b.out, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestGenerateDeck_CancelledCallerDoesNotFailOthers(t *testing.T) {
	content := newFakeContent(&models.ContentItem{ID: "s1", Title: "Hash Tables", Content: longText})
	bc := &blockingCompleter{
		out:     modelOutput(6, "Model"),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	store := cache.NewMemory(16)
	svc := newTestService(content, store, bc)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := svc.GenerateDeck(ctxA, "s1", models.TierFast)
		errA <- err
	}()
	<-bc.started

	type result struct {
		deck *models.Deck
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		deck, err := svc.GenerateDeck(context.Background(), "s1", models.TierFast)
		resB <- result{deck, err}
	}()

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(bc.release)
	var b result
	select {
	case b = <-resB:
	case <-time.After(5 * time.Second):
		t.Fatal("second caller did not return")
	}
	require.NoError(t, b.err)
	require.NotNil(t, b.deck)
	assert.Equal(t, models.GeneratedByModel, b.deck.GeneratedBy)
	assert.Len(t, b.deck.Flashcards, 6)

	entry, err := store.GetCachedDeck(context.Background(), "s1", models.TierFast)
	require.NoError(t, err)
	assert.Equal(t, models.GeneratedByModel, entry.Deck.GeneratedBy)
}

func TestInvalidate_Regenerates(t *testing.T) {
	ctx := context.Background()
	content := newFakeContent(&models.ContentItem{ID: "s1", Title: "Hash Tables", Content: longText})
	fc := &fakeCompleter{out: modelOutput(6, "First")}
	svc := newTestService(content, cache.NewMemory(16), fc)

	deck, err := svc.GenerateDeck(ctx, "s1", models.TierFast)
	require.NoError(t, err)
	assert.Equal(t, "First question 1?", deck.Flashcards[0].Front)

	fc.out = modelOutput(6, "Second")
	deck, _ = svc.GenerateDeck(ctx, "s1", models.TierFast)
	assert.Equal(t, "First question 1?", deck.Flashcards[0].Front, "still cached")

	require.NoError(t, svc.Invalidate(ctx, "s1", models.TierFast))
	deck, err = svc.GenerateDeck(ctx, "s1", models.TierFast)
	require.NoError(t, err)
	assert.False(t, deck.Cached)
	assert.Equal(t, "Second question 1?", deck.Flashcards[0].Front)

	require.NoError(t, svc.InvalidateAll(ctx, "s1"))
	fc.out = modelOutput(6, "Third")
	deck, _ = svc.GenerateDeck(ctx, "s1", models.TierFast)
	assert.Equal(t, "Third question 1?", deck.Flashcards[0].Front)

	assert.True(t, errors.Is(svc.Invalidate(ctx, "s1", "turbo"), ErrInput))
}

func TestGenerateForUser(t *testing.T) {
	content := newFakeContent(&models.ContentItem{ID: "s1", Title: "Hash Tables", Content: longText})
	content.profiles["fast-learner"] = &models.Profile{UserID: "fast-learner", LearningSpeed: models.TierFast, IsClassified: true}
	content.profiles["new"] = &models.Profile{UserID: "new", LearningSpeed: models.TierSlow}
	svc := newTestService(content, cache.NewMemory(16), nil)

	tests := []struct {
		user string
		want models.Tier
	}{
		{"fast-learner", models.TierFast},
		{"new", models.DefaultTier},
		{"unknown", models.DefaultTier},
	}
	for _, tt := range tests {
		deck, err := svc.GenerateForUser(context.Background(), tt.user, "s1")
		require.NoError(t, err)
		assert.Equal(t, tt.want, deck.LearningSpeed, tt.user)
		assert.Len(t, deck.Flashcards, tt.want.DefaultDeckSize(), tt.user)
	}
}
