package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/fuda/internal/ingest"
	"github.com/hyperjump/fuda/internal/models"
)

type recordingSink struct {
	mu       sync.Mutex
	ingested []string
	removed  []string
}

func (s *recordingSink) IngestFile(_ context.Context, path string) (*ingest.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ingested = append(s.ingested, path)
	return &ingest.Result{Slide: &models.ContentItem{ID: filepath.Base(path)}, Changed: true}, nil
}

func (s *recordingSink) RemoveFile(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, path)
	return nil
}

func (s *recordingSink) snapshot() (ingested, removed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ingested...), append([]string(nil), s.removed...)
}

func hasSuffix(paths []string, suffix string) bool {
	for _, p := range paths {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startWatcher(t *testing.T, roots, exts []string, recursive bool) (*Watcher, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	w := New(roots, exts, recursive, sink, WithDebounce(50*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w, sink
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.pptx", []string{".pptx"}, true},
		{"/a/b.PDF", []string{".pdf"}, true},
		{"/a/b.md", []string{"md"}, true},
		{"/a/b.md", []string{".txt"}, false},
		{"/a/b", nil, true},
	}
	for _, tt := range tests {
		if got := matchExtension(tt.path, tt.extensions); got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestWatcher_IngestsChangedFile(t *testing.T) {
	dir := t.TempDir()
	_, sink := startWatcher(t, []string{dir}, []string{".txt"}, true)

	writeFile(t, filepath.Join(dir, "lecture.txt"), "first draft")
	writeFile(t, filepath.Join(dir, "notes.xyz"), "ignored")

	eventually(t, func() bool {
		ingested, _ := sink.snapshot()
		return hasSuffix(ingested, "lecture.txt")
	})
	ingested, _ := sink.snapshot()
	if hasSuffix(ingested, "notes.xyz") {
		t.Errorf("unexpected ingest of filtered file: %v", ingested)
	}
}

func TestWatcher_DebouncesBurstOfWrites(t *testing.T) {
	dir := t.TempDir()
	_, sink := startWatcher(t, []string{dir}, []string{".txt"}, true)

	path := filepath.Join(dir, "lecture.txt")
	for i := 0; i < 5; i++ {
		writeFile(t, path, strings.Repeat("x", i+1))
	}
	eventually(t, func() bool {
		ingested, _ := sink.snapshot()
		return len(ingested) > 0
	})
	time.Sleep(200 * time.Millisecond)
	ingested, _ := sink.snapshot()
	if len(ingested) != 1 {
		t.Errorf("ingested %d times, want 1: %v", len(ingested), ingested)
	}
}

func TestWatcher_RemovesDeletedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old.txt")
	writeFile(t, path, "stale")
	_, sink := startWatcher(t, []string{dir}, []string{".txt"}, true)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool {
		_, removed := sink.snapshot()
		return hasSuffix(removed, "old.txt")
	})
}

func TestWatcher_NewDirectoryIsWatchedAndSynced(t *testing.T) {
	dir := t.TempDir()
	_, sink := startWatcher(t, []string{dir}, []string{".txt", ".md"}, true)

	nested := filepath.Join(dir, "week1", "day2")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(nested, "deep.md"), "# Deep")

	eventually(t, func() bool {
		ingested, _ := sink.snapshot()
		return hasSuffix(ingested, "deep.md")
	})
}

func TestWatcher_SyncExisting(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")
	writeFile(t, filepath.Join(dir, "ignore.xyz"), "x")

	w, sink := startWatcher(t, []string{dir}, []string{".txt"}, true)
	w.SyncExisting(context.Background())

	ingested, _ := sink.snapshot()
	if len(ingested) != 1 || !strings.HasSuffix(ingested[0], "a.txt") {
		t.Errorf("ingested = %v, want only a.txt", ingested)
	}
}

func TestWatcher_StartCreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "watch", "me")
	w, _ := startWatcher(t, []string{root}, nil, true)

	if _, err := os.Stat(root); err != nil {
		t.Errorf("root should exist after Start: %v", err)
	}
	if dirs := w.Directories(); len(dirs) != 1 || dirs[0] != root {
		t.Errorf("Directories() = %v", dirs)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := New([]string{t.TempDir()}, nil, false, &recordingSink{})
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}
