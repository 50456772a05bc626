// Package watcher re-ingests slide files in watched folders when they change
// and removes slides whose files disappear.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/fuda/internal/ingest"
)

const defaultDebounce = 400 * time.Millisecond

// Sink receives changed and removed slide files.
type Sink interface {
	IngestFile(ctx context.Context, path string) (*ingest.Result, error)
	RemoveFile(ctx context.Context, path string) error
}

// Watcher watches slide folders and forwards file changes to a Sink.
type Watcher struct {
	roots      []string
	extensions []string
	recursive  bool
	sink       Sink
	debounce   time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	pending map[string]*time.Timer
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long a file must be quiet before it is re-ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates a watcher over roots. extensions filter which files are
// forwarded (empty = all).
func New(roots, extensions []string, recursive bool, sink Sink, opts ...Option) *Watcher {
	w := &Watcher{
		roots:      roots,
		extensions: extensions,
		recursive:  recursive,
		sink:       sink,
		debounce:   defaultDebounce,
		logger:     zap.NewNop(),
		pending:    make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. Missing roots are created. The watcher runs until
// ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, root := range w.roots {
		if err := w.addTree(fsw, filepath.Clean(root), true); err != nil {
			_ = fsw.Close()
			return err
		}
	}
	w.fsw = fsw
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.logger.Debug("Watcher started", zap.Strings("roots", w.roots), zap.Bool("recursive", w.recursive))
	go w.run(w.ctx, fsw, w.done)
	return nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(ctx, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	w.logger.Debug("Watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))

	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			if ev.Has(fsnotify.Create) {
				w.addNewDirectory(ctx, path)
			}
			return
		}
		if matchExtension(path, w.extensions) {
			w.schedule(ctx, path)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancelPending(path)
		if !matchExtension(path, w.extensions) {
			return
		}
		if err := w.sink.RemoveFile(ctx, path); err != nil {
			w.logger.Warn("Failed to remove slide", zap.String("source", path), zap.Error(err))
		}
	}
}

// addNewDirectory watches a directory created (or moved) under a root and
// ingests the files already inside it.
func (w *Watcher) addNewDirectory(ctx context.Context, dir string) {
	w.mu.Lock()
	fsw := w.fsw
	if fsw != nil && w.recursive {
		if err := w.addTree(fsw, dir, false); err != nil {
			w.logger.Debug("Failed to watch directory", zap.String("path", dir), zap.Error(err))
		}
	}
	w.mu.Unlock()
	if fsw == nil || !w.recursive {
		return
	}
	w.sync(ctx, dir)
}

// addTree adds root (and, when recursive, every directory below it) to fsw.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string, create bool) error {
	if create {
		if err := os.MkdirAll(root, 0755); err != nil {
			return err
		}
	}
	if !w.recursive {
		return fsw.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return fsw.Add(path)
	})
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.ingest(ctx, path)
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	res, err := w.sink.IngestFile(ctx, path)
	if err != nil {
		w.logger.Warn("Failed to ingest slide file", zap.String("source", path), zap.Error(err))
		return
	}
	w.logger.Debug("Slide file ingested",
		zap.String("source", path),
		zap.String("content_id", res.Slide.ID),
		zap.Bool("changed", res.Changed))
}

// sync ingests every matching file under root.
func (w *Watcher) sync(ctx context.Context, root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && !w.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if matchExtension(path, w.extensions) {
			w.ingest(ctx, path)
		}
		return ctx.Err()
	})
}

// SyncExisting ingests the files already present in every root. Unchanged
// slides are only re-indexed, so this is cheap to call on every start.
func (w *Watcher) SyncExisting(ctx context.Context) {
	for _, root := range w.roots {
		w.sync(ctx, filepath.Clean(root))
	}
}

// Directories returns a copy of the watched roots.
func (w *Watcher) Directories() []string {
	return append([]string(nil), w.roots...)
}

// Stop stops watching and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fsw, cancel, done := w.fsw, w.cancel, w.done
	w.fsw = nil
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	if fsw == nil {
		return
	}
	cancel()
	_ = fsw.Close()
	<-done
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}
