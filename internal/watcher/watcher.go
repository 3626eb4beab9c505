// Package watcher provides inbox directory watching with fsnotify and debouncing.
// Each matching file dropped into an inbox is handled once and then moved
// into the inbox's processed directory.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	defaultDebounce     = 400 * time.Millisecond
	defaultProcessedDir = "processed"
)

// Handler is called once per inbox file. The file is moved aside afterwards
// whatever the result, so a failing document is not retried forever.
type Handler func(ctx context.Context, path string) error

// Watcher watches inbox directories and hands new files to a Handler.
type Watcher struct {
	dirs         []string
	extensions   []string
	processedDir string
	handle       Handler
	debounce     time.Duration
	watcher      *fsnotify.Watcher
	ctx          context.Context
	mu           sync.Mutex
	debounceMap  map[string]*time.Timer
	inflight     map[string]bool
	wg           sync.WaitGroup
	done         chan struct{}
	started      bool
	stopOnce     sync.Once
	logger       *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output (file events, moves, handler errors).
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the quiet period a file must see before it is handled.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithProcessedDir sets where handled files go. A relative name is resolved
// inside each inbox; an absolute path is shared by all inboxes.
func WithProcessedDir(name string) WatcherOption {
	return func(w *Watcher) {
		if name != "" {
			w.processedDir = name
		}
	}
}

// NewWatcher creates a watcher over the given inbox directories. Only files
// directly inside an inbox are considered; extensions filter them (empty = all).
func NewWatcher(dirs []string, extensions []string, handle Handler, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		dirs:         cleanDirs(dirs),
		extensions:   extensions,
		processedDir: defaultProcessedDir,
		handle:       handle,
		debounce:     defaultDebounce,
		debounceMap:  make(map[string]*time.Timer),
		inflight:     make(map[string]bool),
		done:         make(chan struct{}),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func cleanDirs(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, filepath.Clean(d))
		}
	}
	return out
}

// Start creates missing inboxes and begins watching them. It runs until ctx
// is cancelled or Stop is called; handlers receive ctx.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.logger.Debug("watcher starting", zap.Strings("dirs", w.dirs), zap.Strings("extensions", w.extensions))
	for _, dir := range w.dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			_ = watcher.Close()
			w.mu.Unlock()
			return fmt.Errorf("create inbox %s: %w", dir, err)
		}
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			w.mu.Unlock()
			return fmt.Errorf("watch inbox %s: %w", dir, err)
		}
	}
	w.watcher = watcher
	w.ctx = ctx
	w.started = true
	w.mu.Unlock()
	go w.run(ctx, watcher)
	return nil
}

func (w *Watcher) run(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !w.inInbox(path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		if w.candidate(path) {
			w.debounceHandle(path)
		}
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		w.cancelDebounce(path)
	}
}

// inInbox reports whether path sits directly inside one of the inboxes.
func (w *Watcher) inInbox(path string) bool {
	parent := filepath.Dir(path)
	for _, dir := range w.dirs {
		if dir == parent {
			return true
		}
	}
	return false
}

// candidate reports whether path is a regular, visible file with a wanted extension.
func (w *Watcher) candidate(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") || !matchExtension(path, w.extensions) {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func matchExtension(path string, extensions []string) bool {
	ext := filepath.Ext(path)
	if len(extensions) == 0 {
		return true
	}
	for _, e := range extensions {
		eNorm := strings.TrimPrefix(strings.ToLower(e), ".")
		extNorm := strings.TrimPrefix(strings.ToLower(ext), ".")
		if eNorm == extNorm {
			return true
		}
	}
	return false
}

func (w *Watcher) debounceHandle(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		if !w.started {
			w.mu.Unlock()
			return
		}
		w.wg.Add(1)
		ctx := w.ctx
		w.mu.Unlock()
		defer w.wg.Done()
		w.process(ctx, path)
	})
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

// process runs the handler for one file and moves it aside. A file is never
// handled twice concurrently; a cancelled context leaves it in place for the
// next start.
func (w *Watcher) process(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	w.mu.Lock()
	if w.inflight[path] {
		w.mu.Unlock()
		return
	}
	w.inflight[path] = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		delete(w.inflight, path)
		w.mu.Unlock()
	}()

	if _, err := os.Stat(path); err != nil {
		return
	}
	w.logger.Info("inbox file", zap.String("path", path))
	if w.handle != nil {
		if err := w.handle(ctx, path); err != nil {
			w.logger.Warn("inbox file failed", zap.String("path", path), zap.Error(err))
		}
	}
	dest, err := MoveProcessed(path, w.processedDir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Error("move processed file", zap.String("path", path), zap.Error(err))
		}
		return
	}
	w.logger.Debug("inbox file moved", zap.String("path", path), zap.String("dest", dest))
}

// MoveProcessed moves path into processedDir and returns the new location.
// A relative processedDir is resolved next to the file. Name clashes get a
// numeric suffix instead of overwriting.
func MoveProcessed(path, processedDir string) (string, error) {
	if processedDir == "" {
		processedDir = defaultProcessedDir
	}
	dir := processedDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(filepath.Dir(path), processedDir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	dest := filepath.Join(dir, base)
	for i := 1; ; i++ {
		if _, err := os.Lstat(dest); errors.Is(err, os.ErrNotExist) {
			break
		} else if err != nil {
			return "", err
		}
		dest = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, i, ext))
	}
	if err := os.Rename(path, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// Directories returns a copy of the watched inbox directories.
func (w *Watcher) Directories() []string {
	return append([]string(nil), w.dirs...)
}

// SyncExistingFiles handles every matching file already sitting in the
// inboxes. Call it after Start; files are handled one at a time in name order.
func (w *Watcher) SyncExistingFiles() {
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	for _, dir := range w.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			w.logger.Warn("read inbox", zap.String("dir", dir), zap.Error(err))
			continue
		}
		w.logger.Debug("watcher syncing inbox", zap.String("dir", dir), zap.Int("entries", len(entries)))
		for _, e := range entries {
			path := filepath.Join(dir, e.Name())
			if e.IsDir() || !w.candidate(path) {
				continue
			}
			w.process(ctx, path)
		}
	}
}

// Stop stops the watcher and waits for handlers already running.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
	w.wg.Wait()
}
