// Package watch keeps a generated site injected: it processes the site once,
// then reprocesses pages as the generator rewrites them and on a periodic
// full rescan.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	ferrors "git.home.luguber.info/inful/sitehead/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehead/internal/logfields"
	"git.home.luguber.info/inful/sitehead/internal/observability"
	"git.home.luguber.info/inful/sitehead/internal/pipeline"
)

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period after the last change before pages are
	// processed. Zero means 500ms.
	Debounce time.Duration

	// RescanInterval schedules full site runs. Zero disables them.
	RescanInterval time.Duration

	// Force ignores the ledger on the initial run.
	Force bool

	// OnBatch, when set, is called after each debounced batch with the pages
	// it processed.
	OnBatch func(pages []string)
}

// Watcher reprocesses a site directory on change.
type Watcher struct {
	proc *pipeline.Processor
	dir  string
	opts Options

	watcher   *fsnotify.Watcher
	scheduler gocron.Scheduler

	runMu   sync.Mutex // serializes batches and rescans
	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	ready   chan struct{}
}

// New creates a Watcher for dir.
func New(proc *pipeline.Processor, dir string, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "resolve site directory").
			WithContext("path", dir).Build()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "create file watcher").Build()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		_ = fw.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "create scheduler").Build()
	}

	return &Watcher{
		proc:      proc,
		dir:       abs,
		opts:      opts,
		watcher:   fw,
		scheduler: s,
		pending:   make(map[string]struct{}),
		ready:     make(chan struct{}),
	}, nil
}

// Ready is closed once the initial run has finished and changes are watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run processes the site, then watches it until ctx is done. Page failures
// are logged and do not stop watching.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.shutdown()

	if err := w.addTree(w.dir); err != nil {
		return err
	}

	if _, err := w.proc.ProcessSite(ctx, w.dir, w.opts.Force); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("Initial run finished with errors", logfields.Error(err))
	}

	if w.opts.RescanInterval > 0 {
		_, err := w.scheduler.NewJob(
			gocron.DurationJob(w.opts.RescanInterval),
			gocron.NewTask(func() { w.rescan(ctx) }),
			gocron.WithName("site-rescan"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryRuntime, "schedule rescan").Build()
		}
		w.scheduler.Start()
	}

	slog.Info("Watching site for changes", logfields.Path(w.dir),
		slog.Duration("debounce", w.opts.Debounce),
		slog.Duration("rescan_interval", w.opts.RescanInterval))
	close(w.ready)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				slog.Warn("Failed to watch new directory", logfields.Path(event.Name), logfields.Error(err))
			}
			w.queueTree(ctx, event.Name)
			return
		}
	}

	rel, err := filepath.Rel(w.dir, event.Name)
	if err != nil || hidden(rel) || !w.proc.Matches(rel) {
		return
	}
	w.queue(ctx, rel)
}

// queueTree queues the pages of a directory that appeared after watching
// started; their own create events may have fired before the watch existed.
func (w *Watcher) queueTree(ctx context.Context, root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if rel, err := filepath.Rel(w.dir, path); err == nil && !hidden(rel) && w.proc.Matches(rel) {
			w.queue(ctx, rel)
		}
		return nil
	})
}

func (w *Watcher) queue(ctx context.Context, rel string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[rel] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, func() { w.flush(ctx) })
}

func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	pages := make([]string, 0, len(w.pending))
	for p := range w.pending {
		pages = append(pages, p)
	}
	clear(w.pending)
	w.mu.Unlock()

	if len(pages) == 0 || ctx.Err() != nil {
		return
	}
	slices.Sort(pages)

	w.runMu.Lock()
	defer w.runMu.Unlock()

	ctx = observability.WithCommand(ctx, "watch")
	for _, page := range pages {
		outcome, err := w.proc.ProcessFile(ctx, w.dir, page, false)
		if err != nil {
			if !exists(filepath.Join(w.dir, page)) {
				continue // removed before the batch ran
			}
			observability.WarnContext(ctx, "Page failed", logfields.Page(filepath.ToSlash(page)), logfields.Error(err))
			continue
		}
		observability.DebugContext(ctx, "Page reprocessed", logfields.Page(filepath.ToSlash(page)), logfields.Result(string(outcome)))
	}
	observability.InfoContext(ctx, "Processed changed pages", logfields.Count(len(pages)))

	if w.opts.OnBatch != nil {
		w.opts.OnBatch(pages)
	}
}

func (w *Watcher) rescan(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	w.runMu.Lock()
	defer w.runMu.Unlock()

	if _, err := w.proc.ProcessSite(observability.WithCommand(ctx, "rescan"), w.dir, false); err != nil && ctx.Err() == nil {
		slog.Warn("Rescan finished with errors", logfields.Error(err))
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "walk site directory").
				WithContext("path", path).Build()
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "watch directory").
				WithContext("path", path).Build()
		}
		return nil
	})
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	if err := w.scheduler.Shutdown(); err != nil {
		slog.Debug("Scheduler shutdown", logfields.Error(err))
	}
	if err := w.watcher.Close(); err != nil {
		slog.Error("Error closing file watcher", logfields.Error(err))
	}
	// Wait for an in-flight batch or rescan.
	w.runMu.Lock()
	w.runMu.Unlock() //nolint:staticcheck // empty critical section
}

// hidden reports whether any segment of rel starts with a dot, which also
// covers the temporary files written during atomic replacement.
func hidden(rel string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(seg, ".") && seg != "." {
			return true
		}
	}
	return false
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
