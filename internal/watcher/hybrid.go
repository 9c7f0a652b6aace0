package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches one directory tree with fsnotify, falling back to
// polling when fsnotify cannot be set up.
type Watcher struct {
	root      string
	opts      Options
	filter    filter
	fsWatcher *fsnotify.Watcher
	poller    *poller
	debouncer *Debouncer
	logger    *slog.Logger
	running   atomic.Bool
}

// New creates a watcher for root. Run starts it.
func New(root string, opts Options, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve absolute path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat watch root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root %s is not a directory", abs)
	}

	opts = opts.WithDefaults()
	w := &Watcher{
		root:      abs,
		opts:      opts,
		filter:    newFilter(opts),
		debouncer: NewDebouncer(opts.DebounceWindow),
		logger:    logger,
	}
	w.debouncer.logger = logger

	if !opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			w.fsWatcher = fsw
		} else {
			logger.Warn("fsnotify_unavailable", slog.String("error", err.Error()))
		}
	}
	if w.fsWatcher == nil {
		w.poller = newPoller(abs, w.filter)
	}
	return w, nil
}

// Root returns the absolute watched root.
func (w *Watcher) Root() string { return w.root }

// Mechanism reports "fsnotify" or "polling".
func (w *Watcher) Mechanism() string {
	if w.fsWatcher != nil {
		return "fsnotify"
	}
	return "polling"
}

// Events returns debounced batches. The channel is closed when Run returns.
func (w *Watcher) Events() <-chan []FileEvent {
	return w.debouncer.Output()
}

// Run watches until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return fmt.Errorf("watcher for %s already running", w.root)
	}
	defer w.debouncer.Stop()

	w.logger.Debug("watch_started",
		slog.String("root", w.root),
		slog.String("mechanism", w.Mechanism()))

	if w.fsWatcher != nil {
		defer func() { _ = w.fsWatcher.Close() }()
		if err := w.addRecursive(w.root); err != nil {
			return fmt.Errorf("add directories to watcher: %w", err)
		}
		return w.runFsnotify(ctx)
	}
	return w.runPolling(ctx)
}

func (w *Watcher) runFsnotify(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleFsnotifyEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch_error", slog.String("root", w.root), slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) runPolling(ctx context.Context) error {
	w.poller.baseline()
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, ev := range w.poller.detectChanges() {
				w.debouncer.Add(ev)
			}
		}
	}
}

func (w *Watcher) handleFsnotifyEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
		if isDir && !w.filter.skipDir(rel) {
			// New directories may already hold files by the time we see them.
			_ = w.addRecursive(event.Name)
		}
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		return
	}

	if !w.filter.keep(rel, isDir) {
		return
	}
	w.debouncer.Add(FileEvent{
		Path:      rel,
		Operation: op,
		IsDir:     isDir,
		Timestamp: time.Now(),
	})
}

// addRecursive adds dir and its non-skipped subdirectories to fsnotify.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(w.root, path)
		if w.filter.skipDir(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}
