package signals

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	serrors "github.com/Aman-CERP/skillscope/internal/errors"
	"github.com/Aman-CERP/skillscope/internal/gitignore"
)

var errFileLimit = errors.New("file limit reached")

// fileID identifies a directory independently of the path it was reached by.
type fileID struct {
	dev, ino uint64
	path     string
}

// walker enumerates repository files in lexical order and feeds them to
// the worker pool. It runs on a single goroutine; its fields are read only
// after the pool has drained.
type walker struct {
	opts    Options
	units   chan<- unit
	logger  *slog.Logger
	visited map[fileID]struct{}
	ignore  *gitignore.Matcher

	files     int
	truncated bool
	stats     Stats
}

func newWalker(opts Options, units chan<- unit, logger *slog.Logger) *walker {
	return &walker{
		opts:    opts,
		units:   units,
		logger:  logger,
		visited: make(map[fileID]struct{}),
		ignore:  gitignore.New(),
	}
}

func (w *walker) run(ctx context.Context, root string) error {
	err := w.walk(ctx, root, "", 0)
	if errors.Is(err, errFileLimit) {
		w.truncated = true
		return nil
	}
	return err
}

// walk visits dir. Every directory is identified by (device, inode) before
// it is read, so symlink loops and bind-mount cycles are entered once.
func (w *walker) walk(ctx context.Context, dir, rel string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id, err := identify(dir); err == nil {
		if _, seen := w.visited[id]; seen {
			w.stats.CyclesAvoided++
			w.logger.Debug("scan_cycle_skipped", slog.String("path", rel))
			return nil
		}
		w.visited[id] = struct{}{}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		// the root was checked up front; a deeper unreadable directory is skipped
		w.logger.Debug("scan_dir_unreadable", slog.String("path", rel), slog.String("error", err.Error()))
		return nil
	}
	w.stats.Dirs++
	w.loadIgnore(dir, rel)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		childRel := entry.Name()
		if rel != "" {
			childRel = path.Join(rel, entry.Name())
		}
		childAbs := filepath.Join(dir, entry.Name())

		isDir := entry.IsDir()
		var size int64
		switch {
		case entry.Type()&fs.ModeSymlink != 0:
			if !w.opts.FollowSymlinks {
				continue
			}
			info, err := os.Stat(childAbs)
			if err != nil {
				continue
			}
			if !info.IsDir() && !info.Mode().IsRegular() {
				continue
			}
			isDir = info.IsDir()
			size = info.Size()
		case isDir:
		case entry.Type().IsRegular():
			info, err := entry.Info()
			if err != nil {
				continue
			}
			size = info.Size()
		default:
			continue
		}

		if isDir {
			if w.excluded(childRel) || w.excluded(childRel+"/") {
				continue
			}
			if w.ignored(childRel, true) {
				continue
			}
			if depth+1 > w.opts.MaxDepth {
				w.stats.DepthLimited++
				continue
			}
			if err := w.walk(ctx, childAbs, childRel, depth+1); err != nil {
				return err
			}
			continue
		}

		if w.excluded(childRel) || w.ignored(childRel, false) {
			continue
		}
		w.stats.FilesSeen++
		if w.files >= w.opts.MaxFiles {
			return errFileLimit
		}
		w.files++
		select {
		case w.units <- unit{rel: childRel, abs: childAbs, size: size}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (w *walker) excluded(rel string) bool {
	for _, p := range w.opts.Exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// loadIgnore adds dir's .gitignore rules before its entries are visited.
func (w *walker) loadIgnore(dir, rel string) {
	if !w.opts.RespectGitignore {
		return
	}
	p := filepath.Join(dir, gitignore.FileName)
	if _, err := os.Stat(p); err != nil {
		return
	}
	if err := w.ignore.AddFile(p, rel); err != nil {
		w.logger.Debug("scan_gitignore_unreadable", slog.String("path", rel), slog.String("error", err.Error()))
	}
}

func (w *walker) ignored(rel string, isDir bool) bool {
	if !w.opts.RespectGitignore || w.ignore.Len() == 0 {
		return false
	}
	if w.ignore.Match(rel, isDir) {
		w.stats.Ignored++
		return true
	}
	return false
}

// warnings reports the caps the walk ran into.
func (w *walker) warnings() []serrors.Warning {
	var out []serrors.Warning
	if w.truncated {
		out = append(out, serrors.Warning{
			Kind:    serrors.WarnScanTruncated,
			Stage:   "scan",
			Message: fmt.Sprintf("stopped after %d files (max_files)", w.opts.MaxFiles),
		})
	}
	if w.stats.DepthLimited > 0 {
		out = append(out, serrors.Warning{
			Kind:    serrors.WarnScanTruncated,
			Stage:   "scan",
			Message: fmt.Sprintf("%d directories below max_depth %d not scanned", w.stats.DepthLimited, w.opts.MaxDepth),
		})
	}
	return out
}
