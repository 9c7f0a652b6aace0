// Package watcher reports settled file changes under a directory tree.
//
// fsnotify is the primary mechanism; polling takes over where fsnotify
// cannot be set up (network mounts, container volumes). Raw events are
// filtered, then debounced so that an editor save or a package manager
// run arrives as one batch.
package watcher

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Operation is a file system operation.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpDelete
	OpRename
)

// String returns the operation name.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is a change to one path.
type FileEvent struct {
	// Path is slash-separated and relative to the watched root.
	Path      string
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// Options configures a watcher.
type Options struct {
	// DebounceWindow is the quiet period before a batch is emitted.
	DebounceWindow time.Duration
	// PollInterval is the scan interval of the polling fallback.
	PollInterval time.Duration
	// EventBufferSize bounds the batch channel.
	EventBufferSize int
	// Exclude holds doublestar patterns matched against relative paths.
	// Matching directories are not descended into.
	Exclude []string
	// Relevant, when set, drops file events whose path it rejects.
	Relevant func(rel string) bool
	// ForcePolling skips fsnotify.
	ForcePolling bool
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  500 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 100,
		Exclude:         []string{"**/.git/**", "**/node_modules/**"},
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}

// filter decides which paths produce events.
type filter struct {
	exclude  []string
	relevant func(string) bool
}

func newFilter(opts Options) filter {
	return filter{exclude: opts.Exclude, relevant: opts.Relevant}
}

// skipDir reports whether the directory rel should not be watched.
func (f filter) skipDir(rel string) bool {
	if rel == "." || rel == "" {
		return false
	}
	if strings.HasPrefix(filepath.Base(rel), ".") && filepath.Base(rel) != ".github" {
		return true
	}
	return f.excluded(rel) || f.excluded(rel+"/")
}

// keep reports whether an event on rel should be emitted.
func (f filter) keep(rel string, isDir bool) bool {
	if rel == "." || rel == "" || f.excluded(rel) {
		return false
	}
	if isDir {
		return false
	}
	return f.relevant == nil || f.relevant(rel)
}

func (f filter) excluded(rel string) bool {
	for _, p := range f.exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
