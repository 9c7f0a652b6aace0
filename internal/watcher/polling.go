package watcher

import (
	"io/fs"
	"path/filepath"
	"sort"
	"time"
)

// poller detects changes by comparing directory snapshots. Used when
// fsnotify is unavailable or disabled.
type poller struct {
	root   string
	filter filter
	state  map[string]fileSnapshot
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

func newPoller(root string, f filter) *poller {
	return &poller{root: root, filter: f, state: map[string]fileSnapshot{}}
}

func (p *poller) baseline() {
	p.state = p.snapshot()
}

// snapshot records the state of every kept file under root.
func (p *poller) snapshot() map[string]fileSnapshot {
	out := make(map[string]fileSnapshot)
	_ = filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(p.root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if p.filter.skipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !p.filter.keep(rel, false) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out[rel] = fileSnapshot{modTime: info.ModTime(), size: info.Size()}
		return nil
	})
	return out
}

// detectChanges rescans and returns the differences from the previous
// snapshot, sorted by path.
func (p *poller) detectChanges() []FileEvent {
	current := p.snapshot()
	now := time.Now()
	var events []FileEvent

	for rel, snap := range current {
		prev, ok := p.state[rel]
		switch {
		case !ok:
			events = append(events, FileEvent{Path: rel, Operation: OpCreate, Timestamp: now})
		case !prev.modTime.Equal(snap.modTime) || prev.size != snap.size:
			events = append(events, FileEvent{Path: rel, Operation: OpModify, Timestamp: now})
		}
	}
	for rel := range p.state {
		if _, ok := current[rel]; !ok {
			events = append(events, FileEvent{Path: rel, Operation: OpDelete, Timestamp: now})
		}
	}

	p.state = current
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	return events
}
