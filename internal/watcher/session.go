package watcher

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Target is one tree watched by a session.
type Target struct {
	// Name identifies the target in batches, e.g. "repo" or "corpus".
	Name string
	Root string
	// Relevant overrides Options.Relevant for this target.
	Relevant func(rel string) bool
}

// Batch is a settled set of changes under one target.
type Batch struct {
	Target string
	Root   string
	Events []FileEvent
}

// Paths returns the changed paths in the batch.
func (b Batch) Paths() []string {
	out := make([]string, len(b.Events))
	for i, ev := range b.Events {
		out[i] = ev.Path
	}
	return out
}

// Handler reacts to a batch. Errors are logged and watching continues;
// returning context.Canceled ends the session.
type Handler func(ctx context.Context, b Batch) error

// Watch watches every target until ctx is cancelled, calling handle for
// each batch. Batches are handled one at a time, in arrival order.
func Watch(ctx context.Context, targets []Target, opts Options, handle Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if len(targets) == 0 {
		return errors.New("no watch targets")
	}

	watchers := make([]*Watcher, 0, len(targets))
	for _, t := range targets {
		o := opts
		if t.Relevant != nil {
			o.Relevant = t.Relevant
		}
		w, err := New(t.Root, o, logger)
		if err != nil {
			return err
		}
		watchers = append(watchers, w)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	batches := make(chan Batch)
	g, gctx := errgroup.WithContext(ctx)
	for i, w := range watchers {
		name := targets[i].Name
		g.Go(func() error { return w.Run(gctx) })
		g.Go(func() error {
			for events := range w.Events() {
				select {
				case batches <- Batch{Target: name, Root: w.Root(), Events: events}:
				case <-gctx.Done():
					return nil
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case b := <-batches:
				logger.Info("watch_batch",
					slog.String("target", b.Target),
					slog.Int("events", len(b.Events)))
				err := handle(gctx, b)
				if errors.Is(err, context.Canceled) {
					cancel()
					return nil
				}
				if err != nil {
					logger.Error("watch_handler_failed",
						slog.String("target", b.Target),
						slog.String("error", err.Error()))
				}
			}
		}
	})

	return g.Wait()
}
