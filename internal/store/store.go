// Package store owns the current index snapshot of the skill corpus.
//
// Readers take a snapshot pointer and keep using it for the whole request.
// A reload builds a fresh index and swaps the pointer, so in-flight readers
// finish on the old snapshot.
package store

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/Aman-CERP/skillscope/internal/cache"
	"github.com/Aman-CERP/skillscope/internal/corpus"
	serrors "github.com/Aman-CERP/skillscope/internal/errors"
	"github.com/Aman-CERP/skillscope/internal/index"
)

// Options configures a Store.
type Options struct {
	Corpus corpus.Options
	// CacheDir enables the on-disk snapshot cache when non-empty.
	CacheDir string
}

// LoadResult describes one load.
type LoadResult struct {
	Index     *index.Index
	Warnings  []serrors.Warning
	FromCache bool
	Files     int
}

// Store holds the current index snapshot.
type Store struct {
	opts    Options
	current atomic.Pointer[index.Index]
	logger  *slog.Logger
}

// New creates an empty Store. Call Load before Snapshot.
func New(opts Options, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{opts: opts, logger: logger}
}

// Snapshot returns the current index, or nil before the first Load.
func (s *Store) Snapshot() *index.Index {
	return s.current.Load()
}

// Root returns the absolute corpus root.
func (s *Store) Root() string {
	root, err := filepath.Abs(s.opts.Corpus.Root)
	if err != nil {
		return s.opts.Corpus.Root
	}
	return root
}

// Load reads the corpus, builds (or restores from cache) its index and
// publishes it as the current snapshot. On error the previous snapshot
// stays in place.
func (s *Store) Load(ctx context.Context) (*LoadResult, error) {
	raws, warnings, err := corpus.Discover(ctx, s.opts.Corpus)
	if err != nil {
		return nil, err
	}
	res := &LoadResult{Warnings: warnings, Files: len(raws)}

	hash := corpus.Hash(raws)
	c := s.openCache()
	if c != nil {
		defer func() { _ = c.Close() }()
		if idx, err := c.Get(ctx, hash); err != nil {
			s.logger.Warn("index_cache_read_failed", slog.String("error", err.Error()))
			res.Warnings = append(res.Warnings, cacheWarning(err))
		} else if idx != nil {
			s.logger.Debug("index_cache_hit", slog.String("hash", hash), slog.Int("docs", idx.Len()))
			res.Index, res.FromCache = idx, true
			res.Warnings = append(res.Warnings, idx.BuildWarnings()...)
		}
	}

	if res.Index == nil {
		idx, buildWarnings, err := index.Build(raws)
		res.Warnings = append(res.Warnings, buildWarnings...)
		if err != nil {
			var se *serrors.Error
			if errors.As(err, &se) {
				se.WithDetail("path", s.Root())
			}
			return nil, err
		}
		res.Index = idx
		if c != nil {
			if err := c.Put(ctx, idx); err != nil {
				s.logger.Warn("index_cache_write_failed", slog.String("error", err.Error()))
				res.Warnings = append(res.Warnings, cacheWarning(err))
			}
		}
	}

	if merr := serrors.Aggregate(res.Warnings); merr != nil {
		s.logger.Warn("corpus_load_warnings",
			slog.Int("count", len(res.Warnings)),
			slog.String("warnings", merr.Error()))
	}
	s.logger.Info("corpus_loaded",
		slog.String("root", s.Root()),
		slog.Int("files", res.Files),
		slog.Int("docs", res.Index.Len()),
		slog.Bool("from_cache", res.FromCache))

	s.current.Store(res.Index)
	return res, nil
}

func (s *Store) openCache() *cache.Cache {
	if s.opts.CacheDir == "" {
		return nil
	}
	c, err := cache.Open(s.opts.CacheDir)
	if err != nil {
		s.logger.Warn("index_cache_unavailable", slog.String("error", err.Error()))
		return nil
	}
	return c
}

func cacheWarning(err error) serrors.Warning {
	return serrors.Warning{Kind: serrors.WarnCache, Stage: "corpus", Message: err.Error()}
}
