package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/skillscope/internal/cache"
	serrors "github.com/Aman-CERP/skillscope/internal/errors"
	"github.com/Aman-CERP/skillscope/internal/output"
)

func newIndexCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build, inspect or clear the cached skill index",
		Long: `The index of the skill library is built on demand by every command and cached
on disk, keyed by a hash of the library's content. These commands manage that
cache explicitly.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newIndexBuildCmd(g))
	cmd.AddCommand(newIndexInfoCmd(g))
	cmd.AddCommand(newIndexClearCmd(g))

	return cmd
}

func newIndexBuildCmd(g *globalOptions) *cobra.Command {
	var prune bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the index and store it in the cache",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := g.newStore()
			out := output.New(cmd.ErrOrStderr())
			out.Statusf(">", "Indexing %s", st.Root())

			lr, err := st.Load(cmd.Context())
			if err != nil {
				return err
			}
			for _, w := range lr.Warnings {
				out.Warning(w.String())
			}

			source := "built"
			if lr.FromCache {
				source = "restored from cache"
			}
			out.Successf("Indexed %d documents from %d files (%s)", lr.Index.Len(), lr.Files, source)
			out.KeyValue("Hash", lr.Index.Hash())

			if prune && g.cfg.Cache.Enabled {
				c, err := cache.Open(g.cfg.Cache.Dir)
				if err != nil {
					return serrors.New(serrors.ErrCodeCacheFailed, "cannot open index cache", err).WithDetail("path", g.cfg.Cache.Dir)
				}
				defer func() { _ = c.Close() }()
				n, err := c.Prune(cmd.Context(), lr.Index.Hash())
				if err != nil {
					return serrors.New(serrors.ErrCodeCacheFailed, "cannot prune index cache", err)
				}
				out.KeyValue("Pruned", n)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&prune, "prune", false, "Remove cached snapshots of older library versions")

	return cmd
}

// indexInfo is the JSON form of index info.
type indexInfo struct {
	Corpus       string        `json:"corpus"`
	Hash         string        `json:"hash"`
	Documents    int           `json:"documents"`
	Files        int           `json:"files"`
	FromCache    bool          `json:"from_cache"`
	CacheEnabled bool          `json:"cache_enabled"`
	CachePath    string        `json:"cache_path,omitempty"`
	Cached       []cache.Entry `json:"cached"`
}

func newIndexInfoCmd(g *globalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the current index and the cached snapshots",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := g.newStore()
			lr, err := st.Load(cmd.Context())
			if err != nil {
				return err
			}

			info := indexInfo{
				Corpus:       st.Root(),
				Hash:         lr.Index.Hash(),
				Documents:    lr.Index.Len(),
				Files:        lr.Files,
				FromCache:    lr.FromCache,
				CacheEnabled: g.cfg.Cache.Enabled,
				Cached:       []cache.Entry{},
			}
			if g.cfg.Cache.Enabled {
				if c, err := cache.Open(g.cfg.Cache.Dir); err == nil {
					info.CachePath = c.Path()
					if entries, err := c.List(cmd.Context()); err == nil && entries != nil {
						info.Cached = entries
					}
					_ = c.Close()
				}
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			out := output.New(cmd.OutOrStdout())
			out.KeyValue("Corpus", info.Corpus)
			out.KeyValue("Hash", info.Hash)
			out.KeyValue("Documents", info.Documents)
			out.KeyValue("Files", info.Files)
			if !info.CacheEnabled {
				out.KeyValue("Cache", "disabled")
				return nil
			}
			out.KeyValue("Cache", info.CachePath)
			for _, e := range info.Cached {
				marker := ""
				if e.Hash == info.Hash {
					marker = " (current)"
				}
				out.Status("", fmt.Sprintf("%s  %d docs  %d bytes  %s%s",
					shortHash(e.Hash), e.DocCount, e.Bytes, e.BuiltAt.Format("2006-01-02 15:04:05"), marker))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newIndexClearCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached index snapshot",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := cache.Open(g.cfg.Cache.Dir)
			if err != nil {
				return serrors.New(serrors.ErrCodeCacheFailed, "cannot open index cache", err).WithDetail("path", g.cfg.Cache.Dir)
			}
			defer func() { _ = c.Close() }()
			if err := c.Clear(cmd.Context()); err != nil {
				return serrors.New(serrors.ErrCodeCacheFailed, "cannot clear index cache", err)
			}
			output.New(cmd.ErrOrStderr()).Successf("Cleared index cache at %s", c.Path())
			return nil
		},
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
