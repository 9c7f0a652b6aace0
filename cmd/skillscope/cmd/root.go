// Package cmd provides the CLI commands for skillscope.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/skillscope/internal/config"
	"github.com/Aman-CERP/skillscope/internal/corpus"
	"github.com/Aman-CERP/skillscope/internal/engine"
	serrors "github.com/Aman-CERP/skillscope/internal/errors"
	"github.com/Aman-CERP/skillscope/internal/logging"
	"github.com/Aman-CERP/skillscope/internal/profiling"
	"github.com/Aman-CERP/skillscope/internal/store"
	"github.com/Aman-CERP/skillscope/pkg/version"
)

// globalOptions holds the persistent flags and the per-invocation state
// built from them.
type globalOptions struct {
	corpus     string
	configPath string
	debug      bool
	noCache    bool
	profile    profiling.Options

	cfg            *config.Config
	logger         *slog.Logger
	loggingCleanup func()
	profiler       *profiling.Session
}

// NewRootCmd creates the root command for the skillscope CLI.
func NewRootCmd() *cobra.Command {
	cmd, _ := newRootCmd()
	return cmd
}

func newRootCmd() (*cobra.Command, *globalOptions) {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "skillscope",
		Short: "Retrieve skill documents and find skill gaps for a repository",
		Long: `skillscope indexes a library of SKILL.md documents and answers two questions:

  retrieve      which documents best fit a query or a repository, within a token budget
  analyze-gaps  which technologies a repository uses that no document covers

Results go to stdout as json (default), jsonl, text or markdown.`,
		Version:       version.Version,
		Args:          usageArgs(cobra.NoArgs),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.SetVersionTemplate("skillscope version {{.Version}}\n")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return serrors.ValidationError(err.Error(), err)
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.corpus, "corpus", "", "Skill library directory (default: corpus.path from config, else the working directory)")
	pf.StringVar(&g.configPath, "config", "", "Config file (default: ./"+config.ProjectConfigName+")")
	pf.BoolVar(&g.debug, "debug", false, "Enable debug logging to "+logging.DefaultLogPath())
	pf.BoolVar(&g.noCache, "no-cache", false, "Do not read or write the index cache")
	pf.StringVar(&g.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	pf.StringVar(&g.profile.Heap, "profile-mem", "", "Write heap profile to file")
	pf.StringVar(&g.profile.Trace, "profile-trace", "", "Write execution trace to file")
	_ = pf.MarkHidden("profile-cpu")
	_ = pf.MarkHidden("profile-mem")
	_ = pf.MarkHidden("profile-trace")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return g.start(cmd)
	}

	cmd.AddCommand(newRetrieveCmd(g))
	cmd.AddCommand(newAnalyzeGapsCmd(g))
	cmd.AddCommand(newIndexCmd(g))
	cmd.AddCommand(newStatsCmd(g))
	cmd.AddCommand(newValidateCmd(g))
	cmd.AddCommand(newCategoriesCmd())
	cmd.AddCommand(newConfigCmd(g))
	cmd.AddCommand(newVersionCmd())

	return cmd, g
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

// run executes the CLI with args and maps the outcome to an exit code.
// Errors are printed to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root, g := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	// PersistentPostRunE is skipped when RunE fails.
	if stopErr := g.stop(); err == nil {
		err = stopErr
	}
	if err == nil {
		return serrors.ExitOK
	}
	if !errors.As(err, new(*serrors.Error)) && errors.Is(err, context.Canceled) {
		err = serrors.New(serrors.ErrCodeScanCancelled, "interrupted", err)
	}
	_, _ = fmt.Fprint(stderr, serrors.FormatForCLI(err))
	return serrors.ExitCode(err)
}

// usageArgs wraps a cobra argument validator so its failures exit with 2.
func usageArgs(v cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := v(cmd, args); err != nil {
			return serrors.ValidationError(err.Error(), err).
				WithSuggestion(fmt.Sprintf("run '%s --help' for usage", cmd.CommandPath()))
		}
		return nil
	}
}

// start loads configuration, sets up logging and starts profiling.
func (g *globalOptions) start(cmd *cobra.Command) error {
	wd, err := os.Getwd()
	if err != nil {
		return serrors.InternalError("cannot determine working directory", err)
	}
	cfg, err := config.Load(wd, g.configPath)
	if err != nil {
		return err
	}
	if g.corpus != "" {
		cfg.Corpus.Path = g.corpus
	}
	if cfg.Corpus.Path == "" {
		cfg.Corpus.Path = wd
	}
	if g.noCache {
		cfg.Cache.Enabled = false
	}
	g.cfg = cfg

	logCfg := logging.Config{
		Level:     cfg.Logging.Level,
		FilePath:  cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
		Stderr:    cmd.ErrOrStderr(),
	}
	if g.debug {
		logCfg.Level = "debug"
		if logCfg.FilePath == "" {
			logCfg.FilePath = logging.DefaultLogPath()
		}
	}
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return serrors.ConfigError("failed to set up logging", err)
	}
	g.logger, g.loggingCleanup = logger, cleanup
	slog.SetDefault(logger)
	logger.Debug("command_started",
		slog.String("command", cmd.CommandPath()),
		slog.String("version", version.Version),
		slog.String("corpus", cfg.Corpus.Path))

	if g.profile.Enabled() {
		g.profiler, err = profiling.Start(g.profile)
		if err != nil {
			return serrors.ValidationError("failed to start profiling", err)
		}
	}
	return nil
}

func (g *globalOptions) stop() error {
	var err error
	if g.profiler != nil {
		err = g.profiler.Stop()
		g.profiler = nil
	}
	if g.loggingCleanup != nil {
		g.loggingCleanup()
		g.loggingCleanup = nil
	}
	return err
}

// newStore builds the document store for the configured corpus.
func (g *globalOptions) newStore() *store.Store {
	opts := store.Options{Corpus: corpus.Options{
		Root:    g.cfg.Corpus.Path,
		Include: g.cfg.Corpus.Include,
		Exclude: g.cfg.Corpus.Exclude,
	}}
	if g.cfg.Cache.Enabled {
		opts.CacheDir = g.cfg.Cache.Dir
	}
	return store.New(opts, g.logger)
}

// newEngine builds an engine over a fresh store.
func (g *globalOptions) newEngine() *engine.Engine {
	return engine.New(g.cfg, g.newStore(), g.logger)
}
