package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"paperman/src/internal/chooser"
	"paperman/src/internal/config"
	"paperman/src/internal/doi"
	"paperman/src/internal/gitutil"
	"paperman/src/internal/logging"
	"paperman/src/internal/opener"
	"paperman/src/internal/pipeline"
	"paperman/src/internal/selection"
	"paperman/src/internal/store"
)

type rootOptions struct {
	configPath string
	dbPath     string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	var opts rootOptions
	cmd := &cobra.Command{
		Use:   "paperman [flags] <command> [args] [<command> [args]...]",
		Short: "Keep a bibliography and act on selections of it",
		Long: `paperman keeps citation records in one file keyed by citation key.

Each invocation starts with every stored entry selected, applies the
selection commands in order, and ends with one terminal command, e.g.

  paperman bibtex refs.bib add
  paperman by title garcia pick open
  paperman by author knuth export > knuth.bib

` + pipeline.Grammar,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return run(cmd, opts, args)
		},
	}
	// chain tokens such as --yaml belong to the chain, not to paperman
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (default $PAPERMAN_CONFIG or ~/.config/paperman/config.toml)")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "store file; .yaml/.yml for YAML, JSON otherwise (overrides store.path)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", "", "text or json")
	return cmd
}

func loadConfig(opts rootOptions) (*config.Config, error) {
	cfg, _, _, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.dbPath != "" {
		if err := cfg.SetStorePath(opts.dbPath); err != nil {
			return nil, err
		}
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Logging.Format = opts.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command, opts rootOptions, args []string) error {
	cmds, err := pipeline.Parse(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Writer: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	file := store.Open(cfg.Store.Path)
	if pipeline.HasCommit(cmds) {
		unlock, err := file.Lock(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := unlock(); err != nil {
				logger.Warn("release store lock", "error", err)
			}
		}()
	}
	data, err := file.Load()
	if err != nil {
		return err
	}
	logger.Debug("store loaded", "path", file.Path, "format", file.Format.String(), "entries", len(data))

	var persister selection.Persister = file
	if cfg.Store.GitCommit {
		persister = gitutil.Persister{Next: file, Path: file.Path, Push: cfg.Store.GitPush}
	}

	if readsStdin(cmds) && stdinIsTerminal(cmd) {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "reading BibTeX from standard input; finish with Ctrl-D")
	}

	executor := &pipeline.Executor{
		Out:       cmd.OutOrStdout(),
		Stdin:     cmd.InOrStdin(),
		ReadFile:  os.ReadFile,
		Chooser:   chooser.New(cfg.Chooser.Command),
		Opener:    opener.New(cfg.Opener.Command),
		Fetcher:   doi.New(cfg.DOI.BaseURL, cfg.DOI.Timeout()),
		Persister: persister,
		Logger:    logger.With(slog.String("store", file.Path)),
	}
	return executor.Run(ctx, selection.New(data), cmds)
}

func readsStdin(cmds []pipeline.Command) bool {
	for _, c := range cmds {
		if c.Kind == pipeline.KindBibtexStdin {
			return true
		}
	}
	return false
}

func stdinIsTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
