// Command tmcheck verifies grammar-driven tokenizers against recorded token
// snapshots.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tmcheck/internal/config"
	"tmcheck/internal/errs"
	"tmcheck/internal/harness"
	"tmcheck/internal/logging"
	"tmcheck/internal/report"
)

// cli holds global flags and the state resolved from them before any
// subcommand runs.
type cli struct {
	// Global flags
	configPath  string
	verbose     bool
	grammarDirs []string
	workers     int
	logFormat   string

	cfg    *config.Config
	logs   *logging.Loggers
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "tmcheck",
		Short: "Verify grammar-driven tokenizers against token snapshots",
		Long: `tmcheck scans example source files with declarative grammars and compares
the resulting token streams with snapshots recorded next to each example.

Exit codes:
  0  every fixture matches its snapshot
  1  at least one mismatch
  2  configuration or load error`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logs != nil {
				_ = c.logs.Sync()
			}
		},
	}
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "Config file (default: ./"+config.DefaultFileName+" when present)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().StringArrayVar(&c.grammarDirs, "grammar-dir", nil, "Extra grammar directory (repeatable)")
	root.PersistentFlags().IntVar(&c.workers, "workers", 0, "Concurrent fixture scans (default: config or GOMAXPROCS)")
	root.PersistentFlags().StringVar(&c.logFormat, "log-format", "", "Log format: console or json")

	root.AddCommand(newVerifyCmd(c))
	root.AddCommand(newRecordCmd(c))
	root.AddCommand(newScanCmd(c))
	root.AddCommand(newGrammarsCmd(c))
	return root
}

// setup resolves configuration (file, environment, then flags) and builds
// the loggers.
func (c *cli) setup(cmd *cobra.Command) error {
	path := c.configPath
	load := config.Load
	if path == "" {
		path = config.DefaultFileName
		load = config.LoadOptional
	}
	cfg, err := load(path)
	if err != nil {
		return err
	}

	cfg.Grammar.Dirs = append(cfg.Grammar.Dirs, c.grammarDirs...)
	if cmd.Flags().Changed("workers") {
		cfg.Fixtures.Workers = c.workers
	}
	if c.logFormat != "" {
		cfg.Logging.Format = c.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logs, err := logging.New(cfg.Logging, c.verbose, c.stderr)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logs = logs

	logs.Get(logging.CategoryBoot).Debug("config resolved",
		zap.String("command", cmd.Name()),
		zap.String("config", path),
		zap.Strings("grammar_dirs", cfg.Grammar.Dirs),
		zap.Int("workers", cfg.GetWorkers()),
	)
	return nil
}

// harnessOptions builds harness options from the resolved config.
func (c *cli) harnessOptions(color report.ColorMode, diff bool) harness.Options {
	return harness.Options{
		GrammarDirs:    c.cfg.Grammar.Dirs,
		SnapshotSuffix: c.cfg.Fixtures.SnapshotSuffix,
		Workers:        c.cfg.GetWorkers(),
		Diff:           diff,
		DiffContext:    c.cfg.Report.DiffContext,
		Color:          color,
		Out:            c.stdout,
		Debounce:       c.cfg.GetDebounce(),
		Logs:           c.logs,
	}
}

// execute runs the CLI with args and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	c := &cli{stdout: stdout, stderr: stderr}
	root := newRootCmd(c)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
	case errs.IsMismatch(err):
		// The report has already been printed.
	default:
		if kind := errs.Kind(err); kind != "error" {
			fmt.Fprintf(stderr, "tmcheck: %s: %v\n", kind, err)
		} else {
			fmt.Fprintf(stderr, "tmcheck: %v\n", err)
		}
	}
	return errs.ExitCode(err)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
