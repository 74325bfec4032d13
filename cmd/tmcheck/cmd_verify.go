package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tmcheck/internal/errs"
	"tmcheck/internal/harness"
	"tmcheck/internal/logging"
	"tmcheck/internal/report"
)

func newVerifyCmd(c *cli) *cobra.Command {
	var (
		watch bool
		diff  bool
		color string
	)
	cmd := &cobra.Command{
		Use:   "verify <fixtureDir>",
		Short: "Compare scanner output with every fixture's snapshot",
		Long: `Loads every example file under fixtureDir whose extension a grammar claims,
scans it and compares the tokens index by index with its snapshot.

Mismatches are printed to stdout grouped by fixture; a summary goes to stderr.
With --watch the check re-runs whenever a fixture, snapshot or grammar changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := report.ColorMode(c.cfg.Report.Color)
			if color != "" {
				m, err := report.ParseColorMode(color)
				if err != nil {
					return err
				}
				mode = m
			}
			showDiff := c.cfg.Report.Diff
			if cmd.Flags().Changed("diff") {
				showDiff = diff
			}

			h, err := harness.New(c.harnessOptions(mode, showDiff))
			if err != nil {
				return err
			}
			if watch {
				return runWatch(cmd, c, h, args[0])
			}

			out, err := h.Verify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printOutcome(cmd, out)
			return out.Err()
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Re-run on file changes until interrupted")
	cmd.Flags().BoolVar(&diff, "diff", true, "Show token dump diffs for count mismatches")
	cmd.Flags().StringVar(&color, "color", "", "Colour output: auto, always or never")
	return cmd
}

func printOutcome(cmd *cobra.Command, out *harness.Outcome) {
	if out.Text != "" {
		fmt.Fprint(cmd.OutOrStdout(), out.Text)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), out.Summary)
}

func runWatch(cmd *cobra.Command, c *cli, h *harness.Harness, dir string) error {
	log := c.logs.Get(logging.CategoryWatch)
	log.Info("watching", zap.String("dir", dir))
	return h.Watch(cmd.Context(), dir, func(out *harness.Outcome, err error) {
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "tmcheck: %s: %v\n", errs.Kind(err), err)
			return
		}
		printOutcome(cmd, out)
	})
}
