package main

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"tmcheck/internal/fixture"
	"tmcheck/internal/harness"
	"tmcheck/internal/report"
)

func newRecordCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "record <fixtureDir>",
		Short: "Write snapshots from the current scanner output",
		Long: `Scans every fixture under fixtureDir and writes its tokens verbatim to the
companion snapshot file. Snapshots that would not change are left alone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := harness.New(c.harnessOptions(report.ColorNever, false))
			if err != nil {
				return err
			}
			recs, err := h.Record(cmd.Context(), args[0])
			for _, r := range recs {
				state := "unchanged"
				if r.Changed {
					state = "recorded"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-9s %s (%d tokens)\n", state, r.Path, r.Tokens)
			}
			if err != nil {
				return err
			}
			changed := lo.CountBy(recs, func(r fixture.Recorded) bool { return r.Changed })
			fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d snapshots written\n", changed, len(recs))
			return nil
		},
	}
}
