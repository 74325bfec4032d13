package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"tmcheck/internal/grammar"
	"tmcheck/internal/harness"
	"tmcheck/internal/logging"
)

func newGrammarsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "grammars",
		Short: "List registered grammars",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := harness.LoadRegistry(c.cfg.Grammar.Dirs, c.logs.Get(logging.CategoryGrammar))
			if err != nil {
				return err
			}
			rows := lo.Map(reg.Tables(), func(t *grammar.Table, _ int) []string {
				return []string{
					t.Name(),
					strings.Join(t.FileTypes(), " "),
					string(t.Mode()),
					strconv.Itoa(len(t.Rules())),
					strings.Join(lo.Map(extraCategories(t), func(c grammar.Category, _ int) string { return string(c) }), " "),
				}
			})
			tbl := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("NAME", "FILE TYPES", "MODE", "RULES", "EXTRA CATEGORIES").
				Rows(rows...)
			fmt.Fprintln(cmd.OutOrStdout(), tbl.Render())
			return nil
		},
	}
}

// extraCategories returns the categories a grammar declares beyond the
// built-in set.
func extraCategories(t *grammar.Table) []grammar.Category {
	builtin := grammar.BuiltinCategories()
	return lo.Filter(t.Categories(), func(c grammar.Category, _ int) bool {
		return !lo.Contains(builtin, c)
	})
}
