package main

import (
	"fmt"
	"os"
	"slices"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"tmcheck/internal/errs"
	"tmcheck/internal/grammar"
	"tmcheck/internal/harness"
	"tmcheck/internal/logging"
	"tmcheck/internal/scanner"
)

func newScanCmd(c *cli) *cobra.Command {
	var (
		grammarName string
		significant bool
	)
	cmd := &cobra.Command{
		Use:   "scan <file>",
		Short: "Print the token dump of one file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := harness.LoadRegistry(c.cfg.Grammar.Dirs, c.logs.Get(logging.CategoryGrammar))
			if err != nil {
				return err
			}
			table, err := pickGrammar(reg, grammarName, args[0])
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return errs.WrapLoad(err, "read %s", args[0])
			}
			if !utf8.Valid(data) {
				return errs.Load("%s is not valid UTF-8", args[0])
			}
			src := string(data)

			seq := scanner.Scan(src, table)
			if significant {
				seq = scanner.Significant(seq)
			}
			fmt.Fprint(cmd.OutOrStdout(), scanner.Dump(src, slices.Collect(seq)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&grammarName, "grammar", "g", "", "Grammar name (default: by file extension)")
	cmd.Flags().BoolVar(&significant, "significant", false, "Omit whitespace tokens")
	return cmd
}

func pickGrammar(reg *grammar.Registry, name, path string) (*grammar.Table, error) {
	if name != "" {
		t, ok := reg.Lookup(name)
		if !ok {
			return nil, errs.Configuration("unknown grammar %q (have %v)", name, reg.Names())
		}
		return t, nil
	}
	t, ok := reg.ForPath(path)
	if !ok {
		return nil, errs.Load("no grammar for %s; use --grammar", path)
	}
	return t, nil
}
