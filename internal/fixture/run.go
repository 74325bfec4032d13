package fixture

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tmcheck/internal/diff"
	"tmcheck/internal/scanner"
)

// Kind distinguishes the two mismatch shapes.
type Kind string

const (
	// KindToken is a differing token at an index both sides have.
	KindToken Kind = "token"
	// KindLength is a token count difference; it ends comparison for the fixture.
	KindLength Kind = "length"
)

// Mismatch describes one disagreement between scanner output and a snapshot.
type Mismatch struct {
	Path  string
	Kind  Kind
	Index int

	// Expected and Actual are the tokens at Index. For length mismatches
	// a side that ran out of tokens is left zero, see HasExpected/HasActual.
	Expected     scanner.Token
	Actual       scanner.Token
	HasExpected  bool
	HasActual    bool
	ExpectedText string
	ActualText   string

	// Counts and Dump are set for length mismatches only.
	ExpectedCount int
	ActualCount   int
	Dump          *diff.Result
}

// Result is the outcome of scanning one fixture.
type Result struct {
	Fixture    *Fixture
	Actual     []scanner.Token
	Mismatches []Mismatch
	Duration   time.Duration
}

// OK reports whether the fixture matched its snapshot.
func (r Result) OK() bool { return len(r.Mismatches) == 0 }

// RunOptions controls the runner.
type RunOptions struct {
	// Workers bounds concurrent scans; values below 1 mean one.
	Workers int
	// Diff attaches a token dump diff to length mismatches.
	Diff        bool
	DiffContext int
	Logger      *zap.Logger
}

// Run scans every fixture and compares it against its expected tokens.
// Results are ordered by fixture path regardless of completion order. The
// only error is cancellation of ctx.
func Run(ctx context.Context, fixtures []*Fixture, opts RunOptions) ([]Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(fixtures))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range fixtures {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = runOne(f, opts)
			log.Debug("fixture scanned",
				zap.String("fixture", f.Path),
				zap.Int("tokens", len(results[i].Actual)),
				zap.Int("mismatches", len(results[i].Mismatches)),
				zap.Duration("took", results[i].Duration),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(results, func(a, b Result) int {
		return strings.Compare(a.Fixture.Path, b.Fixture.Path)
	})
	return results, nil
}

func runOne(f *Fixture, opts RunOptions) Result {
	start := time.Now()
	actual := scanner.Collect(f.Text, f.Grammar)
	return Result{
		Fixture:    f,
		Actual:     actual,
		Mismatches: Compare(f, actual, opts),
		Duration:   time.Since(start),
	}
}

// Compare checks actual against f.Expected index by index. Differing counts
// yield a single length mismatch and nothing else.
func Compare(f *Fixture, actual []scanner.Token, opts RunOptions) []Mismatch {
	expected := f.Expected
	if len(expected) != len(actual) {
		return []Mismatch{lengthMismatch(f, actual, opts)}
	}
	var out []Mismatch
	for i := range expected {
		if expected[i] == actual[i] {
			continue
		}
		out = append(out, Mismatch{
			Path:         f.Path,
			Kind:         KindToken,
			Index:        i,
			Expected:     expected[i],
			Actual:       actual[i],
			HasExpected:  true,
			HasActual:    true,
			ExpectedText: scanner.Text(f.Text, expected[i]),
			ActualText:   scanner.Text(f.Text, actual[i]),
		})
	}
	return out
}

func lengthMismatch(f *Fixture, actual []scanner.Token, opts RunOptions) Mismatch {
	expected := f.Expected
	i := 0
	for i < len(expected) && i < len(actual) && expected[i] == actual[i] {
		i++
	}
	m := Mismatch{
		Path:          f.Path,
		Kind:          KindLength,
		Index:         i,
		ExpectedCount: len(expected),
		ActualCount:   len(actual),
	}
	if i < len(expected) {
		m.Expected, m.HasExpected = expected[i], true
		m.ExpectedText = scanner.Text(f.Text, expected[i])
	}
	if i < len(actual) {
		m.Actual, m.HasActual = actual[i], true
		m.ActualText = scanner.Text(f.Text, actual[i])
	}
	if opts.Diff {
		m.Dump = diff.NewEngine(opts.DiffContext).Lines(
			"expected", "actual",
			dumpLines(f.Text, expected),
			dumpLines(f.Text, actual),
		)
	}
	return m
}

func dumpLines(src string, tokens []scanner.Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = scanner.DumpLine(src, t)
	}
	return out
}

// Mismatches flattens results into one ordered sequence.
func Mismatches(results []Result) []Mismatch {
	var out []Mismatch
	for _, r := range results {
		out = append(out, r.Mismatches...)
	}
	return out
}
