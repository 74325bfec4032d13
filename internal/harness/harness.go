// Package harness drives a verification run: it loads fixtures, scans them
// and reports mismatches, in that order and never interleaved.
package harness

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tmcheck/internal/errs"
	"tmcheck/internal/fixture"
	"tmcheck/internal/grammar"
	"tmcheck/internal/logging"
	"tmcheck/internal/report"
)

// Phase is a step of a verification run.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseScanning
	PhaseReporting
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "LOADING"
	case PhaseScanning:
		return "SCANNING"
	case PhaseReporting:
		return "REPORTING"
	default:
		return "UNKNOWN"
	}
}

// Options configures a Harness.
type Options struct {
	// GrammarDirs are loaded over the built-in grammars, in order.
	GrammarDirs    []string
	SnapshotSuffix string
	Workers        int

	Diff        bool
	DiffContext int
	Color       report.ColorMode
	// Out is where reports are written; used for colour detection.
	Out io.Writer

	// Debounce delays watch re-runs until changes settle.
	Debounce time.Duration

	Logs *logging.Loggers
}

// Outcome is the result of one verification run.
type Outcome struct {
	RunID    string
	Text     string
	Summary  string
	ExitCode int
	Results  []fixture.Result
	// Phases lists the phases the run went through, in order.
	Phases []Phase
}

// Harness runs verifications against one grammar registry.
type Harness struct {
	opts     Options
	registry *grammar.Registry
	reporter *report.Reporter
	logs     *logging.Loggers
}

// New loads the grammars named by opts and returns a harness.
func New(opts Options) (*Harness, error) {
	logs := opts.Logs
	if logs == nil {
		logs = logging.Nop()
	}
	reg, err := LoadRegistry(opts.GrammarDirs, logs.Get(logging.CategoryGrammar))
	if err != nil {
		return nil, err
	}
	return NewWithRegistry(reg, opts), nil
}

// NewWithRegistry returns a harness using reg as is.
func NewWithRegistry(reg *grammar.Registry, opts Options) *Harness {
	if opts.Logs == nil {
		opts.Logs = logging.Nop()
	}
	if opts.SnapshotSuffix == "" {
		opts.SnapshotSuffix = fixture.DefaultSnapshotSuffix
	}
	return &Harness{
		opts:     opts,
		registry: reg,
		reporter: report.New(report.Options{Color: opts.Color, ShowDiff: opts.Diff, Out: opts.Out}),
		logs:     opts.Logs,
	}
}

// LoadRegistry returns the built-in grammars overlaid with every grammar
// file in dirs.
func LoadRegistry(dirs []string, log *zap.Logger) (*grammar.Registry, error) {
	reg, err := grammar.Builtin()
	if err != nil {
		return nil, err
	}
	reg.UseLogger(log)
	for _, dir := range dirs {
		n, err := reg.LoadDir(dir)
		if err != nil {
			return nil, err
		}
		log.Debug("grammar directory loaded", zap.String("dir", dir), zap.Int("grammars", n))
	}
	log.Debug("grammars ready", zap.Strings("names", reg.Names()))
	return reg, nil
}

// Registry returns the harness's grammars.
func (h *Harness) Registry() *grammar.Registry { return h.registry }

// Verify checks every fixture under dir against its snapshot. Configuration
// and load errors abort before any scanning; mismatches do not produce an
// error, they are reported in the outcome with exit code 1.
func (h *Harness) Verify(ctx context.Context, dir string) (*Outcome, error) {
	out := &Outcome{RunID: uuid.NewString()}
	logs := h.logs.With(zap.String("run_id", out.RunID))
	enter := func(p Phase) {
		out.Phases = append(out.Phases, p)
		logs.Get(logging.CategoryBoot).Debug("phase", zap.Stringer("phase", p))
	}

	enter(PhaseLoading)
	fixtures, err := fixture.Load(dir, h.registry, fixture.LoadOptions{
		SnapshotSuffix:   h.opts.SnapshotSuffix,
		RequireSnapshots: true,
		Logger:           logs.Get(logging.CategoryFixture),
	})
	if err != nil {
		return nil, err
	}
	logs.Get(logging.CategoryFixture).Info("fixtures loaded", zap.String("dir", dir), zap.Int("count", len(fixtures)))

	enter(PhaseScanning)
	results, err := fixture.Run(ctx, fixtures, fixture.RunOptions{
		Workers:     h.opts.Workers,
		Diff:        h.opts.Diff,
		DiffContext: h.opts.DiffContext,
		Logger:      logs.Get(logging.CategoryScan),
	})
	if err != nil {
		return nil, err
	}

	enter(PhaseReporting)
	mismatches := fixture.Mismatches(results)
	out.Results = results
	out.Text, out.ExitCode = h.reporter.Render(mismatches)
	out.Summary = h.reporter.Summary(results)
	logs.Get(logging.CategoryReport).Info("run complete",
		zap.Int("fixtures", len(results)),
		zap.Int("mismatches", len(mismatches)),
		zap.Int("exit_code", out.ExitCode),
	)
	return out, nil
}

// Err returns the error form of the outcome's exit code: nil when everything
// matched, a mismatch error otherwise.
func (o *Outcome) Err() error {
	if o.ExitCode == errs.ExitOK {
		return nil
	}
	return errs.Mismatch(len(fixture.Mismatches(o.Results)))
}

// Record rewrites the snapshots of every fixture under dir from the current
// scanner output.
func (h *Harness) Record(ctx context.Context, dir string) ([]fixture.Recorded, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := h.logs.Get(logging.CategoryFixture)
	fixtures, err := fixture.Load(dir, h.registry, fixture.LoadOptions{
		SnapshotSuffix: h.opts.SnapshotSuffix,
		Logger:         log,
	})
	if err != nil {
		return nil, err
	}
	return fixture.Record(fixtures, log)
}
