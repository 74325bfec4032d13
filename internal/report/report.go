// Package report renders fixture mismatches as human-readable text and maps
// them to the process exit code.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"tmcheck/internal/diff"
	"tmcheck/internal/errs"
	"tmcheck/internal/fixture"
	"tmcheck/internal/scanner"
)

// Options configures a Reporter.
type Options struct {
	Color ColorMode
	// ShowDiff prints the token dump diff attached to length mismatches.
	ShowDiff bool
	// Out is where the text will be written; used only for terminal detection.
	Out io.Writer
}

// Reporter renders mismatch reports. It is stateless between calls.
type Reporter struct {
	st       styles
	showDiff bool
}

// New returns a reporter for opts.
func New(opts Options) *Reporter {
	return &Reporter{st: newStyles(opts.Color, opts.Out), showDiff: opts.ShowDiff}
}

// Render formats mismatches grouped by fixture path. No mismatches render as
// empty text with exit code 0; anything else exits 1.
func (r *Reporter) Render(mismatches []fixture.Mismatch) (string, int) {
	if len(mismatches) == 0 {
		return "", errs.ExitOK
	}

	groups := lo.GroupBy(mismatches, func(m fixture.Mismatch) string { return m.Path })
	paths := lo.Keys(groups)
	sort.Strings(paths)

	var b strings.Builder
	for i, p := range paths {
		if i > 0 {
			b.WriteByte('\n')
		}
		ms := groups[p]
		fmt.Fprintf(&b, "%s %s (%s)\n", r.st.fail.Render("FAIL"), r.st.path.Render(p), plural(len(ms), "mismatch", "mismatches"))
		for _, m := range ms {
			switch m.Kind {
			case fixture.KindLength:
				r.renderLength(&b, m)
			default:
				r.renderToken(&b, m)
			}
		}
	}
	return b.String(), errs.ExitMismatch
}

func (r *Reporter) renderToken(b *strings.Builder, m fixture.Mismatch) {
	fmt.Fprintf(b, "  #%d %s\n", m.Index, r.st.muted.Render(span(m.Expected, m.Actual)))
	fmt.Fprintf(b, "    expected %s\n", r.st.expected.Render(describe(m.Expected, m.ExpectedText, m.HasExpected)))
	fmt.Fprintf(b, "    actual   %s\n", r.st.actual.Render(describe(m.Actual, m.ActualText, m.HasActual)))
}

func (r *Reporter) renderLength(b *strings.Builder, m fixture.Mismatch) {
	fmt.Fprintf(b, "  token count: expected %d, actual %d; first divergence at #%d\n", m.ExpectedCount, m.ActualCount, m.Index)
	fmt.Fprintf(b, "    expected %s\n", r.st.expected.Render(describe(m.Expected, m.ExpectedText, m.HasExpected)))
	fmt.Fprintf(b, "    actual   %s\n", r.st.actual.Render(describe(m.Actual, m.ActualText, m.HasActual)))
	if r.showDiff && m.Dump != nil && !m.Dump.Empty() {
		r.renderDump(b, m.Dump)
	}
}

func (r *Reporter) renderDump(b *strings.Builder, d *diff.Result) {
	lines := strings.Split(strings.TrimSuffix(d.Unified(), "\n"), "\n")
	for i, l := range lines {
		switch {
		case i == 0:
			l = r.st.expected.Render(l)
		case i == 1:
			l = r.st.actual.Render(l)
		case strings.HasPrefix(l, "@@"):
			l = r.st.hunk.Render(l)
		case strings.HasPrefix(l, "-"):
			l = r.st.expected.Render(l)
		case strings.HasPrefix(l, "+"):
			l = r.st.actual.Render(l)
		}
		fmt.Fprintf(b, "    %s\n", l)
	}
}

// span labels the byte range of a token mismatch.
func span(expected, actual scanner.Token) string {
	if expected.Start == actual.Start && expected.Length == actual.Length {
		return fmt.Sprintf("at %d+%d", expected.Start, expected.Length)
	}
	return fmt.Sprintf("at %d+%d vs %d+%d", expected.Start, expected.Length, actual.Start, actual.Length)
}

func describe(t scanner.Token, text string, ok bool) string {
	if !ok {
		return "<end of tokens>"
	}
	return fmt.Sprintf("%s %q", t, text)
}

// Summary renders a one-line count summary of a run.
func (r *Reporter) Summary(results []fixture.Result) string {
	failed := lo.CountBy(results, func(res fixture.Result) bool { return !res.OK() })
	mismatches := lo.SumBy(results, func(res fixture.Result) int { return len(res.Mismatches) })
	tokens := lo.SumBy(results, func(res fixture.Result) int { return len(res.Actual) })
	size := lo.SumBy(results, func(res fixture.Result) uint64 { return uint64(len(res.Fixture.Text)) })

	status := r.st.pass.Render("ok")
	if failed > 0 {
		status = r.st.fail.Render("FAIL")
	}
	line := fmt.Sprintf("%s %s (%s, %s tokens): %d passed, %d failed",
		status,
		plural(len(results), "fixture", "fixtures"),
		humanize.Bytes(size),
		humanize.Comma(int64(tokens)),
		len(results)-failed,
		failed,
	)
	if mismatches > 0 {
		line += ", " + plural(mismatches, "mismatch", "mismatches")
	}
	return line
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return humanize.Comma(int64(n)) + " " + many
}
