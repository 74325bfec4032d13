package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"tmcheck/internal/errs"
	"tmcheck/internal/fixture"
	"tmcheck/internal/grammar"
	"tmcheck/internal/report"
)

func TestMain(m *testing.M) {
	// Pattern match deadlines are served by a clock goroutine that
	// outlives the match by about a second.
	goleak.VerifyTestMain(m, goleak.IgnoreAnyFunction("github.com/dlclark/regexp2.runClock"))
}

const miniGrammar = `name: mini
file_types: [mini]
rules:
  - {category: whitespace, pattern: '\s+'}
  - {category: keyword, literals: [let]}
  - {category: number, pattern: '[0-9]+'}
  - {category: operator, literals: ['=']}
  - {category: punctuation, literals: [';']}
  - {category: identifier, pattern: '[a-z]+'}
`

var testdataFixtures = filepath.Join("..", "..", "testdata", "fixtures")

// bundledFixtures copies the repository's example fixtures into a temp dir,
// leaving their committed snapshots behind.
func bundledFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.CopyFS(dir, os.DirFS(testdataFixtures)))
	snaps, err := filepath.Glob(filepath.Join(dir, "*", "*"+fixture.DefaultSnapshotSuffix))
	require.NoError(t, err)
	for _, s := range snaps {
		require.NoError(t, os.Remove(s))
	}
	return dir
}

func newHarness(t *testing.T, opts Options) *Harness {
	t.Helper()
	opts.Color = report.ColorNever
	h, err := New(opts)
	require.NoError(t, err)
	return h
}

func appendFile(t *testing.T, path, text string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString(text)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestVerify_RecordedFixturesMatch(t *testing.T) {
	dir := bundledFixtures(t)
	h := newHarness(t, Options{Workers: 2, Diff: true, DiffContext: 3})

	recs, err := h.Record(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.True(t, r.Changed, r.Path)
		assert.FileExists(t, r.File)
	}

	out, err := h.Verify(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, errs.ExitOK, out.ExitCode)
	assert.Empty(t, out.Text)
	assert.NoError(t, out.Err())
	assert.Equal(t, []Phase{PhaseLoading, PhaseScanning, PhaseReporting}, out.Phases)
	_, err = uuid.Parse(out.RunID)
	assert.NoError(t, err)

	require.Len(t, out.Results, 2)
	assert.Equal(t, "go/go.example.go", out.Results[0].Fixture.Path)
	assert.Equal(t, "rust/rust.example.rs", out.Results[1].Fixture.Path)
	assert.Contains(t, out.Summary, "2 passed, 0 failed")
}

func TestVerify_CommittedSnapshotsMatch(t *testing.T) {
	h := newHarness(t, Options{Workers: 2})

	out, err := h.Verify(context.Background(), testdataFixtures)
	require.NoError(t, err)
	assert.Equal(t, errs.ExitOK, out.ExitCode, out.Text)
	require.Len(t, out.Results, 2)
	for _, r := range out.Results {
		assert.True(t, r.Fixture.HasSnapshot, r.Fixture.Path)
		assert.NotEmpty(t, r.Fixture.Expected, r.Fixture.Path)
		for _, tok := range r.Actual {
			assert.NotEqual(t, grammar.Unknown, tok.Category, "%s: %s", r.Fixture.Path, tok)
		}
	}
}

func TestVerify_MissingSnapshotAbortsBeforeScanning(t *testing.T) {
	dir := bundledFixtures(t)
	h := newHarness(t, Options{})

	out, err := h.Verify(context.Background(), dir)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, errs.IsLoad(err))
	assert.Equal(t, errs.ExitFailure, errs.ExitCode(err))
}

func TestVerify_LengthMismatchDoesNotStopOtherFixtures(t *testing.T) {
	dir := bundledFixtures(t)
	h := newHarness(t, Options{Diff: true, DiffContext: 1})
	_, err := h.Record(context.Background(), dir)
	require.NoError(t, err)

	appendFile(t, filepath.Join(dir, "go", "go.example.go"), "\n// extra\n")

	out, err := h.Verify(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, errs.ExitMismatch, out.ExitCode)
	assert.Equal(t, []Phase{PhaseLoading, PhaseScanning, PhaseReporting}, out.Phases)

	require.Len(t, out.Results, 2)
	goRes, rustRes := out.Results[0], out.Results[1]
	require.Len(t, goRes.Mismatches, 1)
	assert.Equal(t, fixture.KindLength, goRes.Mismatches[0].Kind)
	assert.Equal(t, goRes.Mismatches[0].ExpectedCount+3, goRes.Mismatches[0].ActualCount)
	assert.True(t, rustRes.OK())

	assert.Contains(t, out.Text, "FAIL go/go.example.go (1 mismatch)")
	assert.Contains(t, out.Text, "@@")
	assert.NotContains(t, out.Text, "rust.example.rs")

	err = out.Err()
	require.Error(t, err)
	assert.Equal(t, errs.ExitMismatch, errs.ExitCode(err))
}

func TestNew_BadGrammarDirIsConfigurationError(t *testing.T) {
	gd := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(gd, "broken.yaml"), []byte("name: broken\nrules: []\n"), 0o644))

	_, err := New(Options{GrammarDirs: []string{gd}})
	require.Error(t, err)
	assert.True(t, errs.IsConfiguration(err))
	assert.Equal(t, errs.ExitFailure, errs.ExitCode(err))
}

func TestNew_GrammarDirAddsGrammar(t *testing.T) {
	gd := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(gd, "mini.yaml"), []byte(miniGrammar), 0o644))

	h := newHarness(t, Options{GrammarDirs: []string{gd}})
	assert.Equal(t, []string{"go", "mini", "rust"}, h.Registry().Names())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "LOADING", PhaseLoading.String())
	assert.Equal(t, "SCANNING", PhaseScanning.String())
	assert.Equal(t, "REPORTING", PhaseReporting.String())
	assert.Equal(t, "UNKNOWN", Phase(9).String())
}
