package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tmcheck/internal/errs"
)

type watchEvent struct {
	out *Outcome
	err error
}

// startWatch runs Watch in the background and returns its events and a stop
// function that waits for Watch to return.
func startWatch(t *testing.T, h *Harness, dir string) (<-chan watchEvent, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan watchEvent, 32)
	done := make(chan error, 1)
	go func() {
		done <- h.Watch(ctx, dir, func(out *Outcome, err error) {
			select {
			case events <- watchEvent{out, err}:
			case <-ctx.Done():
			}
		})
	}()
	stop := func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("watch did not stop")
		}
	}
	return events, stop
}

func nextEvent(t *testing.T, events <-chan watchEvent, match func(watchEvent) bool) watchEvent {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("timed out waiting for watch run")
			return watchEvent{}
		}
	}
}

func TestWatch_RerunsOnFixtureChange(t *testing.T) {
	dir := bundledFixtures(t)
	h := newHarness(t, Options{Debounce: 20 * time.Millisecond})
	_, err := h.Record(context.Background(), dir)
	require.NoError(t, err)

	events, stop := startWatch(t, h, dir)
	defer stop()

	first := nextEvent(t, events, func(watchEvent) bool { return true })
	require.NoError(t, first.err)
	assert.Equal(t, errs.ExitOK, first.out.ExitCode)

	appendFile(t, filepath.Join(dir, "rust", "rust.example.rs"), "\n// extra\n")

	changed := nextEvent(t, events, func(ev watchEvent) bool {
		return ev.err == nil && ev.out.ExitCode == errs.ExitMismatch
	})
	assert.Contains(t, changed.out.Text, "rust/rust.example.rs")
	assert.NotEqual(t, first.out.RunID, changed.out.RunID)
}

func TestWatch_ReportsBrokenGrammarReload(t *testing.T) {
	gd := t.TempDir()
	grammarFile := filepath.Join(gd, "mini.yaml")
	require.NoError(t, os.WriteFile(grammarFile, []byte(miniGrammar), 0o644))
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mini"), []byte("let x = 1;\n"), 0o644))

	h := newHarness(t, Options{GrammarDirs: []string{gd}, Debounce: 20 * time.Millisecond})
	_, err := h.Record(context.Background(), dir)
	require.NoError(t, err)

	events, stop := startWatch(t, h, dir)
	defer stop()

	first := nextEvent(t, events, func(watchEvent) bool { return true })
	require.NoError(t, first.err)
	assert.Equal(t, errs.ExitOK, first.out.ExitCode)

	require.NoError(t, os.WriteFile(grammarFile, []byte("name: mini\nmode: fastest\nrules: []\n"), 0o644))

	broken := nextEvent(t, events, func(ev watchEvent) bool { return ev.err != nil })
	assert.True(t, errs.IsConfiguration(broken.err))
	// The previous grammars are kept.
	assert.Equal(t, []string{"go", "mini", "rust"}, h.Registry().Names())
}
