package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tmcheck/internal/errs"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("TMCHECK_WORKERS sets worker count", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TMCHECK_WORKERS", " 6 ")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, 6, cfg.GetWorkers())
	})

	t.Run("TMCHECK_WORKERS must be a number", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TMCHECK_WORKERS", "many")

		cfg := DefaultConfig()
		err := cfg.applyEnvOverrides()
		require.Error(t, err)
		assert.True(t, errs.IsConfiguration(err))
	})

	t.Run("TMCHECK_GRAMMAR_DIRS appends to configured dirs", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TMCHECK_GRAMMAR_DIRS", "/a"+string(filepath.ListSeparator)+"/b")

		cfg := &Config{Grammar: GrammarConfig{Dirs: []string{"/base"}}}
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, []string{"/base", "/a", "/b"}, cfg.Grammar.Dirs)
	})

	t.Run("string overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TMCHECK_SNAPSHOT_SUFFIX", ".snap.yaml")
		t.Setenv("TMCHECK_COLOR", "ALWAYS")
		t.Setenv("TMCHECK_LOG_LEVEL", "Debug")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, ".snap.yaml", cfg.Fixtures.SnapshotSuffix)
		assert.Equal(t, "always", cfg.Report.Color)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("LoadOptional applies overrides without a file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TMCHECK_COLOR", "never")

		cfg, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "never", cfg.Report.Color)
	})

	t.Run("empty values are ignored", func(t *testing.T) {
		clearEnv(t)

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, DefaultConfig(), cfg)
	})
}
