package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tmcheck/internal/errs"
)

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = "tmcheck.yaml"

// Config holds all tmcheck configuration.
type Config struct {
	// Grammar sources beyond the built-in grammars
	Grammar GrammarConfig `yaml:"grammar"`

	// Fixture discovery and scanning
	Fixtures FixturesConfig `yaml:"fixtures"`

	// Mismatch report rendering
	Report ReportConfig `yaml:"report"`

	// Watch mode
	Watch WatchConfig `yaml:"watch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// GrammarConfig configures where grammar files come from.
type GrammarConfig struct {
	// Dirs are loaded in order over the built-in grammars; a grammar with an
	// existing name replaces the earlier one.
	Dirs []string `yaml:"dirs"`
}

// FixturesConfig configures fixture loading and the runner.
type FixturesConfig struct {
	SnapshotSuffix string `yaml:"snapshot_suffix"` // appended to the fixture file name
	Workers        int    `yaml:"workers"`         // 0 = GOMAXPROCS
}

// ReportConfig configures the diff reporter.
type ReportConfig struct {
	Color       string `yaml:"color"`        // auto, always, never
	Diff        bool   `yaml:"diff"`         // token-dump hunks for length mismatches
	DiffContext int    `yaml:"diff_context"` // context lines around each hunk
}

// WatchConfig configures verify --watch.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// Color modes accepted by ReportConfig.Color.
var ValidColorModes = []string{"auto", "always", "never"}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Fixtures: FixturesConfig{
			SnapshotSuffix: ".tokens.yaml",
		},
		Report: ReportConfig{
			Color:       "auto",
			Diff:        true,
			DiffContext: 3,
		},
		Watch: WatchConfig{
			Debounce: "200ms",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the config at path over the defaults and applies environment
// overrides. An empty path yields the defaults; a path that does not exist
// is a configuration error.
func Load(path string) (*Config, error) {
	return load(path, false)
}

// LoadOptional is Load for the implicit config file: a missing file yields
// the defaults.
func LoadOptional(path string) (*Config, error) {
	return load(path, true)
}

func load(path string, optional bool) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err) && optional:
			// defaults
		case err != nil:
			return nil, errs.WrapConfiguration(err, "failed to read config %s", path)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errs.WrapConfiguration(err, "failed to parse config %s", path)
			}
			cfg.resolveRelative(filepath.Dir(path))
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveRelative makes grammar directories relative to the config file.
func (c *Config) resolveRelative(base string) {
	for i, dir := range c.Grammar.Dirs {
		if dir != "" && !filepath.IsAbs(dir) {
			c.Grammar.Dirs[i] = filepath.Join(base, dir)
		}
	}
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("TMCHECK_WORKERS"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errs.WrapConfiguration(err, "TMCHECK_WORKERS=%q", v)
		}
		c.Fixtures.Workers = n
	}
	if v := os.Getenv("TMCHECK_SNAPSHOT_SUFFIX"); v != "" {
		c.Fixtures.SnapshotSuffix = v
	}
	if v := os.Getenv("TMCHECK_GRAMMAR_DIRS"); v != "" {
		c.Grammar.Dirs = append(c.Grammar.Dirs, filepath.SplitList(v)...)
	}
	if v := os.Getenv("TMCHECK_COLOR"); v != "" {
		c.Report.Color = strings.ToLower(v)
	}
	if v := os.Getenv("TMCHECK_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	suffix := c.Fixtures.SnapshotSuffix
	if suffix == "" || strings.ContainsAny(suffix, `/\`) {
		return errs.Configuration("invalid snapshot suffix %q", suffix)
	}
	if c.Fixtures.Workers < 0 {
		return errs.Configuration("workers must be >= 0, got %d", c.Fixtures.Workers)
	}

	validColor := false
	for _, m := range ValidColorModes {
		if c.Report.Color == m {
			validColor = true
			break
		}
	}
	if !validColor {
		return errs.Configuration("invalid color mode: %s (valid: %v)", c.Report.Color, ValidColorModes)
	}
	if c.Report.DiffContext < 0 {
		return errs.Configuration("diff_context must be >= 0, got %d", c.Report.DiffContext)
	}

	if d, err := time.ParseDuration(c.Watch.Debounce); err != nil || d <= 0 {
		return errs.Configuration("invalid watch debounce %q", c.Watch.Debounce)
	}

	return c.Logging.Validate()
}

// GetWorkers returns the effective number of scan workers.
func (c *Config) GetWorkers() int {
	if c.Fixtures.Workers > 0 {
		return c.Fixtures.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// GetDebounce returns the watch debounce as a duration.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 200 * time.Millisecond
	}
	return d
}
