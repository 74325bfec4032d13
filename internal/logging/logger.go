// Package logging builds the zap loggers used by tmcheck.
//
// Each subsystem logs through a named child logger for its category. A
// category switched off in the configuration gets a no-op logger, so callers
// never check toggles themselves.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tmcheck/internal/config"
	"tmcheck/internal/errs"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // CLI startup, config resolution
	CategoryGrammar Category = "grammar" // grammar loading and registration
	CategoryScan    Category = "scan"    // per-fixture scanning
	CategoryFixture Category = "fixture" // fixture discovery and snapshots
	CategoryReport  Category = "report"  // mismatch rendering
	CategoryWatch   Category = "watch"   // file watching
)

// Categories lists every category in a stable order.
func Categories() []Category {
	return []Category{CategoryBoot, CategoryGrammar, CategoryScan, CategoryFixture, CategoryReport, CategoryWatch}
}

// Loggers hands out per-category loggers sharing one core.
type Loggers struct {
	base    *zap.Logger
	enabled func(string) bool
}

// New builds loggers writing to w (stderr when nil) at the configured level
// and format. verbose forces debug level.
func New(cfg config.LoggingConfig, verbose bool, w io.Writer) (*Loggers, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, errs.WrapConfiguration(err, "log level")
		}
		level = lvl
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	var enc zapcore.Encoder
	switch cfg.Format {
	case "", "console":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	case "json":
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		return nil, errs.Configuration("invalid log format %q", cfg.Format)
	}

	if w == nil {
		w = os.Stderr
	}
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), level)
	return &Loggers{base: zap.New(core), enabled: cfg.IsCategoryEnabled}, nil
}

// Wrap adapts an existing logger; every category is enabled.
func Wrap(l *zap.Logger) *Loggers {
	if l == nil {
		l = zap.NewNop()
	}
	return &Loggers{base: l}
}

// Nop returns loggers that discard everything.
func Nop() *Loggers {
	return Wrap(zap.NewNop())
}

// Get returns the logger for a category.
func (l *Loggers) Get(c Category) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	if l.enabled != nil && !l.enabled(string(c)) {
		return zap.NewNop()
	}
	return l.base.Named(string(c))
}

// With returns loggers whose every entry carries fields.
func (l *Loggers) With(fields ...zap.Field) *Loggers {
	if l == nil {
		return Nop().With(fields...)
	}
	return &Loggers{base: l.base.With(fields...), enabled: l.enabled}
}

// Sync flushes buffered entries.
func (l *Loggers) Sync() error {
	if l == nil {
		return nil
	}
	return l.base.Sync()
}
