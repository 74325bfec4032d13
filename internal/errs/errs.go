// Package errs defines the harness error taxonomy and its mapping to process
// exit codes.
//
// Three kinds exist. Configuration errors (a bad grammar table or config file)
// and load errors (missing fixture or snapshot) abort a run before any scan.
// Mismatch errors signal that scanner output differs from a snapshot; they are
// reported, never fatal to the remaining fixtures.
package errs

import (
	"github.com/cockroachdb/errors"
)

// Exit codes returned by the CLI.
const (
	ExitOK       = 0
	ExitMismatch = 1
	ExitFailure  = 2
)

var (
	// ErrConfiguration marks errors caused by invalid grammar or harness configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrLoad marks errors reading fixtures or snapshots.
	ErrLoad = errors.New("load error")
	// ErrMismatch marks a run whose scanner output differs from its snapshots.
	ErrMismatch = errors.New("snapshot mismatch")
)

// Configuration returns a new configuration error.
func Configuration(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfiguration)
}

// WrapConfiguration wraps err as a configuration error. A nil err stays nil.
func WrapConfiguration(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, format, args...), ErrConfiguration)
}

// Load returns a new load error.
func Load(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrLoad)
}

// WrapLoad wraps err as a load error. A nil err stays nil.
func WrapLoad(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, format, args...), ErrLoad)
}

// Mismatch returns an error recording how many mismatches a run produced.
func Mismatch(count int) error {
	return errors.Mark(errors.Newf("%d mismatch(es) against snapshots", count), ErrMismatch)
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }

// IsLoad reports whether err is a load error.
func IsLoad(err error) bool { return errors.Is(err, ErrLoad) }

// IsMismatch reports whether err is a mismatch error.
func IsMismatch(err error) bool { return errors.Is(err, ErrMismatch) }

// Kind returns a short label for err suitable for prefixing CLI messages.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsConfiguration(err):
		return "configuration error"
	case IsLoad(err):
		return "load error"
	case IsMismatch(err):
		return "mismatch"
	default:
		return "error"
	}
}

// ExitCode maps err to the CLI exit code: 0 for nil, 1 for mismatches and 2
// for everything else, including configuration and load errors.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case IsMismatch(err):
		return ExitMismatch
	default:
		return ExitFailure
	}
}
