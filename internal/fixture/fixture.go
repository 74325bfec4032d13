// Package fixture loads example files with their token snapshots, scans them
// and compares the scanner output against the snapshots.
package fixture

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"tmcheck/internal/errs"
	"tmcheck/internal/grammar"
	"tmcheck/internal/scanner"
)

// Fixture is an example file paired with the grammar that scans it and the
// tokens its snapshot expects. Fixtures are never modified after Load.
type Fixture struct {
	// Path is slash-separated and relative to the fixture root.
	Path     string
	File     string
	Text     string
	Grammar  *grammar.Table
	Expected []scanner.Token

	SnapshotFile string
	HasSnapshot  bool
}

func (f *Fixture) readSnapshot() error {
	if _, err := os.Stat(f.SnapshotFile); err != nil {
		if os.IsNotExist(err) {
			return errs.Load("fixture %s: missing snapshot %s", f.Path, filepath.Base(f.SnapshotFile))
		}
		return errs.WrapLoad(err, "fixture %s", f.Path)
	}
	snap, err := ReadSnapshot(f.SnapshotFile)
	if err != nil {
		return errs.WrapLoad(err, "fixture %s", f.Path)
	}
	if snap.Grammar != "" && snap.Grammar != f.Grammar.Name() {
		return errs.Load("fixture %s: snapshot recorded with grammar %s, file maps to %s", f.Path, snap.Grammar, f.Grammar.Name())
	}
	f.Expected = snap.ScannerTokens()
	f.HasSnapshot = true
	return nil
}

// LoadOptions controls fixture discovery.
type LoadOptions struct {
	SnapshotSuffix string
	// RequireSnapshots reads each fixture's snapshot and makes a missing one
	// a load error. Record mode turns it off and snapshots are not read.
	RequireSnapshots bool
	Logger           *zap.Logger
}

func (o LoadOptions) suffix() string {
	if o.SnapshotSuffix == "" {
		return DefaultSnapshotSuffix
	}
	return o.SnapshotSuffix
}

func (o LoadOptions) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Load discovers the fixtures under root in lexical path order. Files whose
// extension no grammar claims are skipped, as are dot-directories and the
// snapshot files themselves. root may also name a single fixture file.
func Load(root string, reg *grammar.Registry, opts LoadOptions) ([]*Fixture, error) {
	log := opts.logger()
	info, err := os.Stat(root)
	if err != nil {
		return nil, errs.WrapLoad(err, "fixture root")
	}

	var fixtures []*Fixture
	if !info.IsDir() {
		t, ok := reg.ForPath(root)
		if !ok {
			return nil, errs.Load("no grammar for %s", root)
		}
		f, err := loadOne(root, filepath.Base(root), t, opts)
		if err != nil {
			return nil, err
		}
		return []*Fixture{f}, nil
	}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return errs.WrapLoad(err, "walk %s", p)
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), opts.suffix()) {
			return nil
		}
		t, ok := reg.ForPath(p)
		if !ok {
			log.Debug("no grammar, skipping", zap.String("file", p))
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return errs.WrapLoad(err, "relative path of %s", p)
		}
		f, err := loadOne(p, filepath.ToSlash(rel), t, opts)
		if err != nil {
			return err
		}
		fixtures = append(fixtures, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(fixtures) == 0 {
		return nil, errs.Load("no fixtures found under %s", root)
	}
	return fixtures, nil
}

func loadOne(file, rel string, t *grammar.Table, opts LoadOptions) (*Fixture, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errs.WrapLoad(err, "read fixture %s", rel)
	}
	if !utf8.Valid(data) {
		return nil, errs.Load("fixture %s is not valid UTF-8", rel)
	}

	f := &Fixture{
		Path:         rel,
		File:         file,
		Text:         string(data),
		Grammar:      t,
		SnapshotFile: file + opts.suffix(),
	}

	// Record mode overwrites snapshots without reading them.
	if opts.RequireSnapshots {
		if err := f.readSnapshot(); err != nil {
			return nil, err
		}
	}

	opts.logger().Debug("fixture loaded",
		zap.String("fixture", rel),
		zap.String("grammar", t.Name()),
		zap.String("size", humanize.Bytes(uint64(len(data)))),
		zap.Int("expected_tokens", len(f.Expected)),
	)
	return f, nil
}
