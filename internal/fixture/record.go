package fixture

import (
	"bytes"
	"os"

	"go.uber.org/zap"

	"tmcheck/internal/errs"
	"tmcheck/internal/scanner"
)

// Recorded reports what Record did for one fixture.
type Recorded struct {
	Path    string
	File    string
	Tokens  int
	Changed bool
}

// Record scans each fixture and writes the output verbatim as its snapshot.
// Snapshots whose content would not change are left untouched.
func Record(fixtures []*Fixture, log *zap.Logger) ([]Recorded, error) {
	if log == nil {
		log = zap.NewNop()
	}
	out := make([]Recorded, 0, len(fixtures))
	for _, f := range fixtures {
		tokens := scanner.Collect(f.Text, f.Grammar)
		data, err := NewSnapshot(f.Grammar.Name(), f.Text, tokens).Encode()
		if err != nil {
			return out, errs.WrapLoad(err, "fixture %s", f.Path)
		}

		rec := Recorded{Path: f.Path, File: f.SnapshotFile, Tokens: len(tokens)}
		if old, err := os.ReadFile(f.SnapshotFile); err == nil && bytes.Equal(old, data) {
			out = append(out, rec)
			continue
		}
		if err := os.WriteFile(f.SnapshotFile, data, 0o644); err != nil {
			return out, errs.WrapLoad(err, "write snapshot for %s", f.Path)
		}
		rec.Changed = true
		log.Info("snapshot written", zap.String("fixture", f.Path), zap.Int("tokens", len(tokens)))
		out = append(out, rec)
	}
	return out, nil
}
