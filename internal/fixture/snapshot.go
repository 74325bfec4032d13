package fixture

import (
	"bytes"
	"io"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"tmcheck/internal/errs"
	"tmcheck/internal/grammar"
	"tmcheck/internal/scanner"
)

// SnapshotVersion is the only snapshot schema version understood.
const SnapshotVersion = 1

// DefaultSnapshotSuffix is appended to a fixture's file name to find its
// snapshot.
const DefaultSnapshotSuffix = ".tokens.yaml"

// Snapshot is the on-disk record of a fixture's expected tokens.
type Snapshot struct {
	Version int             `yaml:"version"`
	Grammar string          `yaml:"grammar"`
	Tokens  []SnapshotToken `yaml:"tokens"`
}

// SnapshotToken is one expected token. Text is informational and never
// compared.
type SnapshotToken struct {
	Category grammar.Category `yaml:"category"`
	Start    int              `yaml:"start"`
	Length   int              `yaml:"length"`
	Text     string           `yaml:"text,omitempty"`
}

// MarshalYAML writes each token as a single flow mapping line.
func (t SnapshotToken) MarshalYAML() (interface{}, error) {
	scalar := func(tag, v string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v}
	}
	n := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
	n.Content = append(n.Content,
		scalar("!!str", "category"), scalar("!!str", string(t.Category)),
		scalar("!!str", "start"), scalar("!!int", strconv.Itoa(t.Start)),
		scalar("!!str", "length"), scalar("!!int", strconv.Itoa(t.Length)),
	)
	if t.Text != "" {
		text := scalar("!!str", t.Text)
		text.Style = yaml.DoubleQuotedStyle
		n.Content = append(n.Content, scalar("!!str", "text"), text)
	}
	return n, nil
}

// NewSnapshot builds a snapshot of tokens scanned from src.
func NewSnapshot(grammarName, src string, tokens []scanner.Token) *Snapshot {
	s := &Snapshot{Version: SnapshotVersion, Grammar: grammarName, Tokens: make([]SnapshotToken, len(tokens))}
	for i, tok := range tokens {
		s.Tokens[i] = SnapshotToken{
			Category: tok.Category,
			Start:    tok.Start,
			Length:   tok.Length,
			Text:     scanner.Text(src, tok),
		}
	}
	return s
}

// ScannerTokens converts the snapshot to comparable tokens.
func (s *Snapshot) ScannerTokens() []scanner.Token {
	out := make([]scanner.Token, len(s.Tokens))
	for i, t := range s.Tokens {
		out[i] = scanner.Token{Category: t.Category, Start: t.Start, Length: t.Length}
	}
	return out
}

// Encode renders the snapshot as YAML.
func (s *Snapshot) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, errors.Wrap(err, "failed to encode snapshot")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to encode snapshot")
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot parses and validates snapshot YAML. Every failure is a
// load error.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var s Snapshot
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errs.Load("snapshot is empty")
		}
		return nil, errs.WrapLoad(err, "failed to parse snapshot YAML")
	}
	if s.Version != SnapshotVersion {
		return nil, errs.Load("unsupported snapshot version %d (want %d)", s.Version, SnapshotVersion)
	}
	for i, t := range s.Tokens {
		if t.Category == "" {
			return nil, errs.Load("token %d: category is empty", i)
		}
		if t.Start < 0 || t.Length <= 0 {
			return nil, errs.Load("token %d: invalid span start=%d length=%d", i, t.Start, t.Length)
		}
	}
	return &s, nil
}

// ReadSnapshot reads and decodes the snapshot at path.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.WrapLoad(err, "read snapshot")
	}
	s, err := DecodeSnapshot(data)
	if err != nil {
		return nil, errs.WrapLoad(err, "snapshot %s", path)
	}
	return s, nil
}
