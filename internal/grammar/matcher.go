package grammar

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Matcher recognizes one rule's text at a position.
// Match returns the byte length of the match starting at pos, or 0 when the
// matcher does not apply there. Implementations hold no mutable state.
type Matcher interface {
	Match(text string, pos int) int
	String() string
}

// literalMatcher matches the longest of a fixed set of words.
type literalMatcher struct {
	words    []string
	boundary []bool
}

func newLiteralMatcher(words []string, boundary *bool) (*literalMatcher, error) {
	if len(words) == 0 {
		return nil, fmt.Errorf("literal set is empty")
	}
	sorted := make([]string, len(words))
	copy(sorted, words)
	for i, w := range sorted {
		if w == "" {
			return nil, fmt.Errorf("literal %d is empty", i)
		}
	}
	// Longest first so "->" wins over "-" and "::" over ":".
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	m := &literalMatcher{words: sorted, boundary: make([]bool, len(sorted))}
	for i, w := range sorted {
		if boundary != nil {
			m.boundary[i] = *boundary
			continue
		}
		first, _ := utf8.DecodeRuneInString(w)
		last, _ := utf8.DecodeLastRuneInString(w)
		m.boundary[i] = isIdentRune(first) && isIdentRune(last)
	}
	return m, nil
}

func (m *literalMatcher) Match(text string, pos int) int {
	rest := text[pos:]
	for i, w := range m.words {
		if !strings.HasPrefix(rest, w) {
			continue
		}
		if m.boundary[i] {
			if prev, _ := utf8.DecodeLastRuneInString(text[:pos]); pos > 0 && isIdentRune(prev) {
				continue
			}
			if next, _ := utf8.DecodeRuneInString(rest[len(w):]); len(rest) > len(w) && isIdentRune(next) {
				continue
			}
		}
		return len(w)
	}
	return 0
}

func (m *literalMatcher) String() string {
	return fmt.Sprintf("literals%q", m.words)
}

// patternMatcher matches a regular expression anchored at the scan position.
//
// Patterns are line scoped: the expression runs over the line containing pos,
// newline included, starting at pos. Lookbehind can see the line prefix but a
// match never crosses into the next line. A match that runs past the timeout
// counts as no match.
type patternMatcher struct {
	expr string
	re   *regexp2.Regexp
}

func newPatternMatcher(expr string, ignoreCase bool, timeout time.Duration) (*patternMatcher, error) {
	if expr == "" {
		return nil, fmt.Errorf("pattern is empty")
	}
	opts := regexp2.None
	if ignoreCase {
		opts |= regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(`\G(?:`+expr+`)`, opts)
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", expr, err)
	}
	if ok, _ := re.MatchString(""); ok {
		return nil, fmt.Errorf("pattern %q matches the empty string", expr)
	}
	re.MatchTimeout = timeout
	return &patternMatcher{expr: expr, re: re}, nil
}

func (m *patternMatcher) Match(text string, pos int) int {
	n, _ := m.find(text, pos)
	return n
}

// find is Match with the engine error, a timeout, left visible.
func (m *patternMatcher) find(text string, pos int) (int, error) {
	lineStart := strings.LastIndexByte(text[:pos], '\n') + 1
	lineEnd := len(text)
	if nl := strings.IndexByte(text[pos:], '\n'); nl >= 0 {
		lineEnd = pos + nl + 1
	}
	line := text[lineStart:lineEnd]
	// The start index is a byte offset into the line; regexp2 converts it.
	match, err := m.re.FindStringMatchStartingAt(line, pos-lineStart)
	if err != nil {
		return 0, err
	}
	if match == nil {
		return 0, nil
	}
	// Match positions count runes, and an invalid byte decodes to a 3-byte
	// U+FFFD, so map the rune index back onto the line's bytes.
	return byteOffset(line, match.Index+match.Length) - (pos - lineStart), nil
}

// byteOffset returns the byte offset of the n-th rune of s, counting each
// invalid byte as one rune the way a range loop does.
func byteOffset(s string, n int) int {
	count := 0
	for i := range s {
		if count == n {
			return i
		}
		count++
	}
	return len(s)
}

func (m *patternMatcher) String() string {
	return fmt.Sprintf("pattern(%s)", m.expr)
}

// delimitedMatcher matches from a begin delimiter to its end delimiter.
type delimitedMatcher struct {
	begin, end, escape string
	multiline, nested  bool
}

func newDelimitedMatcher(spec DelimitedSpec) (*delimitedMatcher, error) {
	if spec.Begin == "" {
		return nil, fmt.Errorf("begin delimiter is empty")
	}
	if spec.End == "" {
		return nil, fmt.Errorf("end delimiter is empty")
	}
	return &delimitedMatcher{
		begin:     spec.Begin,
		end:       spec.End,
		escape:    spec.Escape,
		multiline: spec.Multiline,
		nested:    spec.Nested,
	}, nil
}

// Match returns the length through the closing delimiter. An unterminated
// span runs to the end of input, or to the end of the line when the matcher
// is single-line.
func (m *delimitedMatcher) Match(text string, pos int) int {
	if !strings.HasPrefix(text[pos:], m.begin) {
		return 0
	}
	i := pos + len(m.begin)
	depth := 1
	for i < len(text) {
		rest := text[i:]
		switch {
		case m.escape != "" && strings.HasPrefix(rest, m.escape):
			i += len(m.escape)
			if i < len(text) {
				if !m.multiline && text[i] == '\n' {
					return i - pos
				}
				_, w := utf8.DecodeRuneInString(text[i:])
				i += w
			}
			continue
		case !m.multiline && rest[0] == '\n':
			return i - pos
		case strings.HasPrefix(rest, m.end):
			i += len(m.end)
			depth--
			if depth == 0 {
				return i - pos
			}
			continue
		case m.nested && strings.HasPrefix(rest, m.begin):
			i += len(m.begin)
			depth++
			continue
		}
		_, w := utf8.DecodeRuneInString(rest)
		i += w
	}
	return i - pos
}

func (m *delimitedMatcher) String() string {
	return fmt.Sprintf("delimited(%q..%q)", m.begin, m.end)
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
