package scanner

import (
	"fmt"
	"strings"

	"tmcheck/internal/grammar"
)

// Token is a categorized byte range of the scanned text.
type Token struct {
	Category grammar.Category
	Start    int
	Length   int
}

// End returns the offset just past the token.
func (t Token) End() int { return t.Start + t.Length }

func (t Token) String() string {
	return fmt.Sprintf("%s@%d+%d", t.Category, t.Start, t.Length)
}

// Text returns the slice of src covered by t, clamped to src.
func Text(src string, t Token) string {
	start, end := t.Start, t.End()
	if start < 0 {
		start = 0
	}
	if end > len(src) {
		end = len(src)
	}
	if start >= end {
		return ""
	}
	return src[start:end]
}

// DumpLine renders one token as a single line: category, offsets and the
// quoted source text.
func DumpLine(src string, t Token) string {
	return fmt.Sprintf("%-12s %6d %4d %q", t.Category, t.Start, t.Length, Text(src, t))
}

// Dump renders tokens one per line with DumpLine.
func Dump(src string, tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(DumpLine(src, t))
		b.WriteByte('\n')
	}
	return b.String()
}
