// Package scanner turns text into a stream of categorized tokens using a
// grammar table.
//
// Scanning never fails and always terminates: where no rule matches, the
// scanner emits a one-character unknown token and moves on. The produced
// tokens are contiguous and cover the whole input.
package scanner

import (
	"fmt"
	"iter"
	"slices"
	"unicode/utf8"

	"tmcheck/internal/grammar"
)

// Scan returns a lazy sequence of the tokens of text. Each iteration rescans
// from offset 0; the sequence keeps no state between iterations.
func Scan(text string, table *grammar.Table) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		pos := 0
		for pos < len(text) {
			tok := next(text, pos, table)
			if !yield(tok) {
				return
			}
			pos = tok.End()
		}
	}
}

func next(text string, pos int, table *grammar.Table) Token {
	if m, ok := table.Lookup(text, pos); ok {
		return Token{Category: m.Category, Start: pos, Length: m.Length}
	}
	// One rune, or one byte of invalid UTF-8.
	_, w := utf8.DecodeRuneInString(text[pos:])
	return Token{Category: grammar.Unknown, Start: pos, Length: w}
}

// Collect scans text fully.
func Collect(text string, table *grammar.Table) []Token {
	return slices.Collect(Scan(text, table))
}

// Significant filters trivia (whitespace) out of seq.
func Significant(seq iter.Seq[Token]) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		for t := range seq {
			if t.Category.IsTrivia() {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}
}

// CheckCoverage verifies that tokens are ordered, non-empty, contiguous and
// cover exactly [0, n).
func CheckCoverage(tokens []Token, n int) error {
	pos := 0
	for i, t := range tokens {
		switch {
		case t.Length <= 0:
			return fmt.Errorf("token %d (%s) is empty", i, t)
		case t.Start < pos:
			return fmt.Errorf("token %d (%s) overlaps previous token ending at %d", i, t, pos)
		case t.Start > pos:
			return fmt.Errorf("gap before token %d (%s): offsets %d..%d uncovered", i, t, pos, t.Start)
		}
		pos = t.End()
	}
	if pos != n {
		return fmt.Errorf("tokens cover %d of %d bytes", pos, n)
	}
	return nil
}
