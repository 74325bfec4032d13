package scanner

import (
	"math/rand"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tmcheck/internal/grammar"
)

func minimalTable(t *testing.T) *grammar.Table {
	t.Helper()
	table, err := grammar.New(grammar.Spec{
		Name: "minimal",
		Rules: []grammar.RuleSpec{
			grammar.Regex(grammar.Whitespace, `\s+`),
			grammar.Literal(grammar.Keyword, "let"),
			grammar.Delimit(grammar.String, `"`, `"`, `\`),
			grammar.Literal(grammar.Operator, "="),
			grammar.Literal(grammar.Punctuation, ";"),
			grammar.Regex(grammar.Identifier, `[A-Za-z_][A-Za-z0-9_]*`),
		},
	})
	require.NoError(t, err)
	return table
}

func builtin(t *testing.T, name string) *grammar.Table {
	t.Helper()
	reg, err := grammar.Builtin()
	require.NoError(t, err)
	table, ok := reg.Lookup(name)
	require.True(t, ok)
	return table
}

func TestScanLetStatement(t *testing.T) {
	const src = `let name = "Alice";`
	table := minimalTable(t)

	all := Collect(src, table)
	require.NoError(t, CheckCoverage(all, len(src)))

	got := slices.Collect(Significant(Scan(src, table)))
	want := []Token{
		{Category: grammar.Keyword, Start: 0, Length: 3},
		{Category: grammar.Identifier, Start: 4, Length: 4},
		{Category: grammar.Operator, Start: 9, Length: 1},
		{Category: grammar.String, Start: 11, Length: 7},
		{Category: grammar.Punctuation, Start: 18, Length: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("significant tokens mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, `"Alice"`, Text(src, got[3]))
	assert.Len(t, all, 8)
}

func TestScanUnmatchedInput(t *testing.T) {
	table := minimalTable(t)

	t.Run("lone hash", func(t *testing.T) {
		got := Collect("#", table)
		assert.Equal(t, []Token{{Category: grammar.Unknown, Start: 0, Length: 1}}, got)
	})

	t.Run("one token per character", func(t *testing.T) {
		const src = "#é$"
		got := Collect(src, table)
		want := []Token{
			{Category: grammar.Unknown, Start: 0, Length: 1},
			{Category: grammar.Unknown, Start: 1, Length: 2},
			{Category: grammar.Unknown, Start: 3, Length: 1},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("tokens mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("invalid utf-8 advances one byte", func(t *testing.T) {
		const src = "\xff\xfe"
		got := Collect(src, table)
		require.Len(t, got, 2)
		assert.NoError(t, CheckCoverage(got, len(src)))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Collect("", table))
	})
}

func TestScanTerminatesAndCovers(t *testing.T) {
	tables := []*grammar.Table{minimalTable(t), builtin(t, "rust"), builtin(t, "go")}
	alphabet := []rune("abcxyz019 \t\n\"'\\/*#{}()[];:.,=<>!&|-+é€😀\x00")
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		var b strings.Builder
		n := rng.Intn(120)
		for j := 0; j < n; j++ {
			b.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
		src := b.String()
		if i%10 == 0 {
			src += "\xc3" // truncated multibyte sequence
		}
		for _, table := range tables {
			first := Collect(src, table)
			require.NoError(t, CheckCoverage(first, len(src)), "grammar %s, input %q", table.Name(), src)

			second := Collect(src, table)
			if diff := cmp.Diff(first, second); diff != "" {
				t.Fatalf("rescan differs for %q (-first +second):\n%s", src, diff)
			}
		}
	}
}

func TestScanStopsWhenConsumerStops(t *testing.T) {
	table := minimalTable(t)
	seq := Scan("let a = b; let c = d;", table)

	var got []Token
	for tok := range seq {
		got = append(got, tok)
		if len(got) == 3 {
			break
		}
	}
	assert.Len(t, got, 3)

	// The sequence restarts from the beginning.
	for tok := range seq {
		assert.Equal(t, Token{Category: grammar.Keyword, Start: 0, Length: 3}, tok)
		break
	}
}

func TestScanRustExample(t *testing.T) {
	data, err := os.ReadFile("../../testdata/fixtures/rust/rust.example.rs")
	require.NoError(t, err)
	src := string(data)
	table := builtin(t, "rust")

	tokens := Collect(src, table)
	require.NoError(t, CheckCoverage(tokens, len(src)))

	wantHead := []Token{
		{Category: grammar.Comment, Start: 0, Length: 26},
		{Category: grammar.Whitespace, Start: 26, Length: 1},
		{Category: grammar.Keyword, Start: 27, Length: 2},
		{Category: grammar.Whitespace, Start: 29, Length: 1},
		{Category: grammar.Identifier, Start: 30, Length: 4},
		{Category: grammar.Punctuation, Start: 34, Length: 1},
		{Category: grammar.Punctuation, Start: 35, Length: 1},
		{Category: grammar.Whitespace, Start: 36, Length: 1},
		{Category: grammar.Punctuation, Start: 37, Length: 1},
		{Category: grammar.Whitespace, Start: 38, Length: 1},
		{Category: grammar.Whitespace, Start: 39, Length: 2},
		{Category: grammar.Keyword, Start: 41, Length: 3},
	}
	if diff := cmp.Diff(wantHead, tokens[:len(wantHead)]); diff != "" {
		t.Errorf("leading tokens mismatch (-want +got):\n%s", diff)
	}

	byText := make(map[string]grammar.Category)
	for _, tok := range tokens {
		if tok.Category == grammar.Unknown {
			t.Errorf("unexpected unknown token %s %q", tok, Text(src, tok))
		}
		byText[Text(src, tok)] = tok.Category
	}
	checks := map[string]grammar.Category{
		`"Alice"`:   grammar.String,
		"println!":  "macro",
		"vec!":      "macro",
		"'a":        "lifetime",
		"3.14159":   grammar.Number,
		"Rectangle": grammar.Type,
		"f64":       grammar.Type,
		"mut":       grammar.Keyword,
		"::":        grammar.Punctuation,
		"=>":        grammar.Operator,
		"->":        grammar.Operator,
		"!=":        grammar.Operator,
		"counter":   grammar.Identifier,
	}
	for text, want := range checks {
		assert.Equal(t, want, byText[text], "category of %q", text)
	}
}

func TestCheckCoverage(t *testing.T) {
	tests := []struct {
		name   string
		tokens []Token
		n      int
		want   string
	}{
		{"ok", []Token{{Start: 0, Length: 2}, {Start: 2, Length: 1}}, 3, ""},
		{"empty token", []Token{{Start: 0, Length: 0}}, 1, "is empty"},
		{"gap", []Token{{Start: 0, Length: 1}, {Start: 2, Length: 1}}, 3, "gap before token 1"},
		{"overlap", []Token{{Start: 0, Length: 2}, {Start: 1, Length: 2}}, 3, "overlaps"},
		{"short", []Token{{Start: 0, Length: 1}}, 3, "cover 1 of 3 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCoverage(tt.tokens, tt.n)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDump(t *testing.T) {
	const src = "let x"
	out := Dump(src, Collect(src, minimalTable(t)))
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `keyword           0    3 "let"`, lines[0])
	assert.Equal(t, `whitespace        3    1 " "`, lines[1])
}
