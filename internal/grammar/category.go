package grammar

import (
	"sort"
	"strings"
	"unicode"
)

// Category names the lexical class a token belongs to.
type Category string

// Built-in categories. Grammars may declare more.
const (
	Keyword     Category = "keyword"
	Type        Category = "type"
	String      Category = "string"
	Number      Category = "number"
	Comment     Category = "comment"
	Identifier  Category = "identifier"
	Operator    Category = "operator"
	Punctuation Category = "punctuation"
	Whitespace  Category = "whitespace"

	// Unknown is emitted by the scanner for input no rule matches.
	// Rules may not produce it.
	Unknown Category = "unknown"
)

var builtinCategories = []Category{
	Keyword, Type, String, Number, Comment, Identifier, Operator, Punctuation, Whitespace, Unknown,
}

// BuiltinCategories returns the categories every grammar knows about.
func BuiltinCategories() []Category {
	out := make([]Category, len(builtinCategories))
	copy(out, builtinCategories)
	return out
}

// IsTrivia reports whether tokens of c carry no lexical meaning.
func (c Category) IsTrivia() bool {
	return c == Whitespace
}

func (c Category) valid() bool {
	if c == "" {
		return false
	}
	return !strings.ContainsFunc(string(c), unicode.IsSpace)
}

func sortedCategories(set map[Category]struct{}) []Category {
	out := make([]Category, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
