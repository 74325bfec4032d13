// Package grammar implements the declarative grammar table the scanner runs on.
//
// A table is an ordered list of rules, each pairing a token category with a
// matcher (a literal set, a regular expression or a delimiter pair). Tables
// are validated once at construction; a malformed rule is a configuration
// error there and can never fail a scan. Built tables are immutable and safe
// for concurrent use.
package grammar

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"tmcheck/internal/errs"
)

// Mode selects how competing rules are resolved at a position.
type Mode string

const (
	// FirstMatch picks the first rule, in priority order, that matches.
	FirstMatch Mode = "first_match"
	// LongestMatch picks the longest match; ties go to priority order.
	LongestMatch Mode = "longest_match"
)

// DefaultMatchTimeout bounds a single pattern match when a grammar sets none.
const DefaultMatchTimeout = 100 * time.Millisecond

// Spec is the declarative form of a grammar, as read from a grammar file.
type Spec struct {
	Name       string     `yaml:"name"`
	Scope      string     `yaml:"scope,omitempty"`
	FileTypes  []string   `yaml:"file_types,omitempty"`
	Mode       Mode       `yaml:"mode,omitempty"`
	Categories []Category `yaml:"categories,omitempty"`
	// MatchTimeout bounds each pattern match; a match that overruns it is
	// treated as no match. Zero means DefaultMatchTimeout.
	MatchTimeout time.Duration `yaml:"match_timeout,omitempty"`
	Rules        []RuleSpec    `yaml:"rules"`
}

// RuleSpec declares one rule. Exactly one of Literals, Pattern and Delimited
// must be set.
type RuleSpec struct {
	Category Category `yaml:"category"`
	Priority int      `yaml:"priority,omitempty"`

	Literals []string `yaml:"literals,omitempty"`
	// Boundary forces or disables identifier boundary checks for literals.
	// When unset, words that start and end with identifier characters get them.
	Boundary *bool `yaml:"boundary,omitempty"`

	Pattern    *string `yaml:"pattern,omitempty"`
	IgnoreCase bool    `yaml:"ignore_case,omitempty"`

	Delimited *DelimitedSpec `yaml:"delimited,omitempty"`
}

// DelimitedSpec declares a begin/end delimited span such as a string or a
// block comment.
type DelimitedSpec struct {
	Begin     string `yaml:"begin"`
	End       string `yaml:"end"`
	Escape    string `yaml:"escape,omitempty"`
	Multiline bool   `yaml:"multiline,omitempty"`
	Nested    bool   `yaml:"nested,omitempty"`
}

// Literal returns a rule matching any of words.
func Literal(c Category, words ...string) RuleSpec {
	return RuleSpec{Category: c, Literals: words}
}

// Regex returns a rule matching the regular expression expr.
func Regex(c Category, expr string) RuleSpec {
	return RuleSpec{Category: c, Pattern: &expr}
}

// Delimit returns a single-line rule running from begin to end, skipping the
// character after escape when escape is not empty.
func Delimit(c Category, begin, end, escape string) RuleSpec {
	return RuleSpec{Category: c, Delimited: &DelimitedSpec{Begin: begin, End: end, Escape: escape}}
}

// WithPriority returns a copy of r with the given priority.
func (r RuleSpec) WithPriority(p int) RuleSpec {
	r.Priority = p
	return r
}

// Rule is a validated grammar rule.
type Rule struct {
	Category Category
	Priority int
	// Index is the rule's position in declaration order.
	Index   int
	Matcher Matcher
}

// Match is the outcome of a successful lookup.
type Match struct {
	Category Category
	Length   int
	// Rule is the declaration index of the winning rule.
	Rule int
}

// Table is an immutable, validated grammar.
type Table struct {
	name       string
	scope      string
	fileTypes  []string
	mode       Mode
	categories map[Category]struct{}
	rules      []Rule // priority order
	timeout    time.Duration
	log        *zap.Logger
}

// New validates spec and builds a table from it. Every failure is a
// configuration error naming the offending rule.
func New(spec Spec) (*Table, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, errs.Configuration("grammar name is empty")
	}

	mode := spec.Mode
	switch mode {
	case "":
		mode = FirstMatch
	case FirstMatch, LongestMatch:
	default:
		return nil, errs.Configuration("grammar %s: unknown mode %q (want %s or %s)", name, mode, FirstMatch, LongestMatch)
	}

	categories := make(map[Category]struct{}, len(builtinCategories)+len(spec.Categories))
	for _, c := range builtinCategories {
		categories[c] = struct{}{}
	}
	declared := make(map[Category]struct{}, len(spec.Categories))
	for _, c := range spec.Categories {
		if !c.valid() {
			return nil, errs.Configuration("grammar %s: invalid category name %q", name, c)
		}
		if _, dup := declared[c]; dup {
			return nil, errs.Configuration("grammar %s: category %q declared twice", name, c)
		}
		declared[c] = struct{}{}
		categories[c] = struct{}{}
	}

	if len(spec.Rules) == 0 {
		return nil, errs.Configuration("grammar %s: no rules", name)
	}

	timeout := spec.MatchTimeout
	switch {
	case timeout < 0:
		return nil, errs.Configuration("grammar %s: negative match_timeout %s", name, timeout)
	case timeout == 0:
		timeout = DefaultMatchTimeout
	}

	rules := make([]Rule, 0, len(spec.Rules))
	for i, rs := range spec.Rules {
		if rs.Category == Unknown {
			return nil, errs.Configuration("grammar %s: rule %d: category %q is reserved for unmatched input", name, i, Unknown)
		}
		if _, ok := categories[rs.Category]; !ok {
			return nil, errs.Configuration("grammar %s: rule %d: unknown category %q", name, i, rs.Category)
		}
		m, err := buildMatcher(rs, timeout)
		if err != nil {
			return nil, errs.WrapConfiguration(err, "grammar %s: rule %d (%s)", name, i, rs.Category)
		}
		rules = append(rules, Rule{Category: rs.Category, Priority: rs.Priority, Index: i, Matcher: m})
	}
	// Stable: equal priorities keep declaration order.
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority > rules[j].Priority })

	fileTypes := make([]string, 0, len(spec.FileTypes))
	for _, ft := range spec.FileTypes {
		ext := normalizeExt(ft)
		if ext == "" {
			return nil, errs.Configuration("grammar %s: empty file type", name)
		}
		fileTypes = append(fileTypes, ext)
	}

	return &Table{
		name:       name,
		scope:      spec.Scope,
		fileTypes:  fileTypes,
		mode:       mode,
		categories: categories,
		rules:      rules,
		timeout:    timeout,
		log:        zap.NewNop(),
	}, nil
}

// MustNew is like New but panics on error. For tests and static tables.
func MustNew(spec Spec) *Table {
	t, err := New(spec)
	if err != nil {
		panic(err)
	}
	return t
}

func buildMatcher(rs RuleSpec, timeout time.Duration) (Matcher, error) {
	set := 0
	if rs.Literals != nil {
		set++
	}
	if rs.Pattern != nil {
		set++
	}
	if rs.Delimited != nil {
		set++
	}
	switch {
	case set == 0:
		return nil, errs.Configuration("no matcher: set one of literals, pattern, delimited")
	case set > 1:
		return nil, errs.Configuration("more than one matcher: set only one of literals, pattern, delimited")
	}

	switch {
	case rs.Literals != nil:
		return newLiteralMatcher(rs.Literals, rs.Boundary)
	case rs.Pattern != nil:
		return newPatternMatcher(*rs.Pattern, rs.IgnoreCase, timeout)
	default:
		return newDelimitedMatcher(*rs.Delimited)
	}
}

// Lookup returns the category and length of the rule that wins at pos.
// It reports false when no rule matches with a non-zero length. Lookup is a
// pure function of (text, pos) for a given table.
func (t *Table) Lookup(text string, pos int) (Match, bool) {
	if pos < 0 || pos >= len(text) {
		return Match{}, false
	}
	var best Match
	found := false
	for _, r := range t.rules {
		n := t.match(r, text, pos)
		if n <= 0 {
			continue
		}
		if rest := len(text) - pos; n > rest {
			n = rest
		}
		if t.mode == FirstMatch {
			return Match{Category: r.Category, Length: n, Rule: r.Index}, true
		}
		if !found || n > best.Length {
			best = Match{Category: r.Category, Length: n, Rule: r.Index}
			found = true
		}
	}
	return best, found
}

func (t *Table) match(r Rule, text string, pos int) int {
	pm, ok := r.Matcher.(*patternMatcher)
	if !ok {
		return r.Matcher.Match(text, pos)
	}
	n, err := pm.find(text, pos)
	if err != nil {
		t.log.Warn("pattern match abandoned",
			zap.String("grammar", t.name),
			zap.Int("rule", r.Index),
			zap.String("pattern", pm.expr),
			zap.Int("pos", pos),
			zap.Error(err),
		)
		return 0
	}
	return n
}

// WithLogger returns a copy of t that reports abandoned pattern matches to
// log. t itself is unchanged.
func (t *Table) WithLogger(log *zap.Logger) *Table {
	if log == nil {
		log = zap.NewNop()
	}
	c := *t
	c.log = log
	return &c
}

// MatchTimeout returns the per-match bound applied to pattern rules.
func (t *Table) MatchTimeout() time.Duration { return t.timeout }

// Name returns the grammar name.
func (t *Table) Name() string { return t.name }

// Scope returns the TextMate-style scope name, if any.
func (t *Table) Scope() string { return t.scope }

// Mode returns the rule resolution mode.
func (t *Table) Mode() Mode { return t.mode }

// FileTypes returns the normalized extensions (".rs") this grammar claims.
func (t *Table) FileTypes() []string {
	out := make([]string, len(t.fileTypes))
	copy(out, t.fileTypes)
	return out
}

// Categories returns every category the grammar knows, sorted.
func (t *Table) Categories() []Category {
	return sortedCategories(t.categories)
}

// HasCategory reports whether c is known to the grammar.
func (t *Table) HasCategory(c Category) bool {
	_, ok := t.categories[c]
	return ok
}

// Rules returns the rules in evaluation order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

func normalizeExt(ft string) string {
	ft = strings.ToLower(strings.TrimSpace(ft))
	ft = strings.TrimPrefix(ft, ".")
	if ft == "" {
		return ""
	}
	return "." + ft
}
