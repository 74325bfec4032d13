// Package diff computes line-level hunks between an expected and an actual
// token dump using the sergi/go-diff library.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineType represents the type of diff line
type LineType int

const (
	LineContext LineType = iota // Unchanged line
	LineAdded                   // Only in the actual dump
	LineRemoved                 // Only in the expected dump
)

// Line is one rendered line of a hunk.
type Line struct {
	Type    LineType
	Content string
}

// Hunk is a group of changes with surrounding context. Start lines are
// 1-based; a zero start means the side is empty.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// Result holds the hunks between two dumps.
type Result struct {
	OldName string
	NewName string
	Hunks   []Hunk
}

// Empty reports whether the dumps were identical.
func (r *Result) Empty() bool { return len(r.Hunks) == 0 }

// Engine computes diffs. The zero value is not usable; call NewEngine.
type Engine struct {
	dmp     *diffmatchpatch.DiffMatchPatch
	context int
}

// NewEngine returns an engine emitting context lines around each change.
func NewEngine(context int) *Engine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0 // dumps are small; prefer exact results
	if context < 0 {
		context = 0
	}
	return &Engine{dmp: dmp, context: context}
}

// Lines diffs two sequences of lines. Lines must not contain newlines.
func (e *Engine) Lines(oldName, newName string, oldLines, newLines []string) *Result {
	oldText := joinLines(oldLines)
	newText := joinLines(newLines)

	// Line-level reduction avoids character diffs straddling line boundaries.
	a, b, lineArray := e.dmp.DiffLinesToChars(oldText, newText)
	diffs := e.dmp.DiffMain(a, b, false)
	diffs = e.dmp.DiffCharsToLines(diffs, lineArray)

	return &Result{
		OldName: oldName,
		NewName: newName,
		Hunks:   e.group(toOperations(diffs)),
	}
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

type operation struct {
	typ     LineType
	oldLine int // 0-based, -1 when absent
	newLine int
	content string
}

func toOperations(diffs []diffmatchpatch.Diff) []operation {
	var ops []operation
	oldLine, newLine := 0, 0
	for _, d := range diffs {
		lines := strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n")
		if d.Text == "" {
			continue
		}
		for _, line := range lines {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				ops = append(ops, operation{LineContext, oldLine, newLine, line})
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				ops = append(ops, operation{LineRemoved, oldLine, -1, line})
				oldLine++
			case diffmatchpatch.DiffInsert:
				ops = append(ops, operation{LineAdded, -1, newLine, line})
				newLine++
			}
		}
	}
	return ops
}

// group collects changed operations into hunks, merging changes separated by
// at most 2*context unchanged lines.
func (e *Engine) group(ops []operation) []Hunk {
	var hunks []Hunk
	i := 0
	for i < len(ops) {
		if ops[i].typ == LineContext {
			i++
			continue
		}
		start := max(i-e.context, 0)
		end := i
		for j := i; j < len(ops); j++ {
			if ops[j].typ != LineContext {
				end = j
				continue
			}
			if j-end > 2*e.context {
				break
			}
		}
		stop := min(end+e.context+1, len(ops))
		hunks = append(hunks, newHunk(ops, start, stop))
		i = stop
	}
	return hunks
}

func newHunk(ops []operation, start, stop int) Hunk {
	h := Hunk{Lines: make([]Line, 0, stop-start)}
	for _, op := range ops[start:stop] {
		h.Lines = append(h.Lines, Line{Type: op.typ, Content: op.content})
		if op.typ != LineAdded {
			if h.OldCount == 0 {
				h.OldStart = op.oldLine + 1
			}
			h.OldCount++
		}
		if op.typ != LineRemoved {
			if h.NewCount == 0 {
				h.NewStart = op.newLine + 1
			}
			h.NewCount++
		}
	}
	return h
}

// Unified renders r in unified diff format. An empty result renders as "".
func (r *Result) Unified() string {
	if r.Empty() {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n+++ %s\n", r.OldName, r.NewName)
	for _, h := range r.Hunks {
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		for _, l := range h.Lines {
			switch l.Type {
			case LineAdded:
				b.WriteByte('+')
			case LineRemoved:
				b.WriteByte('-')
			default:
				b.WriteByte(' ')
			}
			b.WriteString(l.Content)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
