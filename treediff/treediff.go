// Package treediff normalizes and compares serialized DOM trees in the
// html5lib tree-construction format.
package treediff

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

// TruncationMarker is appended to a diff that was cut at the line bound.
const TruncationMarker = "... (diff truncated)"

// Result represents the outcome of comparing two serialized trees.
type Result struct {
	Equal bool
	Diff  []string // unified diff lines; empty when Equal
}

// Normalize prepares a serialized tree for comparison: trailing
// whitespace is stripped from every line, then leading and trailing
// blank lines are removed. Normalize is idempotent.
func Normalize(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	start, end := 0, len(lines)
	for start < end && lines[start] == "" {
		start++
	}
	for end > start && lines[end-1] == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

// Compare normalizes both trees and reports whether they match. When
// they differ, Diff holds a line-based unified diff of the normalized
// forms. maxDiffLines bounds the diff (0 means unlimited); a cut diff
// ends with TruncationMarker.
func Compare(expected, actual string, maxDiffLines int) Result {
	e := Normalize(expected)
	a := Normalize(actual)
	if e == a {
		return Result{Equal: true}
	}

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(e),
		B:        difflib.SplitLines(a),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	})
	if err != nil {
		return Result{Diff: []string{fmt.Sprintf("diff unavailable: %v", err)}}
	}

	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if maxDiffLines > 0 && len(lines) > maxDiffLines {
		lines = append(lines[:maxDiffLines], TruncationMarker)
	}
	return Result{Diff: lines}
}
