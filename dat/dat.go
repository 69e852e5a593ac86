// Package dat parses html5lib-tests tree-construction fixture files
// (.dat). A fixture is a sequence of cases, each introduced by a #data
// marker and optionally carrying #document, #document-fragment and
// #script-on/#script-off sections.
package dat

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

// TestCase represents one parsed unit of work from a fixture file.
type TestCase struct {
	SourceFile       string
	Index            int     // 0-based position within the file
	Markup           string  // input markup, verbatim
	ExpectedTree     *string // nil when the fixture provided no expected tree
	FragmentContext  string  // context element name; empty for document parsing
	ScriptingEnabled bool
}

// IsFragment reports whether the case requires fragment parsing.
func (t TestCase) IsFragment() bool {
	return t.FragmentContext != ""
}

// section identifies which buffer non-marker lines are captured into.
type section int

const (
	sectionNone section = iota
	sectionData
	sectionDocument
	sectionFragment
)

// caseBuilder accumulates one case's sections during a parse.
type caseBuilder struct {
	sawData   bool
	scripting bool
	data      []string
	document  []string
	fragment  []string
}

// finalize folds the accumulated sections into a TestCase. It reports
// false when no #data marker was seen, which discards content captured
// before the first case.
func (b *caseBuilder) finalize(sourceFile string, index int) (TestCase, bool) {
	if !b.sawData {
		return TestCase{}, false
	}

	t := TestCase{
		SourceFile:       sourceFile,
		Index:            index,
		Markup:           strings.Join(b.data, "\n"),
		ScriptingEnabled: b.scripting,
	}

	if len(b.fragment) > 0 {
		// Fragment tests name the context element on the first
		// #document-fragment line. The expected tree usually lives under
		// #document, with the remaining fragment lines as a fallback.
		t.FragmentContext = strings.TrimSpace(b.fragment[0])
		expected := b.document
		if len(expected) == 0 {
			expected = b.fragment[1:]
		}
		tree := strings.TrimRight(strings.Join(expected, "\n"), "\n")
		t.ExpectedTree = &tree
	} else if len(b.document) > 0 {
		tree := strings.TrimRight(strings.Join(b.document, "\n"), "\n")
		t.ExpectedTree = &tree
	}

	return t, true
}

// Parse scans fixture text in a single pass and returns its cases in
// order. Lines starting with # are section markers; unrecognized markers
// (#errors, #new-errors, ...) and the content below them are ignored.
// Malformed input yields fewer cases, never an error.
func Parse(text, sourceFile string) []TestCase {
	var (
		tests []TestCase
		cur   caseBuilder
	)
	sec := sectionNone
	defaultScripting := false
	index := 0

	flush := func() {
		if t, ok := cur.finalize(sourceFile, index); ok {
			tests = append(tests, t)
			index++
		}
	}

	for _, line := range splitLines(text) {
		if strings.HasPrefix(line, "#") {
			key := strings.ToLower(strings.TrimSpace(line[1:]))
			switch key {
			case "data":
				// A new #data finalizes the case in progress.
				flush()
				cur = caseBuilder{sawData: true, scripting: defaultScripting}
				sec = sectionData
			case "document":
				sec = sectionDocument
			case "document-fragment":
				sec = sectionFragment
			case "script-on", "script-off":
				// Before the first case this sets the running default;
				// inside a case it overrides that case only.
				on := key == "script-on"
				if cur.sawData {
					cur.scripting = on
				} else {
					defaultScripting = on
				}
				sec = sectionNone
			default:
				sec = sectionNone
			}
			continue
		}

		switch sec {
		case sectionData:
			cur.data = append(cur.data, line)
		case sectionDocument:
			cur.document = append(cur.document, line)
		case sectionFragment:
			cur.fragment = append(cur.fragment, line)
		}
	}

	flush()
	return tests
}

// ParseFile reads, decodes and parses one fixture file.
func ParseFile(fsys afero.Fs, path string) ([]TestCase, error) {
	raw, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture %s: %w", path, err)
	}
	return Parse(DecodeBytes(raw), path), nil
}

// ParseFiles parses several fixture files, concatenating their cases in
// argument order.
func ParseFiles(fsys afero.Fs, paths []string) ([]TestCase, error) {
	var tests []TestCase
	for _, p := range paths {
		t, err := ParseFile(fsys, p)
		if err != nil {
			return nil, err
		}
		tests = append(tests, t...)
	}
	return tests, nil
}

// splitLines splits text into lines the way the fixture format expects:
// \n and \r\n both terminate a line, and a trailing newline does not
// produce a trailing empty line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
