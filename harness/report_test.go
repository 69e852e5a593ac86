package harness

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestSummaryLine_WithVersion(t *testing.T) {
	r := &Report{
		Meta: Meta{
			Versions: map[string]string{"chromium": "HeadlessChrome/131.0.6778.85"},
		},
		Summary: map[string]*Summary{
			"chromium": {Pass: 1392, Fail: 31, Skip: 12},
		},
	}
	got := r.SummaryLine("chromium")
	want := "chromium HeadlessChrome/131.0.6778.85: pass=1392 fail=31 error=0 skipped=12"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestSummaryLine_NoVersion(t *testing.T) {
	r := &Report{
		Meta:    Meta{Versions: map[string]string{}},
		Summary: map[string]*Summary{"nethtml": {Pass: 3}},
	}
	got := r.SummaryLine("nethtml")
	want := "nethtml: pass=3 fail=0 error=0 skipped=0"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestSummaryLine_LaunchError(t *testing.T) {
	r := &Report{
		Meta: Meta{
			Versions:     map[string]string{"chromium": ""},
			LaunchErrors: map[string]string{"chromium": `launch: exec: "chrome": executable file not found in $PATH`},
		},
		Summary: map[string]*Summary{"chromium": {Error: 1}},
	}
	got := r.SummaryLine("chromium")
	want := `chromium: ERROR launching backend (launch: exec: "chrome": executable file not found in $PATH)`
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestWriteFile_RoundTrip(t *testing.T) {
	fsys := afero.NewMemMapFs()
	actual := "| <b>"
	r := &Report{
		Schema: Schema,
		Meta: Meta{
			RunID:    "3d0f0ed4-0000-4000-8000-000000000000",
			Backends: []string{"fake"},
			Versions: map[string]string{"fake": "1.0"},
			Files:    []string{"a.dat"},
			Compare:  true,
		},
		Summary: map[string]*Summary{"fake": {Pass: 1}},
		Results: []CaseResult{
			{Backend: "fake", SourceFile: "a.dat", Outcome: OutcomePass, ActualTree: &actual},
		},
	}
	if err := r.WriteFile(fsys, "out/report.json"); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	data, err := afero.ReadFile(fsys, "out/report.json")
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "{\n  \"schema\"") {
		t.Errorf("Expected two-space-indented JSON starting with schema, got %q", text[:40])
	}
	if !strings.HasSuffix(text, "}\n") {
		t.Error("Expected trailing newline")
	}

	var back Report
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if back.Schema != Schema {
		t.Errorf("Expected schema %q, got %q", Schema, back.Schema)
	}
	if back.Results[0].ActualTree == nil || *back.Results[0].ActualTree != "| <b>" {
		t.Errorf("Expected actual tree to survive the round trip, got %v", back.Results[0].ActualTree)
	}
	if back.Results[0].ExpectedTree != nil {
		t.Error("Expected absent expected tree to stay absent")
	}
}

func TestHasErrors(t *testing.T) {
	r := &Report{Summary: map[string]*Summary{"a": {Pass: 2}}}
	if r.HasErrors() {
		t.Error("Expected no errors")
	}
	r.Summary["a"].Error = 1
	if !r.HasErrors() {
		t.Error("Expected errors after counter increment")
	}

	launch := &Report{
		Meta:    Meta{LaunchErrors: map[string]string{"b": "launch: nope"}},
		Summary: map[string]*Summary{},
	}
	if !launch.HasErrors() {
		t.Error("Expected launch failure to count as an error")
	}
}

func TestHasFailures(t *testing.T) {
	r := &Report{Summary: map[string]*Summary{"a": {Pass: 2}, "b": {}}}
	if r.HasFailures() {
		t.Error("Expected no failures")
	}
	r.Summary["b"].Fail = 3
	if !r.HasFailures() {
		t.Error("Expected failures after counter increment")
	}
}

func TestSummaryAdd_RecordedNotCounted(t *testing.T) {
	var s Summary
	for _, o := range []Outcome{OutcomePass, OutcomeFail, OutcomeError, OutcomeSkip, OutcomeRecorded} {
		s.add(o)
	}
	if s.Pass != 1 || s.Fail != 1 || s.Error != 1 || s.Skip != 1 {
		t.Errorf("Unexpected counters: %+v", s)
	}
}
