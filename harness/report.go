package harness

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
)

// Schema identifies the report shape for downstream consumers.
const Schema = "html5lib-tests-bench.results.v1"

// Outcome is the terminal state of one case on one backend.
type Outcome string

const (
	OutcomePass     Outcome = "pass"
	OutcomeFail     Outcome = "fail"
	OutcomeError    Outcome = "error"
	OutcomeSkip     Outcome = "skip"
	OutcomeRecorded Outcome = "recorded"
)

// CaseResult records one case's outcome on one backend. The actual tree
// is attached raw for every case the backend evaluated; the expected
// tree is attached normalized on failures only. A backend that failed
// to launch produces a single synthetic result with Index -1 and no
// case fields.
type CaseResult struct {
	Backend          string   `json:"backend"`
	SourceFile       string   `json:"file"`
	Index            int      `json:"index"`
	FragmentContext  string   `json:"fragment_context,omitempty"`
	ScriptingEnabled bool     `json:"scripting_enabled"`
	Outcome          Outcome  `json:"outcome"`
	SkipReason       string   `json:"skip_reason,omitempty"`
	Error            string   `json:"error,omitempty"`
	ExpectedTree     *string  `json:"expected_tree,omitempty"`
	ActualTree       *string  `json:"actual_tree,omitempty"`
	ExternalRequests []string `json:"external_requests,omitempty"`
}

// Summary counts terminal outcomes for one backend. Recorded cases are
// deliberately not counted: they carry data, not judgment.
type Summary struct {
	Pass  int `json:"pass"`
	Fail  int `json:"fail"`
	Error int `json:"error"`
	Skip  int `json:"skip"`
}

func (s *Summary) add(o Outcome) {
	switch o {
	case OutcomePass:
		s.Pass++
	case OutcomeFail:
		s.Fail++
	case OutcomeError:
		s.Error++
	case OutcomeSkip:
		s.Skip++
	}
}

// Meta describes the run that produced the report.
type Meta struct {
	RunID          string            `json:"run_id"`
	Backends       []string          `json:"backends"`
	Versions       map[string]string `json:"versions"`
	LaunchErrors   map[string]string `json:"launch_errors,omitempty"`
	Files          []string          `json:"files"`
	MaxCases       int               `json:"max_cases"`
	Compare        bool              `json:"compare"`
	ElapsedSeconds float64           `json:"elapsed_seconds"`
}

// Report is the complete result of a run. It is not mutated after Run
// returns.
type Report struct {
	Schema  string              `json:"schema"`
	Meta    Meta                `json:"meta"`
	Summary map[string]*Summary `json:"summary"`
	Results []CaseResult        `json:"results"`
}

// WriteFile emits the report as two-space-indented JSON. Map keys
// marshal sorted, so runs diff cleanly against each other.
func (r *Report) WriteFile(fsys afero.Fs, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	data = append(data, '\n')
	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// SummaryLine renders the condensed console line for one backend:
//
//	chromium HeadlessChrome/131.0.6778.85: pass=1392 fail=31 error=0 skipped=12
//
// or, when the backend never launched:
//
//	chromium: ERROR launching backend (exec: "chrome": executable file not found in $PATH)
func (r *Report) SummaryLine(name string) string {
	label := name
	if v := r.Meta.Versions[name]; v != "" {
		label = name + " " + v
	}
	if msg, ok := r.Meta.LaunchErrors[name]; ok {
		return fmt.Sprintf("%s: ERROR launching backend (%s)", label, msg)
	}
	s := r.Summary[name]
	if s == nil {
		s = &Summary{}
	}
	return fmt.Sprintf("%s: pass=%d fail=%d error=%d skipped=%d", label, s.Pass, s.Fail, s.Error, s.Skip)
}

// HasErrors reports whether any case errored, launch failures included.
func (r *Report) HasErrors() bool {
	for _, s := range r.Summary {
		if s.Error > 0 {
			return true
		}
	}
	return len(r.Meta.LaunchErrors) > 0
}

// HasFailures reports whether any tree comparison failed.
func (r *Report) HasFailures() bool {
	for _, s := range r.Summary {
		if s.Fail > 0 {
			return true
		}
	}
	return false
}
