// Package harness runs parsed fixtures through backends, one backend at
// a time, and assembles the run report. Execution is strictly
// sequential, so no synchronization is involved anywhere in the flow.
package harness

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/EmilStenstrom/justhtml-html5lib-tests-bench/backend"
	"github.com/EmilStenstrom/justhtml-html5lib-tests-bench/dat"
	"github.com/EmilStenstrom/justhtml-html5lib-tests-bench/treediff"
)

// SkipReasonScripting marks cases skipped because they want scripts to
// run during parsing. The harness benchmarks parsers, not script
// engines, so those cases never reach a backend.
const SkipReasonScripting = "scripting_enabled"

// Options configure a run.
type Options struct {
	// Files lists the fixture paths the cases came from, for the report.
	Files []string
	// MaxCases caps evaluated cases per backend; 0 runs all. Cases past
	// the cap are not visited at all.
	MaxCases int
	// Compare toggles tree comparison. When false every successful
	// evaluation is recorded instead of judged.
	Compare bool
	// MaxDiffLines bounds each printed diff; 0 means unlimited.
	MaxDiffLines int
	// PrintFails writes a unified diff to DiffWriter for every failure.
	PrintFails bool
	// PrintErrors writes a detail line to DiffWriter for every error.
	PrintErrors bool
	// DiffWriter is the side channel for diffs and error detail,
	// typically stderr. Nil discards both.
	DiffWriter io.Writer
	// Clock supplies time for the elapsed measurement; nil uses the
	// real clock.
	Clock clockwork.Clock
}

// Run evaluates every case on every backend and builds the report.
// Backends run in order, each fully exhausted before the next starts.
// A backend that fails to launch contributes one synthetic error result
// and the run moves on.
func Run(ctx context.Context, backends []backend.Backend, cases []dat.TestCase, opts Options) *Report {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	started := clock.Now()

	r := &Report{
		Schema: Schema,
		Meta: Meta{
			RunID:        uuid.NewString(),
			Versions:     make(map[string]string),
			LaunchErrors: make(map[string]string),
			Files:        opts.Files,
			MaxCases:     opts.MaxCases,
			Compare:      opts.Compare,
		},
		Summary: make(map[string]*Summary),
	}
	for _, be := range backends {
		r.Meta.Backends = append(r.Meta.Backends, be.Name())
		r.Summary[be.Name()] = &Summary{}
	}

	for _, be := range backends {
		runBackend(ctx, be, cases, opts, r)
	}

	r.Meta.ElapsedSeconds = clock.Since(started).Seconds()
	return r
}

func runBackend(ctx context.Context, be backend.Backend, cases []dat.TestCase, opts Options, r *Report) {
	name := be.Name()
	defer func() {
		if err := be.Close(); err != nil {
			log.Debug().Err(err).Msgf("closing backend %s", name)
		}
	}()

	if err := be.Start(ctx); err != nil {
		msg := backend.Classify(err)
		log.Error().Msgf("%s: launch failed: %s", name, msg)
		r.Meta.Versions[name] = ""
		r.Meta.LaunchErrors[name] = msg
		r.Summary[name].add(OutcomeError)
		r.Results = append(r.Results, CaseResult{
			Backend: name,
			Index:   -1,
			Outcome: OutcomeError,
			Error:   msg,
		})
		return
	}
	r.Meta.Versions[name] = be.Version()
	log.Debug().Msgf("%s %s: running %d cases", name, be.Version(), len(cases))

	for i, tc := range cases {
		if opts.MaxCases > 0 && i >= opts.MaxCases {
			break
		}
		res := runCase(ctx, be, tc, opts)
		r.Summary[name].add(res.Outcome)
		r.Results = append(r.Results, res)
	}
}

func runCase(ctx context.Context, be backend.Backend, tc dat.TestCase, opts Options) CaseResult {
	res := CaseResult{
		Backend:          be.Name(),
		SourceFile:       tc.SourceFile,
		Index:            tc.Index,
		FragmentContext:  tc.FragmentContext,
		ScriptingEnabled: tc.ScriptingEnabled,
	}

	if tc.ScriptingEnabled {
		res.Outcome = OutcomeSkip
		res.SkipReason = SkipReasonScripting
		return res
	}

	var (
		out *backend.Result
		err error
	)
	if tc.IsFragment() {
		out, err = be.ParseFragment(ctx, tc.FragmentContext, tc.Markup)
	} else {
		out, err = be.ParseDocument(ctx, tc.Markup, tc.ScriptingEnabled)
	}
	if err != nil {
		res.Outcome = OutcomeError
		res.Error = backend.Classify(err)
		log.Warn().Msgf("ERROR [%s] %s: %s", res.Backend, caseLoc(res), res.Error)
		if opts.PrintErrors && opts.DiffWriter != nil {
			fmt.Fprintf(opts.DiffWriter, "ERROR [%s] %s: %s\n", res.Backend, caseLoc(res), res.Error)
		}
		return res
	}

	actual := out.Tree
	res.ActualTree = &actual
	if len(out.ExternalRequests) > 0 {
		res.ExternalRequests = out.ExternalRequests
	}

	if !opts.Compare || tc.ExpectedTree == nil {
		res.Outcome = OutcomeRecorded
		return res
	}

	cmp := treediff.Compare(*tc.ExpectedTree, out.Tree, opts.MaxDiffLines)
	if cmp.Equal {
		res.Outcome = OutcomePass
		return res
	}

	res.Outcome = OutcomeFail
	expected := treediff.Normalize(*tc.ExpectedTree)
	res.ExpectedTree = &expected
	log.Debug().Msgf("FAIL [%s] %s", res.Backend, caseLoc(res))
	if opts.PrintFails && opts.DiffWriter != nil {
		fmt.Fprintf(opts.DiffWriter, "FAIL [%s] %s\n", res.Backend, caseLoc(res))
		for _, line := range cmp.Diff {
			fmt.Fprintln(opts.DiffWriter, line)
		}
		fmt.Fprintln(opts.DiffWriter)
	}
	return res
}

// caseLoc renders "file#index", plus the fragment context when the case
// has one.
func caseLoc(res CaseResult) string {
	loc := fmt.Sprintf("%s#%d", res.SourceFile, res.Index)
	if res.FragmentContext != "" {
		loc += fmt.Sprintf(" fragment_context=%q", res.FragmentContext)
	}
	return loc
}
