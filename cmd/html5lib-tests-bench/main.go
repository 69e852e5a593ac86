// Command html5lib-tests-bench runs html5lib-tests tree-construction
// fixtures (.dat files) through real HTML parsing engines and reports
// whether each engine's serialized tree matches the expected one.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/EmilStenstrom/justhtml-html5lib-tests-bench/backend"
	"github.com/EmilStenstrom/justhtml-html5lib-tests-bench/backend/chromium"
	"github.com/EmilStenstrom/justhtml-html5lib-tests-bench/backend/nethtml"
	"github.com/EmilStenstrom/justhtml-html5lib-tests-bench/config"
	"github.com/EmilStenstrom/justhtml-html5lib-tests-bench/dat"
	"github.com/EmilStenstrom/justhtml-html5lib-tests-bench/harness"
	"github.com/EmilStenstrom/justhtml-html5lib-tests-bench/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	defaults := config.Defaults()

	fs := flag.NewFlagSet("html5lib-tests-bench", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() { usage(fs) }

	var (
		backendArg  = fs.String("backend", defaults.Backends[0], "engine to run: chromium, nethtml or all")
		jsonOut     = fs.String("json", "", "write the JSON report to this path")
		maxCases    = fs.Int("max-cases", defaults.MaxCases, "per-backend case cap (0 = all)")
		noCompare   = fs.Bool("no-compare", false, "record actual trees without comparing")
		printFails  = fs.Bool("print-fails", false, "write unified diffs for failures to stderr")
		printErrors = fs.Bool("print-errors", false, "write error detail to stderr")
		maxDiff     = fs.Int("max-diff-lines", defaults.MaxDiffLines, "bound each printed diff (0 = unlimited)")
		configPath  = fs.String("config", "", "TOML config file")
		execPath    = fs.String("chromium-path", "", "Chromium executable")
		remoteURL   = fs.String("remote-url", "", "attach to a running browser over the DevTools protocol")
		headful     = fs.Bool("headful", false, "run the browser with a window")
		timeout     = fs.Duration("timeout", time.Duration(defaults.Chromium.TimeoutSeconds)*time.Second, "per-case evaluation deadline")
		logFile     = fs.String("log-file", "", "tee logs into this rotating file")
		debug       = fs.Bool("debug", false, "debug logging")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	fsys := afero.NewOsFs()

	cfg := defaults
	if *configPath != "" {
		loaded, err := config.Load(fsys, *configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		cfg = loaded
	}

	// Flags override the file only when actually set on the command line.
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["backend"] {
		cfg.Backends = expandBackends(*backendArg)
	}
	if set["json"] {
		cfg.JSONOut = *jsonOut
	}
	if set["max-cases"] {
		cfg.MaxCases = *maxCases
	}
	if set["no-compare"] {
		cfg.Compare = !*noCompare
	}
	if set["print-fails"] {
		cfg.PrintFails = *printFails
	}
	if set["print-errors"] {
		cfg.PrintErrors = *printErrors
	}
	if set["max-diff-lines"] {
		cfg.MaxDiffLines = *maxDiff
	}
	if set["chromium-path"] {
		cfg.Chromium.ExecPath = *execPath
	}
	if set["remote-url"] {
		cfg.Chromium.RemoteURL = *remoteURL
	}
	if set["headful"] {
		cfg.Chromium.Headless = !*headful
	}
	if set["timeout"] {
		secs, err := timeoutSeconds(*timeout)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		cfg.Chromium.TimeoutSeconds = secs
	}
	if set["log-file"] {
		cfg.LogFile = *logFile
	}
	if set["debug"] {
		cfg.DebugLogging = *debug
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logging.Init(logging.Options{Debug: cfg.DebugLogging, FilePath: cfg.LogFile})

	if fs.NArg() < 1 {
		fs.Usage()
		return 1
	}
	files, err := collectFixtures(fsys, fs.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cases, err := dat.ParseFiles(fsys, files)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if len(cases) == 0 {
		fmt.Println("No tests found")
		return 1
	}

	backends, err := buildBackends(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	report := harness.Run(context.Background(), backends, cases, harness.Options{
		Files:        files,
		MaxCases:     cfg.MaxCases,
		Compare:      cfg.Compare,
		MaxDiffLines: cfg.MaxDiffLines,
		PrintFails:   cfg.PrintFails,
		PrintErrors:  cfg.PrintErrors,
		DiffWriter:   os.Stderr,
	})

	if cfg.JSONOut != "" {
		if err := report.WriteFile(fsys, cfg.JSONOut); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
	}

	for _, name := range report.Meta.Backends {
		fmt.Println(report.SummaryLine(name))
	}
	fmt.Printf("elapsed_seconds: %.3f\n", report.Meta.ElapsedSeconds)

	switch {
	case report.HasErrors():
		return 2
	case cfg.Compare && report.HasFailures():
		return 3
	default:
		return 0
	}
}

// timeoutSeconds converts the -timeout flag to the whole seconds the
// config file speaks. Fractional values round up so the deadline is
// never shorter than requested.
func timeoutSeconds(d time.Duration) (int, error) {
	if d <= 0 {
		return 0, fmt.Errorf("-timeout must be positive, got %v", d)
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs, nil
}

// expandBackends turns the -backend argument into the backend name
// list; "all" selects every engine in fixed order.
func expandBackends(arg string) []string {
	if arg == "all" {
		return []string{"chromium", "nethtml"}
	}
	return []string{arg}
}

// buildBackends constructs engines from validated config values. A
// chromium backend whose embedded scripts fail their integrity check
// aborts here, before anything launches.
func buildBackends(cfg config.Values) ([]backend.Backend, error) {
	var backends []backend.Backend
	for _, name := range cfg.Backends {
		switch name {
		case "chromium":
			opts := []chromium.Option{
				chromium.WithHeadless(cfg.Chromium.Headless),
				chromium.WithTimeout(time.Duration(cfg.Chromium.TimeoutSeconds) * time.Second),
			}
			if cfg.Chromium.ExecPath != "" {
				opts = append(opts, chromium.WithExecPath(cfg.Chromium.ExecPath))
			}
			if cfg.Chromium.RemoteURL != "" {
				opts = append(opts, chromium.WithRemoteURL(cfg.Chromium.RemoteURL))
			}
			be, err := chromium.New(opts...)
			if err != nil {
				return nil, err
			}
			backends = append(backends, be)
		case "nethtml":
			backends = append(backends, nethtml.New())
		default:
			return nil, fmt.Errorf("unknown backend %q", name)
		}
	}
	return backends, nil
}

// collectFixtures expands the positional arguments: files are taken
// as-is, directories are walked for .dat files in sorted order.
func collectFixtures(fsys afero.Fs, args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := fsys.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		var found []string
		err = afero.Walk(fsys, arg, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && strings.HasSuffix(path, ".dat") {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", arg, err)
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

func usage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, "Usage: %s [options] <file-or-dir>...\n", fs.Name())
	fmt.Fprintf(os.Stderr, "\nRuns html5lib-tests tree-construction fixtures (.dat) through HTML\nparsing engines and compares the serialized trees.\n")
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  %s -backend=nethtml tree-construction/\n", fs.Name())
	fmt.Fprintf(os.Stderr, "  %s -backend=all -json=results.json tests1.dat tests2.dat\n", fs.Name())
	fmt.Fprintf(os.Stderr, "  %s -print-fails -max-diff-lines=40 tree-construction/webkit01.dat\n", fs.Name())
}
