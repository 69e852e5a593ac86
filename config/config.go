// Package config loads the optional TOML run configuration. Values
// start from built-in defaults, the file overlays them, and the result
// is validated. CLI flags overlay the loaded values in turn.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

// SchemaVersion guards the config file shape. A file with any other
// version is rejected rather than half-read.
const SchemaVersion = 1

// Values is the full run configuration.
type Values struct {
	ConfigSchema int      `toml:"config_schema"`
	Backends     []string `toml:"backends,omitempty"      validate:"min=1,dive,oneof=chromium nethtml"`
	MaxCases     int      `toml:"max_cases"               validate:"min=0"`
	Compare      bool     `toml:"compare"`
	MaxDiffLines int      `toml:"max_diff_lines"          validate:"min=0"`
	JSONOut      string   `toml:"json_out,omitempty"`
	PrintFails   bool     `toml:"print_fails"`
	PrintErrors  bool     `toml:"print_errors"`
	LogFile      string   `toml:"log_file,omitempty"`
	DebugLogging bool     `toml:"debug_logging"`
	Chromium     Chromium `toml:"chromium"`
}

// Chromium configures the browser backend.
type Chromium struct {
	ExecPath       string `toml:"exec_path,omitempty"`
	Headless       bool   `toml:"headless"`
	RemoteURL      string `toml:"remote_url,omitempty"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"min=0"`
}

// Defaults are the values a run starts from before any file or flag.
func Defaults() Values {
	return Values{
		ConfigSchema: SchemaVersion,
		Backends:     []string{"chromium"},
		Compare:      true,
		MaxDiffLines: 200,
		Chromium: Chromium{
			Headless:       true,
			TimeoutSeconds: 10,
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads path and overlays it on the defaults, so fields absent
// from the file keep their default values.
func Load(fsys afero.Fs, path string) (Values, error) {
	vals := Defaults()

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return Values{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := toml.Unmarshal(data, &vals); err != nil {
		return Values{}, fmt.Errorf("parsing config file: %w", err)
	}
	if vals.ConfigSchema != SchemaVersion {
		return Values{}, fmt.Errorf("config schema version mismatch: got %d, expecting %d",
			vals.ConfigSchema, SchemaVersion)
	}
	if err := Validate(vals); err != nil {
		return Values{}, err
	}
	return vals, nil
}

// Validate checks a configuration, whether loaded from a file or
// assembled from flags.
func Validate(vals Values) error {
	err := validate.Struct(vals)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	return fmt.Errorf("validating config: %w", err)
}
