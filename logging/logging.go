// Package logging configures the global zerolog logger: a console
// writer on stderr, optionally teed into a rotating log file.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options control logger construction.
type Options struct {
	// Debug lowers the global level from info to debug.
	Debug bool
	// FilePath, when set, tees output into a rotating file there.
	FilePath string
	// Console receives the human-readable lines; nil means stderr.
	Console io.Writer
}

// Init replaces the global logger. Call once at startup, before
// anything logs.
func Init(opts Options) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: "15:04:05"}}
	if opts.FilePath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    1,
			MaxBackups: 2,
		})
	}

	log.Logger = log.Output(io.MultiWriter(writers...)).With().Timestamp().Logger()

	if opts.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
