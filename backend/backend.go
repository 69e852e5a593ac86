// Package backend defines the engine abstraction the harness drives: an
// engine parses markup and serializes the resulting DOM in the html5lib
// tree-construction format.
package backend

import (
	"context"
	"errors"
	"fmt"
)

// Result carries the output of one evaluation.
type Result struct {
	Tree             string   // serialized tree in html5lib format
	ExternalRequests []string // URLs the markup tried to fetch; blocked and recorded
}

// Backend abstracts an HTML parsing engine.
type Backend interface {
	// Name identifies the backend in reports, e.g. "chromium".
	Name() string

	// Start acquires the engine. Version is meaningful only after a
	// successful Start; Close is safe to call after a failed one.
	Start(ctx context.Context) error
	Version() string
	Close() error

	// ParseDocument parses markup as a complete document and returns the
	// serialized tree. The scripting flag selects script-capable
	// evaluation where the engine distinguishes.
	ParseDocument(ctx context.Context, markup string, scripting bool) (*Result, error)

	// ParseFragment parses markup inside the named context element.
	// Foreign contexts use the "svg name"/"math name" convention.
	ParseFragment(ctx context.Context, contextName, markup string) (*Result, error)
}

// Kind classifies a backend failure.
type Kind string

const (
	KindLaunch   Kind = "launch"   // engine acquisition failed
	KindEval     Kind = "eval"     // a single case's evaluation failed
	KindTimeout  Kind = "timeout"  // the per-case deadline elapsed
	KindResource Kind = "resource" // a required embedded resource is broken
)

// Error is a classified backend failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a classification.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Errorf builds a classified failure from a format string.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the classification from an error chain. Deadline
// expiry counts as a timeout; anything unclassified counts as an
// evaluation failure.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindEval
}

// Classify renders err as the short "kind: message" form reports carry.
func Classify(err error) string {
	var be *Error
	if errors.As(err, &be) {
		return be.Error()
	}
	return fmt.Sprintf("%s: %v", KindOf(err), err)
}
