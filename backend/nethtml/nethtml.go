// Package nethtml runs tree-construction cases through the pure-Go
// golang.org/x/net/html parser, in process. It exists both as a fast
// reference engine and as a second opinion next to a real browser.
package nethtml

import (
	"context"
	"runtime/debug"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/EmilStenstrom/justhtml-html5lib-tests-bench/backend"
)

const parserModule = "golang.org/x/net"

// Backend drives golang.org/x/net/html.
type Backend struct{}

// New returns a backend for the in-process parser.
func New() *Backend {
	return &Backend{}
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return "nethtml" }

// Start implements backend.Backend. There is nothing to acquire for an
// in-process parser.
func (b *Backend) Start(ctx context.Context) error { return nil }

// Close implements backend.Backend.
func (b *Backend) Close() error { return nil }

// Version reports the parser's module version from build info, falling
// back to the module path for non-module builds.
func (b *Backend) Version() string {
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range bi.Deps {
			if dep.Path == parserModule {
				return dep.Version
			}
		}
	}
	return parserModule
}

// ParseDocument parses markup as a complete document and serializes the
// resulting tree.
func (b *Backend) ParseDocument(ctx context.Context, markup string, scripting bool) (*backend.Result, error) {
	doc, err := html.ParseWithOptions(strings.NewReader(markup), html.ParseOptionEnableScripting(scripting))
	if err != nil {
		return nil, backend.NewError(backend.KindEval, err)
	}
	return &backend.Result{Tree: Dump(doc)}, nil
}

// ParseFragment parses markup inside the named context element.
// Scripting is disabled to match how the fixtures' fragment cases are
// defined.
func (b *Backend) ParseFragment(ctx context.Context, contextName, markup string) (*backend.Result, error) {
	nodes, err := html.ParseFragmentWithOptions(strings.NewReader(markup), contextNode(contextName), html.ParseOptionEnableScripting(false))
	if err != nil {
		return nil, backend.NewError(backend.KindEval, err)
	}
	return &backend.Result{Tree: DumpNodes(nodes)}, nil
}

// contextNode builds the fragment-parsing context element. Fixture
// context names use "svg name"/"math name" for foreign elements.
func contextNode(name string) *html.Node {
	ns := ""
	local := name
	switch {
	case strings.HasPrefix(name, "svg "):
		ns, local = "svg", strings.TrimPrefix(name, "svg ")
	case strings.HasPrefix(name, "math "):
		ns, local = "math", strings.TrimPrefix(name, "math ")
	}
	return &html.Node{
		Type:      html.ElementNode,
		DataAtom:  atom.Lookup([]byte(local)),
		Data:      local,
		Namespace: ns,
	}
}
