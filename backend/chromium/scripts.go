package chromium

import (
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/dop251/goja"

	"github.com/EmilStenstrom/justhtml-html5lib-tests-bench/backend"
)

//go:embed js/tree_serializer.js
var treeSerializerJS string

//go:embed js/fragment_serializer.js
var fragmentSerializerJS string

// scriptSet holds the function expressions evaluated in the page. Each
// is a self-contained arrow function so a single Runtime.evaluate call
// can invoke it.
type scriptSet struct {
	// parseDocument takes markup, parses it with DOMParser (scripts
	// inert) and returns the serialized tree.
	parseDocument string
	// serializeCurrent takes no arguments and returns the serialized
	// tree of the live document.
	serializeCurrent string
	// parseFragment takes {context, html} and returns the serialized
	// children of the fragment context element.
	parseFragment string
}

// composeScripts builds the evaluate expressions from the embedded
// serializer sources and syntax-checks each one, so a broken asset
// surfaces before any browser is launched.
func composeScripts() (*scriptSet, error) {
	if strings.TrimSpace(treeSerializerJS) == "" || strings.TrimSpace(fragmentSerializerJS) == "" {
		return nil, backend.Errorf(backend.KindResource, "embedded serializer scripts are empty")
	}

	serializer := "(() => {\n" + treeSerializerJS + "\nreturn serializeTree;\n})()"
	set := &scriptSet{
		parseDocument: "(html) => {\n" +
			"const doc = new DOMParser().parseFromString(String(html || \"\"), \"text/html\");\n" +
			"return (" + serializer + ")(doc);\n" +
			"}",
		serializeCurrent: "() => (" + serializer + ")(document)",
		parseFragment: "(() => {\n" +
			treeSerializerJS + "\n" +
			fragmentSerializerJS + "\n" +
			"return serializeFragment;\n})()",
	}

	for name, src := range map[string]string{
		"parse_document.js":      set.parseDocument,
		"serialize_current.js":   set.serializeCurrent,
		"fragment_serializer.js": set.parseFragment,
	} {
		if _, err := goja.Compile(name, "("+src+")", true); err != nil {
			return nil, backend.Errorf(backend.KindResource, "serializer script %s does not parse: %v", name, err)
		}
	}
	return set, nil
}

// callExpr turns a function expression and a single argument into an
// invocation. The argument is embedded as a JSON literal, which is
// valid JavaScript and keeps arbitrary markup out of string-quoting
// trouble.
func callExpr(fnExpr string, arg any) (string, error) {
	lit, err := json.Marshal(arg)
	if err != nil {
		return "", backend.Errorf(backend.KindEval, "encoding script argument: %v", err)
	}
	return "(" + fnExpr + ")(" + string(lit) + ")", nil
}

// invokeExpr turns a zero-argument function expression into an
// invocation.
func invokeExpr(fnExpr string) string {
	return "(" + fnExpr + ")()"
}
