package chromium

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dop251/goja"

	"github.com/EmilStenstrom/justhtml-html5lib-tests-bench/backend"
)

func TestNew_Defaults(t *testing.T) {
	b, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if !b.headless {
		t.Error("Expected headless by default")
	}
	if b.timeout != DefaultTimeout {
		t.Errorf("Expected timeout %v, got %v", DefaultTimeout, b.timeout)
	}
	if b.scripts == nil {
		t.Fatal("Expected composed scripts")
	}
	if b.Name() != "chromium" {
		t.Errorf("Expected name chromium, got %q", b.Name())
	}
	if b.Version() != "" {
		t.Errorf("Expected empty version before start, got %q", b.Version())
	}
}

func TestNew_Options(t *testing.T) {
	b, err := New(
		WithExecPath("/usr/bin/chromium"),
		WithHeadless(false),
		WithRemoteURL("ws://localhost:9222"),
		WithTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if b.execPath != "/usr/bin/chromium" {
		t.Errorf("Expected exec path to be set, got %q", b.execPath)
	}
	if b.headless {
		t.Error("Expected headless off")
	}
	if b.remoteURL != "ws://localhost:9222" {
		t.Errorf("Expected remote URL to be set, got %q", b.remoteURL)
	}
	if b.timeout != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %v", b.timeout)
	}
}

func TestNew_ZeroTimeoutKeepsDefault(t *testing.T) {
	b, err := New(WithTimeout(0))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if b.timeout != DefaultTimeout {
		t.Errorf("Expected default timeout, got %v", b.timeout)
	}
}

func TestComposeScripts_BuildsExpressions(t *testing.T) {
	set, err := composeScripts()
	if err != nil {
		t.Fatalf("composeScripts() error: %v", err)
	}
	if !strings.Contains(set.parseDocument, "DOMParser") {
		t.Error("Expected parseDocument to route through DOMParser")
	}
	if !strings.Contains(set.serializeCurrent, "document") {
		t.Error("Expected serializeCurrent to reference the live document")
	}
	if !strings.Contains(set.parseFragment, "createElementNS") {
		t.Error("Expected parseFragment to handle foreign context elements")
	}
}

func TestComposedExpressions_Parse(t *testing.T) {
	set, err := composeScripts()
	if err != nil {
		t.Fatalf("composeScripts() error: %v", err)
	}

	docExpr, err := callExpr(set.parseDocument, "<p>One</p>")
	if err != nil {
		t.Fatalf("callExpr() error: %v", err)
	}
	fragExpr, err := callExpr(set.parseFragment, fragmentArgs{Context: "svg path", HTML: "<circle/>"})
	if err != nil {
		t.Fatalf("callExpr() error: %v", err)
	}

	for name, src := range map[string]string{
		"document": docExpr,
		"live":     invokeExpr(set.serializeCurrent),
		"fragment": fragExpr,
	} {
		if _, err := goja.Compile(name, src, true); err != nil {
			t.Errorf("Expected %s expression to parse, got %v", name, err)
		}
	}
}

func TestCallExpr_EscapesMarkup(t *testing.T) {
	expr, err := callExpr("(x) => x", `</script><b a="1">`)
	if err != nil {
		t.Fatalf("callExpr() error: %v", err)
	}
	if strings.Contains(expr, "</script>") {
		t.Error("Expected markup to be escaped inside the expression")
	}
	if !strings.Contains(expr, "u003c/script") {
		t.Errorf("Expected unicode-escaped markup, got %q", expr)
	}
	if _, err := goja.Compile("call", expr, true); err != nil {
		t.Errorf("Expected escaped expression to parse, got %v", err)
	}
}

func TestCallExpr_FragmentArgNames(t *testing.T) {
	expr, err := callExpr("(args) => args", fragmentArgs{Context: "td", HTML: "<a>"})
	if err != nil {
		t.Fatalf("callExpr() error: %v", err)
	}
	if !strings.Contains(expr, `"context":"td"`) {
		t.Errorf("Expected context key in argument literal, got %q", expr)
	}
	if !strings.Contains(expr, `"html":`) {
		t.Errorf("Expected html key in argument literal, got %q", expr)
	}
}

func TestIsExternal(t *testing.T) {
	external := []string{
		"http://example.com/x.js",
		"https://example.com/style.css",
	}
	for _, url := range external {
		if !isExternal(url) {
			t.Errorf("Expected %q to be external", url)
		}
	}
	internal := []string{
		"about:blank",
		"data:text/plain,hi",
		"blob:null/4a8f",
		"chrome://version",
	}
	for _, url := range internal {
		if isExternal(url) {
			t.Errorf("Expected %q not to be external", url)
		}
	}
}

func TestEvalErr_Classification(t *testing.T) {
	if kind := backend.KindOf(evalErr(context.DeadlineExceeded)); kind != backend.KindTimeout {
		t.Errorf("Expected timeout kind, got %q", kind)
	}
	if kind := backend.KindOf(evalErr(errors.New("boom"))); kind != backend.KindEval {
		t.Errorf("Expected eval kind, got %q", kind)
	}
}

func TestParseDocument_NotStarted(t *testing.T) {
	b, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := b.ParseDocument(context.Background(), "<p>", false); err == nil {
		t.Fatal("Expected error before Start")
	}
	if _, err := b.ParseFragment(context.Background(), "div", "<p>"); err == nil {
		t.Fatal("Expected error before Start")
	}
}

func TestRequestRecording(t *testing.T) {
	b, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	b.record("http://example.com/a.js")
	b.record("https://example.com/b.css")

	got := b.takeRequests()
	if len(got) != 2 || got[0] != "http://example.com/a.js" || got[1] != "https://example.com/b.css" {
		t.Errorf("Unexpected recorded requests: %v", got)
	}
	if again := b.takeRequests(); len(again) != 0 {
		t.Errorf("Expected requests drained, got %v", again)
	}

	b.record("http://example.com/c.png")
	b.resetRequests()
	if got := b.takeRequests(); len(got) != 0 {
		t.Errorf("Expected reset to clear requests, got %v", got)
	}
}
