// Package chromium drives a Chromium-family browser over the DevTools
// protocol. Documents parse through DOMParser so page scripts stay
// inert unless a case asks for scripting, and every network request the
// markup triggers is intercepted, blocked and recorded.
package chromium

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/EmilStenstrom/justhtml-html5lib-tests-bench/backend"
)

// DefaultTimeout bounds a single evaluation in the page.
const DefaultTimeout = 10 * time.Second

// seedDocument is the page loaded once at startup. Evaluations run in
// its realm; script-capable cases replace it and put it back.
const seedDocument = `<!doctype html><meta charset="utf-8"><title>html5lib-tests-bench</title>`

// Option configures a Backend.
type Option func(*Backend)

// WithExecPath points the launcher at a specific browser binary.
func WithExecPath(path string) Option {
	return func(b *Backend) { b.execPath = path }
}

// WithHeadless toggles headless operation. Headless is the default.
func WithHeadless(headless bool) Option {
	return func(b *Backend) { b.headless = headless }
}

// WithRemoteURL attaches to an already-running browser over the
// DevTools protocol instead of launching one.
func WithRemoteURL(url string) Option {
	return func(b *Backend) { b.remoteURL = url }
}

// WithTimeout overrides the per-evaluation deadline.
func WithTimeout(d time.Duration) Option {
	return func(b *Backend) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// Backend runs evaluations in a Chromium tab.
type Backend struct {
	execPath  string
	headless  bool
	remoteURL string
	timeout   time.Duration

	scripts *scriptSet

	allocCancel context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc
	version     string

	mu       sync.Mutex
	requests []string
}

var _ backend.Backend = (*Backend)(nil)

// New composes and syntax-checks the serializer scripts, so a broken
// embedded asset fails before any browser launches.
func New(opts ...Option) (*Backend, error) {
	b := &Backend{headless: true, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(b)
	}
	scripts, err := composeScripts()
	if err != nil {
		return nil, err
	}
	b.scripts = scripts
	return b, nil
}

func (b *Backend) Name() string { return "chromium" }

// Version reports the browser product string, e.g. "Chrome/131.0.6778.85".
// It is empty until Start succeeds.
func (b *Backend) Version() string { return b.version }

// Start launches (or attaches to) the browser, installs the request
// interceptor and loads the seed page.
func (b *Backend) Start(ctx context.Context) error {
	var allocCtx context.Context
	if b.remoteURL != "" {
		allocCtx, b.allocCancel = chromedp.NewRemoteAllocator(ctx, b.remoteURL)
	} else {
		opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
		if !b.headless {
			opts = append(opts, chromedp.Flag("headless", false))
		}
		if b.execPath != "" {
			opts = append(opts, chromedp.ExecPath(b.execPath))
		}
		allocCtx, b.allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	}

	b.browserCtx, b.browserStop = chromedp.NewContext(allocCtx)
	b.listen()

	err := b.run(ctx,
		fetch.Enable(),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, product, _, _, _, err := browser.GetVersion().Do(ctx)
			if err != nil {
				return err
			}
			b.version = product
			return nil
		}),
		setContent(seedDocument),
	)
	if err != nil {
		return backend.NewError(backend.KindLaunch, err)
	}
	log.Debug().Str("backend", b.Name()).Str("version", b.version).Msg("browser started")
	return nil
}

// Close shuts the browser down. Safe after a failed Start.
func (b *Backend) Close() error {
	var err error
	if b.browserCtx != nil {
		err = chromedp.Cancel(b.browserCtx)
	}
	if b.browserStop != nil {
		b.browserStop()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	return err
}

// ParseDocument evaluates markup as a complete document. With scripting
// off the markup goes through DOMParser inside the seed page; with
// scripting on it becomes the live document, runs its scripts, is
// serialized in place and the seed page is restored.
func (b *Backend) ParseDocument(ctx context.Context, markup string, scripting bool) (*backend.Result, error) {
	if b.browserCtx == nil {
		return nil, backend.Errorf(backend.KindEval, "backend not started")
	}
	b.resetRequests()

	var tree string
	if scripting {
		err := b.run(ctx,
			setContent(markup),
			chromedp.Evaluate(invokeExpr(b.scripts.serializeCurrent), &tree),
			setContent(seedDocument),
		)
		if err != nil {
			return nil, evalErr(err)
		}
	} else {
		expr, err := callExpr(b.scripts.parseDocument, markup)
		if err != nil {
			return nil, err
		}
		if err := b.run(ctx, chromedp.Evaluate(expr, &tree)); err != nil {
			return nil, evalErr(err)
		}
	}
	return &backend.Result{Tree: tree, ExternalRequests: b.takeRequests()}, nil
}

// ParseFragment evaluates markup inside the named context element via
// innerHTML on a detached element in the seed page.
func (b *Backend) ParseFragment(ctx context.Context, contextName, markup string) (*backend.Result, error) {
	if b.browserCtx == nil {
		return nil, backend.Errorf(backend.KindEval, "backend not started")
	}
	b.resetRequests()

	expr, err := callExpr(b.scripts.parseFragment, fragmentArgs{Context: contextName, HTML: markup})
	if err != nil {
		return nil, err
	}
	var tree string
	if err := b.run(ctx, chromedp.Evaluate(expr, &tree)); err != nil {
		return nil, evalErr(err)
	}
	return &backend.Result{Tree: tree, ExternalRequests: b.takeRequests()}, nil
}

// fragmentArgs is the argument shape serializeFragment expects.
type fragmentArgs struct {
	Context string `json:"context"`
	HTML    string `json:"html"`
}

// run executes actions against the tab under the per-evaluation
// deadline, honoring cancellation of the caller's context.
func (b *Backend) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(b.browserCtx, b.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// listen installs the fetch interceptor: every http(s) request is
// recorded and refused, anything else continues untouched. Handlers
// must not block the event loop, so the protocol calls run off it.
func (b *Backend) listen() {
	chromedp.ListenTarget(b.browserCtx, func(ev any) {
		req, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			ctx := cdp.WithExecutor(b.browserCtx, chromedp.FromContext(b.browserCtx).Target)
			url := req.Request.URL
			if isExternal(url) {
				b.record(url)
				if err := fetch.FailRequest(req.RequestID, network.ErrorReasonBlockedByClient).Do(ctx); err != nil {
					log.Debug().Err(err).Str("url", url).Msg("failing intercepted request")
				}
				return
			}
			if err := fetch.ContinueRequest(req.RequestID).Do(ctx); err != nil {
				log.Debug().Err(err).Str("url", url).Msg("continuing intercepted request")
			}
		}()
	})
}

// isExternal reports whether a URL leaves the page: the test pages
// never have an http(s) origin, so any such scheme is outbound.
func isExternal(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func (b *Backend) record(url string) {
	b.mu.Lock()
	b.requests = append(b.requests, url)
	b.mu.Unlock()
}

func (b *Backend) resetRequests() {
	b.mu.Lock()
	b.requests = nil
	b.mu.Unlock()
}

func (b *Backend) takeRequests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	reqs := b.requests
	b.requests = nil
	return reqs
}

// setContent replaces the main frame's document.
func setContent(html string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
	})
}

// evalErr classifies a failed evaluation, distinguishing deadline
// expiry from everything else.
func evalErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return backend.NewError(backend.KindTimeout, err)
	}
	return backend.NewError(backend.KindEval, err)
}
