// Package recorder observes HTTP exchanges performed by a test suite against
// an application under test and writes them to disk as JSON fixtures. The
// AutoFixture controller binds to one application, consults the recording
// policy for every exchange, and delegates placement and naming to the
// storage package. Capture is purely observational: it never changes the
// response the test client sees.
package recorder

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/fixturelab/autofixture/pkg/fixture"
	pkglog "github.com/fixturelab/autofixture/pkg/log"
	"github.com/fixturelab/autofixture/pkg/metrics"
	"github.com/fixturelab/autofixture/pkg/storage"
)

var (
	// ErrNotInitialized reports a Record/RecordAll bracket applied before the
	// controller was bound to an application. This is a test-suite wiring
	// bug and fails the test immediately.
	ErrNotInitialized = errors.New("autofixture: recorder is not bound to an application; call Init first")

	// ErrAlreadyInitialized reports a second Init on the same controller.
	// One controller binds to exactly one application; use a second
	// controller for a second application.
	ErrAlreadyInitialized = errors.New("autofixture: recorder is already bound to an application")
)

const defaultFixtureDirName = "autofixture"

// Logger is the subset of zap's sugared logger used by the recorder.
type Logger interface {
	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
}

// App is the contract the recorder needs from the host framework: an
// identity, a data directory, and before/after request hook registration.
type App interface {
	Name() string
	InstancePath() string
	BeforeRequest(fn func(*fixture.Request))
	AfterRequest(fn func(*fixture.Request, *fixture.Response) *fixture.Response)
}

// RouteGuard checks a captured route against an external source of truth,
// such as the application's OpenAPI document. Unknown routes are reported as
// warnings, never as capture failures.
type RouteGuard interface {
	Known(method, path string) bool
}

// Option customises an AutoFixture controller.
type Option func(*AutoFixture)

// WithFixtureDirName renames the top-level fixture directory segment
// (default "autofixture").
func WithFixtureDirName(name string) Option {
	return func(a *AutoFixture) {
		if name != "" {
			a.dirName = name
		}
	}
}

// WithFixtureRoot overrides the parent directory of the fixture tree. By
// default the application's instance path is used.
func WithFixtureRoot(path string) Option {
	return func(a *AutoFixture) {
		a.rootPath = path
	}
}

// WithExplicitRecording switches the default policy: exchanges are only
// recorded for test methods wrapped in a Record or RecordAll bracket.
func WithExplicitRecording() Option {
	return func(a *AutoFixture) {
		a.explicitOnly = true
	}
}

// WithLayout selects the storage layout strategy (default
// storage.RequestMethodLayout).
func WithLayout(layout storage.Layout) Option {
	return func(a *AutoFixture) {
		if layout != nil {
			a.layout = layout
		}
	}
}

// WithMountPrefix strips the given prefix from route paths before they are
// normalized into directory tokens.
func WithMountPrefix(prefix string) Option {
	return func(a *AutoFixture) {
		a.mountPrefix = prefix
	}
}

// WithResetOnInit removes any existing fixture tree when the controller is
// bound, restoring a clean slate per test run. Off by default so that the
// gap-filling name resolution can operate across runs.
func WithResetOnInit() Option {
	return func(a *AutoFixture) {
		a.resetOnInit = true
	}
}

// WithLogger overrides the shared library logger.
func WithLogger(logger Logger) Option {
	return func(a *AutoFixture) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics wires capture counters into the given registry.
func WithMetrics(registry *metrics.Registry) Option {
	return func(a *AutoFixture) {
		a.metrics = registry
	}
}

// WithRouteGuard enables route checking for captured exchanges.
func WithRouteGuard(guard RouteGuard) Option {
	return func(a *AutoFixture) {
		a.guard = guard
	}
}

// AutoFixture coordinates capture around the host framework's
// request/response hooks. Construct it with New, bind it with Init, and use
// Record/RecordAll inside test methods to direct the policy.
//
// The controller assumes sequential test execution; concurrent tests against
// one controller are not supported.
type AutoFixture struct {
	dirName      string
	rootPath     string
	explicitOnly bool
	layout       storage.Layout
	mountPrefix  string
	resetOnInit  bool
	logger       Logger
	metrics      *metrics.Registry
	guard        RouteGuard

	mu       sync.Mutex
	bound    bool
	appName  string
	store    *storage.FileStorage
	policy   *policy
	inflight string // exchange id assigned at the before-hook
}

// New builds an unbound controller.
func New(opts ...Option) *AutoFixture {
	a := &AutoFixture{
		dirName: defaultFixtureDirName,
		layout:  storage.RequestMethodLayout{},
		logger:  pkglog.Logger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Init binds the controller to exactly one application and registers its
// request/response hooks. A second Init returns ErrAlreadyInitialized.
func (a *AutoFixture) Init(app App) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.bound {
		return ErrAlreadyInitialized
	}

	root := a.rootPath
	if root == "" {
		root = app.InstancePath()
	}

	a.appName = app.Name()
	a.store = storage.NewFileStorage(a.layout, a.dirName, root)
	a.policy = &policy{explicitOnly: a.explicitOnly}

	if a.resetOnInit {
		if err := a.store.Reset(); err != nil {
			return fmt.Errorf("init autofixture: %w", err)
		}
	}

	app.BeforeRequest(a.beforeRequest)
	app.AfterRequest(a.afterRequest)

	a.bound = true
	a.logger.Infow("autofixture bound",
		"app", a.appName,
		"fixtureDir", a.store.FixtureDirectory(),
		"explicitRecording", a.explicitOnly,
	)
	return nil
}

// FixtureDirectory returns the root of the generated fixture tree. It is
// empty until the controller is bound.
func (a *AutoFixture) FixtureDirectory() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.store == nil {
		return ""
	}
	return a.store.FixtureDirectory()
}

// Record directs the policy to capture the single exchange performed by the
// current test method, under the given base names. Empty names fall back to
// the defaults. The directive is always cleared when the test finishes,
// however it ends.
//
// Using Record before Init fails the test immediately: it indicates a
// miswired suite, not a transient capture failure.
func (a *AutoFixture) Record(tb testing.TB, requestName, responseName string) {
	tb.Helper()
	if requestName == "" && responseName == "" {
		a.logger.Warnw("no fixture names supplied to Record; falling back to default names", "test", tb.Name())
	}
	a.pushDirective(tb, &directive{
		testID: tb.Name(),
		names:  fixture.Names{Request: requestName, Response: responseName},
	})
}

// RecordAll directs the policy to capture every exchange performed by the
// current test method, with default names. Same lifecycle and Init
// requirements as Record.
func (a *AutoFixture) RecordAll(tb testing.TB) {
	tb.Helper()
	a.pushDirective(tb, &directive{testID: tb.Name(), allExchanges: true})
}

func (a *AutoFixture) pushDirective(tb testing.TB, d *directive) {
	tb.Helper()

	a.mu.Lock()
	if !a.bound {
		a.mu.Unlock()
		tb.Fatalf("%v", ErrNotInitialized)
		return
	}
	err := a.policy.enterTest(d)
	a.mu.Unlock()

	if err != nil {
		tb.Fatalf("autofixture: %v", err)
		return
	}

	tb.Cleanup(func() {
		a.mu.Lock()
		a.policy.exitTest()
		a.mu.Unlock()
	})
}

// beforeRequest marks the start of an exchange. Pairing with the matching
// afterRequest call is by invocation order; the synchronous test client
// completes one exchange before starting the next.
func (a *AutoFixture) beforeRequest(req *fixture.Request) {
	a.mu.Lock()
	a.inflight = uuid.NewString()
	id := a.inflight
	a.mu.Unlock()

	a.logger.Debugw("exchange started", "exchange", id, "method", req.Method, "path", req.Path)
}

// afterRequest finalizes the exchange. Every failure on the capture path is
// caught here and logged; the response always passes through untouched.
func (a *AutoFixture) afterRequest(req *fixture.Request, resp *fixture.Response) *fixture.Response {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Errorw("capture panicked", "app", a.appName, "panic", r)
			a.metrics.CaptureFailed(a.appName)
		}
	}()

	a.mu.Lock()
	id := a.inflight
	dec, record := a.policy.decide()
	a.mu.Unlock()

	if !record {
		a.logger.Debugw("exchange skipped by policy", "exchange", id, "method", req.Method, "path", req.Path)
		a.metrics.ExchangeSkipped(a.appName)
		return resp
	}

	a.capture(id, dec, req, resp)
	return resp
}

func (a *AutoFixture) capture(id string, dec decision, req *fixture.Request, resp *fixture.Response) {
	if a.guard != nil && !a.guard.Known(req.Method, req.Path) {
		a.logger.Warnw("captured route is absent from the OpenAPI document",
			"exchange", id, "method", req.Method, "path", req.Path)
	}

	ex, err := fixture.Build(a.appName, dec.testID, req, resp, dec.names, a.mountPrefix)
	if err != nil {
		// Per-side condition: the affected side is omitted, the rest of the
		// exchange is still captured.
		a.logger.Warnw("body omitted from fixture", "exchange", id, "reason", err)
	}

	if !ex.HasRequest && !ex.HasResponse {
		a.logger.Debugw("nothing to persist for exchange", "exchange", id, "target", ex.String())
		a.metrics.ExchangeSkipped(a.appName)
		return
	}

	written, err := a.store.Store(ex)
	if err != nil {
		a.logger.Errorw("fixture capture failed", "exchange", id, "target", ex.String(), "error", err)
		a.metrics.CaptureFailed(a.appName)
		return
	}

	a.logger.Infow("exchange recorded", "exchange", id, "target", ex.String(), "files", written)
	a.metrics.ExchangeRecorded(a.appName)
}
