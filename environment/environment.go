// Package environment sets up a simulated application context for one test run: a window
// with bootstrap state, a mock application reachable through an intercepted network
// primitive, and build manifests served from that application. Teardown reverses every
// change made to the target scope.
package environment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/apptest/simenv/dispatch"
	"github.com/apptest/simenv/framework"
	"github.com/apptest/simenv/intercept"
	"github.com/apptest/simenv/lifecycle"
	"github.com/apptest/simenv/mockapp"
	"github.com/apptest/simenv/registry"
	"github.com/apptest/simenv/routerules"
	"github.com/apptest/simenv/servicedef"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const (
	DefaultRootID         = "__nuxt"
	DefaultBuildAssetsDir = "_nuxt"
)

// Options configures Setup. The zero value is usable.
type Options struct {
	// DOMEnvironment names the Provider that creates the window.
	DOMEnvironment   string
	ProviderSettings ldvalue.Value
	// RootID is the id of the element that the application mounts into.
	RootID string
	// BaseURL and BuildAssetsDir fall back to app.baseURL and app.buildAssetsDir in
	// RuntimeConfig.
	BaseURL        string
	BuildAssetsDir string
	// RuntimeConfig is merged over the default config of the bootstrap state.
	RuntimeConfig ldvalue.Value
	RouteRules    []routerules.Rule
	// BuildID defaults to servicedef.DefaultBuildID.
	BuildID string
	Mock    MockOptions
	// Passthrough, if set, is the window's real network primitive and also receives
	// same-origin requests that have no mock route. Otherwise the window gets
	// http.DefaultTransport for other origins only.
	Passthrough http.RoundTripper
	// Bootstrap runs last, after everything is installed. A failure aborts setup.
	Bootstrap func(ctx context.Context, env *Environment) error
	Now       func() time.Time
	Logger    framework.Logger
}

type MockOptions struct {
	IntersectionObserver bool
	IndexedDB            bool
}

// Environment is one simulated context. Everything it exposes is safe for concurrent use.
type Environment struct {
	target           lifecycle.Global
	window           *Window
	providerTeardown func() error
	snapshot         *lifecycle.Snapshot
	registry         *registry.Registry
	app              *mockapp.App
	dispatcher       *dispatch.Dispatcher
	interceptor      *intercept.Interceptor
	client           *intercept.Client
	matcher          *routerules.Matcher
	manifest         mockapp.ManifestConfig
	timestamp        int64
	logger           framework.Logger
}

// Setup builds an environment and installs its window bindings onto target. It returns
// only when everything, including Bootstrap, has completed. On any failure, whatever was
// already installed is torn down and the error is returned.
func Setup(ctx context.Context, target lifecycle.Global, opts Options) (env *Environment, err error) {
	logger := framework.OrNullLogger(opts.Logger)
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	runtimeConfig := opts.RuntimeConfig
	appConfig := runtimeConfig.GetByKey("app")
	baseURL := firstNonEmpty(opts.BaseURL, appConfig.GetByKey("baseURL").StringValue(), "/")
	windowURL, err := url.JoinPath(dispatch.DefaultOrigin, baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if !strings.HasSuffix(windowURL, "/") {
		windowURL += "/"
	}

	provider, err := lookupProvider(opts.DOMEnvironment)
	if err != nil {
		return nil, err
	}
	win, providerTeardown, err := provider(ctx, ProviderOptions{URL: windowURL, Settings: opts.ProviderSettings})
	if err != nil {
		return nil, fmt.Errorf("cannot create simulated window: %w", err)
	}
	if providerTeardown == nil {
		providerTeardown = func() error { return nil }
	}

	env = &Environment{
		target:           target,
		window:           win,
		providerTeardown: providerTeardown,
		logger:           logger,
	}
	defer func() {
		if err == nil {
			return
		}
		var cleanupErr error
		if env.snapshot != nil {
			cleanupErr = env.snapshot.Teardown(target, providerTeardown)
		} else {
			cleanupErr = providerTeardown()
		}
		err = errors.Join(err, cleanupErr)
		env = nil
	}()

	if err = win.Set(BindingBootstrapState, bootstrapState(runtimeConfig)); err != nil {
		return env, err
	}

	root := win.Document.CreateElement("div")
	root.ID = firstNonEmpty(opts.RootID, DefaultRootID)
	win.Document.AppendChild(win.Document.Body, root)

	if opts.Mock.IntersectionObserver {
		if _, exists := win.Lookup(BindingIntersectionObserver); !exists {
			if err = win.Set(BindingIntersectionObserver, NewIntersectionObserver); err != nil {
				return env, err
			}
		}
	}
	if opts.Mock.IndexedDB {
		if err = win.Set(BindingIndexedDB, NewMemoryStore()); err != nil {
			return env, err
		}
	}

	env.app = mockapp.New(framework.LoggerWithPrefix(logger, "[mock app] "))

	if _, hasFetch := win.Fetch(); !hasFetch {
		polyfill := opts.Passthrough
		if polyfill == nil {
			polyfill = http.DefaultTransport
		}
		if err = win.Set(BindingFetch, polyfill); err != nil {
			return env, err
		}
	}
	windowFetch, _ := win.Fetch()

	dispatchOptions := []dispatch.Option{
		dispatch.WithPassthrough(windowFetch),
		dispatch.WithOrigin(dispatch.DefaultOrigin),
		dispatch.WithLogger(framework.LoggerWithPrefix(logger, "[dispatch] ")),
	}
	if opts.Passthrough != nil {
		dispatchOptions = append(dispatchOptions, dispatch.WithRouteCheck(env.app.Has))
	}
	env.dispatcher = dispatch.New(env.app, dispatchOptions...)

	env.registry = registry.New()
	env.interceptor = intercept.New(env.registry, env.dispatcher, env.dispatcher.Origin(),
		framework.LoggerWithPrefix(logger, "[fetch] "))
	env.client = intercept.NewClient(env.interceptor)

	for name, value := range map[string]interface{}{
		BindingFetch:       env.interceptor,
		BindingClientFetch: env.client,
		BindingRegistry:    env.registry,
		BindingApp:         env.app,
	} {
		if err = win.Set(name, value); err != nil {
			return env, err
		}
	}

	if env.snapshot, err = lifecycle.Install(target, win); err != nil {
		return env, err
	}

	env.timestamp = now().UnixMilli()
	if env.matcher, err = routerules.Compile(opts.RouteRules); err != nil {
		return env, fmt.Errorf("cannot compile route rules: %w", err)
	}
	buildAssetsDir := firstNonEmpty(opts.BuildAssetsDir, appConfig.GetByKey("buildAssetsDir").StringValue(),
		DefaultBuildAssetsDir)
	env.manifest = mockapp.ManifestConfig{
		OutputPath: path.Join("/", buildAssetsDir, "builds"),
		BuildID:    firstNonEmpty(opts.BuildID, servicedef.DefaultBuildID),
		Timestamp:  env.timestamp,
		Matcher:    env.matcher.Export(),
	}
	if err = mockapp.RegisterManifests(env.app, env.registry, env.manifest); err != nil {
		return env, err
	}
	logger.Printf("Environment ready at %s (build %s, timestamp %d)", windowURL, env.manifest.BuildID, env.timestamp)

	if opts.Bootstrap != nil {
		if err = opts.Bootstrap(ctx, env); err != nil {
			return env, fmt.Errorf("application bootstrap failed: %w", err)
		}
	}
	return env, nil
}

// bootstrapState is the initial application state placed on the window before the
// application starts.
func bootstrapState(runtimeConfig ldvalue.Value) ldvalue.Value {
	config := ldvalue.ObjectBuild().
		Set("public", ldvalue.ObjectBuild().Build()).
		Set("app", ldvalue.ObjectBuild().Set("baseURL", ldvalue.String("/")).Build())
	if runtimeConfig.Type() == ldvalue.ObjectType {
		for _, key := range runtimeConfig.Keys() {
			config.Set(key, runtimeConfig.GetByKey(key))
		}
	}
	return ldvalue.ObjectBuild().
		Set("serverRendered", ldvalue.Bool(false)).
		Set("config", config.Build()).
		Set("data", ldvalue.ObjectBuild().Build()).
		Set("state", ldvalue.ObjectBuild().Build()).
		Build()
}

// Teardown releases the window and restores every binding of the target scope to what it
// was before Setup. It should be called once.
func (e *Environment) Teardown() error {
	e.logger.Printf("Tearing down environment")
	return e.snapshot.Teardown(e.target, e.providerTeardown)
}

func (e *Environment) Window() *Window                     { return e.window }
func (e *Environment) Registry() *registry.Registry        { return e.registry }
func (e *Environment) App() *mockapp.App                   { return e.app }
func (e *Environment) Dispatcher() *dispatch.Dispatcher    { return e.dispatcher }
func (e *Environment) Interceptor() *intercept.Interceptor { return e.interceptor }
func (e *Environment) Client() *intercept.Client           { return e.client }
func (e *Environment) Matcher() *routerules.Matcher        { return e.matcher }
func (e *Environment) Timestamp() int64                    { return e.timestamp }
func (e *Environment) Origin() string                      { return e.dispatcher.Origin() }
func (e *Environment) URL() string                         { return e.window.URL }

// ManifestPaths returns the public paths of the manifest endpoints.
func (e *Environment) ManifestPaths() []string {
	return e.manifest.ManifestPaths()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
