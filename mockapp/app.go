// Package mockapp implements the embedded HTTP application that serves requests intercepted
// by the simulated environment.
//
// Routes are keyed by exact path. Registering a path a second time replaces the earlier
// handler. Routes may be added at any time, including while other requests are being served.
package mockapp

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/apptest/simenv/framework"
	"github.com/apptest/simenv/registry"

	"github.com/go-chi/chi/v5"
)

// App is an addressable collection of handlers. It implements http.Handler.
type App struct {
	routes map[string]http.Handler
	mux    atomic.Value // holds the current *chi.Mux
	logger framework.Logger
	lock   sync.Mutex
}

// New creates an App with no routes. Every request gets a 404 until routes are added.
func New(logger framework.Logger) *App {
	a := &App{
		routes: make(map[string]http.Handler),
		logger: framework.OrNullLogger(logger),
	}
	a.mux.Store(a.buildMux())
	return a
}

// Use registers handler for requests whose path is exactly path. It panics if path is not
// a literal absolute path, since that is a mistake in the calling code.
func (a *App) Use(path string, handler http.Handler) {
	if !strings.HasPrefix(path, "/") || strings.ContainsAny(path, "{}*?") {
		panic("mockapp: route path must be a literal absolute path, got " + path)
	}
	a.lock.Lock()
	a.routes[path] = handler
	a.mux.Store(a.buildMux())
	a.lock.Unlock()
	a.logger.Printf("Registered route %s", path)
}

// UseFunc is a shortcut for Use(path, http.HandlerFunc(fn)).
func (a *App) UseFunc(path string, fn func(http.ResponseWriter, *http.Request)) {
	a.Use(path, http.HandlerFunc(fn))
}

// Has reports whether a route exists for the path portion of target.
func (a *App) Has(target string) bool {
	path := registry.StripQuery(target)
	a.lock.Lock()
	_, ok := a.routes[path]
	a.lock.Unlock()
	return ok
}

// Routes returns the registered paths in sorted order.
func (a *App) Routes() []string {
	a.lock.Lock()
	ret := make([]string, 0, len(a.routes))
	for p := range a.routes {
		ret = append(ret, p)
	}
	a.lock.Unlock()
	sort.Strings(ret)
	return ret
}

func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.Load().(*chi.Mux).ServeHTTP(w, r)
}

// buildMux must be called with the lock held (or before the App is shared).
func (a *App) buildMux() *chi.Mux {
	m := chi.NewRouter()
	m.NotFound(func(w http.ResponseWriter, r *http.Request) {
		a.logger.Printf("Received request for unrecognized URL path %s", r.URL.Path)
		http.Error(w, "not found: "+r.URL.Path, http.StatusNotFound)
	})
	for path, h := range a.routes {
		m.Handle(path, h)
	}
	return m
}
