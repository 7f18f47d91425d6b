// Package registry holds the set of public paths that the environment serves locally.
//
// A registered path /P is served by the mock application under its internal form /_P
// (see Internal). The registry only grows during the lifetime of one environment.
package registry

import (
	"errors"
	"strings"
	"sync"
)

// Marker is the segment prefix that distinguishes internal served routes from public paths.
const Marker = "_"

var (
	// ErrInvalidPath is returned for a path that is empty or not rooted at "/".
	ErrInvalidPath = errors.New("registry: path must be absolute")
	// ErrReservedPath is returned when a path collides with the internal form of another
	// registered path, in either direction.
	ErrReservedPath = errors.New("registry: path collides with an internal route")
)

// Registry is an append-only set of paths. It is safe for concurrent use.
type Registry struct {
	// mu serializes writers so the collision check and the insert are atomic.
	mu sync.Mutex
	// paths maps a registered path to struct{}.
	paths sync.Map
	count int
}

func New() *Registry {
	return &Registry{}
}

// Internal returns the internal served form of a public path: "/P" becomes "/_P".
func Internal(path string) string {
	return "/" + Marker + strings.TrimPrefix(path, "/")
}

// Register adds path to the set. Registering a path that is already present is a no-op.
func (r *Registry) Register(path string) error {
	if path == "" || !strings.HasPrefix(path, "/") {
		return ErrInvalidPath
	}
	if r.has(path) {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.has(path) {
		return nil
	}
	if r.has(Internal(path)) {
		return ErrReservedPath
	}
	if strings.HasPrefix(path, "/"+Marker) && r.has("/"+strings.TrimPrefix(path, "/"+Marker)) {
		return ErrReservedPath
	}

	r.paths.Store(path, struct{}{})
	r.count++
	return nil
}

// IsRegistered reports whether the portion of path before any query string is registered,
// falling back to an exact match on the whole input.
func (r *Registry) IsRegistered(path string) bool {
	if r.has(StripQuery(path)) {
		return true
	}
	return r.has(path)
}

// Paths returns a snapshot of the registered paths (order is unspecified).
func (r *Registry) Paths() []string {
	ret := make([]string, 0, r.Len())
	r.paths.Range(func(key, _ interface{}) bool {
		ret = append(ret, key.(string))
		return true
	})
	return ret
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (r *Registry) has(path string) bool {
	_, ok := r.paths.Load(path)
	return ok
}

// StripQuery returns the part of target before the first "?".
func StripQuery(target string) string {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i]
	}
	return target
}
