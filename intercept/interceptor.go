// Package intercept provides the network entry point installed on the simulated global. It
// rewrites calls to registered public paths to their internal served form before handing
// them to the next transport, which is normally a dispatch.Dispatcher.
package intercept

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/apptest/simenv/framework"
	"github.com/apptest/simenv/registry"
)

// ErrUnsupportedTarget is returned by Fetch for a target that is neither a string nor an
// *http.Request.
var ErrUnsupportedTarget = errors.New("intercept: fetch target must be a string or *http.Request")

// FetchOptions carries the optional parts of a Fetch call.
type FetchOptions struct {
	Method  string
	Headers http.Header
	Body    []byte
}

// Interceptor decides per call whether to rewrite the target path. It holds no state of its
// own beyond the registry, so it is safe for concurrent use.
type Interceptor struct {
	registry *registry.Registry
	next     http.RoundTripper
	origin   string
	logger   framework.Logger
}

// New creates an Interceptor that consults reg and delegates to next. Relative string
// targets are resolved against origin before being sent.
func New(reg *registry.Registry, next http.RoundTripper, origin string, logger framework.Logger) *Interceptor {
	return &Interceptor{
		registry: reg,
		next:     next,
		origin:   strings.TrimSuffix(origin, "/"),
		logger:   framework.OrNullLogger(logger),
	}
}

// Rewrite returns the target to send for a string target, and whether it was rewritten.
// The query string takes no part in the registry lookup but is preserved in the result.
func (i *Interceptor) Rewrite(target string) (string, bool) {
	u, err := url.Parse(target)
	if err != nil || (u.Host != "" && !i.sameOrigin(u)) {
		return target, false
	}
	if !i.registry.IsRegistered(u.Path) && !i.registry.IsRegistered(target) {
		return target, false
	}
	u.Path = registry.Internal(u.Path)
	u.RawPath = ""
	return u.String(), true
}

// Fetch issues a call. target is either a string (a path, or an absolute URL) or an
// *http.Request; only string targets are eligible for rewriting, and opts is ignored for
// *http.Request targets.
func (i *Interceptor) Fetch(ctx context.Context, target interface{}, opts *FetchOptions) (*http.Response, error) {
	switch t := target.(type) {
	case string:
		return i.fetchString(ctx, t, opts)
	case *http.Request:
		return i.next.RoundTrip(t.WithContext(ctx))
	default:
		return nil, fmt.Errorf("%w (got %T)", ErrUnsupportedTarget, target)
	}
}

func (i *Interceptor) fetchString(ctx context.Context, target string, opts *FetchOptions) (*http.Response, error) {
	if opts == nil {
		opts = &FetchOptions{}
	}
	if rewritten, ok := i.Rewrite(target); ok {
		i.logger.Printf("Rewriting %s to %s", target, rewritten)
		target = rewritten
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	fullURL := target
	if strings.HasPrefix(target, "/") {
		fullURL = i.origin + target
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(opts.Body))
	if err != nil {
		return nil, err
	}
	for k, vv := range opts.Headers {
		req.Header[k] = append([]string(nil), vv...)
	}
	return i.next.RoundTrip(req)
}

func (i *Interceptor) sameOrigin(u *url.URL) bool {
	o, err := url.Parse(i.origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, o.Scheme) && strings.EqualFold(u.Host, o.Host)
}

// RoundTrip implements http.RoundTripper. Structured requests are never rewritten; they are
// passed to the next transport unmodified.
func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	return i.next.RoundTrip(req)
}
