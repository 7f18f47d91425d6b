// Package dispatch serves HTTP calls by invoking an http.Handler directly in-process, without
// opening a socket, and adapts the result to the http.RoundTripper contract so it can stand in
// wherever a real network transport is expected.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"runtime/debug"
	"strings"

	"github.com/apptest/simenv/framework"
)

// DefaultOrigin is the origin of the simulated environment when none is configured.
const DefaultOrigin = "http://localhost:3000"

// ErrNoPassthrough is returned for a request to another origin when no passthrough transport
// was configured.
var ErrNoPassthrough = errors.New("dispatch: request is not local and no passthrough transport is configured")

// Call is a logical HTTP call. Path may include a query string.
type Call struct {
	Method  string
	Path    string
	Headers http.Header
	Body    []byte
}

// Response is the result of a local call.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// JSON decodes the body into out.
func (r *Response) JSON(out interface{}) error {
	return json.Unmarshal(r.Body, out)
}

// Dispatcher invokes a handler in-process. It is safe for concurrent use.
type Dispatcher struct {
	handler     http.Handler
	passthrough http.RoundTripper
	origin      *url.URL
	hasRoute    func(path string) bool
	logger      framework.Logger
}

type Option func(*Dispatcher)

// WithPassthrough sets the transport used for requests that cannot be served locally.
func WithPassthrough(rt http.RoundTripper) Option {
	return func(d *Dispatcher) { d.passthrough = rt }
}

// WithOrigin sets the origin that is considered local. Absolute URLs with any other scheme
// or host go to the passthrough transport.
func WithOrigin(origin string) Option {
	return func(d *Dispatcher) {
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			d.origin = u
		}
	}
}

// WithRouteCheck tells the Dispatcher which paths have a local route. When it reports false
// and a passthrough transport is configured, the request is delegated to the passthrough
// instead of producing a local 404.
func WithRouteCheck(hasRoute func(path string) bool) Option {
	return func(d *Dispatcher) { d.hasRoute = hasRoute }
}

func WithLogger(logger framework.Logger) Option {
	return func(d *Dispatcher) { d.logger = framework.OrNullLogger(logger) }
}

// New creates a Dispatcher for handler.
func New(handler http.Handler, options ...Option) *Dispatcher {
	origin, _ := url.Parse(DefaultOrigin)
	d := &Dispatcher{
		handler: handler,
		origin:  origin,
		logger:  framework.NullLogger(),
	}
	for _, o := range options {
		o(d)
	}
	return d
}

// Origin returns the local origin.
func (d *Dispatcher) Origin() string {
	return d.origin.String()
}

// Invoke runs the handler for call and returns its response. An unmatched path produces
// whatever "not found" response the handler gives; a panic in the handler produces a 500
// response. Invoke only returns an error if ctx is already done or the call is malformed.
func (d *Dispatcher) Invoke(ctx context.Context, call Call) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	method := call.Method
	if method == "" {
		method = http.MethodGet
	}
	target, err := d.origin.Parse(call.Path)
	if err != nil {
		return nil, fmt.Errorf("dispatch: invalid path %q: %w", call.Path, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(call.Body))
	if err != nil {
		return nil, err
	}
	for k, vv := range call.Headers {
		req.Header[k] = append([]string(nil), vv...)
	}
	req.RemoteAddr = "127.0.0.1:0"
	req.RequestURI = target.RequestURI()
	return d.serve(req), nil
}

func (d *Dispatcher) serve(req *http.Request) (resp *Response) {
	w := httptest.NewRecorder()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Printf("Handler for %s %s failed: %v\n%s", req.Method, req.URL.Path, r, debug.Stack())
			resp = &Response{
				Status:  http.StatusInternalServerError,
				Headers: http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
				Body:    []byte(fmt.Sprintf("handler fault: %v", r)),
			}
		}
	}()
	d.handler.ServeHTTP(w, req)
	result := w.Result()
	body, _ := io.ReadAll(result.Body)
	return &Response{Status: result.StatusCode, Headers: result.Header, Body: body}
}

// RoundTrip implements http.RoundTripper. Relative and same-origin requests are served
// locally if a route exists for them; anything else goes to the passthrough transport.
func (d *Dispatcher) RoundTrip(req *http.Request) (*http.Response, error) {
	if !d.isLocal(req.URL) {
		if d.passthrough == nil {
			return nil, ErrNoPassthrough
		}
		return d.passthrough.RoundTrip(req)
	}
	if d.passthrough != nil && d.hasRoute != nil && !d.hasRoute(req.URL.Path) {
		d.logger.Printf("No local route for %s, passing through", req.URL.Path)
		return d.passthrough.RoundTrip(d.absolute(req))
	}

	var body []byte
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		body = data
	}
	resp, err := d.Invoke(req.Context(), Call{
		Method:  req.Method,
		Path:    req.URL.RequestURI(),
		Headers: req.Header,
		Body:    body,
	})
	if err != nil {
		return nil, err
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", resp.Status, http.StatusText(resp.Status)),
		StatusCode:    resp.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        resp.Headers,
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Request:       req,
	}, nil
}

// Client returns an http.Client that sends every request through the Dispatcher.
func (d *Dispatcher) Client() *http.Client {
	return &http.Client{Transport: d}
}

func (d *Dispatcher) isLocal(u *url.URL) bool {
	if u.Host == "" {
		return true
	}
	return strings.EqualFold(u.Scheme, d.origin.Scheme) && strings.EqualFold(u.Host, d.origin.Host)
}

// absolute returns req with its URL resolved against the origin, so a passthrough transport
// receives a complete URL.
func (d *Dispatcher) absolute(req *http.Request) *http.Request {
	if req.URL.Host != "" {
		return req
	}
	r := req.Clone(req.Context())
	r.URL = d.origin.ResolveReference(req.URL)
	r.Host = r.URL.Host
	return r
}
