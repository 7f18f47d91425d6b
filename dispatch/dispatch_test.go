package dispatch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/apptest/simenv/framework"
	"github.com/apptest/simenv/mockapp"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func echoApp() *mockapp.App {
	app := mockapp.New(nil)
	app.UseFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Method", r.Method)
		w.Header().Set("X-Query", r.URL.RawQuery)
		w.Header().Set("X-Custom", r.Header.Get("X-Custom"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(body)
	})
	app.UseFunc("/json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"test","n":3}`))
	})
	app.UseFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	})
	return app
}

func TestInvokeReproducesStatusHeadersAndBody(t *testing.T) {
	d := New(echoApp())
	resp, err := d.Invoke(context.Background(), Call{
		Method:  "POST",
		Path:    "/echo?a=1",
		Headers: http.Header{"X-Custom": []string{"v"}},
		Body:    []byte("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "POST", resp.Headers.Get("X-Method"))
	assert.Equal(t, "a=1", resp.Headers.Get("X-Query"))
	assert.Equal(t, "v", resp.Headers.Get("X-Custom"))
	assert.Equal(t, "hello", resp.Text())
}

func TestInvokeDefaultsToGET(t *testing.T) {
	d := New(echoApp())
	resp, err := d.Invoke(context.Background(), Call{Path: "/echo"})
	require.NoError(t, err)
	assert.Equal(t, "GET", resp.Headers.Get("X-Method"))
}

func TestInvokeDecodesJSON(t *testing.T) {
	d := New(echoApp())
	resp, err := d.Invoke(context.Background(), Call{Path: "/json"})
	require.NoError(t, err)

	var out struct {
		ID string `json:"id"`
		N  int    `json:"n"`
	}
	require.NoError(t, resp.JSON(&out))
	assert.Equal(t, "test", out.ID)
	assert.Equal(t, 3, out.N)
}

func TestInvokeUnmatchedPathIsNotFound(t *testing.T) {
	d := New(echoApp())
	resp, err := d.Invoke(context.Background(), Call{Path: "/missing"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestInvokeHandlerFaultIsErrorResponse(t *testing.T) {
	var logger framework.CapturingLogger
	d := New(echoApp(), WithLogger(&logger))
	resp, err := d.Invoke(context.Background(), Call{Path: "/boom"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Contains(t, resp.Text(), "kaboom")
	require.NotEmpty(t, logger.Output())
	assert.Contains(t, logger.Output()[0].Message, "/boom")
}

func TestInvokeWithCancelledContext(t *testing.T) {
	d := New(echoApp())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Invoke(ctx, Call{Path: "/echo"})
	assert.Equal(t, context.Canceled, err)
}

func TestRoundTripServesLocally(t *testing.T) {
	d := New(echoApp())
	client := d.Client()

	resp, err := client.Post(DefaultOrigin+"/echo?z=9", "text/plain", strings.NewReader("body"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "z=9", resp.Header.Get("X-Query"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "body", string(data))
}

func TestRoundTripRelativePath(t *testing.T) {
	d := New(echoApp())
	req, err := http.NewRequest("GET", "/json", nil)
	require.NoError(t, err)
	resp, err := d.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, int64(len(`{"id":"test","n":3}`)), resp.ContentLength)
}

func TestRoundTripOtherOriginUsesPassthrough(t *testing.T) {
	var seen []string
	passthrough := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		seen = append(seen, r.URL.String())
		return &http.Response{StatusCode: 299, Body: http.NoBody, Request: r}, nil
	})
	d := New(echoApp(), WithPassthrough(passthrough))

	req, _ := http.NewRequest("GET", "https://example.com/echo", nil)
	resp, err := d.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, 299, resp.StatusCode)
	assert.Equal(t, []string{"https://example.com/echo"}, seen)
}

func TestRoundTripOtherOriginWithoutPassthrough(t *testing.T) {
	d := New(echoApp())
	req, _ := http.NewRequest("GET", "https://example.com/echo", nil)
	_, err := d.RoundTrip(req)
	assert.True(t, errors.Is(err, ErrNoPassthrough))
}

func TestRoundTripFallsBackToPassthroughWhenNoRoute(t *testing.T) {
	app := echoApp()
	handler, requests := httphelpers.RecordingHandler(httphelpers.HandlerWithStatus(418))
	passthrough := New(handler, WithOrigin(DefaultOrigin))
	d := New(app, WithPassthrough(passthrough), WithRouteCheck(app.Has))

	resp, err := d.Client().Get(DefaultOrigin + "/elsewhere")
	require.NoError(t, err)
	assert.Equal(t, 418, resp.StatusCode)
	require.Len(t, requests, 1)
	info := <-requests
	assert.Equal(t, "/elsewhere", info.Request.URL.Path)

	resp, err = d.Client().Get(DefaultOrigin + "/json")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Len(t, requests, 0)
}

func TestWithOrigin(t *testing.T) {
	d := New(echoApp(), WithOrigin("http://app.test:8080"))
	assert.Equal(t, "http://app.test:8080", d.Origin())

	resp, err := d.Client().Get("http://app.test:8080/json")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	_, err = d.Client().Get(DefaultOrigin + "/json")
	assert.Error(t, err)
}
