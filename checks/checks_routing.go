package checks

import (
	"context"
	"io"
	"net/http"

	"github.com/apptest/simenv/dispatch"
	"github.com/apptest/simenv/registry"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const probePath = "/__simenv_probe/data.json"

func DoRegistryChecks(t *T) {
	t.Run("query", func(t *T) {
		reg := t.Env().Registry()
		require.NoError(t, reg.Register(probePath))
		assert.True(t, reg.IsRegistered(probePath+"?a=1&b=2"))
		assert.False(t, reg.IsRegistered(probePath+"x?a=1"))
	})

	t.Run("internal twin is reserved", func(t *T) {
		reg := t.Env().Registry()
		require.NoError(t, reg.Register(probePath))
		assert.ErrorIs(t, reg.Register(registry.Internal(probePath)), registry.ErrReservedPath)
	})
}

func DoDispatchChecks(t *T) {
	t.Run("not found", func(t *T) {
		resp, err := t.Env().Dispatcher().Invoke(context.Background(), dispatch.Call{Path: "/__simenv_missing"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.Status)
	})

	t.Run("handler fault", func(t *T) {
		env := t.Env()
		env.App().UseFunc("/__simenv_fault", func(http.ResponseWriter, *http.Request) {
			panic("deliberate fault")
		})
		resp, err := env.Dispatcher().Invoke(context.Background(), dispatch.Call{Path: "/__simenv_fault"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.Status)
		assert.Contains(t, resp.Text(), "deliberate fault")
	})

	t.Run("dynamic route", func(t *T) {
		env := t.Env()
		env.App().Use("/__simenv_late", httphelpers.HandlerWithResponse(http.StatusOK, nil, []byte("late")))
		resp, err := env.Dispatcher().Invoke(context.Background(), dispatch.Call{Path: "/__simenv_late"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Status)
		assert.Equal(t, "late", resp.Text())
	})
}

func DoInterceptChecks(t *T) {
	t.Run("unregistered", func(t *T) {
		env := t.Env()
		const path = "/__simenv_plain"
		handler, requestsCh := httphelpers.RecordingHandler(httphelpers.HandlerWithStatus(http.StatusTeapot))
		env.App().Use(registry.Internal(path), handler)
		env.App().Use(path, httphelpers.HandlerWithStatus(http.StatusOK))

		_, rewritten := env.Interceptor().Rewrite(path)
		assert.False(t, rewritten)

		resp, err := env.Interceptor().Fetch(context.Background(), path, nil)
		require.NoError(t, err)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, requestsCh, 0, "internal route should not have been called")
	})

	t.Run("registered", func(t *T) {
		env := t.Env()
		require.NoError(t, env.Registry().Register(probePath))
		env.App().Use(registry.Internal(probePath), httphelpers.HandlerWithResponse(http.StatusOK, nil, []byte("internal")))

		body, err := env.Client().Fetch(context.Background(), probePath+"?v=2", nil)
		require.NoError(t, err)
		assert.Equal(t, "internal", string(body))
	})
}
