package checks

import (
	"github.com/apptest/simenv/environment"
	"github.com/apptest/simenv/lifecycle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func DoLifecycleChecks(t *T) {
	t.Run("teardown", func(t *T) {
		target := t.Target()
		_, installed := target.Lookup(environment.BindingFetch)
		require.True(t, installed, "fetch binding was not installed")

		require.NoError(t, t.TeardownNow())
		assert.Empty(t, target.Names(), "bindings left behind: %v", target.Names())
	})

	t.Run("repeated teardown", func(t *T) {
		env := t.Env()
		require.NoError(t, env.Teardown())
		assert.ErrorIs(t, env.Teardown(), lifecycle.ErrAlreadyTornDown)
		_ = t.TeardownNow()
	})
}
