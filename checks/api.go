package checks

import (
	"context"

	"github.com/apptest/simenv/environment"
	"github.com/apptest/simenv/framework"
	"github.com/apptest/simenv/lifecycle"

	"github.com/stretchr/testify/require"
)

// T represents a check or sub-check in the environment check suite.
//
// It implements the same basic functionality as Go's testing.T, but outside of the Go test
// runner. Those features are provided by the lower-level framework package. Each T lazily
// sets up its own environment from the suite options the first time Env is called, and tears
// it down when the check finishes.
//
// To make assertions, use the assert and require packages, passing the *T as if it were a
// *testing.T.
type T struct {
	context *framework.Context
	options environment.Options
	target  *lifecycle.Bindings
	env     *environment.Environment
}

func newCheckScope(c *framework.Context, options environment.Options) *T {
	return &T{context: c, options: options}
}

// Errorf is called by assertions to log a failure. It does not cause an immediate exit.
func (t *T) Errorf(format string, args ...interface{}) {
	t.context.Errorf(format, args...)
}

// FailNow is called by assertions when a check should fail and immediately exit.
func (t *T) FailNow() {
	t.context.FailNow()
}

// Run runs a sub-check. The function receives a new T with no environment of its own yet.
func (t *T) Run(name string, action func(*T)) {
	t.context.Run(name, func(c *framework.Context) {
		action(newCheckScope(c, t.options))
	})
}

// Debug logs some debug output for the check. It is shown if the check fails and debug
// output was requested.
func (t *T) Debug(format string, args ...interface{}) {
	t.context.Debug(format, args...)
}

// Options returns the environment options the suite was started with.
func (t *T) Options() environment.Options {
	return t.options
}

// Env returns this check's environment, setting it up on first use. The check fails and
// exits immediately if setup fails.
func (t *T) Env() *environment.Environment {
	if t.env != nil {
		return t.env
	}
	opts := t.options
	opts.Logger = t.context.DebugLogger()
	t.target = lifecycle.NewBindings()
	env, err := environment.Setup(context.Background(), t.target, opts)
	require.NoError(t, err, "environment setup failed")
	t.env = env
	t.context.Defer(func() {
		if t.env != nil {
			if err := t.env.Teardown(); err != nil {
				t.Errorf("teardown failed: %s", err)
			}
		}
	})
	return env
}

// Target returns the scope that this check's environment was installed onto.
func (t *T) Target() *lifecycle.Bindings {
	t.Env()
	return t.target
}

// TeardownNow tears the environment down before the end of the check.
func (t *T) TeardownNow() error {
	if t.env == nil {
		return nil
	}
	env := t.env
	t.env = nil
	return env.Teardown()
}
