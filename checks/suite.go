package checks

import (
	"github.com/apptest/simenv/environment"
	"github.com/apptest/simenv/framework"
)

// RunSuite runs every check against environments built from options.
func RunSuite(
	options environment.Options,
	filter framework.Filter,
	testLogger framework.TestLogger,
) framework.Results {
	return framework.Run(filter, testLogger, func(c *framework.Context) {
		t := newCheckScope(c, options)

		t.Run("manifest", DoManifestChecks)
		t.Run("registry", DoRegistryChecks)
		t.Run("dispatch", DoDispatchChecks)
		t.Run("intercept", DoInterceptChecks)
		t.Run("rules", DoRuleChecks)
		t.Run("lifecycle", DoLifecycleChecks)
	})
}
