package mockapp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/apptest/simenv/registry"
	"github.com/apptest/simenv/routerules"
	"github.com/apptest/simenv/servicedef"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
)

// ManifestConfig describes the build identity served by the manifest endpoints of one
// environment. It is fixed when the environment is created.
type ManifestConfig struct {
	// OutputPath is the public directory of the manifests, such as "/_nuxt/builds".
	OutputPath string
	BuildID    string
	Timestamp  int64
	Matcher    routerules.MatcherExport
}

// ManifestPaths returns the public paths of the three manifest endpoints: latest, the
// per-build metadata, and the in-development metadata.
func (c ManifestConfig) ManifestPaths() []string {
	base := strings.TrimSuffix(c.OutputPath, "/")
	return []string{
		base + servicedef.ManifestLatestSuffix,
		base + servicedef.ManifestMetaDir + c.BuildID + ".json",
		base + servicedef.ManifestMetaDir + servicedef.DevBuildID + ".json",
	}
}

// RegisterManifests adds the manifest routes to app under their internal form, and adds
// their public paths to reg so that intercepted requests are rewritten to reach them.
//
// Response bodies are encoded once here, so every response within one environment is
// byte-identical.
func RegisterManifests(app *App, reg *registry.Registry, cfg ManifestConfig) error {
	if cfg.BuildID == "" {
		cfg.BuildID = servicedef.DefaultBuildID
	}
	matcher := cfg.Matcher
	latest := servicedef.ManifestRecord{
		ID:          cfg.BuildID,
		Timestamp:   cfg.Timestamp,
		Prerendered: []string{},
	}
	meta := latest
	meta.Matcher = &matcher

	latestBody, err := json.Marshal(latest)
	if err != nil {
		return err
	}
	metaBody, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")

	for i, path := range cfg.ManifestPaths() {
		body := metaBody
		if i == 0 {
			body = latestBody
		}
		app.Use(registry.Internal(path), httphelpers.HandlerWithResponse(http.StatusOK, headers, body))
		if err := reg.Register(path); err != nil {
			return fmt.Errorf("cannot register manifest path %s: %w", path, err)
		}
	}
	return nil
}
