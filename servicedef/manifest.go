// Package servicedef defines the JSON shapes that the simulated environment serves to
// application code, such as build manifests and bootstrap state.
package servicedef

import "github.com/apptest/simenv/routerules"

// DefaultBuildID is the build identity reported by every manifest endpoint.
const DefaultBuildID = "test"

// DevBuildID names the in-development manifest route.
const DevBuildID = "dev"

const (
	ManifestLatestSuffix = "/latest.json"
	ManifestMetaDir      = "/meta/"
)

// ManifestRecord is the body of a manifest endpoint response. Matcher is omitted from the
// "latest" record.
type ManifestRecord struct {
	ID          string                    `json:"id"`
	Timestamp   int64                     `json:"timestamp"`
	Matcher     *routerules.MatcherExport `json:"matcher,omitempty"`
	Prerendered []string                  `json:"prerendered"`
}
