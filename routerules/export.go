package routerules

import (
	"strings"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// MatcherExport is the flat, serializable form of a Matcher.
//
// Static rules are keyed by their exact path, wildcard rules by the literal prefix that
// precedes "/**", and dynamic rules by their full pattern.
type MatcherExport struct {
	Static   map[string]ldvalue.Value `json:"static"`
	Wildcard map[string]ldvalue.Value `json:"wildcard"`
	Dynamic  map[string]ldvalue.Value `json:"dynamic"`
}

// Export returns a snapshot of the matcher. Every call returns a new, equal value.
func (m *Matcher) Export() MatcherExport {
	ret := MatcherExport{
		Static:   make(map[string]ldvalue.Value),
		Wildcard: make(map[string]ldvalue.Value),
		Dynamic:  make(map[string]ldvalue.Value),
	}
	for _, cr := range m.rules {
		switch cr.kind {
		case kindStatic:
			ret.Static[cr.pattern] = cr.metadata
		case kindWildcard:
			ret.Wildcard[wildcardPrefix(cr.pattern)] = cr.metadata
		default:
			ret.Dynamic[cr.pattern] = cr.metadata
		}
	}
	return ret
}

// Rules converts the export back into a rule table.
func (e MatcherExport) Rules() []Rule {
	ret := make([]Rule, 0, len(e.Static)+len(e.Wildcard)+len(e.Dynamic))
	for p, md := range e.Static {
		ret = append(ret, Rule{Pattern: p, Metadata: md})
	}
	for prefix, md := range e.Wildcard {
		ret = append(ret, Rule{Pattern: strings.TrimSuffix(prefix, "/") + "/**", Metadata: md})
	}
	for p, md := range e.Dynamic {
		ret = append(ret, Rule{Pattern: p, Metadata: md})
	}
	return ret
}

// FromExport rebuilds a Matcher from an exported snapshot. The result matches every path
// exactly as the exported Matcher did.
func FromExport(e MatcherExport) (*Matcher, error) {
	return Compile(e.Rules())
}

func wildcardPrefix(pattern string) string {
	prefix := strings.TrimSuffix(pattern, "/**")
	if prefix == "" {
		return "/"
	}
	return prefix
}
