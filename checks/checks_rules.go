package checks

import (
	"strings"

	"github.com/apptest/simenv/routerules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DoRuleChecks runs one check per configured route rule. Each check builds a path that the
// rule's pattern covers and verifies that the environment's matcher, and a matcher rebuilt
// from its export, both report the rule for that path.
func DoRuleChecks(t *T) {
	compiled, err := routerules.Compile(t.Options().RouteRules)
	require.NoError(t, err)
	for _, rule := range compiled.Export().Rules() {
		rule := rule
		t.Run(rule.Pattern, func(t *T) {
			env := t.Env()
			sample := samplePath(rule.Pattern)
			t.Debug("sample path for %s is %s", rule.Pattern, sample)

			assert.Contains(t, patterns(env.Matcher().MatchAll(sample)), rule.Pattern)

			rebuilt, err := routerules.FromExport(env.Matcher().Export())
			require.NoError(t, err)
			want, _ := env.Matcher().Match(sample)
			got, ok := rebuilt.Match(sample)
			require.True(t, ok)
			assert.Equal(t, want.Pattern, got.Pattern)
			assert.JSONEq(t, want.Metadata.JSONString(), got.Metadata.JSONString())
		})
	}
}

func samplePath(pattern string) string {
	segs := strings.Split(strings.Trim(pattern, "/"), "/")
	for i, s := range segs {
		switch {
		case s == "**" || strings.HasPrefix(s, "**:"):
			segs[i] = "sample/deep"
		case s == "*" || strings.HasPrefix(s, ":"):
			segs[i] = "sample"
		}
	}
	return "/" + strings.Join(segs, "/")
}

func patterns(rules []routerules.Rule) []string {
	ret := make([]string, 0, len(rules))
	for _, r := range rules {
		ret = append(ret, r.Pattern)
	}
	return ret
}
