package routerules

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exportTestRules = []Rule{
	{Pattern: "/**", Metadata: meta("level", 0)},
	{Pattern: "/blog/**", Metadata: meta("level", 1)},
	{Pattern: "/blog/:slug", Metadata: meta("level", 2)},
	{Pattern: "/blog/featured", Metadata: meta("level", 3)},
	{Pattern: "/a/*/c"},
	{Pattern: "/a/b/*"},
}

func TestExportLayout(t *testing.T) {
	m := MustCompile(exportTestRules)
	data, err := json.Marshal(m.Export())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"static": {"/blog/featured": {"level": 3}},
		"wildcard": {"/": {"level": 0}, "/blog": {"level": 1}},
		"dynamic": {"/blog/:slug": {"level": 2}, "/a/*/c": null, "/a/b/*": null}
	}`, string(data))
}

func TestRepeatedExportsAreEqual(t *testing.T) {
	m := MustCompile(exportTestRules)
	first, err := json.Marshal(m.Export())
	require.NoError(t, err)
	second, err := json.Marshal(m.Export())
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestMatcherRebuiltFromJSONExportMatchesIdentically(t *testing.T) {
	m := MustCompile(exportTestRules)
	data, err := json.Marshal(m.Export())
	require.NoError(t, err)

	var decoded MatcherExport
	require.NoError(t, json.Unmarshal(data, &decoded))
	rebuilt, err := FromExport(decoded)
	require.NoError(t, err)

	for _, path := range []string{
		"/", "/blog", "/blog/featured", "/blog/post-1", "/blog/a/b",
		"/a/b/c", "/a/x/c", "/shop/item-1?x=1",
	} {
		expected, expectedOK := m.Match(path)
		actual, actualOK := rebuilt.Match(path)
		assert.Equal(t, expectedOK, actualOK, path)
		assert.Equal(t, expected.Pattern, actual.Pattern, path)
		assert.Equal(t, expected.Metadata.JSONString(), actual.Metadata.JSONString(), path)
	}
}

func TestNoMatchFromExportOfUnrelatedTable(t *testing.T) {
	m := MustCompile([]Rule{{Pattern: "/blog/**", Metadata: meta("x", 1)}})
	rebuilt, err := FromExport(m.Export())
	require.NoError(t, err)

	_, ok := rebuilt.Match("/blog/post-1")
	assert.True(t, ok)
	_, ok = rebuilt.Match("/shop/item-1")
	assert.False(t, ok)
}
