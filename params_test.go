package main

import (
	"testing"

	"github.com/apptest/simenv/framework"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadParams(t *testing.T) {
	var p commandParams
	require.True(t, p.Read([]string{"simenv", "-rules", "r.yaml", "-build-id", "abc", "-run", "^manifest/", "-debug"}))
	assert.Equal(t, "r.yaml", p.rulesFile)
	assert.Equal(t, "abc", p.buildID)
	assert.True(t, p.debug)
	assert.True(t, p.filters.MustMatch.IsDefined())

	var bad commandParams
	assert.False(t, bad.Read([]string{"simenv", "extra"}))
}

func TestRerunCommandIsShellQuoted(t *testing.T) {
	p := commandParams{rulesFile: "my rules.hcl"}
	id := framework.TestID{Path: []string{"rules", "/a/*"}}
	assert.Equal(t, `simenv -rules 'my rules.hcl' -run '^rules$/^\/a\/\*$' -debug`, p.rerunCommand("simenv", id))
}
