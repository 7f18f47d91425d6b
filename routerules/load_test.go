package routerules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileFormats(t *testing.T) {
	for _, name := range []string{"rules.hcl", "rules.yaml", "rules.toml", "rules.json"} {
		t.Run(name, func(t *testing.T) {
			rules, err := LoadFile(filepath.Join("testdata", name))
			require.NoError(t, err)
			require.Len(t, rules, 3)

			assert.Equal(t, "/blog/**", rules[0].Pattern)
			assert.JSONEq(t, `{"prerender":true,"headers":{"cache-control":"s-maxage=60"}}`,
				rules[0].Metadata.JSONString())

			assert.Equal(t, "/a/*", rules[1].Pattern)
			assert.Equal(t, 1, rules[1].Metadata.GetByKey("x").IntValue())

			assert.Equal(t, "/about", rules[2].Pattern)
			assert.True(t, rules[2].Metadata.IsNull(), "empty rule should have null metadata, got %s",
				rules[2].Metadata.JSONString())

			m, err := Compile(rules)
			require.NoError(t, err)
			requireMatch(t, m, "/blog/post-1", "/blog/**")
			requireMatch(t, m, "/a/b", "/a/*")
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join("testdata", "does-not-exist.hcl"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("unknown extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.ini")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
		_, err := LoadFile(path)
		assert.Error(t, err)
	})

	t.Run("invalid HCL", func(t *testing.T) {
		_, err := LoadFile(filepath.Join("testdata", "invalid.hcl"))
		assert.Error(t, err)
	})

	t.Run("unexpected HCL block", func(t *testing.T) {
		_, err := ParseHCL([]byte(`route "/a" {}`), "inline.hcl")
		assert.Error(t, err)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseJSON([]byte(`{"pattern": "/a"}`))
		assert.Error(t, err)
	})
}
