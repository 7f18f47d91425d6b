package checks

import (
	"context"
	"encoding/json"

	"github.com/apptest/simenv/registry"
	"github.com/apptest/simenv/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func DoManifestChecks(t *T) {
	t.Run("consistency", func(t *T) {
		env := t.Env()
		var records []servicedef.ManifestRecord
		for round := 0; round < 2; round++ {
			for _, p := range env.ManifestPaths() {
				var r servicedef.ManifestRecord
				require.NoError(t, env.Client().FetchJSON(context.Background(), p, &r), "fetching %s", p)
				records = append(records, r)
			}
		}
		var firstMatcher []byte
		for i, r := range records {
			assert.Equal(t, records[0].ID, r.ID, "build id of record %d", i)
			assert.Equal(t, env.Timestamp(), r.Timestamp, "timestamp of record %d", i)
			if r.Matcher == nil {
				continue
			}
			data, err := json.Marshal(r.Matcher)
			require.NoError(t, err)
			if firstMatcher == nil {
				firstMatcher = data
			}
			assert.JSONEq(t, string(firstMatcher), string(data), "matcher of record %d", i)
		}
		require.NotNil(t, firstMatcher, "no manifest included a matcher")
	})

	t.Run("rewrite", func(t *T) {
		env := t.Env()
		for _, p := range env.ManifestPaths() {
			rewritten, ok := env.Interceptor().Rewrite(p + "?v=1")
			assert.True(t, ok, "%s was not rewritten", p)
			assert.Equal(t, registry.Internal(p)+"?v=1", rewritten)

			resp, err := env.Interceptor().Fetch(context.Background(), p, nil)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, 200, resp.StatusCode, "status for %s", p)
			t.Debug("%s -> %s: %d", p, rewritten, resp.StatusCode)
		}
	})
}
