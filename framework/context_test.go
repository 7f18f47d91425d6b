package framework

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTestLogger struct {
	events []string
}

func (r *recordingTestLogger) TestStarted(id TestID) { r.events = append(r.events, "start "+id.String()) }
func (r *recordingTestLogger) TestError(id TestID, err error) {
	r.events = append(r.events, "error "+id.String())
}
func (r *recordingTestLogger) TestFinished(id TestID, failed bool, debugOutput CapturedOutput) {
	if failed {
		r.events = append(r.events, "failed "+id.String())
	} else {
		r.events = append(r.events, "passed "+id.String())
	}
}
func (r *recordingTestLogger) TestSkipped(id TestID, reason string) {
	r.events = append(r.events, "skipped "+id.String())
}

func TestRunCollectsResults(t *testing.T) {
	logger := &recordingTestLogger{}
	results := Run(nil, logger, func(c *Context) {
		c.Run("ok", func(c *Context) {})
		c.Run("fails", func(c *Context) {
			assert.Equal(c, 1, 2)
		})
		c.Run("fails now", func(c *Context) {
			require.True(c, false)
			c.Errorf("not reached")
		})
		c.Run("skipped", func(c *Context) {
			c.SkipWithReason("not applicable")
		})
	})

	assert.False(t, results.OK())
	require.Len(t, results.Tests, 3)
	require.Len(t, results.Failures, 2)
	assert.Equal(t, "fails", results.Failures[0].TestID.String())
	assert.Equal(t, "fails now", results.Failures[1].TestID.String())
	assert.Len(t, results.Failures[1].Errors, 1)
	assert.Contains(t, logger.events, "skipped skipped")
	assert.Contains(t, logger.events, "passed ok")
}

func TestRunRecoversUnexpectedPanic(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Run("panics", func(c *Context) {
			panic("oops")
		})
	})
	require.Len(t, results.Failures, 1)
	assert.Contains(t, results.Failures[0].Errors[0].Error(), "oops")
}

func TestDeferredFunctionsRunInReverseOrder(t *testing.T) {
	var order []string
	Run(nil, nil, func(c *Context) {
		c.Run("check", func(c *Context) {
			c.Defer(func() { order = append(order, "first") })
			c.Defer(func() { order = append(order, "second") })
			c.FailNow()
		})
	})
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestFilterSkipsChecks(t *testing.T) {
	var filters RegexFilters
	require.NoError(t, filters.MustNotMatch.Set("^b/"))
	var ran []string
	Run(filters.AsFilter, nil, func(c *Context) {
		for _, group := range []string{"a", "b"} {
			c.Run(group, func(c *Context) {
				c.Run("x", func(c *Context) { ran = append(ran, c.ID().String()) })
			})
		}
	})
	assert.Equal(t, []string{"a/x"}, ran)
}

func TestCapturingLoggerAndPrefix(t *testing.T) {
	var logger CapturingLogger
	LoggerWithPrefix(&logger, "[x] ").Printf("hello %d", 1)
	LoggerWithPrefix(nil, "[x] ").Printf("dropped")

	out := logger.Output()
	require.Len(t, out, 1)
	assert.Equal(t, "[x] hello 1", out[0].Message)

	var buf bytes.Buffer
	out.Dump(&buf, "  ")
	assert.True(t, strings.HasPrefix(buf.String(), "  ["))
	assert.Contains(t, buf.String(), "[x] hello 1")
}

func TestFilterMatchesByLevel(t *testing.T) {
	var filters RegexFilters
	require.NoError(t, filters.MustMatch.Set(`^rules$/^\/a\/\*$`))
	var ran []string
	Run(filters.AsFilter, nil, func(c *Context) {
		c.Run("rules", func(c *Context) {
			for _, pattern := range []string{"/a/*", "/about"} {
				c.Run(pattern, func(c *Context) { ran = append(ran, c.ID().String()) })
			}
		})
		c.Run("other", func(c *Context) { ran = append(ran, c.ID().String()) })
	})
	assert.Equal(t, []string{"rules//a/*"}, ran)
}

func TestQuoteTestIDSelectsExactlyThatCheck(t *testing.T) {
	id := TestID{Path: []string{"rules", "/blog/**"}}
	var filters RegexFilters
	require.NoError(t, filters.MustMatch.Set(QuoteTestID(id)))

	assert.True(t, filters.AsFilter(TestID{Path: []string{"rules"}}))
	assert.True(t, filters.AsFilter(id))
	assert.False(t, filters.AsFilter(TestID{Path: []string{"rules", "/blog/x"}}))
	assert.False(t, filters.AsFilter(TestID{Path: []string{"manifest"}}))
}
