package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/apptest/simenv/framework"

	"github.com/alessio/shellescape"
)

type commandParams struct {
	rulesFile      string
	baseURL        string
	buildAssetsDir string
	buildID        string
	filters        framework.RegexFilters
	debug          bool
	debugAll       bool
	dumpJSON       bool
}

func (c *commandParams) Read(args []string) bool {
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	fs.StringVar(&c.rulesFile, "rules", "", "route rule file (.hcl, .yaml, .toml or .json)")
	fs.StringVar(&c.baseURL, "base-url", "", "application base URL, such as /app/")
	fs.StringVar(&c.buildAssetsDir, "build-assets-dir", "", "build assets directory (default \"/_nuxt/\")")
	fs.StringVar(&c.buildID, "build-id", "", "build id reported by the manifest endpoints")
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select checks to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select checks not to run")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging for failed checks")
	fs.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for all checks")
	fs.BoolVar(&c.dumpJSON, "json", false, "print the manifest served at latest.json and exit")

	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return false
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		fs.Usage()
		return false
	}
	return true
}

// rerunCommand returns a shell command line that runs only the given check with the same
// environment settings.
func (c *commandParams) rerunCommand(program string, id framework.TestID) string {
	var b commandBuilder
	b.add(program)
	if c.rulesFile != "" {
		b.add("-rules", c.rulesFile)
	}
	if c.baseURL != "" {
		b.add("-base-url", c.baseURL)
	}
	if c.buildAssetsDir != "" {
		b.add("-build-assets-dir", c.buildAssetsDir)
	}
	if c.buildID != "" {
		b.add("-build-id", c.buildID)
	}
	b.add("-run", framework.QuoteTestID(id), "-debug")
	return b.String()
}

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}
