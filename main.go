package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/apptest/simenv/checks"
	"github.com/apptest/simenv/environment"
	"github.com/apptest/simenv/framework"
	"github.com/apptest/simenv/lifecycle"
	"github.com/apptest/simenv/routerules"
)

func main() {
	var params commandParams
	if !params.Read(os.Args) {
		os.Exit(1)
	}

	mainDebugLogger := framework.NullLogger()
	if params.debugAll {
		mainDebugLogger = log.New(os.Stdout, "", log.LstdFlags)
	}

	options := environment.Options{
		BaseURL:        params.baseURL,
		BuildAssetsDir: params.buildAssetsDir,
		BuildID:        params.buildID,
		Logger:         mainDebugLogger,
	}
	if params.rulesFile != "" {
		rules, err := routerules.LoadFile(params.rulesFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not load route rules: %s\n", err)
			os.Exit(1)
		}
		options.RouteRules = rules
	}

	if params.dumpJSON {
		if err := dumpManifest(options); err != nil {
			fmt.Fprintf(os.Stderr, "Environment error: %s\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println()
	framework.PrintFilterDescription(params.filters)

	fmt.Println("Running check suite")

	testLogger := &ConsoleTestLogger{
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	}

	results := checks.RunSuite(options, params.filters.AsFilter, testLogger)

	fmt.Println()
	framework.PrintResults(results)
	if !results.OK() {
		fmt.Println()
		fmt.Println("To rerun a failed check with debug output:")
		for _, f := range results.Failures {
			fmt.Printf("  %s\n", params.rerunCommand(os.Args[0], f.TestID))
		}
		os.Exit(1)
	}
}

func dumpManifest(options environment.Options) (err error) {
	env, err := environment.Setup(context.Background(), lifecycle.NewBindings(), options)
	if err != nil {
		return err
	}
	defer func() {
		if teardownErr := env.Teardown(); teardownErr != nil {
			err = errors.Join(err, fmt.Errorf("teardown failed: %w", teardownErr))
		}
	}()

	body, err := env.Client().Fetch(context.Background(), env.ManifestPaths()[0], nil)
	if err != nil {
		return err
	}
	fmt.Println(string(body))
	return nil
}
