package main

import (
	"context"
	"errors"
	"testing"

	"github.com/apptest/simenv/environment"

	"github.com/stretchr/testify/assert"
)

func TestDumpManifest(t *testing.T) {
	assert.NoError(t, dumpManifest(environment.Options{}))
}

func TestDumpManifestReportsTeardownFailure(t *testing.T) {
	closeErr := errors.New("window did not close")
	environment.RegisterProvider("failing-teardown", func(ctx context.Context, opts environment.ProviderOptions) (*environment.Window, func() error, error) {
		return environment.NewWindow(opts.URL), func() error { return closeErr }, nil
	})

	err := dumpManifest(environment.Options{DOMEnvironment: "failing-teardown"})
	assert.True(t, errors.Is(err, closeErr))
}
