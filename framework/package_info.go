// Package framework contains the infrastructure shared by every part of the simulated
// environment: a minimal Logger interface with capturing and prefixing implementations, and
// a small check runner that works like Go's *testing.T outside of the Go test runner.
//
// The check runner is used by the checks package to verify a configured environment from
// the command line. A check receives a *Context, which can record failures (so the testify
// assert and require packages can be used with it), skip, run sub-checks, and capture debug
// output that is only shown if the check fails.
package framework
