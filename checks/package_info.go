// Package checks contains the contract checks that the simenv command runs against a
// configured environment.
//
// Each check gets its own environment, set up lazily from the suite options the first time
// it calls T.Env and torn down when it finishes, so checks never see each other's routes or
// registrations.
package checks
