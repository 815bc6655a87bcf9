// Package testutil provides testing utilities for slabkit.
//
// This package is intended for use in tests, benchmarks and the stress
// command. It provides a seeded, thread-safe RNG, skewed request-size
// generators and byte-pattern checks.
//
// # Request Sizes
//
//	rng := testutil.NewRNG(seed)
//	size := rng.RequestSize(128, 1.2) // in [1, 128], small sizes favored
//
// # Pattern Checks
//
//	testutil.AllBytes(b, 0xab)
//	testutil.Distinct(handles)
package testutil
