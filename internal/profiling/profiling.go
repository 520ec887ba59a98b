// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

// Package profiling wires the optional -cpuprofile/-memprofile hooks
// (SPEC_FULL §6), grounded directly on muscato_confirm's doProfile
// flag and its github.com/pkg/profile usage, generalized from a
// compile-time const to a pair of CLI flags.
package profiling

import "github.com/pkg/profile"

// Stop is returned by Start; call it (typically via defer) once the
// run completes.
type Stop func()

// Start begins profiling as requested, writing profiles under dir.
// Memory profiling wins if both are requested, since pkg/profile only
// tracks one profile kind per process at a time.
func Start(dir string, cpu, mem bool) Stop {
	if !cpu && !mem {
		return func() {}
	}
	mode := profile.CPUProfile
	if mem {
		mode = profile.MemProfile
	}
	p := profile.Start(mode, profile.ProfilePath(dir), profile.NoShutdownHook)
	return p.Stop
}
