// Package primegen incrementally discovers prime numbers by trial division
// against previously found primes, caches them in memory up to a
// configurable budget, and persists them to fixed-capacity checkpoint
// chunks so that generation resumes across restarts.
//
// The Engine drives a small state machine:
//
//	Loading -> MemoryGeneration -> Overflowing -> DiskGeneration -> Stopped
//
// Loading replays existing checkpoints into the cache, MemoryGeneration is
// the discovery loop, Overflowing drains the unflushed tail when the cache
// budget is spent, and DiskGeneration (trial division beyond the cache
// boundary) is an open extension point that currently fails loudly.
//
// Basic use:
//
//	st, err := store.NewFileStore(store.FileConfig{Dir: dir, Capacity: 10000})
//	if err != nil {
//	    return err
//	}
//	engine := primegen.New(st, primegen.WithCancelPoller(flag))
//	report, err := engine.Run(ctx)
package primegen
