// Package prime implements primality testing by trial division against an
// ascending, gapless basis of previously discovered primes.
package prime

import (
	"context"
	"math/big"
	"runtime"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	perrors "github.com/klanderfri/primegen/pkg/primegen/errors"
)

// parallelThreshold is the minimum number of candidate factors before the
// tester fans out to the worker pool. Below it, goroutine setup costs more
// than the divisions themselves.
const parallelThreshold = 64

var (
	two   = big.NewInt(2)
	three = big.NewInt(3)
)

// Tester decides primality by bounded trial division.
//
// The factor set for a candidate n is every basis prime p with p*p < n,
// located with a binary search over the ascending basis. Factor checks fan
// out to a bounded worker pool; the first worker to find a factor raises a
// shared flag that the others poll to stop early.
type Tester struct {
	workers int
}

// New creates a tester with the given worker-pool size.
// workers <= 0 selects runtime.NumCPU().
func New(workers int) *Tester {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Tester{workers: workers}
}

// Workers returns the configured worker-pool size.
func (t *Tester) Workers() int {
	return t.workers
}

// Test reports whether candidate is prime.
//
// basis must be the ascending, gapless sequence of all known primes, or
// empty. candidate must be non-negative.
//
// Returns an UnsupportedError when the basis cannot span every factor below
// sqrt(candidate) (the square of the largest basis prime is still below the
// candidate) - the result would be unverified, so the tester fails loudly
// instead. Returns an InvalidInputError when factors are needed but the
// basis is empty.
func (t *Tester) Test(ctx context.Context, basis []*big.Int, candidate *big.Int) (bool, error) {
	// Fast paths decide everything below 4 without touching the basis.
	if candidate.Cmp(two) < 0 {
		return false, nil
	}
	if candidate.Cmp(two) == 0 {
		return true, nil
	}
	if candidate.Bit(0) == 0 {
		return false, nil
	}
	if candidate.Cmp(three) == 0 {
		return true, nil
	}

	if len(basis) == 0 {
		return false, &perrors.InvalidInputError{
			Reason: "empty known-primes basis, cannot verify candidate " + candidate.String(),
		}
	}

	// The basis must reach sqrt(candidate). When it falls short the missing
	// factors live only on disk, and that extension does not exist yet.
	sq := new(big.Int)
	last := basis[len(basis)-1]
	if sq.Mul(last, last); sq.Cmp(candidate) < 0 {
		return false, &perrors.UnsupportedError{
			Op:     "disk-backed factor extension",
			Detail: "largest known prime " + last.String() + " squared is below candidate " + candidate.String(),
		}
	}

	// Boundary index: first prime whose square reaches the candidate.
	bound := sort.Search(len(basis), func(i int) bool {
		sq.Mul(basis[i], basis[i])
		return sq.Cmp(candidate) >= 0
	})

	// Landing exactly on p*p == candidate already names a factor.
	if bound < len(basis) {
		sq.Mul(basis[bound], basis[bound])
		if sq.Cmp(candidate) == 0 {
			return false, nil
		}
	}

	factors := basis[:bound]
	if len(factors) < parallelThreshold || t.workers == 1 {
		return !divisibleByAny(candidate, factors), nil
	}
	return t.testParallel(ctx, factors, candidate)
}

// divisibleByAny reports whether any factor divides candidate evenly.
func divisibleByAny(candidate *big.Int, factors []*big.Int) bool {
	mod := new(big.Int)
	for _, p := range factors {
		if mod.Mod(candidate, p).Sign() == 0 {
			return true
		}
	}
	return false
}

// testParallel fans the factor checks out over the worker pool.
//
// found is write-once true per test: once any worker sets it, the rest
// observe it on their next iteration and stop. The stop is cooperative, not
// immediate - only further wasted divisions are avoided.
func (t *Tester) testParallel(ctx context.Context, factors []*big.Int, candidate *big.Int) (bool, error) {
	workers := t.workers
	if workers > len(factors) {
		workers = len(factors)
	}

	var found atomic.Bool
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			mod := new(big.Int)
			for i := w; i < len(factors); i += workers {
				if found.Load() {
					return nil
				}
				if err := gctx.Err(); err != nil {
					return err
				}
				if mod.Mod(candidate, factors[i]).Sign() == 0 {
					found.Store(true)
					return nil
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// A found factor is a definitive answer even when the context died
		// while other workers were still draining.
		if found.Load() {
			return false, nil
		}
		return false, err
	}
	return !found.Load(), nil
}
