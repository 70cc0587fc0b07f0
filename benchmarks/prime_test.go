package benchmarks

import (
	"context"
	"math/big"
	"testing"

	"github.com/klanderfri/primegen/pkg/primegen/cache"
	"github.com/klanderfri/primegen/pkg/primegen/prime"
)

// buildBasis grows a prime basis up to limit with a single-worker tester.
func buildBasis(b *testing.B, limit int64) []*big.Int {
	b.Helper()
	tester := prime.New(1)
	c := cache.New(0)
	ctx := context.Background()
	for n := int64(2); n <= limit; n++ {
		ok, err := tester.Test(ctx, c.Values(), big.NewInt(n))
		if err != nil {
			b.Fatalf("build basis: %v", err)
		}
		if ok {
			if err := c.Append(big.NewInt(n)); err != nil {
				b.Fatalf("build basis: %v", err)
			}
		}
	}
	return c.Values()
}

// BenchmarkTest_SmallCandidate measures trial division below the parallel
// threshold.
func BenchmarkTest_SmallCandidate(b *testing.B) {
	basis := buildBasis(b, 100)
	candidate := big.NewInt(9973)
	tester := prime.New(1)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = tester.Test(ctx, basis, candidate)
	}
}

// BenchmarkTest_LargeCandidateSequential measures a prime candidate with a
// factor set large enough for the parallel path, forced sequential.
func BenchmarkTest_LargeCandidateSequential(b *testing.B) {
	basis := buildBasis(b, 1000)
	candidate := big.NewInt(993997)
	tester := prime.New(1)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = tester.Test(ctx, basis, candidate)
	}
}

// BenchmarkTest_LargeCandidateParallel measures the same candidate across
// the worker pool.
func BenchmarkTest_LargeCandidateParallel(b *testing.B) {
	basis := buildBasis(b, 1000)
	candidate := big.NewInt(993997)
	tester := prime.New(0)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = tester.Test(ctx, basis, candidate)
	}
}

// BenchmarkCacheAppend measures cache growth.
func BenchmarkCacheAppend(b *testing.B) {
	values := make([]*big.Int, b.N)
	for i := range values {
		values[i] = big.NewInt(int64(i) + 2)
	}

	b.ResetTimer()
	c := cache.New(0)
	for i := 0; i < b.N; i++ {
		_ = c.Append(values[i])
	}
}
