// Package cache provides the in-memory prime cache.
//
// The cache is an ascending, duplicate-free sequence of primes with an
// explicit element budget. Budget exhaustion is reported as a typed error
// rather than left to an allocation failure, so the memory-limit transition
// in the engine is deterministic and testable.
package cache

import (
	"fmt"
	"math/big"

	perrors "github.com/klanderfri/primegen/pkg/primegen/errors"
)

// Cache holds the ascending sequence of discovered primes.
//
// The cache is owned by a single control goroutine; concurrent readers are
// safe only while no Append is in flight (the trial-division workers read it
// between mutations).
type Cache struct {
	primes []*big.Int
	budget int // max elements, 0 = unbounded
}

// New creates a cache with the given element budget.
// A budget of 0 means unbounded.
func New(budget int) *Cache {
	return &Cache{budget: budget}
}

// Append adds a prime to the cache.
//
// Returns a wrapped perrors.ErrBudgetExhausted when the budget is spent, an
// InvalidInputError when p would violate ascending order. The value is not
// copied; callers must not mutate it afterwards.
func (c *Cache) Append(p *big.Int) error {
	if c.budget > 0 && len(c.primes) >= c.budget {
		return fmt.Errorf("%w: budget %d elements", perrors.ErrBudgetExhausted, c.budget)
	}
	if n := len(c.primes); n > 0 && p.Cmp(c.primes[n-1]) <= 0 {
		return &perrors.InvalidInputError{
			Reason: fmt.Sprintf("prime %s does not extend the ascending sequence ending at %s", p, c.primes[n-1]),
		}
	}
	c.primes = append(c.primes, p)
	return nil
}

// Len returns the number of cached primes.
func (c *Cache) Len() int {
	return len(c.primes)
}

// Budget returns the configured element budget (0 = unbounded).
func (c *Cache) Budget() int {
	return c.budget
}

// Values returns the backing slice of cached primes in ascending order.
// The slice and its elements must be treated as read-only.
func (c *Cache) Values() []*big.Int {
	return c.primes
}

// Max returns the largest cached prime, or nil when the cache is empty.
func (c *Cache) Max() *big.Int {
	if len(c.primes) == 0 {
		return nil
	}
	return c.primes[len(c.primes)-1]
}

// Since returns the primes at ordinal positions [from, Len).
// Used to collect the not-yet-checkpointed tail.
func (c *Cache) Since(from int) []*big.Int {
	if from < 0 {
		from = 0
	}
	if from >= len(c.primes) {
		return nil
	}
	return c.primes[from:]
}
