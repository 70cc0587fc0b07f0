package cache_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klanderfri/primegen/pkg/primegen/cache"
	"github.com/klanderfri/primegen/pkg/primegen/errors"
)

func appendAll(t *testing.T, c *cache.Cache, values ...int64) {
	t.Helper()
	for _, v := range values {
		require.NoError(t, c.Append(big.NewInt(v)))
	}
}

func TestCache_Append(t *testing.T) {
	c := cache.New(0)
	appendAll(t, c, 2, 3, 5, 7)

	assert.Equal(t, 4, c.Len())
	assert.Equal(t, 0, c.Max().Cmp(big.NewInt(7)))
	assert.Equal(t, 0, c.Values()[0].Cmp(big.NewInt(2)))
}

func TestCache_AppendRejectsNonAscending(t *testing.T) {
	c := cache.New(0)
	appendAll(t, c, 2, 3, 5)

	var invalid *errors.InvalidInputError
	require.ErrorAs(t, c.Append(big.NewInt(5)), &invalid)
	require.ErrorAs(t, c.Append(big.NewInt(4)), &invalid)
	assert.Equal(t, 3, c.Len())
}

func TestCache_Budget(t *testing.T) {
	c := cache.New(3)
	appendAll(t, c, 2, 3, 5)

	err := c.Append(big.NewInt(7))
	require.ErrorIs(t, err, errors.ErrBudgetExhausted)
	assert.Equal(t, 3, c.Len(), "a refused prime must not be cached")
	assert.Equal(t, 3, c.Budget())

	// The budget check is stable: further appends keep failing.
	require.ErrorIs(t, c.Append(big.NewInt(11)), errors.ErrBudgetExhausted)
}

func TestCache_ZeroBudgetIsUnbounded(t *testing.T) {
	c := cache.New(0)
	prev := int64(1)
	for _, v := range []int64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29} {
		require.Greater(t, v, prev)
		require.NoError(t, c.Append(big.NewInt(v)))
		prev = v
	}
	assert.Equal(t, 10, c.Len())
}

func TestCache_Since(t *testing.T) {
	c := cache.New(0)
	appendAll(t, c, 2, 3, 5, 7, 11)

	tail := c.Since(3)
	require.Len(t, tail, 2)
	assert.Equal(t, 0, tail[0].Cmp(big.NewInt(7)))
	assert.Equal(t, 0, tail[1].Cmp(big.NewInt(11)))

	assert.Empty(t, c.Since(5))
	assert.Len(t, c.Since(-1), 5)
}

func TestCache_EmptyMax(t *testing.T) {
	assert.Nil(t, cache.New(0).Max())
}
