package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klanderfri/primegen/pkg/primegen/errors"
	"github.com/klanderfri/primegen/pkg/primegen/store"
)

func TestMemoryStore_RollsOverAcrossChunks(t *testing.T) {
	s := store.NewMemoryStore(3)
	defer s.Close()

	events, err := s.Append(bigs(2, 3, 5, 7, 11))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].FileIndex)
	assert.Equal(t, 0, events[0].Start)
	assert.Equal(t, 2, events[0].End)
	assert.Equal(t, 2, events[1].FileIndex)
	assert.Equal(t, 3, events[1].Start)
	assert.Equal(t, 4, events[1].End)

	primes, err := s.Read(2)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 11}, int64s(primes))

	last, err := s.Last()
	require.NoError(t, err)
	assert.Equal(t, int64(11), last.Int64())
}

func TestMemoryStore_SeedBypassesChunkRules(t *testing.T) {
	s := store.NewMemoryStore(3)
	defer s.Close()

	// Seed accepts layouts Append would refuse, including a short middle
	// chunk, so corruption handling can be exercised downstream.
	s.Seed(bigs(2, 3), bigs(5))

	infos, err := s.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, 2, infos[0].Count)
	assert.Equal(t, 1, infos[1].Count)
}

func TestMemoryStore_ReadOverfilledChunkIsCorruption(t *testing.T) {
	s := store.NewMemoryStore(2)
	defer s.Close()

	s.Seed(bigs(2, 3, 5))

	_, err := s.Read(1)
	var corrupt *errors.CorruptionError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, 1, corrupt.FileIndex)
}

func TestMemoryStore_EmptyAndClosed(t *testing.T) {
	s := store.NewMemoryStore(3)

	_, err := s.Last()
	assert.ErrorIs(t, err, store.ErrEmpty)

	require.NoError(t, s.Close())
	_, err = s.Append(bigs(2))
	assert.ErrorIs(t, err, store.ErrStoreClosed)
}
