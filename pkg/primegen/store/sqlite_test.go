package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klanderfri/primegen/pkg/primegen/errors"
	"github.com/klanderfri/primegen/pkg/primegen/store"
)

func newSQLiteStore(t *testing.T, path string, capacity int) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(path, capacity)
	require.NoError(t, err)
	return s
}

func TestSQLiteStore_AppendAndRead(t *testing.T) {
	s := newSQLiteStore(t, filepath.Join(t.TempDir(), "primes.db"), 5)
	defer s.Close()

	events, err := s.Append(bigs(2, 3, 5, 7, 11))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].FileIndex)
	assert.Equal(t, 0, events[0].Start)
	assert.Equal(t, 4, events[0].End)

	primes, err := s.Read(1)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 5, 7, 11}, int64s(primes))
}

func TestSQLiteStore_RollsOverAcrossChunks(t *testing.T) {
	s := newSQLiteStore(t, filepath.Join(t.TempDir(), "primes.db"), 3)
	defer s.Close()

	events, err := s.Append(bigs(2, 3, 5, 7, 11, 13, 17))
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, 3, events[2].FileIndex)
	assert.Equal(t, 6, events[2].Start)
	assert.Equal(t, 6, events[2].End)

	infos, err := s.List()
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, 3, infos[0].Count)
	assert.Equal(t, 1, infos[2].Count)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "primes.db")

	s := newSQLiteStore(t, path, 3)
	_, err := s.Append(bigs(2, 3, 5, 7))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s = newSQLiteStore(t, path, 3)
	defer s.Close()

	// The second chunk is partial; writes continue inside it with the
	// prime ordinals picking up where the first session stopped.
	events, err := s.Append(bigs(11, 13))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].FileIndex)
	assert.Equal(t, 4, events[0].Start)
	assert.Equal(t, 5, events[0].End)

	primes, err := s.Read(2)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 11, 13}, int64s(primes))

	last, err := s.Last()
	require.NoError(t, err)
	assert.Equal(t, int64(13), last.Int64())
}

func TestSQLiteStore_ConflictOnStaleChunkRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "primes.db")

	writer := newSQLiteStore(t, path, 3)
	defer writer.Close()
	_, err := writer.Append(bigs(2, 3, 5))
	require.NoError(t, err)

	// A second handle fills chunk 2 behind the first handle's back.
	intruder := newSQLiteStore(t, path, 3)
	_, err = intruder.Append(bigs(7))
	require.NoError(t, err)
	require.NoError(t, intruder.Close())

	_, err = writer.Append(bigs(7))
	var conflict *errors.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 2, conflict.FileIndex)
}

func TestSQLiteStore_EmptyAndClosed(t *testing.T) {
	s := newSQLiteStore(t, filepath.Join(t.TempDir(), "primes.db"), 5)

	_, err := s.Last()
	assert.ErrorIs(t, err, store.ErrEmpty)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "closing twice is harmless")

	_, err = s.Append(bigs(2))
	assert.ErrorIs(t, err, store.ErrStoreClosed)
	_, err = s.List()
	assert.ErrorIs(t, err, store.ErrStoreClosed)
}

func TestSQLiteStore_DefaultCapacity(t *testing.T) {
	s := newSQLiteStore(t, filepath.Join(t.TempDir(), "primes.db"), 0)
	defer s.Close()
	assert.Equal(t, store.DefaultCapacity, s.Capacity())
}
