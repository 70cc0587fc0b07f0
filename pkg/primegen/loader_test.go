package primegen_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klanderfri/primegen/pkg/primegen"
	"github.com/klanderfri/primegen/pkg/primegen/cancel"
	"github.com/klanderfri/primegen/pkg/primegen/errors"
	"github.com/klanderfri/primegen/pkg/primegen/event"
	"github.com/klanderfri/primegen/pkg/primegen/store"
)

func bigs(values ...int64) []*big.Int {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		out[i] = big.NewInt(v)
	}
	return out
}

func int64s(primes []*big.Int) []int64 {
	out := make([]int64, len(primes))
	for i, p := range primes {
		out[i] = p.Int64()
	}
	return out
}

func TestLoader_FreshStore(t *testing.T) {
	st := store.NewMemoryStore(5)
	defer st.Close()

	bus := event.NewBus()
	var types []event.Type
	bus.SubscribeAll(func(e event.Event) { types = append(types, e.Type) })

	loader := primegen.NewLoader(st, primegen.WithEventBus(bus))
	state, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), state.NextCandidate.Int64())
	assert.Equal(t, 1, state.NextFileIndex)
	assert.Zero(t, state.PrimesLoaded)
	assert.Zero(t, state.FilesLoaded)
	assert.False(t, state.MemoryLimitReached)
	assert.False(t, state.Aborted)
	assert.Equal(t, []event.Type{event.TypeLoadStarted, event.TypeLoadFinished}, types)
}

func TestLoader_ReplaysChunksInOrder(t *testing.T) {
	st := store.NewMemoryStore(5)
	defer st.Close()
	st.Seed(bigs(2, 3, 5, 7, 11), bigs(13, 17))

	bus := event.NewBus()
	var progress []event.LoadProgress
	bus.Subscribe([]event.Type{event.TypeLoadProgress}, func(e event.Event) {
		progress = append(progress, e.Payload.(event.LoadProgress))
	})

	loader := primegen.NewLoader(st, primegen.WithEventBus(bus))
	state, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 7, state.PrimesLoaded)
	assert.Equal(t, 2, state.FilesLoaded)
	assert.Equal(t, int64(18), state.NextCandidate.Int64())
	assert.Equal(t, 2, state.NextFileIndex, "the partial chunk is still open")
	assert.Equal(t, []int64{2, 3, 5, 7, 11, 13, 17}, int64s(state.Cache.Values()))

	require.Len(t, progress, 2)
	assert.Equal(t, event.LoadProgress{FileOrdinal: 1, TotalFiles: 2}, progress[0])
	assert.Equal(t, event.LoadProgress{FileOrdinal: 2, TotalFiles: 2}, progress[1])
}

func TestLoader_NextFileIndexAfterFullChunk(t *testing.T) {
	st := store.NewMemoryStore(3)
	defer st.Close()
	st.Seed(bigs(2, 3, 5))

	state, err := primegen.NewLoader(st).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, state.NextFileIndex)
	assert.Equal(t, int64(6), state.NextCandidate.Int64())
}

func TestLoader_IsIdempotent(t *testing.T) {
	st := store.NewMemoryStore(3)
	defer st.Close()
	st.Seed(bigs(2, 3, 5), bigs(7))

	loader := primegen.NewLoader(st)
	first, err := loader.Load(context.Background())
	require.NoError(t, err)
	second, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64s(first.Cache.Values()), int64s(second.Cache.Values()))
	assert.Zero(t, first.NextCandidate.Cmp(second.NextCandidate))
	assert.Equal(t, first.NextFileIndex, second.NextFileIndex)
}

func TestLoader_PartialMiddleChunkIsCorruption(t *testing.T) {
	st := store.NewMemoryStore(3)
	defer st.Close()
	st.Seed(bigs(2, 3), bigs(5))

	_, err := primegen.NewLoader(st).Load(context.Background())
	var corrupt *errors.CorruptionError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, 1, corrupt.FileIndex)
	assert.Contains(t, corrupt.Reason, "completeness")
}

func TestLoader_DescendingPrimesAreCorruption(t *testing.T) {
	st := store.NewMemoryStore(3)
	defer st.Close()
	st.Seed(bigs(2, 3, 5), bigs(7, 5, 11))

	_, err := primegen.NewLoader(st).Load(context.Background())
	var corrupt *errors.CorruptionError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, 2, corrupt.FileIndex)
	assert.Contains(t, corrupt.Reason, "ascending order")
}

func TestLoader_EmptyChunkStopsReplay(t *testing.T) {
	st := store.NewMemoryStore(3)
	defer st.Close()
	st.Seed(bigs(2, 3, 5), nil, bigs(7, 11, 13))

	state, err := primegen.NewLoader(st).Load(context.Background())
	require.NoError(t, err)

	// Replay keeps everything before the hole and ignores the rest.
	assert.Equal(t, 3, state.PrimesLoaded)
	assert.Equal(t, 1, state.FilesLoaded)
	assert.Equal(t, int64(6), state.NextCandidate.Int64())
	assert.Equal(t, 2, state.NextFileIndex,
		"the next write lands in the empty chunk, not past the ignored tail")
}

func TestLoader_BudgetExhaustionRecoversCandidateFromDisk(t *testing.T) {
	st := store.NewMemoryStore(3)
	defer st.Close()
	st.Seed(bigs(2, 3, 5), bigs(7, 11))

	bus := event.NewBus()
	finished := 0
	bus.Subscribe([]event.Type{event.TypeLoadFinished}, func(event.Event) { finished++ })

	loader := primegen.NewLoader(st,
		primegen.WithEventBus(bus),
		primegen.WithCacheBudget(2),
	)
	state, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.True(t, state.MemoryLimitReached)
	assert.Equal(t, 2, state.PrimesLoaded)
	assert.Equal(t, int64(12), state.NextCandidate.Int64(),
		"the candidate comes from the final stored prime, not the truncated replay")
	assert.Equal(t, 1, finished)
}

func TestLoader_RecoveredCandidateBelowReplayIsCorruption(t *testing.T) {
	st := store.NewMemoryStore(3)
	defer st.Close()
	// The final stored value regressed below what the replay already saw.
	st.Seed(bigs(2, 3, 5), bigs(7, 2))

	loader := primegen.NewLoader(st, primegen.WithCacheBudget(2))
	_, err := loader.Load(context.Background())

	var corrupt *errors.CorruptionError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, errors.KindCorruption, errors.KindOf(err))
}

func TestLoader_AbortBetweenFiles(t *testing.T) {
	st := store.NewMemoryStore(3)
	defer st.Close()
	st.Seed(bigs(2, 3, 5), bigs(7, 11, 13))

	flag := cancel.NewFlag()
	flag.Request()

	bus := event.NewBus()
	finished := 0
	bus.Subscribe([]event.Type{event.TypeLoadFinished}, func(event.Event) { finished++ })

	loader := primegen.NewLoader(st,
		primegen.WithEventBus(bus),
		primegen.WithCancelPoller(flag),
	)
	state, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.True(t, state.Aborted)
	assert.Equal(t, 1, state.FilesLoaded, "the stop is honored at the file boundary")
	assert.Zero(t, finished, "an aborted load does not report completion")
}
