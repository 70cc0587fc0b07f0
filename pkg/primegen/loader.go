package primegen

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/klanderfri/primegen/pkg/primegen/cache"
	"github.com/klanderfri/primegen/pkg/primegen/errors"
	"github.com/klanderfri/primegen/pkg/primegen/event"
	"github.com/klanderfri/primegen/pkg/primegen/observability"
	"github.com/klanderfri/primegen/pkg/primegen/store"
)

var one = big.NewInt(1)

// State is the generation state reconstructed from checkpoint files.
type State struct {
	// Cache holds the replayed primes in ascending order.
	Cache *cache.Cache

	// NextCandidate is the next integer to test.
	NextCandidate *big.Int

	// NextFileIndex is the chunk with room for more primes: the highest
	// partial chunk, the index after the highest full chunk, or 1.
	NextFileIndex int

	// MemoryLimitReached is set when the cache budget was exhausted while
	// replaying. NextCandidate is then recovered from the final stored
	// prime instead of the replay stream.
	MemoryLimitReached bool

	// Aborted is set when a cancellation was observed between files.
	// The caller must not proceed to generation.
	Aborted bool

	// FilesLoaded and PrimesLoaded summarize the replay.
	FilesLoaded  int
	PrimesLoaded int
}

// Loader reconstructs generation state from a store's checkpoint chunks.
// Chunks are trusted once structurally validated; primality is not
// re-verified.
type Loader struct {
	store store.Store
	set   settings
}

// NewLoader creates a loader over st.
func NewLoader(st store.Store, opts ...Option) *Loader {
	return &Loader{store: st, set: newSettings(opts)}
}

// Load replays the store's chunks into a fresh cache.
func (l *Loader) Load(ctx context.Context) (*State, error) {
	runID := l.set.runID
	if runID == "" {
		runID = uuid.New().String()
	}
	return l.load(ctx, runID, observability.EnrichLogger(l.set.logger, runID))
}

func (l *Loader) load(ctx context.Context, runID string, logger *slog.Logger) (*State, error) {
	infos, err := l.store.List()
	if err != nil {
		return nil, fmt.Errorf("list checkpoint files: %w", err)
	}

	lctx, span := l.set.spans.StartLoadSpan(ctx)
	done := observability.TimedOperation()
	loadStart := time.Now()

	l.set.bus.Publish(event.New(event.TypeLoadStarted, runID, nil))
	observability.LogLoadStart(logger, len(infos))

	state := &State{
		Cache:         cache.New(l.set.cacheBudget),
		NextCandidate: big.NewInt(2),
		NextFileIndex: nextFileIndex(infos, l.store.Capacity()),
	}

	var prev *big.Int
	for ordinal, info := range infos {
		l.set.bus.Publish(event.New(event.TypeLoadProgress, runID, event.LoadProgress{
			FileOrdinal: ordinal + 1,
			TotalFiles:  len(infos),
		}))
		observability.LogLoadFile(logger, ordinal+1, len(infos))

		primes, err := l.store.Read(info.Index)
		if err != nil {
			l.set.spans.EndSpanWithError(span, err)
			return nil, err
		}

		// An empty chunk where primes were expected is abnormal but not
		// fatal: stop here and hand back the best state so far. The empty
		// chunk has room, so it is where the next write lands; anything
		// past it was never replayed and must not be pointed at.
		if len(primes) == 0 {
			state.NextFileIndex = info.Index
			break
		}

		// Every chunk below the highest must be complete, or the sequence
		// has a hole that generation would silently skip over.
		if ordinal < len(infos)-1 && len(primes) < l.store.Capacity() {
			err := &errors.CorruptionError{
				FileIndex: info.Index,
				Path:      info.Path,
				Reason: fmt.Sprintf("completeness violated: holds %d primes but a later file exists (capacity %d)",
					len(primes), l.store.Capacity()),
			}
			l.set.spans.EndSpanWithError(span, err)
			return nil, err
		}

		for _, p := range primes {
			if prev != nil && p.Cmp(prev) <= 0 {
				err := &errors.CorruptionError{
					FileIndex: info.Index,
					Path:      info.Path,
					Reason:    fmt.Sprintf("ascending order violated: %s follows %s", p, prev),
				}
				l.set.spans.EndSpanWithError(span, err)
				return nil, err
			}

			if err := state.Cache.Append(p); err != nil {
				if stderrors.Is(err, errors.ErrBudgetExhausted) {
					if err := l.recoverCandidate(state, info); err != nil {
						l.set.spans.EndSpanWithError(span, err)
						return nil, err
					}
					l.finish(lctx, runID, logger, state, loadStart, done, span)
					return state, nil
				}
				l.set.spans.EndSpanWithError(span, err)
				return nil, err
			}

			prev = p
			state.PrimesLoaded++
			state.NextCandidate = new(big.Int).Add(p, one)
		}
		state.FilesLoaded++

		if l.set.cancel.PollCancelRequested() {
			state.Aborted = true
			l.set.spans.EndSpanWithError(span, nil)
			return state, nil
		}
	}

	l.finish(lctx, runID, logger, state, loadStart, done, span)
	return state, nil
}

// recoverCandidate restores NextCandidate after a budget-exhausted replay by
// re-reading only the final stored prime. The recovered candidate must be at
// least the one derived incrementally from the stream, or the files are
// mutually inconsistent.
func (l *Loader) recoverCandidate(state *State, info store.FileInfo) error {
	state.MemoryLimitReached = true

	last, err := l.store.Last()
	if err != nil {
		return fmt.Errorf("recover candidate after cache budget exhaustion: %w", err)
	}
	recovered := new(big.Int).Add(last, one)
	if recovered.Cmp(state.NextCandidate) < 0 {
		return &errors.CorruptionError{
			FileIndex: info.Index,
			Path:      info.Path,
			Reason: fmt.Sprintf("ascending order or completeness violated: final stored prime %s is below replayed prime %s",
				last, new(big.Int).Sub(state.NextCandidate, one)),
		}
	}
	state.NextCandidate = recovered
	return nil
}

func (l *Loader) finish(ctx context.Context, runID string, logger *slog.Logger, state *State, start time.Time, done func() float64, span trace.Span) {
	l.set.bus.Publish(event.New(event.TypeLoadFinished, runID, event.LoadFinished{
		PrimesLoaded: state.PrimesLoaded,
		FilesLoaded:  state.FilesLoaded,
	}))
	observability.LogLoadComplete(logger, state.PrimesLoaded, state.FilesLoaded, done())
	l.set.metrics.RecordLoad(ctx, state.PrimesLoaded, state.FilesLoaded, time.Since(start))
	l.set.spans.EndSpanWithError(span, nil)
}

// nextFileIndex computes where the store will write next: the highest chunk
// with room, the index after the highest full chunk, or 1 with no chunks.
func nextFileIndex(infos []store.FileInfo, capacity int) int {
	if len(infos) == 0 {
		return 1
	}
	last := infos[len(infos)-1]
	if last.Count < capacity {
		return last.Index
	}
	return last.Index + 1
}
