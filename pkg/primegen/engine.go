package primegen

import (
	"context"
	stderrors "errors"
	"log/slog"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/klanderfri/primegen/pkg/primegen/errors"
	"github.com/klanderfri/primegen/pkg/primegen/event"
	"github.com/klanderfri/primegen/pkg/primegen/observability"
	"github.com/klanderfri/primegen/pkg/primegen/prime"
	"github.com/klanderfri/primegen/pkg/primegen/store"
)

// Engine drives prime discovery: it replays existing checkpoints, tests
// candidates against the in-memory cache, and flushes each full batch of
// newly found primes through the store.
//
// A single control goroutine owns the engine for the duration of Run; the
// only internal parallelism is the tester's worker pool. Phase may be read
// from other goroutines.
type Engine struct {
	store  store.Store
	set    settings
	tester *prime.Tester
	phase  atomic.Int32
}

// Report summarizes a completed (or stopped, or failed) run.
type Report struct {
	// RunID identifies the run in logs, spans, and events.
	RunID string

	// Phase is the state the run ended in.
	Phase Phase

	// PrimesLoaded is the number of primes replayed from checkpoints.
	PrimesLoaded int

	// PrimesFound is the number of primes discovered by this run.
	PrimesFound int

	// LastPrime is the largest prime known at the end of the run, nil if
	// none were loaded or found.
	LastPrime *big.Int

	// CheckpointsWritten counts chunk writes performed by this run.
	CheckpointsWritten int

	// Duration is the total wall-clock run time.
	Duration time.Duration
}

// New creates an engine persisting through st.
func New(st store.Store, opts ...Option) *Engine {
	set := newSettings(opts)
	return &Engine{
		store:  st,
		set:    set,
		tester: prime.New(set.workers),
	}
}

// Phase returns the engine's current state.
func (e *Engine) Phase() Phase {
	return Phase(e.phase.Load())
}

func (e *Engine) setPhase(p Phase) {
	e.phase.Store(int32(p))
}

// Run executes the generation state machine until cancelled or a fatal
// error occurs. A cooperative stop is not an error: the report's Phase is
// PhaseStopped and err is nil.
//
// Every fatal error except the internal cache-budget signal propagates to
// the caller carrying the in-flight candidate (errors.CandidateOf); durable
// diagnostic logging is the caller's responsibility.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	runID := e.set.runID
	if runID == "" {
		runID = uuid.New().String()
	}
	logger := observability.EnrichLogger(e.set.logger, runID)

	start := time.Now()
	e.store.SetStartTime(start)
	report := &Report{RunID: runID}

	observability.LogRunStart(logger, runID)
	rctx, runSpan := e.set.spans.StartRunSpan(ctx, runID)

	e.setPhase(PhaseLoading)
	loader := &Loader{store: e.store, set: e.set}
	state, err := loader.load(rctx, runID, logger)
	if err != nil {
		e.setPhase(PhaseStopped)
		observability.LogRunError(logger, runID, nil, err)
		e.set.spans.EndSpanWithError(runSpan, err)
		e.finalize(report, state, start)
		return report, err
	}
	report.PrimesLoaded = state.PrimesLoaded

	if state.Aborted {
		e.setPhase(PhaseStopped)
		observability.LogRunStopped(logger, runID, 0)
		e.set.spans.EndSpanWithError(runSpan, nil)
		e.finalize(report, state, start)
		return report, nil
	}

	e.set.bus.Publish(event.New(event.TypeGenerationStarted, runID, nil))

	if state.MemoryLimitReached {
		// Everything in the cache came from disk, so there is no
		// unflushed tail; the flush keeps the transition uniform.
		if err := e.flush(rctx, runID, logger, nil, report); err != nil {
			return e.fail(rctx, runSpan, logger, report, state, start, state.NextCandidate, err)
		}
		return e.enterDiskGeneration(runSpan, logger, report, state, start, state.NextCandidate)
	}

	return e.generate(rctx, runSpan, logger, report, state, start)
}

// generate is the MemoryGeneration loop.
func (e *Engine) generate(ctx context.Context, runSpan trace.Span, logger *slog.Logger, report *Report, state *State, start time.Time) (*Report, error) {
	e.setPhase(PhaseMemoryGeneration)

	flushed := state.Cache.Len() // primes already durable on disk
	candidate := new(big.Int).Set(state.NextCandidate)
	capacity := e.store.Capacity()

	for {
		// Cancellation is polled once per iteration; the test for the
		// current candidate always completes before a stop is honored.
		if e.set.cancel.PollCancelRequested() {
			e.setPhase(PhaseStopped)
			observability.LogRunStopped(logger, report.RunID, report.PrimesFound)
			e.set.spans.EndSpanWithError(runSpan, nil)
			e.finalize(report, state, start)
			return report, nil
		}

		testStart := time.Now()
		isPrime, err := e.tester.Test(ctx, state.Cache.Values(), candidate)
		e.set.metrics.RecordCandidate(ctx, isPrime, time.Since(testStart))
		if err != nil {
			return e.fail(ctx, runSpan, logger, report, state, start, candidate, err)
		}

		if isPrime {
			p := new(big.Int).Set(candidate)
			if err := state.Cache.Append(p); err != nil {
				if stderrors.Is(err, errors.ErrBudgetExhausted) {
					return e.overflow(ctx, runSpan, logger, report, state, start, flushed, p)
				}
				return e.fail(ctx, runSpan, logger, report, state, start, candidate, err)
			}
			report.PrimesFound++

			if state.Cache.Len()-flushed >= capacity {
				batch := state.Cache.Values()[flushed : flushed+capacity]
				if err := e.flush(ctx, report.RunID, logger, batch, report); err != nil {
					return e.fail(ctx, runSpan, logger, report, state, start, candidate, err)
				}
				flushed += capacity
			}
		}

		candidate.Add(candidate, one)
	}
}

// overflow is the Overflowing state: the cache refused to grow while
// inserting p. The tail since the last checkpoint is flushed, then p itself.
// p passed the primality test earlier in this same iteration; an untested
// value is never persisted.
func (e *Engine) overflow(ctx context.Context, runSpan trace.Span, logger *slog.Logger, report *Report, state *State, start time.Time, flushed int, p *big.Int) (*Report, error) {
	e.setPhase(PhaseOverflowing)
	observability.LogMemoryLimit(logger, state.Cache.Budget(), p)

	if err := e.flush(ctx, report.RunID, logger, state.Cache.Since(flushed), report); err != nil {
		return e.fail(ctx, runSpan, logger, report, state, start, p, err)
	}
	if err := e.flush(ctx, report.RunID, logger, []*big.Int{p}, report); err != nil {
		return e.fail(ctx, runSpan, logger, report, state, start, p, err)
	}
	report.PrimesFound++
	state.NextCandidate = new(big.Int).Add(p, one)

	rep, err := e.enterDiskGeneration(runSpan, logger, report, state, start, state.NextCandidate)
	rep.LastPrime = p
	return rep, err
}

// enterDiskGeneration surfaces the unimplemented disk-backed path.
func (e *Engine) enterDiskGeneration(runSpan trace.Span, logger *slog.Logger, report *Report, state *State, start time.Time, candidate *big.Int) (*Report, error) {
	e.setPhase(PhaseDiskGeneration)

	err := errors.WithCandidate(candidate, &errors.UnsupportedError{
		Op:     "disk-backed generation",
		Detail: "the in-memory prime cache cannot grow further",
	})
	observability.LogRunError(logger, report.RunID, candidate, err)
	e.set.spans.EndSpanWithError(runSpan, err)
	e.finalize(report, state, start)
	return report, err
}

// fail terminates the run on a fatal error, attaching the in-flight
// candidate for the caller's diagnostics.
func (e *Engine) fail(_ context.Context, runSpan trace.Span, logger *slog.Logger, report *Report, state *State, start time.Time, candidate *big.Int, err error) (*Report, error) {
	e.setPhase(PhaseStopped)

	werr := errors.WithCandidate(candidate, err)
	observability.LogRunError(logger, report.RunID, candidate, err)
	e.set.spans.EndSpanWithError(runSpan, werr)
	e.finalize(report, state, start)
	return report, werr
}

// flush appends primes through the store and publishes one
// checkpoint-written event per chunk write, after the bytes are durable.
// Events for writes that succeeded before an error are still published.
func (e *Engine) flush(ctx context.Context, runID string, logger *slog.Logger, primes []*big.Int, report *Report) error {
	if len(primes) == 0 {
		return nil
	}

	fctx, span := e.set.spans.StartFlushSpan(ctx, len(primes))
	events, err := e.store.Append(primes)
	for _, ev := range events {
		e.set.bus.Publish(event.New(event.TypeCheckpointWritten, runID, event.CheckpointWritten{
			FileIndex:    ev.FileIndex,
			StartOrdinal: ev.Start,
			EndOrdinal:   ev.End,
			CompletedAt:  ev.CompletedAt,
			Elapsed:      ev.Elapsed,
		}))
		observability.LogCheckpoint(logger, ev.FileIndex, ev.Start, ev.End, ev.Elapsed)
		e.set.metrics.RecordCheckpoint(fctx, ev.FileIndex, ev.End-ev.Start+1, ev.Elapsed)
		report.CheckpointsWritten++
	}
	e.set.spans.EndSpanWithError(span, err)
	return err
}

func (e *Engine) finalize(report *Report, state *State, start time.Time) {
	report.Phase = e.Phase()
	report.Duration = time.Since(start)
	if state != nil {
		if max := state.Cache.Max(); max != nil {
			report.LastPrime = max
		}
	}
}
