// Package observability provides structured logging, metrics, and tracing
// for the prime generator.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"math/big"
	"time"
)

// EnrichLogger adds generator run context to a logger.
func EnrichLogger(logger *slog.Logger, runID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("run_id", runID))
}

// LogRunStart logs the start of a generation run.
func LogRunStart(logger *slog.Logger, runID string) {
	if logger == nil {
		return
	}
	logger.Info("generation run starting",
		slog.String("run_id", runID),
	)
}

// LogRunStopped logs a cooperative stop.
func LogRunStopped(logger *slog.Logger, runID string, primesFound int) {
	if logger == nil {
		return
	}
	logger.Info("generation run stopped",
		slog.String("run_id", runID),
		slog.Int("primes_found", primesFound),
	)
}

// LogRunError logs a fatal run failure with the in-flight candidate.
func LogRunError(logger *slog.Logger, runID string, candidate *big.Int, err error) {
	if logger == nil {
		return
	}
	attrs := []any{
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
	}
	if candidate != nil {
		attrs = append(attrs, slog.String("candidate", candidate.String()))
	}
	logger.Error("generation run failed", attrs...)
}

// LogLoadStart logs the start of checkpoint replay.
func LogLoadStart(logger *slog.Logger, totalFiles int) {
	if logger == nil {
		return
	}
	logger.Info("loading existing checkpoint files",
		slog.Int("total_files", totalFiles),
	)
}

// LogLoadFile logs progress before each checkpoint file is replayed.
func LogLoadFile(logger *slog.Logger, ordinal, totalFiles int) {
	if logger == nil {
		return
	}
	logger.Debug("loading checkpoint file",
		slog.Int("file_ordinal", ordinal),
		slog.Int("total_files", totalFiles),
	)
}

// LogLoadComplete logs the load summary. Zero files means a fresh start.
func LogLoadComplete(logger *slog.Logger, primesLoaded, filesLoaded int, durationMs float64) {
	if logger == nil {
		return
	}
	if filesLoaded == 0 {
		logger.Info("no checkpoint files found, starting from scratch")
		return
	}
	logger.Info("checkpoint files loaded",
		slog.Int("primes_loaded", primesLoaded),
		slog.Int("files_loaded", filesLoaded),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogCheckpoint logs one chunk write.
func LogCheckpoint(logger *slog.Logger, fileIndex, startOrdinal, endOrdinal int, elapsed time.Duration) {
	if logger == nil {
		return
	}
	logger.Info("checkpoint written",
		slog.Int("file_index", fileIndex),
		slog.Int("start_ordinal", startOrdinal),
		slog.Int("end_ordinal", endOrdinal),
		slog.Float64("elapsed_ms", float64(elapsed.Milliseconds())),
	)
}

// LogMemoryLimit logs the transition out of in-memory generation.
func LogMemoryLimit(logger *slog.Logger, budget int, candidate *big.Int) {
	if logger == nil {
		return
	}
	logger.Warn("prime cache budget exhausted",
		slog.Int("budget", budget),
		slog.String("candidate", candidate.String()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
