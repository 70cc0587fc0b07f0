package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records generator metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordCandidate records one primality test with its outcome.
	RecordCandidate(ctx context.Context, prime bool, duration time.Duration)

	// RecordCheckpoint records one chunk write.
	RecordCheckpoint(ctx context.Context, fileIndex, primes int, elapsed time.Duration)

	// RecordLoad records a completed checkpoint replay.
	RecordLoad(ctx context.Context, primesLoaded, filesLoaded int, duration time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	candidatesTested  metric.Int64Counter
	primesFound       metric.Int64Counter
	testLatency       metric.Float64Histogram
	checkpointWrites  metric.Int64Counter
	checkpointLatency metric.Float64Histogram
	loadDuration      metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("primegen")

	candidatesTested, err := meter.Int64Counter("primegen.candidates.tested",
		metric.WithDescription("Number of candidates tested for primality"),
	)
	if err != nil {
		return nil, err
	}

	primesFound, err := meter.Int64Counter("primegen.primes.found",
		metric.WithDescription("Number of primes discovered"),
	)
	if err != nil {
		return nil, err
	}

	testLatency, err := meter.Float64Histogram("primegen.test.latency_ms",
		metric.WithDescription("Primality test latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	checkpointWrites, err := meter.Int64Counter("primegen.checkpoint.writes",
		metric.WithDescription("Number of checkpoint chunk writes"),
	)
	if err != nil {
		return nil, err
	}

	checkpointLatency, err := meter.Float64Histogram("primegen.checkpoint.latency_ms",
		metric.WithDescription("Time between checkpoint writes in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	loadDuration, err := meter.Float64Histogram("primegen.load.duration_ms",
		metric.WithDescription("Checkpoint replay duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		candidatesTested:  candidatesTested,
		primesFound:       primesFound,
		testLatency:       testLatency,
		checkpointWrites:  checkpointWrites,
		checkpointLatency: checkpointLatency,
		loadDuration:      loadDuration,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordCandidate records one primality test.
func (m *otelMetrics) RecordCandidate(ctx context.Context, prime bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.Bool("prime", prime),
	}
	m.candidatesTested.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.testLatency.Record(ctx, float64(duration.Microseconds())/1000.0, metric.WithAttributes(attrs...))
	if prime {
		m.primesFound.Add(ctx, 1)
	}
}

// RecordCheckpoint records one chunk write.
func (m *otelMetrics) RecordCheckpoint(ctx context.Context, fileIndex, primes int, elapsed time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.Int("file_index", fileIndex),
	}
	m.checkpointWrites.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.checkpointLatency.Record(ctx, float64(elapsed.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordLoad records a completed checkpoint replay.
func (m *otelMetrics) RecordLoad(ctx context.Context, primesLoaded, filesLoaded int, duration time.Duration) {
	m.loadDuration.Record(ctx, float64(duration.Milliseconds()),
		metric.WithAttributes(
			attribute.Int("primes_loaded", primesLoaded),
			attribute.Int("files_loaded", filesLoaded),
		))
}
