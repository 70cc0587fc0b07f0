package primegen

import (
	"log/slog"

	"github.com/klanderfri/primegen/pkg/primegen/cancel"
	"github.com/klanderfri/primegen/pkg/primegen/event"
	"github.com/klanderfri/primegen/pkg/primegen/observability"
)

// settings holds the wiring shared by the Engine and the Loader.
type settings struct {
	bus         *event.Bus
	logger      *slog.Logger
	metrics     observability.MetricsRecorder
	spans       observability.SpanManager
	cancel      cancel.Poller
	cacheBudget int
	workers     int
	runID       string
}

func newSettings(opts []Option) settings {
	s := settings{
		bus:     event.NewBus(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
		cancel:  cancel.None,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures an Engine or a Loader.
type Option func(*settings)

// WithEventBus publishes progress events to bus instead of a private one.
// Subscribe before Run to observe load and checkpoint events.
func WithEventBus(bus *event.Bus) Option {
	return func(s *settings) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// WithLogger enables structured logging. A nil logger disables it.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithMetrics enables metrics recording.
func WithMetrics(metrics observability.MetricsRecorder) Option {
	return func(s *settings) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithSpanManager enables tracing.
func WithSpanManager(spans observability.SpanManager) Option {
	return func(s *settings) {
		if spans != nil {
			s.spans = spans
		}
	}
}

// WithCancelPoller installs the cooperative cancellation capability.
// The default never cancels.
func WithCancelPoller(poller cancel.Poller) Option {
	return func(s *settings) {
		if poller != nil {
			s.cancel = poller
		}
	}
}

// WithCacheBudget bounds the in-memory prime cache to max elements.
// 0 (the default) means unbounded. Exhausting the budget triggers the
// transition out of in-memory generation.
func WithCacheBudget(max int) Option {
	return func(s *settings) {
		s.cacheBudget = max
	}
}

// WithWorkers bounds the trial-division worker pool.
// 0 (the default) selects runtime.NumCPU().
func WithWorkers(workers int) Option {
	return func(s *settings) {
		s.workers = workers
	}
}

// WithRunID fixes the run ID instead of generating one per Run.
func WithRunID(runID string) Option {
	return func(s *settings) {
		s.runID = runID
	}
}
