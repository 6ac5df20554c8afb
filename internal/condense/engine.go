package condense

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/trace"

	"github.com/haasonsaas/condense/internal/observability"
	"github.com/haasonsaas/condense/pkg/models"
)

// engineMetrics are the Prometheus series the Engine exports, following
// the naming and registration conventions the rest of this codebase uses
// for its Prometheus metrics.
type engineMetrics struct {
	fixpointIterations prometheus.Histogram
	eventsDropped      prometheus.Counter
	condensations      *prometheus.CounterVec
	summarizerDuration prometheus.Histogram
}

func newEngineMetrics() *engineMetrics {
	return &engineMetrics{
		fixpointIterations: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "condense_fixpoint_iterations",
			Help:    "Number of property-enforcement iterations DeriveView needed to converge",
			Buckets: []float64{1, 2, 3, 4, 5, 10},
		}),
		eventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "condense_events_dropped_total",
			Help: "Total number of events dropped by property enforcers or condensations",
		}),
		condensations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "condense_condensations_total",
			Help: "Total number of condensations emitted, by kind",
		}, []string{"kind"}),
		summarizerDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "condense_summarizer_duration_seconds",
			Help:    "Duration of summarizer LLM calls in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Engine is the public facade over the event log, view derivation, and
// rolling condensation: the single entry point embedding applications use.
type Engine struct {
	log       *EventLog
	condenser *RollingCondenser
	logger    *slog.Logger
	tracer    *observability.Tracer
	metrics   *engineMetrics
}

// EngineOption configures an Engine at construction time.
type EngineOption func(*Engine)

// WithLogger overrides the engine's structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithTracer attaches an OpenTelemetry tracer for DeriveView/MaybeCondense spans.
func WithTracer(tracer *observability.Tracer) EngineOption {
	return func(e *Engine) { e.tracer = tracer }
}

// NewEngine builds an Engine around a RollingCondenser configuration and
// an LLMHandle used both for token accounting and summarization.
func NewEngine(config RollingCondenserConfig, handle LLMHandle, opts ...EngineOption) (*Engine, error) {
	logger := slog.Default()
	condenser, err := NewRollingCondenser(config, handle, logger)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		log:       NewEventLog(),
		condenser: condenser,
		logger:    logger,
		metrics:   newEngineMetrics(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Append records a new event to the engine's log.
func (e *Engine) Append(ev models.Event) {
	e.log.Append(ev)
}

// RequestCondensation appends a CondensationRequest, asking the next
// DeriveView/MaybeCondense pass to treat the view as needing condensation
// regardless of size or budget (spec.md §6).
func (e *Engine) RequestCondensation(id models.EventID, source models.EventSource) {
	e.log.Append(models.NewCondensationRequest(id, source))
}

// DeriveView derives the current view from the engine's event log.
func (e *Engine) DeriveView(ctx context.Context) *View {
	if e.tracer != nil {
		_, span := e.tracer.Start(ctx, "condense.derive_view")
		defer span.End()
	}
	view := DeriveView(e.log.Snapshot(), e.logger)
	e.metrics.fixpointIterations.Observe(float64(view.Iterations))
	return view
}

// MaybeCondense runs the rolling condenser against view and, if it emits a
// Condensation, appends it to the engine's log and returns it.
func (e *Engine) MaybeCondense(ctx context.Context, view *View, newID models.EventID) (*models.Condensation, error) {
	if e.tracer != nil {
		var span trace.Span
		ctx, span = e.tracer.Start(ctx, "condense.maybe_condense")
		defer span.End()
	}

	start := time.Now()
	condensation, err := e.condenser.MaybeCondense(ctx, view, newID)
	e.metrics.summarizerDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		e.logger.Warn("condense: summarization failed", slog.String("error", err.Error()))
		return nil, err
	}
	if condensation == nil {
		return nil, nil
	}

	kind := "rolling"
	if condensation.IsHardReset() {
		kind = "hard_reset"
	}
	e.metrics.condensations.WithLabelValues(kind).Inc()
	e.metrics.eventsDropped.Add(float64(len(condensation.ForgottenEventIDs)))

	e.log.Append(condensation)
	return condensation, nil
}

// ManipulationIndices returns the admissible manipulation boundaries for
// the current derived view.
func (e *Engine) ManipulationIndices(ctx context.Context) ManipulationIndices {
	return e.DeriveView(ctx).ManipulationIndices
}
