package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hamed0406/statechecker/internal/domain"
)

// Recorder records scheduler activity.
//
// Implementations must be safe for concurrent use and must not panic.
type Recorder interface {
	TickCompleted(ctx context.Context, duration time.Duration, err error)
	Evaluated(ctx context.Context, kind domain.Kind, up bool)
	Transition(ctx context.Context, kind domain.Kind, dir domain.Direction)
	DispatchFailed(ctx context.Context, audience string)
}

type otelRecorder struct {
	ticks       metric.Int64Counter
	tickErrors  metric.Int64Counter
	tickLatency metric.Float64Histogram
	evaluations metric.Int64Counter
	transitions metric.Int64Counter
	dispatchErr metric.Int64Counter
}

// New creates the instruments on meter.
func New(meter metric.Meter) (Recorder, error) {
	ticks, err := meter.Int64Counter(
		"statechecker.ticks",
		metric.WithDescription("Completed scheduler ticks"),
		metric.WithUnit("{tick}"),
	)
	if err != nil {
		return nil, err
	}
	tickErrors, err := meter.Int64Counter(
		"statechecker.tick.errors",
		metric.WithDescription("Ticks that failed and were recovered"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}
	tickLatency, err := meter.Float64Histogram(
		"statechecker.tick.duration_ms",
		metric.WithDescription("Tick duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	evaluations, err := meter.Int64Counter(
		"statechecker.evaluations",
		metric.WithDescription("Subject evaluations by kind and result"),
		metric.WithUnit("{evaluation}"),
	)
	if err != nil {
		return nil, err
	}
	transitions, err := meter.Int64Counter(
		"statechecker.transitions",
		metric.WithDescription("Emitted down/up transitions"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}
	dispatchErr, err := meter.Int64Counter(
		"statechecker.dispatch.errors",
		metric.WithDescription("Notifications that could not be delivered"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}
	return &otelRecorder{
		ticks:       ticks,
		tickErrors:  tickErrors,
		tickLatency: tickLatency,
		evaluations: evaluations,
		transitions: transitions,
		dispatchErr: dispatchErr,
	}, nil
}

func (r *otelRecorder) TickCompleted(ctx context.Context, d time.Duration, err error) {
	r.ticks.Add(ctx, 1)
	if err != nil {
		r.tickErrors.Add(ctx, 1)
	}
	r.tickLatency.Record(ctx, float64(d.Milliseconds()))
}

func (r *otelRecorder) Evaluated(ctx context.Context, kind domain.Kind, up bool) {
	r.evaluations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.Bool("up", up),
	))
}

func (r *otelRecorder) Transition(ctx context.Context, kind domain.Kind, dir domain.Direction) {
	r.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("direction", string(dir)),
	))
}

func (r *otelRecorder) DispatchFailed(ctx context.Context, audience string) {
	r.dispatchErr.Add(ctx, 1, metric.WithAttributes(attribute.String("audience", audience)))
}

type noop struct{}

// Noop returns a Recorder that does nothing.
func Noop() Recorder { return noop{} }

func (noop) TickCompleted(context.Context, time.Duration, error) {}
func (noop) Evaluated(context.Context, domain.Kind, bool) {}
func (noop) Transition(context.Context, domain.Kind, domain.Direction) {}
func (noop) DispatchFailed(context.Context, string) {}
