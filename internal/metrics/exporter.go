package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/hamed0406/statechecker"

// Prometheus bundles a meter provider backed by a private registry with the
// handler that serves it.
type Prometheus struct {
	Provider *sdkmetric.MeterProvider
	Handler  http.Handler
	Recorder Recorder
}

func NewPrometheus() (*Prometheus, error) {
	reg := prometheus.NewRegistry()
	exp, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
	rec, err := New(mp.Meter(meterName))
	if err != nil {
		return nil, fmt.Errorf("metric instruments: %w", err)
	}
	return &Prometheus{
		Provider: mp,
		Handler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Recorder: rec,
	}, nil
}

func (p *Prometheus) Shutdown(ctx context.Context) error {
	return p.Provider.Shutdown(ctx)
}
