// Package observability provides Prometheus metrics for the RMS meter.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pifon/rmsmeter/internal/logger"
	"github.com/pifon/rmsmeter/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Meter    *metrics.MeterMetrics
}

// NewMetrics creates a registry with process, Go runtime and meter collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register Go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("failed to register process collector: %w", err)
	}

	meterMetrics, err := metrics.NewMeterMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create meter metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Meter:    meterMetrics,
	}, nil
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterHandlers registers the metrics endpoint with the provided http.ServeMux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      promErrorLogger{},
		ErrorHandling: promhttp.HTTPErrorOnError,
	}))
}

// promErrorLogger routes promhttp errors to the telemetry logger
type promErrorLogger struct{}

func (promErrorLogger) Println(v ...any) {
	GetLogger().Error("metrics handler error", logger.String("detail", fmt.Sprint(v...)))
}
