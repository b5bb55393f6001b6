// Package metrics provides Prometheus metrics for the RMS meter
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MeterMetrics contains Prometheus metrics for the meter loop
type MeterMetrics struct {
	registry *prometheus.Registry

	blocksTotal      prometheus.Counter
	loudness         prometheus.Gauge
	blockDelta       prometheus.Histogram
	pacingSleep      prometheus.Histogram
	readRetriesTotal prometheus.Counter
	readBytesTotal   prometheus.Counter
	zeroSamplesTotal prometheus.Counter
	errorsTotal      *prometheus.CounterVec
}

// NewMeterMetrics creates and registers new meter metrics
func NewMeterMetrics(registry *prometheus.Registry) (*MeterMetrics, error) {
	m := &MeterMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *MeterMetrics) initMetrics() {
	m.blocksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rmsmeter_blocks_total",
		Help: "Total number of measured blocks",
	})

	m.loudness = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rmsmeter_loudness",
		Help: "Scaled RMS loudness of the last block",
	})

	m.blockDelta = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rmsmeter_block_delta_seconds",
		Help:    "Time between consecutive blocks after pacing",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	})

	m.pacingSleep = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rmsmeter_pacing_sleep_seconds",
		Help:    "Corrective sleeps taken to hold the block interval",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	})

	m.readRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rmsmeter_read_retries_total",
		Help: "Would-block and empty reads retried while filling blocks",
	})

	m.readBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rmsmeter_read_bytes_total",
		Help: "Total bytes read from the input stream",
	})

	m.zeroSamplesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rmsmeter_zero_samples_total",
		Help: "Analyzed samples suppressed by the dead zone",
	})

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rmsmeter_errors_total",
			Help: "Errors that ended the meter loop, by stage",
		},
		[]string{"stage"}, // stage: read, pace, report
	)
}

// RecordBlock records one measured block
func (m *MeterMetrics) RecordBlock(loudness int32, zeroSamples int) {
	m.blocksTotal.Inc()
	m.loudness.Set(float64(loudness))
	m.zeroSamplesTotal.Add(float64(zeroSamples))
}

// RecordRead records the reads that filled one block
func (m *MeterMetrics) RecordRead(bytes, retries int) {
	m.readBytesTotal.Add(float64(bytes))
	m.readRetriesTotal.Add(float64(retries))
}

// RecordPacing records the block delta and any corrective sleep
func (m *MeterMetrics) RecordPacing(delta, slept time.Duration) {
	m.blockDelta.Observe(delta.Seconds())
	if slept > 0 {
		m.pacingSleep.Observe(slept.Seconds())
	}
}

// RecordError counts a loop-ending error in stage
func (m *MeterMetrics) RecordError(stage string) {
	m.errorsTotal.WithLabelValues(stage).Inc()
}

// Describe implements the prometheus.Collector interface
func (m *MeterMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.blocksTotal.Describe(ch)
	m.loudness.Describe(ch)
	m.blockDelta.Describe(ch)
	m.pacingSleep.Describe(ch)
	m.readRetriesTotal.Describe(ch)
	m.readBytesTotal.Describe(ch)
	m.zeroSamplesTotal.Describe(ch)
	m.errorsTotal.Describe(ch)
}

// Collect implements the prometheus.Collector interface
func (m *MeterMetrics) Collect(ch chan<- prometheus.Metric) {
	m.blocksTotal.Collect(ch)
	m.loudness.Collect(ch)
	m.blockDelta.Collect(ch)
	m.pacingSleep.Collect(ch)
	m.readRetriesTotal.Collect(ch)
	m.readBytesTotal.Collect(ch)
	m.zeroSamplesTotal.Collect(ch)
	m.errorsTotal.Collect(ch)
}
