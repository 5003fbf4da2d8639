// Package observability provides Prometheus metrics for map processing.
package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// XRFMetrics contains all Prometheus metrics related to XRF map processing.
type XRFMetrics struct {
	PixelsProcessed *prometheus.CounterVec
	FitErrors       *prometheus.CounterVec

	BlockFitDuration      prometheus.Histogram
	MapFitDuration        prometheus.Histogram
	TotalSpectrumDuration prometheus.Histogram

	ActiveFitsGauge prometheus.Gauge

	registry *prometheus.Registry
}

// NewXRFMetrics creates a new instance of XRFMetrics registered on the given
// registry. It returns an error if metric registration fails.
func NewXRFMetrics(registry *prometheus.Registry) (*XRFMetrics, error) {
	m := &XRFMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register XRF metrics: %w", err)
	}
	return m, nil
}

func (m *XRFMetrics) initMetrics() {
	m.PixelsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xrfmap_pixels_processed_total",
			Help: "Total number of map pixels processed, partitioned by operation.",
		},
		[]string{"operation"},
	)
	m.FitErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xrfmap_fit_errors_total",
			Help: "Total number of failed map processing operations.",
		},
		[]string{"operation"},
	)
	m.BlockFitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "xrfmap_block_fit_duration_seconds",
			Help:    "Time taken to fit a single map block.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)
	m.MapFitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "xrfmap_map_fit_duration_seconds",
			Help:    "Time taken to fit an entire map.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)
	m.TotalSpectrumDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "xrfmap_total_spectrum_duration_seconds",
			Help:    "Time taken to compute a total spectrum.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)
	m.ActiveFitsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "xrfmap_active_fits",
			Help: "Number of map fits currently in progress.",
		},
	)
}

// Describe implements the prometheus.Collector interface.
func (m *XRFMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.PixelsProcessed.Describe(ch)
	m.FitErrors.Describe(ch)
	m.BlockFitDuration.Describe(ch)
	m.MapFitDuration.Describe(ch)
	m.TotalSpectrumDuration.Describe(ch)
	m.ActiveFitsGauge.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *XRFMetrics) Collect(ch chan<- prometheus.Metric) {
	m.PixelsProcessed.Collect(ch)
	m.FitErrors.Collect(ch)
	m.BlockFitDuration.Collect(ch)
	m.MapFitDuration.Collect(ch)
	m.TotalSpectrumDuration.Collect(ch)
	m.ActiveFitsGauge.Collect(ch)
}

// The observation helpers below are nil-safe so metrics stay optional in the
// processing core.

// AddPixels counts processed pixels for an operation.
func (m *XRFMetrics) AddPixels(operation string, n int) {
	if m == nil {
		return
	}
	m.PixelsProcessed.WithLabelValues(operation).Add(float64(n))
}

// CountError counts a failed operation.
func (m *XRFMetrics) CountError(operation string) {
	if m == nil {
		return
	}
	m.FitErrors.WithLabelValues(operation).Inc()
}

// ObserveBlockFit records the duration of one block fit.
func (m *XRFMetrics) ObserveBlockFit(d time.Duration) {
	if m == nil {
		return
	}
	m.BlockFitDuration.Observe(d.Seconds())
}

// ObserveMapFit records the duration of a whole map fit.
func (m *XRFMetrics) ObserveMapFit(d time.Duration) {
	if m == nil {
		return
	}
	m.MapFitDuration.Observe(d.Seconds())
}

// ObserveTotalSpectrum records the duration of a total spectrum computation.
func (m *XRFMetrics) ObserveTotalSpectrum(d time.Duration) {
	if m == nil {
		return
	}
	m.TotalSpectrumDuration.Observe(d.Seconds())
}

// FitStarted marks a fit as in progress.
func (m *XRFMetrics) FitStarted() {
	if m == nil {
		return
	}
	m.ActiveFitsGauge.Inc()
}

// FitFinished marks a fit as finished.
func (m *XRFMetrics) FitFinished() {
	if m == nil {
		return
	}
	m.ActiveFitsGauge.Dec()
}
