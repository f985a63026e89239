// Package metrics exposes licensing health counters for the local
// diagnostics endpoint. The collector owns its own registry so tests can
// instantiate it without global state.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	validationTotal *prometheus.CounterVec
	probeDuration   *prometheus.HistogramVec
	expirySeconds   prometheus.Gauge
	lastValidation  prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		validationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_license_validation_total",
			Help: "License validation outcomes by result.",
		}, []string{"outcome"}),
		probeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pos_fingerprint_probe_duration_seconds",
			Help:    "Duration of individual hardware identifier probes.",
			Buckets: []float64{0.01, 0.05, 0.25, 1, 2, 4, 8},
		}, []string{"probe"}),
		expirySeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pos_license_expiry_seconds",
			Help: "Seconds until the active license expires (negative if past).",
		}),
		lastValidation: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pos_license_last_validation_timestamp_seconds",
			Help: "Unix time of the most recent validation attempt.",
		}),
	}

	c.registry.MustRegister(c.validationTotal, c.probeDuration, c.expirySeconds, c.lastValidation)
	return c
}

// Handler serves the collector's registry for GET /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveValidation records one validation outcome ("ok" or a failure reason).
func (c *Collector) ObserveValidation(outcome string) {
	c.validationTotal.WithLabelValues(outcome).Inc()
	c.lastValidation.SetToCurrentTime()
}

func (c *Collector) ObserveProbe(probe string, d time.Duration) {
	c.probeDuration.WithLabelValues(probe).Observe(d.Seconds())
}

func (c *Collector) SetSecondsToExpiry(s float64) {
	c.expirySeconds.Set(s)
}
