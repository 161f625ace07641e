// Package metrics records estimation outcomes in Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rangecast/rangecast/internal/estimator"
)

// Sink records run and band outcomes. Implements estimator.MetricsSink.
type Sink struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	bandQueries *prometheus.CounterVec
	rangeKm     *prometheus.GaugeVec
	consumption prometheus.Gauge
}

// NewSink registers the estimation collectors on the provided registerer.
// If reg is nil a fresh registry is created. Already-registered collectors
// are reused so repeated construction is safe.
func NewSink(reg *prometheus.Registry) (*Sink, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rangecast_runs_total",
		Help: "Total number of estimation runs",
	}, []string{"outcome"})
	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rangecast_run_duration_seconds",
		Help:    "Wall-clock duration of estimation runs",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 180},
	})
	bandQueries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rangecast_band_queries_total",
		Help: "Per-band contour query outcomes",
	}, []string{"band", "outcome"})
	rangeKm := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rangecast_estimated_range_km",
		Help: "Latest estimated range per energy band",
	}, []string{"band"})
	consumption := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rangecast_consumption_kwh_per_km",
		Help: "Latest blended consumption figure",
	})

	collectors := []prometheus.Collector{runs, runDuration, bandQueries, rangeKm, consumption}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			collectors[i] = are.ExistingCollector
		}
	}

	return &Sink{
		registry:    reg,
		runs:        collectors[0].(*prometheus.CounterVec),
		runDuration: collectors[1].(prometheus.Histogram),
		bandQueries: collectors[2].(*prometheus.CounterVec),
		rangeKm:     collectors[3].(*prometheus.GaugeVec),
		consumption: collectors[4].(prometheus.Gauge),
	}, nil
}

// ObserveRun records run-level outcomes.
func (s *Sink) ObserveRun(result *estimator.RunResult) {
	outcome := "ok"
	if result.Partial {
		outcome = "partial"
	}
	s.runs.WithLabelValues(outcome).Inc()
	s.runDuration.Observe(result.Duration.Seconds())
	s.consumption.Set(result.ConsumptionKWhPerKm)
	for _, b := range result.Bands {
		s.rangeKm.WithLabelValues(b.Band.Label).Set(b.DistanceKm)
	}
}

// ObserveBand records one band query outcome.
func (s *Sink) ObserveBand(label, outcome string, _ float64) {
	s.bandQueries.WithLabelValues(label, outcome).Inc()
}

// ObserveFailedRun counts a run that could not start.
func (s *Sink) ObserveFailedRun() {
	s.runs.WithLabelValues("failed").Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
