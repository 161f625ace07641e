package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangecast/rangecast/internal/band"
	"github.com/rangecast/rangecast/internal/estimator"
)

func TestNewSinkRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	sink, err := NewSink(reg)
	require.NoError(t, err)
	require.NotNil(t, sink)

	// Registering again on the same registry reuses existing collectors.
	again, err := NewSink(reg)
	require.NoError(t, err)
	require.NotNil(t, again)
}

func TestObserveRun(t *testing.T) {
	sink, err := NewSink(nil)
	require.NoError(t, err)

	sink.ObserveRun(&estimator.RunResult{
		Duration:            40 * time.Second,
		ConsumptionKWhPerKm: 0.185,
		Bands: []estimator.BandResult{
			{Band: band.DefaultBands()[0], DistanceKm: 406.5},
		},
	})
	sink.ObserveBand("100%", "ok", 406.5)
	sink.ObserveFailedRun()

	rec := httptest.NewRecorder()
	sink.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	body := rec.Body.String()
	assert.Contains(t, body, `rangecast_runs_total{outcome="ok"} 1`)
	assert.Contains(t, body, `rangecast_runs_total{outcome="failed"} 1`)
	assert.Contains(t, body, `rangecast_band_queries_total{band="100%",outcome="ok"} 1`)
	assert.Contains(t, body, `rangecast_estimated_range_km{band="100%"} 406.5`)
	assert.Contains(t, body, `rangecast_consumption_kwh_per_km 0.185`)
}

func TestObserveRunPartialOutcome(t *testing.T) {
	sink, err := NewSink(nil)
	require.NoError(t, err)

	sink.ObserveRun(&estimator.RunResult{Partial: true})

	rec := httptest.NewRecorder()
	sink.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	assert.Contains(t, rec.Body.String(), `rangecast_runs_total{outcome="partial"} 1`)
}
