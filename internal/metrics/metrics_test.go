package metrics_test

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/acquisition"
	"github.com/alejandrodnm/curvewatch/internal/adapters/upstream"
	"github.com/alejandrodnm/curvewatch/internal/backfill"
	"github.com/alejandrodnm/curvewatch/internal/domain"
	"github.com/alejandrodnm/curvewatch/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// El Registry debe poder inyectarse en los tres puntos de observación.
var (
	_ upstream.Observer    = (*metrics.Registry)(nil)
	_ acquisition.Observer = (*metrics.Registry)(nil)
	_ backfill.Observer    = (*metrics.Registry)(nil)
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func TestRegistry_Counters(t *testing.T) {
	r := metrics.New(false)

	r.ObserveRequest(domain.SourceFRED, upstream.OutcomeOK, 120*time.Millisecond)
	r.ObserveRequest(domain.SourceFRED, upstream.OutcomeTransient, time.Second)
	r.ObserveRequest(domain.SourceFRED, upstream.OutcomeOK, 80*time.Millisecond)
	r.BreakerRejected(domain.SourceBoC)
	r.CurveServed(domain.CountryCA, domain.SourceMock)
	r.BackfillRecords(domain.CountryUS, "inserted", 50)
	r.BackfillRecords(domain.CountryUS, "error", 3)

	assert.Equal(t, 2.0, counterValue(t, r.SourceRequests.WithLabelValues("FRED", "ok")))
	assert.Equal(t, 1.0, counterValue(t, r.SourceRequests.WithLabelValues("BOC", metrics.OutcomeBreakerOpen)))
	assert.Equal(t, 1.0, counterValue(t, r.CurvesServed.WithLabelValues("canada", "MOCK")))
	assert.Equal(t, 50.0, counterValue(t, r.BackfillWritten.WithLabelValues("us", "inserted")))

	assert.Equal(t, 3.0, r.Total("curvewatch_source_requests_total", map[string]string{"source": "FRED"}))
	assert.Equal(t, 53.0, r.Total("curvewatch_backfill_records_total", map[string]string{"country": "us"}))
	assert.Equal(t, 0.0, r.Total("curvewatch_backfill_records_total", map[string]string{"country": "canada"}))
}

func TestRegistry_HistogramCount(t *testing.T) {
	r := metrics.New(false)
	r.ObserveRequest(domain.SourceFMP, upstream.OutcomePermanent, 2*time.Second)

	families, err := r.Gather()
	require.NoError(t, err)
	var hist *dto.Histogram
	for _, mf := range families {
		if mf.GetName() == "curvewatch_fetch_duration_seconds" {
			hist = mf.GetMetric()[0].GetHistogram()
		}
	}
	require.NotNil(t, hist)
	assert.Equal(t, uint64(1), hist.GetSampleCount())
	assert.InDelta(t, 2.0, hist.GetSampleSum(), 1e-9)
}

func TestRegistry_Handler(t *testing.T) {
	r := metrics.New(true)
	r.CurveServed(domain.CountryUS, domain.SourceFRED)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `curvewatch_curve_fallbacks_total{country="us",data_source="FRED"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
