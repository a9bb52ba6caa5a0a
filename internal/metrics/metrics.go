// Package metrics exposes the Prometheus instruments of curvewatch. A Registry
// implements the observer interfaces of the upstream client, the acquisition
// coordinator and the backfill pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// OutcomeBreakerOpen is recorded when a breaker rejects a call before it is made.
const OutcomeBreakerOpen = "breaker_open"

// Registry holds every curvewatch metric on its own prometheus.Registry.
type Registry struct {
	reg *prometheus.Registry

	SourceRequests  *prometheus.CounterVec
	FetchDuration   *prometheus.HistogramVec
	CurvesServed    *prometheus.CounterVec
	BackfillWritten *prometheus.CounterVec
}

// New creates and registers all metrics. withRuntime adds the Go and process collectors.
func New(withRuntime bool) *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		SourceRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curvewatch_source_requests_total",
				Help: "Upstream requests by source and outcome",
			},
			[]string{"source", "outcome"},
		),

		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "curvewatch_fetch_duration_seconds",
				Help:    "Upstream request latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
			},
			[]string{"source"},
		),

		CurvesServed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curvewatch_curve_fallbacks_total",
				Help: "Curves served by country and the source that delivered them",
			},
			[]string{"country", "data_source"},
		),

		BackfillWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curvewatch_backfill_records_total",
				Help: "Historical records written by the backfill, by result",
			},
			[]string{"country", "result"},
		),
	}

	r.reg.MustRegister(r.SourceRequests, r.FetchDuration, r.CurvesServed, r.BackfillWritten)
	if withRuntime {
		r.reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return r
}

// ObserveRequest records one upstream request.
func (r *Registry) ObserveRequest(source domain.DataSource, outcome string, elapsed time.Duration) {
	r.SourceRequests.WithLabelValues(string(source), outcome).Inc()
	r.FetchDuration.WithLabelValues(string(source)).Observe(elapsed.Seconds())
}

// CurveServed records which source delivered a curve, MOCK included.
func (r *Registry) CurveServed(country domain.Country, source domain.DataSource) {
	r.CurvesServed.WithLabelValues(country.Slug(), string(source)).Inc()
}

// BreakerRejected records a call short-circuited by an open breaker.
func (r *Registry) BreakerRejected(source domain.DataSource) {
	r.SourceRequests.WithLabelValues(string(source), OutcomeBreakerOpen).Inc()
}

// BackfillRecords records n records written (result "inserted") or lost ("error").
func (r *Registry) BackfillRecords(country domain.Country, result string, n int) {
	r.BackfillWritten.WithLabelValues(country.Slug(), result).Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gather returns the current metric families.
func (r *Registry) Gather() ([]*dto.MetricFamily, error) {
	return r.reg.Gather()
}

// Total sums every sample of a counter family whose labels include match.
func (r *Registry) Total(name string, match map[string]string) float64 {
	families, err := r.reg.Gather()
	if err != nil {
		return 0
	}
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m.GetLabel(), match) {
				total += m.GetCounter().GetValue()
			}
		}
	}
	return total
}

func labelsMatch(pairs []*dto.LabelPair, match map[string]string) bool {
	for k, v := range match {
		found := false
		for _, p := range pairs {
			if p.GetName() == k && p.GetValue() == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
