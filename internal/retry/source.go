package retry

import (
	"context"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/domain"
	"github.com/alejandrodnm/curvewatch/internal/ports"
)

// seriesSource envuelve una ports.SeriesSource aplicando la política a cada llamada.
type seriesSource struct {
	next   ports.SeriesSource
	policy Policy
}

// Series decora src para que toda llamada pase por la política p.
func Series(src ports.SeriesSource, p Policy) ports.SeriesSource {
	return &seriesSource{next: src, policy: p}
}

func (s *seriesSource) FetchObservations(ctx context.Context, seriesID string, from, to time.Time) ([]domain.Observation, error) {
	return Value(ctx, s.policy, func(ctx context.Context) ([]domain.Observation, error) {
		return s.next.FetchObservations(ctx, seriesID, from, to)
	})
}

type latestResult struct {
	obs domain.Observation
	ok  bool
}

func (s *seriesSource) Latest(ctx context.Context, seriesID string, date time.Time) (domain.Observation, bool, error) {
	r, err := Value(ctx, s.policy, func(ctx context.Context) (latestResult, error) {
		obs, ok, err := s.next.Latest(ctx, seriesID, date)
		return latestResult{obs: obs, ok: ok}, err
	})
	return r.obs, r.ok, err
}

type curveResult struct {
	raw  map[domain.Maturity]string
	date time.Time
}

// curveSource envuelve una ports.CurveSource aplicando la política.
type curveSource struct {
	next   ports.CurveSource
	policy Policy
}

// Curve decora src para que toda llamada pase por la política p.
func Curve(src ports.CurveSource, p Policy) ports.CurveSource {
	return &curveSource{next: src, policy: p}
}

func (s *curveSource) FetchCurve(ctx context.Context, date time.Time) (map[domain.Maturity]string, time.Time, error) {
	r, err := Value(ctx, s.policy, func(ctx context.Context) (curveResult, error) {
		raw, d, err := s.next.FetchCurve(ctx, date)
		return curveResult{raw: raw, date: d}, err
	})
	return r.raw, r.date, err
}

// policyRateSource envuelve una ports.PolicyRateSource aplicando la política.
type policyRateSource struct {
	next   ports.PolicyRateSource
	policy Policy
}

// PolicyRate decora src para que toda llamada pase por la política p.
func PolicyRate(src ports.PolicyRateSource, p Policy) ports.PolicyRateSource {
	return &policyRateSource{next: src, policy: p}
}

func (s *policyRateSource) PolicyRate(ctx context.Context, date time.Time) (float64, error) {
	return Value(ctx, s.policy, func(ctx context.Context) (float64, error) {
		return s.next.PolicyRate(ctx, date)
	})
}
