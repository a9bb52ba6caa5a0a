// Package boc consulta la API Valet del Bank of Canada.
package boc

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/adapters/upstream"
	"github.com/alejandrodnm/curvewatch/internal/domain"
)

const (
	DefaultBase = "https://www.bankofcanada.ca"

	benchmarkGroup   = "bond_yields_benchmark"
	policyRateSeries = "V39079"
	latestLookback   = 10 * 24 * time.Hour
)

// Bonos de referencia del gobierno de Canadá.
var bondSeries = map[string]domain.Maturity{
	"BD.CDN.2YR.DQ.YLD":  domain.M2Y,
	"BD.CDN.3YR.DQ.YLD":  domain.M3Y,
	"BD.CDN.5YR.DQ.YLD":  domain.M5Y,
	"BD.CDN.7YR.DQ.YLD":  domain.M7Y,
	"BD.CDN.10YR.DQ.YLD": domain.M10Y,
	"BD.CDN.LONG.DQ.YLD": domain.M30Y,
}

// Letras del Tesoro que a veces aparecen dentro del grupo de referencia.
var shortSeries = map[string]domain.Maturity{
	"BD.CDN.1MO.DQ.YLD": domain.M1M,
	"BD.CDN.3MO.DQ.YLD": domain.M3M,
	"BD.CDN.6MO.DQ.YLD": domain.M6M,
}

// Series de letras del Tesoro con histórico completo (usadas en el backfill).
var tbillSeries = map[domain.Maturity]string{
	domain.M1M: "V80691342",
	domain.M3M: "V80691344",
	domain.M6M: "V80691345",
	domain.M1Y: "V80691346",
}

// BackfillSeries devuelve plazo → serie para reconstruir el histórico canadiense.
func BackfillSeries() map[domain.Maturity]string {
	out := make(map[domain.Maturity]string, len(tbillSeries)+len(bondSeries))
	for m, s := range tbillSeries {
		out[m] = s
	}
	for s, m := range bondSeries {
		out[m] = s
	}
	return out
}

// Client consulta Valet. Implementa ports.SeriesSource y ports.PolicyRateSource.
type Client struct {
	http *upstream.Client
	base string
}

// NewClient crea un Client. Si base está vacío, usa la URL de producción.
func NewClient(base string, opts ...upstream.Option) *Client {
	if base == "" {
		base = DefaultBase
	}
	return &Client{
		http: upstream.New(domain.SourceBoC, opts...),
		base: strings.TrimRight(base, "/"),
	}
}

// FetchObservations devuelve las observaciones de una serie en [from, to], en orden ascendente.
func (c *Client) FetchObservations(ctx context.Context, seriesID string, from, to time.Time) ([]domain.Observation, error) {
	q := url.Values{}
	q.Set("start_date", from.Format(domain.DateLayout))
	q.Set("end_date", to.Format(domain.DateLayout))

	var resp observationsResponse
	u := fmt.Sprintf("%s/valet/observations/%s/json?%s", c.base, url.PathEscape(seriesID), q.Encode())
	if err := c.http.GetJSON(ctx, u, seriesID, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.Observation, 0, len(resp.Observations))
	for _, o := range resp.Observations {
		v, ok := parseValue(o.value(seriesID))
		if !ok {
			continue
		}
		d, err := domain.ParseDate(o.date())
		if err != nil {
			slog.Debug("boc: dropping bad date", "series", seriesID, "date", o.date())
			continue
		}
		out = append(out, domain.Observation{Date: d, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// Latest devuelve la observación más reciente en o antes de date.
func (c *Client) Latest(ctx context.Context, seriesID string, date time.Time) (domain.Observation, bool, error) {
	obs, err := c.FetchObservations(ctx, seriesID, date.Add(-latestLookback), date)
	if err != nil {
		return domain.Observation{}, false, err
	}
	if len(obs) == 0 {
		return domain.Observation{}, false, nil
	}
	return obs[len(obs)-1], true, nil
}

// FetchCurve lee el grupo de bonos de referencia y devuelve la curva más reciente en o antes de date.
// Implementa ports.CurveSource.
func (c *Client) FetchCurve(ctx context.Context, date time.Time) (map[domain.Maturity]string, time.Time, error) {
	q := url.Values{}
	q.Set("start_date", date.Add(-latestLookback).Format(domain.DateLayout))
	q.Set("end_date", date.Format(domain.DateLayout))

	var resp observationsResponse
	u := fmt.Sprintf("%s/valet/observations/group/%s/json?%s", c.base, benchmarkGroup, q.Encode())
	if err := c.http.GetJSON(ctx, u, benchmarkGroup, &resp); err != nil {
		return nil, time.Time{}, err
	}

	// La observación con fecha más reciente que tenga algún valor.
	var best rawObservation
	var bestDate time.Time
	for _, o := range resp.Observations {
		d, err := domain.ParseDate(o.date())
		if err != nil || d.After(date) || d.Before(bestDate) {
			continue
		}
		if len(curveValues(o)) == 0 {
			continue
		}
		best, bestDate = o, d
	}
	if best == nil {
		return map[domain.Maturity]string{}, date, nil
	}
	return curveValues(best), bestDate, nil
}

// PolicyRate devuelve la tasa objetivo overnight (V39079).
func (c *Client) PolicyRate(ctx context.Context, date time.Time) (float64, error) {
	obs, ok, err := c.Latest(ctx, policyRateSeries, date)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("boc.PolicyRate: %s: %w", policyRateSeries, domain.ErrInsufficientData)
	}
	return obs.Value, nil
}

func curveValues(o rawObservation) map[domain.Maturity]string {
	out := make(map[domain.Maturity]string)
	for _, table := range []map[string]domain.Maturity{bondSeries, shortSeries} {
		for series, m := range table {
			if v := o.value(series); v != "" {
				out[m] = v
			}
		}
	}
	return out
}

func parseValue(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
