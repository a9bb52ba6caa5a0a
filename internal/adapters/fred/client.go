// Package fred implementa ports.SeriesSource sobre la API de observaciones de FRED.
package fred

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
	DefaultBase = "https://api.stlouisfed.org/fred"

	// missingValue es el marcador de FRED para "sin dato ese día".
	missingValue = "."

	// latestLookback cubre fines de semana largos y feriados.
	latestLookback = 10 * 24 * time.Hour
)

// Series de rendimientos constant-maturity del Tesoro.
var treasurySeries = map[domain.Maturity]string{
	domain.M1M:  "DGS1MO",
	domain.M3M:  "DGS3MO",
	domain.M6M:  "DGS6MO",
	domain.M1Y:  "DGS1",
	domain.M2Y:  "DGS2",
	domain.M3Y:  "DGS3",
	domain.M5Y:  "DGS5",
	domain.M7Y:  "DGS7",
	domain.M10Y: "DGS10",
	domain.M20Y: "DGS20",
	domain.M30Y: "DGS30",
}

// Series de tasa de política monetaria por país.
var policySeries = map[domain.Country]string{
	domain.CountryUS: "DFF",
	domain.CountryCA: "IRSTCB01CAM156N",
}

// TreasurySeries devuelve la serie FRED de cada plazo.
func TreasurySeries() map[domain.Maturity]string {
	out := make(map[domain.Maturity]string, len(treasurySeries))
	for m, s := range treasurySeries {
		out[m] = s
	}
	return out
}

// PolicySeries devuelve la serie FRED de la tasa de política del país.
func PolicySeries(c domain.Country) string {
	return policySeries[c]
}

// Client consulta FRED. Implementa ports.SeriesSource.
type Client struct {
	http   *upstream.Client
	base   string
	apiKey string
}

// NewClient crea un Client. Si base está vacío, usa la URL de producción.
func NewClient(base, apiKey string, opts ...upstream.Option) *Client {
	if base == "" {
		base = DefaultBase
	}
	return &Client{
		http:   upstream.New(domain.SourceFRED, opts...),
		base:   strings.TrimRight(base, "/"),
		apiKey: apiKey,
	}
}

// Configured indica si hay API key.
func (c *Client) Configured() bool { return c.apiKey != "" }

// FetchObservations devuelve las observaciones de [from, to] en orden ascendente.
func (c *Client) FetchObservations(ctx context.Context, seriesID string, from, to time.Time) ([]domain.Observation, error) {
	q := c.query(seriesID)
	q.Set("observation_start", from.Format(domain.DateLayout))
	q.Set("observation_end", to.Format(domain.DateLayout))
	q.Set("sort_order", "asc")

	var resp observationsResponse
	if err := c.http.GetJSON(ctx, c.url(q), seriesID, &resp); err != nil {
		return nil, err
	}
	return toObservations(seriesID, resp.Observations), nil
}

// Latest devuelve la observación más reciente en o antes de date.
func (c *Client) Latest(ctx context.Context, seriesID string, date time.Time) (domain.Observation, bool, error) {
	q := c.query(seriesID)
	q.Set("observation_start", date.Add(-latestLookback).Format(domain.DateLayout))
	q.Set("observation_end", date.Format(domain.DateLayout))
	q.Set("sort_order", "desc")
	q.Set("limit", "10")

	var resp observationsResponse
	if err := c.http.GetJSON(ctx, c.url(q), seriesID, &resp); err != nil {
		return domain.Observation{}, false, err
	}
	obs := toObservations(seriesID, resp.Observations)
	if len(obs) == 0 {
		return domain.Observation{}, false, nil
	}
	return obs[len(obs)-1], true, nil
}

// PolicyRate implementa ports.PolicyRateSource para un país.
type PolicyRate struct {
	Client  *Client
	Country domain.Country
}

func (p PolicyRate) PolicyRate(ctx context.Context, date time.Time) (float64, error) {
	series := PolicySeries(p.Country)
	obs, ok, err := p.Client.Latest(ctx, series, date)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("fred.PolicyRate: %s: %w", series, domain.ErrInsufficientData)
	}
	return obs.Value, nil
}

func (c *Client) query(seriesID string) url.Values {
	q := url.Values{}
	q.Set("series_id", seriesID)
	q.Set("api_key", c.apiKey)
	q.Set("file_type", "json")
	return q
}

func (c *Client) url(q url.Values) string {
	return c.base + "/series/observations?" + q.Encode()
}

// toObservations descarta "." y valores no numéricos, y ordena por fecha ascendente.
func toObservations(seriesID string, raw []observation) []domain.Observation {
	out := make([]domain.Observation, 0, len(raw))
	for _, o := range raw {
		v := strings.TrimSpace(o.Value)
		if v == "" || v == missingValue {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			slog.Debug("fred: dropping unparseable value", "series", seriesID, "date", o.Date, "value", o.Value)
			continue
		}
		d, err := domain.ParseDate(o.Date)
		if err != nil {
			slog.Debug("fred: dropping bad date", "series", seriesID, "date", o.Date)
			continue
		}
		out = append(out, domain.Observation{Date: d, Value: f})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
