// Package fmp implementa ports.CurveSource sobre el endpoint de Treasury de Financial Modeling Prep.
package fmp

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/adapters/upstream"
	"github.com/alejandrodnm/curvewatch/internal/domain"
)

const (
	DefaultBase = "https://financialmodelingprep.com"

	// minKeyLen descarta claves vacías o de relleno en la configuración.
	minKeyLen = 6
	lookback  = 7 * 24 * time.Hour
)

// Client consulta la curva del Tesoro de FMP. Solo sirve para la curva del día.
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
		http:   upstream.New(domain.SourceFMP, opts...),
		base:   strings.TrimRight(base, "/"),
		apiKey: strings.TrimSpace(apiKey),
	}
}

// Configured indica si hay una API key utilizable.
func (c *Client) Configured() bool { return len(c.apiKey) >= minKeyLen }

// FetchCurve devuelve plazo → valor crudo para date y la fecha efectiva de la curva.
// Un mapa vacío significa que FMP no tiene curva para esa fecha.
func (c *Client) FetchCurve(ctx context.Context, date time.Time) (map[domain.Maturity]string, time.Time, error) {
	if !c.Configured() {
		return nil, time.Time{}, &domain.FetchError{
			Kind: domain.KindAuth, Source: domain.SourceFMP, Series: "treasury",
			Err: errors.New("api key not configured"),
		}
	}

	q := url.Values{}
	q.Set("from", date.Add(-lookback).Format(domain.DateLayout))
	q.Set("to", date.Format(domain.DateLayout))
	q.Set("apikey", c.apiKey)

	var rows []treasuryRow
	if err := c.http.GetJSON(ctx, c.base+"/api/v4/treasury?"+q.Encode(), "treasury", &rows); err != nil {
		return nil, time.Time{}, err
	}
	if len(rows) == 0 {
		return map[domain.Maturity]string{}, date, nil
	}
	if rows[0].isPair() {
		return pairCurve(rows), date, nil
	}
	return wideCurve(rows, date)
}

// pairCurve lee el formato [{maturity, yield}]. Plazos desconocidos se ignoran.
func pairCurve(rows []treasuryRow) map[domain.Maturity]string {
	out := make(map[domain.Maturity]string, len(rows))
	for _, r := range rows {
		m, err := domain.ParseMaturity(r.str("maturity"))
		if err != nil {
			continue
		}
		out[m] = r.str("yield")
	}
	return out
}

// wideCurve toma la fila más reciente en o antes de date.
func wideCurve(rows []treasuryRow, date time.Time) (map[domain.Maturity]string, time.Time, error) {
	type dated struct {
		day time.Time
		row treasuryRow
	}
	var candidates []dated
	for _, r := range rows {
		d, err := domain.ParseDate(r.str("date"))
		if err != nil || d.After(date) {
			continue
		}
		candidates = append(candidates, dated{day: d, row: r})
	}
	if len(candidates) == 0 {
		return map[domain.Maturity]string{}, date, nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].day.After(candidates[j].day) })

	best := candidates[0]
	out := make(map[domain.Maturity]string)
	for key, raw := range best.row {
		m, err := domain.ParseMaturity(key)
		if err != nil {
			continue
		}
		out[m] = rawString(raw)
	}
	return out, best.day, nil
}
