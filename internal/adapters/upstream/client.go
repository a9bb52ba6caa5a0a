// Package upstream es el cliente HTTP compartido por los adaptadores de fuentes.
// Aplica rate limiting por fuente y traduce cada fallo a un *domain.FetchError.
// Los reintentos no viven aquí: se componen por fuera con el paquete retry.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/domain"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

// Outcomes reportados al Observer.
const (
	OutcomeOK        = "ok"
	OutcomeTransient = "transient"
	OutcomePermanent = "permanent"
)

// Observer recibe el resultado de cada request (métricas).
type Observer interface {
	ObserveRequest(source domain.DataSource, outcome string, elapsed time.Duration)
}

// Client hace GETs JSON contra una fuente concreta.
type Client struct {
	http     *http.Client
	source   domain.DataSource
	limiter  *rate.Limiter
	observer Observer
}

// Option configura el Client.
type Option func(*Client)

// WithHTTPClient reemplaza el http.Client (tests, transportes custom).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout fija el timeout por llamada.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithRate limita a perSec requests por segundo con la ráfaga dada.
func WithRate(perSec float64, burst int) Option {
	return func(c *Client) {
		if perSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSec), max(burst, 1))
		}
	}
}

// WithObserver registra un Observer para cada request.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New crea un Client para la fuente dada. Sin opciones: 10s de timeout y sin límite de tasa.
func New(source domain.DataSource, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: DefaultTimeout},
		source:  source,
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source devuelve la fuente a la que está ligado el cliente.
func (c *Client) Source() domain.DataSource { return c.source }

// GetJSON hace un único GET y decodifica el cuerpo en out.
// series solo se usa para etiquetar el error.
func (c *Client) GetJSON(ctx context.Context, rawURL, series string, out any) error {
	start := time.Now()
	err := c.getJSON(ctx, rawURL, series, out)
	if c.observer != nil {
		c.observer.ObserveRequest(c.source, outcome(err), time.Since(start))
	}
	return err
}

func (c *Client) getJSON(ctx context.Context, rawURL, series string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return c.fail(domain.KindTransient, series, 0, fmt.Errorf("rate limiter: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return c.fail(domain.KindBadRequest, series, 0, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// *url.Error incluye la URL completa con la API key: solo se conserva la causa.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return c.fail(domain.KindTransient, series, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return c.fail(domain.KindForStatus(resp.StatusCode), series, resp.StatusCode,
			fmt.Errorf("http %d: %s", resp.StatusCode, string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return c.fail(domain.KindMalformed, series, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) fail(kind domain.ErrorKind, series string, status int, err error) *domain.FetchError {
	return &domain.FetchError{Kind: kind, Source: c.source, Series: series, Status: status, Err: err}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case domain.IsTransient(err):
		return OutcomeTransient
	}
	return OutcomePermanent
}
