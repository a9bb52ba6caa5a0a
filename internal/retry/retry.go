// Package retry reintenta llamadas a fuentes externas con backoff exponencial.
// Solo se reintentan los fallos transitorios; el resto se propaga al primer intento.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/domain"
)

const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = time.Second
)

// Policy define cuántas veces y con qué espera se reintenta.
// Antes del intento n+1 se espera InitialDelay * 2^(n-1).
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration

	// Retryable decide si un error merece otro intento. Por defecto domain.IsTransient.
	Retryable func(error) bool
}

// Default devuelve la política estándar: 3 intentos, 1s inicial.
func Default() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, InitialDelay: DefaultInitialDelay}
}

// Do ejecuta fn hasta que tenga éxito, falle de forma permanente o se agoten los intentos.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := Value(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Value es Do para funciones que devuelven un resultado.
func Value[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalized()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if !p.Retryable(err) {
			return zero, err
		}
		if attempt == p.MaxAttempts {
			break
		}

		wait := p.Delay(attempt)
		slog.Debug("retrying transient failure", "attempt", attempt, "wait", wait, "err", err)
		if err := sleep(ctx, wait); err != nil {
			return zero, fmt.Errorf("retry: cancelled after %d attempts: %w", attempt, lastErr)
		}
	}
	return zero, fmt.Errorf("retry: gave up after %d attempts: %w", p.MaxAttempts, lastErr)
}

// Delay devuelve la espera tras el intento fallido número attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.InitialDelay * time.Duration(1<<(attempt-1))
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	if p.Retryable == nil {
		p.Retryable = domain.IsTransient
	}
	return p
}

// sleep espera d respetando el contexto.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
