package acquisition

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/domain"
	"github.com/sony/gobreaker"
)

// BreakerConfig controls when a source stops being called.
type BreakerConfig struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	Interval            time.Duration
}

func (b BreakerConfig) withDefaults() BreakerConfig {
	if b.ConsecutiveFailures == 0 {
		b.ConsecutiveFailures = 5
	}
	if b.OpenTimeout <= 0 {
		b.OpenTimeout = 30 * time.Second
	}
	if b.Interval <= 0 {
		b.Interval = time.Minute
	}
	return b
}

// breakers holds one circuit breaker per upstream source.
type breakers struct {
	cfg BreakerConfig
	mu  sync.Mutex
	set map[domain.DataSource]*gobreaker.CircuitBreaker
}

func newBreakers(cfg BreakerConfig) *breakers {
	return &breakers{cfg: cfg.withDefaults(), set: make(map[domain.DataSource]*gobreaker.CircuitBreaker)}
}

func (b *breakers) get(source domain.DataSource) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.set[source]; ok {
		return cb
	}
	threshold := b.cfg.ConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(source),
		MaxRequests: 1,
		Interval:    b.cfg.Interval,
		Timeout:     b.cfg.OpenTimeout,
		// Only transient failures count; no data and permanent errors leave the breaker closed.
		IsSuccessful: func(err error) bool {
			return err == nil || !domain.IsTransient(err)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("source circuit breaker changed state", "source", name, "from", from.String(), "to", to.String())
		},
	})
	b.set[source] = cb
	return cb
}

// State reports the breaker state of a source ("closed", "open", "half-open").
func (b *breakers) state(source domain.DataSource) string {
	return b.get(source).State().String()
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
