// Package cache implementa ports.CurveCache en memoria y sobre Redis.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/domain"
)

type entry struct {
	curve     domain.YieldCurveData
	expiresAt time.Time
}

// Memory es una caché en proceso con TTL por entrada. Segura para uso concurrente.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// MemoryOption configura Memory.
type MemoryOption func(*Memory)

// WithClock reemplaza time.Now (tests).
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// NewMemory crea una caché vacía.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{entries: make(map[string]entry), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get devuelve ok=false si la clave no existe o expiró.
func (m *Memory) Get(_ context.Context, key string) (domain.YieldCurveData, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || !m.now().Before(e.expiresAt) {
		return domain.YieldCurveData{}, false, nil
	}
	return e.curve, true, nil
}

// Set guarda la curva durante ttl. Un ttl no positivo no guarda nada.
func (m *Memory) Set(_ context.Context, key string, curve domain.YieldCurveData, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	m.entries[key] = entry{curve: curve, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// Cleanup elimina las entradas expiradas. Devuelve cuántas borró.
func (m *Memory) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// Len devuelve el número de entradas, expiradas incluidas.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
