package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/domain"
)

// CurveCache guarda curvas ya adquiridas. Se inyecta en el coordinador.
type CurveCache interface {
	// Get devuelve ok=false si la clave no existe o expiró.
	Get(ctx context.Context, key string) (curve domain.YieldCurveData, ok bool, err error)
	Set(ctx context.Context, key string, curve domain.YieldCurveData, ttl time.Duration) error
}
