package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/domain"
)

// SeriesSource obtiene observaciones de una serie temporal (FRED, Bank of Canada).
type SeriesSource interface {
	// FetchObservations devuelve las observaciones de la serie en [from, to], en porcentaje,
	// ya sin los marcadores de "sin dato" del proveedor.
	// Sin datos: lista vacía y error nil. Fallo de transporte o formato: *domain.FetchError.
	FetchObservations(ctx context.Context, seriesID string, from, to time.Time) ([]domain.Observation, error)

	// Latest devuelve la observación más reciente en o antes de date.
	// Devuelve ok=false si la serie no tiene datos en la ventana consultada.
	Latest(ctx context.Context, seriesID string, date time.Time) (obs domain.Observation, ok bool, err error)
}

// CurveSource obtiene una curva completa en una sola llamada (FMP).
type CurveSource interface {
	// FetchCurve devuelve plazo → valor crudo para la fecha dada.
	// Un mapa vacío significa que el proveedor no tiene curva para esa fecha.
	FetchCurve(ctx context.Context, date time.Time) (map[domain.Maturity]string, time.Time, error)
}

// PolicyRateSource obtiene la tasa de política monetaria de un país.
type PolicyRateSource interface {
	PolicyRate(ctx context.Context, date time.Time) (float64, error)
}
