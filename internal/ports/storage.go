package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/domain"
)

// CurveStore persiste las curvas históricas por (país, fecha).
type CurveStore interface {
	// UpsertBatch inserta o reemplaza los registros. Idempotente por (país, fecha).
	UpsertBatch(ctx context.Context, records []domain.HistoricalCurveRecord) error

	// Range devuelve los registros del país con fecha en [from, to], ordenados por fecha ascendente.
	Range(ctx context.Context, country domain.Country, from, to time.Time) ([]domain.HistoricalCurveRecord, error)

	// Recent devuelve los n registros más recientes en o antes de asOf, en orden descendente.
	Recent(ctx context.Context, country domain.Country, asOf time.Time, n int) ([]domain.HistoricalCurveRecord, error)

	// Nearest devuelve el registro más cercano a date dentro de ±within. ok=false si no hay ninguno.
	Nearest(ctx context.Context, country domain.Country, date time.Time, within time.Duration) (rec domain.HistoricalCurveRecord, ok bool, err error)

	// Dates devuelve las fechas presentes para el país en [from, to].
	Dates(ctx context.Context, country domain.Country, from, to time.Time) ([]time.Time, error)

	// Stats resume la cobertura almacenada de un país.
	Stats(ctx context.Context, country domain.Country) (domain.StoreStats, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
