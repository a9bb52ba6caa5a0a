package ports

import (
	"context"

	"github.com/alejandrodnm/curvewatch/internal/domain"
)

// Notifier presenta curvas y resultados al operador.
type Notifier interface {
	// NotifyCurves muestra las curvas adquiridas.
	// En la implementación de consola, imprime una tabla por curva.
	NotifyCurves(ctx context.Context, curves []domain.YieldCurveData) error
}
