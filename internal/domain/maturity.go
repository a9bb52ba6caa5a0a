package domain

import (
	"fmt"
	"strings"
)

// Maturity es el plazo de un punto de la curva ("1M", "10Y", ...).
type Maturity string

const (
	M1M  Maturity = "1M"
	M3M  Maturity = "3M"
	M6M  Maturity = "6M"
	M1Y  Maturity = "1Y"
	M2Y  Maturity = "2Y"
	M3Y  Maturity = "3Y"
	M5Y  Maturity = "5Y"
	M7Y  Maturity = "7Y"
	M10Y Maturity = "10Y"
	M20Y Maturity = "20Y"
	M30Y Maturity = "30Y"
)

// maturityDays es la tabla estática plazo → días. Nunca se deriva de la etiqueta.
var maturityDays = map[Maturity]int{
	M1M:  30,
	M3M:  91,
	M6M:  182,
	M1Y:  365,
	M2Y:  730,
	M3Y:  1095,
	M5Y:  1825,
	M7Y:  2555,
	M10Y: 3650,
	M20Y: 7300,
	M30Y: 10950,
}

// maturityMonths se usa en los registros históricos persistidos.
var maturityMonths = map[Maturity]int{
	M1M:  1,
	M3M:  3,
	M6M:  6,
	M1Y:  12,
	M2Y:  24,
	M3Y:  36,
	M5Y:  60,
	M7Y:  84,
	M10Y: 120,
	M20Y: 240,
	M30Y: 360,
}

// AllMaturities devuelve todos los plazos soportados, de menor a mayor.
func AllMaturities() []Maturity {
	return []Maturity{M1M, M3M, M6M, M1Y, M2Y, M3Y, M5Y, M7Y, M10Y, M20Y, M30Y}
}

// CanonicalOrder es el orden usado para buscar los tramos más empinados y más planos.
// No incluye 1M.
func CanonicalOrder() []Maturity {
	return []Maturity{M3M, M6M, M1Y, M2Y, M3Y, M5Y, M7Y, M10Y, M20Y, M30Y}
}

// Days devuelve los días del plazo, o 0 si no es un plazo conocido.
func (m Maturity) Days() int {
	return maturityDays[m]
}

// Months devuelve los meses del plazo, o 0 si no es un plazo conocido.
func (m Maturity) Months() int {
	return maturityMonths[m]
}

// Valid indica si el plazo está en la tabla.
func (m Maturity) Valid() bool {
	_, ok := maturityDays[m]
	return ok
}

// ParseMaturity normaliza etiquetas como "10y", "3m" o "month1" al plazo canónico.
func ParseMaturity(s string) (Maturity, error) {
	label := strings.ToUpper(strings.TrimSpace(s))
	if m := Maturity(label); m.Valid() {
		return m, nil
	}
	// Formatos largos de proveedores comerciales: month1, year10...
	lower := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(lower, "month"):
		if m := Maturity(strings.TrimPrefix(lower, "month") + "M"); m.Valid() {
			return m, nil
		}
	case strings.HasPrefix(lower, "year"):
		if m := Maturity(strings.TrimPrefix(lower, "year") + "Y"); m.Valid() {
			return m, nil
		}
	}
	return "", fmt.Errorf("domain.ParseMaturity: unknown maturity %q", s)
}
