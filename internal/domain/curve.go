package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Country identifica la curva soberana.
type Country string

const (
	CountryUS Country = "US"
	CountryCA Country = "CA"
)

// ParseCountry acepta "us", "usa", "ca", "canada" (sin distinguir mayúsculas).
func ParseCountry(s string) (Country, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "us", "usa":
		return CountryUS, nil
	case "ca", "canada":
		return CountryCA, nil
	}
	return "", fmt.Errorf("domain.ParseCountry: unknown country %q", s)
}

// Slug es la forma usada en el almacenamiento y en las claves de cache ("us", "canada").
func (c Country) Slug() string {
	if c == CountryCA {
		return "canada"
	}
	return "us"
}

// Currency devuelve la divisa de la deuda soberana del país.
func (c Country) Currency() string {
	if c == CountryCA {
		return "CAD"
	}
	return "USD"
}

// MinMaturities es el mínimo de plazos para considerar un día histórico utilizable.
func (c Country) MinMaturities() int {
	if c == CountryCA {
		return 4
	}
	return 5
}

// DataSource indica la procedencia real de una curva.
type DataSource string

const (
	SourceFRED DataSource = "FRED"
	SourceFMP  DataSource = "FMP"
	SourceBoC  DataSource = "BOC"
	SourceMock DataSource = "MOCK"
)

// Label es el nombre legible que se persiste en los registros históricos.
func (s DataSource) Label() string {
	if s == SourceBoC {
		return "Bank of Canada"
	}
	return string(s)
}

// Observation es la forma canónica que devuelve cualquier fuente: fecha y valor en porcentaje.
type Observation struct {
	Date  time.Time
	Value float64
}

// IsValidYield indica si un rendimiento puede participar en cálculos:
// finito, no NaN y estrictamente positivo.
func IsValidYield(y float64) bool {
	return !math.IsNaN(y) && !math.IsInf(y, 0) && y > 0
}

// YieldDataPoint es un punto de la curva.
type YieldDataPoint struct {
	Date         time.Time `json:"date"`
	Maturity     Maturity  `json:"maturity"`
	Yield        float64   `json:"yield"`
	Days         int       `json:"days"`
	FetchedAt    time.Time `json:"fetchedAt,omitzero"`
	Interpolated bool      `json:"interpolated,omitempty"`
}

// Valid indica si el punto puede usarse en cálculos derivados.
func (p YieldDataPoint) Valid() bool {
	return IsValidYield(p.Yield)
}

// NewPoint construye un punto calculando Days desde la tabla estática.
func NewPoint(date time.Time, m Maturity, yield float64, fetchedAt time.Time) YieldDataPoint {
	return YieldDataPoint{
		Date:      date,
		Maturity:  m,
		Yield:     yield,
		Days:      m.Days(),
		FetchedAt: fetchedAt,
	}
}

// YieldCurveData es una curva completa de un país en una fecha.
// Points está ordenado por Days ascendente.
type YieldCurveData struct {
	Date       time.Time        `json:"date"`
	Country    Country          `json:"country"`
	Points     []YieldDataPoint `json:"points"`
	DataSource DataSource       `json:"dataSource"`
	PolicyRate *float64         `json:"policyRate,omitempty"`
	FetchedAt  time.Time        `json:"fetchedAt"`
}

// Yield devuelve el rendimiento válido de un plazo, si existe.
func (c YieldCurveData) Yield(m Maturity) (float64, bool) {
	return YieldOf(c.Points, m)
}

// ValidCount cuenta los puntos válidos.
func (c YieldCurveData) ValidCount() int {
	n := 0
	for _, p := range c.Points {
		if p.Valid() {
			n++
		}
	}
	return n
}

// Spread10y2y devuelve 10Y - 2Y en puntos porcentuales, o nil si falta alguna pata.
func (c YieldCurveData) Spread10y2y() *float64 {
	return spread10y2y(c.Points)
}

// Inverted es true solo si existen 2Y y 10Y y el spread es negativo.
func (c YieldCurveData) Inverted() bool {
	s := c.Spread10y2y()
	return s != nil && *s < 0
}

// IsMock indica si la curva es sintética.
func (c YieldCurveData) IsMock() bool {
	return c.DataSource == SourceMock
}

// YieldOf busca el rendimiento válido de un plazo en una lista de puntos.
func YieldOf(points []YieldDataPoint, m Maturity) (float64, bool) {
	for _, p := range points {
		if p.Maturity == m && p.Valid() {
			return p.Yield, true
		}
	}
	return 0, false
}

// SortPoints ordena por Days ascendente (estable para empates).
func SortPoints(points []YieldDataPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Days < points[j].Days
	})
}

func spread10y2y(points []YieldDataPoint) *float64 {
	y2, ok2 := YieldOf(points, M2Y)
	y10, ok10 := YieldOf(points, M10Y)
	if !ok2 || !ok10 {
		return nil
	}
	s := y10 - y2
	return &s
}

// DateOnly trunca a medianoche UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateLayout es el formato de fecha de todas las APIs y del almacenamiento.
const DateLayout = "2006-01-02"

// ParseDate parsea una fecha "YYYY-MM-DD".
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("domain.ParseDate: %w", err)
	}
	return t, nil
}
