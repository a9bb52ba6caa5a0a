package backfill

import (
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/domain"
)

// Window is the date range a backfill run covers for one country.
type Window struct {
	Country    domain.Country
	Start, End time.Time
}

// Plan returns the windows of a run of months ending today. Used as the dry run.
func Plan(months int, countries []domain.Country, now time.Time) []Window {
	if months <= 0 {
		months = 12
	}
	end := domain.DateOnly(now)
	start := end.AddDate(0, -months, 0)
	out := make([]Window, 0, len(countries))
	for _, c := range countries {
		out = append(out, Window{Country: c, Start: start, End: end})
	}
	return out
}

// ParseCountries accepts "us", "canada" (or "ca") and "both".
func ParseCountries(s string) ([]domain.Country, error) {
	if strings.EqualFold(strings.TrimSpace(s), "both") {
		return []domain.Country{domain.CountryUS, domain.CountryCA}, nil
	}
	c, err := domain.ParseCountry(s)
	if err != nil {
		return nil, fmt.Errorf("backfill.ParseCountries: %w", err)
	}
	return []domain.Country{c}, nil
}
