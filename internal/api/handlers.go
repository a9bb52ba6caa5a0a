package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/analytics"
	"github.com/alejandrodnm/curvewatch/internal/domain"
)

// DefaultHistorySpan is the range served by /history when from is omitted.
const DefaultHistorySpan = 30 * 24 * time.Hour

// CurvePayload is one country's curve in the /api/yield-curve response.
type CurvePayload struct {
	domain.YieldCurveData
	Count       int      `json:"count"`
	Spread10y2y *float64 `json:"spread_10y_2y,omitempty"`
	Inverted    bool     `json:"inverted"`
}

// CurveResponse is the body of GET /api/yield-curve.
type CurveResponse struct {
	Timestamp time.Time               `json:"timestamp"`
	Data      map[string]CurvePayload `json:"data"`
}

// AnalyticsResponse is the body of GET /api/yield-curve/analytics.
type AnalyticsResponse struct {
	Timestamp time.Time                   `json:"timestamp"`
	Data      map[string]analytics.Report `json:"data"`
}

// HistoryResponse is the body of GET /api/yield-curve/history.
type HistoryResponse struct {
	Country domain.Country                 `json:"country"`
	From    string                         `json:"from"`
	To      string                         `json:"to"`
	Count   int                            `json:"count"`
	Records []domain.HistoricalCurveRecord `json:"records"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   s.now().UTC(),
	})
}

// yieldCurve serves ?country=us|canada|both[&date=YYYY-MM-DD].
func (s *Server) yieldCurve(w http.ResponseWriter, r *http.Request) {
	countries, err := parseCountries(r.URL.Query().Get("country"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var date *time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := domain.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date: "+raw)
			return
		}
		date = &d
	}

	resp := CurveResponse{Timestamp: s.now().UTC(), Data: make(map[string]CurvePayload, len(countries))}
	for _, c := range countries {
		got := s.curves.CurrentCurve(r.Context(), c, date)
		resp.Data[c.Slug()] = CurvePayload{
			YieldCurveData: got,
			Count:          got.ValidCount(),
			Spread10y2y:    got.Spread10y2y(),
			Inverted:       got.Inverted(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// analytics serves ?country=&history_days=&window=.
func (s *Server) analytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	countries, err := parseCountries(q.Get("country"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	days, err := positiveInt(q.Get("history_days"), s.cfg.HistoryDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid history_days")
		return
	}
	window, err := positiveInt(q.Get("window"), s.cfg.Window)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid window")
		return
	}

	now := domain.DateOnly(s.now())
	resp := AnalyticsResponse{Timestamp: s.now().UTC(), Data: make(map[string]analytics.Report, len(countries))}
	for _, c := range countries {
		current := s.curves.CurrentCurve(r.Context(), c, nil)
		records, err := s.store.Range(r.Context(), c, now.AddDate(0, 0, -days), now)
		if err != nil {
			slog.Error("analytics: load history", "country", c, "request_id", RequestID(r.Context()), "err", err)
			writeError(w, http.StatusInternalServerError, "history unavailable")
			return
		}
		history := make([]domain.YieldCurveData, 0, len(records))
		for _, rec := range records {
			history = append(history, rec.Curve())
		}
		resp.Data[c.Slug()] = analytics.Build(current, history, window)
	}
	writeJSON(w, http.StatusOK, resp)
}

// history serves ?country=us|canada&from=&to=, or the last ?limit= records up to to.
// Defaults to the last 30 days.
func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw := q.Get("country")
	if raw == "" {
		raw = string(domain.CountryUS)
	}
	country, err := domain.ParseCountry(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	to := domain.DateOnly(s.now())
	if v := q.Get("to"); v != "" {
		if to, err = domain.ParseDate(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid to: "+v)
			return
		}
	}
	from := to.Add(-DefaultHistorySpan)
	if v := q.Get("from"); v != "" {
		if from, err = domain.ParseDate(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid from: "+v)
			return
		}
	}
	if from.After(to) {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidRange.Error())
		return
	}

	var records []domain.HistoricalCurveRecord
	if v := q.Get("limit"); v != "" && q.Get("from") == "" {
		n, perr := positiveInt(v, 0)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		records, err = s.store.Recent(r.Context(), country, to, n)
		if len(records) > 0 {
			from = records[len(records)-1].DataDate
		}
		slices.Reverse(records)
	} else {
		records, err = s.store.Range(r.Context(), country, from, to)
	}
	if err != nil {
		slog.Error("history: range", "country", country, "request_id", RequestID(r.Context()), "err", err)
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	if records == nil {
		records = []domain.HistoricalCurveRecord{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{
		Country: country,
		From:    from.Format(domain.DateLayout),
		To:      to.Format(domain.DateLayout),
		Count:   len(records),
		Records: records,
	})
}

func parseCountries(raw string) ([]domain.Country, error) {
	if raw == "" || strings.EqualFold(raw, "both") {
		return []domain.Country{domain.CountryUS, domain.CountryCA}, nil
	}
	c, err := domain.ParseCountry(raw)
	if err != nil {
		return nil, err
	}
	return []domain.Country{c}, nil
}

func positiveInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("api: encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
