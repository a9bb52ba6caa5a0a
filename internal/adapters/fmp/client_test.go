package fmp_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/adapters/fmp"
	"github.com/alejandrodnm/curvewatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var target = time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)

func serveFixture(t *testing.T, name string) *httptest.Server {
	t.Helper()
	data, err := os.ReadFile("../../../testdata/fixtures/" + name)
	require.NoError(t, err)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/treasury", r.URL.Path)
		assert.Equal(t, "fmp-test-key", r.URL.Query().Get("apikey"))
		assert.Equal(t, "2025-01-08", r.URL.Query().Get("to"))
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}))
}

func TestFetchCurve_PairFormat(t *testing.T) {
	srv := serveFixture(t, "fmp_treasury.json")
	defer srv.Close()

	raw, date, err := fmp.NewClient(srv.URL, "fmp-test-key").FetchCurve(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, target, date)

	// 15Y no es un plazo soportado
	assert.Len(t, raw, 8)
	assert.Equal(t, "4.31", raw[domain.M1M])
	assert.Equal(t, "4.33", raw[domain.M3M])
	assert.Equal(t, "n/a", raw[domain.M30Y])
}

func TestFetchCurve_WideFormatPicksLatestRow(t *testing.T) {
	srv := serveFixture(t, "fmp_treasury_rows.json")
	defer srv.Close()

	raw, date, err := fmp.NewClient(srv.URL, "fmp-test-key").FetchCurve(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, target, date)
	assert.Equal(t, "4.68", raw[domain.M10Y])
	assert.Equal(t, "4.91", raw[domain.M30Y])
	assert.Len(t, raw, 11)
}

func TestFetchCurve_EmptyArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	raw, _, err := fmp.NewClient(srv.URL, "fmp-test-key").FetchCurve(context.Background(), target)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestFetchCurve_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Error Message":"Limit Reach"}`))
	}))
	defer srv.Close()

	_, _, err := fmp.NewClient(srv.URL, "fmp-test-key").FetchCurve(context.Background(), target)
	var fe *domain.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, domain.KindMalformed, fe.Kind)
}

func TestFetchCurve_WithoutKey(t *testing.T) {
	c := fmp.NewClient("http://127.0.0.1:1", "")
	assert.False(t, c.Configured())
	_, _, err := c.FetchCurve(context.Background(), target)
	var fe *domain.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, domain.KindAuth, fe.Kind)
}
