package boc_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/adapters/boc"
	"github.com/alejandrodnm/curvewatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("../../../testdata/fixtures/" + name)
	require.NoError(t, err)
	return data
}

func TestFetchObservations_SkipsEmptyValues(t *testing.T) {
	data := fixture(t, "boc_series_observations.json")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/valet/observations/BD.CDN.10YR.DQ.YLD/json", r.URL.Path)
		assert.Equal(t, "2025-01-01", r.URL.Query().Get("start_date"))
		assert.Equal(t, "2025-01-07", r.URL.Query().Get("end_date"))
		w.Write(data)
	}))
	defer srv.Close()

	obs, err := boc.NewClient(srv.URL).FetchObservations(context.Background(), "BD.CDN.10YR.DQ.YLD", day("2025-01-01"), day("2025-01-07"))
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.InDelta(t, 3.28, obs[0].Value, 1e-9)
	assert.Equal(t, day("2025-01-07"), obs[1].Date)
}

func TestFetchCurve_GroupMapsSeriesToMaturities(t *testing.T) {
	data := fixture(t, "boc_group_bond_yields.json")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/valet/observations/group/bond_yields_benchmark/json", r.URL.Path)
		w.Write(data)
	}))
	defer srv.Close()

	raw, date, err := boc.NewClient(srv.URL).FetchCurve(context.Background(), day("2025-01-08"))
	require.NoError(t, err)
	assert.Equal(t, day("2025-01-07"), date)
	assert.Len(t, raw, 8)
	assert.Equal(t, "3.38", raw[domain.M30Y])
	assert.Equal(t, "3.12", raw[domain.M3M])
	_, has1Y := raw[domain.M1Y]
	assert.False(t, has1Y)
}

func TestFetchCurve_NoObservations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"observations":[]}`))
	}))
	defer srv.Close()

	raw, _, err := boc.NewClient(srv.URL).FetchCurve(context.Background(), day("2025-01-08"))
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestPolicyRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/valet/observations/V39079/json", r.URL.Path)
		w.Write([]byte(`{"observations":[{"d":"2025-01-06","V39079":{"v":"3.25"}},{"d":"2025-01-07","V39079":{"v":"3.25"}}]}`))
	}))
	defer srv.Close()

	rate, err := boc.NewClient(srv.URL).PolicyRate(context.Background(), day("2025-01-08"))
	require.NoError(t, err)
	assert.InDelta(t, 3.25, rate, 1e-9)
}

func TestFetchObservations_NotFoundIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Series V0 not found."}`))
	}))
	defer srv.Close()

	_, err := boc.NewClient(srv.URL).FetchObservations(context.Background(), "V0", day("2025-01-01"), day("2025-01-02"))
	var fe *domain.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, domain.KindNotFound, fe.Kind)
	assert.Equal(t, domain.SourceBoC, fe.Source)
}

func TestBackfillSeries(t *testing.T) {
	series := boc.BackfillSeries()
	assert.Len(t, series, 10)
	assert.Equal(t, "V80691346", series[domain.M1Y])
	assert.Equal(t, "BD.CDN.LONG.DQ.YLD", series[domain.M30Y])
}
