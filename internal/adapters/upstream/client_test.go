package upstream_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/adapters/upstream"
	"github.com/alejandrodnm/curvewatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recorder) ObserveRequest(_ domain.DataSource, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func TestGetJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value":"4.25"}`))
	}))
	defer srv.Close()

	rec := &recorder{}
	c := upstream.New(domain.SourceFRED, upstream.WithObserver(rec), upstream.WithRate(100, 10))
	var out struct {
		Value string `json:"value"`
	}
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, "DGS10", &out))
	assert.Equal(t, "4.25", out.Value)
	assert.Equal(t, []string{upstream.OutcomeOK}, rec.outcomes)
}

func TestGetJSON_StatusClassification(t *testing.T) {
	cases := []struct {
		status int
		kind   domain.ErrorKind
	}{
		{http.StatusBadGateway, domain.KindTransient},
		{http.StatusServiceUnavailable, domain.KindTransient},
		{http.StatusTooManyRequests, domain.KindTransient},
		{http.StatusUnauthorized, domain.KindAuth},
		{http.StatusNotFound, domain.KindNotFound},
		{http.StatusBadRequest, domain.KindBadRequest},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(`{"error_message":"nope"}`))
		}))

		c := upstream.New(domain.SourceFRED)
		var out map[string]any
		err := c.GetJSON(context.Background(), srv.URL, "DGS2", &out)
		srv.Close()

		var fe *domain.FetchError
		require.True(t, errors.As(err, &fe), "status %d", tc.status)
		assert.Equal(t, tc.kind, fe.Kind, "status %d", tc.status)
		assert.Equal(t, tc.status, fe.Status)
		assert.Equal(t, "DGS2", fe.Series)
	}
}

func TestGetJSON_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	err := upstream.New(domain.SourceBoC).GetJSON(context.Background(), srv.URL, "V39079", &map[string]any{})
	var fe *domain.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, domain.KindMalformed, fe.Kind)
	assert.False(t, domain.IsTransient(err))
}

func TestGetJSON_TimeoutIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	rec := &recorder{}
	c := upstream.New(domain.SourceFMP, upstream.WithTimeout(20*time.Millisecond), upstream.WithObserver(rec))
	err := c.GetJSON(context.Background(), srv.URL+"?apikey=secret", "treasury", &map[string]any{})
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
	assert.NotContains(t, err.Error(), "secret")
	assert.Equal(t, []string{upstream.OutcomeTransient}, rec.outcomes)
}
