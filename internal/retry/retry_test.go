package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/domain"
	"github.com/alejandrodnm/curvewatch/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transient() error {
	return &domain.FetchError{Kind: domain.KindTransient, Source: domain.SourceFRED, Status: 502}
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond}
}

func TestPolicy_Delay(t *testing.T) {
	p := retry.Policy{MaxAttempts: 3, InitialDelay: time.Second}
	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
}

func TestDo_RetriesTransientUntilSuccess(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return transient()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return transient()
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, domain.IsTransient(err), "last error must stay inspectable")
}

func TestDo_PermanentNotRetried(t *testing.T) {
	for _, kind := range []domain.ErrorKind{domain.KindAuth, domain.KindNotFound, domain.KindBadRequest, domain.KindMalformed} {
		calls := 0
		perm := &domain.FetchError{Kind: kind}
		err := fastPolicy().Do(context.Background(), func(context.Context) error {
			calls++
			return perm
		})
		assert.ErrorIs(t, err, perm)
		assert.Equal(t, 1, calls, "kind %s", kind)
	}
}

func TestDo_PlainErrorNotRetried(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("boom")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := retry.Policy{MaxAttempts: 5, InitialDelay: time.Hour}
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, func(context.Context) error {
			calls++
			return transient()
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not honor cancellation")
	}
}

func TestValue_ReturnsResult(t *testing.T) {
	calls := 0
	v, err := retry.Value(context.Background(), fastPolicy(), func(context.Context) (float64, error) {
		calls++
		if calls == 1 {
			return 0, transient()
		}
		return 4.25, nil
	})
	require.NoError(t, err)
	assert.InDelta(t, 4.25, v, 1e-9)
}

type flakySource struct {
	failures int
	calls    int
}

func (f *flakySource) FetchObservations(_ context.Context, _ string, _, _ time.Time) ([]domain.Observation, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, transient()
	}
	return []domain.Observation{{Date: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), Value: 4.4}}, nil
}

func (f *flakySource) Latest(_ context.Context, _ string, date time.Time) (domain.Observation, bool, error) {
	f.calls++
	if f.calls <= f.failures {
		return domain.Observation{}, false, transient()
	}
	return domain.Observation{Date: date, Value: 4.4}, true, nil
}

func TestSeries_DecoratesSource(t *testing.T) {
	src := &flakySource{failures: 2}
	wrapped := retry.Series(src, fastPolicy())

	obs, err := wrapped.FetchObservations(context.Background(), "DGS10", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, 3, src.calls)

	src2 := &flakySource{failures: 5}
	_, ok, err := retry.Series(src2, fastPolicy()).Latest(context.Background(), "DGS2", time.Now())
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, src2.calls)
}
