package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DeclineWatch/internal/model"
)

type flakyFetcher struct {
	failures int
	err      error
	calls    int
}

func (f *flakyFetcher) Name() string { return "flaky" }

func (f *flakyFetcher) FetchDailyBars(_ context.Context, _ model.Stock, days int) ([]model.OHLCV, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return generateMockBars(100, days), nil
}

func TestRetryFetcher_RecoversFromTransient(t *testing.T) {
	inner := &flakyFetcher{failures: 2, err: &TransientError{Err: errors.New("timeout")}}
	r := NewRetryFetcher(inner, 3, time.Millisecond)

	bars, err := r.FetchDailyBars(context.Background(), model.Stock{Code: "a"}, 5)
	require.NoError(t, err)
	assert.Len(t, bars, 5)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryFetcher_BoundedAttempts(t *testing.T) {
	inner := &flakyFetcher{failures: 100, err: &TransientError{Err: errors.New("503")}}
	r := NewRetryFetcher(inner, 2, time.Millisecond)

	_, err := r.FetchDailyBars(context.Background(), model.Stock{Code: "a"}, 5)
	assert.ErrorContains(t, err, "all 3 attempts exhausted")
	assert.Equal(t, 3, inner.calls)
}

func TestRetryFetcher_PermanentErrorNotRetried(t *testing.T) {
	inner := &flakyFetcher{failures: 100, err: ErrNoData}
	r := NewRetryFetcher(inner, 5, time.Millisecond)

	_, err := r.FetchDailyBars(context.Background(), model.Stock{Code: "a"}, 5)
	assert.True(t, errors.Is(err, ErrNoData))
	assert.Equal(t, 1, inner.calls)
}

func TestRetryFetcher_ContextCancelled(t *testing.T) {
	inner := &flakyFetcher{failures: 100, err: &TransientError{Err: errors.New("reset")}}
	r := NewRetryFetcher(inner, 5, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.FetchDailyBars(ctx, model.Stock{Code: "a"}, 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, inner.calls)
}
