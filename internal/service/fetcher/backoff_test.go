package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"BreadthPull/internal/domain/models"
	"BreadthPull/pkg/cache"
	xhttp "BreadthPull/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedServer answers with the given statuses in order, then repeats the last one.
func scriptedServer(t *testing.T, statuses ...int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&calls, 1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		w.WriteHeader(statuses[n])
		if statuses[n] == http.StatusOK {
			_, _ = w.Write([]byte(`{"ok":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func newTestFetcher(rec *sleepRecorder, jitter time.Duration, opts ...Option) *BackoffFetcher {
	base := []Option{
		WithSleep(rec.sleep),
		WithJitter(func() time.Duration { return jitter }),
	}
	return New(xhttp.NewClient(xhttp.WithTimeout(5*time.Second)), append(base, opts...)...)
}

func TestFetchSucceedsFirstTry(t *testing.T) {
	srv, calls := scriptedServer(t, http.StatusOK)
	rec := &sleepRecorder{}
	f := newTestFetcher(rec, 0)

	body, err := f.Fetch(context.Background(), srv.URL+"/coins/bitcoin/market_chart", nil, 3, time.Second)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
	assert.Empty(t, rec.delays)
}

func TestFetchRetriesRateLimitWithExponentialDelay(t *testing.T) {
	srv, calls := scriptedServer(t, http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusOK)
	rec := &sleepRecorder{}
	var notices []RetryNotice
	f := newTestFetcher(rec, 250*time.Millisecond, WithNotifier(func(n RetryNotice) { notices = append(notices, n) }))

	body, err := f.Fetch(context.Background(), srv.URL+"/x", nil, 5, 2*time.Second)
	require.NoError(t, err)
	assert.NotEmpty(t, body)
	assert.EqualValues(t, 3, atomic.LoadInt32(calls))
	assert.Equal(t, []time.Duration{2250 * time.Millisecond, 4250 * time.Millisecond}, rec.delays)

	require.Len(t, notices, 2)
	assert.Equal(t, 1, notices[0].Attempt)
	assert.Equal(t, 2, notices[1].Attempt)
	assert.Equal(t, http.StatusTooManyRequests, notices[1].Status)
	assert.Equal(t, 4250*time.Millisecond, notices[1].Delay)
}

func TestFetchRetriesExhausted(t *testing.T) {
	srv, calls := scriptedServer(t, http.StatusTooManyRequests)
	rec := &sleepRecorder{}
	f := newTestFetcher(rec, 0)

	_, err := f.Fetch(context.Background(), srv.URL+"/x", nil, 3, time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrRetriesExhausted)
	assert.ErrorIs(t, err, models.ErrRateLimited)
	assert.EqualValues(t, 4, atomic.LoadInt32(calls))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, rec.delays)

	var fe *models.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 4, fe.Attempts)
	assert.Equal(t, http.StatusTooManyRequests, fe.Status)
}

func TestFetchZeroRetriesMakesSingleRequest(t *testing.T) {
	srv, calls := scriptedServer(t, http.StatusTooManyRequests)
	rec := &sleepRecorder{}
	f := newTestFetcher(rec, 0)

	_, err := f.Fetch(context.Background(), srv.URL+"/x", nil, 0, time.Second)
	assert.ErrorIs(t, err, models.ErrRetriesExhausted)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
	assert.Empty(t, rec.delays)
}

func TestFetchDoesNotRetryOtherStatuses(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError} {
		srv, calls := scriptedServer(t, status, http.StatusOK)
		rec := &sleepRecorder{}
		f := newTestFetcher(rec, 0)

		_, err := f.Fetch(context.Background(), srv.URL+"/x", nil, 5, time.Second)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrHTTPStatus)
		assert.EqualValues(t, 1, atomic.LoadInt32(calls), "status %d", status)

		var fe *models.FetchError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, status, fe.Status)
	}
}

func TestFetchTransportFailureIsImmediate(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	rec := &sleepRecorder{}
	f := newTestFetcher(rec, 0)
	_, err := f.Fetch(context.Background(), addr+"/x", nil, 5, time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTransport)
	assert.Empty(t, rec.delays)

	var fe *models.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 0, fe.Status)
	assert.Equal(t, 1, fe.Attempts)
}

func TestFetchCancelledDuringBackoff(t *testing.T) {
	srv, calls := scriptedServer(t, http.StatusTooManyRequests)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := New(xhttp.NewClient(), WithJitter(func() time.Duration { return 0 }),
		WithNotifier(func(RetryNotice) { cancel() }))

	_, err := f.Fetch(ctx, srv.URL+"/x", nil, 5, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestFetchCacheIgnoresHeaders(t *testing.T) {
	srv, calls := scriptedServer(t, http.StatusOK)
	rec := &sleepRecorder{}
	f := newTestFetcher(rec, 0, WithCache(cache.NewMemoryCache(), time.Hour))

	_, err := f.Fetch(context.Background(), srv.URL+"/x", map[string]string{"x-cg-demo-api-key": "a"}, 1, time.Second)
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), srv.URL+"/x", map[string]string{"x-cg-demo-api-key": "b"}, 1, time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestFetchDoesNotCacheFailures(t *testing.T) {
	srv, calls := scriptedServer(t, http.StatusNotFound, http.StatusOK)
	rec := &sleepRecorder{}
	f := newTestFetcher(rec, 0, WithCache(cache.NewMemoryCache(), time.Hour))

	_, err := f.Fetch(context.Background(), srv.URL+"/x", nil, 1, time.Second)
	require.Error(t, err)
	_, err = f.Fetch(context.Background(), srv.URL+"/x", nil, 1, time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

type countingPacer struct{ n int32 }

func (p *countingPacer) Wait(ctx context.Context, _ string) error {
	atomic.AddInt32(&p.n, 1)
	return ctx.Err()
}

func TestFetchPacesEveryNetworkAttempt(t *testing.T) {
	srv, _ := scriptedServer(t, http.StatusTooManyRequests, http.StatusOK)
	rec := &sleepRecorder{}
	p := &countingPacer{}
	f := newTestFetcher(rec, 0, WithPacer(p), WithCache(cache.NewMemoryCache(), time.Hour))

	_, err := f.Fetch(context.Background(), srv.URL+"/x", nil, 2, time.Millisecond)
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), srv.URL+"/x", nil, 2, time.Millisecond)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&p.n))
}

func TestDescribe(t *testing.T) {
	endpoint, host := describe("https://api.coingecko.com/api/v3/coins/bitcoin/market_chart?days=90")
	assert.Equal(t, "market_chart", endpoint)
	assert.Equal(t, "api.coingecko.com", host)
}
