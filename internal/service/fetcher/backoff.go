package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"path"
	"time"

	"BreadthPull/internal/domain/models"
	drepo "BreadthPull/internal/domain/repository"
	"BreadthPull/pkg/cache"
	xhttp "BreadthPull/pkg/http"
	"BreadthPull/pkg/logger"
)

const (
	statusTooManyRequests = 429
	maxJitter             = time.Second
	bodySnippetLen        = 200
)

// Doer performs one HTTP GET and returns the fully read response.
// A non-nil error means no response was received.
type Doer interface {
	Get(ctx context.Context, url string, headers map[string]string) (*xhttp.Response, error)
}

// Pacer blocks until the next request for key may go out.
type Pacer interface {
	Wait(ctx context.Context, key string) error
}

// RetryNotice is emitted once for every rate-limited attempt that will be retried.
type RetryNotice struct {
	URL     string
	Attempt int
	Status  int
	Delay   time.Duration
}

type outcomeKind int

const (
	outcomeOK outcomeKind = iota
	outcomeTransport
	outcomeRateLimited
	outcomeHTTPError
)

func (k outcomeKind) String() string {
	switch k {
	case outcomeOK:
		return "ok"
	case outcomeTransport:
		return "transport_error"
	case outcomeRateLimited:
		return "rate_limited"
	default:
		return "http_error"
	}
}

// outcome is the result of a single network attempt.
type outcome struct {
	kind   outcomeKind
	status int
	body   []byte
	err    error
}

// BackoffFetcher retrieves response bodies, retrying rate-limited requests
// with exponential backoff plus jitter. Any other failure is returned immediately.
type BackoffFetcher struct {
	client   Doer
	cache    cache.Service
	cacheTTL time.Duration
	pacer    Pacer
	metrics  drepo.Metrics
	log      *logger.Logger

	notify func(RetryNotice)
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

// Option configures BackoffFetcher.
type Option func(*BackoffFetcher)

// WithCache enables the response cache. Only successful bodies are stored, keyed by URL.
func WithCache(c cache.Service, ttl time.Duration) Option {
	return func(f *BackoffFetcher) {
		f.cache = c
		f.cacheTTL = ttl
	}
}

func WithPacer(p Pacer) Option {
	return func(f *BackoffFetcher) { f.pacer = p }
}

func WithMetrics(m drepo.Metrics) Option {
	return func(f *BackoffFetcher) {
		if m != nil {
			f.metrics = m
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(f *BackoffFetcher) {
		if l != nil {
			f.log = l
		}
	}
}

// WithNotifier registers a callback invoked before every retry sleep.
func WithNotifier(fn func(RetryNotice)) Option {
	return func(f *BackoffFetcher) { f.notify = fn }
}

// WithSleep replaces the context-aware sleep.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(f *BackoffFetcher) { f.sleep = fn }
}

// WithJitter replaces the uniform [0,1s) jitter source.
func WithJitter(fn func() time.Duration) Option {
	return func(f *BackoffFetcher) { f.jitter = fn }
}

// New creates a BackoffFetcher on top of client.
func New(client Doer, opts ...Option) *BackoffFetcher {
	f := &BackoffFetcher{
		client:  client,
		metrics: drepo.NopMetrics{},
		log:     logger.Nop(),
		sleep:   sleepCtx,
		jitter:  uniformJitter,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the body of a successful GET of rawURL.
//
// A 429 response is retried up to maxRetries times; the delay before retry k
// (starting at 0) is baseDelay*2^k plus a uniform jitter in [0,1s). Any other
// error status or a transport failure ends the call on the first attempt.
// Failures are *models.FetchError values wrapping one of the fetch sentinels;
// cancellation returns the context error.
func (f *BackoffFetcher) Fetch(ctx context.Context, rawURL string, headers map[string]string, maxRetries int, baseDelay time.Duration) ([]byte, error) {
	endpoint, host := describe(rawURL)
	key := cache.GenerateKeyWithParams("http", cache.HashKey(rawURL))

	if f.cache != nil {
		b, err := f.cache.GetBytes(ctx, key)
		if err == nil {
			f.metrics.RecordFetch(endpoint, "cache_hit")
			return b, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			f.log.Warn("response cache read failed", logger.String("url", rawURL), logger.Error(err))
		}
	}

	for attempt := 0; ; attempt++ {
		if f.pacer != nil {
			if err := f.pacer.Wait(ctx, host); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				return nil, fmt.Errorf("pace %s: %w", host, err)
			}
		}

		start := time.Now()
		out := f.attempt(ctx, rawURL, headers)
		f.metrics.RecordLatency("fetch", time.Since(start).Seconds())
		f.metrics.RecordFetch(endpoint, out.kind.String())

		switch out.kind {
		case outcomeOK:
			if f.cache != nil {
				if err := f.cache.SetBytes(ctx, key, out.body, f.cacheTTL); err != nil {
					f.log.Warn("response cache write failed", logger.String("url", rawURL), logger.Error(err))
				}
			}
			return out.body, nil

		case outcomeTransport:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			f.metrics.RecordError("transport")
			return nil, &models.FetchError{
				URL:      rawURL,
				Attempts: attempt + 1,
				Err:      fmt.Errorf("%w: %w", models.ErrTransport, out.err),
			}

		case outcomeHTTPError:
			f.metrics.RecordError("http_status")
			return nil, &models.FetchError{
				URL:      rawURL,
				Status:   out.status,
				Attempts: attempt + 1,
				Err:      fmt.Errorf("%w: %s", models.ErrHTTPStatus, snippet(out.body)),
			}

		case outcomeRateLimited:
			if attempt >= maxRetries {
				f.metrics.RecordError("retries_exhausted")
				return nil, &models.FetchError{
					URL:      rawURL,
					Status:   out.status,
					Attempts: attempt + 1,
					Err:      fmt.Errorf("%w: %w", models.ErrRetriesExhausted, models.ErrRateLimited),
				}
			}

			delay := baseDelay*time.Duration(1<<attempt) + f.jitter()
			f.log.Warn("rate limited, retrying",
				logger.String("url", rawURL),
				logger.Int("attempt", attempt+1),
				logger.Int("max_retries", maxRetries),
				logger.Duration("delay_ms", delay),
			)
			f.metrics.RecordRetry(endpoint)
			if f.notify != nil {
				f.notify(RetryNotice{URL: rawURL, Attempt: attempt + 1, Status: out.status, Delay: delay})
			}
			if err := f.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
	}
}

func (f *BackoffFetcher) attempt(ctx context.Context, rawURL string, headers map[string]string) outcome {
	resp, err := f.client.Get(ctx, rawURL, headers)
	if err != nil {
		return outcome{kind: outcomeTransport, err: err}
	}
	switch {
	case resp.StatusCode == statusTooManyRequests:
		return outcome{kind: outcomeRateLimited, status: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return outcome{kind: outcomeHTTPError, status: resp.StatusCode, body: resp.Body}
	default:
		return outcome{kind: outcomeOK, status: resp.StatusCode, body: resp.Body}
	}
}

// describe returns a low-cardinality endpoint label and the pacing key for rawURL.
func describe(rawURL string) (endpoint, host string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown", rawURL
	}
	endpoint = path.Base(u.Path)
	if endpoint == "." || endpoint == "/" {
		endpoint = "root"
	}
	return endpoint, u.Host
}

func snippet(b []byte) string {
	if len(b) > bodySnippetLen {
		return string(b[:bodySnippetLen]) + "..."
	}
	return string(b)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func uniformJitter() time.Duration {
	return time.Duration(rand.Int64N(int64(maxJitter)))
}
