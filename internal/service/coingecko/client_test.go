package coingecko

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"BreadthPull/internal/domain/models"
	"BreadthPull/internal/service/fetcher"
	xhttp "BreadthPull/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestParseMarketCapsKeepsLastValuePerDay(t *testing.T) {
	// 2024-01-01 00:00, 2024-01-01 12:00, 2024-01-02 00:00
	body := []byte(`{"market_caps":[[1704067200000,100],[1704110400000,110],[1704153600000,120]]}`)
	s, err := ParseMarketCaps(body)
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())

	v, ok := s.At(date("2024-01-01"))
	require.True(t, ok)
	assert.Equal(t, 110.0, v)
	v, ok = s.At(date("2024-01-02"))
	require.True(t, ok)
	assert.Equal(t, 120.0, v)
}

func TestParseMarketCapsSkipsMalformedPairs(t *testing.T) {
	body := []byte(`{"market_caps":[[1704067200000,null],"junk",[1704153600000],[1704153600000,5.5]]}`)
	s, err := ParseMarketCaps(body)
	require.NoError(t, err)
	assert.Equal(t, []float64{5.5}, s.Values())
}

func TestParseMarketCapsErrors(t *testing.T) {
	cases := map[string]string{
		"not json":     `<html>`,
		"missing key":  `{"prices":[[1,2]]}`,
		"wrong shape":  `{"market_caps":{"a":1}}`,
		"no usable":    `{"market_caps":[[1704067200000,null]]}`,
		"empty list":   `{"market_caps":[]}`,
		"null payload": `{"market_caps":null}`,
	}
	for name, body := range cases {
		_, err := ParseMarketCaps([]byte(body))
		assert.ErrorIs(t, err, models.ErrParse, name)
	}
}

func TestParseGlobalMarketCapsAcceptsBothShapes(t *testing.T) {
	nested := []byte(`{"market_cap_chart":{"market_cap":[[1704067200000,1000]]}}`)
	flat := []byte(`{"market_caps":[[1704067200000,1000]]}`)

	for _, body := range [][]byte{nested, flat} {
		s, err := ParseGlobalMarketCaps(body)
		require.NoError(t, err)
		assert.Equal(t, []float64{1000}, s.Values())
	}

	_, err := ParseGlobalMarketCaps([]byte(`{"data":{}}`))
	assert.ErrorIs(t, err, models.ErrParse)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	f := fetcher.New(xhttp.NewClient(), fetcher.WithSleep(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }))
	c := New(Config{
		BaseURL:      srv.URL + "/api/v3/",
		APIKey:       "secret",
		APIKeyHeader: "x-cg-demo-api-key",
		VsCurrency:   "usd",
		Days:         90,
		MaxRetries:   2,
		BaseDelay:    time.Millisecond,
	}, f, nil)
	return c, srv
}

func TestLoadCoinRequestsMarketChart(t *testing.T) {
	var gotPath, gotQuery, gotKey string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotKey = r.URL.Path, r.URL.RawQuery, r.Header.Get("x-cg-demo-api-key")
		_, _ = w.Write([]byte(`{"market_caps":[[1704067200000,1],[1704153600000,2]]}`))
	})

	s, err := c.LoadCoin(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "/api/v3/coins/bitcoin/market_chart", gotPath)
	assert.Equal(t, "days=90&vs_currency=usd", gotQuery)
	assert.Equal(t, "secret", gotKey)
}

func TestLoadGlobalRequestsMarketCapChart(t *testing.T) {
	var gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"market_cap_chart":{"market_cap":[[1704067200000,10]]}}`))
	})

	s, err := c.LoadGlobal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "/api/v3/global/market_cap_chart", gotPath)
}

func TestLoadCoinErrorsCarryAssetID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v3/coins/solana/market_chart" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"market_caps":[]}`))
	})

	_, err := c.LoadCoin(context.Background(), "solana")
	var fe *models.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "solana", fe.AssetID)
	assert.ErrorIs(t, err, models.ErrHTTPStatus)

	_, err = c.LoadCoin(context.Background(), "ethereum")
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "ethereum", fe.AssetID)
	assert.ErrorIs(t, err, models.ErrParse)
}

func TestLoadCoinWithoutAPIKeySendsNoHeader(t *testing.T) {
	var present bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header["X-Cg-Demo-Api-Key"]
		_, _ = w.Write([]byte(`{"market_caps":[[1704067200000,1]]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKeyHeader: "x-cg-demo-api-key", VsCurrency: "usd", Days: 30}, fetcher.New(xhttp.NewClient()), nil)
	_, err := c.LoadCoin(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.False(t, present)
}
