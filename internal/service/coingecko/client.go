package coingecko

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"BreadthPull/internal/domain/models"
	drepo "BreadthPull/internal/domain/repository"
	"BreadthPull/pkg/logger"
)

// Fetcher retrieves a response body, retrying rate-limited requests.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string, maxRetries int, baseDelay time.Duration) ([]byte, error)
}

// Config holds the provider settings.
type Config struct {
	BaseURL      string
	APIKey       string
	APIKeyHeader string
	VsCurrency   string
	Days         int
	MaxRetries   int
	BaseDelay    time.Duration
}

// Client loads market capitalisation history from a CoinGecko compatible API.
type Client struct {
	cfg     Config
	fetcher Fetcher
	log     *logger.Logger
}

var _ drepo.MarketDataSource = (*Client)(nil)

// New creates a provider client.
func New(cfg Config, f Fetcher, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, fetcher: f, log: log}
}

// LoadCoin returns the daily market cap series of one asset.
func (c *Client) LoadCoin(ctx context.Context, assetID string) (models.TimeSeries, error) {
	u := c.CoinURL(assetID)
	series, err := c.load(ctx, u, ParseMarketCaps)
	if err != nil {
		return models.TimeSeries{}, withAsset(err, assetID, u)
	}
	c.log.Debug("coin series loaded",
		logger.String("asset", assetID),
		logger.Int("points", series.Len()),
	)
	return series, nil
}

// LoadGlobal returns the whole-market capitalisation series.
func (c *Client) LoadGlobal(ctx context.Context) (models.TimeSeries, error) {
	u := c.GlobalURL()
	series, err := c.load(ctx, u, ParseGlobalMarketCaps)
	if err != nil {
		return models.TimeSeries{}, withAsset(err, "global", u)
	}
	c.log.Debug("global series loaded", logger.Int("points", series.Len()))
	return series, nil
}

// CoinURL builds the market chart URL for assetID.
func (c *Client) CoinURL(assetID string) string {
	q := url.Values{}
	q.Set("vs_currency", c.cfg.VsCurrency)
	q.Set("days", strconv.Itoa(c.cfg.Days))
	return fmt.Sprintf("%s/coins/%s/market_chart?%s", c.cfg.BaseURL, url.PathEscape(assetID), q.Encode())
}

// GlobalURL builds the global market cap chart URL.
func (c *Client) GlobalURL() string {
	q := url.Values{}
	q.Set("days", strconv.Itoa(c.cfg.Days))
	return fmt.Sprintf("%s/global/market_cap_chart?%s", c.cfg.BaseURL, q.Encode())
}

func (c *Client) headers() map[string]string {
	if c.cfg.APIKey == "" {
		return nil
	}
	return map[string]string{c.cfg.APIKeyHeader: c.cfg.APIKey}
}

func (c *Client) load(ctx context.Context, u string, parse func([]byte) (models.TimeSeries, error)) (models.TimeSeries, error) {
	body, err := c.fetcher.Fetch(ctx, u, c.headers(), c.cfg.MaxRetries, c.cfg.BaseDelay)
	if err != nil {
		return models.TimeSeries{}, err
	}
	return parse(body)
}

// withAsset attaches the asset id to err, turning parse failures into FetchErrors.
// Context errors pass through untouched.
func withAsset(err error, assetID, u string) error {
	var fe *models.FetchError
	if errors.As(err, &fe) {
		fe.AssetID = assetID
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &models.FetchError{AssetID: assetID, URL: u, Attempts: 1, Err: err}
}
