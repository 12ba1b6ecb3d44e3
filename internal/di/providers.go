package di

import (
	"fmt"
	"time"

	"BreadthPull/internal/domain/repository"
	"BreadthPull/internal/handler/api"
	internalrepo "BreadthPull/internal/repository"
	"BreadthPull/internal/service/coingecko"
	"BreadthPull/internal/service/fetcher"
	"BreadthPull/internal/service/ratelimit"
	"BreadthPull/internal/services/chart"
	"BreadthPull/internal/usecase"
	"BreadthPull/pkg/cache"
	"BreadthPull/pkg/config"
	xhttp "BreadthPull/pkg/http"
	pkgkafka "BreadthPull/pkg/kafka"
	"BreadthPull/pkg/logger"
	"BreadthPull/pkg/metrics"
	"BreadthPull/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the response cache. With Redis enabled the memory cache
// becomes L1 in front of Redis; an unreachable Redis degrades to memory only.
func ProvideCache(cfg *config.Config, log *logger.Logger) (cache.Service, func(), error) {
	mem := cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize))
	if !cfg.Cache.Redis.Enabled {
		return mem, func() { _ = mem.Close() }, nil
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Cache.Redis.Addr),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		log.Warn("redis unavailable, using memory cache only",
			logger.String("addr", cfg.Cache.Redis.Addr),
			logger.Error(err),
		)
		return mem, func() { _ = mem.Close() }, nil
	}

	layered := cache.NewLayeredCache(mem, rc, cfg.Cache.TTL)
	return layered, func() { _ = layered.Close() }, nil
}

// ProvidePacer creates the per-host request pacer.
func ProvidePacer(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.CoinGecko.Pacing)
}

// ProvideNotices creates the run notice collector shared by the fetcher and the pipeline.
func ProvideNotices() *usecase.Notices {
	return usecase.NewNotices()
}

// ProvideFetcher creates the backoff fetcher.
func ProvideFetcher(
	cfg *config.Config,
	c cache.Service,
	pacer *ratelimit.Limiter,
	m repository.Metrics,
	log *logger.Logger,
	notices *usecase.Notices,
) *fetcher.BackoffFetcher {
	client := xhttp.NewClient(xhttp.WithTimeout(cfg.CoinGecko.Timeout))
	return fetcher.New(client,
		fetcher.WithCache(c, cfg.Cache.TTL),
		fetcher.WithPacer(pacer),
		fetcher.WithMetrics(m),
		fetcher.WithLogger(log),
		fetcher.WithNotifier(func(n fetcher.RetryNotice) {
			notices.Add("rate limited (HTTP %d) on %s, retry %d in %s", n.Status, n.URL, n.Attempt, n.Delay.Round(time.Millisecond))
		}),
	)
}

// ProvideMarketDataSource creates the CoinGecko loader.
func ProvideMarketDataSource(cfg *config.Config, f *fetcher.BackoffFetcher, log *logger.Logger) repository.MarketDataSource {
	return coingecko.New(coingecko.Config{
		BaseURL:      cfg.CoinGecko.BaseURL,
		APIKey:       cfg.CoinGecko.APIKey,
		APIKeyHeader: cfg.CoinGecko.APIKeyHeader,
		VsCurrency:   cfg.CoinGecko.VsCurrency,
		Days:         cfg.CoinGecko.Days,
		MaxRetries:   cfg.CoinGecko.MaxRetries,
		BaseDelay:    cfg.CoinGecko.BaseDelay,
	}, f, log)
}

// ProvidePipeline creates the breadth pipeline.
func ProvidePipeline(
	cfg *config.Config,
	src repository.MarketDataSource,
	notices *usecase.Notices,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.BreadthPipeline {
	return usecase.NewBreadthPipeline(src, usecase.PipelineConfig{
		Basket:            cfg.Breadth.Basket,
		Primary:           cfg.Breadth.Primary,
		BufferFactor:      cfg.Breadth.BufferFactor,
		ShortWindow:       cfg.Breadth.ShortWindow,
		LongWindow:        cfg.Breadth.LongWindow,
		UseReferenceTotal: cfg.Breadth.UseReferenceTotal,
	}, notices, m, log)
}

// ProvideStreamHub creates the websocket report stream.
func ProvideStreamHub(cfg *config.Config, log *logger.Logger) *api.StreamHub {
	return api.NewStreamHub(log, cfg.Charts.Tail)
}

// ProvideSinks assembles every enabled report sink.
func ProvideSinks(cfg *config.Config, hub *api.StreamHub, log *logger.Logger) ([]repository.ReportSink, func(), error) {
	sinks := []repository.ReportSink{hub}
	cleanup := func() {}

	if cfg.Charts.Enabled {
		sinks = append(sinks, chart.NewRenderer(cfg.Charts.Dir, cfg.Charts.Tail, cfg.Charts.Width, cfg.Charts.Height, log))
	}

	if cfg.Kafka.Enabled {
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
			pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
			pkgkafka.WithHashByKey(true),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("kafka producer: %w", err)
		}
		sinks = append(sinks, internalrepo.NewKafkaReportPublisher(producer, cfg.Kafka.Topic, cfg.Charts.Tail))
		cleanup = func() {
			if err := producer.Close(); err != nil {
				log.Warn("kafka producer close error", logger.Error(err))
			}
		}
		log.Info("kafka report sink enabled",
			logger.Strings("brokers", cfg.Kafka.Brokers),
			logger.String("topic", cfg.Kafka.Topic),
		)
	}

	return sinks, cleanup, nil
}

// ProvideBreadthService creates the scheduled breadth service.
func ProvideBreadthService(cfg *config.Config, p *usecase.BreadthPipeline, sinks []repository.ReportSink, log *logger.Logger) *usecase.BreadthService {
	return usecase.NewBreadthService(p, sinks, cfg.Pipeline.Timeout, cfg.Pipeline.RefreshInterval, log)
}

// ProvideHTTPHandler creates the breadth API handler.
func ProvideHTTPHandler(log *logger.Logger, svc *usecase.BreadthService, hub *api.StreamHub) xhttp.Handler {
	return api.NewBreadthEchoHandler(log, svc, hub)
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, log *logger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins...),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(log),
	)
}

// ProvideApp creates the main application.
func ProvideApp(cfg *config.Config, svc *usecase.BreadthService, srv *xhttp.Server, hub *api.StreamHub, log *logger.Logger) *server.App {
	return server.New(cfg, svc, srv, hub, log)
}
