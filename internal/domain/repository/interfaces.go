package repository

import (
	"context"

	"BreadthPull/internal/domain/models"
)

// MarketDataSource loads historical market capitalisation series.
type MarketDataSource interface {
	LoadCoin(ctx context.Context, assetID string) (models.TimeSeries, error)
	LoadGlobal(ctx context.Context) (models.TimeSeries, error)
}

// ReportSink receives every freshly computed report (charts, brokers, websocket clients).
type ReportSink interface {
	Name() string
	Publish(ctx context.Context, r *models.Report) error
}

type Metrics interface {
	RecordFetch(endpoint, outcome string)
	RecordRetry(endpoint string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordIndicator(name string, value float64, ascending bool)
}

// NopMetrics discards every measurement.
type NopMetrics struct{}

func (NopMetrics) RecordFetch(string, string) {}
func (NopMetrics) RecordRetry(string) {}
func (NopMetrics) RecordError(string) {}
func (NopMetrics) RecordLatency(string, float64) {}
func (NopMetrics) RecordIndicator(string, float64, bool) {}
