package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"BreadthPull/internal/domain/models"
	drepo "BreadthPull/internal/domain/repository"
	"BreadthPull/internal/services/indicators"
	"BreadthPull/pkg/logger"

	"github.com/google/uuid"
)

// PipelineConfig is everything a run needs besides its collaborators.
type PipelineConfig struct {
	Basket            []string
	Primary           string
	BufferFactor      float64
	ShortWindow       int
	LongWindow        int
	UseReferenceTotal bool
}

// BreadthPipeline loads the basket, aggregates the composites and computes their trends.
type BreadthPipeline struct {
	source  drepo.MarketDataSource
	cfg     PipelineConfig
	notices *Notices
	metrics drepo.Metrics
	log     *logger.Logger
	now     func() time.Time
}

func NewBreadthPipeline(source drepo.MarketDataSource, cfg PipelineConfig, notices *Notices, metrics drepo.Metrics, log *logger.Logger) *BreadthPipeline {
	if notices == nil {
		notices = NewNotices()
	}
	if metrics == nil {
		metrics = drepo.NopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &BreadthPipeline{
		source:  source,
		cfg:     cfg,
		notices: notices,
		metrics: metrics,
		log:     log,
		now:     time.Now,
	}
}

// Run executes one pipeline pass.
//
// Assets are fetched one at a time in basket order. An asset that fails to
// load is recorded as missing and the run continues. Once ctx is done no
// further fetches start and the report is built from what was gathered.
// The only fatal outcome is having no asset at all (models.ErrNoData).
func (p *BreadthPipeline) Run(ctx context.Context) (*models.Report, error) {
	start := p.now()
	runID := uuid.NewString()
	log := p.log.With(logger.String("run_id", runID))
	p.notices.Drain()

	report := &models.Report{
		RunID:      runID,
		Basket:     append([]string(nil), p.cfg.Basket...),
		Primary:    p.cfg.Primary,
		Loaded:     []string{},
		Errors:     map[models.Composite]string{},
		Disclaimer: Disclaimer,
	}

	var reference *models.TimeSeries
	if p.cfg.UseReferenceTotal {
		ref, err := p.source.LoadGlobal(ctx)
		if err != nil {
			log.Warn("reference total unavailable, falling back to basket sum", logger.Error(err))
			p.metrics.RecordError("reference_unavailable")
			p.notices.Add("reference total unavailable, TOTAL approximated from the basket: %v", err)
		} else {
			reference = &ref
			report.ReferenceTotal = true
		}
	}

	set := p.loadBasket(ctx, log, report)
	if len(set) == 0 {
		p.metrics.RecordError("no_data")
		err := fmt.Errorf("%w: 0 of %d basket assets loaded", models.ErrNoData, len(p.cfg.Basket))
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", err, ctxErr)
		}
		log.Error("pipeline run failed", logger.Error(err))
		return nil, err
	}

	agg := Aggregate(set, p.cfg.Basket, AggregateOptions{
		Primary:      p.cfg.Primary,
		BufferFactor: p.cfg.BufferFactor,
		Reference:    reference,
	})

	primaryName := displayName(p.cfg.Primary)
	for _, c := range models.Composites() {
		ind, err := p.indicator(c, agg, primaryName)
		if err != nil {
			report.Errors[c] = err.Error()
			log.Warn("indicator unavailable", logger.String("indicator", string(c)), logger.Error(err))
			continue
		}
		report.Indicators = append(report.Indicators, ind)
		last, _ := ind.Series.Last()
		p.metrics.RecordIndicator(string(c), last.Value, ind.Signal.Trend == models.Ascending)
	}
	if len(report.Errors) == 0 {
		report.Errors = nil
	}

	report.Partial = len(report.Missing) > 0
	report.Notices = p.notices.Drain()
	report.GeneratedAt = p.now().UTC()
	report.Duration = report.GeneratedAt.Sub(start)
	p.metrics.RecordLatency("pipeline", report.Duration.Seconds())

	log.Info("pipeline run completed",
		logger.Int("loaded", len(report.Loaded)),
		logger.Int("missing", len(report.Missing)),
		logger.Int("indicators", len(report.Indicators)),
		logger.Bool("reference_total", report.ReferenceTotal),
		logger.Duration("duration_ms", report.Duration),
	)
	return report, nil
}

func (p *BreadthPipeline) loadBasket(ctx context.Context, log *logger.Logger, report *models.Report) models.AssetSeriesSet {
	set := models.AssetSeriesSet{}
	for i, id := range p.cfg.Basket {
		if err := ctx.Err(); err != nil {
			for _, rest := range p.cfg.Basket[i:] {
				report.Missing = append(report.Missing, models.MissingAsset{AssetID: rest, Reason: "not fetched: " + err.Error()})
			}
			log.Warn("run interrupted, finalising with gathered assets",
				logger.Int("loaded", len(set)),
				logger.Int("skipped", len(p.cfg.Basket)-i),
			)
			p.notices.Add("run interrupted after %d of %d assets", i, len(p.cfg.Basket))
			break
		}

		s, err := p.source.LoadCoin(ctx, id)
		if err != nil {
			reason := err.Error()
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				reason = "not fetched: " + reason
			}
			log.Warn("asset unavailable", logger.String("asset", id), logger.Error(err))
			p.metrics.RecordError("asset_unavailable")
			report.Missing = append(report.Missing, models.MissingAsset{AssetID: id, Reason: reason})
			continue
		}
		set[id] = s
		report.Loaded = append(report.Loaded, id)
	}
	return set
}

func (p *BreadthPipeline) indicator(c models.Composite, agg AggregateResult, primaryName string) (models.Indicator, error) {
	if err := agg.Err(c); err != nil {
		return models.Indicator{}, err
	}
	series := agg.Series[c]
	short, long, signal, err := indicators.Trend(series, p.cfg.ShortWindow, p.cfg.LongWindow)
	if err != nil {
		return models.Indicator{}, err
	}
	text := describe(c, primaryName)
	return models.Indicator{
		Name:        c,
		Title:       text.title,
		Caption:     text.caption,
		Label:       text.label(signal.Trend),
		ShortWindow: p.cfg.ShortWindow,
		LongWindow:  p.cfg.LongWindow,
		Signal:      signal,
		Series:      series,
		ShortSMA:    short,
		LongSMA:     long,
	}, nil
}
