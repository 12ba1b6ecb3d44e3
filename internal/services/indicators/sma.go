package indicators

import (
	"fmt"

	"BreadthPull/internal/domain/models"

	"github.com/montanaflynn/stats"
)

// SMA returns the simple moving average of s over window w.
// The average is defined from the w-th date on; earlier dates are omitted.
func SMA(s models.TimeSeries, w int) (models.TimeSeries, error) {
	if w < 1 {
		return models.TimeSeries{}, fmt.Errorf("%w: %d", models.ErrInvalidWindow, w)
	}
	points := s.Points()
	if len(points) < w {
		return models.NewDerivedSeries(nil), nil
	}

	values := s.Values()
	out := make([]models.Point, 0, len(points)-w+1)
	for i := w - 1; i < len(points); i++ {
		mean, err := stats.Mean(stats.Float64Data(values[i-w+1 : i+1]))
		if err != nil {
			return models.TimeSeries{}, fmt.Errorf("sma window ending %s: %w", points[i].Date.Format("2006-01-02"), err)
		}
		out = append(out, models.Point{Date: points[i].Date, Value: mean})
	}
	return models.NewDerivedSeries(out), nil
}

// Classify maps a short/long average pair to a trend. Ties are descending.
func Classify(short, long float64) models.Trend {
	if short > long {
		return models.Ascending
	}
	return models.Descending
}

// Trend computes both moving averages of s and the signal at the latest date
// where both are defined. s needs at least max(short, long) dates.
func Trend(s models.TimeSeries, short, long int) (models.TimeSeries, models.TimeSeries, models.TrendSignal, error) {
	if short < 1 || long < 1 {
		return models.TimeSeries{}, models.TimeSeries{}, models.TrendSignal{},
			fmt.Errorf("%w: short=%d long=%d", models.ErrInvalidWindow, short, long)
	}
	need := max(short, long)
	if s.Len() < need {
		return models.TimeSeries{}, models.TimeSeries{}, models.TrendSignal{},
			fmt.Errorf("%w: have %d dates, need %d", models.ErrInsufficientHistory, s.Len(), need)
	}

	shortSMA, err := SMA(s, short)
	if err != nil {
		return models.TimeSeries{}, models.TimeSeries{}, models.TrendSignal{}, err
	}
	longSMA, err := SMA(s, long)
	if err != nil {
		return models.TimeSeries{}, models.TimeSeries{}, models.TrendSignal{}, err
	}

	// Both averages end on the last date of s.
	sp, _ := shortSMA.Last()
	lp, _ := longSMA.Last()
	signal := models.TrendSignal{
		Date:  sp.Date,
		Short: sp.Value,
		Long:  lp.Value,
		Trend: Classify(sp.Value, lp.Value),
	}
	return shortSMA, longSMA, signal, nil
}
