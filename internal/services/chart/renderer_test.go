package chart

import (
	"context"
	"os"
	"testing"
	"time"

	"BreadthPull/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indicator(name models.Composite, n int) models.Indicator {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]models.Point, n)
	for i := range points {
		points[i] = models.Point{Date: start.AddDate(0, 0, i), Value: float64(i * i)}
	}
	s := models.NewTimeSeries(points)
	return models.Indicator{
		Name:        name,
		Title:       "Test",
		Label:       "Bullish",
		ShortWindow: 10,
		LongWindow:  30,
		Series:      s,
		ShortSMA:    s.Tail(n - 9),
		LongSMA:     s.Tail(n - 29),
	}
}

func TestRendererWritesOneFilePerIndicator(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(dir, 20, 4, 3, nil)
	report := &models.Report{Indicators: []models.Indicator{
		indicator(models.Total, 40),
		indicator(models.Total2Ratio, 40),
	}}

	require.NoError(t, r.Publish(context.Background(), report))
	for _, c := range []models.Composite{models.Total, models.Total2Ratio} {
		info, err := os.Stat(r.Path(c))
		require.NoError(t, err, string(c))
		assert.Greater(t, info.Size(), int64(0))
	}
	_, err := os.Stat(r.Path(models.Others))
	assert.True(t, os.IsNotExist(err))
}

func TestRendererPathIsLowercase(t *testing.T) {
	r := NewRenderer("out", 90, 10, 5, nil)
	assert.Equal(t, "out/others_ratio.png", r.Path(models.OthersRatio))
}

func TestPlotTitleCarriesLabel(t *testing.T) {
	r := NewRenderer(t.TempDir(), 90, 10, 5, nil)
	p, err := r.Plot(indicator(models.Total, 40))
	require.NoError(t, err)
	assert.Equal(t, "Test: Bullish", p.Title.Text)
}
