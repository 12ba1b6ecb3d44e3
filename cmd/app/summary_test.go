package main

import (
	"bytes"
	"testing"
	"time"

	"BreadthPull/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

func TestPrintSummary(t *testing.T) {
	r := &models.Report{
		RunID:       "run-1",
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Indicators: []models.Indicator{{
			Name:   models.Total,
			Label:  "Bullish",
			Signal: models.TrendSignal{Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Short: 2, Long: 1, Trend: models.Ascending},
		}},
		Errors:     map[models.Composite]string{models.Others: "basket incomplete: missing solana"},
		Missing:    []models.MissingAsset{{AssetID: "solana", Reason: "status 404"}},
		Disclaimer: "not advice",
	}

	var buf bytes.Buffer
	printSummary(&buf, r)
	out := buf.String()

	assert.Contains(t, out, "run run-1")
	assert.Contains(t, out, "Bullish")
	assert.Contains(t, out, "2024-05-01")
	assert.Contains(t, out, "OTHERS: basket incomplete")
	assert.Contains(t, out, "solana: status 404")
	assert.Contains(t, out, "not advice")
}
