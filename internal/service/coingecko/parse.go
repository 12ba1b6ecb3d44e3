package coingecko

import (
	"encoding/json"
	"fmt"
	"math"

	"BreadthPull/internal/domain/models"
	"BreadthPull/pkg/util"
)

type marketChartResponse struct {
	MarketCaps json.RawMessage `json:"market_caps"`
}

type globalChartResponse struct {
	MarketCapChart *struct {
		MarketCap json.RawMessage `json:"market_cap"`
	} `json:"market_cap_chart"`
	MarketCaps json.RawMessage `json:"market_caps"`
}

// ParseMarketCaps decodes a coin market_chart body into a daily market cap series.
func ParseMarketCaps(body []byte) (models.TimeSeries, error) {
	var resp marketChartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.TimeSeries{}, fmt.Errorf("%w: decode market chart: %v", models.ErrParse, err)
	}
	return parsePairs(resp.MarketCaps, "market_caps")
}

// ParseGlobalMarketCaps decodes a global market cap chart body. Both the nested
// market_cap_chart.market_cap shape and a flat market_caps list are accepted.
func ParseGlobalMarketCaps(body []byte) (models.TimeSeries, error) {
	var resp globalChartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.TimeSeries{}, fmt.Errorf("%w: decode global chart: %v", models.ErrParse, err)
	}
	if resp.MarketCapChart != nil && len(resp.MarketCapChart.MarketCap) > 0 {
		return parsePairs(resp.MarketCapChart.MarketCap, "market_cap_chart.market_cap")
	}
	return parsePairs(resp.MarketCaps, "market_caps")
}

// parsePairs turns [[ms, value], ...] into a series. Pairs that are not two
// numbers, or whose value is null, are skipped.
func parsePairs(raw json.RawMessage, field string) (models.TimeSeries, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return models.TimeSeries{}, fmt.Errorf("%w: missing %s", models.ErrParse, field)
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return models.TimeSeries{}, fmt.Errorf("%w: %s is not a list", models.ErrParse, field)
	}

	points := make([]models.Point, 0, len(rows))
	for _, row := range rows {
		var pair []*float64
		if err := json.Unmarshal(row, &pair); err != nil {
			continue
		}
		if len(pair) < 2 || pair[0] == nil || pair[1] == nil {
			continue
		}
		ms := *pair[0]
		if math.IsNaN(ms) || math.IsInf(ms, 0) {
			continue
		}
		points = append(points, models.Point{
			Date:  util.DateFromMillis(int64(ms)),
			Value: *pair[1],
		})
	}

	series := models.NewTimeSeries(points)
	if series.Empty() {
		return models.TimeSeries{}, fmt.Errorf("%w: no usable data in %s", models.ErrParse, field)
	}
	return series, nil
}
