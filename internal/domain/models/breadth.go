package models

import "time"

// Composite names a derived breadth series.
type Composite string

const (
	Total       Composite = "TOTAL"
	Total2      Composite = "TOTAL2"
	Others      Composite = "OTHERS"
	Total2Ratio Composite = "TOTAL2_RATIO"
	OthersRatio Composite = "OTHERS_RATIO"
)

// Composites lists every composite in report order.
func Composites() []Composite {
	return []Composite{Total, Total2, Others, Total2Ratio, OthersRatio}
}

// IsValidComposite returns true if name is a known composite.
func IsValidComposite(name string) bool {
	for _, c := range Composites() {
		if string(c) == name {
			return true
		}
	}
	return false
}

// Trend is the two-state moving average classification.
type Trend string

const (
	Ascending  Trend = "ascending"
	Descending Trend = "descending"
)

// TrendSignal is the short/long average pair at the latest date where both are defined.
type TrendSignal struct {
	Date  time.Time `json:"date"`
	Short float64   `json:"short"`
	Long  float64   `json:"long"`
	Trend Trend     `json:"trend"`
}

// Indicator is everything the presentation layer needs for one composite.
type Indicator struct {
	Name        Composite   `json:"name"`
	Title       string      `json:"title"`
	Caption     string      `json:"caption,omitempty"`
	Label       string      `json:"label"`
	ShortWindow int         `json:"short_window"`
	LongWindow  int         `json:"long_window"`
	Signal      TrendSignal `json:"signal"`
	Series      TimeSeries  `json:"-"`
	ShortSMA    TimeSeries  `json:"-"`
	LongSMA     TimeSeries  `json:"-"`
}

// MissingAsset records why an asset is absent from a run.
type MissingAsset struct {
	AssetID string `json:"asset_id"`
	Reason  string `json:"reason"`
}

// Report is the output of one pipeline run. A newer report fully replaces an older one.
type Report struct {
	RunID          string               `json:"run_id"`
	GeneratedAt    time.Time            `json:"generated_at"`
	Duration       time.Duration        `json:"duration"`
	Basket         []string             `json:"basket"`
	Primary        string               `json:"primary"`
	Loaded         []string             `json:"loaded"`
	Missing        []MissingAsset       `json:"missing,omitempty"`
	Partial        bool                 `json:"partial"`
	ReferenceTotal bool                 `json:"reference_total"`
	Indicators     []Indicator          `json:"indicators"`
	Errors         map[Composite]string `json:"errors,omitempty"`
	Notices        []string             `json:"notices,omitempty"`
	Disclaimer     string               `json:"disclaimer"`
}

// Indicator returns the indicator for name if it was computed.
func (r *Report) Indicator(name Composite) (Indicator, bool) {
	for _, ind := range r.Indicators {
		if ind.Name == name {
			return ind, true
		}
	}
	return Indicator{}, false
}
