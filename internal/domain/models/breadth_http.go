package models

// Requests and responses for the breadth HTTP endpoints.

type IndicatorRequest struct {
	Name string `param:"name" json:"name" validate:"required,oneof=TOTAL TOTAL2 OTHERS TOTAL2_RATIO OTHERS_RATIO"`
	Tail int    `query:"tail" json:"tail" default:"90" validate:"gte=1,lte=3650"`
}

type ReportRequest struct {
	Tail    int  `query:"tail" json:"tail" default:"90" validate:"gte=1,lte=3650"`
	Summary bool `query:"summary" json:"summary"`
}

// IndicatorView is the JSON shape of an indicator with its series.
type IndicatorView struct {
	Indicator
	Series   []Point `json:"series"`
	ShortSMA []Point `json:"short_sma"`
	LongSMA  []Point `json:"long_sma"`
}

// NewIndicatorView trims every series of ind to its last tail points.
func NewIndicatorView(ind Indicator, tail int) IndicatorView {
	return IndicatorView{
		Indicator: ind,
		Series:    ind.Series.Tail(tail).Points(),
		ShortSMA:  ind.ShortSMA.Tail(tail).Points(),
		LongSMA:   ind.LongSMA.Tail(tail).Points(),
	}
}

// ReportView is the JSON shape of a full report.
type ReportView struct {
	Report
	Indicators []IndicatorView `json:"indicators"`
}

// NewReportView renders r with every indicator trimmed to tail points.
// A tail of zero omits the series entirely.
func NewReportView(r *Report, tail int) ReportView {
	v := ReportView{Report: *r, Indicators: make([]IndicatorView, 0, len(r.Indicators))}
	for _, ind := range r.Indicators {
		if tail == 0 {
			v.Indicators = append(v.Indicators, IndicatorView{Indicator: ind})
			continue
		}
		v.Indicators = append(v.Indicators, NewIndicatorView(ind, tail))
	}
	return v
}
