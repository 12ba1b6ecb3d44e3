package models

import (
	"math"
	"sort"
	"time"
)

// Point is one daily observation of a series.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// TimeSeries is an ordered date -> value mapping with strictly increasing dates.
// The zero value is an empty series. Values are never mutated after construction.
type TimeSeries struct {
	points []Point
}

// NewTimeSeries builds a series from raw points. Points are ordered by date;
// when several points share a date the last one seen wins. Negative, NaN and
// infinite values are dropped.
func NewTimeSeries(points []Point) TimeSeries {
	clean := make([]Point, 0, len(points))
	for _, p := range points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) || p.Value < 0 {
			continue
		}
		clean = append(clean, p)
	}
	sort.SliceStable(clean, func(i, j int) bool { return clean[i].Date.Before(clean[j].Date) })

	out := clean[:0]
	for _, p := range clean {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return TimeSeries{points: out}
}

// NewDerivedSeries wraps points already strictly ordered by date, as produced by series algebra.
// Derived series (differences, ratios) may legitimately hold negative values.
func NewDerivedSeries(points []Point) TimeSeries {
	return TimeSeries{points: points}
}

// Len returns the number of dates in the series.
func (s TimeSeries) Len() int { return len(s.points) }

// Empty reports whether the series has no dates.
func (s TimeSeries) Empty() bool { return len(s.points) == 0 }

// Points returns a copy of the series points.
func (s TimeSeries) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// Dates returns the series dates in order.
func (s TimeSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.points))
	for i, p := range s.points {
		out[i] = p.Date
	}
	return out
}

// Values returns the series values in date order.
func (s TimeSeries) Values() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Value
	}
	return out
}

// Last returns the most recent point.
func (s TimeSeries) Last() (Point, bool) {
	if len(s.points) == 0 {
		return Point{}, false
	}
	return s.points[len(s.points)-1], true
}

// At returns the value stored for date d.
func (s TimeSeries) At(d time.Time) (float64, bool) {
	i := sort.Search(len(s.points), func(i int) bool { return !s.points[i].Date.Before(d) })
	if i < len(s.points) && s.points[i].Date.Equal(d) {
		return s.points[i].Value, true
	}
	return 0, false
}

// Tail returns the last n points as a new series.
func (s TimeSeries) Tail(n int) TimeSeries {
	if n <= 0 || n >= len(s.points) {
		return s
	}
	return TimeSeries{points: s.points[len(s.points)-n:]}
}

// AssetSeriesSet maps an asset id to its loaded series. A missing key means
// the asset is unavailable for this run.
type AssetSeriesSet map[string]TimeSeries

// IntersectDates returns the dates present in every given series, in order.
func IntersectDates(series ...TimeSeries) []time.Time {
	if len(series) == 0 {
		return nil
	}
	out := series[0].Dates()
	for _, s := range series[1:] {
		kept := out[:0]
		for _, d := range out {
			if _, ok := s.At(d); ok {
				kept = append(kept, d)
			}
		}
		out = kept
	}
	return out
}

// Combine evaluates fn on every date of the index and collects the results.
// Dates where fn reports false are dropped.
func Combine(dates []time.Time, fn func(d time.Time) (float64, bool)) TimeSeries {
	points := make([]Point, 0, len(dates))
	for _, d := range dates {
		if v, ok := fn(d); ok {
			points = append(points, Point{Date: d, Value: v})
		}
	}
	return NewDerivedSeries(points)
}

// ForwardFill projects s onto dates carrying the last known value forward.
// Dates before the first sample of s are dropped.
func ForwardFill(s TimeSeries, dates []time.Time) TimeSeries {
	points := make([]Point, 0, len(dates))
	j := -1
	for _, d := range dates {
		for j+1 < len(s.points) && !s.points[j+1].Date.After(d) {
			j++
		}
		if j < 0 {
			continue
		}
		points = append(points, Point{Date: d, Value: s.points[j].Value})
	}
	return NewDerivedSeries(points)
}
