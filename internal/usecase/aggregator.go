package usecase

import (
	"fmt"
	"strings"
	"time"

	"BreadthPull/internal/domain/models"
)

// AggregateOptions controls how TOTAL is built and which asset TOTAL2 excludes.
type AggregateOptions struct {
	Primary      string
	BufferFactor float64
	// Reference is an independently fetched market total. When set it is
	// forward-filled onto the basket dates and replaces the basket sum.
	Reference *models.TimeSeries
}

// AggregateResult holds every composite that could be computed and why the others could not.
type AggregateResult struct {
	Series map[models.Composite]models.TimeSeries
	Errors map[models.Composite]error
}

// Aggregate derives the breadth composites from the loaded basket series.
//
// All series are inner-joined on the dates shared by every present basket
// asset. OTHERS needs the full basket and TOTAL2 needs the primary asset;
// a failure of one composite never prevents its siblings from computing.
func Aggregate(set models.AssetSeriesSet, basket []string, opts AggregateOptions) AggregateResult {
	res := AggregateResult{
		Series: map[models.Composite]models.TimeSeries{},
		Errors: map[models.Composite]error{},
	}

	present := make([]models.TimeSeries, 0, len(basket))
	var missing []string
	for _, id := range basket {
		s, ok := set[id]
		if !ok || s.Empty() {
			missing = append(missing, id)
			continue
		}
		present = append(present, s)
	}

	if len(present) == 0 {
		for _, c := range models.Composites() {
			res.Errors[c] = fmt.Errorf("%w: no basket series available", models.ErrEmptyAggregate)
		}
		return res
	}

	index := models.IntersectDates(present...)
	sumAt := func(series []models.TimeSeries, d time.Time) float64 {
		var sum float64
		for _, s := range series {
			v, _ := s.At(d)
			sum += v
		}
		return sum
	}

	var total models.TimeSeries
	if opts.Reference != nil {
		total = models.ForwardFill(*opts.Reference, index)
	} else {
		factor := opts.BufferFactor
		if factor <= 0 {
			factor = 1
		}
		total = models.Combine(index, func(d time.Time) (float64, bool) {
			return factor * sumAt(present, d), true
		})
	}
	res.set(models.Total, total, nil)

	totalDates := total.Dates()

	primary, hasPrimary := set[opts.Primary]
	var total2 models.TimeSeries
	var total2Err error
	if !hasPrimary || primary.Empty() {
		total2Err = fmt.Errorf("%w: %s", models.ErrMissingPrimary, opts.Primary)
	} else {
		total2 = models.Combine(totalDates, func(d time.Time) (float64, bool) {
			t, _ := total.At(d)
			p, ok := primary.At(d)
			return t - p, ok
		})
	}
	res.set(models.Total2, total2, total2Err)

	var others models.TimeSeries
	var othersErr error
	if len(missing) > 0 {
		othersErr = fmt.Errorf("%w: missing %s", models.ErrIncompleteBasket, strings.Join(missing, ", "))
	} else {
		others = models.Combine(totalDates, func(d time.Time) (float64, bool) {
			t, _ := total.At(d)
			return t - sumAt(present, d), true
		})
	}
	res.set(models.Others, others, othersErr)

	res.set(models.Total2Ratio, ratio(total2, total), res.Errors[models.Total2])
	res.set(models.OthersRatio, ratio(others, total), res.Errors[models.Others])

	return res
}

// ratio returns 100*x/total on the dates of x, skipping dates where total is zero.
func ratio(x, total models.TimeSeries) models.TimeSeries {
	return models.Combine(x.Dates(), func(d time.Time) (float64, bool) {
		t, ok := total.At(d)
		if !ok || t == 0 {
			return 0, false
		}
		v, _ := x.At(d)
		return 100 * v / t, true
	})
}

func (r *AggregateResult) set(c models.Composite, s models.TimeSeries, err error) {
	if err != nil {
		r.Errors[c] = err
		return
	}
	if s.Empty() {
		r.Errors[c] = fmt.Errorf("%w: %s has no common dates", models.ErrEmptyAggregate, c)
		return
	}
	r.Series[c] = s
}

// Err returns the error recorded for c, if any.
func (r AggregateResult) Err(c models.Composite) error {
	return r.Errors[c]
}
