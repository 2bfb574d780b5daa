// Package forecast fits an additive time-series model to a closing-price
// history and produces dated predictions with uncertainty intervals.
//
// The model is y(t) = g(t) + s_yearly(t) + s_weekly(t) + e, where g is a
// piecewise-linear trend with changepoints and the seasonal terms are
// truncated Fourier series. Coefficients are fitted by penalised least
// squares; intervals come from simulating future trend changes plus
// observation noise.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"finvestigator/internal/domain"
)

// ErrTooFewRows is returned when the training frame has fewer than two rows.
var ErrTooFewRows = errors.New("training frame has fewer than 2 rows")

// Frame is the two-column (ds, y) training table.
type Frame struct {
	DS []time.Time
	Y  []float64
}

// Columns returns the frame's column names in order.
func (f Frame) Columns() []string { return []string{"ds", "y"} }

// Len returns the number of rows.
func (f Frame) Len() int { return len(f.DS) }

// TrainingFrame projects bars onto (ds, close) and renames close to y. The
// result has exactly one row per input bar.
func TrainingFrame(bars domain.Series) Frame {
	f := Frame{
		DS: make([]time.Time, len(bars)),
		Y:  make([]float64, len(bars)),
	}
	for i, b := range bars {
		f.DS[i] = b.Timestamp.UTC()
		f.Y[i] = b.Close
	}
	return f
}

func (f Frame) validate() error {
	if len(f.DS) != len(f.Y) {
		return fmt.Errorf("frame columns differ in length: ds=%d y=%d", len(f.DS), len(f.Y))
	}
	if len(f.DS) < 2 {
		return ErrTooFewRows
	}
	for i := range f.Y {
		if math.IsNaN(f.Y[i]) || math.IsInf(f.Y[i], 0) {
			return fmt.Errorf("non-finite y at row %d", i)
		}
		if i > 0 && !f.DS[i].After(f.DS[i-1]) {
			return fmt.Errorf("ds not strictly increasing at row %d", i)
		}
	}
	if !f.DS[len(f.DS)-1].After(f.DS[0]) {
		return ErrTooFewRows
	}
	return nil
}

// Forecaster fits a model to a training frame.
type Forecaster interface {
	Fit(ctx context.Context, frame Frame) (Model, error)
}

// Model is a fitted forecaster.
type Model interface {
	// FutureDates returns the history dates followed by periods calendar
	// days after the last history date.
	FutureDates(periods int) []time.Time
	// Predict returns one row per date.
	Predict(ctx context.Context, dates []time.Time) ([]domain.ForecastRow, error)
	// Components decomposes a prediction into trend and seasonal profiles.
	Components(rows []domain.ForecastRow) Components
}

// Point is one dated value with an interval.
type Point struct {
	DS    time.Time
	Value float64
	Lower float64
	Upper float64
}

// ProfilePoint is one position of a seasonal cycle.
type ProfilePoint struct {
	Label string
	Value float64
}

// Components is the decomposed forecast: the trend over the forecast
// timeline and one cycle of each fitted seasonality. Weekly runs Monday to
// Sunday; Yearly runs over 365 days starting January 1st. Profiles are nil
// when the seasonality was not fitted.
type Components struct {
	Trend  []Point
	Weekly []ProfilePoint
	Yearly []ProfilePoint
}

// Options tunes the additive model.
type Options struct {
	Changepoints          int
	ChangepointRange      float64
	ChangepointPriorScale float64
	SeasonalityPriorScale float64
	YearlyOrder           int
	WeeklyOrder           int
	IntervalWidth         float64
	UncertaintySamples    int
	Seed                  int64
}

// DefaultOptions returns the standard settings: 25 changepoints over the
// first 80% of history, yearly order 10, weekly order 3, an 80% interval
// from 1000 samples.
func DefaultOptions() Options {
	return Options{
		Changepoints:          25,
		ChangepointRange:      0.8,
		ChangepointPriorScale: 0.05,
		SeasonalityPriorScale: 10,
		YearlyOrder:           10,
		WeeklyOrder:           3,
		IntervalWidth:         0.8,
		UncertaintySamples:    1000,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Changepoints < 0 {
		o.Changepoints = 0
	} else if o.Changepoints == 0 {
		o.Changepoints = d.Changepoints
	}
	if o.ChangepointRange <= 0 || o.ChangepointRange > 1 {
		o.ChangepointRange = d.ChangepointRange
	}
	if o.ChangepointPriorScale <= 0 {
		o.ChangepointPriorScale = d.ChangepointPriorScale
	}
	if o.SeasonalityPriorScale <= 0 {
		o.SeasonalityPriorScale = d.SeasonalityPriorScale
	}
	if o.YearlyOrder <= 0 {
		o.YearlyOrder = d.YearlyOrder
	}
	if o.WeeklyOrder <= 0 {
		o.WeeklyOrder = d.WeeklyOrder
	}
	if o.IntervalWidth <= 0 || o.IntervalWidth >= 1 {
		o.IntervalWidth = d.IntervalWidth
	}
	if o.UncertaintySamples < 0 {
		o.UncertaintySamples = 0
	} else if o.UncertaintySamples == 0 {
		o.UncertaintySamples = d.UncertaintySamples
	}
	return o
}

// FutureDates returns history followed by periods daily dates after the last
// history date. It is the free-function form of Model.FutureDates.
func FutureDates(history []time.Time, periods int) []time.Time {
	out := make([]time.Time, 0, len(history)+max(periods, 0))
	out = append(out, history...)
	if len(history) == 0 {
		return out
	}
	last := history[len(history)-1]
	for i := 1; i <= periods; i++ {
		out = append(out, last.AddDate(0, 0, i))
	}
	return out
}
