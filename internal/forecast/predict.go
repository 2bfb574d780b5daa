package forecast

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"finvestigator/internal/domain"
)

// FutureDates returns the history dates followed by periods calendar days.
func (m *AdditiveModel) FutureDates(periods int) []time.Time {
	return FutureDates(m.history, periods)
}

// HistoryLen returns the number of rows the model was fitted on.
func (m *AdditiveModel) HistoryLen() int { return len(m.history) }

// futureChange is one simulated trend change beyond the history.
type futureChange struct {
	t     float64
	delta float64
}

// Predict evaluates the model at dates. Trend intervals come from simulated
// future changepoints drawn at the historical rate with Laplace-distributed
// magnitudes; prediction intervals add Gaussian observation noise. The
// simulation is seeded, so identical inputs give identical rows.
func (m *AdditiveModel) Predict(ctx context.Context, dates []time.Time) ([]domain.ForecastRow, error) {
	rows := make([]domain.ForecastRow, len(dates))
	if len(dates) == 0 {
		return rows, nil
	}

	src := m.source()
	rng := rand.New(src)

	tMax := math.Inf(-1)
	for _, ds := range dates {
		tMax = math.Max(tMax, m.scaleTime(ds))
	}
	changes := m.simulateChanges(src, tMax)

	nSamples := m.opts.UncertaintySamples
	lowerQ := (1 - m.opts.IntervalWidth) / 2
	upperQ := 1 - lowerQ
	trendSamples := make([]float64, nSamples)
	yhatSamples := make([]float64, nSamples)

	for i, ds := range dates {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		t := m.scaleTime(ds)
		trend := m.trend(t)
		yearly, weekly := m.seasonal(ds)
		additive := yearly + weekly

		row := domain.ForecastRow{
			DS:            ds,
			Trend:         trend * m.yScale,
			Yearly:        yearly * m.yScale,
			Weekly:        weekly * m.yScale,
			AdditiveTerms: additive * m.yScale,
			YHat:          (trend + additive) * m.yScale,
		}
		row.TrendLower, row.TrendUpper = row.Trend, row.Trend
		row.YHatLower, row.YHatUpper = row.YHat, row.YHat

		if nSamples > 0 {
			for s := 0; s < nSamples; s++ {
				ts := trend
				for _, c := range changes[s] {
					if t >= c.t {
						ts += c.delta * (t - c.t)
					}
				}
				trendSamples[s] = ts
				yhatSamples[s] = ts + additive + m.sigma*rng.NormFloat64()
			}
			sort.Float64s(trendSamples)
			sort.Float64s(yhatSamples)

			row.TrendLower = stat.Quantile(lowerQ, stat.Empirical, trendSamples, nil) * m.yScale
			row.TrendUpper = stat.Quantile(upperQ, stat.Empirical, trendSamples, nil) * m.yScale
			row.YHatLower = stat.Quantile(lowerQ, stat.Empirical, yhatSamples, nil) * m.yScale
			row.YHatUpper = stat.Quantile(upperQ, stat.Empirical, yhatSamples, nil) * m.yScale
		}
		rows[i] = row
	}
	return rows, nil
}

// source returns the seeded generator behind every sampled interval.
func (m *AdditiveModel) source() rand.Source {
	return rand.NewPCG(uint64(m.opts.Seed), 0x9e3779b97f4a7c15)
}

// simulateChanges draws, per sample, the trend changes between the end of
// history (t = 1) and tMax. Change counts are Poisson at the historical
// changepoint rate and magnitudes are Laplace around zero.
func (m *AdditiveModel) simulateChanges(src rand.Source, tMax float64) [][]futureChange {
	out := make([][]futureChange, m.opts.UncertaintySamples)
	if tMax <= 1 || len(m.changepoints) == 0 {
		return out
	}

	var scale float64
	for _, d := range m.delta {
		scale += math.Abs(d)
	}
	scale = scale/float64(len(m.delta)) + 1e-8

	rng := rand.New(src)
	count := distuv.Poisson{Lambda: float64(len(m.changepoints)) * (tMax - 1), Src: src}
	magnitude := distuv.Laplace{Mu: 0, Scale: scale, Src: src}
	for s := range out {
		changes := make([]futureChange, int(count.Rand()))
		for j := range changes {
			changes[j] = futureChange{
				t:     1 + rng.Float64()*(tMax-1),
				delta: magnitude.Rand(),
			}
		}
		out[s] = changes
	}
	return out
}

// Components returns the trend over rows and one cycle of each seasonality.
func (m *AdditiveModel) Components(rows []domain.ForecastRow) Components {
	c := Components{Trend: make([]Point, len(rows))}
	for i, r := range rows {
		c.Trend[i] = Point{DS: r.DS, Value: r.Trend, Lower: r.TrendLower, Upper: r.TrendUpper}
	}

	if m.weekly {
		// 2017-01-02 is a Monday.
		monday := time.Date(2017, 1, 2, 0, 0, 0, 0, time.UTC)
		c.Weekly = make([]ProfilePoint, 7)
		for i := range c.Weekly {
			ds := monday.AddDate(0, 0, i)
			_, w := m.seasonal(ds)
			c.Weekly[i] = ProfilePoint{Label: ds.Weekday().String(), Value: w * m.yScale}
		}
	}
	if m.yearly {
		jan1 := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
		c.Yearly = make([]ProfilePoint, 365)
		for i := range c.Yearly {
			ds := jan1.AddDate(0, 0, i)
			y, _ := m.seasonal(ds)
			c.Yearly[i] = ProfilePoint{Label: ds.Format("Jan 02"), Value: y * m.yScale}
		}
	}
	return c
}
