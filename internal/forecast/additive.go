package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

const (
	secondsPerDay = 86400.0
	yearPeriod    = 365.25
	weekPeriod    = 7.0

	// trendPriorScale is the prior scale on the base slope and offset.
	trendPriorScale = 5.0

	// firstPassPenalty keeps the initial fit well posed when changepoint
	// columns are nearly collinear.
	firstPassPenalty = 1e-6
)

// Compile-time interface checks.
var (
	_ Forecaster = (*Additive)(nil)
	_ Model      = (*AdditiveModel)(nil)
)

// Additive fits piecewise-linear trend plus Fourier seasonality models.
type Additive struct {
	opts Options
}

// NewAdditive creates a forecaster with opts; zero fields take defaults.
func NewAdditive(opts Options) *Additive {
	return &Additive{opts: opts.withDefaults()}
}

// Options returns the effective options.
func (a *Additive) Options() Options { return a.opts }

// AdditiveModel is a fitted Additive forecaster.
type AdditiveModel struct {
	opts Options

	history []time.Time
	start   time.Time
	tSpan   float64 // seconds from first to last history date
	yScale  float64

	changepoints []float64 // scaled t
	k, m         float64
	delta        []float64

	yearly bool
	weekly bool
	beta   []float64 // yearly coefficients first, then weekly
	sigma  float64   // residual std dev, scaled units
}

// Fit fits the model to frame with a two-pass penalised least squares: the
// first pass estimates the noise variance, which sets the ridge penalties of
// the second pass from the changepoint and seasonality prior scales.
func (a *Additive) Fit(ctx context.Context, frame Frame) (Model, error) {
	if err := frame.validate(); err != nil {
		return nil, err
	}

	n := frame.Len()
	m := &AdditiveModel{
		opts:    a.opts,
		history: append([]time.Time(nil), frame.DS...),
		start:   frame.DS[0],
		tSpan:   frame.DS[n-1].Sub(frame.DS[0]).Seconds(),
	}

	for _, y := range frame.Y {
		m.yScale = math.Max(m.yScale, math.Abs(y))
	}
	if m.yScale == 0 {
		m.yScale = 1
	}

	spanDays := m.tSpan / secondsPerDay
	m.yearly = spanDays >= 2*365
	m.weekly = spanDays >= 2*weekPeriod

	t := make([]float64, n)
	for i, ds := range frame.DS {
		t[i] = m.scaleTime(ds)
	}
	m.changepoints = placeChangepoints(t, a.opts.Changepoints, a.opts.ChangepointRange)

	y := make([]float64, n)
	for i := range frame.Y {
		y[i] = frame.Y[i] / m.yScale
	}

	X := m.design(frame.DS, t)
	_, p := X.Dims()
	nCP := len(m.changepoints)

	// Pass 1: near-OLS to estimate the noise variance.
	penalty := make([]float64, p)
	for j := 2; j < p; j++ {
		penalty[j] = firstPassPenalty
	}
	coef, err := ridge(X, y, penalty)
	if err != nil {
		return nil, fmt.Errorf("initial fit: %w", err)
	}
	sigma2 := residualVariance(X, y, coef)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Pass 2: MAP under Gaussian priors, lambda = sigma^2 / scale^2.
	penalty[0] = sigma2 / (trendPriorScale * trendPriorScale)
	penalty[1] = penalty[0]
	for j := 0; j < nCP; j++ {
		penalty[2+j] = sigma2 / (a.opts.ChangepointPriorScale * a.opts.ChangepointPriorScale)
	}
	for j := 2 + nCP; j < p; j++ {
		penalty[j] = sigma2 / (a.opts.SeasonalityPriorScale * a.opts.SeasonalityPriorScale)
	}
	coef, err = ridge(X, y, penalty)
	if err != nil {
		return nil, fmt.Errorf("penalised fit: %w", err)
	}

	m.m, m.k = coef[0], coef[1]
	m.delta = append([]float64(nil), coef[2:2+nCP]...)
	m.beta = append([]float64(nil), coef[2+nCP:]...)
	m.sigma = math.Sqrt(residualVariance(X, y, coef))
	return m, nil
}

func (m *AdditiveModel) scaleTime(ds time.Time) float64 {
	return ds.Sub(m.start).Seconds() / m.tSpan
}

// placeChangepoints spreads k changepoints evenly over the first frac of the
// history rows, skipping the first row.
func placeChangepoints(t []float64, k int, frac float64) []float64 {
	histSize := int(math.Floor(float64(len(t)) * frac))
	if k > histSize-1 {
		k = histSize - 1
	}
	if k <= 0 {
		return nil
	}
	cps := make([]float64, 0, k)
	step := float64(histSize-1) / float64(k)
	for i := 1; i <= k; i++ {
		idx := int(math.Round(float64(i) * step))
		cps = append(cps, t[idx])
	}
	return cps
}

// design builds the regression matrix: [1, t, changepoint hinges, seasonal
// Fourier terms].
func (m *AdditiveModel) design(ds []time.Time, t []float64) *mat.Dense {
	nCP := len(m.changepoints)
	p := 2 + nCP + m.seasonalWidth()
	X := mat.NewDense(len(ds), p, nil)
	for i := range ds {
		X.Set(i, 0, 1)
		X.Set(i, 1, t[i])
		for j, s := range m.changepoints {
			if t[i] >= s {
				X.Set(i, 2+j, t[i]-s)
			}
		}
		for j, v := range m.seasonalFeatures(ds[i]) {
			X.Set(i, 2+nCP+j, v)
		}
	}
	return X
}

func (m *AdditiveModel) seasonalWidth() int {
	w := 0
	if m.yearly {
		w += 2 * m.opts.YearlyOrder
	}
	if m.weekly {
		w += 2 * m.opts.WeeklyOrder
	}
	return w
}

// seasonalFeatures returns the Fourier terms for ds, yearly block first.
func (m *AdditiveModel) seasonalFeatures(ds time.Time) []float64 {
	days := float64(ds.Unix()) / secondsPerDay
	out := make([]float64, 0, m.seasonalWidth())
	if m.yearly {
		out = appendFourier(out, days, yearPeriod, m.opts.YearlyOrder)
	}
	if m.weekly {
		out = appendFourier(out, days, weekPeriod, m.opts.WeeklyOrder)
	}
	return out
}

func appendFourier(dst []float64, days, period float64, order int) []float64 {
	for i := 1; i <= order; i++ {
		x := 2 * math.Pi * float64(i) * days / period
		dst = append(dst, math.Sin(x), math.Cos(x))
	}
	return dst
}

// seasonal returns the yearly and weekly contributions at ds in scaled units.
func (m *AdditiveModel) seasonal(ds time.Time) (yearly, weekly float64) {
	f := m.seasonalFeatures(ds)
	j := 0
	if m.yearly {
		for ; j < 2*m.opts.YearlyOrder; j++ {
			yearly += f[j] * m.beta[j]
		}
	}
	if m.weekly {
		for ; j < len(f); j++ {
			weekly += f[j] * m.beta[j]
		}
	}
	return yearly, weekly
}

// trend returns the fitted piecewise-linear trend at scaled time t.
func (m *AdditiveModel) trend(t float64) float64 {
	g := m.k*t + m.m
	for j, s := range m.changepoints {
		if t >= s {
			g += m.delta[j] * (t - s)
		}
	}
	return g
}

// ridge solves min ||X b - y||^2 + sum penalty_j b_j^2 by least squares on
// the augmented system [X; diag(sqrt(penalty))] b = [y; 0].
func ridge(X *mat.Dense, y []float64, penalty []float64) ([]float64, error) {
	n, p := X.Dims()

	var extra int
	for _, l := range penalty {
		if l > 0 {
			extra++
		}
	}

	A := mat.NewDense(n+extra, p, nil)
	A.Slice(0, n, 0, p).(*mat.Dense).Copy(X)
	b := mat.NewVecDense(n+extra, nil)
	for i, v := range y {
		b.SetVec(i, v)
	}
	row := n
	for j, l := range penalty {
		if l > 0 {
			A.Set(row, j, math.Sqrt(l))
			row++
		}
	}

	var coef mat.VecDense
	if err := coef.SolveVec(A, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, err
		}
	}
	return coef.RawVector().Data, nil
}

func residualVariance(X *mat.Dense, y, coef []float64) float64 {
	n, _ := X.Dims()
	var fitted mat.VecDense
	fitted.MulVec(X, mat.NewVecDense(len(coef), coef))

	var rss float64
	for i := 0; i < n; i++ {
		r := y[i] - fitted.AtVec(i)
		rss += r * r
	}
	v := rss / float64(n)
	if v < 1e-12 {
		v = 1e-12
	}
	return v
}
