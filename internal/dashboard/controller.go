package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"finvestigator/internal/domain"
	"finvestigator/internal/forecast"
	"finvestigator/internal/gather"
	"finvestigator/internal/news"
	"finvestigator/internal/store"
	"finvestigator/internal/util"
)

// Compile-time interface check.
var _ Service = (*Controller)(nil)

// BarLoader is the memoising data loader the controller reads through.
type BarLoader interface {
	Bars(ctx context.Context, ticker string, r gather.DateRange) (domain.Series, error)
	Profile(ctx context.Context, ticker string) (*domain.CompanyProfile, error)
	Invalidate(ticker string) int
	Purge() int
	Archived(ctx context.Context) ([]string, error)
}

// NewsFetcher fetches a feed's entries.
type NewsFetcher interface {
	Fetch(ctx context.Context, url string) ([]domain.NewsEntry, error)
}

// Deps wires a Controller.
type Deps struct {
	Loader       BarLoader
	Forecaster   forecast.Forecaster
	News         NewsFetcher
	Runs         store.ForecastRunStore // optional
	FeedURL      string
	HistoryStart string           // YYYY-MM-DD; empty uses util.DefaultHistoryStart
	Now          func() time.Time // defaults to time.Now
	Logger       *slog.Logger
}

type forecastKey struct {
	symbol string
	window string
	years  int
}

// Controller handles one user action per call and keeps no per-request
// state. Fitted forecasts are memoised per (ticker, start, end, years).
type Controller struct {
	loader       BarLoader
	forecaster   forecast.Forecaster
	news         NewsFetcher
	runs         store.ForecastRunStore
	feedURL      string
	historyStart string
	now          func() time.Time
	log          *slog.Logger
	validate     *validator.Validate

	group     singleflight.Group
	mu        sync.Mutex
	gen       uint64
	forecasts map[forecastKey]*ForecastResult
}

// NewController creates a Controller from d.
func NewController(d Deps) *Controller {
	c := &Controller{
		loader:       d.Loader,
		forecaster:   d.Forecaster,
		news:         d.News,
		runs:         d.Runs,
		feedURL:      d.FeedURL,
		historyStart: d.HistoryStart,
		now:          d.Now,
		log:          d.Logger,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		forecasts:    make(map[forecastKey]*ForecastResult),
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	c.log = c.log.With("component", "controller")
	return c
}

// Window returns the history range loaded for every ticker: the configured
// start through today.
func (c *Controller) Window() (gather.DateRange, error) {
	start, end, err := util.HistoryWindow(c.historyStart, c.now(), time.UTC)
	if err != nil {
		return gather.DateRange{}, err
	}
	return gather.DateRange{Start: start, End: end}, nil
}

// Home loads the profile and bars for the ticker concurrently, fits the
// forecast and returns the Home page. Checks run in page order: empty
// ticker, profile fault, load fault, empty data.
func (c *Controller) Home(ctx context.Context, req HomeRequest) (*HomeView, error) {
	if req.Years == 0 {
		req.Years = 1
	}
	if err := c.validate.Struct(req); err != nil {
		return nil, &Notice{Kind: KindInput, Message: MsgYearsRange, Err: err}
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if symbol == "" {
		return nil, warn(KindInput, MsgTickerHelp)
	}

	window, err := c.Window()
	if err != nil {
		return nil, fault(MsgLoadError, err)
	}

	var (
		g          errgroup.Group
		profile    *domain.CompanyProfile
		bars       domain.Series
		profileErr error
		barsErr    error
	)
	g.Go(func() error {
		profile, profileErr = c.loader.Profile(ctx, symbol)
		return nil
	})
	g.Go(func() error {
		bars, barsErr = c.loader.Bars(ctx, symbol, window)
		return nil
	})
	_ = g.Wait()

	if profileErr != nil && !errors.Is(profileErr, gather.ErrNoProfile) {
		return nil, fault(MsgProfileError, profileErr)
	}
	if profile == nil {
		profile = &domain.CompanyProfile{Symbol: symbol}
	}
	if n := barsNotice(barsErr); n != nil {
		return nil, n
	}

	result, err := c.forecastFor(ctx, symbol, window, bars, req.Years)
	if err != nil {
		return nil, err
	}

	return &HomeView{
		Symbol:   symbol,
		Years:    req.Years,
		Start:    window.Start,
		End:      window.End,
		Profile:  *profile,
		Bars:     bars,
		Stats:    ComputeStats(bars),
		Forecast: result,
	}, nil
}

// Bars returns the loaded series for ticker over the default window.
func (c *Controller) Bars(ctx context.Context, ticker string) (domain.Series, error) {
	symbol := strings.ToUpper(strings.TrimSpace(ticker))
	if symbol == "" {
		return nil, warn(KindInput, MsgTickerHelp)
	}
	window, err := c.Window()
	if err != nil {
		return nil, fault(MsgLoadError, err)
	}
	bars, err := c.loader.Bars(ctx, symbol, window)
	if n := barsNotice(err); n != nil {
		return nil, n
	}
	return bars, nil
}

// Profile returns the company profile for ticker.
func (c *Controller) Profile(ctx context.Context, ticker string) (*domain.CompanyProfile, error) {
	symbol := strings.ToUpper(strings.TrimSpace(ticker))
	if symbol == "" {
		return nil, warn(KindInput, MsgTickerHelp)
	}
	p, err := c.loader.Profile(ctx, symbol)
	if errors.Is(err, gather.ErrNoProfile) {
		return &domain.CompanyProfile{Symbol: symbol}, nil
	}
	if err != nil {
		return nil, fault(MsgProfileError, err)
	}
	return p, nil
}

// Forecast loads bars for ticker and returns the forecast for years.
func (c *Controller) Forecast(ctx context.Context, ticker string, years int) (*ForecastResult, error) {
	if years == 0 {
		years = 1
	}
	if err := c.validate.Var(years, "min=1,max=6"); err != nil {
		return nil, &Notice{Kind: KindInput, Message: MsgYearsRange, Err: err}
	}
	bars, err := c.Bars(ctx, ticker)
	if err != nil {
		return nil, err
	}
	window, err := c.Window()
	if err != nil {
		return nil, fault(MsgLoadError, err)
	}
	return c.forecastFor(ctx, strings.ToUpper(strings.TrimSpace(ticker)), window, bars, years)
}

func barsNotice(err error) *Notice {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gather.ErrNoData):
		return &Notice{Kind: KindNoData, Message: MsgNoData, Err: err}
	default:
		return fault(MsgLoadError, err)
	}
}

// forecastFor fits and predicts once per (symbol, window, years) and records
// each new run.
func (c *Controller) forecastFor(ctx context.Context, symbol string, window gather.DateRange, bars domain.Series, years int) (*ForecastResult, error) {
	key := forecastKey{symbol: symbol, window: window.Key(), years: years}

	c.mu.Lock()
	if r, ok := c.forecasts[key]; ok {
		c.mu.Unlock()
		return r, nil
	}
	gen := c.gen
	c.mu.Unlock()

	v, err, _ := util.SharedCall(ctx, &c.group, fmt.Sprintf("%s:%s:%d", symbol, key.window, years), func(ctx context.Context) (any, error) {
		started := time.Now()

		model, err := c.forecaster.Fit(ctx, forecast.TrainingFrame(bars))
		if err != nil {
			return nil, err
		}
		horizon := util.HorizonDays(years)
		rows, err := model.Predict(ctx, model.FutureDates(horizon))
		if err != nil {
			return nil, err
		}

		result := &ForecastResult{
			Symbol:      symbol,
			Years:       years,
			Horizon:     horizon,
			HistoryRows: len(bars),
			Rows:        rows,
			Components:  model.Components(rows),
		}

		c.mu.Lock()
		if c.gen == gen {
			c.forecasts[key] = result
		}
		c.mu.Unlock()

		c.log.Info("forecast computed", "symbol", symbol, "years", years,
			"history_rows", len(bars), "rows", len(rows), "elapsed", time.Since(started).Round(time.Millisecond))
		c.recordRun(ctx, result, bars)
		return result, nil
	})
	if err != nil {
		if errors.Is(err, forecast.ErrTooFewRows) {
			return nil, &Notice{Kind: KindNoData, Message: MsgTooFewRows, Err: err}
		}
		return nil, fault(MsgForecastErr, err)
	}
	return v.(*ForecastResult), nil
}

func (c *Controller) recordRun(ctx context.Context, r *ForecastResult, bars domain.Series) {
	if c.runs == nil {
		return
	}
	run := &domain.ForecastRun{
		Symbol:       r.Symbol,
		Years:        r.Years,
		HistoryRows:  r.HistoryRows,
		ForecastRows: len(r.Rows),
		CreatedAt:    c.now().UTC(),
	}
	if last, ok := bars.Last(); ok {
		run.LastClose = last.Close
	}
	if n := len(r.Rows); n > 0 {
		run.FinalYHat = r.Rows[n-1].YHat
	}
	if err := c.runs.SaveRun(ctx, run); err != nil {
		c.log.Warn("saving forecast run", "symbol", r.Symbol, "error", err)
	}
}

// News fetches the configured feed and renders it.
func (c *Controller) News(ctx context.Context) (*NewsView, error) {
	if strings.TrimSpace(c.feedURL) == "" {
		return nil, warn(KindInput, MsgNoFeedURL)
	}
	entries, err := c.news.Fetch(ctx, c.feedURL)
	if errors.Is(err, news.ErrNoURL) {
		return nil, warn(KindInput, MsgNoFeedURL)
	}
	if err != nil {
		return nil, fault(MsgNewsError, err)
	}
	return &NewsView{
		FeedURL:  c.feedURL,
		Entries:  entries,
		Fragment: news.RenderFragment(entries),
	}, nil
}

// Recent returns the latest recorded forecast runs, newest first.
func (c *Controller) Recent(ctx context.Context, limit int) ([]domain.ForecastRun, error) {
	if c.runs == nil {
		return nil, nil
	}
	runs, err := c.runs.ListRuns(ctx, limit)
	if err != nil {
		return nil, fault("Error occurred while listing forecasts: %v", err)
	}
	return runs, nil
}

// Symbols lists the tickers already held in the local bar archive.
func (c *Controller) Symbols(ctx context.Context) ([]string, error) {
	symbols, err := c.loader.Archived(ctx)
	if err != nil {
		return nil, fault("Error occurred while listing archived symbols: %v", err)
	}
	return symbols, nil
}

// Invalidate drops cached data and forecasts for ticker.
func (c *Controller) Invalidate(ticker string) int {
	symbol := strings.ToUpper(strings.TrimSpace(ticker))
	n := c.loader.Invalidate(symbol)

	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.forecasts {
		if k.symbol == symbol {
			delete(c.forecasts, k)
			n++
		}
	}
	c.gen++
	c.log.Info("cache invalidated", "symbol", symbol, "entries", n)
	return n
}

// Purge drops every cached series, profile and forecast.
func (c *Controller) Purge() int {
	n := c.loader.Purge()

	c.mu.Lock()
	defer c.mu.Unlock()
	n += len(c.forecasts)
	c.forecasts = make(map[forecastKey]*ForecastResult)
	c.gen++
	c.log.Info("cache purged", "entries", n)
	return n
}
