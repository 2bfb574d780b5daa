// Package app wires configuration into the running dashboard: the market
// source, loader, forecaster, news fetcher, stores and controller.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finvestigator/internal/config"
	"finvestigator/internal/dashboard"
	"finvestigator/internal/domain"
	"finvestigator/internal/forecast"
	"finvestigator/internal/gather"
	"finvestigator/internal/gather/us"
	"finvestigator/internal/gather/yahoo"
	"finvestigator/internal/loader"
	"finvestigator/internal/news"
	"finvestigator/internal/store"
)

// App holds all application components and dependencies.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Source     gather.Source
	Loader     *loader.Loader
	Controller *dashboard.Controller

	// Bars is nil when storage.data_dir is empty.
	Bars *store.ParquetStore
	// Runs is nil when storage.sqlite_path is empty.
	Runs *store.SQLiteStore
}

// New builds an App from cfg.
func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{Config: cfg, Logger: log}

	if cfg.Storage.DataDir != "" {
		a.Bars = store.NewParquetStore(cfg.Storage.DataDir)
	}
	if cfg.Storage.SQLitePath != "" {
		runs, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening forecast history: %w", err)
		}
		a.Runs = runs
	}

	src, market, err := NewSource(cfg, a.Bars, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Source = src

	opts := []loader.Option{
		loader.WithRetries(cfg.Market.Retries, 500*time.Millisecond),
		loader.WithLogger(log),
	}
	if a.Bars != nil && cfg.Market.Archive {
		opts = append(opts, loader.WithArchive(a.Bars, market))
	}
	a.Loader = loader.New(src, opts...)

	deps := dashboard.Deps{
		Loader:       a.Loader,
		Forecaster:   forecast.NewAdditive(ForecastOptions(cfg.Forecast)),
		News:         news.NewFetcher(cfg.News.Timeout, log),
		FeedURL:      cfg.News.FeedURL,
		HistoryStart: cfg.Market.StartDate,
		Logger:       log,
	}
	if a.Runs != nil {
		deps.Runs = a.Runs
	}
	a.Controller = dashboard.NewController(deps)

	log.Info("app initialised",
		"source", src.Name(),
		"market", market,
		"archive", a.Bars != nil && cfg.Market.Archive,
		"history", a.Runs != nil)
	return a, nil
}

// Close releases the stores.
func (a *App) Close() error {
	if a.Runs != nil {
		return a.Runs.Close()
	}
	return nil
}

// NewSource returns the configured market-data source and the market its
// bars are archived under.
func NewSource(cfg *config.Config, bars store.BarStore, log *slog.Logger) (gather.Source, domain.Market, error) {
	switch cfg.Market.Source {
	case "yahoo":
		return yahoo.New(
			yahoo.WithBaseURL(cfg.Market.BaseURL),
			yahoo.WithTimeout(cfg.Market.Timeout),
			yahoo.WithRateLimit(cfg.Market.RateLimitPerSec),
			yahoo.WithLogger(log),
		), domain.MarketGlobal, nil
	case "alpaca":
		return us.NewAlpacaSource(us.AlpacaOpts{
			APIKey:    cfg.Alpaca.APIKey,
			APISecret: cfg.Alpaca.APISecret,
			BaseURL:   cfg.Alpaca.BaseURL,
			DataURL:   cfg.Alpaca.DataURL,
			Feed:      cfg.Alpaca.Feed,
		}), domain.MarketUS, nil
	case "archive":
		if bars == nil {
			return nil, "", errors.New("archive source needs storage.data_dir")
		}
		return gather.NewArchiveSource(bars, domain.MarketGlobal), domain.MarketGlobal, nil
	default:
		return nil, "", fmt.Errorf("unknown market source %q", cfg.Market.Source)
	}
}

// ForecastOptions maps the forecast config onto model options.
func ForecastOptions(c config.ForecastConfig) forecast.Options {
	opts := forecast.DefaultOptions()
	if c.IntervalWidth > 0 {
		opts.IntervalWidth = c.IntervalWidth
	}
	if c.UncertaintySamples != 0 {
		opts.UncertaintySamples = c.UncertaintySamples
	}
	if c.Changepoints != 0 {
		opts.Changepoints = c.Changepoints
	}
	if c.ChangepointPriorScale > 0 {
		opts.ChangepointPriorScale = c.ChangepointPriorScale
	}
	if c.SeasonalityPriorScale > 0 {
		opts.SeasonalityPriorScale = c.SeasonalityPriorScale
	}
	opts.Seed = c.Seed
	return opts
}
