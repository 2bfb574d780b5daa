// Package us implements gather.Source for US equities over the Alpaca
// market-data and trading APIs.
package us

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"finvestigator/internal/domain"
	"finvestigator/internal/gather"
)

// Compile-time interface check.
var _ gather.Source = (*AlpacaSource)(nil)

// barClient is the subset of *marketdata.Client the source uses.
type barClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// assetClient is the subset of *alpaca.Client the source uses.
type assetClient interface {
	GetAsset(symbol string) (*alpaca.Asset, error)
}

// AlpacaSource fetches split- and dividend-adjusted daily bars from the
// Alpaca market-data API and asset names from the trading API.
type AlpacaSource struct {
	bars   barClient
	assets assetClient
	feed   string
	log    *slog.Logger
}

// AlpacaOpts holds credentials and endpoints for NewAlpacaSource.
type AlpacaOpts struct {
	APIKey    string
	APISecret string
	BaseURL   string // trading API, used for asset lookups
	DataURL   string // market-data API
	Feed      string // "iex" or "sip"
}

// NewAlpacaSource creates an AlpacaSource with the given credentials.
func NewAlpacaSource(opts AlpacaOpts) *AlpacaSource {
	mdOpts := marketdata.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	}
	if opts.DataURL != "" {
		mdOpts.BaseURL = opts.DataURL
	}

	feed := opts.Feed
	if feed == "" {
		feed = "iex"
	}

	return &AlpacaSource{
		bars: marketdata.NewClient(mdOpts),
		assets: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    opts.APIKey,
			APISecret: opts.APISecret,
			BaseURL:   opts.BaseURL,
		}),
		feed: feed,
		log:  slog.Default().With("source", "alpaca"),
	}
}

// Name returns the source identifier.
func (a *AlpacaSource) Name() string { return "alpaca" }

// FetchBars fetches daily bars for one symbol. The end day is included.
func (a *AlpacaSource) FetchBars(ctx context.Context, symbol string, r gather.DateRange) ([]domain.Bar, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	alpacaBars, err := a.bars.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.All,
		Start:      r.Start,
		End:        r.End.Add(24*time.Hour - time.Nanosecond),
		Feed:       a.feed,
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}
	if len(alpacaBars) == 0 {
		return nil, gather.ErrNoData
	}

	bars := make([]domain.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		ts := ab.Timestamp.UTC()
		bars = append(bars, domain.Bar{
			Symbol:    symbol,
			Timestamp: time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
			Open:      ab.Open,
			High:      ab.High,
			Low:       ab.Low,
			Close:     ab.Close,
			Volume:    int64(ab.Volume),
		})
	}
	a.log.Debug("fetched bars", "symbol", symbol, "count", len(bars), "range", r.Key())
	return bars, nil
}

// FetchProfile returns the asset name. Alpaca carries no sector, industry or
// business summary, so those stay empty.
func (a *AlpacaSource) FetchProfile(ctx context.Context, symbol string) (*domain.CompanyProfile, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	asset, err := a.assets.GetAsset(symbol)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, fmt.Errorf("GetAsset %s: %w", symbol, gather.ErrNoProfile)
		}
		return nil, fmt.Errorf("GetAsset %s: %w", symbol, err)
	}
	return &domain.CompanyProfile{
		Symbol: symbol,
		Name:   asset.Name,
	}, nil
}
