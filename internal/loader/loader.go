// Package loader memoises market-data fetches per (ticker, start, end) and
// company profiles per ticker on top of a gather.Source.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"finvestigator/internal/domain"
	"finvestigator/internal/gather"
	"finvestigator/internal/store"
	"finvestigator/internal/util"
)

// ErrEmptyTicker is returned when the ticker is blank after trimming.
var ErrEmptyTicker = errors.New("empty ticker")

type barKey struct {
	symbol string
	start  string
	end    string
}

// Loader fetches bars and profiles through a Source and caches successful
// results for the process lifetime. Errors are never cached.
type Loader struct {
	src     gather.Source
	archive store.BarStore
	market  domain.Market
	retries int
	backoff time.Duration
	log     *slog.Logger

	group singleflight.Group

	mu       sync.Mutex
	gen      uint64
	bars     map[barKey]domain.Series
	profiles map[string]*domain.CompanyProfile
}

// Option configures a Loader.
type Option func(*Loader)

// WithArchive writes every fetched series through to s under market.
func WithArchive(s store.BarStore, market domain.Market) Option {
	return func(l *Loader) {
		l.archive = s
		l.market = market
	}
}

// WithRetries sets the total number of attempts per upstream call and the
// initial backoff between them.
func WithRetries(attempts int, backoff time.Duration) Option {
	return func(l *Loader) {
		l.retries = attempts
		l.backoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Loader) {
		l.log = log
	}
}

// New creates a Loader over src.
func New(src gather.Source, opts ...Option) *Loader {
	l := &Loader{
		src:      src,
		market:   domain.MarketUS,
		retries:  1,
		backoff:  500 * time.Millisecond,
		log:      slog.Default(),
		bars:     make(map[barKey]domain.Series),
		profiles: make(map[string]*domain.CompanyProfile),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.With("component", "loader", "source", src.Name())
	return l
}

// NormalizeTicker trims and upper-cases a ticker.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// SourceName returns the underlying source identifier.
func (l *Loader) SourceName() string { return l.src.Name() }

// Bars returns the daily series for ticker over r. Identical keys are served
// from cache; concurrent identical requests share one upstream call.
func (l *Loader) Bars(ctx context.Context, ticker string, r gather.DateRange) (domain.Series, error) {
	symbol := NormalizeTicker(ticker)
	if symbol == "" {
		return nil, ErrEmptyTicker
	}
	if !r.Valid() {
		return nil, fmt.Errorf("invalid date range %s", r.Key())
	}

	key := barKey{
		symbol: symbol,
		start:  util.FormatDate(r.Start),
		end:    util.FormatDate(r.End),
	}

	l.mu.Lock()
	if s, ok := l.bars[key]; ok {
		l.mu.Unlock()
		return s, nil
	}
	gen := l.gen
	l.mu.Unlock()

	v, err, shared := util.SharedCall(ctx, &l.group, "bars:"+symbol+":"+r.Key(), func(ctx context.Context) (any, error) {
		var bars []domain.Bar
		err := util.RetryIf(ctx, l.retries, l.backoff, func() error {
			var ferr error
			bars, ferr = l.src.FetchBars(ctx, symbol, r)
			return ferr
		}, gather.Retryable)
		if err != nil {
			return nil, err
		}
		if len(bars) == 0 {
			return nil, gather.ErrNoData
		}

		series := domain.Series(bars)
		l.mu.Lock()
		if l.gen == gen {
			l.bars[key] = series
		}
		l.mu.Unlock()

		l.writeThrough(ctx, symbol, bars)
		l.log.Info("loaded bars", "symbol", symbol, "range", r.Key(), "count", len(bars))
		return series, nil
	})
	if err != nil {
		if !errors.Is(err, gather.ErrNoData) {
			l.log.Warn("bar fetch failed", "symbol", symbol, "range", r.Key(), "error", err)
		}
		return nil, err
	}
	if shared {
		l.log.Debug("bar fetch shared", "symbol", symbol)
	}
	return v.(domain.Series), nil
}

// Profile returns the company profile for ticker, memoised per ticker.
func (l *Loader) Profile(ctx context.Context, ticker string) (*domain.CompanyProfile, error) {
	symbol := NormalizeTicker(ticker)
	if symbol == "" {
		return nil, ErrEmptyTicker
	}

	l.mu.Lock()
	if p, ok := l.profiles[symbol]; ok {
		l.mu.Unlock()
		return p, nil
	}
	gen := l.gen
	l.mu.Unlock()

	v, err, _ := util.SharedCall(ctx, &l.group, "profile:"+symbol, func(ctx context.Context) (any, error) {
		var p *domain.CompanyProfile
		err := util.RetryIf(ctx, l.retries, l.backoff, func() error {
			var ferr error
			p, ferr = l.src.FetchProfile(ctx, symbol)
			return ferr
		}, gather.Retryable)
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		if l.gen == gen {
			l.profiles[symbol] = p
		}
		l.mu.Unlock()
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.CompanyProfile), nil
}

// Invalidate drops every cached series and the profile for ticker and
// returns the number of entries removed.
func (l *Loader) Invalidate(ticker string) int {
	symbol := NormalizeTicker(ticker)

	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for k := range l.bars {
		if k.symbol == symbol {
			delete(l.bars, k)
			n++
		}
	}
	if _, ok := l.profiles[symbol]; ok {
		delete(l.profiles, symbol)
		n++
	}
	l.gen++
	return n
}

// Purge drops every cached entry and returns the number removed.
func (l *Loader) Purge() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.bars) + len(l.profiles)
	l.bars = make(map[barKey]domain.Series)
	l.profiles = make(map[string]*domain.CompanyProfile)
	l.gen++
	return n
}

// Archived lists the symbols held in the bar archive, or nil when no
// archive is configured.
func (l *Loader) Archived(ctx context.Context) ([]string, error) {
	if l.archive == nil {
		return nil, nil
	}
	return l.archive.ListSymbols(ctx, l.market)
}

// Len returns the number of cached series.
func (l *Loader) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.bars)
}

func (l *Loader) writeThrough(ctx context.Context, symbol string, bars []domain.Bar) {
	if l.archive == nil || l.src.Name() == "archive" {
		return
	}
	if err := l.archive.WriteBars(ctx, l.market, bars); err != nil {
		l.log.Warn("archive write failed", "symbol", symbol, "error", err)
	}
}
