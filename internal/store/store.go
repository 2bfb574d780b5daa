// Package store defines storage interfaces for the bar archive and the
// forecast run history, with Parquet and SQLite implementations.
package store

import (
	"context"
	"time"

	"finvestigator/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars under the given market.
	WriteBars(ctx context.Context, market domain.Market, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within [start, end].
	ReadBars(ctx context.Context, symbol string, market domain.Market, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market domain.Market) ([]string, error)
}

// ForecastRunStore records computed forecasts.
type ForecastRunStore interface {
	// SaveRun inserts a run and sets its ID.
	SaveRun(ctx context.Context, run *domain.ForecastRun) error

	// ListRuns returns the most recent runs, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]domain.ForecastRun, error)
}
